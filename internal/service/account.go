package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fcfmotors/marketplace/internal/hash"
	"github.com/fcfmotors/marketplace/internal/mail"
	"github.com/fcfmotors/marketplace/internal/models"
	"github.com/fcfmotors/marketplace/internal/repo"
	"github.com/fcfmotors/marketplace/internal/roles"
)

const resetTokenTTL = time.Hour

type AccountService struct {
	DB      *gorm.DB
	Users   *repo.UserRepo
	Dealers *repo.DealerRepo
	Subs    *repo.SubscriptionRepo
	Mail    *mail.Mailer
}

func NewAccountService(db *gorm.DB, users *repo.UserRepo, dealers *repo.DealerRepo, subs *repo.SubscriptionRepo, mailer *mail.Mailer) *AccountService {
	return &AccountService{DB: db, Users: users, Dealers: dealers, Subs: subs, Mail: mailer}
}

func (s *AccountService) Register(ctx context.Context, username, email, password, confirm string) (*models.User, error) {
	if username == "" || email == "" || password == "" {
		return nil, fmt.Errorf("%w: username, email and password are required", ErrInvalid)
	}
	if password != confirm {
		return nil, fmt.Errorf("%w: passwords do not match", ErrInvalid)
	}

	hashed, err := hash.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hashed,
		Roles:        string(roles.User),
	}
	if err := s.Users.Create(ctx, user); err != nil {
		if errors.Is(fromDB(err), ErrConflict) {
			return nil, fmt.Errorf("%w: username or email already taken", ErrConflict)
		}
		return nil, err
	}

	s.Mail.Welcome(ctx, user.Email, user.Username)
	return user, nil
}

func (s *AccountService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.Users.ByUsername(ctx, username)
	if err != nil {
		if errors.Is(fromDB(err), ErrNotFound) {
			return nil, ErrNotAuthorized
		}
		return nil, err
	}
	if !hash.CheckPassword(user.PasswordHash, password) {
		return nil, ErrNotAuthorized
	}
	return user, nil
}

func (s *AccountService) Get(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.Users.ByID(ctx, id)
	if err != nil {
		return nil, fromDB(err)
	}
	return user, nil
}

func (s *AccountService) List(ctx context.Context) ([]models.User, error) {
	return s.Users.List(ctx)
}

// UpdateProfile changes email and/or password. Empty fields are left as is.
func (s *AccountService) UpdateProfile(ctx context.Context, userID uint, email, password string) (*models.User, error) {
	user, err := s.Users.ByID(ctx, userID)
	if err != nil {
		return nil, fromDB(err)
	}
	if email != "" {
		user.Email = email
	}
	if password != "" {
		hashed, err := hash.HashPassword(password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hashed
	}
	if err := s.Users.Save(ctx, user); err != nil {
		if errors.Is(fromDB(err), ErrConflict) {
			return nil, fmt.Errorf("%w: email already taken", ErrConflict)
		}
		return nil, err
	}
	return user, nil
}

// UpdateRoles replaces the role set of a user. Unknown role names are
// dropped by the parser; an empty result is rejected.
func (s *AccountService) UpdateRoles(ctx context.Context, userID uint, raw string) (*models.User, error) {
	set := roles.Parse(raw)
	if len(set) == 0 {
		return nil, fmt.Errorf("%w: no valid roles in %q", ErrInvalid, raw)
	}
	user, err := s.Users.ByID(ctx, userID)
	if err != nil {
		return nil, fromDB(err)
	}
	user.Roles = set.String()
	if err := s.Users.Save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.Users.ByEmail(ctx, email)
	if err != nil {
		return fromDB(err)
	}
	token := uuid.NewString()
	expiry := time.Now().Add(resetTokenTTL)
	user.ResetToken = &token
	user.ResetTokenExpiry = &expiry
	if err := s.Users.Save(ctx, user); err != nil {
		return err
	}
	s.Mail.PasswordReset(ctx, user.Email, token)
	return nil
}

func (s *AccountService) ResetPassword(ctx context.Context, token, password, confirm string) error {
	if password == "" || password != confirm {
		return fmt.Errorf("%w: passwords do not match", ErrInvalid)
	}
	user, err := s.Users.ByResetToken(ctx, token)
	if err != nil {
		if errors.Is(fromDB(err), ErrNotFound) {
			return fmt.Errorf("%w: unknown reset token", ErrInvalid)
		}
		return err
	}
	if user.ResetTokenExpiry == nil || time.Now().After(*user.ResetTokenExpiry) {
		return fmt.Errorf("%w: reset token expired", ErrInvalid)
	}
	hashed, err := hash.HashPassword(password)
	if err != nil {
		return err
	}
	user.PasswordHash = hashed
	user.ResetToken = nil
	user.ResetTokenExpiry = nil
	return s.Users.Save(ctx, user)
}

// Delete removes the account after a password check. Accounts with an active
// subscription must cancel it first. Everything the user owns goes with it.
func (s *AccountService) Delete(ctx context.Context, userID uint, password string) error {
	user, err := s.Users.ByID(ctx, userID)
	if err != nil {
		return fromDB(err)
	}
	if !hash.CheckPassword(user.PasswordHash, password) {
		return ErrNotAuthorized
	}
	return s.delete(ctx, user)
}

// AdminDelete removes any account without a password check.
func (s *AccountService) AdminDelete(ctx context.Context, userID uint) error {
	user, err := s.Users.ByID(ctx, userID)
	if err != nil {
		return fromDB(err)
	}
	return s.delete(ctx, user)
}

func (s *AccountService) delete(ctx context.Context, user *models.User) error {
	active, err := s.Subs.ActiveByUser(ctx, user.ID)
	if err != nil {
		return err
	}
	if len(active) > 0 {
		return fmt.Errorf("%w: cancel active subscriptions before deleting the account", ErrConflict)
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dealer, err := s.Dealers.WithTx(tx).ByOwner(ctx, user.ID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if dealer != nil {
			if err := s.Dealers.WithTx(tx).DeleteCascade(ctx, dealer.ID); err != nil {
				return err
			}
		}

		var productIDs []uint
		if err := tx.Model(&models.Product{}).
			Where("seller_id = ?", user.ID).
			Pluck("id", &productIDs).Error; err != nil {
			return err
		}
		if len(productIDs) > 0 {
			if err := tx.Where("product_id IN ?", productIDs).Delete(&models.Image{}).Error; err != nil {
				return err
			}
			if err := tx.Where("product_id IN ?", productIDs).Delete(&models.QuoteRequest{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", productIDs).Delete(&models.Product{}).Error; err != nil {
				return err
			}
		}

		if err := tx.Where("user_id = ?", user.ID).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.UserSubscription{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.RefreshToken{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.User{}, user.ID).Error
	})
	if err != nil {
		return err
	}

	s.Mail.AccountDeleted(ctx, user.Email, user.Username)
	return nil
}

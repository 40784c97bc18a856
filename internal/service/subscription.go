package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/fcfmotors/marketplace/internal/logging"
	"github.com/fcfmotors/marketplace/internal/mail"
	"github.com/fcfmotors/marketplace/internal/models"
	"github.com/fcfmotors/marketplace/internal/repo"
	"github.com/fcfmotors/marketplace/internal/roles"
)

type SubscriptionService struct {
	DB      *gorm.DB
	Subs    *repo.SubscriptionRepo
	Users   *repo.UserRepo
	Dealers *repo.DealerRepo
	Mail    *mail.Mailer
}

func NewSubscriptionService(db *gorm.DB, subs *repo.SubscriptionRepo, users *repo.UserRepo, dealers *repo.DealerRepo, mailer *mail.Mailer) *SubscriptionService {
	return &SubscriptionService{DB: db, Subs: subs, Users: users, Dealers: dealers, Mail: mailer}
}

// PlanForm carries the editable plan fields.
type PlanForm struct {
	Name            string
	Description     string
	Price           float64
	DurationDays    int
	MaxFeaturedCars int
}

func (f PlanForm) validate() error {
	if f.Name == "" {
		return fmt.Errorf("%w: plan name is required", ErrInvalid)
	}
	if f.Price < 0 {
		return fmt.Errorf("%w: plan price cannot be negative", ErrInvalid)
	}
	if f.DurationDays <= 0 {
		return fmt.Errorf("%w: plan duration must be positive", ErrInvalid)
	}
	return nil
}

func (s *SubscriptionService) CreatePlan(ctx context.Context, form PlanForm) (*models.Subscription, error) {
	if err := form.validate(); err != nil {
		return nil, err
	}
	plan := &models.Subscription{
		Name:            form.Name,
		Description:     form.Description,
		Price:           form.Price,
		DurationDays:    form.DurationDays,
		MaxFeaturedCars: form.MaxFeaturedCars,
	}
	if err := s.Subs.CreatePlan(ctx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

func (s *SubscriptionService) UpdatePlan(ctx context.Context, planID uint, form PlanForm) (*models.Subscription, error) {
	if err := form.validate(); err != nil {
		return nil, err
	}
	plan, err := s.Subs.PlanByID(ctx, planID)
	if err != nil {
		return nil, fromDB(err)
	}
	plan.Name = form.Name
	plan.Description = form.Description
	plan.Price = form.Price
	plan.DurationDays = form.DurationDays
	plan.MaxFeaturedCars = form.MaxFeaturedCars
	if err := s.Subs.SavePlan(ctx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// DeletePlan removes a plan nobody is subscribed to.
func (s *SubscriptionService) DeletePlan(ctx context.Context, planID uint) error {
	var n int64
	if err := s.DB.WithContext(ctx).Model(&models.UserSubscription{}).
		Where("subscription_id = ? AND active = ?", planID, true).
		Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%w: plan has active subscribers", ErrConflict)
	}
	return fromDB(s.Subs.DeletePlan(ctx, planID))
}

func (s *SubscriptionService) Plans(ctx context.Context) ([]models.Subscription, error) {
	return s.Subs.Plans(ctx)
}

func (s *SubscriptionService) PlanByID(ctx context.Context, planID uint) (*models.Subscription, error) {
	plan, err := s.Subs.PlanByID(ctx, planID)
	if err != nil {
		return nil, fromDB(err)
	}
	return plan, nil
}

// ApplyDiscount opens a time-limited discount window on a plan.
func (s *SubscriptionService) ApplyDiscount(ctx context.Context, planID uint, percent float64, expiry time.Time) (*models.Subscription, error) {
	if percent <= 0 || percent > 100 {
		return nil, fmt.Errorf("%w: discount must be between 0 and 100", ErrInvalid)
	}
	if !expiry.After(time.Now()) {
		return nil, fmt.Errorf("%w: discount expiry must be in the future", ErrInvalid)
	}
	plan, err := s.Subs.PlanByID(ctx, planID)
	if err != nil {
		return nil, fromDB(err)
	}
	plan.Discount = &percent
	plan.DiscountExpiry = &expiry
	if err := s.Subs.SavePlan(ctx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

func (s *SubscriptionService) ClearDiscount(ctx context.Context, planID uint) (*models.Subscription, error) {
	plan, err := s.Subs.PlanByID(ctx, planID)
	if err != nil {
		return nil, fromDB(err)
	}
	plan.Discount = nil
	plan.DiscountExpiry = nil
	if err := s.Subs.SavePlan(ctx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// Subscribe opens a subscription and grants the dealer role. A user cannot
// hold two active subscriptions to the same plan.
func (s *SubscriptionService) Subscribe(ctx context.Context, userID, planID uint, autoRenew bool) (*models.UserSubscription, error) {
	now := time.Now()

	var sub *models.UserSubscription
	var plan *models.Subscription
	var email, username string

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := s.Users.WithTx(tx).LockByID(ctx, userID)
		if err != nil {
			return fromDB(err)
		}
		plan, err = s.Subs.WithTx(tx).PlanByID(ctx, planID)
		if err != nil {
			return fromDB(err)
		}

		var n int64
		if err := tx.Model(&models.UserSubscription{}).
			Where("user_id = ? AND subscription_id = ? AND active = ?", userID, planID, true).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: already subscribed to this plan", ErrConflict)
		}

		sub = &models.UserSubscription{
			UserID:         userID,
			SubscriptionID: planID,
			StartDate:      now,
			ExpiryDate:     now.AddDate(0, 0, plan.DurationDays),
			Active:         true,
			AutoRenew:      autoRenew,
		}
		if err := s.Subs.WithTx(tx).CreateUserSubscription(ctx, sub); err != nil {
			return err
		}

		user.Roles = roles.Parse(user.Roles).Add(roles.Dealer).String()
		email, username = user.Email, user.Username
		return s.Users.WithTx(tx).Save(ctx, user)
	})
	if err != nil {
		return nil, err
	}

	s.Mail.SubscriptionConfirmed(ctx, email, username, plan.Name, sub.StartDate, sub.ExpiryDate)
	return sub, nil
}

// Cancel deactivates a subscription. When it was the user's last active one
// the dealer role is withdrawn and the storefront removed with its listings.
func (s *SubscriptionService) Cancel(ctx context.Context, userID, subID uint, callerRoles roles.Set) error {
	var email, username, planName string

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub, err := s.Subs.WithTx(tx).UserSubscriptionByID(ctx, subID)
		if err != nil {
			return fromDB(err)
		}
		if sub.UserID != userID && !callerRoles.Has(roles.Admin) {
			return ErrNotAuthorized
		}
		if !sub.Active {
			return fmt.Errorf("%w: subscription is not active", ErrConflict)
		}

		sub.Active = false
		sub.AutoRenew = false
		if err := s.Subs.WithTx(tx).SaveUserSubscription(ctx, sub); err != nil {
			return err
		}

		if plan, err := s.Subs.WithTx(tx).PlanByID(ctx, sub.SubscriptionID); err == nil {
			planName = plan.Name
		}
		user, err := s.Users.WithTx(tx).LockByID(ctx, sub.UserID)
		if err != nil {
			return fromDB(err)
		}
		email, username = user.Email, user.Username

		return s.demoteIfLapsed(ctx, tx, user)
	})
	if err != nil {
		return err
	}

	s.Mail.SubscriptionCancelled(ctx, email, username, planName)
	return nil
}

func (s *SubscriptionService) SetAutoRenew(ctx context.Context, userID, subID uint, on bool) (*models.UserSubscription, error) {
	sub, err := s.Subs.UserSubscriptionByID(ctx, subID)
	if err != nil {
		return nil, fromDB(err)
	}
	if sub.UserID != userID {
		return nil, ErrNotAuthorized
	}
	if !sub.Active {
		return nil, fmt.Errorf("%w: subscription is not active", ErrConflict)
	}
	sub.AutoRenew = on
	if err := s.Subs.SaveUserSubscription(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *SubscriptionService) ForUser(ctx context.Context, userID uint) ([]models.UserSubscription, error) {
	return s.Subs.ByUser(ctx, userID)
}

func (s *SubscriptionService) ActiveForUser(ctx context.Context, userID uint) ([]models.UserSubscription, error) {
	return s.Subs.ActiveByUser(ctx, userID)
}

// demoteIfLapsed withdraws the dealer role and removes the storefront once
// the user has no active subscription left. Caller holds the user row lock.
func (s *SubscriptionService) demoteIfLapsed(ctx context.Context, tx *gorm.DB, user *models.User) error {
	var n int64
	if err := tx.Model(&models.UserSubscription{}).
		Where("user_id = ? AND active = ?", user.ID, true).
		Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	set := roles.Parse(user.Roles)
	if set.Has(roles.Dealer) {
		set.Remove(roles.Dealer)
		set.Add(roles.User)
		user.Roles = set.String()
		if err := s.Users.WithTx(tx).Save(ctx, user); err != nil {
			return err
		}
	}

	dealer, err := s.Dealers.WithTx(tx).ByOwner(ctx, user.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	return s.Dealers.WithTx(tx).DeleteCascade(ctx, dealer.ID)
}

// Sweep settles every active subscription past its expiry: auto-renewing
// ones are extended by a month from their stored expiry, the rest are
// deactivated and their owners demoted. Anchoring at the stored expiry makes
// a repeated sweep in the same period a no-op. Rows are locked for the pass,
// so concurrent sweeps serialize.
func (s *SubscriptionService) Sweep(ctx context.Context, now time.Time) (renewed, lapsed int, err error) {
	type lapse struct {
		email, username, plan string
	}
	var lapses []lapse

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		due, err := s.Subs.WithTx(tx).LockDueForRenewal(ctx, now)
		if err != nil {
			return err
		}
		for i := range due {
			sub := &due[i]
			if sub.AutoRenew {
				sub.Renew()
				if err := s.Subs.WithTx(tx).SaveUserSubscription(ctx, sub); err != nil {
					return err
				}
				renewed++
				continue
			}

			sub.Active = false
			if err := s.Subs.WithTx(tx).SaveUserSubscription(ctx, sub); err != nil {
				return err
			}
			lapsed++

			user, err := s.Users.WithTx(tx).LockByID(ctx, sub.UserID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					continue
				}
				return err
			}
			if err := s.demoteIfLapsed(ctx, tx, user); err != nil {
				return err
			}

			planName := ""
			if plan, err := s.Subs.WithTx(tx).PlanByID(ctx, sub.SubscriptionID); err == nil {
				planName = plan.Name
			}
			lapses = append(lapses, lapse{email: user.Email, username: user.Username, plan: planName})
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	for _, l := range lapses {
		s.Mail.SubscriptionCancelled(ctx, l.email, l.username, l.plan)
	}
	if renewed > 0 || lapsed > 0 {
		logging.FromContext(ctx).Info("subscription_sweep", "renewed", renewed, "lapsed", lapsed)
	}
	return renewed, lapsed, nil
}

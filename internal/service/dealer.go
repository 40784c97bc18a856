package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/fcfmotors/marketplace/internal/models"
	"github.com/fcfmotors/marketplace/internal/repo"
	"github.com/fcfmotors/marketplace/internal/roles"
)

type DealerService struct {
	DB      *gorm.DB
	Dealers *repo.DealerRepo
	Users   *repo.UserRepo
}

func NewDealerService(db *gorm.DB, dealers *repo.DealerRepo, users *repo.UserRepo) *DealerService {
	return &DealerService{DB: db, Dealers: dealers, Users: users}
}

// DealerForm carries the editable storefront fields.
type DealerForm struct {
	Name        string
	Description string
	Address     string
	Phone       string
	Email       string
	ImagePath   string
	Latitude    float64
	Longitude   float64
}

// Save creates or updates the caller's storefront. The intent is explicit:
// an update against no storefront fails with not found, a create against an
// existing one fails with conflict. The unique index on owner_id backstops
// concurrent creates.
func (s *DealerService) Save(ctx context.Context, ownerID uint, form DealerForm, update bool) (*models.Dealer, error) {
	if form.Name == "" {
		return nil, fmt.Errorf("%w: dealer name is required", ErrInvalid)
	}

	existing, err := s.Dealers.ByOwner(ctx, ownerID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if update {
		if existing == nil {
			return nil, fmt.Errorf("%w: no storefront to update", ErrNotFound)
		}
		existing.Name = form.Name
		existing.Description = form.Description
		existing.Address = form.Address
		existing.Phone = form.Phone
		existing.Email = form.Email
		existing.Latitude = form.Latitude
		existing.Longitude = form.Longitude
		if form.ImagePath != "" {
			existing.ImagePath = form.ImagePath
		}
		if err := s.Dealers.Save(ctx, existing); err != nil {
			return nil, err
		}
		return existing, nil
	}

	if existing != nil {
		return nil, fmt.Errorf("%w: storefront already exists", ErrConflict)
	}
	dealer := &models.Dealer{
		Name:        form.Name,
		Description: form.Description,
		Address:     form.Address,
		Phone:       form.Phone,
		Email:       form.Email,
		ImagePath:   form.ImagePath,
		Latitude:    form.Latitude,
		Longitude:   form.Longitude,
		OwnerID:     ownerID,
	}
	if err := s.Dealers.Create(ctx, dealer); err != nil {
		if errors.Is(fromDB(err), ErrConflict) {
			return nil, fmt.Errorf("%w: storefront already exists", ErrConflict)
		}
		return nil, err
	}
	return dealer, nil
}

func (s *DealerService) ByID(ctx context.Context, id uint) (*models.Dealer, error) {
	dealer, err := s.Dealers.ByID(ctx, id)
	if err != nil {
		return nil, fromDB(err)
	}
	return dealer, nil
}

func (s *DealerService) ByOwner(ctx context.Context, ownerID uint) (*models.Dealer, error) {
	dealer, err := s.Dealers.ByOwner(ctx, ownerID)
	if err != nil {
		return nil, fromDB(err)
	}
	return dealer, nil
}

func (s *DealerService) List(ctx context.Context) ([]models.Dealer, error) {
	return s.Dealers.List(ctx)
}

// Delete removes a storefront. Owners may delete their own, admins any.
func (s *DealerService) Delete(ctx context.Context, dealerID, callerID uint, callerRoles roles.Set) error {
	dealer, err := s.Dealers.ByID(ctx, dealerID)
	if err != nil {
		return fromDB(err)
	}
	if dealer.OwnerID != callerID && !callerRoles.Has(roles.Admin) {
		return ErrNotAuthorized
	}
	return fromDB(s.Dealers.DeleteCascade(ctx, dealerID))
}

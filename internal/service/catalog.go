package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/fcfmotors/marketplace/internal/logging"
	"github.com/fcfmotors/marketplace/internal/models"
	"github.com/fcfmotors/marketplace/internal/repo"
	"github.com/fcfmotors/marketplace/internal/roles"
	"github.com/fcfmotors/marketplace/internal/service/search"
)

const placeholderImage = "/static/img/placeholder_car.png"

type CatalogService struct {
	DB       *gorm.DB
	Products *repo.ProductRepo
	Dealers  *repo.DealerRepo
	Users    *repo.UserRepo
	Subs     *repo.SubscriptionRepo
	Search   *search.Index
}

func NewCatalogService(db *gorm.DB, products *repo.ProductRepo, dealers *repo.DealerRepo, users *repo.UserRepo, subs *repo.SubscriptionRepo, idx *search.Index) *CatalogService {
	return &CatalogService{DB: db, Products: products, Dealers: dealers, Users: users, Subs: subs, Search: idx}
}

// ProductForm carries the editable listing fields.
type ProductForm struct {
	Name         string
	Description  string
	Price        float64
	ImageURL     string
	Category     string
	Brand        string
	Model        string
	Mileage      int
	Year         int
	FuelType     string
	Transmission string
}

// Add creates a listing for the seller. The seller type is derived from
// storefront ownership, never taken from the request. Private sellers are
// limited to a single listing; the seller row is locked for the check so two
// concurrent adds cannot both pass it.
func (s *CatalogService) Add(ctx context.Context, sellerID uint, form ProductForm) (*models.Product, error) {
	if form.Name == "" {
		return nil, fmt.Errorf("%w: listing name is required", ErrInvalid)
	}
	if form.Price <= 0 {
		return nil, fmt.Errorf("%w: price must be positive", ErrInvalid)
	}

	product := &models.Product{
		Name:         form.Name,
		Description:  form.Description,
		Price:        form.Price,
		ImageURL:     form.ImageURL,
		Category:     form.Category,
		Brand:        form.Brand,
		Model:        form.Model,
		Mileage:      form.Mileage,
		Year:         form.Year,
		FuelType:     form.FuelType,
		Transmission: form.Transmission,
		SellerID:     sellerID,
	}
	if product.ImageURL == "" {
		product.ImageURL = placeholderImage
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.Users.WithTx(tx).LockByID(ctx, sellerID); err != nil {
			return fromDB(err)
		}

		_, err := s.Dealers.WithTx(tx).ByOwner(ctx, sellerID)
		switch {
		case err == nil:
			product.SellerType = models.SellerTypeDealer
		case errors.Is(err, gorm.ErrRecordNotFound):
			product.SellerType = models.SellerTypePrivate
		default:
			return err
		}

		if product.SellerType == models.SellerTypePrivate {
			n, err := s.Products.WithTx(tx).CountBySeller(ctx, sellerID)
			if err != nil {
				return err
			}
			if n >= 1 {
				return fmt.Errorf("%w: private sellers may have only one listing", ErrConflict)
			}
		}
		return s.Products.WithTx(tx).Create(ctx, product)
	})
	if err != nil {
		return nil, err
	}

	s.index(ctx, product)
	return product, nil
}

func (s *CatalogService) Update(ctx context.Context, productID, callerID uint, callerRoles roles.Set, form ProductForm) (*models.Product, error) {
	product, err := s.Products.ByID(ctx, productID)
	if err != nil {
		return nil, fromDB(err)
	}
	if product.SellerID != callerID && !callerRoles.Has(roles.Admin) {
		return nil, ErrNotAuthorized
	}
	if form.Name == "" {
		return nil, fmt.Errorf("%w: listing name is required", ErrInvalid)
	}
	if form.Price <= 0 {
		return nil, fmt.Errorf("%w: price must be positive", ErrInvalid)
	}

	product.Name = form.Name
	product.Description = form.Description
	product.Price = form.Price
	product.Category = form.Category
	product.Brand = form.Brand
	product.Model = form.Model
	product.Mileage = form.Mileage
	product.Year = form.Year
	product.FuelType = form.FuelType
	product.Transmission = form.Transmission
	if form.ImageURL != "" {
		product.ImageURL = form.ImageURL
	}
	if err := s.Products.Save(ctx, product); err != nil {
		return nil, err
	}

	s.index(ctx, product)
	return product, nil
}

func (s *CatalogService) Delete(ctx context.Context, productID, callerID uint, callerRoles roles.Set) error {
	product, err := s.Products.ByID(ctx, productID)
	if err != nil {
		return fromDB(err)
	}
	if product.SellerID != callerID && !callerRoles.Has(roles.Admin) {
		return ErrNotAuthorized
	}
	if err := s.Products.DeleteCascade(ctx, productID); err != nil {
		return fromDB(err)
	}

	if err := s.Search.Remove(ctx, productID); err != nil {
		logging.FromContext(ctx).Warn("search_remove_failed", "productID", productID, "error", err)
	}
	return nil
}

func (s *CatalogService) ByID(ctx context.Context, id uint) (*models.Product, error) {
	product, err := s.Products.ByID(ctx, id)
	if err != nil {
		return nil, fromDB(err)
	}
	return product, nil
}

func (s *CatalogService) BySeller(ctx context.Context, sellerID uint) ([]models.Product, error) {
	return s.Products.BySeller(ctx, sellerID)
}

func (s *CatalogService) Find(ctx context.Context, f repo.Filter) (int64, []models.Product, error) {
	return s.Products.Find(ctx, f)
}

func (s *CatalogService) Brands(ctx context.Context) ([]string, error) {
	return s.Products.Brands(ctx)
}

func (s *CatalogService) Categories(ctx context.Context) ([]string, error) {
	return s.Products.Categories(ctx)
}

// SetFeatured promotes or demotes a listing. Promotion requires an active
// subscription whose plan still has featured slots left. Admins bypass the
// plan check.
func (s *CatalogService) SetFeatured(ctx context.Context, productID, callerID uint, callerRoles roles.Set, featured bool, until *time.Time) (*models.Product, error) {
	product, err := s.Products.ByID(ctx, productID)
	if err != nil {
		return nil, fromDB(err)
	}
	if product.SellerID != callerID && !callerRoles.Has(roles.Admin) {
		return nil, ErrNotAuthorized
	}

	if !featured {
		product.Featured = false
		product.FeaturedUntil = nil
		if err := s.Products.Save(ctx, product); err != nil {
			return nil, err
		}
		s.index(ctx, product)
		return product, nil
	}

	now := time.Now()
	if !callerRoles.Has(roles.Admin) {
		limit, err := s.featuredLimit(ctx, product.SellerID)
		if err != nil {
			return nil, err
		}
		if limit == 0 {
			return nil, fmt.Errorf("%w: an active subscription is required to feature listings", ErrNotAuthorized)
		}
		if limit > 0 && !product.FeaturedActive(now) {
			n, err := s.Products.CountFeaturedBySeller(ctx, product.SellerID, now)
			if err != nil {
				return nil, err
			}
			if n >= limit {
				return nil, fmt.Errorf("%w: featured listing limit of %d reached", ErrConflict, limit)
			}
		}
	}

	product.Featured = true
	product.FeaturedUntil = until
	if err := s.Products.Save(ctx, product); err != nil {
		return nil, err
	}
	s.index(ctx, product)
	return product, nil
}

// featuredLimit resolves the seller's featured slot allowance: 0 for no
// active subscription, -1 for unlimited, otherwise the plan's cap.
func (s *CatalogService) featuredLimit(ctx context.Context, sellerID uint) (int64, error) {
	subs, err := s.Subs.ActiveByUser(ctx, sellerID)
	if err != nil {
		return 0, err
	}
	if len(subs) == 0 {
		return 0, nil
	}
	limit := int64(0)
	for _, sub := range subs {
		plan, err := s.Subs.PlanByID(ctx, sub.SubscriptionID)
		if err != nil {
			if errors.Is(fromDB(err), ErrNotFound) {
				continue
			}
			return 0, err
		}
		if plan.MaxFeaturedCars <= 0 {
			return -1, nil
		}
		if int64(plan.MaxFeaturedCars) > limit {
			limit = int64(plan.MaxFeaturedCars)
		}
	}
	return limit, nil
}

func (s *CatalogService) index(ctx context.Context, p *models.Product) {
	if err := s.Search.Put(ctx, p); err != nil {
		logging.FromContext(ctx).Warn("search_index_failed", "productID", p.ID, "error", err)
	}
}

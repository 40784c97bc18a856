package repo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/fcfmotors/marketplace/internal/models"
)

type ProductRepo struct {
	DB *gorm.DB
}

func NewProductRepo(db *gorm.DB) *ProductRepo {
	return &ProductRepo{DB: db}
}

func (r *ProductRepo) WithTx(tx *gorm.DB) *ProductRepo {
	return &ProductRepo{DB: tx}
}

func (r *ProductRepo) Create(ctx context.Context, p *models.Product) error {
	return r.DB.WithContext(ctx).Create(p).Error
}

func (r *ProductRepo) Save(ctx context.Context, p *models.Product) error {
	return r.DB.WithContext(ctx).Save(p).Error
}

func (r *ProductRepo) ByID(ctx context.Context, id uint) (*models.Product, error) {
	var p models.Product
	if err := r.DB.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProductRepo) BySeller(ctx context.Context, sellerID uint) ([]models.Product, error) {
	var products []models.Product
	if err := r.DB.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("id ASC").
		Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *ProductRepo) CountBySeller(ctx context.Context, sellerID uint) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Product{}).
		Where("seller_id = ?", sellerID).
		Count(&n).Error
	return n, err
}

// CountFeaturedBySeller counts listings whose promotion has not lapsed yet.
func (r *ProductRepo) CountFeaturedBySeller(ctx context.Context, sellerID uint, now time.Time) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Product{}).
		Where("seller_id = ? AND featured = ? AND (featured_until IS NULL OR featured_until > ?)",
			sellerID, true, now).
		Count(&n).Error
	return n, err
}

// Filter is the catalog query form. Nil fields do not constrain the result.
type Filter struct {
	Category     *string
	Brand        *string
	Model        *string
	FuelType     *string
	Transmission *string
	SellerType   *string
	MinPrice     *float64
	MaxPrice     *float64
	MinYear      *int
	MaxYear      *int
	MinMileage   *int
	MaxMileage   *int
	FeaturedOnly bool
	Query        string
	Offset       int
	Limit        int
}

func (r *ProductRepo) Find(ctx context.Context, f Filter) (int64, []models.Product, error) {
	q := r.DB.WithContext(ctx).Model(&models.Product{})

	if f.Category != nil {
		q = q.Where("category = ?", *f.Category)
	}
	if f.Brand != nil {
		q = q.Where("brand = ?", *f.Brand)
	}
	if f.Model != nil {
		q = q.Where("model = ?", *f.Model)
	}
	if f.FuelType != nil {
		q = q.Where("fuel_type = ?", *f.FuelType)
	}
	if f.Transmission != nil {
		q = q.Where("transmission = ?", *f.Transmission)
	}
	if f.SellerType != nil {
		q = q.Where("seller_type = ?", *f.SellerType)
	}
	if f.MinPrice != nil {
		q = q.Where("price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q = q.Where("price <= ?", *f.MaxPrice)
	}
	if f.MinYear != nil {
		q = q.Where("year >= ?", *f.MinYear)
	}
	if f.MaxYear != nil {
		q = q.Where("year <= ?", *f.MaxYear)
	}
	if f.MinMileage != nil {
		q = q.Where("mileage >= ?", *f.MinMileage)
	}
	if f.MaxMileage != nil {
		q = q.Where("mileage <= ?", *f.MaxMileage)
	}
	if f.FeaturedOnly {
		q = q.Where("featured = ?", true)
	}
	if f.Query != "" {
		like := "%" + strings.ToLower(f.Query) + "%"
		q = q.Where(
			"LOWER(name) LIKE ? OR LOWER(description) LIKE ? OR LOWER(brand) LIKE ? OR LOWER(model) LIKE ?",
			like, like, like, like,
		)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return 0, nil, err
	}

	if f.Limit > 0 {
		q = q.Offset(f.Offset).Limit(f.Limit)
	}

	var products []models.Product
	if err := q.Order("id ASC").Find(&products).Error; err != nil {
		return 0, nil, err
	}
	return total, products, nil
}

func (r *ProductRepo) Brands(ctx context.Context) ([]string, error) {
	var brands []string
	err := r.DB.WithContext(ctx).Model(&models.Product{}).
		Distinct("brand").
		Where("brand <> ''").
		Order("brand ASC").
		Pluck("brand", &brands).Error
	return brands, err
}

func (r *ProductRepo) Categories(ctx context.Context) ([]string, error) {
	var categories []string
	err := r.DB.WithContext(ctx).Model(&models.Product{}).
		Distinct("category").
		Where("category <> ''").
		Order("category ASC").
		Pluck("category", &categories).Error
	return categories, err
}

// DeleteCascade removes the listing plus its images, quote requests and any
// cart references in one transaction.
func (r *ProductRepo) DeleteCascade(ctx context.Context, productID uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", productID).Delete(&models.Image{}).Error; err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", productID).Delete(&models.QuoteRequest{}).Error; err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", productID).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}

		res := tx.Delete(&models.Product{}, productID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		var left int64
		if err := tx.Model(&models.Product{}).Where("id = ?", productID).Count(&left).Error; err != nil {
			return err
		}
		if left != 0 {
			return fmt.Errorf("listing %d still present after delete", productID)
		}
		return nil
	})
}

package repo

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/fcfmotors/marketplace/internal/models"
)

type DealerRepo struct {
	DB *gorm.DB
}

func NewDealerRepo(db *gorm.DB) *DealerRepo {
	return &DealerRepo{DB: db}
}

func (r *DealerRepo) WithTx(tx *gorm.DB) *DealerRepo {
	return &DealerRepo{DB: tx}
}

func (r *DealerRepo) Create(ctx context.Context, d *models.Dealer) error {
	return r.DB.WithContext(ctx).Create(d).Error
}

func (r *DealerRepo) Save(ctx context.Context, d *models.Dealer) error {
	return r.DB.WithContext(ctx).Save(d).Error
}

func (r *DealerRepo) ByID(ctx context.Context, id uint) (*models.Dealer, error) {
	var d models.Dealer
	if err := r.DB.WithContext(ctx).First(&d, id).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *DealerRepo) ByOwner(ctx context.Context, ownerID uint) (*models.Dealer, error) {
	var d models.Dealer
	if err := r.DB.WithContext(ctx).Where("owner_id = ?", ownerID).First(&d).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *DealerRepo) List(ctx context.Context) ([]models.Dealer, error) {
	var dealers []models.Dealer
	if err := r.DB.WithContext(ctx).Order("id ASC").Find(&dealers).Error; err != nil {
		return nil, err
	}
	return dealers, nil
}

// DeleteCascade removes the dealer together with every listing it owns,
// those listings' images and quote requests, all in one transaction. The
// final existence check turns a silently ineffective delete into an error.
func (r *DealerRepo) DeleteCascade(ctx context.Context, dealerID uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var d models.Dealer
		if err := tx.First(&d, dealerID).Error; err != nil {
			return err
		}

		// Every listing the owner holds goes with the storefront, including
		// ones created before it opened and still typed as private.
		var productIDs []uint
		if err := tx.Model(&models.Product{}).
			Where("seller_id = ?", d.OwnerID).
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

		if err := tx.Where("dealer_id = ?", dealerID).Delete(&models.QuoteRequest{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Dealer{}, dealerID).Error; err != nil {
			return err
		}

		var left int64
		if err := tx.Model(&models.Dealer{}).Where("id = ?", dealerID).Count(&left).Error; err != nil {
			return err
		}
		if left != 0 {
			return fmt.Errorf("dealer %d still present after delete", dealerID)
		}
		return nil
	})
}

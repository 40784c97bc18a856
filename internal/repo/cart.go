package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/fcfmotors/marketplace/internal/models"
)

type CartRepo struct {
	DB *gorm.DB
}

func NewCartRepo(db *gorm.DB) *CartRepo {
	return &CartRepo{DB: db}
}

func (r *CartRepo) WithTx(tx *gorm.DB) *CartRepo {
	return &CartRepo{DB: tx}
}

func (r *CartRepo) Create(ctx context.Context, item *models.CartItem) error {
	return r.DB.WithContext(ctx).Create(item).Error
}

func (r *CartRepo) Save(ctx context.Context, item *models.CartItem) error {
	return r.DB.WithContext(ctx).Save(item).Error
}

func (r *CartRepo) ByID(ctx context.Context, id uint) (*models.CartItem, error) {
	var item models.CartItem
	if err := r.DB.WithContext(ctx).First(&item, id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *CartRepo) ByUser(ctx context.Context, userID uint, status string) ([]models.CartItem, error) {
	var items []models.CartItem
	if err := r.DB.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, status).
		Order("id ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *CartRepo) Delete(ctx context.Context, id uint) error {
	res := r.DB.WithContext(ctx).Delete(&models.CartItem{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ClearActive drops the active items only; saved-for-later rows survive.
func (r *CartRepo) ClearActive(ctx context.Context, userID uint) error {
	return r.DB.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, models.CartStatusActive).
		Delete(&models.CartItem{}).Error
}

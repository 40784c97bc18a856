package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/fcfmotors/marketplace/internal/models"
)

type PaymentRepo struct {
	DB *gorm.DB
}

func NewPaymentRepo(db *gorm.DB) *PaymentRepo {
	return &PaymentRepo{DB: db}
}

func (r *PaymentRepo) WithTx(tx *gorm.DB) *PaymentRepo {
	return &PaymentRepo{DB: tx}
}

func (r *PaymentRepo) Create(ctx context.Context, p *models.Payment) error {
	return r.DB.WithContext(ctx).Create(p).Error
}

func (r *PaymentRepo) ByUser(ctx context.Context, userID uint) ([]models.Payment, error) {
	var payments []models.Payment
	if err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

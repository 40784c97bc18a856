package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/fcfmotors/marketplace/internal/models"
)

type QuoteRepo struct {
	DB *gorm.DB
}

func NewQuoteRepo(db *gorm.DB) *QuoteRepo {
	return &QuoteRepo{DB: db}
}

func (r *QuoteRepo) WithTx(tx *gorm.DB) *QuoteRepo {
	return &QuoteRepo{DB: tx}
}

func (r *QuoteRepo) Create(ctx context.Context, q *models.QuoteRequest) error {
	return r.DB.WithContext(ctx).Create(q).Error
}

func (r *QuoteRepo) Save(ctx context.Context, q *models.QuoteRequest) error {
	return r.DB.WithContext(ctx).Save(q).Error
}

func (r *QuoteRepo) ByID(ctx context.Context, id uint) (*models.QuoteRequest, error) {
	var q models.QuoteRequest
	if err := r.DB.WithContext(ctx).First(&q, id).Error; err != nil {
		return nil, err
	}
	return &q, nil
}

// MessagesForUser returns the private message threads the user takes part in,
// matched by sender id or by recipient address. Anonymous senders have no
// user id, so recipients are matched on email.
func (r *QuoteRepo) MessagesForUser(ctx context.Context, userID uint, email string) ([]models.QuoteRequest, error) {
	var quotes []models.QuoteRequest
	if err := r.DB.WithContext(ctx).
		Where("request_type = ? AND (user_id = ? OR recipient_email = ?)",
			models.QuoteTypePrivate, userID, email).
		Order("request_date DESC").
		Find(&quotes).Error; err != nil {
		return nil, err
	}
	return quotes, nil
}

func (r *QuoteRepo) QuotesForDealer(ctx context.Context, dealerID uint) ([]models.QuoteRequest, error) {
	var quotes []models.QuoteRequest
	if err := r.DB.WithContext(ctx).
		Where("request_type = ? AND dealer_id = ?", models.QuoteTypeDealer, dealerID).
		Order("request_date DESC").
		Find(&quotes).Error; err != nil {
		return nil, err
	}
	return quotes, nil
}

func (r *QuoteRepo) QuotesForSender(ctx context.Context, userID uint) ([]models.QuoteRequest, error) {
	var quotes []models.QuoteRequest
	if err := r.DB.WithContext(ctx).
		Where("request_type = ? AND user_id = ?", models.QuoteTypeDealer, userID).
		Order("request_date DESC").
		Find(&quotes).Error; err != nil {
		return nil, err
	}
	return quotes, nil
}

func (r *QuoteRepo) Delete(ctx context.Context, id uint) error {
	res := r.DB.WithContext(ctx).Delete(&models.QuoteRequest{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

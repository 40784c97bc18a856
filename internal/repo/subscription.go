package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/fcfmotors/marketplace/internal/models"
)

type SubscriptionRepo struct {
	DB *gorm.DB
}

func NewSubscriptionRepo(db *gorm.DB) *SubscriptionRepo {
	return &SubscriptionRepo{DB: db}
}

func (r *SubscriptionRepo) WithTx(tx *gorm.DB) *SubscriptionRepo {
	return &SubscriptionRepo{DB: tx}
}

func (r *SubscriptionRepo) CreatePlan(ctx context.Context, s *models.Subscription) error {
	return r.DB.WithContext(ctx).Create(s).Error
}

func (r *SubscriptionRepo) SavePlan(ctx context.Context, s *models.Subscription) error {
	return r.DB.WithContext(ctx).Save(s).Error
}

func (r *SubscriptionRepo) PlanByID(ctx context.Context, id uint) (*models.Subscription, error) {
	var s models.Subscription
	if err := r.DB.WithContext(ctx).First(&s, id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SubscriptionRepo) Plans(ctx context.Context) ([]models.Subscription, error) {
	var plans []models.Subscription
	if err := r.DB.WithContext(ctx).Order("id ASC").Find(&plans).Error; err != nil {
		return nil, err
	}
	return plans, nil
}

func (r *SubscriptionRepo) DeletePlan(ctx context.Context, id uint) error {
	res := r.DB.WithContext(ctx).Delete(&models.Subscription{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *SubscriptionRepo) CreateUserSubscription(ctx context.Context, s *models.UserSubscription) error {
	return r.DB.WithContext(ctx).Create(s).Error
}

func (r *SubscriptionRepo) SaveUserSubscription(ctx context.Context, s *models.UserSubscription) error {
	return r.DB.WithContext(ctx).Save(s).Error
}

func (r *SubscriptionRepo) UserSubscriptionByID(ctx context.Context, id uint) (*models.UserSubscription, error) {
	var s models.UserSubscription
	if err := r.DB.WithContext(ctx).First(&s, id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SubscriptionRepo) ByUser(ctx context.Context, userID uint) ([]models.UserSubscription, error) {
	var subs []models.UserSubscription
	if err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}

func (r *SubscriptionRepo) ActiveByUser(ctx context.Context, userID uint) ([]models.UserSubscription, error) {
	var subs []models.UserSubscription
	if err := r.DB.WithContext(ctx).
		Where("user_id = ? AND active = ?", userID, true).
		Order("id ASC").
		Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}

// LockDueForRenewal picks the active subscriptions past their expiry under
// FOR UPDATE so concurrent sweeps cannot double-process a row.
func (r *SubscriptionRepo) LockDueForRenewal(ctx context.Context, now time.Time) ([]models.UserSubscription, error) {
	var subs []models.UserSubscription
	if err := lockForUpdate(r.DB.WithContext(ctx)).
		Where("active = ? AND expiry_date < ?", true, now).
		Order("id ASC").
		Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}

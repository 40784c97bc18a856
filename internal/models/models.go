package models

import (
	"time"
)

const (
	SellerTypePrivate = "PRIVATE"
	SellerTypeDealer  = "DEALER"

	QuoteStatusPending   = "PENDING"
	QuoteStatusResponded = "RESPONDED"

	QuoteTypeDealer  = "DEALER_QUOTE"
	QuoteTypePrivate = "PRIVATE"

	CartStatusActive = "ACTIVE"
	CartStatusSaved  = "SAVED"
)

type User struct {
	ID               uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	Username         string     `gorm:"uniqueIndex;not null"     json:"username"`
	Email            string     `gorm:"uniqueIndex;not null"     json:"email"`
	PasswordHash     string     `gorm:"not null"                 json:"-"`
	Roles            string     `gorm:"not null"                 json:"roles"`
	ResetToken       *string    `gorm:"index"                    json:"-"`
	ResetTokenExpiry *time.Time `json:"-"`
	SubscriptionID   *uint      `json:"subscription_id"`
}

type Dealer struct {
	ID          uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string  `gorm:"not null"                 json:"name"`
	Description string  `json:"description"`
	Address     string  `json:"address"`
	Phone       string  `json:"phone"`
	Email       string  `json:"email"`
	ImagePath   string  `json:"image_path"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	OwnerID     uint    `gorm:"uniqueIndex;not null"     json:"owner_id"`
}

type Product struct {
	ID            uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	Name          string     `gorm:"not null"                 json:"name"`
	Description   string     `json:"description"`
	Price         float64    `gorm:"not null"                 json:"price"`
	ImageURL      string     `json:"image_url"`
	Category      string     `gorm:"index"                    json:"category"`
	Brand         string     `gorm:"index"                    json:"brand"`
	Model         string     `json:"model"`
	Mileage       int        `json:"mileage"`
	Year          int        `json:"year"`
	FuelType      string     `json:"fuel_type"`
	Transmission  string     `json:"transmission"`
	SellerType    string     `gorm:"not null"                 json:"seller_type"`
	SellerID      uint       `gorm:"index;not null"           json:"seller_id"`
	Featured      bool       `gorm:"default:false"            json:"featured"`
	FeaturedUntil *time.Time `json:"featured_until"`
}

// FeaturedActive reports whether the listing is currently promoted. The
// deadline itself is exclusive: at now == FeaturedUntil the promotion is over.
func (p *Product) FeaturedActive(now time.Time) bool {
	return p.Featured && (p.FeaturedUntil == nil || now.Before(*p.FeaturedUntil))
}

type Image struct {
	ID          uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID   uint   `gorm:"index;not null"           json:"product_id"`
	Path        string `gorm:"not null"                 json:"path"`
	ContentType string `json:"content_type"`
}

// CartItem references either a listing or a subscription plan, never both.
type CartItem struct {
	ID             uint   `gorm:"primaryKey;autoIncrement"    json:"id"`
	UserID         uint   `gorm:"index;not null"              json:"user_id"`
	ProductID      *uint  `json:"product_id"`
	SubscriptionID *uint  `json:"subscription_id"`
	Quantity       int    `gorm:"default:1;check:quantity>0"  json:"quantity"`
	Status         string `gorm:"not null;default:ACTIVE"     json:"status"`
}

type QuoteRequest struct {
	ID              uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID       uint      `gorm:"index;not null"           json:"product_id"`
	UserID          *uint     `gorm:"index"                    json:"user_id"`
	DealerID        *uint     `gorm:"index"                    json:"dealer_id"`
	RequestType     string    `gorm:"not null"                 json:"request_type"`
	Status          string    `gorm:"not null"                 json:"status"`
	UserEmail       string    `gorm:"not null"                 json:"user_email"`
	RecipientEmail  string    `gorm:"index;not null"           json:"recipient_email"`
	Message         string    `json:"message"`
	ResponseMessage string    `json:"response_message"`
	RequestDate     time.Time `json:"request_date"`
}

// Subscription is a purchasable plan, not a user's membership; see
// UserSubscription for the per-user instance.
type Subscription struct {
	ID              uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	Name            string     `gorm:"not null"                 json:"name"`
	Description     string     `json:"description"`
	Price           float64    `gorm:"not null"                 json:"price"`
	DurationDays    int        `gorm:"not null"                 json:"duration_days"`
	MaxFeaturedCars int        `json:"max_featured_cars"`
	Discount        *float64   `json:"discount"`
	DiscountExpiry  *time.Time `json:"discount_expiry"`
}

// PriceAt returns the plan price with the discount applied while the
// discount window is still open.
func (s *Subscription) PriceAt(now time.Time) float64 {
	if s.Discount != nil && s.DiscountExpiry != nil && now.Before(*s.DiscountExpiry) {
		return s.Price * (1 - *s.Discount/100)
	}
	return s.Price
}

type UserSubscription struct {
	ID             uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID         uint      `gorm:"index;not null"           json:"user_id"`
	SubscriptionID uint      `gorm:"not null"                 json:"subscription_id"`
	StartDate      time.Time `json:"start_date"`
	ExpiryDate     time.Time `json:"expiry_date"`
	Active         bool      `gorm:"default:false"            json:"active"`
	AutoRenew      bool      `gorm:"default:false"            json:"auto_renew"`
}

// IsExpired reports a definitive lapse: past expiry with no auto-renewal.
// An auto-renewing subscription past its expiry is awaiting renewal, not expired.
func (s *UserSubscription) IsExpired(now time.Time) bool {
	return now.After(s.ExpiryDate) && !s.AutoRenew
}

// Renew extends the expiry by one month and reactivates the subscription.
// No-op unless auto-renew is on. The extension is anchored at the stored
// expiry date, so applying it again in the same period changes nothing more.
func (s *UserSubscription) Renew() {
	if !s.AutoRenew {
		return
	}
	s.ExpiryDate = s.ExpiryDate.AddDate(0, 1, 0)
	s.Active = true
}

type RefreshToken struct {
	ID        uint      `gorm:"primaryKey"          json:"id"`
	Token     string    `gorm:"uniqueIndex;not null" json:"token"`
	UserID    uint      `gorm:"index;not null"      json:"user_id"`
	ExpiresAt time.Time `gorm:"not null"            json:"expires_at"`
	Revoked   bool      `gorm:"default:false"       json:"revoked"`
}

type Payment struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID        uint      `gorm:"index;not null"           json:"user_id"`
	Amount        float64   `gorm:"not null"                 json:"amount"`
	TransactionID string    `gorm:"uniqueIndex;not null"     json:"transaction_id"`
	Status        string    `gorm:"not null"                 json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

// All enumerates every persisted entity for migration.
func All() []any {
	return []any{
		&User{}, &Dealer{}, &Product{}, &Image{}, &CartItem{},
		&QuoteRequest{}, &Subscription{}, &UserSubscription{},
		&RefreshToken{}, &Payment{},
	}
}

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fcfmotors/marketplace/internal/mail"
	"github.com/fcfmotors/marketplace/internal/models"
	"github.com/fcfmotors/marketplace/internal/repo"
	"github.com/fcfmotors/marketplace/internal/roles"
)

type CartService struct {
	DB       *gorm.DB
	Carts    *repo.CartRepo
	Products *repo.ProductRepo
	Subs     *repo.SubscriptionRepo
	Users    *repo.UserRepo
	Payments *repo.PaymentRepo
	Mail     *mail.Mailer
}

func NewCartService(db *gorm.DB, carts *repo.CartRepo, products *repo.ProductRepo, subs *repo.SubscriptionRepo, users *repo.UserRepo, payments *repo.PaymentRepo, mailer *mail.Mailer) *CartService {
	return &CartService{DB: db, Carts: carts, Products: products, Subs: subs, Users: users, Payments: payments, Mail: mailer}
}

// AddProduct puts a listing into the cart. Repeated adds create separate
// rows rather than bumping the quantity of an existing one.
func (s *CartService) AddProduct(ctx context.Context, userID, productID uint, quantity int) (*models.CartItem, error) {
	if _, err := s.Products.ByID(ctx, productID); err != nil {
		return nil, fromDB(err)
	}
	if quantity < 1 {
		quantity = 1
	}
	item := &models.CartItem{
		UserID:    userID,
		ProductID: &productID,
		Quantity:  quantity,
		Status:    models.CartStatusActive,
	}
	if err := s.Carts.Create(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *CartService) AddPlan(ctx context.Context, userID, planID uint) (*models.CartItem, error) {
	if _, err := s.Subs.PlanByID(ctx, planID); err != nil {
		return nil, fromDB(err)
	}
	item := &models.CartItem{
		UserID:         userID,
		SubscriptionID: &planID,
		Quantity:       1,
		Status:         models.CartStatusActive,
	}
	if err := s.Carts.Create(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *CartService) Items(ctx context.Context, userID uint) ([]models.CartItem, error) {
	return s.Carts.ByUser(ctx, userID, models.CartStatusActive)
}

func (s *CartService) Saved(ctx context.Context, userID uint) ([]models.CartItem, error) {
	return s.Carts.ByUser(ctx, userID, models.CartStatusSaved)
}

func (s *CartService) item(ctx context.Context, userID, itemID uint) (*models.CartItem, error) {
	item, err := s.Carts.ByID(ctx, itemID)
	if err != nil {
		return nil, fromDB(err)
	}
	if item.UserID != userID {
		return nil, ErrNotAuthorized
	}
	return item, nil
}

// UpdateQuantity sets a new quantity. Zero or less removes the row.
func (s *CartService) UpdateQuantity(ctx context.Context, userID, itemID uint, quantity int) error {
	item, err := s.item(ctx, userID, itemID)
	if err != nil {
		return err
	}
	if quantity <= 0 {
		return fromDB(s.Carts.Delete(ctx, item.ID))
	}
	item.Quantity = quantity
	return s.Carts.Save(ctx, item)
}

func (s *CartService) Remove(ctx context.Context, userID, itemID uint) error {
	item, err := s.item(ctx, userID, itemID)
	if err != nil {
		return err
	}
	return fromDB(s.Carts.Delete(ctx, item.ID))
}

// SaveForLater parks an item outside the active cart. The row persists, so
// it survives logout and checkout.
func (s *CartService) SaveForLater(ctx context.Context, userID, itemID uint) error {
	item, err := s.item(ctx, userID, itemID)
	if err != nil {
		return err
	}
	if item.Status != models.CartStatusActive {
		return fmt.Errorf("%w: item is not in the active cart", ErrConflict)
	}
	item.Status = models.CartStatusSaved
	return s.Carts.Save(ctx, item)
}

func (s *CartService) Restore(ctx context.Context, userID, itemID uint) error {
	item, err := s.item(ctx, userID, itemID)
	if err != nil {
		return err
	}
	if item.Status != models.CartStatusSaved {
		return fmt.Errorf("%w: item is not saved for later", ErrConflict)
	}
	item.Status = models.CartStatusActive
	return s.Carts.Save(ctx, item)
}

// Subtotal prices the active cart at the given instant. Plan discounts apply
// while their window is open.
func (s *CartService) Subtotal(ctx context.Context, userID uint, now time.Time) (float64, error) {
	items, err := s.Carts.ByUser(ctx, userID, models.CartStatusActive)
	if err != nil {
		return 0, err
	}
	var total float64
	for _, item := range items {
		price, err := unitPrice(ctx, s.Products, s.Subs, &item, now)
		if err != nil {
			return 0, err
		}
		total += price * float64(item.Quantity)
	}
	return total, nil
}

// unitPrice resolves what one unit of a cart item costs. The repositories
// are passed in so a caller inside a transaction prices against its own
// snapshot instead of the base connection.
func unitPrice(ctx context.Context, products *repo.ProductRepo, subs *repo.SubscriptionRepo, item *models.CartItem, now time.Time) (float64, error) {
	switch {
	case item.ProductID != nil:
		product, err := products.ByID(ctx, *item.ProductID)
		if err != nil {
			return 0, fromDB(err)
		}
		return product.Price, nil
	case item.SubscriptionID != nil:
		plan, err := subs.PlanByID(ctx, *item.SubscriptionID)
		if err != nil {
			return 0, fromDB(err)
		}
		return plan.PriceAt(now), nil
	default:
		return 0, fmt.Errorf("%w: cart item %d references nothing", ErrInvalid, item.ID)
	}
}

// PaymentHistory lists the user's settled checkouts.
func (s *CartService) PaymentHistory(ctx context.Context, userID uint) ([]models.Payment, error) {
	return s.Payments.ByUser(ctx, userID)
}

// Checkout settles the active cart in one transaction: a payment row is
// recorded, plan items become auto-renewing subscriptions granting the
// dealer role, and the active items are cleared. Saved-for-later rows are
// untouched.
// Confirmation mail goes out only after the transaction commits.
func (s *CartService) Checkout(ctx context.Context, userID uint) (*models.Payment, error) {
	now := time.Now()

	var payment *models.Payment
	var activated []models.Subscription
	var expiry []time.Time

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		products := s.Products.WithTx(tx)
		subs := s.Subs.WithTx(tx)

		user, err := s.Users.WithTx(tx).LockByID(ctx, userID)
		if err != nil {
			return fromDB(err)
		}
		items, err := s.Carts.WithTx(tx).ByUser(ctx, userID, models.CartStatusActive)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return fmt.Errorf("%w: cart is empty", ErrInvalid)
		}

		var total float64
		grantDealer := false
		for _, item := range items {
			price, err := unitPrice(ctx, products, subs, &item, now)
			if err != nil {
				return err
			}
			total += price * float64(item.Quantity)

			if item.SubscriptionID != nil {
				plan, err := subs.PlanByID(ctx, *item.SubscriptionID)
				if err != nil {
					return fromDB(err)
				}
				until := now.AddDate(0, 0, plan.DurationDays)
				sub := &models.UserSubscription{
					UserID:         userID,
					SubscriptionID: plan.ID,
					StartDate:      now,
					ExpiryDate:     until,
					Active:         true,
					AutoRenew:      true,
				}
				if err := subs.CreateUserSubscription(ctx, sub); err != nil {
					return err
				}
				grantDealer = true
				activated = append(activated, *plan)
				expiry = append(expiry, until)
			}
		}

		payment = &models.Payment{
			UserID:        userID,
			Amount:        total,
			TransactionID: uuid.NewString(),
			Status:        "COMPLETED",
			CreatedAt:     now,
		}
		if err := s.Payments.WithTx(tx).Create(ctx, payment); err != nil {
			return err
		}

		if grantDealer {
			user.Roles = roles.Parse(user.Roles).Add(roles.Dealer).String()
			if err := s.Users.WithTx(tx).Save(ctx, user); err != nil {
				return err
			}
		}
		return s.Carts.WithTx(tx).ClearActive(ctx, userID)
	})
	if err != nil {
		return nil, err
	}

	if len(activated) > 0 {
		user, err := s.Users.ByID(ctx, userID)
		if err == nil {
			for i, plan := range activated {
				s.Mail.SubscriptionConfirmed(ctx, user.Email, user.Username, plan.Name, now, expiry[i])
			}
		}
	}
	return payment, nil
}

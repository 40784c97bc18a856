package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fcfmotors/marketplace/internal/models"
	"github.com/fcfmotors/marketplace/internal/repo"
	"github.com/fcfmotors/marketplace/internal/roles"
	"github.com/fcfmotors/marketplace/internal/service"
)

func TestAddProductCreatesSeparateRows(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	buyer := env.createUser(t, "alice")
	seller := env.createUser(t, "bob")

	product, err := env.catalog.Add(ctx, seller.ID, carForm("Corolla", 9000))
	require.NoError(t, err)

	_, err = env.cartSvc.AddProduct(ctx, buyer.ID, product.ID, 1)
	require.NoError(t, err)
	_, err = env.cartSvc.AddProduct(ctx, buyer.ID, product.ID, 2)
	require.NoError(t, err)

	items, err := env.cartSvc.Items(ctx, buyer.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
}

func TestAddProductUnknownListing(t *testing.T) {
	env := newTestEnv(t)
	buyer := env.createUser(t, "alice")

	_, err := env.cartSvc.AddProduct(context.Background(), buyer.ID, 999, 1)
	require.ErrorIs(t, err, service.ErrNotFound)
}

func TestUpdateQuantityZeroRemoves(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	buyer := env.createUser(t, "alice")
	seller := env.createUser(t, "bob")

	product, err := env.catalog.Add(ctx, seller.ID, carForm("Corolla", 9000))
	require.NoError(t, err)
	item, err := env.cartSvc.AddProduct(ctx, buyer.ID, product.ID, 2)
	require.NoError(t, err)

	require.NoError(t, env.cartSvc.UpdateQuantity(ctx, buyer.ID, item.ID, 0))

	items, err := env.cartSvc.Items(ctx, buyer.ID)
	require.NoError(t, err)
	require.Empty(t, items)
}

func TestCartOwnership(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	buyer := env.createUser(t, "alice")
	intruder := env.createUser(t, "mallory")
	seller := env.createUser(t, "bob")

	product, err := env.catalog.Add(ctx, seller.ID, carForm("Corolla", 9000))
	require.NoError(t, err)
	item, err := env.cartSvc.AddProduct(ctx, buyer.ID, product.ID, 1)
	require.NoError(t, err)

	err = env.cartSvc.Remove(ctx, intruder.ID, item.ID)
	require.ErrorIs(t, err, service.ErrNotAuthorized)
}

func TestSubtotalWithPlanDiscount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	buyer := env.createUser(t, "alice")
	seller := env.createUser(t, "bob")

	product, err := env.catalog.Add(ctx, seller.ID, carForm("Corolla", 9000))
	require.NoError(t, err)
	plan := env.createPlan(t, "gold", 100, 30, 5)

	discount := 25.0
	expiry := time.Now().Add(time.Hour)
	plan.Discount = &discount
	plan.DiscountExpiry = &expiry
	require.NoError(t, env.subs.SavePlan(ctx, plan))

	_, err = env.cartSvc.AddProduct(ctx, buyer.ID, product.ID, 2)
	require.NoError(t, err)
	_, err = env.cartSvc.AddPlan(ctx, buyer.ID, plan.ID)
	require.NoError(t, err)

	now := time.Now()
	subtotal, err := env.cartSvc.Subtotal(ctx, buyer.ID, now)
	require.NoError(t, err)
	require.InDelta(t, 2*9000+75.0, subtotal, 0.001)

	// Past the discount window the full price applies.
	subtotal, err = env.cartSvc.Subtotal(ctx, buyer.ID, expiry.Add(time.Second))
	require.NoError(t, err)
	require.InDelta(t, 2*9000+100.0, subtotal, 0.001)
}

func TestSaveForLater(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	buyer := env.createUser(t, "alice")
	seller := env.createUser(t, "bob")

	product, err := env.catalog.Add(ctx, seller.ID, carForm("Corolla", 9000))
	require.NoError(t, err)
	item, err := env.cartSvc.AddProduct(ctx, buyer.ID, product.ID, 1)
	require.NoError(t, err)

	require.NoError(t, env.cartSvc.SaveForLater(ctx, buyer.ID, item.ID))

	items, err := env.cartSvc.Items(ctx, buyer.ID)
	require.NoError(t, err)
	require.Empty(t, items)
	saved, err := env.cartSvc.Saved(ctx, buyer.ID)
	require.NoError(t, err)
	require.Len(t, saved, 1)

	// Saving twice is rejected.
	err = env.cartSvc.SaveForLater(ctx, buyer.ID, item.ID)
	require.ErrorIs(t, err, service.ErrConflict)

	require.NoError(t, env.cartSvc.Restore(ctx, buyer.ID, item.ID))
	items, err = env.cartSvc.Items(ctx, buyer.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
}

func TestCheckoutEmptyCart(t *testing.T) {
	env := newTestEnv(t)
	buyer := env.createUser(t, "alice")

	_, err := env.cartSvc.Checkout(context.Background(), buyer.ID)
	require.ErrorIs(t, err, service.ErrInvalid)
}

func TestCheckoutActivatesPlan(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	buyer := env.createUser(t, "alice")
	plan := env.createPlan(t, "gold", 100, 30, 5)

	_, err := env.cartSvc.AddPlan(ctx, buyer.ID, plan.ID)
	require.NoError(t, err)

	payment, err := env.cartSvc.Checkout(ctx, buyer.ID)
	require.NoError(t, err)
	require.InDelta(t, 100.0, payment.Amount, 0.001)
	require.Equal(t, "COMPLETED", payment.Status)
	require.NotEmpty(t, payment.TransactionID)

	subs, err := env.subscriptions.ActiveForUser(ctx, buyer.ID)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	require.True(t, subs[0].AutoRenew)

	user, err := env.accounts.Get(ctx, buyer.ID)
	require.NoError(t, err)
	require.True(t, roles.Parse(user.Roles).Has(roles.Dealer))

	items, err := env.cartSvc.Items(ctx, buyer.ID)
	require.NoError(t, err)
	require.Empty(t, items)

	require.True(t, env.events.hasKind("subscription_confirmed"))
}

func TestCheckoutMixedCartTotal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	buyer := env.createUser(t, "alice")
	seller := env.createUser(t, "bob")

	product, err := env.catalog.Add(ctx, seller.ID, carForm("Corolla", 9000))
	require.NoError(t, err)
	plan := env.createPlan(t, "gold", 100, 30, 5)

	discount := 25.0
	expiry := time.Now().Add(time.Hour)
	plan.Discount = &discount
	plan.DiscountExpiry = &expiry
	require.NoError(t, env.subs.SavePlan(ctx, plan))

	_, err = env.cartSvc.AddProduct(ctx, buyer.ID, product.ID, 2)
	require.NoError(t, err)
	_, err = env.cartSvc.AddPlan(ctx, buyer.ID, plan.ID)
	require.NoError(t, err)

	// Listing and plan rows are both priced inside the checkout
	// transaction, with the discount applied.
	payment, err := env.cartSvc.Checkout(ctx, buyer.ID)
	require.NoError(t, err)
	require.InDelta(t, 2*9000+75.0, payment.Amount, 0.001)

	subs, err := env.subscriptions.ActiveForUser(ctx, buyer.ID)
	require.NoError(t, err)
	require.Len(t, subs, 1)
}

func TestSubtotalReorderInvariance(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	first := env.createUser(t, "alice")
	second := env.createUser(t, "carol")
	seller := env.createUser(t, "bob")
	env.createDealer(t, seller)

	p1, err := env.catalog.Add(ctx, seller.ID, carForm("Corolla", 9000))
	require.NoError(t, err)
	p2, err := env.catalog.Add(ctx, seller.ID, carForm("Camry", 15000))
	require.NoError(t, err)
	plan := env.createPlan(t, "gold", 100, 30, 5)

	// Same contents, opposite insertion order.
	_, err = env.cartSvc.AddProduct(ctx, first.ID, p1.ID, 2)
	require.NoError(t, err)
	_, err = env.cartSvc.AddProduct(ctx, first.ID, p2.ID, 1)
	require.NoError(t, err)
	_, err = env.cartSvc.AddPlan(ctx, first.ID, plan.ID)
	require.NoError(t, err)

	_, err = env.cartSvc.AddPlan(ctx, second.ID, plan.ID)
	require.NoError(t, err)
	_, err = env.cartSvc.AddProduct(ctx, second.ID, p2.ID, 1)
	require.NoError(t, err)
	_, err = env.cartSvc.AddProduct(ctx, second.ID, p1.ID, 2)
	require.NoError(t, err)

	now := time.Now()
	a, err := env.cartSvc.Subtotal(ctx, first.ID, now)
	require.NoError(t, err)
	b, err := env.cartSvc.Subtotal(ctx, second.ID, now)
	require.NoError(t, err)
	require.InDelta(t, a, b, 0.001)
	require.InDelta(t, 2*9000+15000+100.0, a, 0.001)
}

func TestCheckoutKeepsSavedItems(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	buyer := env.createUser(t, "alice")
	seller := env.createUser(t, "bob")

	product, err := env.catalog.Add(ctx, seller.ID, carForm("Corolla", 9000))
	require.NoError(t, err)

	kept, err := env.cartSvc.AddProduct(ctx, buyer.ID, product.ID, 1)
	require.NoError(t, err)
	require.NoError(t, env.cartSvc.SaveForLater(ctx, buyer.ID, kept.ID))

	_, err = env.cartSvc.AddProduct(ctx, buyer.ID, product.ID, 1)
	require.NoError(t, err)

	_, err = env.cartSvc.Checkout(ctx, buyer.ID)
	require.NoError(t, err)

	saved, err := env.cartSvc.Saved(ctx, buyer.ID)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	require.Equal(t, models.CartStatusSaved, saved[0].Status)

	// The parked row lives in storage, not in memory: a fresh repository
	// over the same database still sees it.
	fresh := repo.NewCartRepo(env.db)
	again, err := fresh.ByUser(ctx, buyer.ID, models.CartStatusSaved)
	require.NoError(t, err)
	require.Len(t, again, 1)
}

package service_test

import (
	"context"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/fcfmotors/marketplace/internal/hash"
	"github.com/fcfmotors/marketplace/internal/mail"
	"github.com/fcfmotors/marketplace/internal/models"
	"github.com/fcfmotors/marketplace/internal/repo"
	"github.com/fcfmotors/marketplace/internal/roles"
	"github.com/fcfmotors/marketplace/internal/service"
)

const testPassword = "password123"

type recordedEvent struct {
	Topic string
	Key   string
	Event map[string]any
}

// eventRecorder stands in for the kafka producer and captures every
// published mail event.
type eventRecorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *eventRecorder) PublishEvent(_ context.Context, topic, key string, event any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, _ := event.(map[string]any)
	r.events = append(r.events, recordedEvent{Topic: topic, Key: key, Event: m})
	return nil
}

func (r *eventRecorder) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kinds []string
	for _, e := range r.events {
		if kind, ok := e.Event["type"].(string); ok {
			kinds = append(kinds, kind)
		}
	}
	return kinds
}

func (r *eventRecorder) hasKind(kind string) bool {
	for _, k := range r.kinds() {
		if k == kind {
			return true
		}
	}
	return false
}

type testEnv struct {
	db     *gorm.DB
	events *eventRecorder

	users    *repo.UserRepo
	dealers  *repo.DealerRepo
	products *repo.ProductRepo
	carts    *repo.CartRepo
	quotes   *repo.QuoteRepo
	subs     *repo.SubscriptionRepo
	payments *repo.PaymentRepo

	accounts      *service.AccountService
	dealerSvc     *service.DealerService
	catalog       *service.CatalogService
	cartSvc       *service.CartService
	quoteSvc      *service.QuoteService
	subscriptions *service.SubscriptionService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(models.All()...))

	events := &eventRecorder{}
	mailer := mail.New(events, "mail_events")

	env := &testEnv{
		db:       db,
		events:   events,
		users:    repo.NewUserRepo(db),
		dealers:  repo.NewDealerRepo(db),
		products: repo.NewProductRepo(db),
		carts:    repo.NewCartRepo(db),
		quotes:   repo.NewQuoteRepo(db),
		subs:     repo.NewSubscriptionRepo(db),
		payments: repo.NewPaymentRepo(db),
	}
	env.accounts = service.NewAccountService(db, env.users, env.dealers, env.subs, mailer)
	env.dealerSvc = service.NewDealerService(db, env.dealers, env.users)
	env.catalog = service.NewCatalogService(db, env.products, env.dealers, env.users, env.subs, nil)
	env.cartSvc = service.NewCartService(db, env.carts, env.products, env.subs, env.users, env.payments, mailer)
	env.quoteSvc = service.NewQuoteService(db, env.quotes, env.products, env.dealers, env.users, mailer)
	env.subscriptions = service.NewSubscriptionService(db, env.subs, env.users, env.dealers, mailer)
	return env
}

func (e *testEnv) createUser(t *testing.T, username string) *models.User {
	t.Helper()
	hashed, err := hash.HashPassword(testPassword)
	require.NoError(t, err)
	user := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: hashed,
		Roles:        string(roles.User),
	}
	require.NoError(t, e.users.Create(context.Background(), user))
	return user
}

func (e *testEnv) createDealer(t *testing.T, owner *models.User) *models.Dealer {
	t.Helper()
	dealer := &models.Dealer{
		Name:    owner.Username + " motors",
		Email:   "sales+" + owner.Username + "@example.com",
		OwnerID: owner.ID,
	}
	require.NoError(t, e.dealers.Create(context.Background(), dealer))
	return dealer
}

func (e *testEnv) createPlan(t *testing.T, name string, price float64, days, maxFeatured int) *models.Subscription {
	t.Helper()
	plan := &models.Subscription{
		Name:            name,
		Price:           price,
		DurationDays:    days,
		MaxFeaturedCars: maxFeatured,
	}
	require.NoError(t, e.subs.CreatePlan(context.Background(), plan))
	return plan
}

func carForm(name string, price float64) service.ProductForm {
	return service.ProductForm{
		Name:         name,
		Description:  "well kept",
		Price:        price,
		Category:     "sedan",
		Brand:        "Toyota",
		Model:        "Corolla",
		Mileage:      80000,
		Year:         2018,
		FuelType:     "petrol",
		Transmission: "manual",
	}
}

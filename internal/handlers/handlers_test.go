package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/fcfmotors/marketplace/internal/handlers"
	"github.com/fcfmotors/marketplace/internal/mail"
	"github.com/fcfmotors/marketplace/internal/models"
	"github.com/fcfmotors/marketplace/internal/repo"
	"github.com/fcfmotors/marketplace/internal/service"
	"github.com/fcfmotors/marketplace/internal/service/token"
	httpserver "github.com/fcfmotors/marketplace/internal/transport/http"
)

type nopPublisher struct{}

func (nopPublisher) PublishEvent(context.Context, string, string, any) error { return nil }

func newTestServer(t *testing.T) (*echo.Echo, *gorm.DB) {
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

	mailer := mail.New(nopPublisher{}, "mail_events")

	users := repo.NewUserRepo(db)
	dealers := repo.NewDealerRepo(db)
	products := repo.NewProductRepo(db)
	carts := repo.NewCartRepo(db)
	quotes := repo.NewQuoteRepo(db)
	subs := repo.NewSubscriptionRepo(db)
	payments := repo.NewPaymentRepo(db)

	accountSvc := service.NewAccountService(db, users, dealers, subs, mailer)
	dealerSvc := service.NewDealerService(db, dealers, users)
	catalogSvc := service.NewCatalogService(db, products, dealers, users, subs, nil)
	cartSvc := service.NewCartService(db, carts, products, subs, users, payments, mailer)
	quoteSvc := service.NewQuoteService(db, quotes, products, dealers, users, mailer)
	subSvc := service.NewSubscriptionService(db, subs, users, dealers, mailer)
	tokens := token.NewService(db, "access-secret", "refresh-secret")

	e := echo.New()
	httpserver.Register(e, &httpserver.Deps{
		Tokens:        tokens,
		Auth:          handlers.NewAuthHandler(accountSvc, tokens),
		Accounts:      handlers.NewAccountHandler(accountSvc, tokens),
		Products:      handlers.NewProductHandler(catalogSvc),
		Dealers:       handlers.NewDealerHandler(dealerSvc, catalogSvc),
		Carts:         handlers.NewCartHandler(cartSvc),
		Quotes:        handlers.NewQuoteHandler(quoteSvc, accountSvc),
		Subscriptions: handlers.NewSubscriptionHandler(subSvc),
		Admin:         handlers.NewAdminHandler(accountSvc, subSvc, quoteSvc),
		Search:        handlers.NewSearchHandler(nil),
	})
	return e, db
}

func doJSON(e *echo.Echo, method, path, body string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRegisterLoginMe(t *testing.T) {
	e, _ := newTestServer(t)

	rec := doJSON(e, http.MethodPost, "/auth/register",
		`{"username":"alice","email":"alice@example.com","password":"secret12","confirm_password":"secret12"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	// Duplicate username is a conflict.
	rec = doJSON(e, http.MethodPost, "/auth/register",
		`{"username":"alice","email":"other@example.com","password":"secret12","confirm_password":"secret12"}`, nil)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(e, http.MethodPost, "/auth/login",
		`{"username":"alice","password":"wrong"}`, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(e, http.MethodPost, "/auth/login",
		`{"username":"alice","password":"secret12"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	// Without the cookie the profile is off limits.
	rec = doJSON(e, http.MethodGet, "/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(e, http.MethodGet, "/me", "", cookies)
	require.Equal(t, http.StatusOK, rec.Code)

	var profile struct {
		Username string `json:"username"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profile))
	require.Equal(t, "alice", profile.Username)
}

func TestListingLifecycleOverHTTP(t *testing.T) {
	e, _ := newTestServer(t)

	doJSON(e, http.MethodPost, "/auth/register",
		`{"username":"bob","email":"bob@example.com","password":"secret12","confirm_password":"secret12"}`, nil)
	rec := doJSON(e, http.MethodPost, "/auth/login",
		`{"username":"bob","password":"secret12"}`, nil)
	cookies := rec.Result().Cookies()

	rec = doJSON(e, http.MethodPost, "/products",
		`{"name":"Corolla","price":9000,"brand":"Toyota","category":"sedan","year":2018}`, cookies)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created models.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Equal(t, models.SellerTypePrivate, created.SellerType)

	// Private sellers get exactly one listing.
	rec = doJSON(e, http.MethodPost, "/products",
		`{"name":"Camry","price":15000}`, cookies)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(e, http.MethodGet, "/products?brand=Toyota", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listing struct {
		Total    int64            `json:"total"`
		Products []models.Product `json:"products"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	require.EqualValues(t, 1, listing.Total)

	// Anonymous visitors can message the seller.
	rec = doJSON(e, http.MethodPost, "/products/1/message",
		`{"email":"visitor@example.com","message":"still for sale?"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestAdminRoutesRequireRole(t *testing.T) {
	e, db := newTestServer(t)

	doJSON(e, http.MethodPost, "/auth/register",
		`{"username":"alice","email":"alice@example.com","password":"secret12","confirm_password":"secret12"}`, nil)
	rec := doJSON(e, http.MethodPost, "/auth/login",
		`{"username":"alice","password":"secret12"}`, nil)
	cookies := rec.Result().Cookies()

	rec = doJSON(e, http.MethodGet, "/admin/users", "", cookies)
	require.Equal(t, http.StatusForbidden, rec.Code)

	// Promote and sign in again so the new role lands in the token.
	require.NoError(t, db.Model(&models.User{}).
		Where("username = ?", "alice").
		Update("roles", "ADMIN,USER").Error)
	rec = doJSON(e, http.MethodPost, "/auth/login",
		`{"username":"alice","password":"secret12"}`, nil)
	cookies = rec.Result().Cookies()

	rec = doJSON(e, http.MethodGet, "/admin/users", "", cookies)
	require.Equal(t, http.StatusOK, rec.Code)
}

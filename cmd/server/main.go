package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/fcfmotors/marketplace/internal/config"
	"github.com/fcfmotors/marketplace/internal/es"
	"github.com/fcfmotors/marketplace/internal/handlers"
	"github.com/fcfmotors/marketplace/internal/logging"
	"github.com/fcfmotors/marketplace/internal/mail"
	"github.com/fcfmotors/marketplace/internal/mykafka"
	"github.com/fcfmotors/marketplace/internal/repo"
	"github.com/fcfmotors/marketplace/internal/service"
	"github.com/fcfmotors/marketplace/internal/service/search"
	"github.com/fcfmotors/marketplace/internal/service/token"
	httpserver "github.com/fcfmotors/marketplace/internal/transport/http"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}
	logger := logging.New(configuration.LOG_LEVEL)

	db, err := config.InitDB()
	if err != nil {
		logger.Error("db_init_failed", "error", err)
		os.Exit(1)
	}

	producer := mykafka.NewProducer([]string{configuration.KAFKA_ADDRESS})
	mailer := mail.New(producer, configuration.MAIL_TOPIC)

	var index *search.Index
	if configuration.ES_URL != "" {
		esClient, err := es.NewClient(configuration)
		if err != nil {
			logger.Error("es_init_failed", "error", err)
			os.Exit(1)
		}
		index = search.NewIndex(esClient, "products")
	} else {
		logger.Warn("search_disabled", "reason", "ES_URL not set")
	}

	users := repo.NewUserRepo(db)
	dealers := repo.NewDealerRepo(db)
	products := repo.NewProductRepo(db)
	carts := repo.NewCartRepo(db)
	quotes := repo.NewQuoteRepo(db)
	subs := repo.NewSubscriptionRepo(db)
	payments := repo.NewPaymentRepo(db)

	accountSvc := service.NewAccountService(db, users, dealers, subs, mailer)
	dealerSvc := service.NewDealerService(db, dealers, users)
	catalogSvc := service.NewCatalogService(db, products, dealers, users, subs, index)
	cartSvc := service.NewCartService(db, carts, products, subs, users, payments, mailer)
	quoteSvc := service.NewQuoteService(db, quotes, products, dealers, users, mailer)
	subSvc := service.NewSubscriptionService(db, subs, users, dealers, mailer)
	tokens := token.NewService(db, configuration.JWT_SECRET, configuration.REFRESH_SECRET)

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())

	deps := httpserver.Deps{
		Logger:        logger,
		Tokens:        tokens,
		Auth:          handlers.NewAuthHandler(accountSvc, tokens),
		Accounts:      handlers.NewAccountHandler(accountSvc, tokens),
		Products:      handlers.NewProductHandler(catalogSvc),
		Dealers:       handlers.NewDealerHandler(dealerSvc, catalogSvc),
		Carts:         handlers.NewCartHandler(cartSvc),
		Quotes:        handlers.NewQuoteHandler(quoteSvc, accountSvc),
		Subscriptions: handlers.NewSubscriptionHandler(subSvc),
		Admin:         handlers.NewAdminHandler(accountSvc, subSvc, quoteSvc),
		Search:        handlers.NewSearchHandler(index),
	}
	httpserver.Register(e, &deps)

	sweepCtx, stopSweep := context.WithCancel(logging.IntoContext(context.Background(), logger))
	go runSweep(sweepCtx, subSvc, configuration.SWEEP_INTERVAL)

	srv := &http.Server{
		Addr:         ":8080",
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http_server_error", "error", err)
		}
	}()
	logger.Info("server_started", "addr", srv.Addr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting_down")
	stopSweep()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server_shutdown_error", "error", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Error("db_close_error", "error", err)
		}
	}
	if err := producer.Close(); err != nil {
		logger.Error("kafka_close_error", "error", err)
	}
	logger.Info("shutdown_complete")
}

// runSweep settles expired subscriptions on a fixed interval until the
// context is cancelled.
func runSweep(ctx context.Context, subs *service.SubscriptionService, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if _, _, err := subs.Sweep(ctx, now); err != nil {
				logging.FromContext(ctx).Error("subscription_sweep_failed", "error", err)
			}
		}
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/daroosa/pharmacy_shop/internal/cart"
	"github.com/daroosa/pharmacy_shop/internal/config"
	"github.com/daroosa/pharmacy_shop/internal/db"
	"github.com/daroosa/pharmacy_shop/internal/es"
	"github.com/daroosa/pharmacy_shop/internal/events"
	"github.com/daroosa/pharmacy_shop/internal/handlers"
	"github.com/daroosa/pharmacy_shop/internal/logging"
	"github.com/daroosa/pharmacy_shop/internal/order"
	"github.com/daroosa/pharmacy_shop/internal/token"
	httpserver "github.com/daroosa/pharmacy_shop/internal/transport/http"
)

func main() {
	cfg := config.Load()
	cfg.MustValidate()

	logger := logging.New(cfg.LogLevel)

	ctx := context.Background()
	gdb, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db open error: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		log.Fatalf("db migrate error: %v", err)
	}

	producer := events.NewProducer(cfg.KafkaBrokers)

	esClient, err := es.NewClient(cfg)
	if err != nil {
		// Search degrades, the store keeps selling.
		logger.Warn("elasticsearch unavailable", "error", err)
	}

	tokens := &token.Service{DB: gdb, JWTSecret: cfg.JWTSecret, RefreshSecret: cfg.RefreshSecret}
	carts := &cart.Service{DB: gdb}
	orders := &order.Service{
		DB:                    gdb,
		FreeShippingThreshold: &cfg.FreeShippingThreshold,
		ShippingFee:           &cfg.ShippingFee,
	}

	e := echo.New()
	e.HideBanner = true
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			l := logger.With("request_id", c.Response().Header().Get(echo.HeaderXRequestID))
			c.SetRequest(c.Request().WithContext(logging.IntoContext(c.Request().Context(), l)))
			return next(c)
		}
	})

	deps := httpserver.Deps{
		DB:             gdb,
		Tokens:         tokens,
		AuthHandler:    &handlers.AuthHandler{DB: gdb, Producer: producer, Tokens: tokens},
		AddressHandler: &handlers.AddressHandler{DB: gdb},
		ProductHandler: &handlers.ProductHandler{DB: gdb, Producer: producer},
		CartHandler:    &handlers.CartHandler{Cart: carts, Producer: producer},
		OrderHandler:   &handlers.OrderHandler{Orders: orders, Producer: producer},
		PaymentHandler: &handlers.PaymentHandler{Orders: orders, Producer: producer},
		SearchHandler:  &handlers.SearchHandler{ES: esClient, Index: "products"},
	}
	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if sqlDB, err := gdb.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Error("db close error", "error", err)
		}
	}
	if err := producer.Close(); err != nil {
		logger.Error("kafka close error", "error", err)
	}

	logger.Info("shutdown complete")
}

package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/brewhaus/coffee_shop/internal/config"
	"github.com/brewhaus/coffee_shop/internal/es"
	"github.com/brewhaus/coffee_shop/internal/handlers"
	"github.com/brewhaus/coffee_shop/internal/handlers/admin"
	"github.com/brewhaus/coffee_shop/internal/handlers/cart"
	"github.com/brewhaus/coffee_shop/internal/handlers/checkout"
	"github.com/brewhaus/coffee_shop/internal/logging"
	"github.com/brewhaus/coffee_shop/internal/mykafka"
	"github.com/brewhaus/coffee_shop/internal/payment"
	"github.com/brewhaus/coffee_shop/internal/service/inventory"
	"github.com/brewhaus/coffee_shop/internal/service/token"
	httpserver "github.com/brewhaus/coffee_shop/internal/transport/http"
)

func main() {
	db, err := config.InitDB()
	if err != nil {
		log.Fatalf("database init error: %v", err)
	}

	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(configuration.LOG_LEVEL)
	slog.SetDefault(logger)

	jwtSecret := []byte(configuration.JWT_SECRET)
	refreshSecret := []byte(configuration.REFRESH_SECRET)

	brokers := []string{configuration.KAFKA_ADDRESS}
	topics := []string{"user_events", "cart_events", "product_events", "order_events"}
	prod, err := mykafka.NewProducer(brokers, topics)
	if err != nil {
		log.Fatal(err)
	}

	esClient, err := es.NewClient(configuration)
	if err != nil {
		log.Fatal(err)
	}

	gateway := payment.NewRazorpayGateway(configuration.RAZORPAY_KEY, configuration.RAZORPAY_SECRET)
	inventoryService := &inventory.Service{DB: db, Log: logger}

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())

	deps := httpserver.Deps{
		DB:              db,
		AuthHandler:     &handlers.AuthHandler{DB: db, JWTSecret: jwtSecret, RefreshSecret: refreshSecret, Producer: prod},
		ProductHandler:  &handlers.ProductHandler{DB: db},
		SearchHandler:   &handlers.SearchHandler{ES: esClient, Index: "products"},
		AddressHandler:  &handlers.AddressHandler{DB: db, JWTSecret: jwtSecret},
		CartHandler:     &cart.CartHandler{DB: db, Producer: prod, JWTSecret: jwtSecret},
		CheckoutHandler: &checkout.CheckoutHandler{DB: db, Producer: prod, JWTSecret: jwtSecret, Gateway: gateway},
		AdminHandler: &admin.AdminHandler{
			DB:        db,
			Producer:  prod,
			ES:        esClient,
			ESIndex:   "products",
			JWTSecret: jwtSecret,
			Inventory: inventoryService,
		},
		TokenService: &token.TokenService{DB: db, RefreshSecret: refreshSecret, JWTSecret: jwtSecret},
	}

	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         ":8080",
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit

	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	} else {
		log.Printf("db() error: %v", err)
	}

	if err := prod.Close(); err != nil {
		log.Printf("kafka close error: %v", err)
	}

	log.Println("shutdown complete")
}

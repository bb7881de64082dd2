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

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/smirnovdl/shop-backend/internal/cache"
	"github.com/smirnovdl/shop-backend/internal/config"
	"github.com/smirnovdl/shop-backend/internal/db"
	"github.com/smirnovdl/shop-backend/internal/es"
	"github.com/smirnovdl/shop-backend/internal/httpserver"
	"github.com/smirnovdl/shop-backend/internal/logging"
	mw "github.com/smirnovdl/shop-backend/internal/middleware"
	"github.com/smirnovdl/shop-backend/internal/mykafka"
	"github.com/smirnovdl/shop-backend/internal/repo"
	"github.com/smirnovdl/shop-backend/internal/service"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}
	config.MustNonEmpty(configuration.JWT_SECRET, "JWT_SECRET")
	config.MustNonEmpty(configuration.REFRESH_SECRET, "REFRESH_SECRET")

	logger := logging.New(configuration.LOG_LEVEL)

	ctx := context.Background()
	database, err := db.Open(ctx, configuration.DSN())
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}
	if err := db.Migrate(database); err != nil {
		log.Fatalf("db migrate error: %v", err)
	}

	jwtSecret := []byte(configuration.JWT_SECRET)
	refreshSecret := []byte(configuration.REFRESH_SECRET)

	var producer *mykafka.Producer
	if len(configuration.KAFKA_BROKERS) > 0 {
		producer = mykafka.NewProducer(configuration.KAFKA_BROKERS)
	}

	var esClient *elasticsearch.Client
	if configuration.ES_URL != "" {
		esClient, err = es.NewClient(configuration)
		if err != nil {
			log.Fatalf("elasticsearch init error: %v", err)
		}
	}

	productCache := cache.New(configuration.REDIS_ADDR)

	r := repo.New(database)
	authSvc := &service.AuthService{Repo: r, JWTSecret: jwtSecret, RefreshSecret: refreshSecret}
	cartSvc := &service.CartService{Repo: r}
	orderSvc := &service.OrderService{Repo: r}

	e := echo.New()
	e.HideBanner = true
	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.Recover(), echomw.RequestID())
	e.Use(mw.RequestLogger(logger))

	deps := httpserver.Deps{
		DB:             database,
		JWTSecret:      jwtSecret,
		AuthHandler:    &httpserver.AuthHandler{Svc: authSvc, Producer: producer},
		UserHandler:    &httpserver.UserHandler{Repo: r},
		ProductHandler: &httpserver.ProductHandler{Repo: r, Cache: productCache, ES: esClient, Producer: producer},
		CartHandler:    &httpserver.CartHandler{Svc: cartSvc, Producer: producer},
		OrderHandler:   &httpserver.OrderHandler{Svc: orderSvc, Producer: producer},
		SearchHandler:  &httpserver.SearchHandler{ES: esClient, Index: es.ProductIndex},
	}
	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", configuration.ServerPort),
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := database.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	} else {
		log.Printf("db() error: %v", err)
	}

	if producer != nil {
		if err := producer.Close(); err != nil {
			log.Printf("kafka close error: %v", err)
		}
	}
	if err := productCache.Close(); err != nil {
		log.Printf("redis close error: %v", err)
	}

	log.Println("shutdown complete")
}

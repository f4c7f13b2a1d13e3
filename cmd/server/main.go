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

	"github.com/urospodkriznik/myapp-devops/internal/config"
	"github.com/urospodkriznik/myapp-devops/internal/db"
	"github.com/urospodkriznik/myapp-devops/internal/events"
	"github.com/urospodkriznik/myapp-devops/internal/handlers"
	"github.com/urospodkriznik/myapp-devops/internal/httpserver"
	"github.com/urospodkriznik/myapp-devops/internal/logging"
	"github.com/urospodkriznik/myapp-devops/internal/metrics"
	loggingmw "github.com/urospodkriznik/myapp-devops/internal/middleware/logging"
	"github.com/urospodkriznik/myapp-devops/internal/search"
	"github.com/urospodkriznik/myapp-devops/internal/tokens"
)

func main() {
	cfg := config.Load()
	config.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	config.MustNonEmptyBytes(cfg.JWTSecret, "JWT_SECRET")

	logger := logging.New(cfg.LogLevel)

	ctx := context.Background()
	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}
	if err := db.Migrate(database); err != nil {
		log.Fatalf("db migrate error: %v", err)
	}

	producer := events.NewProducer(cfg.KafkaBrokers)

	var itemIndex *search.Index
	if cfg.ESURL != "" {
		esClient, err := search.NewClient(cfg.ESURL, cfg.ESUser, cfg.ESPassword)
		if err != nil {
			log.Fatalf("elasticsearch init error: %v", err)
		}
		itemIndex = &search.Index{ES: esClient, Name: "items"}
	}

	tokenSvc := &tokens.Service{Secret: cfg.JWTSecret}
	registry := metrics.NewRegistry()

	e := echo.New()
	e.HideBanner = true
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())
	e.Use(loggingmw.RequestLogger(logger), registry.Middleware)

	deps := httpserver.Deps{
		DB:            database,
		Tokens:        tokenSvc,
		Metrics:       registry,
		AuthHandler:   &handlers.AuthHandler{DB: database, Tokens: tokenSvc, Producer: producer},
		UserHandler:   &handlers.UserHandler{DB: database, Producer: producer},
		ItemHandler:   &handlers.ItemHandler{DB: database, Producer: producer, Index: itemIndex},
		SearchHandler: &handlers.SearchHandler{Index: itemIndex},
	}
	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
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
	logger.Info("server started", "port", cfg.ServerPort)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := database.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	}
	if err := producer.Close(); err != nil {
		log.Printf("kafka close error: %v", err)
	}

	logger.Info("shutdown complete")
}

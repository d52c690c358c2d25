package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Urkki/issuer-exercise/internal/adapter/handler"
	"github.com/Urkki/issuer-exercise/internal/adapter/middleware"
	"github.com/Urkki/issuer-exercise/internal/adapter/storage/memory"
	"github.com/Urkki/issuer-exercise/internal/adapter/storage/postgres"
	"github.com/Urkki/issuer-exercise/internal/core/config"
	"github.com/Urkki/issuer-exercise/internal/core/domain"
	"github.com/Urkki/issuer-exercise/internal/core/ledger"
)

func main() {
	// 1. Load Config
	cfg := config.LoadConfig()

	// 2. Setup Logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	currency, err := domain.ParseCurrency(cfg.DefaultCurrency)
	if err != nil {
		slog.Error("invalid DEFAULT_CURRENCY", "value", cfg.DefaultCurrency, "error", err)
		os.Exit(1)
	}

	// 3. Pick the store: Postgres when DATABASE_URL is set, otherwise an
	// in-memory ledger for local runs.
	var store ledger.Store
	var pool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		pool, err = postgres.Connect(context.Background(), cfg.DatabaseURL)
		if err != nil {
			slog.Error("database connection failed", "error", err)
			os.Exit(1)
		}
		if err := postgres.EnsureSchema(context.Background(), pool); err != nil {
			slog.Error("schema bootstrap failed", "error", err)
			os.Exit(1)
		}
		store = postgres.NewStore(pool)
		slog.Info("connected to Postgres")
	} else {
		slog.Warn("DATABASE_URL not set, using in-memory ledger store")
		store = memory.NewStore()
	}

	// 4. Ledger engine and handlers
	svc := ledger.NewService(store, ledger.Config{
		IssuerAccount:   cfg.IssuerAccount,
		SchemeAccount:   cfg.SchemeAccount,
		DefaultCurrency: currency,
	})
	webhookHandler := &handler.WebhookHandler{Ledger: svc}
	accountHandler := &handler.AccountHandler{Ledger: svc}

	// 5. Setup Fiber
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	app.Use(cors.New())

	// 6. Routes
	api := app.Group("/api")
	if pool != nil {
		// Webhook redelivery protection. Requests without an
		// Idempotency-Key header pass straight through.
		api.Use(middleware.Idempotency(pool))
	}
	api.Post("/authorization", webhookHandler.Authorization)
	api.Post("/presentment", webhookHandler.Presentment)

	api.Get("/accounts/:cardholder/balances", accountHandler.Balances)
	api.Get("/accounts/:cardholder/transactions", accountHandler.Transactions)

	// Graceful shutdown: stop taking requests, then close the pool.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "env", cfg.Env, "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server stopped", "error", err)
		}
	}()

	<-stop
	slog.Info("shutting down server")

	if err := app.Shutdown(); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}
	if pool != nil {
		pool.Close()
		slog.Info("database connection closed")
	}
	slog.Info("server exited")
}

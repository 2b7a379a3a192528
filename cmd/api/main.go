package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/jumapesa/chamapay/internal/account"
	"github.com/jumapesa/chamapay/internal/collection"
	"github.com/jumapesa/chamapay/internal/config"
	"github.com/jumapesa/chamapay/internal/database"
	"github.com/jumapesa/chamapay/internal/gateway"
	"github.com/jumapesa/chamapay/internal/group"
	"github.com/jumapesa/chamapay/internal/notification"
	"github.com/jumapesa/chamapay/pkg/logging"
	mw "github.com/jumapesa/chamapay/pkg/middleware"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	logging.Setup()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	db, err := database.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	slog.Info("connected to database")

	// Mobile-money gateway client
	gatewayClient := gateway.NewHTTPClient(cfg.GatewayBaseURL, cfg.GatewayAPIKey, cfg.GatewayShortcode, cfg.GatewayTimeout)

	// Notification feature
	notificationRepo := notification.NewRepository(db)
	notificationService := notification.NewService(notificationRepo)
	notificationHandler := notification.NewHandler(notificationService)

	// Account feature
	accountRepo := account.NewRepository(db)
	accountService := account.NewService(accountRepo)
	accountHandler := account.NewHandler(accountService)

	// Group feature
	groupRepo := group.NewRepository(db)
	groupService := group.NewService(groupRepo, notificationService)
	groupHandler := group.NewHandler(groupService)

	// Collection feature (cycles, debit fan-out, settlement)
	collectionRepo := collection.NewRepository(db)
	collectionService := collection.NewService(collectionRepo, groupRepo, gatewayClient, notificationService, cfg.FanOutLimit)
	collectionHandler := collection.NewHandler(collectionService)

	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(mw.TestAccountMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/accounts", accountHandler.Routes())
		r.Mount("/groups", groupHandler.Routes())
		r.Mount("/collections", collectionHandler.Routes())
		r.Mount("/notifications", notificationHandler.Routes())
	})

	slog.Info("server starting", "port", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

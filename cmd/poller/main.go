package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/jumapesa/chamapay/internal/collection"
	"github.com/jumapesa/chamapay/internal/config"
	"github.com/jumapesa/chamapay/internal/database"
	"github.com/jumapesa/chamapay/internal/gateway"
	"github.com/jumapesa/chamapay/internal/group"
	"github.com/jumapesa/chamapay/internal/notification"
	"github.com/jumapesa/chamapay/pkg/logging"
)

// The poller drives cycle resolution forward without user interaction: on
// every tick it queries the gateway for all open debit requests and settles
// the cycles that finished. Running it alongside cmd/api is optional; the
// reconcile and settle endpoints do the same work on demand.
func main() {
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

	gatewayClient := gateway.NewHTTPClient(cfg.GatewayBaseURL, cfg.GatewayAPIKey, cfg.GatewayShortcode, cfg.GatewayTimeout)

	notificationService := notification.NewService(notification.NewRepository(db))
	groupRepo := group.NewRepository(db)
	collectionService := collection.NewService(collection.NewRepository(db), groupRepo, gatewayClient, notificationService, cfg.FanOutLimit)

	c := cron.New()
	_, err = c.AddFunc(cfg.PollSchedule, func() {
		if err := collectionService.ReconcileAll(context.Background()); err != nil {
			slog.Error("reconciliation pass failed", "error", err)
		}
	})
	if err != nil {
		slog.Error("invalid poll schedule", "schedule", cfg.PollSchedule, "error", err)
		os.Exit(1)
	}

	c.Start()
	slog.Info("poller started", "schedule", cfg.PollSchedule)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("poller stopping")
	// Wait for an in-flight pass to finish before exiting.
	<-c.Stop().Done()
}

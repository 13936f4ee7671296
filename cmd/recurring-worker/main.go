package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"bilancio/internal/config"
	applog "bilancio/internal/log"
	"bilancio/internal/services"
	"bilancio/internal/storage"
	"bilancio/internal/storage/memory"
	"bilancio/internal/worker"
)

func main() {
	// Load .env for local development, ignore errors in production.
	_ = godotenv.Load()

	logger := applog.New(applog.Config{Component: applog.ComponentWorker})
	applog.SetDefault(logger)

	logger.Info("Starting recurring-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	var (
		goalStore  services.GoalStore
		notifStore services.NotificationStore
	)
	switch cfg.DataBackend {
	case "memory":
		store := memory.New()
		goalStore, notifStore = store, store
	default:
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		defer repo.Close()
		goalStore, notifStore = repo, repo
	}

	notifs := services.NewNotificationService(notifStore)
	// Reminders only: the sweep never writes ledger entries.
	goals := services.NewGoalService(goalStore, nil, notifs)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Recurring sweep configured",
		"interval", cfg.SweepInterval,
		"backend", cfg.DataBackend)

	sweeper := worker.NewRecurringSweeper(goals, cfg.SweepInterval)
	if err := sweeper.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("Sweeper stopped", "error", err)
		os.Exit(1)
	}

	logger.Info("Recurring-worker stopped gracefully")
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"bilancio/internal/amqp"
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

	logger.Info("Starting ingest-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the ingest worker")
		os.Exit(1)
	}

	var (
		ledgerStore services.LedgerStore
		budgetStore services.BudgetStore
		notifStore  services.NotificationStore
	)
	switch cfg.DataBackend {
	case "memory":
		store := memory.New()
		ledgerStore, budgetStore, notifStore = store, store, store
	default:
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		defer repo.Close()
		ledgerStore, budgetStore, notifStore = repo, repo, repo
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPMutationsQueue, cfg.AMQPSuggestedQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	notifs := services.NewNotificationService(notifStore)
	budgets := services.NewBudgetService(budgetStore, ledgerStore, notifs)
	// Ingested entries go through the normal ledger path, so budget
	// recomputes and large-movement alerts fire. Mutations are published
	// back out for other consumers.
	ledger := services.NewLedgerService(ledgerStore, budgets, notifs, client)
	ingest := worker.NewIngestWorker(ledger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Consuming suggested entries",
		"queue", cfg.AMQPSuggestedQueue,
		"backend", cfg.DataBackend)

	err = client.ConsumeSuggestedEntries(ctx, func(msg *amqp.SuggestedEntryMessage) error {
		return ingest.HandleSuggestedEntry(ctx, msg)
	})
	if err != nil && err != context.Canceled {
		logger.Error("Consumption stopped", "error", err)
		os.Exit(1)
	}

	logger.Info("Ingest-worker stopped gracefully")
}

package main

import (
	"context"
	"flag"
	"time"

	"github.com/sunny18-max/crowdfunding-sub001/internal/config"
	"github.com/sunny18-max/crowdfunding-sub001/internal/db"
	"github.com/sunny18-max/crowdfunding-sub001/internal/ledger"
	"github.com/sunny18-max/crowdfunding-sub001/internal/logger"
)

func main() {
	timeout := flag.Duration("timeout", 5*time.Minute, "maximum run time")
	flag.Parse()

	logger.Init()
	logger.Info("Starting ledger reconciliation")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	// Reconciliation never sends notifications, so no notifier is wired.
	engine := ledger.NewService(ledger.NewRepository(database), nil)

	summary, err := engine.Reconcile(ctx)
	if err != nil {
		logger.Fatalf("Reconciliation failed: %v", err)
	}

	logger.Info("Reconciliation finished",
		"processed", summary.Processed,
		"skipped", summary.Skipped,
		"already_covered", summary.AlreadyCovered,
		"skipped_ids", summary.SkippedIDs,
	)
}

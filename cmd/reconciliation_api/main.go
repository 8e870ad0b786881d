package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/bank-reconciliation/internal/api"
	"github.com/bank-reconciliation/internal/api/service"
	"github.com/bank-reconciliation/internal/config"
	"github.com/bank-reconciliation/internal/data/mongo"
	"github.com/bank-reconciliation/internal/data/postgres"
	"github.com/bank-reconciliation/internal/ingestion"
	"github.com/bank-reconciliation/internal/logger"
	"github.com/bank-reconciliation/internal/platform/messaging/producers"
	"github.com/bank-reconciliation/internal/platform/persistence"
	"github.com/bank-reconciliation/internal/reconciliation"
	"github.com/bank-reconciliation/internal/statestore"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("reconciliation_api")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	// Initialize databases with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	// Initialize Kafka producer for match events
	matchEventProducer, err := producers.NewMatchEventProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize match event producer", "error", err)
		os.Exit(1)
	}

	// Initialize the matching engine and restore the last persisted state
	engine := reconciliation.NewEngine(log, reconciliation.MatchingPolicy{
		AmountTolerance: cfg.Matching.ToleranceDecimal(),
		DateWindowDays:  cfg.Matching.DateWindowDays,
	})

	stateRepo := postgres.NewStateRepository(log, postgresDB)
	if state, found, err := stateRepo.Load(appCtx); err != nil {
		log.Error("Failed to load persisted engine state", "error", err)
		os.Exit(1)
	} else if found {
		if err := engine.Restore(state); err != nil {
			log.Error("Failed to restore engine state", "error", err)
			os.Exit(1)
		}
		log.Info("Engine state restored from snapshot")
	}

	// Initialize statement ingestion with the per-side CSV formats
	ingestionSvc, err := ingestion.NewService(
		log,
		engine,
		cfg.WorkerPool.Size,
		toCSVFormat("bank", cfg.Ingestion.Bank),
		toCSVFormat("accounting", cfg.Ingestion.Accounting),
	)
	if err != nil {
		log.Error("Failed to initialize ingestion service", "error", err)
		os.Exit(1)
	}

	// Initialize repositories and services
	archiveRepo := mongo.NewArchiveRepository(log, mongoDB.Database())
	reconciliationService := service.NewReconciliationService(log, engine, ingestionSvc, archiveRepo, matchEventProducer, stateRepo)

	// Start the snapshot poller; it writes a final snapshot when its context
	// is cancelled during shutdown.
	snapshotPoller := statestore.NewPoller(&cfg.Snapshot, engine, stateRepo, log)
	pollerCtx, cancelPoller := context.WithCancel(context.Background())
	pollerDone := make(chan struct{})
	go func() {
		defer close(pollerDone)
		snapshotPoller.Start(pollerCtx)
	}()

	// Initialize REST server
	server := api.NewServer(log, cfg, reconciliationService)
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Shutdown HTTP server first so no new matches arrive
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	// Stop the snapshot poller and wait for its final snapshot
	cancelPoller()
	<-pollerDone

	// Drain the ingestion worker pool
	ingestionSvc.Shutdown()

	if err = matchEventProducer.Close(); err != nil {
		log.Error("Error closing Kafka producer", "error", err)
	}

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}

// toCSVFormat maps a side's configured statement layout to the parser format
func toCSVFormat(name string, cfg config.CSVFormatConfig) ingestion.CSVFormat {
	var delimiter rune
	if cfg.Delimiter != "" {
		delimiter = []rune(cfg.Delimiter)[0]
	}

	var exclusions []string
	for _, raw := range strings.Split(cfg.ExcludeDescriptions, ",") {
		if trimmed := strings.TrimSpace(raw); trimmed != "" {
			exclusions = append(exclusions, trimmed)
		}
	}

	return ingestion.CSVFormat{
		Name:                name,
		HasHeader:           cfg.HasHeader,
		Delimiter:           delimiter,
		DateColumn:          cfg.DateColumn,
		DescriptionColumn:   cfg.DescriptionColumn,
		AmountColumn:        cfg.AmountColumn,
		DebitColumn:         cfg.DebitColumn,
		CreditColumn:        cfg.CreditColumn,
		ExcludeDescriptions: exclusions,
	}
}

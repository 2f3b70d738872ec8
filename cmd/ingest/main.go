package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/mvieira/scanledger/internal/config"
	"github.com/mvieira/scanledger/internal/domain"
	"github.com/mvieira/scanledger/internal/logger"
	"github.com/mvieira/scanledger/internal/repository"
	"github.com/mvieira/scanledger/internal/service"
)

func main() {
	// Initialize logger first (with defaults)
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "json",
		ServiceName: "scanledger-ingest",
	})
	logger.SetDefault(appLogger)

	filePath := flag.String("file", "", "Path to the export file to ingest")
	kind := flag.String("kind", domain.DatasetScans, "Dataset kind: reference or scans")
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	if *filePath == "" {
		appLogger.Fatal("Missing required -file flag")
	}
	if *kind != domain.DatasetReference && *kind != domain.DatasetScans {
		appLogger.WithField("kind", *kind).Fatal("Kind must be reference or scans")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	appLogger.WithFields(logger.Fields{
		"file": *filePath,
		"kind": *kind,
	}).Info("Starting ingestion")

	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}

	batchRepo := repository.NewBatchRepository(db)
	chunkRepo := repository.NewChunkRepository(db)
	recordRepo := repository.NewRecordRepository(db)

	content, err := os.ReadFile(*filePath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to read input file")
	}
	filename := filepath.Base(*filePath)

	// Handle graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("Received shutdown signal, canceling...")
		cancel()
	}()

	switch *kind {
	case domain.DatasetReference:
		loader := service.NewReferenceLoader(batchRepo, chunkRepo, cfg.Ingest.ChunkSize, cfg.Ingest.BulkInsertSize)
		result, err := loader.Load(ctx, filename, content)
		if err != nil {
			appLogger.WithError(err).Fatal("Reference load failed")
		}
		appLogger.WithFields(logger.Fields{
			"batch_id": result.BatchID,
			"rows":     result.RowsRead,
			"chunks":   result.ChunksStored,
		}).Info("Reference load completed")

	case domain.DatasetScans:
		reconciler := service.NewReconciler(batchRepo, chunkRepo, recordRepo, cfg.Ingest.UpsertBatchSize)
		result, err := reconciler.ProcessScans(ctx, filename, content)
		if err != nil {
			appLogger.WithError(err).Fatal("Scan ingest failed")
		}
		appLogger.WithFields(logger.Fields{
			"batch_id":  result.BatchID,
			"rows":      result.RowsRead,
			"resolved":  result.Resolved,
			"unmatched": result.Unmatched,
			"upserted":  result.Upserted,
			"updated":   result.Updated,
			"failed":    result.Failed,
		}).Info("Scan ingest completed")
	}
}

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mvieira/scanledger/internal/api"
	"github.com/mvieira/scanledger/internal/archive"
	"github.com/mvieira/scanledger/internal/config"
	"github.com/mvieira/scanledger/internal/logger"
	"github.com/mvieira/scanledger/internal/notify"
	"github.com/mvieira/scanledger/internal/repository"
	"github.com/mvieira/scanledger/internal/service"
)

func main() {
	// Support CONFIG_PATH environment variable for production deployments
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logCfg := logger.DefaultConfig()
	logCfg.Level = cfg.Log.Level
	logCfg.Format = cfg.Log.Format
	logCfg.File = cfg.Log.File
	logCfg.FileOnly = cfg.Log.FileOnly
	logger.SetDefault(logger.New(logCfg))

	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to initialize database: %v", err)
	}

	batchRepo := repository.NewBatchRepository(db)
	chunkRepo := repository.NewChunkRepository(db)
	recordRepo := repository.NewRecordRepository(db)
	overrideRepo := repository.NewOverrideRepository(db)

	archiver, err := archive.New(&cfg.Archive)
	if err != nil {
		logger.Fatal("Failed to initialize upload archive: %v", err)
	}
	if archiver != nil {
		if err := archiver.EnsureBucket(context.Background()); err != nil {
			logger.Fatal("Failed to ensure archive bucket: %v", err)
		}
	}

	notifier := notify.New(&cfg.Webhook)

	loader := service.NewReferenceLoader(batchRepo, chunkRepo, cfg.Ingest.ChunkSize, cfg.Ingest.BulkInsertSize)
	reconciler := service.NewReconciler(batchRepo, chunkRepo, recordRepo, cfg.Ingest.UpsertBatchSize)

	router := api.SetupRouter(&api.Deps{
		DB:         db,
		Batches:    batchRepo,
		Chunks:     chunkRepo,
		Records:    recordRepo,
		Overrides:  overrideRepo,
		Loader:     loader,
		Reconciler: reconciler,
		Archiver:   archiver,
		Notifier:   notifier,
	}, cfg.Server)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting API server on port %d (mode=%s)", cfg.Server.Port, cfg.Server.Mode)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited")
}

package api

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mvieira/scanledger/internal/api/handler"
	"github.com/mvieira/scanledger/internal/api/middleware"
	"github.com/mvieira/scanledger/internal/archive"
	"github.com/mvieira/scanledger/internal/config"
	"github.com/mvieira/scanledger/internal/notify"
	"github.com/mvieira/scanledger/internal/repository"
	"github.com/mvieira/scanledger/internal/service"
)

// Deps bundles everything the router wires into handlers.
type Deps struct {
	DB         *gorm.DB
	Batches    *repository.BatchRepository
	Chunks     *repository.ChunkRepository
	Records    *repository.RecordRepository
	Overrides  *repository.OverrideRepository
	Loader     *service.ReferenceLoader
	Reconciler *service.Reconciler
	Archiver   *archive.Archiver
	Notifier   *notify.Notifier
}

// SetupRouter configures the Gin router with all routes.
func SetupRouter(deps *Deps, serverCfg config.ServerConfig) *gin.Engine {
	switch serverCfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(serverCfg.CORS))

	healthHandler := handler.NewHealthHandler(deps.DB)
	uploadHandler := handler.NewUploadHandler(deps.Loader, deps.Reconciler, deps.Archiver, deps.Notifier)
	batchHandler := handler.NewBatchHandler(deps.Batches, deps.Chunks)
	recordHandler := handler.NewRecordHandler(deps.Records)
	driverHandler := handler.NewDriverHandler(deps.Overrides)

	// Health check
	r.GET("/health", healthHandler.Health)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		// Uploads
		v1.POST("/reference/upload", uploadHandler.UploadReference)
		v1.POST("/scans/upload", uploadHandler.UploadScans)

		// Reference store admin
		v1.DELETE("/reference", batchHandler.DeleteReference)

		// Upload ledger
		v1.GET("/batches", batchHandler.ListBatches)
		v1.GET("/batches/:id", batchHandler.GetBatch)

		// Reconciled records
		v1.GET("/records", recordHandler.ListRecords)
		v1.GET("/records/:order", recordHandler.GetRecord)

		// Driver status overrides
		v1.GET("/drivers/status", driverHandler.ListStatuses)
		v1.GET("/drivers/:driver/status", driverHandler.GetStatus)
		v1.POST("/drivers/:driver/status", driverHandler.SetStatus)
	}

	return r
}

package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mvieira/scanledger/internal/domain"
	"github.com/mvieira/scanledger/internal/repository"
)

// BatchHandler serves the upload ledger and reference-store admin
// operations.
type BatchHandler struct {
	batches *repository.BatchRepository
	chunks  *repository.ChunkRepository
}

// NewBatchHandler creates a new batch handler.
func NewBatchHandler(batches *repository.BatchRepository, chunks *repository.ChunkRepository) *BatchHandler {
	return &BatchHandler{batches: batches, chunks: chunks}
}

// ListBatches returns recent upload batches.
// GET /api/v1/batches?dataset=&limit=&offset=
func (h *BatchHandler) ListBatches(c *gin.Context) {
	dataset := c.Query("dataset")
	if dataset != "" && dataset != domain.DatasetReference && dataset != domain.DatasetScans {
		c.JSON(http.StatusBadRequest, gin.H{"error": "dataset must be reference or scans"})
		return
	}
	limit := queryInt(c, "limit", 50)
	offset := queryInt(c, "offset", 0)

	batches, err := h.batches.List(c.Request.Context(), dataset, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list batches"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"batches": batches, "count": len(batches)})
}

// GetBatch returns one batch by ID.
// GET /api/v1/batches/:id
func (h *BatchHandler) GetBatch(c *gin.Context) {
	batch, err := h.batches.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "batch not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load batch"})
		return
	}
	c.JSON(http.StatusOK, batch)
}

// DeleteReference drops all stored reference chunks and their ledger
// rows. Operators call this before loading a fresh reference export.
// DELETE /api/v1/reference
func (h *BatchHandler) DeleteReference(c *gin.Context) {
	ctx := c.Request.Context()

	chunksDeleted, err := h.chunks.DeleteAll(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete reference chunks"})
		return
	}
	batchesDeleted, err := h.batches.DeleteByDataset(ctx, domain.DatasetReference)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete reference batches"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"chunks_deleted":  chunksDeleted,
		"batches_deleted": batchesDeleted,
	})
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mvieira/scanledger/internal/archive"
	"github.com/mvieira/scanledger/internal/domain"
	"github.com/mvieira/scanledger/internal/logger"
	"github.com/mvieira/scanledger/internal/notify"
	"github.com/mvieira/scanledger/internal/service"
)

// UploadHandler handles the two file-upload endpoints.
type UploadHandler struct {
	loader     *service.ReferenceLoader
	reconciler *service.Reconciler
	archiver   *archive.Archiver
	notifier   *notify.Notifier
}

// NewUploadHandler creates a new upload handler.
func NewUploadHandler(loader *service.ReferenceLoader, reconciler *service.Reconciler, archiver *archive.Archiver, notifier *notify.Notifier) *UploadHandler {
	return &UploadHandler{
		loader:     loader,
		reconciler: reconciler,
		archiver:   archiver,
		notifier:   notifier,
	}
}

// readUpload extracts the multipart "file" part. A missing or
// unreadable part aborts the request with 400.
func readUpload(c *gin.Context) (string, []byte, bool) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file field"})
		return "", nil, false
	}
	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not open uploaded file"})
		return "", nil, false
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read uploaded file"})
		return "", nil, false
	}
	return fileHeader.Filename, content, true
}

// UploadReference ingests a reference export.
// POST /api/v1/reference/upload
func (h *UploadHandler) UploadReference(c *gin.Context) {
	filename, content, ok := readUpload(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	result, err := h.loader.Load(ctx, filename, content)
	if err != nil {
		var vErr *service.ValidationError
		if errors.As(err, &vErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Message, "missing_columns": vErr.Missing})
			return
		}
		if result != nil {
			// Partial load: the batch exists in error status.
			h.finish(ctx, result.BatchID, filename, content, notify.Event{
				BatchID: result.BatchID, Dataset: domain.DatasetReference,
				Filename: filename, Status: result.Status, Seconds: result.Seconds,
			})
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "result": result})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.finish(ctx, result.BatchID, filename, content, notify.Event{
		BatchID: result.BatchID, Dataset: domain.DatasetReference,
		Filename: filename, Status: result.Status, Seconds: result.Seconds,
	})
	c.JSON(http.StatusOK, result)
}

// UploadScans ingests a scans export and reconciles it against the
// stored reference data.
// POST /api/v1/scans/upload
func (h *UploadHandler) UploadScans(c *gin.Context) {
	filename, content, ok := readUpload(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	result, err := h.reconciler.ProcessScans(ctx, filename, content)
	if err != nil {
		var vErr *service.ValidationError
		if errors.As(err, &vErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Message, "missing_columns": vErr.Missing})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.finish(ctx, result.BatchID, filename, content, notify.Event{
		BatchID: result.BatchID, Dataset: domain.DatasetScans,
		Filename: filename, Status: result.Status,
		Upserted: result.Upserted, Updated: result.Updated, Failed: result.Failed,
		Seconds: result.Seconds,
	})

	status := http.StatusOK
	if result.Status == string(domain.BatchStatusError) {
		status = http.StatusInternalServerError
	}
	c.JSON(status, result)
}

// finish runs the post-ingest side effects off the request path. The
// detached context outlives the HTTP request so a client disconnect
// cannot cancel the archive write or the webhook.
func (h *UploadHandler) finish(ctx context.Context, batchID, filename string, content []byte, event notify.Event) {
	bg := context.WithoutCancel(ctx)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.CtxError(bg, "Post-ingest side effects panicked for batch %s: %v", batchID, r)
			}
		}()
		h.archiver.Store(bg, batchID, filename, content)
		h.notifier.BatchFinished(bg, event)
	}()
}

package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mvieira/scanledger/internal/domain"
	"github.com/mvieira/scanledger/internal/logger"
	"github.com/mvieira/scanledger/internal/repository"
	"github.com/mvieira/scanledger/internal/spreadsheet"
)

// ValidationError rejects an upload before any batch row is created.
type ValidationError struct {
	Message string
	Missing []string
}

func (e *ValidationError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("%s: %s", e.Message, strings.Join(e.Missing, ", "))
	}
	return e.Message
}

// ReconcileResult summarizes one scans-upload run.
type ReconcileResult struct {
	BatchID      string   `json:"batch_id"`
	Status       string   `json:"status"`
	RowsRead     int      `json:"rows_read"`
	Resolved     int      `json:"resolved"`
	ChildDropped int      `json:"child_dropped"`
	NoTimestamp  int      `json:"no_timestamp"`
	Unmatched    int      `json:"unmatched"`
	Upserted     int      `json:"upserted"`
	Updated      int      `json:"updated"`
	Failed       int      `json:"failed"`
	SampleErrors []string `json:"sample_errors,omitempty"`
	Seconds      float64  `json:"processing_seconds"`
}

// Reconciler runs the scans pipeline: parse, resolve recency, join
// against the reference dataset, bucket by age and bulk-upsert.
type Reconciler struct {
	batches *repository.BatchRepository
	joiner  *Joiner
	writer  *BulkWriter
}

// NewReconciler wires the scans pipeline.
func NewReconciler(batches *repository.BatchRepository, chunks ChunkSource, store RecordStore, upsertBatchSize int) *Reconciler {
	return &Reconciler{
		batches: batches,
		joiner:  NewJoiner(chunks),
		writer:  NewBulkWriter(store, upsertBatchSize),
	}
}

// ProcessScans ingests one scans export. Validation failures return a
// *ValidationError and leave no batch row behind; once the batch row
// exists every outcome is recorded on it, including panics.
func (s *Reconciler) ProcessScans(ctx context.Context, filename string, content []byte) (result *ReconcileResult, err error) {
	if !spreadsheet.Supported(filename) {
		return nil, &ValidationError{Message: fmt.Sprintf("unsupported file type: %s", filename)}
	}

	rows, headers, readErr := spreadsheet.Read(content, filename)
	if readErr != nil {
		return nil, &ValidationError{Message: readErr.Error()}
	}
	if missing := spreadsheet.MissingColumns(headers, RequiredScanColumns); len(missing) > 0 {
		return nil, &ValidationError{Message: "missing required columns", Missing: missing}
	}

	batch := &domain.Batch{
		ID:           uuid.New().String(),
		Dataset:      domain.DatasetScans,
		Filename:     filename,
		TotalItems:   len(rows),
		ColumnsFound: headers,
		Status:       domain.BatchStatusProcessing,
	}
	if err := s.batches.Create(ctx, batch); err != nil {
		return nil, fmt.Errorf("failed to create batch: %w", err)
	}

	ctx = logger.SetBatchID(ctx, batch.ID)
	ctx = logger.SetDataset(ctx, domain.DatasetScans)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			logger.CtxError(ctx, "Scan ingest panicked: %v", r)
			_ = s.batches.UpdateStatus(context.WithoutCancel(ctx), batch.ID, domain.BatchStatusError, &repository.StatusUpdate{
				ErrorMessage:      fmt.Sprintf("internal error: %v", r),
				ProcessingSeconds: time.Since(start).Seconds(),
			})
			err = fmt.Errorf("scan ingest panicked: %v", r)
		}
	}()

	logger.CtxInfo(ctx, "Starting scan ingest of %s (%d rows)", filename, len(rows))

	resolved, resolveStats := Resolve(ctx, rows)

	records, joinStats, joinErr := s.joiner.Join(ctx, resolved, time.Now())
	if joinErr != nil {
		_ = s.batches.UpdateStatus(ctx, batch.ID, domain.BatchStatusError, &repository.StatusUpdate{
			ErrorMessage:      joinErr.Error(),
			ProcessingSeconds: time.Since(start).Seconds(),
		})
		return nil, fmt.Errorf("reference join failed: %w", joinErr)
	}

	summary := s.writer.Write(ctx, records)

	status := domain.BatchStatusCompleted
	update := &repository.StatusUpdate{ProcessingSeconds: time.Since(start).Seconds()}
	if summary.Attempted() > 0 && summary.Upserted+summary.Updated == 0 {
		status = domain.BatchStatusError
		update.ErrorMessage = fmt.Sprintf("all %d record writes failed", summary.Failed)
	}
	if err := s.batches.UpdateStatus(ctx, batch.ID, status, update); err != nil {
		logger.CtxError(ctx, "Failed to finalize batch status: %v", err)
	}

	result = &ReconcileResult{
		BatchID:      batch.ID,
		Status:       string(status),
		RowsRead:     len(rows),
		Resolved:     len(resolved),
		ChildDropped: resolveStats.ChildDropped,
		NoTimestamp:  resolveStats.NoTimestamp,
		Unmatched:    joinStats.Unmatched,
		Upserted:     summary.Upserted,
		Updated:      summary.Updated,
		Failed:       summary.Failed,
		SampleErrors: summary.SampleErrors,
		Seconds:      time.Since(start).Seconds(),
	}

	logger.CtxInfo(ctx, "Scan ingest finished in %.2fs: %d resolved, %d unmatched, %d inserted, %d updated, %d failed",
		result.Seconds, result.Resolved, result.Unmatched, result.Upserted, result.Updated, result.Failed)

	return result, nil
}

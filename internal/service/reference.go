package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mvieira/scanledger/internal/domain"
	"github.com/mvieira/scanledger/internal/logger"
	"github.com/mvieira/scanledger/internal/repository"
	"github.com/mvieira/scanledger/internal/spreadsheet"
)

// ReferenceResult summarizes one reference-upload run.
type ReferenceResult struct {
	BatchID      string   `json:"batch_id"`
	Status       string   `json:"status"`
	RowsRead     int      `json:"rows_read"`
	TotalChunks  int      `json:"total_chunks"`
	ChunksStored int      `json:"chunks_stored"`
	Columns      []string `json:"columns"`
	Seconds      float64  `json:"processing_seconds"`
}

// ReferenceLoader stores reference exports as fixed-size chunks of raw
// rows. Scans are joined against the latest loaded reference data, so
// a load replaces nothing: operators clear the store explicitly via
// the delete endpoint before re-loading.
type ReferenceLoader struct {
	batches        *repository.BatchRepository
	chunks         *repository.ChunkRepository
	chunkSize      int
	insertCallSize int
}

// NewReferenceLoader wires the reference pipeline. chunkSize is the
// number of rows per stored chunk, insertCallSize the number of chunks
// per insert call.
func NewReferenceLoader(batches *repository.BatchRepository, chunks *repository.ChunkRepository, chunkSize, insertCallSize int) *ReferenceLoader {
	if chunkSize < 1 {
		chunkSize = 5000
	}
	if insertCallSize < 1 {
		insertCallSize = 10
	}
	return &ReferenceLoader{
		batches:        batches,
		chunks:         chunks,
		chunkSize:      chunkSize,
		insertCallSize: insertCallSize,
	}
}

// Load ingests one reference export. The stored chunk count must equal
// the expected count or the batch is failed: a partially stored
// reference dataset silently corrupts every later join.
func (l *ReferenceLoader) Load(ctx context.Context, filename string, content []byte) (*ReferenceResult, error) {
	if !spreadsheet.Supported(filename) {
		return nil, &ValidationError{Message: fmt.Sprintf("unsupported file type: %s", filename)}
	}

	rows, headers, readErr := spreadsheet.Read(content, filename)
	if readErr != nil {
		return nil, &ValidationError{Message: readErr.Error()}
	}
	if missing := spreadsheet.MissingColumns(headers, RequiredReferenceColumns); len(missing) > 0 {
		return nil, &ValidationError{Message: "missing required columns", Missing: missing}
	}

	totalChunks := (len(rows) + l.chunkSize - 1) / l.chunkSize

	batch := &domain.Batch{
		ID:           uuid.New().String(),
		Dataset:      domain.DatasetReference,
		Filename:     filename,
		TotalItems:   len(rows),
		ChunkSize:    l.chunkSize,
		TotalChunks:  totalChunks,
		ColumnsFound: headers,
		Status:       domain.BatchStatusProcessing,
	}
	if err := l.batches.Create(ctx, batch); err != nil {
		return nil, fmt.Errorf("failed to create batch: %w", err)
	}

	ctx = logger.SetBatchID(ctx, batch.ID)
	ctx = logger.SetDataset(ctx, domain.DatasetReference)
	start := time.Now()

	logger.CtxInfo(ctx, "Storing %s as %d chunks of up to %d rows", filename, totalChunks, l.chunkSize)

	stored := l.storeChunks(ctx, batch.ID, rows)

	verified, countErr := l.chunks.CountByBatch(ctx, batch.ID)
	if countErr != nil {
		logger.CtxWarn(ctx, "Chunk count verification failed, trusting insert count: %v", countErr)
		verified = int64(stored)
	}

	status := domain.BatchStatusCompleted
	update := &repository.StatusUpdate{ProcessingSeconds: time.Since(start).Seconds()}
	if int(verified) != totalChunks {
		status = domain.BatchStatusError
		update.ErrorMessage = fmt.Sprintf("stored %d of %d chunks", verified, totalChunks)
		logger.CtxError(ctx, "Chunk count mismatch: stored %d, expected %d", verified, totalChunks)
	}
	if err := l.batches.UpdateStatus(ctx, batch.ID, status, update); err != nil {
		logger.CtxError(ctx, "Failed to finalize batch status: %v", err)
	}

	result := &ReferenceResult{
		BatchID:      batch.ID,
		Status:       string(status),
		RowsRead:     len(rows),
		TotalChunks:  totalChunks,
		ChunksStored: int(verified),
		Columns:      headers,
		Seconds:      time.Since(start).Seconds(),
	}
	if status == domain.BatchStatusError {
		return result, fmt.Errorf("reference load incomplete: %s", update.ErrorMessage)
	}

	logger.CtxInfo(ctx, "Reference load finished in %.2fs: %d rows in %d chunks", result.Seconds, len(rows), totalChunks)
	return result, nil
}

// storeChunks builds and inserts all chunks, grouping the insert calls
// and retrying a failed group chunk by chunk.
func (l *ReferenceLoader) storeChunks(ctx context.Context, batchID string, rows []domain.RowMap) int {
	var pending []*domain.Chunk
	stored := 0
	number := 1 // chunk numbering is 1-based

	flush := func() {
		if len(pending) == 0 {
			return
		}
		n, err := l.chunks.InsertMany(ctx, pending)
		if err != nil {
			logger.CtxWarn(ctx, "Group insert of %d chunks failed, retrying individually: %v", len(pending), err)
			n = 0
			for _, chunk := range pending {
				if insErr := l.chunks.Insert(ctx, chunk); insErr != nil {
					logger.CtxError(ctx, "Chunk %d could not be stored: %v", chunk.ChunkNumber, insErr)
					continue
				}
				n++
			}
		}
		stored += n
		pending = pending[:0]
	}

	for start := 0; start < len(rows); start += l.chunkSize {
		end := start + l.chunkSize
		if end > len(rows) {
			end = len(rows)
		}
		chunk, err := domain.NewChunk(batchID, number, rows[start:end])
		if err != nil {
			logger.CtxError(ctx, "Chunk %d could not be encoded: %v", number, err)
			number++
			continue
		}
		number++
		pending = append(pending, chunk)
		if len(pending) >= l.insertCallSize {
			flush()
		}
	}
	flush()

	return stored
}

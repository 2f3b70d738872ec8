package service

import (
	"context"
	"fmt"

	"github.com/mvieira/scanledger/internal/domain"
	"github.com/mvieira/scanledger/internal/logger"
)

const maxSampleErrors = 10

// RecordStore is the persistence surface the bulk writer needs.
type RecordStore interface {
	UpsertMany(ctx context.Context, records []*domain.ReconciledRecord) error
	UpsertOne(ctx context.Context, record *domain.ReconciledRecord) (created bool, err error)
	ExistingKeys(ctx context.Context, orderNumbers []string) (map[string]bool, error)
}

// WriteSummary reports the outcome of a bulk write. Upserted counts
// newly created rows, Updated counts replaced ones, and Failed counts
// records that could not be written even individually.
type WriteSummary struct {
	Upserted     int      `json:"upserted"`
	Updated      int      `json:"updated"`
	Failed       int      `json:"failed"`
	SampleErrors []string `json:"sample_errors,omitempty"`
}

// Attempted is the total number of records the writer tried to persist.
func (s *WriteSummary) Attempted() int {
	return s.Upserted + s.Updated + s.Failed
}

func (s *WriteSummary) addError(orderNumber string, err error) {
	s.Failed++
	if len(s.SampleErrors) < maxSampleErrors {
		s.SampleErrors = append(s.SampleErrors, fmt.Sprintf("%s: %v", orderNumber, err))
	}
}

// BulkWriter persists reconciled records in batches, falling back to
// per-record writes when a batch fails so one bad record cannot sink
// its batchmates.
type BulkWriter struct {
	store     RecordStore
	batchSize int
}

// NewBulkWriter creates a BulkWriter. batchSize values below 1 fall
// back to the default of 1000.
func NewBulkWriter(store RecordStore, batchSize int) *BulkWriter {
	if batchSize < 1 {
		batchSize = 1000
	}
	return &BulkWriter{store: store, batchSize: batchSize}
}

// Write persists all records and reports per-record outcomes. It never
// stops on a batch failure: failed batches degrade to individual
// writes, and individual failures are counted and sampled.
func (w *BulkWriter) Write(ctx context.Context, records []*domain.ReconciledRecord) *WriteSummary {
	summary := &WriteSummary{}
	if len(records) == 0 {
		return summary
	}

	for start := 0; start < len(records); start += w.batchSize {
		end := start + w.batchSize
		if end > len(records) {
			end = len(records)
		}
		w.writeBatch(ctx, records[start:end], summary)
	}

	logger.CtxInfo(ctx, "Bulk write done: %d inserted, %d updated, %d failed",
		summary.Upserted, summary.Updated, summary.Failed)
	return summary
}

func (w *BulkWriter) writeBatch(ctx context.Context, batch []*domain.ReconciledRecord, summary *WriteSummary) {
	keys := make([]string, len(batch))
	for i, rec := range batch {
		keys[i] = rec.OrderNumber
	}

	existing, keysErr := w.store.ExistingKeys(ctx, keys)
	if keysErr == nil {
		if err := w.store.UpsertMany(ctx, batch); err == nil {
			for _, rec := range batch {
				if existing[rec.OrderNumber] {
					summary.Updated++
				} else {
					summary.Upserted++
				}
			}
			return
		} else {
			logger.CtxWarn(ctx, "Batch upsert of %d records failed, retrying individually: %v", len(batch), err)
		}
	} else {
		logger.CtxWarn(ctx, "Existing-key lookup failed, retrying batch individually: %v", keysErr)
	}

	for _, rec := range batch {
		created, err := w.store.UpsertOne(ctx, rec)
		if err != nil {
			summary.addError(rec.OrderNumber, err)
			continue
		}
		if created {
			summary.Upserted++
		} else {
			summary.Updated++
		}
	}
}

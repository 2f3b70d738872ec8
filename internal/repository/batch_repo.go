package repository

import (
	"context"
	"time"

	"github.com/mvieira/scanledger/internal/domain"
	"gorm.io/gorm"
)

// BatchRepository is the upload ledger: one row per upload, created
// before any chunk or record write and moved to a terminal status by
// the orchestrator.
type BatchRepository struct {
	db *gorm.DB
}

// NewBatchRepository creates a new BatchRepository.
func NewBatchRepository(db *gorm.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

// Create inserts a new batch row in processing status.
func (r *BatchRepository) Create(ctx context.Context, batch *domain.Batch) error {
	return r.db.WithContext(ctx).Create(batch).Error
}

// StatusUpdate carries the optional fields of a terminal transition.
type StatusUpdate struct {
	ErrorMessage      string
	ProcessingSeconds float64
}

// UpdateStatus moves a batch to the given status.
func (r *BatchRepository) UpdateStatus(ctx context.Context, id string, status domain.BatchStatus, extra *StatusUpdate) error {
	updates := map[string]any{
		"status":     status,
		"updated_at": time.Now(),
	}
	if extra != nil {
		if extra.ErrorMessage != "" {
			updates["error_message"] = extra.ErrorMessage
		}
		if extra.ProcessingSeconds > 0 {
			updates["processing_seconds"] = extra.ProcessingSeconds
		}
	}
	return r.db.WithContext(ctx).Model(&domain.Batch{}).Where("id = ?", id).Updates(updates).Error
}

// GetByID retrieves a batch by its ID.
func (r *BatchRepository) GetByID(ctx context.Context, id string) (*domain.Batch, error) {
	var batch domain.Batch
	if err := r.db.WithContext(ctx).First(&batch, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &batch, nil
}

// List returns batches ordered most recent first, optionally filtered
// by dataset.
func (r *BatchRepository) List(ctx context.Context, dataset string, limit, offset int) ([]domain.Batch, error) {
	q := r.db.WithContext(ctx).Model(&domain.Batch{}).Order("created_at DESC")
	if dataset != "" {
		q = q.Where("dataset = ?", dataset)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var batches []domain.Batch
	if err := q.Offset(offset).Find(&batches).Error; err != nil {
		return nil, err
	}
	return batches, nil
}

// DeleteByDataset removes all batches of a dataset and returns the
// number of rows deleted.
func (r *BatchRepository) DeleteByDataset(ctx context.Context, dataset string) (int64, error) {
	res := r.db.WithContext(ctx).Where("dataset = ?", dataset).Delete(&domain.Batch{})
	return res.RowsAffected, res.Error
}

package repository

import (
	"context"
	"strings"
	"time"

	"github.com/mvieira/scanledger/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// recordUpdateColumns are the columns refreshed on conflict. created_at
// is deliberately absent so it survives re-ingestion.
var recordUpdateColumns = []string{
	"delivery_base", "dispatch_time", "driver", "signature_mark",
	"destination_zip", "problem_reasons", "recipient", "address_extra",
	"recipient_district", "destination_city", "segment", "scan_timestamp",
	"stalled_bucket", "scan_type", "digitizer", "scan_base", "has_driver",
	"updated_at",
}

// RecordRepository persists reconciled records keyed by order number.
type RecordRepository struct {
	db *gorm.DB
}

// NewRecordRepository creates a new RecordRepository.
func NewRecordRepository(db *gorm.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

// UpsertMany writes one unordered batch of records, inserting new order
// numbers and overwriting existing ones in place.
func (r *RecordRepository) UpsertMany(ctx context.Context, records []*domain.ReconciledRecord) error {
	if len(records) == 0 {
		return nil
	}
	now := time.Now()
	for _, rec := range records {
		rec.CreatedAt = now
		rec.UpdatedAt = now
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "order_number"}},
		DoUpdates: clause.AssignmentColumns(recordUpdateColumns),
	}).Create(&records).Error
}

// UpsertOne writes a single record, reporting whether it was created
// rather than updated.
func (r *RecordRepository) UpsertOne(ctx context.Context, rec *domain.ReconciledRecord) (bool, error) {
	now := time.Now()

	var existing domain.ReconciledRecord
	err := r.db.WithContext(ctx).First(&existing, "order_number = ?", rec.OrderNumber).Error
	if err == nil {
		rec.ID = existing.ID
		rec.CreatedAt = existing.CreatedAt
		rec.UpdatedAt = now
		return false, r.db.WithContext(ctx).Model(&existing).Select(recordUpdateColumns).Updates(rec).Error
	}
	if err != gorm.ErrRecordNotFound {
		return false, err
	}

	rec.CreatedAt = now
	rec.UpdatedAt = now
	return true, r.db.WithContext(ctx).Create(rec).Error
}

// ExistingKeys returns which of the given order numbers are already
// persisted. Used to split an upsert batch into created vs updated.
func (r *RecordRepository) ExistingKeys(ctx context.Context, keys []string) (map[string]bool, error) {
	existing := make(map[string]bool, len(keys))
	if len(keys) == 0 {
		return existing, nil
	}
	var found []string
	err := r.db.WithContext(ctx).Model(&domain.ReconciledRecord{}).
		Where("order_number IN ?", keys).
		Pluck("order_number", &found).Error
	if err != nil {
		return nil, err
	}
	for _, k := range found {
		existing[k] = true
	}
	return existing, nil
}

// RecordFilter narrows List results. Bases and Buckets hold the
// comma-separated filter values already split by the caller.
type RecordFilter struct {
	Bases   []string
	Buckets []string
	Limit   int
	Offset  int
}

// List returns reconciled records matching the filter, newest scans
// first.
func (r *RecordRepository) List(ctx context.Context, filter *RecordFilter) ([]domain.ReconciledRecord, int64, error) {
	q := r.db.WithContext(ctx).Model(&domain.ReconciledRecord{})
	if filter != nil {
		if len(filter.Bases) > 0 {
			q = q.Where("UPPER(delivery_base) IN ?", upperAll(filter.Bases))
		}
		if len(filter.Buckets) > 0 {
			q = q.Where("stalled_bucket IN ?", filter.Buckets)
		}
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q = q.Order("scan_timestamp DESC")
	if filter != nil {
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		q = q.Offset(filter.Offset)
	}

	var records []domain.ReconciledRecord
	if err := q.Find(&records).Error; err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// GetByOrderNumber retrieves one record by its upsert key.
func (r *RecordRepository) GetByOrderNumber(ctx context.Context, orderNumber string) (*domain.ReconciledRecord, error) {
	var rec domain.ReconciledRecord
	if err := r.db.WithContext(ctx).First(&rec, "order_number = ?", orderNumber).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

func upperAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToUpper(strings.TrimSpace(v))
	}
	return out
}

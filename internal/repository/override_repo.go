package repository

import (
	"context"
	"time"

	"github.com/mvieira/scanledger/internal/domain"
	"gorm.io/gorm"
)

// OverrideRepository stores operator-set driver statuses keyed by the
// composite (driver, base). An empty base addresses only the row saved
// without a base, never any base.
type OverrideRepository struct {
	db *gorm.DB
}

// NewOverrideRepository creates a new OverrideRepository.
func NewOverrideRepository(db *gorm.DB) *OverrideRepository {
	return &OverrideRepository{db: db}
}

// Get retrieves the override for (driver, base), or nil when none is
// set.
func (r *OverrideRepository) Get(ctx context.Context, driver, base string) (*domain.DriverStatusOverride, error) {
	var override domain.DriverStatusOverride
	err := r.db.WithContext(ctx).
		First(&override, "driver = ? AND base = ?", driver, base).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &override, nil
}

// Set creates or updates the override for (driver, base).
func (r *OverrideRepository) Set(ctx context.Context, driver, base, status, note string) (*domain.DriverStatusOverride, error) {
	existing, err := r.Get(ctx, driver, base)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if existing != nil {
		existing.Status = status
		existing.Note = note
		existing.UpdatedAt = now
		if err := r.db.WithContext(ctx).Save(existing).Error; err != nil {
			return nil, err
		}
		return existing, nil
	}

	override := &domain.DriverStatusOverride{
		Driver:    driver,
		Base:      base,
		Status:    status,
		Note:      note,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.db.WithContext(ctx).Create(override).Error; err != nil {
		return nil, err
	}
	return override, nil
}

// Delete removes the override for (driver, base). Missing rows are not
// an error; a null-status write is a delete.
func (r *OverrideRepository) Delete(ctx context.Context, driver, base string) error {
	return r.db.WithContext(ctx).
		Where("driver = ? AND base = ?", driver, base).
		Delete(&domain.DriverStatusOverride{}).Error
}

// ListByDriver returns every override stored for one driver, across
// bases.
func (r *OverrideRepository) ListByDriver(ctx context.Context, driver string) ([]domain.DriverStatusOverride, error) {
	var overrides []domain.DriverStatusOverride
	if err := r.db.WithContext(ctx).Where("driver = ?", driver).Order("base ASC").Find(&overrides).Error; err != nil {
		return nil, err
	}
	return overrides, nil
}

// ListAll returns every stored override.
func (r *OverrideRepository) ListAll(ctx context.Context) ([]domain.DriverStatusOverride, error) {
	var overrides []domain.DriverStatusOverride
	if err := r.db.WithContext(ctx).Order("driver ASC, base ASC").Find(&overrides).Error; err != nil {
		return nil, err
	}
	return overrides, nil
}

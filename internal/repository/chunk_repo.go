package repository

import (
	"context"

	"github.com/mvieira/scanledger/internal/domain"
	"gorm.io/gorm"
)

// ChunkRepository is the chunk store: fixed-size row segments tied to a
// parent batch. Chunks are write-once; reads stream in insertion order.
type ChunkRepository struct {
	db *gorm.DB
}

// NewChunkRepository creates a new ChunkRepository.
func NewChunkRepository(db *gorm.DB) *ChunkRepository {
	return &ChunkRepository{db: db}
}

// InsertMany writes a group of chunk documents in one call and returns
// the number written. Either the whole group lands or the call errors;
// callers fall back to Insert per chunk on failure.
func (r *ChunkRepository) InsertMany(ctx context.Context, chunks []*domain.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}
	if err := r.db.WithContext(ctx).Create(&chunks).Error; err != nil {
		return 0, err
	}
	return len(chunks), nil
}

// Insert writes a single chunk document.
func (r *ChunkRepository) Insert(ctx context.Context, chunk *domain.Chunk) error {
	return r.db.WithContext(ctx).Create(chunk).Error
}

// CountByBatch returns the number of chunks written for a batch.
func (r *ChunkRepository) CountByBatch(ctx context.Context, batchID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Chunk{}).Where("batch_id = ?", batchID).Count(&count).Error
	return count, err
}

// Count returns the total number of stored chunks.
func (r *ChunkRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Chunk{}).Count(&count).Error
	return count, err
}

// EachChunk streams every stored chunk in insertion order, loading a
// bounded window at a time so a large reference table never sits in
// memory at once. The callback returns false to stop early.
func (r *ChunkRepository) EachChunk(ctx context.Context, fn func(*domain.Chunk) (bool, error)) error {
	const window = 50

	var lastID uint
	for {
		var chunks []domain.Chunk
		err := r.db.WithContext(ctx).
			Where("id > ?", lastID).
			Order("id ASC").
			Limit(window).
			Find(&chunks).Error
		if err != nil {
			return err
		}
		if len(chunks) == 0 {
			return nil
		}
		for i := range chunks {
			lastID = chunks[i].ID
			keepGoing, err := fn(&chunks[i])
			if err != nil {
				return err
			}
			if !keepGoing {
				return nil
			}
		}
	}
}

// DeleteAll removes every chunk and returns the number of rows deleted.
func (r *ChunkRepository) DeleteAll(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).Where("1 = 1").Delete(&domain.Chunk{})
	return res.RowsAffected, res.Error
}

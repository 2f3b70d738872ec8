package domain

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Chunk is one bounded-size segment of an upload's rows, stored as a
// single document. Chunks are immutable once written; the set of chunks
// for a batch is the batch's full row payload.
type Chunk struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	BatchID     string         `gorm:"type:text;not null;index" json:"batch_id"`
	ChunkNumber int            `gorm:"not null" json:"chunk_number"`
	Rows        datatypes.JSON `gorm:"not null" json:"rows"`
	RowCount    int            `gorm:"not null" json:"row_count"`
	CreatedAt   time.Time      `json:"created_at"`
}

// TableName returns the database table name for Chunk.
func (Chunk) TableName() string {
	return "reference_chunks"
}

// NewChunk builds a chunk document from a slice of rows.
func NewChunk(batchID string, number int, rows []RowMap) (*Chunk, error) {
	payload, err := json.Marshal(rows)
	if err != nil {
		return nil, err
	}
	return &Chunk{
		BatchID:     batchID,
		ChunkNumber: number,
		Rows:        datatypes.JSON(payload),
		RowCount:    len(rows),
		CreatedAt:   time.Now(),
	}, nil
}

// DecodeRows unmarshals the chunk's JSON payload back into row maps.
func (c *Chunk) DecodeRows() ([]RowMap, error) {
	var rows []RowMap
	if err := json.Unmarshal(c.Rows, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

package domain

import "time"

// BatchStatus represents the terminal-state machine of one upload.
// A batch moves from processing to exactly one of completed or error;
// a batch stuck in processing longer than an operator threshold is
// considered abandoned (there is no heartbeat).
type BatchStatus string

const (
	BatchStatusProcessing BatchStatus = "processing"
	BatchStatusCompleted  BatchStatus = "completed"
	BatchStatusError      BatchStatus = "error"
)

// Dataset selects which upload path a batch belongs to.
const (
	DatasetReference = "reference"
	DatasetScans     = "scans"
)

// Batch is the ledger row tracking one upload's progress and outcome.
type Batch struct {
	ID                string      `gorm:"type:text;primaryKey" json:"id"`
	Dataset           string      `gorm:"type:text;not null;index" json:"dataset"`
	Filename          string      `gorm:"type:text;not null" json:"filename"`
	TotalItems        int         `gorm:"default:0" json:"total_items"`
	ChunkSize         int         `gorm:"default:0" json:"chunk_size"`
	TotalChunks       int         `gorm:"default:0" json:"total_chunks"`
	ColumnsFound      StringArray `gorm:"type:text" json:"columns_found"`
	Status            BatchStatus `gorm:"type:text;index;default:processing" json:"status"`
	ErrorMessage      string      `gorm:"type:text" json:"error_message,omitempty"`
	ProcessingSeconds float64     `json:"processing_seconds,omitempty"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
}

// TableName returns the database table name for Batch.
func (Batch) TableName() string {
	return "upload_batches"
}

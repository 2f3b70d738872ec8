package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/mvieira/scanledger/internal/domain"
)

// fakeRecordStore simulates the record table in memory. Batch calls
// can be forced to fail, and individual orders can be poisoned.
type fakeRecordStore struct {
	rows         map[string]bool
	failBatches  bool
	poisonedKeys map[string]bool
	batchCalls   int
	singleCalls  int
}

func newFakeRecordStore() *fakeRecordStore {
	return &fakeRecordStore{
		rows:         make(map[string]bool),
		poisonedKeys: make(map[string]bool),
	}
}

func (s *fakeRecordStore) UpsertMany(ctx context.Context, records []*domain.ReconciledRecord) error {
	s.batchCalls++
	if s.failBatches {
		return errors.New("bulk write rejected")
	}
	for _, rec := range records {
		s.rows[rec.OrderNumber] = true
	}
	return nil
}

func (s *fakeRecordStore) UpsertOne(ctx context.Context, rec *domain.ReconciledRecord) (bool, error) {
	s.singleCalls++
	if s.poisonedKeys[rec.OrderNumber] {
		return false, errors.New("constraint violation")
	}
	created := !s.rows[rec.OrderNumber]
	s.rows[rec.OrderNumber] = true
	return created, nil
}

func (s *fakeRecordStore) ExistingKeys(ctx context.Context, keys []string) (map[string]bool, error) {
	existing := make(map[string]bool)
	for _, k := range keys {
		if s.rows[k] {
			existing[k] = true
		}
	}
	return existing, nil
}

func makeRecords(n int) []*domain.ReconciledRecord {
	records := make([]*domain.ReconciledRecord, n)
	for i := range records {
		records[i] = &domain.ReconciledRecord{OrderNumber: fmt.Sprintf("order-%03d", i)}
	}
	return records
}

// TestWriteBatchPath verifies the happy path uses batch writes and
// splits upserted/updated via the existing-key lookup
func TestWriteBatchPath(t *testing.T) {
	store := newFakeRecordStore()
	store.rows["order-000"] = true
	store.rows["order-001"] = true

	writer := NewBulkWriter(store, 10)
	summary := writer.Write(context.Background(), makeRecords(25))

	if summary.Upserted != 23 {
		t.Errorf("Upserted = %d, want 23", summary.Upserted)
	}
	if summary.Updated != 2 {
		t.Errorf("Updated = %d, want 2", summary.Updated)
	}
	if summary.Failed != 0 {
		t.Errorf("Failed = %d, want 0", summary.Failed)
	}
	if store.batchCalls != 3 {
		t.Errorf("batch calls = %d, want 3 (25 records / size 10)", store.batchCalls)
	}
	if store.singleCalls != 0 {
		t.Errorf("single calls = %d, want 0", store.singleCalls)
	}
}

// TestWriteFallsBackPerRecord verifies a failed batch degrades to
// individual writes and keeps going past poisoned records
func TestWriteFallsBackPerRecord(t *testing.T) {
	store := newFakeRecordStore()
	store.failBatches = true
	store.poisonedKeys["order-003"] = true
	store.poisonedKeys["order-017"] = true

	writer := NewBulkWriter(store, 50)
	summary := writer.Write(context.Background(), makeRecords(50))

	if store.singleCalls != 50 {
		t.Errorf("single calls = %d, want 50 (every record retried)", store.singleCalls)
	}
	if summary.Failed != 2 {
		t.Errorf("Failed = %d, want 2", summary.Failed)
	}
	if got := summary.Upserted + summary.Updated + summary.Failed; got != 50 {
		t.Errorf("accounted records = %d, want 50", got)
	}
	if len(summary.SampleErrors) != 2 {
		t.Errorf("SampleErrors = %d entries, want 2", len(summary.SampleErrors))
	}
	if !strings.Contains(summary.SampleErrors[0], "order-003") {
		t.Errorf("first sample error %q should name order-003", summary.SampleErrors[0])
	}
}

// TestWriteSampleErrorsCapped verifies error samples stop at the cap
// while the failure count keeps climbing
func TestWriteSampleErrorsCapped(t *testing.T) {
	store := newFakeRecordStore()
	store.failBatches = true
	records := makeRecords(30)
	for _, rec := range records {
		store.poisonedKeys[rec.OrderNumber] = true
	}

	writer := NewBulkWriter(store, 10)
	summary := writer.Write(context.Background(), records)

	if summary.Failed != 30 {
		t.Errorf("Failed = %d, want 30", summary.Failed)
	}
	if len(summary.SampleErrors) != maxSampleErrors {
		t.Errorf("SampleErrors = %d entries, want %d", len(summary.SampleErrors), maxSampleErrors)
	}
}

func TestWriteEmptyInput(t *testing.T) {
	store := newFakeRecordStore()
	writer := NewBulkWriter(store, 10)

	summary := writer.Write(context.Background(), nil)

	if summary.Attempted() != 0 {
		t.Errorf("Attempted = %d, want 0", summary.Attempted())
	}
	if store.batchCalls != 0 || store.singleCalls != 0 {
		t.Error("empty input should not touch the store")
	}
}

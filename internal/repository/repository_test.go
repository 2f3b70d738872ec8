package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mvieira/scanledger/internal/domain"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}
	if err := db.AutoMigrate(
		&domain.Batch{},
		&domain.Chunk{},
		&domain.ReconciledRecord{},
		&domain.DriverStatusOverride{},
	); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func testRecord(order, base string, scanTime time.Time) *domain.ReconciledRecord {
	return &domain.ReconciledRecord{
		OrderNumber:   order,
		DeliveryBase:  base,
		Driver:        "Carlos",
		HasDriver:     true,
		ScanTimestamp: &scanTime,
	}
}

// TestRecordUpsertIdempotence verifies that re-writing the same orders
// leaves one row per order with the latest values
func TestRecordUpsertIdempotence(t *testing.T) {
	ctx := context.Background()
	repo := NewRecordRepository(testDB(t))

	first := time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)
	records := []*domain.ReconciledRecord{
		testRecord("100", "SP-01", first),
		testRecord("101", "SP-01", first),
	}
	if err := repo.UpsertMany(ctx, records); err != nil {
		t.Fatalf("first UpsertMany failed: %v", err)
	}

	// Second run: same orders, newer scan, one changed base.
	second := first.Add(48 * time.Hour)
	again := []*domain.ReconciledRecord{
		testRecord("100", "RJ-02", second),
		testRecord("101", "SP-01", second),
	}
	if err := repo.UpsertMany(ctx, again); err != nil {
		t.Fatalf("second UpsertMany failed: %v", err)
	}

	existing, err := repo.ExistingKeys(ctx, []string{"100", "101", "102"})
	if err != nil {
		t.Fatalf("ExistingKeys failed: %v", err)
	}
	if !existing["100"] || !existing["101"] || existing["102"] {
		t.Errorf("ExistingKeys = %v, want 100 and 101 only", existing)
	}

	all, total, err := repo.List(ctx, nil)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 2 || len(all) != 2 {
		t.Fatalf("List returned %d rows (total %d), want 2", len(all), total)
	}

	rec, err := repo.GetByOrderNumber(ctx, "100")
	if err != nil {
		t.Fatalf("GetByOrderNumber failed: %v", err)
	}
	if rec.DeliveryBase != "RJ-02" {
		t.Errorf("DeliveryBase = %q, want RJ-02 (second run should win)", rec.DeliveryBase)
	}
	if !rec.ScanTimestamp.Equal(second) {
		t.Errorf("ScanTimestamp = %v, want %v", rec.ScanTimestamp, second)
	}
}

// TestUpsertOneReportsCreated verifies the created-vs-updated report of
// the per-record fallback path
func TestUpsertOneReportsCreated(t *testing.T) {
	ctx := context.Background()
	repo := NewRecordRepository(testDB(t))
	ts := time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)

	created, err := repo.UpsertOne(ctx, testRecord("100", "SP-01", ts))
	if err != nil {
		t.Fatalf("UpsertOne failed: %v", err)
	}
	if !created {
		t.Error("first write should report created")
	}

	created, err = repo.UpsertOne(ctx, testRecord("100", "RJ-02", ts))
	if err != nil {
		t.Fatalf("second UpsertOne failed: %v", err)
	}
	if created {
		t.Error("second write should report updated")
	}

	rec, err := repo.GetByOrderNumber(ctx, "100")
	if err != nil {
		t.Fatalf("GetByOrderNumber failed: %v", err)
	}
	if rec.DeliveryBase != "RJ-02" {
		t.Errorf("DeliveryBase = %q, want RJ-02", rec.DeliveryBase)
	}
}

// TestRecordListFilters verifies base filtering is case-insensitive and
// bucket filtering is exact
func TestRecordListFilters(t *testing.T) {
	ctx := context.Background()
	repo := NewRecordRepository(testDB(t))
	ts := time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)

	bucket := "Exceed 3 days with no track"
	recA := testRecord("100", "SP-01", ts)
	recA.StalledBucket = &bucket
	recB := testRecord("101", "RJ-02", ts)

	if err := repo.UpsertMany(ctx, []*domain.ReconciledRecord{recA, recB}); err != nil {
		t.Fatalf("UpsertMany failed: %v", err)
	}

	got, total, err := repo.List(ctx, &RecordFilter{Bases: []string{"sp-01"}})
	if err != nil {
		t.Fatalf("List by base failed: %v", err)
	}
	if total != 1 || len(got) != 1 || got[0].OrderNumber != "100" {
		t.Errorf("List(bases=sp-01) = %d rows, want [100]", len(got))
	}

	got, total, err = repo.List(ctx, &RecordFilter{Buckets: []string{bucket}})
	if err != nil {
		t.Fatalf("List by bucket failed: %v", err)
	}
	if total != 1 || len(got) != 1 || got[0].OrderNumber != "100" {
		t.Errorf("List(buckets=%q) = %d rows, want [100]", bucket, len(got))
	}
}

// TestChunkStreamAndEarlyStop verifies insertion-order streaming and
// the early-stop contract of EachChunk
func TestChunkStreamAndEarlyStop(t *testing.T) {
	ctx := context.Background()
	repo := NewChunkRepository(testDB(t))

	var chunks []*domain.Chunk
	for i := 1; i <= 5; i++ {
		chunk, err := domain.NewChunk("b1", i, []domain.RowMap{{"Pedido": fmt.Sprintf("%d", i)}})
		if err != nil {
			t.Fatalf("NewChunk failed: %v", err)
		}
		chunks = append(chunks, chunk)
	}
	if n, err := repo.InsertMany(ctx, chunks); err != nil || n != 5 {
		t.Fatalf("InsertMany = (%d, %v), want (5, nil)", n, err)
	}

	var seen []int
	err := repo.EachChunk(ctx, func(c *domain.Chunk) (bool, error) {
		seen = append(seen, c.ChunkNumber)
		return len(seen) < 3, nil
	})
	if err != nil {
		t.Fatalf("EachChunk failed: %v", err)
	}
	if len(seen) != 3 || seen[0] != 1 || seen[1] != 2 || seen[2] != 3 {
		t.Errorf("EachChunk visited %v, want [1 2 3]", seen)
	}

	count, err := repo.CountByBatch(ctx, "b1")
	if err != nil || count != 5 {
		t.Errorf("CountByBatch = (%d, %v), want (5, nil)", count, err)
	}

	deleted, err := repo.DeleteAll(ctx)
	if err != nil || deleted != 5 {
		t.Errorf("DeleteAll = (%d, %v), want (5, nil)", deleted, err)
	}
}

// TestBatchLedgerLifecycle verifies creation, terminal transition and
// listing of the upload ledger
func TestBatchLedgerLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewBatchRepository(testDB(t))

	batch := &domain.Batch{
		ID:       "batch-1",
		Dataset:  domain.DatasetScans,
		Filename: "scans.xlsx",
		Status:   domain.BatchStatusProcessing,
	}
	if err := repo.Create(ctx, batch); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	err := repo.UpdateStatus(ctx, "batch-1", domain.BatchStatusError, &StatusUpdate{
		ErrorMessage:      "all 10 record writes failed",
		ProcessingSeconds: 1.5,
	})
	if err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}

	got, err := repo.GetByID(ctx, "batch-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Status != domain.BatchStatusError {
		t.Errorf("Status = %q, want error", got.Status)
	}
	if got.ErrorMessage == "" || got.ProcessingSeconds != 1.5 {
		t.Errorf("terminal fields not persisted: %+v", got)
	}

	batches, err := repo.List(ctx, domain.DatasetScans, 10, 0)
	if err != nil || len(batches) != 1 {
		t.Errorf("List = (%d, %v), want 1 batch", len(batches), err)
	}
	batches, err = repo.List(ctx, domain.DatasetReference, 10, 0)
	if err != nil || len(batches) != 0 {
		t.Errorf("List(reference) = (%d, %v), want 0 batches", len(batches), err)
	}
}

// TestOverrideSetGetDelete verifies the (driver, base) keyed lifecycle
func TestOverrideSetGetDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewOverrideRepository(testDB(t))

	override, err := repo.Set(ctx, "Carlos", "SP-01", "Retornou", "confirmado por telefone")
	if err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if override.Status != "Retornou" {
		t.Errorf("Status = %q, want Retornou", override.Status)
	}

	// Overwrite in place.
	override, err = repo.Set(ctx, "Carlos", "SP-01", "Não retornou", "")
	if err != nil {
		t.Fatalf("second Set failed: %v", err)
	}
	if override.Status != "Não retornou" {
		t.Errorf("Status = %q, want Não retornou", override.Status)
	}

	all, err := repo.ListAll(ctx)
	if err != nil || len(all) != 1 {
		t.Fatalf("ListAll = (%d, %v), want 1 override", len(all), err)
	}

	// Same driver at another base is a distinct key.
	got, err := repo.Get(ctx, "Carlos", "RJ-02")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != nil {
		t.Errorf("Get at other base = %+v, want nil", got)
	}

	if err := repo.Delete(ctx, "Carlos", "SP-01"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	got, err = repo.Get(ctx, "Carlos", "SP-01")
	if err != nil || got != nil {
		t.Errorf("Get after delete = (%+v, %v), want (nil, nil)", got, err)
	}
}

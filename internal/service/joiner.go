package service

import (
	"context"
	"strings"
	"time"

	"github.com/mvieira/scanledger/internal/domain"
	"github.com/mvieira/scanledger/internal/logger"
)

// ChunkSource streams stored reference chunks in insertion order. The
// callback returns false to stop the scan early.
type ChunkSource interface {
	EachChunk(ctx context.Context, fn func(*domain.Chunk) (bool, error)) error
}

// Joiner enriches resolved scans against the reference dataset and
// applies the driver-assignment rule.
type Joiner struct {
	source ChunkSource
}

// NewJoiner creates a Joiner over the given chunk source.
func NewJoiner(source ChunkSource) *Joiner {
	return &Joiner{source: source}
}

// JoinStats counts the join outcome.
type JoinStats struct {
	WantedKeys    int
	IndexedKeys   int
	ChunksScanned int
	Unmatched     int
}

// Join scans the reference store once, indexes only the wanted order
// numbers, and merges each resolved scan with its reference row. Scans
// with no reference counterpart are dropped: downstream consumers
// assume the enrichment fields are present.
func (j *Joiner) Join(ctx context.Context, resolved []ResolvedScan, now time.Time) ([]*domain.ReconciledRecord, JoinStats, error) {
	stats := JoinStats{WantedKeys: len(resolved)}

	wanted := make(map[string]bool, len(resolved))
	for _, scan := range resolved {
		wanted[scan.OrderNumber] = true
	}

	index := make(map[string]domain.RowMap, len(wanted))
	err := j.source.EachChunk(ctx, func(chunk *domain.Chunk) (bool, error) {
		stats.ChunksScanned++
		rows, err := chunk.DecodeRows()
		if err != nil {
			// One undecodable chunk loses its rows, not the run.
			logger.CtxWarn(ctx, "Skipping undecodable reference chunk %d of batch %s: %v",
				chunk.ChunkNumber, chunk.BatchID, err)
			return true, nil
		}
		for _, row := range rows {
			orderNumber := OrderNumber(row)
			if orderNumber == "" || !wanted[orderNumber] {
				continue
			}
			if _, dup := index[orderNumber]; dup {
				continue
			}
			index[orderNumber] = row
			if len(index) == len(wanted) {
				// Every wanted key found: stop scanning. This is a
				// shortcut only; correctness never depends on it.
				return false, nil
			}
		}
		return true, nil
	})
	if err != nil {
		return nil, stats, err
	}
	stats.IndexedKeys = len(index)

	records := make([]*domain.ReconciledRecord, 0, len(resolved))
	for _, scan := range resolved {
		ref, ok := index[scan.OrderNumber]
		if !ok {
			stats.Unmatched++
			logger.CtxDebug(ctx, "Order %s has no reference counterpart, dropped", scan.OrderNumber)
			continue
		}
		records = append(records, mergeRecord(scan, ref, now))
	}

	logger.CtxInfo(ctx, "Reference join: %d/%d orders matched across %d chunks (%d unmatched)",
		stats.IndexedKeys, stats.WantedKeys, stats.ChunksScanned, stats.Unmatched)

	return records, stats, nil
}

// mergeRecord merges the authoritative scan with its reference row and
// decides the driver assignment.
func mergeRecord(scan ResolvedScan, ref domain.RowMap, now time.Time) *domain.ReconciledRecord {
	courier := Courier(scan.Row)
	digitizer := Digitizer(scan.Row)
	scanType := ScanType(scan.Row)
	scanBase := ScanBase(scan.Row)

	refResponsible := Responsible(ref)
	refBase := DeliveryBase(ref)

	hasDriver, driver := decideDriver(courier, digitizer, scanType, scanBase, refResponsible, refBase)

	deliveryBase := refBase
	if deliveryBase == "" {
		deliveryBase = scanBase
	}

	scanTime := scan.ScanTime
	return &domain.ReconciledRecord{
		OrderNumber:       scan.OrderNumber,
		DeliveryBase:      deliveryBase,
		DispatchTime:      ref.String("Horário de saída para entrega"),
		Driver:            driver,
		SignatureMark:     ref.String("Marca de assinatura"),
		DestinationZip:    ref.String("CEP destino"),
		ProblemReasons:    ref.String("Motivos dos pacotes problemáticos"),
		Recipient:         ref.String("Destinatário"),
		AddressExtra:      ref.String("Complemento"),
		RecipientDistrict: ref.String("Distrito destinatário"),
		DestinationCity:   DestinationCity(ref),
		Segment:           ref.String("3 Segmentos"),
		ScanTimestamp:     &scanTime,
		StalledBucket:     StalledBucket(&scanTime, now),
		ScanType:          scanType,
		Digitizer:         digitizer,
		ScanBase:          scanBase,
		HasDriver:         hasDriver,
	}
}

// decideDriver applies the three-tier driver rule, gated on the scan
// base matching the reference delivery base. A scan recorded at a
// facility other than the shipment's assigned base does not represent
// custody by that base's driver, so a base mismatch (or a missing base
// on either side) forces "no driver" regardless of tier.
//
// Tier 1: the scan's courier field is filled - that courier has it.
// Tier 2: the scan's digitizer equals the reference responsible - the
// responsible has it.
// Tier 3: the scan is a problem-package scan - the reference
// responsible has it, falling back to the digitizer.
func decideDriver(courier, digitizer, scanType, scanBase, refResponsible, refBase string) (bool, string) {
	if !equalNormalized(scanBase, refBase) {
		return false, ""
	}

	if courier != "" {
		return true, courier
	}

	if equalNormalized(digitizer, refResponsible) {
		return true, refResponsible
	}

	if isProblemScan(scanType) {
		if refResponsible != "" {
			return true, refResponsible
		}
		if digitizer != "" {
			return true, digitizer
		}
	}

	return false, ""
}

// isProblemScan matches the carrier's problem-package scan labels.
func isProblemScan(scanType string) bool {
	lower := strings.ToLower(strings.TrimSpace(scanType))
	return strings.Contains(lower, "bipe de pacote problemático") ||
		strings.Contains(lower, "pacote problemático")
}

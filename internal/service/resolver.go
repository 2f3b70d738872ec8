package service

import (
	"context"
	"regexp"
	"sort"
	"time"

	"github.com/mvieira/scanledger/internal/domain"
	"github.com/mvieira/scanledger/internal/logger"
)

// childOrderPatterns mark sub-items of a parent shipment: a dotted,
// dashed or underscored numeric suffix, or a trailing letter. Child
// shipments are never reconciled; only the parent is.
var childOrderPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\.\d+$`),
	regexp.MustCompile(`-\d+$`),
	regexp.MustCompile(`_\d+$`),
	regexp.MustCompile(`[A-Za-z]$`),
}

// IsChildOrder reports whether the order number denotes a child
// shipment.
func IsChildOrder(orderNumber string) bool {
	if orderNumber == "" {
		return false
	}
	for _, p := range childOrderPatterns {
		if p.MatchString(orderNumber) {
			return true
		}
	}
	return false
}

// ResolvedScan is the single authoritative scan chosen for one order:
// the most recent parseable scan, regardless of whether it carries a
// courier. A recent scan with no courier means the shipment currently
// has no driver; that is the correct state, not a defect.
type ResolvedScan struct {
	OrderNumber string
	Row         domain.RowMap
	ScanTime    time.Time
	HasCourier  bool
}

// ResolveStats counts what the resolver saw and dropped.
type ResolveStats struct {
	RowsIn        int
	ChildDropped  int
	NoTimestamp   int
	OrdersGrouped int
}

type scanRow struct {
	row      domain.RowMap
	scanTime time.Time
}

// Resolve reduces the raw rows of one upload to one authoritative scan
// per parent order number.
func Resolve(ctx context.Context, rows []domain.RowMap) ([]ResolvedScan, ResolveStats) {
	stats := ResolveStats{RowsIn: len(rows)}

	groups := make(map[string][]scanRow)
	var order []string // first-seen order for deterministic output

	for _, row := range rows {
		orderNumber := OrderNumber(row)
		if orderNumber == "" {
			continue
		}
		if IsChildOrder(orderNumber) {
			stats.ChildDropped++
			continue
		}

		scanTime, ok := ParseScanTimestamp(ScanTime(row))
		if !ok {
			stats.NoTimestamp++
			continue
		}

		if _, seen := groups[orderNumber]; !seen {
			order = append(order, orderNumber)
		}
		groups[orderNumber] = append(groups[orderNumber], scanRow{row: row, scanTime: scanTime})
	}
	stats.OrdersGrouped = len(groups)

	resolved := make([]ResolvedScan, 0, len(groups))
	for _, orderNumber := range order {
		scans := groups[orderNumber]

		// Stable sort: ties keep input order.
		sort.SliceStable(scans, func(i, j int) bool {
			return scans[i].scanTime.After(scans[j].scanTime)
		})

		best := scans[0]
		hasCourier := Courier(best.row) != ""
		if !hasCourier {
			logger.CtxDebug(ctx, "Most recent scan for order %s has no courier assigned", orderNumber)
		}

		resolved = append(resolved, ResolvedScan{
			OrderNumber: orderNumber,
			Row:         best.row,
			ScanTime:    best.scanTime,
			HasCourier:  hasCourier,
		})
	}

	return resolved, stats
}

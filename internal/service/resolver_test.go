package service

import (
	"context"
	"testing"

	"github.com/mvieira/scanledger/internal/domain"
)

// TestIsChildOrder verifies the child-shipment suffix patterns
func TestIsChildOrder(t *testing.T) {
	testCases := []struct {
		name        string
		orderNumber string
		want        bool
	}{
		{name: "plain numeric", orderNumber: "123456789", want: false},
		{name: "short numeric", orderNumber: "123", want: false},
		{name: "dotted suffix", orderNumber: "123.2", want: true},
		{name: "dashed suffix", orderNumber: "123-001", want: true},
		{name: "underscore suffix", orderNumber: "123_9", want: true},
		{name: "trailing letter", orderNumber: "123A", want: true},
		{name: "trailing lowercase letter", orderNumber: "123a", want: true},
		{name: "letter in the middle", orderNumber: "12A34", want: false},
		{name: "empty", orderNumber: "", want: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsChildOrder(tc.orderNumber); got != tc.want {
				t.Errorf("IsChildOrder(%q) = %v, want %v", tc.orderNumber, got, tc.want)
			}
		})
	}
}

func scanRowFor(order, ts, courier string) domain.RowMap {
	return domain.RowMap{
		"Número de pedido JMS":         order,
		"Tempo de digitalização":       ts,
		"Correio de coleta ou entrega": courier,
	}
}

// TestResolvePicksMostRecent verifies that the most recent scan wins,
// even when an older scan carries a courier and the recent one does not
func TestResolvePicksMostRecent(t *testing.T) {
	rows := []domain.RowMap{
		scanRowFor("100", "2026-01-05 08:00:00", "Carlos"),
		scanRowFor("100", "2026-01-07 14:30:00", ""),
		scanRowFor("100", "2026-01-06 09:00:00", "Ana"),
	}

	resolved, stats := Resolve(context.Background(), rows)

	if len(resolved) != 1 {
		t.Fatalf("Resolve returned %d scans, want 1", len(resolved))
	}
	got := resolved[0]
	if got.OrderNumber != "100" {
		t.Errorf("OrderNumber = %q, want %q", got.OrderNumber, "100")
	}
	if got.ScanTime.Day() != 7 {
		t.Errorf("Resolved scan day = %d, want 7 (most recent)", got.ScanTime.Day())
	}
	if got.HasCourier {
		t.Error("Most recent scan has no courier, HasCourier should be false")
	}
	if stats.OrdersGrouped != 1 {
		t.Errorf("OrdersGrouped = %d, want 1", stats.OrdersGrouped)
	}
}

// TestResolveDropsChildrenAndBadTimestamps verifies the two drop paths
func TestResolveDropsChildrenAndBadTimestamps(t *testing.T) {
	rows := []domain.RowMap{
		scanRowFor("200", "2026-01-05 08:00:00", "Carlos"),
		scanRowFor("200-1", "2026-01-05 08:00:00", "Carlos"),
		scanRowFor("200.2", "2026-01-05 08:00:00", "Carlos"),
		scanRowFor("201", "not a date", "Ana"),
		scanRowFor("202", "", "Ana"),
	}

	resolved, stats := Resolve(context.Background(), rows)

	if len(resolved) != 1 {
		t.Fatalf("Resolve returned %d scans, want 1", len(resolved))
	}
	if resolved[0].OrderNumber != "200" {
		t.Errorf("OrderNumber = %q, want %q", resolved[0].OrderNumber, "200")
	}
	if stats.ChildDropped != 2 {
		t.Errorf("ChildDropped = %d, want 2", stats.ChildDropped)
	}
	if stats.NoTimestamp != 2 {
		t.Errorf("NoTimestamp = %d, want 2", stats.NoTimestamp)
	}
}

// TestResolveTieKeepsInputOrder verifies that identical timestamps
// resolve to the earliest row in the file
func TestResolveTieKeepsInputOrder(t *testing.T) {
	rows := []domain.RowMap{
		scanRowFor("300", "2026-01-05 08:00:00", "First"),
		scanRowFor("300", "2026-01-05 08:00:00", "Second"),
	}

	resolved, _ := Resolve(context.Background(), rows)

	if len(resolved) != 1 {
		t.Fatalf("Resolve returned %d scans, want 1", len(resolved))
	}
	if courier := Courier(resolved[0].Row); courier != "First" {
		t.Errorf("Tie-break kept courier %q, want %q (input order)", courier, "First")
	}
}

// TestParseScanTimestamp verifies the supported timestamp layouts
func TestParseScanTimestamp(t *testing.T) {
	testCases := []struct {
		name string
		raw  string
		ok   bool
	}{
		{name: "datetime", raw: "2026-01-05 08:00:00", ok: true},
		{name: "date only", raw: "2026-01-05", ok: true},
		{name: "brazilian datetime", raw: "05/01/2026 08:00:00", ok: true},
		{name: "brazilian date", raw: "05/01/2026", ok: true},
		{name: "padded", raw: "  2026-01-05  ", ok: true},
		{name: "garbage", raw: "yesterday", ok: false},
		{name: "empty", raw: "", ok: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, ok := ParseScanTimestamp(tc.raw); ok != tc.ok {
				t.Errorf("ParseScanTimestamp(%q) ok = %v, want %v", tc.raw, ok, tc.ok)
			}
		})
	}
}

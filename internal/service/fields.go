package service

import (
	"strings"
	"time"

	"github.com/mvieira/scanledger/internal/domain"
)

// Column synonym tables. The carrier's exports are inconsistent about
// header spellings across report versions, so every field is resolved
// through an ordered candidate list: first non-empty value wins.

// RequiredScanColumns must all be present in a scan upload's header
// row; the upload is rejected before any processing otherwise.
var RequiredScanColumns = []string{
	"Número de pedido JMS",
	"Tempo de digitalização",
	"Correio de coleta ou entrega",
	"Tipo de bipagem",
}

// RequiredReferenceColumns must be present in a reference upload's
// header row; without the order-number column no later join can work.
var RequiredReferenceColumns = []string{
	"Número de pedido JMS",
}

var orderNumberColumns = []string{
	"Número de pedido JMS",
	"Nº DO PEDIDO",
	"NUMERO_PEDIDO",
	"Número do pedido",
	"NUMERO_DO_PEDIDO",
	"Pedido",
	"PEDIDO",
	"Remessa",
	"REMESSA",
	"Número",
	"NUMERO",
	"ID",
}

var scanTimeColumns = []string{"Tempo de digitalização"}

var courierColumns = []string{"Correio de coleta ou entrega"}

var scanTypeColumns = []string{"Tipo de bipagem"}

var digitizerColumns = []string{"Digitalizador"}

// Scan-side base: the facility where the scan happened. The newer
// exports call it "Base de escaneamento"; older ones only carry the
// destination base.
var scanBaseColumns = []string{"Base de escaneamento", "Base Destino"}

var deliveryBaseColumns = []string{
	"Base de entrega",
	"Unidade responsável",
	"BASE",
	"BASE_ENTREGA",
	"Base",
}

var responsibleColumns = []string{
	"Responsável pela entrega",
	"Responsavel pela entrega",
	"Entregador",
	"Motorista",
	"ENTREGADOR",
	"MOTORISTA",
}

var destinationCityColumns = []string{
	"Cidade Destino",
	"Cidade destino",
	"CIDADE_DESTINO",
	"Cidade",
	"CIDADE",
}

func firstNonEmpty(row domain.RowMap, columns []string) string {
	for _, col := range columns {
		if v := row.String(col); v != "" {
			return v
		}
	}
	return ""
}

// OrderNumber extracts the shipment's business identifier.
func OrderNumber(row domain.RowMap) string { return firstNonEmpty(row, orderNumberColumns) }

// ScanTime extracts the raw scan timestamp value.
func ScanTime(row domain.RowMap) string { return firstNonEmpty(row, scanTimeColumns) }

// Courier extracts the pickup-or-delivery courier assignment.
func Courier(row domain.RowMap) string { return firstNonEmpty(row, courierColumns) }

// ScanType extracts the scan event's type label.
func ScanType(row domain.RowMap) string { return firstNonEmpty(row, scanTypeColumns) }

// Digitizer extracts the operator who performed the scan.
func Digitizer(row domain.RowMap) string { return firstNonEmpty(row, digitizerColumns) }

// ScanBase extracts the facility where the scan was recorded.
func ScanBase(row domain.RowMap) string { return firstNonEmpty(row, scanBaseColumns) }

// DeliveryBase extracts the reference row's assigned delivery base.
func DeliveryBase(row domain.RowMap) string { return firstNonEmpty(row, deliveryBaseColumns) }

// Responsible extracts the reference row's responsible-for-delivery.
func Responsible(row domain.RowMap) string { return firstNonEmpty(row, responsibleColumns) }

// DestinationCity extracts the destination city.
func DestinationCity(row domain.RowMap) string { return firstNonEmpty(row, destinationCityColumns) }

// scanTimestampFormats are tried in order; first success wins. Rows
// whose timestamp matches none are excluded from recency comparison.
var scanTimestampFormats = []string{
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006 15:04:05",
	"02/01/2006",
}

// ParseScanTimestamp parses a raw scan timestamp against the known
// format list.
func ParseScanTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range scanTimestampFormats {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// equalNormalized compares two values after trimming, ignoring case.
// Empty on either side is never a match.
func equalNormalized(a, b string) bool {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	if a == "" || b == "" {
		return false
	}
	return strings.EqualFold(a, b)
}

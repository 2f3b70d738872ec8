// Package spreadsheet turns raw upload bytes into ordered rows of
// string-keyed scalar maps plus the header list. It is deliberately
// schema-free: downstream stages extract fields by header synonym,
// never by position.
package spreadsheet

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mvieira/scanledger/internal/domain"
	"github.com/xuri/excelize/v2"
)

var (
	// ErrEmptyFile is returned for a zero-byte payload.
	ErrEmptyFile = errors.New("uploaded file is empty")

	// ErrUnsupportedFormat is returned for extensions outside the
	// supported set.
	ErrUnsupportedFormat = errors.New("unsupported file format, use .xlsx, .xls or .csv")

	// ErrNoDataRows is returned when the file holds headers only.
	ErrNoDataRows = errors.New("file contains no data rows beyond the header")
)

var supportedExtensions = map[string]bool{
	".xlsx": true,
	".xls":  true,
	".csv":  true,
}

// Supported reports whether the filename's extension can be parsed.
func Supported(filename string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// Read parses the upload into row maps and the header list. Rows with
// no non-empty cell are dropped; blank header cells get positional
// col_N names so trailing cells are never lost.
func Read(content []byte, filename string) ([]domain.RowMap, []string, error) {
	if len(content) == 0 {
		return nil, nil, ErrEmptyFile
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if !supportedExtensions[ext] {
		return nil, nil, ErrUnsupportedFormat
	}

	var (
		raw [][]string
		err error
	)
	if ext == ".csv" {
		raw, err = readCSV(content)
	} else {
		raw, err = readExcel(content)
	}
	if err != nil {
		return nil, nil, err
	}
	if len(raw) == 0 {
		return nil, nil, ErrNoDataRows
	}

	headers := normalizeHeaders(raw[0])
	if len(raw) < 2 {
		return nil, headers, ErrNoDataRows
	}

	rows := make([]domain.RowMap, 0, len(raw)-1)
	for _, cells := range raw[1:] {
		row := make(domain.RowMap, len(headers))
		nonEmpty := 0
		for i, header := range headers {
			var value any
			if i < len(cells) {
				value = normalizeCell(cells[i])
			}
			row[header] = value
			if value != nil {
				nonEmpty++
			}
		}
		if nonEmpty > 0 {
			rows = append(rows, row)
		}
	}
	if len(rows) == 0 {
		return nil, headers, ErrNoDataRows
	}

	return rows, headers, nil
}

// MissingColumns returns which of the required header names are absent.
func MissingColumns(headers []string, required []string) []string {
	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		present[h] = true
	}
	var missing []string
	for _, col := range required {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	return missing
}

func readExcel(content []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, errors.New("workbook has no sheets")
	}

	// Row-streaming iterator keeps memory bounded on 400k-row exports.
	iter, err := f.Rows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}
	defer iter.Close()

	var rows [][]string
	for iter.Next() {
		cells, err := iter.Columns()
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

func readCSV(content []byte) ([][]string, error) {
	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1
	reader.Comma = sniffDelimiter(content)

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// A single malformed row never aborts the upload.
			continue
		}
		rows = append(rows, record)
	}
	return rows, nil
}

// sniffDelimiter inspects the first KB for the most plausible separator.
func sniffDelimiter(content []byte) rune {
	sample := content
	if len(sample) > 1024 {
		sample = sample[:1024]
	}
	s := string(sample)
	switch {
	case strings.Contains(s, "\t"):
		return '\t'
	case strings.Contains(s, ";") && !strings.Contains(s, ","):
		return ';'
	default:
		return ','
	}
}

func normalizeHeaders(cells []string) []string {
	headers := make([]string, 0, len(cells))
	for _, cell := range cells {
		name := strings.TrimSpace(cell)
		if name == "" {
			name = fmt.Sprintf("col_%d", len(headers))
		}
		headers = append(headers, name)
	}
	return headers
}

// normalizeCell maps a raw cell to the closed scalar set: trimmed
// string, float64 or nil. Date cells become canonical timestamp
// strings; integers too large to be measurements (order numbers) stay
// strings so they never lose precision.
func normalizeCell(raw string) any {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	if t, ok := parseCellTime(s); ok {
		return t.Format("2006-01-02 15:04:05")
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		if n == math.Trunc(n) && math.Abs(n) > 999999999 {
			return s
		}
		return n
	}
	return s
}

var cellTimeFormats = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"02/01/2006 15:04:05",
}

func parseCellTime(s string) (time.Time, bool) {
	for _, layout := range cellTimeFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

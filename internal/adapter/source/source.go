// Package source reads the incident table from a CSV or XLSX file.
package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/couchcryptid/cyberattack-map/internal/domain"
)

const utf8BOM = "\ufeff"

// ErrNoHeader is returned when the input has no header row.
var ErrNoHeader = errors.New("input has no header row")

// Table is the parsed input: one record per non-blank data row.
type Table struct {
	Records []domain.RawRecord
	// Header is the column row as found in the file.
	Header []string
	// Missing lists expected columns absent from Header; they read as empty.
	Missing []string
}

// Read parses the file at path. .xlsx and .xlsm files are read from their
// first sheet; anything else is treated as comma-separated text.
func Read(path string) (*Table, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		rows, err = readXLSX(path)
	default:
		rows, err = readCSV(path)
	}
	if err != nil {
		return nil, err
	}
	return fromRows(rows)
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv %s: %w", path, err)
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

// fromRows maps raw rows onto records by header name. Rows may be ragged;
// cells past the end of a row read as empty. Rows with only blank cells are
// skipped.
func fromRows(rows [][]string) (*Table, error) {
	if len(rows) == 0 {
		return nil, ErrNoHeader
	}

	header := make([]string, len(rows[0]))
	index := make(map[string]int, len(header))
	for i, name := range rows[0] {
		if i == 0 {
			name = strings.TrimPrefix(name, utf8BOM)
		}
		name = strings.TrimSpace(name)
		header[i] = name
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}

	t := &Table{Header: header}
	for _, col := range domain.ExpectedColumns {
		if _, ok := index[col]; !ok {
			t.Missing = append(t.Missing, col)
		}
	}

	n := 0
	for _, row := range rows[1:] {
		if blank(row) {
			continue
		}
		n++
		t.Records = append(t.Records, domain.RecordFromColumns(n, func(col string) string {
			i, ok := index[col]
			if !ok || i >= len(row) {
				return ""
			}
			return row[i]
		}))
	}
	return t, nil
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// Reader is the pipeline extractor for a file on disk.
type Reader struct {
	path   string
	logger *slog.Logger
}

// NewReader creates a Reader for path.
func NewReader(path string, logger *slog.Logger) *Reader {
	return &Reader{path: path, logger: logger}
}

// Extract reads every record from the file. Missing expected columns are
// logged and backfilled with empty values.
func (r *Reader) Extract(_ context.Context) ([]domain.RawRecord, error) {
	t, err := Read(r.path)
	if err != nil {
		return nil, err
	}
	if len(t.Missing) > 0 {
		r.logger.Warn("input is missing columns, treating them as empty", "path", r.path, "columns", t.Missing)
	}
	r.logger.Info("input read", "path", r.path, "rows", len(t.Records))
	return t.Records, nil
}

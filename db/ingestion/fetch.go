// Package ingestion - Tier table sources
// Fetchers read header-mapped rows from CSV or XLSX files.
package ingestion

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "matali-pricing/internal/errors"
)

// Canonical tier table columns
const (
	ColServiceKey = "service_key"
	ColTierName   = "tier_name"
	ColMinVolume  = "min_volume"
	ColMaxVolume  = "max_volume"
	ColUnitPrice  = "unit_price"
)

// RequiredColumns must all be present in a tier table header
var RequiredColumns = []string{ColServiceKey, ColMinVolume, ColMaxVolume, ColUnitPrice}

// RawRow is one data row keyed by canonical column name
type RawRow struct {
	// Line is the 1-based data row number, header excluded
	Line   int
	Fields map[string]string
}

// Fetcher reads raw tier rows from a source
type Fetcher interface {
	// Source describes where rows come from
	Source() string

	// Fetch reads all rows
	Fetch(ctx context.Context) ([]RawRow, error)
}

// FetcherFor picks a fetcher by file extension
func FetcherFor(path, sheet string) (Fetcher, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return &CSVFetcher{Path: path}, nil
	case ".xlsx", ".xlsm":
		return &XLSXFetcher{Path: path, Sheet: sheet}, nil
	default:
		return nil, apperrors.NotSupported("tier table format " + filepath.Ext(path) + " (use .csv or .xlsx)")
	}
}

// CSVFetcher reads a comma separated tier table
type CSVFetcher struct {
	Path string
}

func (f *CSVFetcher) Source() string {
	return f.Path
}

func (f *CSVFetcher) Fetch(ctx context.Context) ([]RawRow, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.TypeInput, "open tier table", err).WithContext("path", f.Path)
	}
	defer file.Close()
	return ReadCSV(file)
}

// ReadCSV parses CSV tier rows from r
func ReadCSV(r io.Reader) ([]RawRow, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, apperrors.Parsing("read csv tier table", err)
	}
	return mapRows(records)
}

// XLSXFetcher reads a tier table from one worksheet; an empty Sheet means the first
type XLSXFetcher struct {
	Path  string
	Sheet string
}

func (f *XLSXFetcher) Source() string {
	if f.Sheet != "" {
		return f.Path + "#" + f.Sheet
	}
	return f.Path
}

func (f *XLSXFetcher) Fetch(ctx context.Context) ([]RawRow, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.TypeInput, "open tier table", err).WithContext("path", f.Path)
	}
	defer file.Close()
	return ReadXLSX(file, f.Sheet)
}

// ReadXLSX parses tier rows from a workbook
func ReadXLSX(r io.Reader, sheet string) ([]RawRow, error) {
	wb, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperrors.Parsing("open xlsx tier table", err)
	}
	defer wb.Close()

	if sheet == "" {
		sheet = wb.GetSheetName(0)
	}
	records, err := wb.GetRows(sheet)
	if err != nil {
		return nil, apperrors.Parsing("read sheet "+sheet, err).WithContext("sheet", sheet)
	}
	return mapRows(records)
}

// NormalizeHeader canonicalizes a column title: trimmed, lower case, spaces as underscores
func NormalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.Join(strings.Fields(h), "_")
}

// mapRows maps records to canonical columns. A missing required column is a
// PARSING_ERROR naming it; fully blank rows are dropped.
func mapRows(records [][]string) ([]RawRow, error) {
	if len(records) == 0 {
		return nil, apperrors.New(apperrors.TypeParsing, "tier table is empty")
	}

	header := records[0]
	index := make(map[string]int, len(header))
	for i, h := range header {
		name := NormalizeHeader(h)
		if _, dup := index[name]; dup {
			return nil, apperrors.Newf(apperrors.TypeParsing, "duplicate column %q", name).WithContext("column", name)
		}
		index[name] = i
	}
	for _, col := range RequiredColumns {
		if _, ok := index[col]; !ok {
			return nil, apperrors.Newf(apperrors.TypeParsing, "tier table is missing column %q", col).
				WithContext("column", col)
		}
	}

	rows := make([]RawRow, 0, len(records)-1)
	for n, rec := range records[1:] {
		if blank(rec) {
			continue
		}
		fields := make(map[string]string, len(index))
		for name, i := range index {
			if i < len(rec) {
				fields[name] = strings.TrimSpace(rec[i])
			} else {
				fields[name] = ""
			}
		}
		rows = append(rows, RawRow{Line: n + 1, Fields: fields})
	}
	return rows, nil
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

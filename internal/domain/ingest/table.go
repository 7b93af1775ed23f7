// Package ingest turns uploaded spreadsheets plus a column mapping into
// normalized training records. It never touches the store.
package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Table is a parsed sheet: one header row and the data rows below it.
// Rows may be shorter than Headers; missing trailing cells read as "".
type Table struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// Head returns a copy of t limited to the first n data rows.
func (t Table) Head(n int) Table {
	if n < 0 || n > len(t.Rows) {
		n = len(t.Rows)
	}
	rows := make([][]string, n)
	copy(rows, t.Rows[:n])
	return Table{Headers: t.Headers, Rows: rows}
}

// ColumnIndex returns the position of the named column or -1.
func (t Table) ColumnIndex(name string) int {
	name = strings.TrimSpace(name)
	for i, h := range t.Headers {
		if h == name {
			return i
		}
	}
	return -1
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// ReadTable parses r according to the extension of filename.
// Spreadsheets (.xlsx, .xlsm, .xltx) use the first sheet with raw cell values,
// so dates arrive as Excel serial numbers. CSV files sniff ';', ',' or tab.
func ReadTable(r io.Reader, filename string) (Table, error) {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".xlsx", ".xlsm", ".xltx":
		return readWorkbook(r)
	case ".csv", ".txt":
		return readCSV(r)
	default:
		return Table{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

func readWorkbook(r io.Reader) (Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return Table{}, fmt.Errorf("%w: open workbook: %w", ErrNotTabular, err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Table{}, fmt.Errorf("%w: workbook has no sheets", ErrNotTabular)
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return Table{}, fmt.Errorf("%w: read sheet %q: %w", ErrNotTabular, sheets[0], err)
	}
	return buildTable(rows)
}

func readCSV(r io.Reader) (Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Table{}, fmt.Errorf("%w: %w", ErrNotTabular, err)
	}
	// UTF-8 BOM written by spreadsheet exports.
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	if len(bytes.TrimSpace(data)) == 0 {
		return Table{}, fmt.Errorf("%w: empty file", ErrNotTabular)
	}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = sniffDelimiter(data)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	rows, err := cr.ReadAll()
	if err != nil {
		return Table{}, fmt.Errorf("%w: %w", ErrNotTabular, err)
	}
	return buildTable(rows)
}

// sniffDelimiter picks the most frequent candidate delimiter on the header line.
func sniffDelimiter(sample []byte) rune {
	line := sample
	if i := bytes.IndexByte(sample, '\n'); i >= 0 {
		line = sample[:i]
	}
	best, bestCount := ',', 0
	for _, d := range []rune{';', ',', '\t'} {
		if c := bytes.Count(line, []byte(string(d))); c > bestCount {
			best, bestCount = d, c
		}
	}
	return best
}

func buildTable(rows [][]string) (Table, error) {
	var headerRow []string
	start := 0
	for i, row := range rows {
		if !blankRow(row) {
			headerRow = row
			start = i + 1
			break
		}
	}
	if headerRow == nil {
		return Table{}, fmt.Errorf("%w: no header row", ErrNotTabular)
	}

	t := Table{Headers: uniqueHeaders(headerRow)}
	for _, row := range rows[start:] {
		if blankRow(row) {
			continue
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// uniqueHeaders trims names, fills blanks with column_N and suffixes duplicates.
func uniqueHeaders(raw []string) []string {
	out := make([]string, len(raw))
	seen := make(map[string]int, len(raw))
	for i, h := range raw {
		h = strings.TrimSpace(h)
		if h == "" {
			h = "column_" + strconv.Itoa(i+1)
		}
		if n := seen[h]; n > 0 {
			seen[h] = n + 1
			h = h + "_" + strconv.Itoa(n+1)
		}
		seen[h]++
		out[i] = h
	}
	return out
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// IsNotTabular reports whether err means the input could not be read as a table.
func IsNotTabular(err error) bool {
	return errors.Is(err, ErrNotTabular) || errors.Is(err, ErrUnsupportedFormat)
}

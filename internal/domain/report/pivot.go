package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/okian/formacao/internal/domain/model"
)

const totalColumn = "total_hours"

// Row is one line of a pivot table.
type Row struct {
	Group      string  `json:"group"`
	TotalHours float64 `json:"total_hours"`
}

// Table is a two-column pivot: group value and summed hours.
type Table struct {
	Dimension Dimension `json:"dimension"`
	Rows      []Row     `json:"rows"`
}

// Pivot sums hours per value of d, largest first.
func Pivot(records []model.TrainingRecord, d Dimension) Table {
	groups := TopN(records, d, MeasureHours, 0)
	t := Table{Dimension: d, Rows: make([]Row, len(groups))}
	for i, g := range groups {
		t.Rows[i] = Row{Group: g.Group, TotalHours: g.Hours}
	}
	return t
}

// WriteCSV writes t with a "<dimension>,total_hours" header.
// Totals use the shortest decimal that reads back to the same value.
func WriteCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{string(t.Dimension), totalColumn}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range t.Rows {
		if err := cw.Write([]string{r.Group, strconv.FormatFloat(r.TotalHours, 'f', -1, 64)}); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a table written by WriteCSV.
func ReadCSV(r io.Reader) (Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 2
	rows, err := cr.ReadAll()
	if err != nil {
		return Table{}, fmt.Errorf("%w: %w", ErrBadCSV, err)
	}
	if len(rows) == 0 || rows[0][1] != totalColumn {
		return Table{}, fmt.Errorf("%w: missing %s header", ErrBadCSV, totalColumn)
	}
	d, err := ParseDimension(rows[0][0])
	if err != nil {
		return Table{}, fmt.Errorf("%w: %w", ErrBadCSV, err)
	}
	t := Table{Dimension: d, Rows: make([]Row, 0, len(rows)-1)}
	for i, row := range rows[1:] {
		v, err := strconv.ParseFloat(strings.TrimSpace(row[1]), 64)
		if err != nil {
			return Table{}, fmt.Errorf("%w: line %d: %w", ErrBadCSV, i+2, err)
		}
		t.Rows = append(t.Rows, Row{Group: row[0], TotalHours: v})
	}
	return t, nil
}

package ingest

import (
	"fmt"
	"strings"

	"github.com/okian/formacao/internal/domain/model"
)

// Mapping names which source columns feed each record field.
// Exactly one of DateColumn and ManualDate must be set.
type Mapping struct {
	Person       string         `json:"person"`
	Organization string         `json:"organization"`
	Event        string         `json:"event"`
	Hours        string         `json:"hours"`
	DateColumn   string         `json:"date_column,omitempty"`
	ManualDate   model.NullDate `json:"date"`
	// Category is optional; records without one get the default category.
	Category string `json:"category,omitempty"`
}

// Validate checks the mapping against the table headers.
func (m Mapping) Validate(t Table) error {
	required := []struct{ field, column string }{
		{"person", m.Person},
		{"organization", m.Organization},
		{"event", m.Event},
		{"hours", m.Hours},
	}
	for _, r := range required {
		if strings.TrimSpace(r.column) == "" {
			return fmt.Errorf("%w: %s column not set", ErrIncompleteMapping, r.field)
		}
	}

	hasColumn := strings.TrimSpace(m.DateColumn) != ""
	if hasColumn == m.ManualDate.Valid {
		return ErrDateSource
	}

	columns := []string{m.Person, m.Organization, m.Event, m.Hours}
	if hasColumn {
		columns = append(columns, m.DateColumn)
	}
	if strings.TrimSpace(m.Category) != "" {
		columns = append(columns, m.Category)
	}
	for _, c := range columns {
		if t.ColumnIndex(c) < 0 {
			return fmt.Errorf("%w: %q", ErrUnknownColumn, c)
		}
	}
	return nil
}

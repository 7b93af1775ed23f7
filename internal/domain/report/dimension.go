package report

import (
	"fmt"
	"strings"

	"github.com/okian/formacao/internal/domain/model"
)

// Dimension is a record attribute records can be grouped by.
type Dimension string

// Supported dimensions.
const (
	ByOrganization Dimension = "organization"
	ByEvent        Dimension = "event"
	ByCategory     Dimension = "category"
	ByPerson       Dimension = "person"
)

var dimensionAliases = map[string]Dimension{
	"organization": ByOrganization,
	"escola":       ByOrganization,
	"event":        ByEvent,
	"evento":       ByEvent,
	"category":     ByCategory,
	"categoria":    ByCategory,
	"person":       ByPerson,
	"professor":    ByPerson,
}

// ParseDimension accepts the English names and their Portuguese aliases.
func ParseDimension(s string) (Dimension, error) {
	if d, ok := dimensionAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return d, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDimension, s)
}

// Key returns the value of r along d.
func (d Dimension) Key(r model.TrainingRecord) string {
	switch d {
	case ByOrganization:
		return r.Organization
	case ByEvent:
		return r.EventName
	case ByCategory:
		return r.Category
	case ByPerson:
		return r.PersonName
	default:
		return ""
	}
}

// Measure selects what TopN ranks groups by.
type Measure string

// Supported measures.
const (
	MeasureHours Measure = "hours"
	MeasureCount Measure = "count"
)

// ParseMeasure accepts "hours" and "count"; empty means hours.
func ParseMeasure(s string) (Measure, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "hours", "horas":
		return MeasureHours, nil
	case "count", "records", "registros":
		return MeasureCount, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMeasure, s)
	}
}

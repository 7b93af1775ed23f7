package ingest

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/unicode/norm"

	"github.com/okian/formacao/internal/domain/model"
)

// Result is the outcome of normalizing a table.
type Result struct {
	Records []model.TrainingRecord `json:"records"`
	// Dropped counts rows discarded for a missing person, organization or event.
	Dropped int `json:"dropped"`
}

var missingTokens = map[string]struct{}{
	"": {}, "nan": {}, "none": {}, "null": {}, "nat": {},
	"n/a": {}, "na": {}, "#n/a": {}, "-": {},
}

// IsMissing reports whether s is blank or a spreadsheet placeholder for no value.
func IsMissing(s string) bool {
	_, ok := missingTokens[strings.ToLower(strings.TrimSpace(s))]
	return ok
}

// CleanText trims s, collapses inner whitespace and applies NFC so that
// visually equal names group together. Missing tokens become "".
func CleanText(s string) string {
	if IsMissing(s) {
		return ""
	}
	return norm.NFC.String(strings.Join(strings.Fields(s), " "))
}

// Normalize converts every table row into a record using m.
// Rows without person, organization or event are dropped and counted.
// Records carry no ID, batch or ingestion time; the store assigns those.
func Normalize(t Table, m Mapping, defaultCategory string) (Result, error) {
	if err := m.Validate(t); err != nil {
		return Result{}, err
	}

	var (
		person = t.ColumnIndex(m.Person)
		org    = t.ColumnIndex(m.Organization)
		event  = t.ColumnIndex(m.Event)
		hours  = t.ColumnIndex(m.Hours)
		date   = -1
		cat    = -1
	)
	if m.DateColumn != "" {
		date = t.ColumnIndex(m.DateColumn)
	}
	if m.Category != "" {
		cat = t.ColumnIndex(m.Category)
	}
	defaultCategory = CleanText(defaultCategory)

	res := Result{Records: make([]model.TrainingRecord, 0, len(t.Rows))}
	for _, row := range t.Rows {
		rec := model.TrainingRecord{
			PersonName:   CleanText(cell(row, person)),
			Organization: CleanText(cell(row, org)),
			EventName:    CleanText(cell(row, event)),
			Hours:        ParseHours(cell(row, hours)),
			Category:     CleanText(cell(row, cat)),
		}
		if rec.PersonName == "" || rec.Organization == "" || rec.EventName == "" {
			res.Dropped++
			continue
		}
		if rec.Category == "" {
			rec.Category = defaultCategory
		}
		if date >= 0 {
			rec.EventDate = ParseDate(cell(row, date))
		} else {
			rec.EventDate = m.ManualDate
		}
		res.Records = append(res.Records, rec)
	}
	return res, nil
}

// ParseHours reads a workload cell. Decimal commas and an "h" suffix are
// accepted; anything unparseable, negative or non-finite yields 0.
func ParseHours(s string) float64 {
	s = strings.ToLower(strings.TrimSpace(s))
	if IsMissing(s) {
		return 0
	}
	for _, suffix := range []string{"horas", "hrs", "hs", "h"} {
		if strings.HasSuffix(s, suffix) {
			s = strings.TrimSpace(strings.TrimSuffix(s, suffix))
			break
		}
	}
	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

var dateLayouts = []string{
	model.DateLayout,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2/1/2006",
	"2-1-2006",
	"2.1.2006",
	"2/1/06",
	"2/1/2006 15:04:05",
	"2/1/2006 15:04",
}

// Excel serials above this are past 9999-12-31.
const maxExcelSerial = 2958465

// ParseDate reads a date cell. ISO dates, day-first dates and Excel serial
// numbers are understood; anything else is a null date.
func ParseDate(s string) model.NullDate {
	s = strings.TrimSpace(s)
	if IsMissing(s) {
		return model.NullDate{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return model.DateOf(t)
		}
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil && v >= 1 && v <= maxExcelSerial {
		if t, err := excelize.ExcelDateToTime(v, false); err == nil {
			return model.DateOf(t)
		}
	}
	return model.NullDate{}
}

// Package model contains domain models passed between layers.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout is the wire and storage format of calendar dates.
const DateLayout = "2006-01-02"

// TrainingRecord is one person's attendance entry for one training event.
type TrainingRecord struct {
	ID           int64     `json:"id"`
	PersonName   string    `json:"person_name"`
	Organization string    `json:"organization"`
	EventName    string    `json:"event_name"`
	Category     string    `json:"category"`
	Hours        float64   `json:"hours"`
	EventDate    NullDate  `json:"event_date"`
	BatchID      string    `json:"batch_id,omitempty"`
	IngestedAt   time.Time `json:"ingested_at"`
}

// NullDate is a calendar date that may be absent. Valid dates are kept at UTC midnight.
type NullDate struct {
	Time  time.Time
	Valid bool
}

// NewDate builds a valid NullDate from year, month and day.
func NewDate(year int, month time.Month, day int) NullDate {
	return NullDate{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC), Valid: true}
}

// DateOf truncates t to its calendar date.
func DateOf(t time.Time) NullDate {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseISODate parses YYYY-MM-DD.
func ParseISODate(s string) (NullDate, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return NullDate{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// String returns YYYY-MM-DD or "" for a null date.
func (d NullDate) String() string {
	if !d.Valid {
		return ""
	}
	return d.Time.Format(DateLayout)
}

// MarshalJSON encodes the date as "YYYY-MM-DD" or null.
func (d NullDate) MarshalJSON() ([]byte, error) {
	if !d.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts "YYYY-MM-DD", "" or null.
func (d *NullDate) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*d = NullDate{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = NullDate{}
		return nil
	}
	parsed, err := ParseISODate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

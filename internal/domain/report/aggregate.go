// Package report computes dashboard aggregates over training records.
// Every function is pure and deterministic for a given record order.
package report

import (
	"sort"

	"github.com/okian/formacao/internal/domain/model"
)

// Metrics are the headline figures of the dashboard.
type Metrics struct {
	Records       int     `json:"records"`
	TotalHours    float64 `json:"total_hours"`
	People        int     `json:"people"`
	Organizations int     `json:"organizations"`
	Events        int     `json:"events"`
	MeanHours     float64 `json:"mean_hours"`
}

// GroupTotal is one group of records sharing a dimension value.
type GroupTotal struct {
	Group   string  `json:"group"`
	Hours   float64 `json:"hours"`
	Records int     `json:"records"`
}

// Value returns the figure m ranks by.
func (g GroupTotal) Value(m Measure) float64 {
	if m == MeasureCount {
		return float64(g.Records)
	}
	return g.Hours
}

// Detail is every record matching one person or organization.
type Detail struct {
	Dimension  Dimension              `json:"dimension"`
	Value      string                 `json:"value"`
	Rows       []model.TrainingRecord `json:"rows"`
	TotalHours float64                `json:"total_hours"`
	// ByPerson is filled for organization detail, highest hours first.
	ByPerson []GroupTotal `json:"by_person,omitempty"`
}

// Summarize computes the headline metrics. An empty slice yields zeros.
func Summarize(records []model.TrainingRecord) Metrics {
	people := make(map[string]struct{})
	orgs := make(map[string]struct{})
	events := make(map[string]struct{})

	var m Metrics
	for _, r := range records {
		m.TotalHours += r.Hours
		people[r.PersonName] = struct{}{}
		orgs[r.Organization] = struct{}{}
		events[r.EventName] = struct{}{}
	}
	m.Records = len(records)
	m.People = len(people)
	m.Organizations = len(orgs)
	m.Events = len(events)
	if m.Records > 0 {
		m.MeanHours = m.TotalHours / float64(m.Records)
	}
	return m
}

// group builds totals per dimension value in order of first appearance.
func group(records []model.TrainingRecord, d Dimension) []GroupTotal {
	index := make(map[string]int)
	var out []GroupTotal
	for _, r := range records {
		key := d.Key(r)
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, GroupTotal{Group: key})
		}
		out[i].Hours += r.Hours
		out[i].Records++
	}
	return out
}

// rank sorts groups descending by m. Equal values keep first-appearance order.
func rank(groups []GroupTotal, m Measure) {
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Value(m) > groups[j].Value(m)
	})
}

// TopN groups records by d and returns the n largest groups by m.
// n <= 0 returns every group.
func TopN(records []model.TrainingRecord, d Dimension, m Measure, n int) []GroupTotal {
	groups := group(records, d)
	rank(groups, m)
	if n > 0 && n < len(groups) {
		groups = groups[:n]
	}
	if groups == nil {
		groups = []GroupTotal{}
	}
	return groups
}

// Values lists the distinct values of d in order of first appearance.
func Values(records []model.TrainingRecord, d Dimension) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, r := range records {
		key := d.Key(r)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}

// DetailOf filters records by one person or organization value.
func DetailOf(records []model.TrainingRecord, d Dimension, value string) (Detail, error) {
	if d != ByPerson && d != ByOrganization {
		return Detail{}, ErrDetailDimension
	}
	det := Detail{Dimension: d, Value: value, Rows: make([]model.TrainingRecord, 0)}
	for _, r := range records {
		if d.Key(r) != value {
			continue
		}
		det.Rows = append(det.Rows, r)
		det.TotalHours += r.Hours
	}
	if d == ByOrganization {
		det.ByPerson = group(det.Rows, ByPerson)
		rank(det.ByPerson, MeasureHours)
	}
	return det, nil
}

// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/formacao/internal/domain/report"
)

// ReportDependencies defines the interface for dashboard aggregates.
type ReportDependencies interface {
	Summary(ctx context.Context) (report.Metrics, error)
	Top(ctx context.Context, d report.Dimension, m report.Measure, n int) ([]report.GroupTotal, error)
	Values(ctx context.Context, d report.Dimension) ([]string, error)
	Detail(ctx context.Context, d report.Dimension, value string) (report.Detail, error)
	Pivot(ctx context.Context, d report.Dimension) (report.Table, error)
	ExportCSV(ctx context.Context, w io.Writer, d report.Dimension) error
}

// ReportsHandler handles report requests.
type ReportsHandler struct {
	deps ReportDependencies
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(deps ReportDependencies) *ReportsHandler {
	return &ReportsHandler{deps: deps}
}

// dimensionParam reads ?by=, falling back to def when absent.
func dimensionParam(r *http.Request, def report.Dimension) (report.Dimension, error) {
	raw := r.URL.Query().Get("by")
	if strings.TrimSpace(raw) == "" {
		if def == "" {
			return "", fmt.Errorf("%w: missing by", ErrBadRequest)
		}
		return def, nil
	}
	return report.ParseDimension(raw)
}

// HandleSummary handles GET /reports/summary.
func (h *ReportsHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	m, err := h.deps.Summary(r.Context())
	if err != nil {
		writeServiceError(w, "api.summary", err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// HandleTop handles GET /reports/top?by=&measure=&n=.
// n is optional; "all" returns every group.
func (h *ReportsHandler) HandleTop(w http.ResponseWriter, r *http.Request) {
	const op = "api.top"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	d, err := dimensionParam(r, report.ByOrganization)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	m, err := report.ParseMeasure(r.URL.Query().Get("measure"))
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	n := 0
	switch raw := strings.TrimSpace(r.URL.Query().Get("n")); raw {
	case "":
	case "all":
		n = -1
	default:
		n, err = strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeServiceError(w, op, WrapKind(op, ErrBadRequest, fmt.Errorf("invalid n %q", raw)))
			return
		}
	}
	groups, err := h.deps.Top(r.Context(), d, m, n)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

// HandleValues handles GET /reports/values?by=.
func (h *ReportsHandler) HandleValues(w http.ResponseWriter, r *http.Request) {
	const op = "api.values"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	d, err := dimensionParam(r, "")
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	values, err := h.deps.Values(r.Context(), d)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, values)
}

// HandleDetail handles GET /reports/detail?by=&value=.
func (h *ReportsHandler) HandleDetail(w http.ResponseWriter, r *http.Request) {
	const op = "api.detail"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	d, err := dimensionParam(r, report.ByPerson)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	value := r.URL.Query().Get("value")
	if strings.TrimSpace(value) == "" {
		writeServiceError(w, op, WrapKind(op, ErrBadRequest, errors.New("missing value")))
		return
	}
	det, err := h.deps.Detail(r.Context(), d, value)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, det)
}

// HandlePivot handles GET /reports/pivot?by=.
func (h *ReportsHandler) HandlePivot(w http.ResponseWriter, r *http.Request) {
	const op = "api.pivot"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	d, err := dimensionParam(r, report.ByOrganization)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	t, err := h.deps.Pivot(r.Context(), d)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// HandlePivotCSV handles GET /reports/pivot.csv?by= as a file download.
func (h *ReportsHandler) HandlePivotCSV(w http.ResponseWriter, r *http.Request) {
	const op = "api.pivot_csv"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	d, err := dimensionParam(r, report.ByOrganization)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	var buf bytes.Buffer
	if err := h.deps.ExportCSV(r.Context(), &buf, d); err != nil {
		writeServiceError(w, op, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "formacao_"+string(d)+".csv"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	service "github.com/okian/formacao/internal/app"
	"github.com/okian/formacao/internal/domain/ingest"
	"github.com/okian/formacao/internal/domain/report"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	UploadDependencies
	RecordDependencies
	ReportDependencies
	AssistantDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	uploadsHandler   *UploadsHandler
	recordsHandler   *RecordsHandler
	reportsHandler   *ReportsHandler
	assistantHandler *AssistantHandler
}

// NewServer creates a new API server with all handlers.
// maxUploadBytes bounds multipart bodies on the upload routes.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxUploadBytes int64) *Server {
	return &Server{
		healthHandler:    NewHealthHandler(),
		statsHandler:     NewStatsHandler(statsProvider),
		uploadsHandler:   NewUploadsHandler(deps, maxUploadBytes),
		recordsHandler:   NewRecordsHandler(deps),
		reportsHandler:   NewReportsHandler(deps),
		assistantHandler: NewAssistantHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("/uploads/preview", MetricsMiddleware(s.uploadsHandler.HandlePreview, "uploads_preview"))
	mux.HandleFunc("/uploads", MetricsMiddleware(s.uploadsHandler.HandleIngest, "uploads"))

	mux.HandleFunc("/records", MetricsMiddleware(s.recordsHandler.HandleRecords, "records"))
	mux.HandleFunc("/records/", MetricsMiddleware(s.recordsHandler.HandleRecord, "record"))

	mux.HandleFunc("/reports/summary", MetricsMiddleware(s.reportsHandler.HandleSummary, "reports_summary"))
	mux.HandleFunc("/reports/top", MetricsMiddleware(s.reportsHandler.HandleTop, "reports_top"))
	mux.HandleFunc("/reports/values", MetricsMiddleware(s.reportsHandler.HandleValues, "reports_values"))
	mux.HandleFunc("/reports/detail", MetricsMiddleware(s.reportsHandler.HandleDetail, "reports_detail"))
	mux.HandleFunc("/reports/pivot", MetricsMiddleware(s.reportsHandler.HandlePivot, "reports_pivot"))
	mux.HandleFunc("/reports/pivot.csv", MetricsMiddleware(s.reportsHandler.HandlePivotCSV, "reports_pivot_csv"))

	mux.HandleFunc("/assistant/ask", MetricsMiddleware(s.assistantHandler.HandleAsk, "assistant_ask"))
	mux.HandleFunc("/assistant/classify", MetricsMiddleware(s.assistantHandler.HandleClassify, "assistant_classify"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError translates upstream sentinel errors into status codes.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	status, code := classify(err)
	writeError(w, status, code, Wrap(op, err))
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrNoValidRows):
		return http.StatusUnprocessableEntity, "no_valid_rows"
	case errors.Is(err, service.ErrUploadTooLarge):
		return http.StatusRequestEntityTooLarge, "upload_too_large"
	case ingest.IsNotTabular(err):
		return http.StatusBadRequest, "invalid_file"
	case errors.Is(err, ingest.ErrIncompleteMapping),
		errors.Is(err, ingest.ErrDateSource),
		errors.Is(err, ingest.ErrUnknownColumn):
		return http.StatusBadRequest, "invalid_mapping"
	case errors.Is(err, report.ErrUnknownDimension),
		errors.Is(err, report.ErrUnknownMeasure),
		errors.Is(err, report.ErrDetailDimension),
		errors.Is(err, service.ErrEmptyQuestion),
		errors.Is(err, service.ErrEmptyEventName),
		errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, ErrConfirmRequired):
		return http.StatusBadRequest, "confirm_required"
	case errors.Is(err, ErrRecordNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrNoData):
		return http.StatusConflict, "no_data"
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/formacao/internal/domain/model"
)

// RecordDependencies defines the interface for record listing and deletion.
type RecordDependencies interface {
	Records(ctx context.Context) ([]model.TrainingRecord, error)
	DeleteRecord(ctx context.Context, id int64) (bool, error)
	ClearRecords(ctx context.Context) (int64, error)
}

// RecordsHandler handles record requests.
type RecordsHandler struct {
	deps RecordDependencies
}

// NewRecordsHandler creates a new records handler.
func NewRecordsHandler(deps RecordDependencies) *RecordsHandler {
	return &RecordsHandler{deps: deps}
}

type deleteResponse struct {
	Deleted int64 `json:"deleted"`
}

// HandleRecords handles GET /records and DELETE /records?confirm=true.
func (h *RecordsHandler) HandleRecords(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		records, err := h.deps.Records(r.Context())
		if err != nil {
			writeServiceError(w, "api.list_records", err)
			return
		}
		writeJSON(w, http.StatusOK, records)
	case http.MethodDelete:
		const op = "api.clear_records"
		if ok, _ := strconv.ParseBool(r.URL.Query().Get("confirm")); !ok {
			writeServiceError(w, op, NewKind(op, ErrConfirmRequired))
			return
		}
		n, err := h.deps.ClearRecords(r.Context())
		if err != nil {
			writeServiceError(w, op, err)
			return
		}
		writeJSON(w, http.StatusOK, deleteResponse{Deleted: n})
	default:
		http.NotFound(w, r)
	}
}

// HandleRecord handles DELETE /records/{id}.
func (h *RecordsHandler) HandleRecord(w http.ResponseWriter, r *http.Request) {
	const op = "api.delete_record"
	if r.Method != http.MethodDelete {
		http.NotFound(w, r)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/records/")
	id, err := strconv.ParseInt(path, 10, 64)
	if path == "" || strings.Contains(path, "/") || err != nil || id <= 0 {
		writeServiceError(w, op, WrapKind(op, ErrBadRequest, fmt.Errorf("invalid record id %q", path)))
		return
	}
	ok, err := h.deps.DeleteRecord(r.Context(), id)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	if !ok {
		writeServiceError(w, op, fmt.Errorf("%w: id %d", ErrRecordNotFound, id))
		return
	}
	writeJSON(w, http.StatusOK, deleteResponse{Deleted: 1})
}

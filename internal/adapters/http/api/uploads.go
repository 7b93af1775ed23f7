// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	service "github.com/okian/formacao/internal/app"
	"github.com/okian/formacao/internal/domain/ingest"
	"github.com/okian/formacao/internal/domain/model"
)

// multipart parts above this spill to temporary files
const multipartMemory = 8 << 20

// UploadDependencies defines the interface for spreadsheet ingestion.
type UploadDependencies interface {
	Preview(ctx context.Context, filename string, r io.Reader) (service.PreviewResult, error)
	Ingest(ctx context.Context, req service.IngestRequest) (service.IngestReport, error)
}

// UploadsHandler handles spreadsheet uploads.
type UploadsHandler struct {
	deps           UploadDependencies
	maxUploadBytes int64
}

// NewUploadsHandler creates a new uploads handler.
func NewUploadsHandler(deps UploadDependencies, maxUploadBytes int64) *UploadsHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 20 << 20
	}
	return &UploadsHandler{deps: deps, maxUploadBytes: maxUploadBytes}
}

// HandlePreview handles POST /uploads/preview with a multipart "file".
func (h *UploadsHandler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	const op = "api.preview_upload"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	file, header, err := h.openFile(w, r)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	defer func() { _ = file.Close() }()

	res, err := h.deps.Preview(r.Context(), header.Filename, file)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleIngest handles POST /uploads with a multipart "file" and mapping fields.
func (h *UploadsHandler) HandleIngest(w http.ResponseWriter, r *http.Request) {
	const op = "api.ingest_upload"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	file, header, err := h.openFile(w, r)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	defer func() { _ = file.Close() }()

	mapping, err := mappingFromForm(r)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	classifyEvents := false
	if v := strings.TrimSpace(r.FormValue("classify")); v != "" {
		classifyEvents, err = strconv.ParseBool(v)
		if err != nil {
			writeServiceError(w, op, WrapKind(op, ErrBadRequest, fmt.Errorf("invalid classify %q", v)))
			return
		}
	}

	rep, err := h.deps.Ingest(r.Context(), service.IngestRequest{
		Filename: header.Filename,
		Data:     file,
		Mapping:  mapping,
		Classify: classifyEvents,
		APIKey:   apiKeyFrom(r, r.FormValue("api_key")),
	})
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, rep)
}

func (h *UploadsHandler) openFile(w http.ResponseWriter, r *http.Request) (multipart.File, *multipart.FileHeader, error) {
	// room for the multipart envelope and mapping fields
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, nil, service.ErrUploadTooLarge
		}
		return nil, nil, fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, nil, fmt.Errorf("%w: missing multipart field \"file\"", ErrBadRequest)
	}
	return file, header, nil
}

func mappingFromForm(r *http.Request) (ingest.Mapping, error) {
	m := ingest.Mapping{
		Person:       strings.TrimSpace(r.FormValue("person")),
		Organization: strings.TrimSpace(r.FormValue("organization")),
		Event:        strings.TrimSpace(r.FormValue("event")),
		Hours:        strings.TrimSpace(r.FormValue("hours")),
		DateColumn:   strings.TrimSpace(r.FormValue("date_column")),
		Category:     strings.TrimSpace(r.FormValue("category")),
	}
	if raw := strings.TrimSpace(r.FormValue("date")); raw != "" {
		d, err := model.ParseISODate(raw)
		if err != nil {
			d = ingest.ParseDate(raw)
		}
		if !d.Valid {
			return ingest.Mapping{}, fmt.Errorf("%w: invalid date %q", ErrBadRequest, raw)
		}
		m.ManualDate = d
	}
	return m, nil
}

// apiKeyFrom picks the request's Gemini key: an explicit field, then the header.
func apiKeyFrom(r *http.Request, field string) string {
	if k := strings.TrimSpace(field); k != "" {
		return k
	}
	return strings.TrimSpace(r.Header.Get("X-Gemini-Api-Key"))
}

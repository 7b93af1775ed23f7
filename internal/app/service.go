// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/okian/formacao/internal/adapters/advisor"
	repository "github.com/okian/formacao/internal/adapters/repository"
	"github.com/okian/formacao/internal/domain/ingest"
	"github.com/okian/formacao/internal/domain/model"
	"github.com/okian/formacao/internal/domain/report"
	"github.com/okian/formacao/pkg/logger"
	"github.com/okian/formacao/pkg/metrics"
)

// Assistant is the subset of the advisor the service needs.
type Assistant interface {
	Ask(ctx context.Context, apiKey, summary, question string) advisor.Result
	Classify(ctx context.Context, apiKey, eventName string) advisor.Result
}

// Service implements the API dependencies for the training dashboard.
type Service struct {
	mu sync.RWMutex

	// Core components
	store     repository.Store
	ownsStore bool
	assistant Assistant

	// Configuration
	dbPath          string
	previewRows     int
	defaultTopN     int
	maxUploadBytes  int64
	defaultCategory string
	apiKey          string

	// State
	started   bool
	startedAt time.Time

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore injects an already opened store. The service will not close it.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithDBPath sets the SQLite file opened by Start when no store is injected.
func WithDBPath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.dbPath = path
		}
	}
}

// WithAssistant sets the AI advisor.
func WithAssistant(a Assistant) Option {
	return func(s *Service) {
		if a != nil {
			s.assistant = a
		}
	}
}

// WithPreviewRows sets how many rows Preview returns.
func WithPreviewRows(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.previewRows = n
		}
	}
}

// WithDefaultTopN sets the group count used when callers pass none.
func WithDefaultTopN(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.defaultTopN = n
		}
	}
}

// WithMaxUploadBytes limits the size of ingested files.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

// WithDefaultCategory sets the category given to rows without one.
func WithDefaultCategory(c string) Option {
	return func(s *Service) {
		if c != "" {
			s.defaultCategory = c
		}
	}
}

// WithAPIKey sets the configured Gemini key used when requests carry none.
func WithAPIKey(key string) Option {
	return func(s *Service) {
		s.apiKey = key
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		dbPath:          "data/formacao_smed.db",
		previewRows:     5,
		defaultTopN:     5,
		maxUploadBytes:  20 << 20,
		defaultCategory: "Outros",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens the store when none was injected and prepares the assistant.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	s.logger.Info(ctx, "starting training dashboard service...")

	if s.store == nil {
		store, err := repository.Open(ctx, s.dbPath)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		s.store = store
		s.ownsStore = true
		s.logger.Info(ctx, "using sqlite store", logger.String("path", s.dbPath))
	}
	if s.assistant == nil {
		s.assistant = advisor.New(advisor.WithCategories(nil, s.defaultCategory))
	}

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "training dashboard service started",
		logger.Int("previewRows", s.previewRows),
		logger.Int("defaultTopN", s.defaultTopN),
		logger.Bool("apiKeyConfigured", s.apiKey != ""),
	)
	return nil
}

// Stop closes the store if the service opened it.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.logger.Info(context.Background(), "stopping training dashboard service...")
	if s.ownsStore && s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Error(context.Background(), "failed to close store", logger.Error(err))
		}
		s.store = nil
		s.ownsStore = false
	}
	s.started = false
	s.logger.Info(context.Background(), "training dashboard service stopped")
}

func (s *Service) components() (repository.Store, Assistant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, nil, ErrNotStarted
	}
	return s.store, s.assistant, nil
}

// readUpload buffers at most maxUploadBytes of r.
func (s *Service) readUpload(r io.Reader) (*bytes.Reader, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: no file", ingest.ErrNotTabular)
	}
	data, err := io.ReadAll(io.LimitReader(r, s.maxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.maxUploadBytes {
		return nil, ErrUploadTooLarge
	}
	return bytes.NewReader(data), nil
}

// PreviewResult shows the columns of an upload before a mapping is chosen.
type PreviewResult struct {
	Filename  string     `json:"filename"`
	Headers   []string   `json:"headers"`
	Rows      [][]string `json:"rows"`
	TotalRows int        `json:"total_rows"`
}

// Preview parses an upload and returns its headers and first rows.
func (s *Service) Preview(ctx context.Context, filename string, r io.Reader) (PreviewResult, error) {
	data, err := s.readUpload(r)
	if err != nil {
		return PreviewResult{}, err
	}
	tbl, err := ingest.ReadTable(data, filename)
	if err != nil {
		return PreviewResult{}, err
	}
	head := tbl.Head(s.previewRows)
	s.log().Debug(ctx, "upload previewed",
		logger.String("filename", filename),
		logger.Int("columns", len(tbl.Headers)),
		logger.Int("rows", len(tbl.Rows)),
	)
	return PreviewResult{
		Filename:  filename,
		Headers:   head.Headers,
		Rows:      head.Rows,
		TotalRows: len(tbl.Rows),
	}, nil
}

// IngestRequest is one confirmed upload.
type IngestRequest struct {
	Filename string
	Data     io.Reader
	Mapping  ingest.Mapping
	// Classify asks the assistant for a category per distinct event when the
	// mapping has no category column.
	Classify bool
	APIKey   string
}

// IngestReport summarizes a committed upload.
type IngestReport struct {
	BatchID    string    `json:"batch_id"`
	Inserted   int       `json:"inserted"`
	Dropped    int       `json:"dropped"`
	FirstID    int64     `json:"first_id"`
	LastID     int64     `json:"last_id"`
	Classified int       `json:"classified"`
	IngestedAt time.Time `json:"ingested_at"`
}

// Ingest normalizes an upload and appends it to the store as one batch.
func (s *Service) Ingest(ctx context.Context, req IngestRequest) (rep IngestReport, err error) {
	start := time.Now()
	outcome := "ok"
	defer func() {
		metrics.RecordIngestBatch(outcome)
		metrics.RecordIngestLatency(float64(time.Since(start).Milliseconds()))
	}()

	store, assistant, err := s.components()
	if err != nil {
		outcome = "failed"
		return IngestReport{}, err
	}

	data, err := s.readUpload(req.Data)
	if err != nil {
		outcome = "invalid"
		return IngestReport{}, err
	}
	tbl, err := ingest.ReadTable(data, req.Filename)
	if err != nil {
		outcome = "invalid"
		return IngestReport{}, err
	}
	res, err := ingest.Normalize(tbl, req.Mapping, s.defaultCategory)
	if err != nil {
		outcome = "invalid"
		return IngestReport{}, err
	}
	metrics.RecordRowsDropped(res.Dropped)
	if len(res.Records) == 0 {
		outcome = "empty"
		return IngestReport{Dropped: res.Dropped}, ErrNoValidRows
	}

	classified := 0
	if req.Classify && req.Mapping.Category == "" {
		classified = s.classifyEvents(ctx, assistant, advisor.ResolveAPIKey(req.APIKey, s.apiKey), res.Records)
	}

	batch, err := store.AppendBatch(ctx, res.Records)
	if err != nil {
		outcome = "failed"
		s.log().Error(ctx, "failed to store batch", logger.String("filename", req.Filename), logger.Error(err))
		return IngestReport{}, fmt.Errorf("store batch: %w", err)
	}
	metrics.RecordRowsIngested(batch.Inserted)

	rep = IngestReport{
		BatchID:    batch.BatchID,
		Inserted:   batch.Inserted,
		Dropped:    res.Dropped,
		FirstID:    batch.FirstID,
		LastID:     batch.LastID,
		Classified: classified,
		IngestedAt: batch.IngestedAt,
	}
	s.log().Info(ctx, "upload ingested",
		logger.String("filename", req.Filename),
		logger.String("batch", rep.BatchID),
		logger.Int("inserted", rep.Inserted),
		logger.Int("dropped", rep.Dropped),
		logger.Int("classified", rep.Classified),
	)
	return rep, nil
}

// classifyEvents labels records by asking once per distinct event name.
// Returns how many events the assistant classified successfully.
func (s *Service) classifyEvents(ctx context.Context, a Assistant, apiKey string, records []model.TrainingRecord) int {
	labels := make(map[string]string)
	ok := 0
	for _, name := range report.Values(records, report.ByEvent) {
		res := a.Classify(ctx, apiKey, name)
		labels[name] = res.Text
		if res.Outcome == advisor.OutcomeOK {
			ok++
		}
		if res.Outcome == advisor.OutcomeNoCredential {
			// the remaining events would fail the same way
			break
		}
	}
	for i := range records {
		if label := labels[records[i].EventName]; label != "" {
			records[i].Category = label
		}
	}
	return ok
}

// Records returns every stored record in insertion order.
func (s *Service) Records(ctx context.Context) ([]model.TrainingRecord, error) {
	store, _, err := s.components()
	if err != nil {
		return nil, err
	}
	return store.LoadAll(ctx)
}

// DeleteRecord removes one record and reports whether it existed.
func (s *Service) DeleteRecord(ctx context.Context, id int64) (bool, error) {
	store, _, err := s.components()
	if err != nil {
		return false, err
	}
	ok, err := store.DeleteOne(ctx, id)
	if err != nil {
		return false, err
	}
	s.log().Info(ctx, "record delete requested", logger.Int64("id", id), logger.Bool("deleted", ok))
	return ok, nil
}

// ClearRecords removes every record.
func (s *Service) ClearRecords(ctx context.Context) (int64, error) {
	store, _, err := s.components()
	if err != nil {
		return 0, err
	}
	n, err := store.DeleteAll(ctx)
	if err != nil {
		return 0, err
	}
	s.log().Warn(ctx, "all records cleared", logger.Int64("removed", n))
	return n, nil
}

func (s *Service) load(ctx context.Context, kind string) ([]model.TrainingRecord, error) {
	records, err := s.Records(ctx)
	if err != nil {
		return nil, err
	}
	metrics.RecordReport(kind)
	return records, nil
}

// Summary returns the headline metrics.
func (s *Service) Summary(ctx context.Context) (report.Metrics, error) {
	records, err := s.load(ctx, "summary")
	if err != nil {
		return report.Metrics{}, err
	}
	return report.Summarize(records), nil
}

// Top returns the n largest groups. n == 0 uses the configured default and
// n < 0 returns every group.
func (s *Service) Top(ctx context.Context, d report.Dimension, m report.Measure, n int) ([]report.GroupTotal, error) {
	records, err := s.load(ctx, "top")
	if err != nil {
		return nil, err
	}
	if n == 0 {
		n = s.defaultTopN
	}
	return report.TopN(records, d, m, n), nil
}

// Values lists the distinct values of d.
func (s *Service) Values(ctx context.Context, d report.Dimension) ([]string, error) {
	records, err := s.load(ctx, "values")
	if err != nil {
		return nil, err
	}
	return report.Values(records, d), nil
}

// Detail returns every record of one person or organization.
func (s *Service) Detail(ctx context.Context, d report.Dimension, value string) (report.Detail, error) {
	records, err := s.load(ctx, "detail")
	if err != nil {
		return report.Detail{}, err
	}
	return report.DetailOf(records, d, value)
}

// Pivot sums hours per value of d.
func (s *Service) Pivot(ctx context.Context, d report.Dimension) (report.Table, error) {
	records, err := s.load(ctx, "pivot")
	if err != nil {
		return report.Table{}, err
	}
	return report.Pivot(records, d), nil
}

// ExportCSV writes the pivot of d as CSV.
func (s *Service) ExportCSV(ctx context.Context, w io.Writer, d report.Dimension) error {
	t, err := s.Pivot(ctx, d)
	if err != nil {
		return err
	}
	return report.WriteCSV(w, t)
}

// Ask sends the store summary and question to the assistant.
func (s *Service) Ask(ctx context.Context, apiKey, question string) (advisor.Result, error) {
	if strings.TrimSpace(question) == "" {
		return advisor.Result{}, ErrEmptyQuestion
	}
	_, assistant, err := s.components()
	if err != nil {
		return advisor.Result{}, err
	}
	records, err := s.load(ctx, "assistant_summary")
	if err != nil {
		return advisor.Result{}, err
	}
	if len(records) == 0 {
		return advisor.Result{}, ErrNoData
	}
	return assistant.Ask(ctx, advisor.ResolveAPIKey(apiKey, s.apiKey), report.SummaryText(records), question), nil
}

// Classify asks the assistant for the category of one event name.
func (s *Service) Classify(ctx context.Context, apiKey, eventName string) (advisor.Result, error) {
	if strings.TrimSpace(eventName) == "" {
		return advisor.Result{}, ErrEmptyEventName
	}
	_, assistant, err := s.components()
	if err != nil {
		return advisor.Result{}, err
	}
	return assistant.Classify(ctx, advisor.ResolveAPIKey(apiKey, s.apiKey), eventName), nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":          s.started,
		"previewRows":      s.previewRows,
		"defaultTopN":      s.defaultTopN,
		"maxUploadBytes":   s.maxUploadBytes,
		"defaultCategory":  s.defaultCategory,
		"apiKeyConfigured": s.apiKey != "",
	}
	if s.started {
		stats["uptimeSeconds"] = int64(time.Since(s.startedAt).Seconds())
		if n, err := s.store.Count(context.Background()); err == nil {
			stats["records"] = n
			metrics.UpdateRecordsStored(n)
		}
	}
	return stats
}

func (s *Service) log() logger.Logger {
	if s.logger == nil {
		return logger.Get()
	}
	return s.logger
}

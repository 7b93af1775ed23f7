// Package client talks to the dashboard HTTP API. The command line tool uses
// it; it is also handy for smoke-testing a running server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	service "github.com/okian/formacao/internal/app"
	"github.com/okian/formacao/internal/domain/ingest"
	"github.com/okian/formacao/internal/domain/model"
	"github.com/okian/formacao/internal/domain/report"
)

const defaultTimeout = 60 * time.Second

// ErrMissingFile is returned when an upload has no file name.
var ErrMissingFile = errors.New("client: file name is required")

// APIError is a non-2xx response decoded from the server's error body.
type APIError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("http %d", e.Status)
	}
	return fmt.Sprintf("http %d %s: %s", e.Status, e.Code, e.Message)
}

// Answer is what the assistant endpoints return.
type Answer struct {
	Text    string `json:"text"`
	Outcome string `json:"outcome"`
	Error   string `json:"error,omitempty"`
}

// Client wraps http.Client with the API base URL.
type Client struct {
	baseURL string
	http    *http.Client
	apiKey  string
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithAPIKey sends key in the X-Gemini-Api-Key header on every request.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = strings.TrimSpace(key) }
}

// New creates a client for the server at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Preview uploads a spreadsheet and returns its headers and first rows.
func (c *Client) Preview(ctx context.Context, filename string, r io.Reader) (service.PreviewResult, error) {
	var out service.PreviewResult
	err := c.upload(ctx, "/uploads/preview", filename, r, nil, &out)
	return out, err
}

// Ingest uploads a spreadsheet with its column mapping.
func (c *Client) Ingest(ctx context.Context, filename string, r io.Reader, m ingest.Mapping, classify bool) (service.IngestReport, error) {
	fields := map[string]string{
		"person":       m.Person,
		"organization": m.Organization,
		"event":        m.Event,
		"hours":        m.Hours,
		"date_column":  m.DateColumn,
		"category":     m.Category,
	}
	if m.ManualDate.Valid {
		fields["date"] = m.ManualDate.String()
	}
	if classify {
		fields["classify"] = "true"
	}
	var out service.IngestReport
	err := c.upload(ctx, "/uploads", filename, r, fields, &out)
	return out, err
}

// Records lists every stored record.
func (c *Client) Records(ctx context.Context) ([]model.TrainingRecord, error) {
	var out []model.TrainingRecord
	err := c.do(ctx, http.MethodGet, "/records", nil, nil, &out)
	return out, err
}

// DeleteRecord removes one record. A missing id surfaces as a 404 APIError.
func (c *Client) DeleteRecord(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/records/"+strconv.FormatInt(id, 10), nil, nil, nil)
}

// ClearRecords removes every record and returns how many were deleted.
func (c *Client) ClearRecords(ctx context.Context) (int64, error) {
	var out struct {
		Deleted int64 `json:"deleted"`
	}
	err := c.do(ctx, http.MethodDelete, "/records", url.Values{"confirm": {"true"}}, nil, &out)
	return out.Deleted, err
}

// Summary returns the headline metrics.
func (c *Client) Summary(ctx context.Context) (report.Metrics, error) {
	var out report.Metrics
	err := c.do(ctx, http.MethodGet, "/reports/summary", nil, nil, &out)
	return out, err
}

// Top returns the largest groups. n <= 0 asks for every group.
func (c *Client) Top(ctx context.Context, d report.Dimension, m report.Measure, n int) ([]report.GroupTotal, error) {
	q := url.Values{"by": {string(d)}, "measure": {string(m)}, "n": {"all"}}
	if n > 0 {
		q.Set("n", strconv.Itoa(n))
	}
	var out []report.GroupTotal
	err := c.do(ctx, http.MethodGet, "/reports/top", q, nil, &out)
	return out, err
}

// Detail returns the records of one person or organization.
func (c *Client) Detail(ctx context.Context, d report.Dimension, value string) (report.Detail, error) {
	var out report.Detail
	err := c.do(ctx, http.MethodGet, "/reports/detail", url.Values{"by": {string(d)}, "value": {value}}, nil, &out)
	return out, err
}

// ExportCSV copies the pivot CSV for d into w.
func (c *Client) ExportCSV(ctx context.Context, w io.Writer, d report.Dimension) error {
	resp, err := c.send(ctx, http.MethodGet, "/reports/pivot.csv", url.Values{"by": {string(d)}}, "", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("client: read csv: %w", err)
	}
	return nil
}

// Ask sends a free-form question to the assistant.
func (c *Client) Ask(ctx context.Context, question string) (Answer, error) {
	var out Answer
	err := c.do(ctx, http.MethodPost, "/assistant/ask", nil, map[string]string{"question": question}, &out)
	return out, err
}

// Classify asks the assistant for an event's category.
func (c *Client) Classify(ctx context.Context, eventName string) (Answer, error) {
	var out Answer
	err := c.do(ctx, http.MethodPost, "/assistant/classify", nil, map[string]string{"event_name": eventName}, &out)
	return out, err
}

func (c *Client) upload(ctx context.Context, path, filename string, r io.Reader, fields map[string]string, out any) error {
	if strings.TrimSpace(filename) == "" {
		return ErrMissingFile
	}
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return fmt.Errorf("client: create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return fmt.Errorf("client: read %s: %w", filename, err)
	}
	for k, v := range fields {
		if v == "" {
			continue
		}
		if err := mw.WriteField(k, v); err != nil {
			return fmt.Errorf("client: write field %s: %w", k, err)
		}
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("client: close form: %w", err)
	}

	resp, err := c.send(ctx, http.MethodPost, path, nil, mw.FormDataContentType(), &body)
	if err != nil {
		return err
	}
	return decode(resp, out)
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, in, out any) error {
	var (
		body        io.Reader
		contentType string
	)
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("client: marshal request body: %w", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}
	resp, err := c.send(ctx, method, path, q, contentType, body)
	if err != nil {
		return err
	}
	return decode(resp, out)
}

// send performs the request and turns non-2xx responses into *APIError.
func (c *Client) send(ctx context.Context, method, path string, q url.Values, contentType string, body io.Reader) (*http.Response, error) {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("client: create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.apiKey != "" {
		req.Header.Set("X-Gemini-Api-Key", c.apiKey)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		apiErr := &APIError{Status: resp.StatusCode}
		if data, err := io.ReadAll(resp.Body); err == nil {
			_ = json.Unmarshal(data, apiErr)
		}
		return nil, apiErr
	}
	return resp, nil
}

func decode(resp *http.Response, out any) error {
	defer resp.Body.Close()
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("client: decode response: %w", err)
	}
	return nil
}

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // database/sql driver "sqlite"

	"github.com/okian/formacao/internal/domain/model"
	"github.com/okian/formacao/pkg/metrics"
)

const memoryPath = ":memory:"

const schema = `
CREATE TABLE IF NOT EXISTS training_records (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  person_name TEXT NOT NULL CHECK (length(trim(person_name)) > 0),
  organization TEXT NOT NULL CHECK (length(trim(organization)) > 0),
  event_name TEXT NOT NULL CHECK (length(trim(event_name)) > 0),
  category TEXT NOT NULL DEFAULT '',
  hours REAL NOT NULL DEFAULT 0 CHECK (hours >= 0),
  event_date TEXT NULL,
  batch_id TEXT NOT NULL,
  ingested_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_training_records_org ON training_records(organization);
CREATE INDEX IF NOT EXISTS idx_training_records_person ON training_records(person_name);
CREATE INDEX IF NOT EXISTS idx_training_records_batch ON training_records(batch_id);
`

// SQLiteStore is a Store backed by a single SQLite file.
// Reads run concurrently; writes are serialized by mu.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex

	busyTimeout time.Duration
	now         func() time.Time
	newBatchID  func() string
}

var _ Store = (*SQLiteStore)(nil)

// Open opens (creating if needed) the database at path and applies the schema.
// Opening an existing database keeps its records.
func Open(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, ErrEmptyPath
	}

	s := &SQLiteStore{
		busyTimeout: 5 * time.Second,
		now:         time.Now,
		newBatchID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}

	if path != memoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)", path, s.busyTimeout.Milliseconds())
	if path != memoryPath {
		dsn += "&_pragma=journal_mode(WAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if path == memoryPath {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}
	s.db = db

	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if n, err := s.Count(ctx); err == nil {
		metrics.UpdateRecordsStored(n)
	}
	return s, nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func observe(op string, start time.Time, err error) {
	metrics.RecordStoreLatency(op, float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordStoreError(op)
	}
}

// AppendBatch implements Store.AppendBatch.
func (s *SQLiteStore) AppendBatch(ctx context.Context, records []model.TrainingRecord) (res BatchResult, err error) {
	start := time.Now()
	defer func() { observe("append_batch", start, err) }()

	if len(records) == 0 {
		return BatchResult{}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return BatchResult{}, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO training_records
  (person_name, organization, event_name, category, hours, event_date, batch_id, ingested_at)
  VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return BatchResult{}, fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	res = BatchResult{
		BatchID:    s.newBatchID(),
		IngestedAt: s.now().UTC(),
	}
	ingestedAt := res.IngestedAt.Format(time.RFC3339Nano)
	for i, r := range records {
		out, err := stmt.ExecContext(ctx,
			r.PersonName, r.Organization, r.EventName, r.Category,
			r.Hours, nullDate(r.EventDate), res.BatchID, ingestedAt)
		if err != nil {
			return BatchResult{}, fmt.Errorf("insert row %d: %w", i, err)
		}
		id, err := out.LastInsertId()
		if err != nil {
			return BatchResult{}, fmt.Errorf("insert row %d: %w", i, err)
		}
		if i == 0 {
			res.FirstID = id
		}
		res.LastID = id
	}
	if err := tx.Commit(); err != nil {
		return BatchResult{}, fmt.Errorf("commit: %w", err)
	}
	res.Inserted = len(records)
	s.refreshGauge(ctx)
	return res, nil
}

// LoadAll implements Store.LoadAll.
func (s *SQLiteStore) LoadAll(ctx context.Context) (out []model.TrainingRecord, err error) {
	start := time.Now()
	defer func() { observe("load_all", start, err) }()

	rows, err := s.db.QueryContext(ctx, `SELECT id, person_name, organization, event_name, category,
  hours, event_date, batch_id, ingested_at FROM training_records ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out = make([]model.TrainingRecord, 0)
	for rows.Next() {
		var (
			r          model.TrainingRecord
			eventDate  sql.NullString
			ingestedAt string
		)
		if err := rows.Scan(&r.ID, &r.PersonName, &r.Organization, &r.EventName, &r.Category,
			&r.Hours, &eventDate, &r.BatchID, &ingestedAt); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		if eventDate.Valid && eventDate.String != "" {
			if d, err := model.ParseISODate(eventDate.String); err == nil {
				r.EventDate = d
			}
		}
		if t, err := time.Parse(time.RFC3339Nano, ingestedAt); err == nil {
			r.IngestedAt = t
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

// DeleteOne implements Store.DeleteOne.
func (s *SQLiteStore) DeleteOne(ctx context.Context, id int64) (deleted bool, err error) {
	start := time.Now()
	defer func() { observe("delete_one", start, err) }()

	if id <= 0 {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out, err := s.db.ExecContext(ctx, `DELETE FROM training_records WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete record %d: %w", id, err)
	}
	n, err := out.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete record %d: %w", id, err)
	}
	if n > 0 {
		metrics.RecordRecordsDeleted(n)
		s.refreshGauge(ctx)
	}
	return n > 0, nil
}

// DeleteAll implements Store.DeleteAll.
func (s *SQLiteStore) DeleteAll(ctx context.Context) (removed int64, err error) {
	start := time.Now()
	defer func() { observe("delete_all", start, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	out, err := s.db.ExecContext(ctx, `DELETE FROM training_records`)
	if err != nil {
		return 0, fmt.Errorf("clear records: %w", err)
	}
	n, err := out.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clear records: %w", err)
	}
	metrics.RecordRecordsDeleted(n)
	metrics.UpdateRecordsStored(0)
	return n, nil
}

// Count implements Store.Count.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM training_records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) refreshGauge(ctx context.Context) {
	if n, err := s.Count(ctx); err == nil {
		metrics.UpdateRecordsStored(n)
	}
}

func nullDate(d model.NullDate) any {
	if !d.Valid {
		return nil
	}
	return d.String()
}

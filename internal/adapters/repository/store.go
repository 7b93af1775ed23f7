// Package repository persists training records.
package repository

import (
	"context"
	"time"

	"github.com/okian/formacao/internal/domain/model"
)

// BatchResult describes one committed AppendBatch call.
type BatchResult struct {
	BatchID    string    `json:"batch_id"`
	Inserted   int       `json:"inserted"`
	FirstID    int64     `json:"first_id,omitempty"`
	LastID     int64     `json:"last_id,omitempty"`
	IngestedAt time.Time `json:"ingested_at"`
}

// Store provides durable access to training records.
type Store interface {
	// AppendBatch inserts every record in one transaction, assigning ids,
	// the ingestion time and a shared batch id. Either all rows commit or none.
	AppendBatch(ctx context.Context, records []model.TrainingRecord) (BatchResult, error)

	// LoadAll returns every record in insertion order.
	LoadAll(ctx context.Context) ([]model.TrainingRecord, error)

	// DeleteOne removes the record with id and reports whether it existed.
	DeleteOne(ctx context.Context, id int64) (bool, error)

	// DeleteAll removes every record and returns how many were removed.
	DeleteAll(ctx context.Context) (int64, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	Close() error
}

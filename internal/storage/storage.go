// Package storage persists records, their metadata and embeddings.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/kabbel/internal/models"
)

// ErrNotFound is returned when a record ID does not exist.
var ErrNotFound = errors.New("record not found")

// Storage defines record persistence operations. Filters use the metadata
// key names from models (typ, parti, år, ...).
type Storage interface {
	// UpsertRecords inserts or replaces records by ID. embeddings is parallel
	// to records; a nil entry stores no vector.
	UpsertRecords(ctx context.Context, records []*models.Record, embeddings [][]float32) error
	GetRecord(ctx context.Context, id string) (*models.Record, error)
	// GetRecordsByIDs returns the records that exist, in the order of ids.
	GetRecordsByIDs(ctx context.Context, ids []string) ([]*models.Record, error)
	GetRecords(ctx context.Context, filter models.Filter) ([]*models.Record, error)
	FilterIDs(ctx context.Context, filter models.Filter) ([]string, error)
	// DeleteRecords removes every record matching filter and returns their IDs.
	DeleteRecords(ctx context.Context, filter models.Filter) ([]string, error)
	CountRecords(ctx context.Context, filter models.Filter) (int64, error)
	// ForEach calls fn for every stored record with its embedding, in insertion order.
	ForEach(ctx context.Context, fn func(rec *models.Record, embedding []float32) error) error

	Close() error
}

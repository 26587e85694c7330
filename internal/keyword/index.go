// Package keyword provides lexical (BM25) search over record text with
// metadata filters.
package keyword

import (
	"context"

	"github.com/hyperjump/kabbel/internal/models"
)

// KeywordIndex defines keyword search operations.
type KeywordIndex interface {
	Index(ctx context.Context, records []*models.Record) error
	// Search returns up to limit records matching query that also satisfy filter.
	Search(ctx context.Context, query string, limit int, filter models.Filter) ([]*KeywordResult, error)
	Delete(ctx context.Context, ids []string) error
	// DocCount returns the total number of documents in the index.
	DocCount() (uint64, error)
	Close() error
}

// KeywordResult is a single keyword search hit.
type KeywordResult struct {
	ID    string
	Score float64
}

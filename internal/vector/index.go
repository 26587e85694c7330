// Package vector provides the in-memory semantic index over record embeddings.
package vector

import "context"

// VectorIndex stores one vector per record ID and answers similarity queries.
type VectorIndex interface {
	// Upsert adds vectors, replacing any existing vector for the same ID.
	Upsert(ctx context.Context, ids []string, vectors [][]float32) error
	// Search returns the k most similar vectors whose ID passes allow.
	// A nil allow admits every ID.
	Search(ctx context.Context, query []float32, k int, allow func(id string) bool) ([]*VectorResult, error)
	Remove(ctx context.Context, ids []string) error
	Size() int
	Dimensions() int
	Close() error
}

// VectorResult is a single search hit keyed by record ID.
type VectorResult struct {
	ID    string
	Score float64 // cosine similarity for normalized vectors
}

// AllowSet returns an allow function admitting exactly ids.
func AllowSet(ids []string) func(string) bool {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return func(id string) bool {
		_, ok := set[id]
		return ok
	}
}

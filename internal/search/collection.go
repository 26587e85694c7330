// Package search implements the record collection: SQLite storage, a Bleve
// keyword index and an in-memory vector index behind one Upsert/Get/Query API.
package search

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/hyperjump/kabbel/internal/config"
	"github.com/hyperjump/kabbel/internal/embedding"
	"github.com/hyperjump/kabbel/internal/keyword"
	"github.com/hyperjump/kabbel/internal/models"
	"github.com/hyperjump/kabbel/internal/storage"
	"github.com/hyperjump/kabbel/internal/vector"
	"github.com/hyperjump/kabbel/pkg/utils"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const reembedBatch = 256

// Collection is the default record index. Writes go to storage first, then to
// the vector and keyword indexes; reads filter through storage.
type Collection struct {
	storage        storage.Storage
	embedder       embedding.Embedder
	vectors        vector.VectorIndex
	keywords       keyword.KeywordIndex
	keywordWeight  float64
	semanticWeight float64
	candidates     int
	logger         *zap.Logger

	// mu serialises writers against readers so a query never sees a record
	// in storage whose vector is not indexed yet.
	mu sync.RWMutex
}

// Option configures a Collection.
type Option func(*Collection)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Collection) { c.logger = l }
}

// NewCollection wires a collection from its parts. Call Load to populate the
// in-memory vector index from storage.
func NewCollection(
	store storage.Storage,
	embedder embedding.Embedder,
	vectors vector.VectorIndex,
	keywords keyword.KeywordIndex,
	cfg config.RetrievalConfig,
	opts ...Option,
) *Collection {
	c := &Collection{
		storage:        store,
		embedder:       embedder,
		vectors:        vectors,
		keywords:       keywords,
		keywordWeight:  cfg.KeywordWeight,
		semanticWeight: cfg.SemanticWeight,
		candidates:     cfg.TopKCandidates,
	}
	if c.candidates <= 0 {
		c.candidates = 200
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = utils.OrNop(c.logger)
	return c
}

// newEmbedder builds the embedder for Open.
var newEmbedder = embedding.New

// Open builds the collection described by cfg: SQLite at Storage.DatabasePath,
// Bleve at Storage.BleveIndexPath and the configured embedder, then loads it.
// Whatever was opened before a failure is closed again.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Collection, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, err
	}
	emb, err := newEmbedder(cfg.Embedding, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	cleanup := func() {
		_ = emb.Close()
		_ = store.Close()
	}
	vecs, err := vector.NewMemoryIndex(cfg.Embedding.Dimensions)
	if err != nil {
		cleanup()
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Storage.BleveIndexPath), 0755); err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}
	kw, err := keyword.NewBleveIndex(cfg.Storage.BleveIndexPath)
	if err != nil {
		cleanup()
		return nil, err
	}
	c := NewCollection(store, emb, vecs, kw, cfg.Retrieval, WithLogger(logger))
	if err := c.Load(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

// Load rebuilds the vector index from stored embeddings. Records without an
// embedding of the current dimension are re-embedded and written back. The
// keyword index is re-populated when its document count disagrees with storage.
func (c *Collection) Load(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	dims := c.vectors.Dimensions()
	var (
		ids   []string
		vecs  [][]float32
		stale []*models.Record
		all   []*models.Record
	)
	err := c.storage.ForEach(ctx, func(rec *models.Record, emb []float32) error {
		all = append(all, rec)
		if len(emb) != dims {
			stale = append(stale, rec)
			return nil
		}
		ids = append(ids, rec.ID)
		vecs = append(vecs, emb)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to read stored embeddings: %w", err)
	}
	if err := c.vectors.Upsert(ctx, ids, vecs); err != nil {
		return fmt.Errorf("failed to rebuild vector index: %w", err)
	}

	if len(stale) > 0 {
		c.logger.Info("re-embedding records", zap.Int("records", len(stale)))
		for start := 0; start < len(stale); start += reembedBatch {
			end := start + reembedBatch
			if end > len(stale) {
				end = len(stale)
			}
			if err := c.writeLocked(ctx, stale[start:end], false); err != nil {
				return err
			}
		}
	}

	docs, err := c.keywords.DocCount()
	if err != nil {
		return fmt.Errorf("failed to count keyword index: %w", err)
	}
	if docs != uint64(len(all)) {
		c.logger.Info("rebuilding keyword index",
			zap.Uint64("indexed", docs),
			zap.Int("records", len(all)))
		if err := c.keywords.Index(ctx, all); err != nil {
			return fmt.Errorf("failed to rebuild keyword index: %w", err)
		}
	}
	c.logger.Debug("collection loaded", zap.Int("records", len(all)), zap.Int("vectors", c.vectors.Size()))
	return nil
}

// Upsert embeds and stores records, replacing any existing record with the same ID.
func (c *Collection) Upsert(ctx context.Context, records []*models.Record) error {
	if len(records) == 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeLocked(ctx, records, true)
}

func (c *Collection) writeLocked(ctx context.Context, records []*models.Record, index bool) error {
	texts := make([]string, len(records))
	ids := make([]string, len(records))
	for i, r := range records {
		texts[i] = r.Text
		ids[i] = r.ID
	}
	embeddings, err := c.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding failed: %w", err)
	}
	if err := c.storage.UpsertRecords(ctx, records, embeddings); err != nil {
		return err
	}
	if err := c.vectors.Upsert(ctx, ids, embeddings); err != nil {
		return fmt.Errorf("vector upsert failed: %w", err)
	}
	if index {
		if err := c.keywords.Index(ctx, records); err != nil {
			return fmt.Errorf("keyword index failed: %w", err)
		}
	}
	return nil
}

// Get returns every record matching filter in insertion order.
func (c *Collection) Get(ctx context.Context, filter models.Filter) ([]*models.Record, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.storage.GetRecords(ctx, filter)
}

// GetByID returns one record or storage.ErrNotFound.
func (c *Collection) GetByID(ctx context.Context, id string) (*models.Record, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.storage.GetRecord(ctx, id)
}

// Count returns the number of records matching filter.
func (c *Collection) Count(ctx context.Context, filter models.Filter) (int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.storage.CountRecords(ctx, filter)
}

// Delete removes every record matching filter from all indexes and returns how many were removed.
func (c *Collection) Delete(ctx context.Context, filter models.Filter) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids, err := c.storage.DeleteRecords(ctx, filter)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	if err := c.vectors.Remove(ctx, ids); err != nil {
		return len(ids), fmt.Errorf("vector remove failed: %w", err)
	}
	if err := c.keywords.Delete(ctx, ids); err != nil {
		return len(ids), fmt.Errorf("keyword delete failed: %w", err)
	}
	return len(ids), nil
}

// Query returns, for each text, up to k records satisfying filter ranked by
// fused keyword and semantic score. The result is parallel to texts; a blank
// text yields an empty list.
func (c *Collection) Query(ctx context.Context, texts []string, k int, filter models.Filter) ([][]models.Match, error) {
	if err := models.ValidateFilter(filter); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([][]models.Match, len(texts))
	if k <= 0 {
		return out, nil
	}

	var allow func(string) bool
	if filter != nil {
		ids, err := c.storage.FilterIDs(ctx, filter)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return out, nil
		}
		allow = vector.AllowSet(ids)
	}

	for i, text := range texts {
		text = strings.Join(strings.Fields(text), " ")
		if text == "" {
			continue
		}
		matches, err := c.queryOne(ctx, text, k, filter, allow)
		if err != nil {
			return nil, err
		}
		out[i] = matches
	}
	return out, nil
}

func (c *Collection) queryOne(ctx context.Context, text string, k int, filter models.Filter, allow func(string) bool) ([]models.Match, error) {
	candidates := c.candidates
	if k > candidates {
		candidates = k
	}

	var (
		keywordResults  []*keyword.KeywordResult
		semanticResults []*vector.VectorResult
	)
	g, gctx := errgroup.WithContext(ctx)
	if c.keywordWeight > 0 {
		g.Go(func() error {
			results, err := c.keywords.Search(gctx, text, candidates, filter)
			if err != nil {
				return fmt.Errorf("keyword search failed: %w", err)
			}
			keywordResults = results
			return nil
		})
	}
	if c.semanticWeight > 0 {
		g.Go(func() error {
			q, err := c.embedder.Embed(gctx, text)
			if err != nil {
				return fmt.Errorf("embedding failed: %w", err)
			}
			results, err := c.vectors.Search(gctx, q, candidates, allow)
			if err != nil {
				return fmt.Errorf("vector search failed: %w", err)
			}
			semanticResults = results
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	fused := Fuse(
		NormalizeKeywordScores(keywordResults),
		NormalizeSemanticScores(semanticResults),
		c.keywordWeight, c.semanticWeight,
	)
	ids := make([]string, 0, len(fused))
	scores := make(map[string]float64, len(fused))
	for _, r := range fused {
		if allow != nil && !allow(r.ID) {
			continue
		}
		ids = append(ids, r.ID)
		scores[r.ID] = r.Score
	}

	// Stale keyword entries have no stored record and drop out here.
	records, err := c.storage.GetRecordsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(records) > k {
		records = records[:k]
	}
	matches := make([]models.Match, len(records))
	for i, rec := range records {
		matches[i] = models.Match{Record: rec, Score: scores[rec.ID]}
	}
	return matches, nil
}

// Size returns the number of indexed vectors.
func (c *Collection) Size() int {
	return c.vectors.Size()
}

// Close closes every component, returning the first error.
func (c *Collection) Close() error {
	var first error
	for _, closer := range []interface{ Close() error }{c.keywords, c.vectors, c.embedder, c.storage} {
		if err := closer.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

package search

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/kabbel/internal/config"
	"github.com/hyperjump/kabbel/internal/embedding"
	"github.com/hyperjump/kabbel/internal/keyword"
	"github.com/hyperjump/kabbel/internal/models"
	"github.com/hyperjump/kabbel/internal/storage"
	"github.com/hyperjump/kabbel/internal/vector"
	"go.uber.org/zap"
)

func debate(id, party, year, text string) *models.Record {
	return &models.Record{
		ID:   id,
		Text: text,
		Metadata: models.Metadata{
			Type: models.TypeDebate, Party: party, Year: year, Date: year + "-05-01",
			DocID: "D-" + id, Speaker: "Talare", Rebuttal: "N",
		},
	}
}

func testRecords() []*models.Record {
	return []*models.Record{
		debate("a", "V", "2021", "Klimat är vår tids största fråga."),
		debate("b", "S", "2021", "Vi satsar på klimat och jobb i hela landet."),
		debate("c", "V", "2022", "Skolorna behöver fler lärare och mindre klasser."),
		debate("d", "M", "2022", "Klimatpolitiken måste vara kostnadseffektiv."),
	}
}

func newTestCollection(t *testing.T, store storage.Storage) *Collection {
	t.Helper()
	vecs, err := vector.NewMemoryIndex(64)
	if err != nil {
		t.Fatal(err)
	}
	kw, err := keyword.NewMemoryBleveIndex()
	if err != nil {
		t.Fatal(err)
	}
	cfg := config.RetrievalConfig{KeywordWeight: 0.5, SemanticWeight: 0.5, TopKCandidates: 50}
	c := NewCollection(store, embedding.NewHashingEmbedder(64), vecs, kw, cfg)
	if err := c.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func newStore(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "records.db"))
	if err != nil {
		t.Fatal(err)
	}
	return store
}

func seeded(t *testing.T) *Collection {
	t.Helper()
	c := newTestCollection(t, newStore(t))
	if err := c.Upsert(context.Background(), testRecords()); err != nil {
		t.Fatal(err)
	}
	return c
}

func matchIDs(ms []models.Match) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.Record.ID
	}
	return out
}

func TestCollection_upsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	c := seeded(t)
	if err := c.Upsert(ctx, testRecords()); err != nil {
		t.Fatal(err)
	}
	n, err := c.Count(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if n != 4 || c.Size() != 4 {
		t.Errorf("count = %d, vectors = %d, want 4", n, c.Size())
	}
	got, err := c.Get(ctx, models.Eq{Key: models.KeyParty, Value: "V"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "c" {
		t.Errorf("Get(parti=V) = %v", got)
	}
}

func TestCollection_Query(t *testing.T) {
	ctx := context.Background()
	c := seeded(t)

	res, err := c.Query(ctx, []string{"klimat", "   ", "skola"}, 2, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 3 {
		t.Fatalf("result lists = %d, want 3", len(res))
	}
	if len(res[0]) != 2 {
		t.Errorf("klimat hits = %v, want 2", matchIDs(res[0]))
	}
	for _, m := range res[0] {
		if m.Record.ID == "c" {
			t.Errorf("school debate ranked in top 2 for klimat: %v", matchIDs(res[0]))
		}
	}
	if len(res[1]) != 0 {
		t.Errorf("blank query should give no hits, got %v", matchIDs(res[1]))
	}
	if len(res[2]) == 0 || res[2][0].Record.ID != "c" {
		t.Errorf("skola top hit = %v, want c", matchIDs(res[2]))
	}
	if res[0][0].Score < res[0][1].Score {
		t.Error("matches should be in score order")
	}
}

func TestCollection_QueryFilter(t *testing.T) {
	ctx := context.Background()
	c := seeded(t)
	tests := []struct {
		name   string
		filter models.Filter
		want   map[string]bool
	}{
		{"party", models.Eq{Key: models.KeyParty, Value: "V"}, map[string]bool{"a": true, "c": true}},
		{"party and year", models.And{
			models.Eq{Key: models.KeyParty, Value: "V"},
			models.Eq{Key: models.KeyYear, Value: "2021"},
		}, map[string]bool{"a": true}},
		{"years", models.In{Key: models.KeyYear, Values: []string{"2022"}}, map[string]bool{"c": true, "d": true}},
		{"nothing", models.Eq{Key: models.KeyParty, Value: "KD"}, map[string]bool{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := c.Query(ctx, []string{"klimat"}, 10, tt.filter)
			if err != nil {
				t.Fatal(err)
			}
			for _, m := range res[0] {
				if !tt.want[m.Record.ID] {
					t.Errorf("unexpected hit %s", m.Record.ID)
				}
			}
			if len(res[0]) > len(tt.want) {
				t.Errorf("got %d hits, want at most %d", len(res[0]), len(tt.want))
			}
		})
	}
}

func TestCollection_QueryUnknownKey(t *testing.T) {
	c := seeded(t)
	_, err := c.Query(context.Background(), []string{"x"}, 3, models.Eq{Key: "party", Value: "V"})
	if !errors.Is(err, models.ErrUnknownFilterKey) {
		t.Errorf("expected ErrUnknownFilterKey, got %v", err)
	}
}

func TestCollection_Delete(t *testing.T) {
	ctx := context.Background()
	c := seeded(t)
	n, err := c.Delete(ctx, models.Eq{Key: models.KeyParty, Value: "V"})
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("deleted %d, want 2", n)
	}
	res, err := c.Query(ctx, []string{"klimat skola"}, 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, m := range res[0] {
		if m.Record.Metadata.Party == "V" {
			t.Errorf("deleted record %s still returned", m.Record.ID)
		}
	}
	if _, err := c.GetByID(ctx, "a"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetByID after delete: %v", err)
	}
	if c.Size() != 2 {
		t.Errorf("vectors = %d, want 2", c.Size())
	}
}

func TestCollection_LoadReembedsMissingVectors(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	recs := testRecords()
	if err := store.UpsertRecords(ctx, recs, make([][]float32, len(recs))); err != nil {
		t.Fatal(err)
	}
	c := newTestCollection(t, store)
	if c.Size() != len(recs) {
		t.Errorf("vectors = %d, want %d", c.Size(), len(recs))
	}
	res, err := c.Query(ctx, []string{"lärare"}, 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(res[0]) != 1 || res[0][0].Record.ID != "c" {
		t.Errorf("query after load = %v", matchIDs(res[0]))
	}
}

func TestOpen_reopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	cfg := &config.Config{Storage: config.StorageConfig{
		DatabasePath:   filepath.Join(dir, "db", "records.db"),
		BleveIndexPath: filepath.Join(dir, "indices", "bleve"),
	}}
	config.ApplyDefaults(cfg)

	c, err := Open(ctx, cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Upsert(ctx, testRecords()); err != nil {
		t.Fatal(err)
	}
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}

	c, err = Open(ctx, cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	if c.Size() != 4 {
		t.Errorf("vectors after reopen = %d, want 4", c.Size())
	}
	res, err := c.Query(ctx, []string{"klimat"}, 1, models.Eq{Key: models.KeyParty, Value: "S"})
	if err != nil {
		t.Fatal(err)
	}
	if len(res[0]) != 1 || res[0][0].Record.ID != "b" {
		t.Errorf("query after reopen = %v", matchIDs(res[0]))
	}
}

type closeRecorder struct {
	embedding.Embedder
	closed int
}

func (c *closeRecorder) Close() error {
	c.closed++
	return c.Embedder.Close()
}

func TestOpen_failureClosesEmbedder(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, cfg *config.Config)
	}{
		{"vector index", func(t *testing.T, cfg *config.Config) {
			cfg.Embedding.Dimensions = 0
		}},
		{"index directory", func(t *testing.T, cfg *config.Config) {
			file := filepath.Join(t.TempDir(), "file")
			if err := os.WriteFile(file, []byte("x"), 0600); err != nil {
				t.Fatal(err)
			}
			cfg.Storage.BleveIndexPath = filepath.Join(file, "indices", "bleve")
		}},
		{"keyword index", func(t *testing.T, cfg *config.Config) {
			file := filepath.Join(t.TempDir(), "bleve")
			if err := os.WriteFile(file, []byte("x"), 0600); err != nil {
				t.Fatal(err)
			}
			cfg.Storage.BleveIndexPath = file
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			cfg := &config.Config{Storage: config.StorageConfig{
				DatabasePath:   filepath.Join(dir, "db", "records.db"),
				BleveIndexPath: filepath.Join(dir, "indices", "bleve"),
			}}
			config.ApplyDefaults(cfg)
			tt.setup(t, cfg)

			rec := &closeRecorder{Embedder: embedding.NewHashingEmbedder(8)}
			orig := newEmbedder
			newEmbedder = func(config.EmbeddingConfig, *zap.Logger) (embedding.Embedder, error) { return rec, nil }
			t.Cleanup(func() { newEmbedder = orig })

			if _, err := Open(context.Background(), cfg, nil); err == nil {
				t.Fatal("expected Open to fail")
			}
			if rec.closed != 1 {
				t.Errorf("embedder closed %d times, want 1", rec.closed)
			}
		})
	}
}

func TestSnippet(t *testing.T) {
	tests := []struct {
		name    string
		content string
		term    string
		max     int
		want    string
	}{
		{"short", "kort text", "text", 20, "kort text"},
		{"no hit", "abcdefghij", "x", 4, "abcd..."},
		{"centred", "aaaaaKLIMATbbbbb", "klimat", 6, "...KLIMAT..."},
		{"at end", "aaaaaaaaåäö", "äö", 4, "...aåäö"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Snippet(tt.content, tt.term, tt.max); got != tt.want {
				t.Errorf("Snippet = %q, want %q", got, tt.want)
			}
		})
	}
}

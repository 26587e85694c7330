package benchmark

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/hyperjump/kabbel/internal/embedding"
	"github.com/hyperjump/kabbel/internal/indexer"
	"github.com/hyperjump/kabbel/internal/models"
	"github.com/hyperjump/kabbel/internal/search"
	"github.com/hyperjump/kabbel/internal/stats"
	"github.com/hyperjump/kabbel/internal/vector"
)

func BenchmarkFuse(b *testing.B) {
	kw := make(map[string]float64)
	sem := make(map[string]float64)
	for i := 0; i < 200; i++ {
		id := fmt.Sprintf("H9%04d-1", i)
		kw[id] = float64(i) / 200
		sem[id] = float64(200-i) / 200
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = search.Fuse(kw, sem, 0.4, 0.6)
	}
}

func BenchmarkMemoryIndexSearch(b *testing.B) {
	const dims, n = 256, 5000
	idx, _ := vector.NewMemoryIndex(dims)
	ctx := context.Background()
	vecs := make([][]float32, n)
	ids := make([]string, n)
	for i := 0; i < n; i++ {
		vecs[i] = make([]float32, dims)
		vecs[i][i%dims] = 1
		ids[i] = fmt.Sprintf("H9%04d-1", i)
	}
	_ = idx.Upsert(ctx, ids, vecs)
	query := make([]float32, dims)
	query[0] = 1
	allow := vector.AllowSet(ids[:n/2])
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = idx.Search(ctx, query, 60, allow)
	}
}

func BenchmarkHashingEmbedder_Embed(b *testing.B) {
	e := embedding.NewHashingEmbedder(256)
	ctx := context.Background()
	text := "RUBRIK: Klimatpolitik\nTALARE: Anna Andersson (V)\nTEXT: Klimatomställningen måste vara rättvis."
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = e.Embed(ctx, text)
	}
}

func BenchmarkChunker_Chunk(b *testing.B) {
	paragraph := strings.Repeat("Vi vill bygga ett samhälle där alla får plats. ", 4)
	text := strings.Repeat(paragraph+"\n\n", 200)
	c := indexer.NewChunker(40, 1200)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = c.Chunk(text)
	}
}

type records []*models.Record

func (r records) Get(ctx context.Context, filter models.Filter) ([]*models.Record, error) {
	return r, nil
}

func BenchmarkAggregate(b *testing.B) {
	parties := []string{"S", "M", "SD", "C", "V", "KD", "L", "MP"}
	recs := make(records, 10000)
	for i := range recs {
		text := "Vi pratar om skolan."
		if i%3 == 0 {
			text = "Vi pratar om klimatet."
		}
		recs[i] = &models.Record{ID: fmt.Sprintf("r%d", i), Text: text, Metadata: models.Metadata{
			Type: models.TypeDebate, Party: parties[i%len(parties)], Year: "2022",
		}}
	}
	agg := stats.NewAggregator(recs, parties)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = agg.Aggregate(ctx, []string{"klimat", "miljö"}, 2022, 2022)
	}
}

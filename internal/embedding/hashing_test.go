package embedding

import (
	"context"
	"testing"

	"github.com/hyperjump/kabbel/internal/vector"
)

func TestHashingEmbedder_deterministicAndNormalised(t *testing.T) {
	e := NewHashingEmbedder(128)
	ctx := context.Background()
	a, err := e.Embed(ctx, "Vi vill sänka utsläppen")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := e.Embed(ctx, "Vi vill sänka utsläppen")
	if len(a) != 128 {
		t.Fatalf("len = %d, want 128", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatal("embedding is not deterministic")
		}
	}
	if n := vector.L2Norm(a); n < 0.999 || n > 1.001 {
		t.Errorf("norm = %f, want 1", n)
	}
}

func TestHashingEmbedder_similarity(t *testing.T) {
	e := NewHashingEmbedder(256)
	ctx := context.Background()
	q, _ := e.Embed(ctx, "klimatet")
	near, _ := e.Embed(ctx, "Klimatpolitiken och klimatets framtid")
	far, _ := e.Embed(ctx, "Skolan behöver fler lärare")
	if vector.Cosine(q, near) <= vector.Cosine(q, far) {
		t.Errorf("shared stem should score higher: near=%f far=%f",
			vector.Cosine(q, near), vector.Cosine(q, far))
	}
}

func TestHashingEmbedder_emptyText(t *testing.T) {
	e := NewHashingEmbedder(0)
	if e.Dimensions() != 256 {
		t.Errorf("default dimensions = %d", e.Dimensions())
	}
	v, err := e.Embed(context.Background(), "  ")
	if err != nil {
		t.Fatal(err)
	}
	if vector.L2Norm(v) != 0 {
		t.Error("empty text should give a zero vector")
	}
}

func TestHashingEmbedder_batchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewHashingEmbedder(8).EmbedBatch(ctx, []string{"a"}); err == nil {
		t.Error("expected context error")
	}
}

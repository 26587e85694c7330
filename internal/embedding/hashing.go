package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strings"

	"github.com/hyperjump/kabbel/pkg/utils"
)

// stemPrefix is the rune length words are truncated to for the shared-stem feature,
// so inflected Swedish forms ("klimatet", "klimatets") land in one bucket.
const stemPrefix = 6

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

// HashingEmbedder is a deterministic feature-hashing bag-of-words embedder.
// It needs no model files or network and is the offline default.
type HashingEmbedder struct {
	dimensions int
}

// NewHashingEmbedder returns a hashing embedder producing vectors of the given size.
func NewHashingEmbedder(dimensions int) *HashingEmbedder {
	if dimensions <= 0 {
		dimensions = 256
	}
	return &HashingEmbedder{dimensions: dimensions}
}

// Embed hashes each token and its stem prefix into signed buckets with
// sublinear term frequency, then normalises to unit length.
func (e *HashingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	counts := make(map[string]int)
	for _, tok := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		counts[tok]++
		if r := []rune(tok); len(r) >= stemPrefix {
			counts["~"+string(r[:stemPrefix])]++
		}
	}
	vec := make([]float32, e.dimensions)
	for feature, n := range counts {
		h := fnv.New64a()
		_, _ = h.Write([]byte(feature))
		sum := h.Sum64()
		idx := int(sum % uint64(e.dimensions))
		weight := float32(1 + math.Log(float64(n)))
		if sum>>63 == 1 {
			weight = -weight
		}
		vec[idx] += weight
	}
	utils.NormalizeL2(vec)
	return vec, nil
}

// EmbedBatch calls Embed for each text.
func (e *HashingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Dimensions returns the embedding dimension.
func (e *HashingEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op for HashingEmbedder.
func (e *HashingEmbedder) Close() error {
	return nil
}

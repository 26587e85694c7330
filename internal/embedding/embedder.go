// Package embedding turns record text into vectors for the semantic index.
package embedding

import (
	"context"
	"fmt"
	"os"

	"github.com/hyperjump/kabbel/internal/config"
	"go.uber.org/zap"
)

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// New builds the configured embedder wrapped in an LRU cache.
func New(cfg config.EmbeddingConfig, logger *zap.Logger) (Embedder, error) {
	var base Embedder
	switch cfg.Provider {
	case "hashing", "":
		base = NewHashingEmbedder(cfg.Dimensions)
	case "http":
		var apiKey string
		if cfg.APIKeyEnv != "" {
			apiKey = os.Getenv(cfg.APIKeyEnv)
		}
		base = NewHTTPEmbedder(HTTPConfig{
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			APIKey:     apiKey,
			Dimensions: cfg.Dimensions,
			Timeout:    cfg.Timeout,
		}, WithLogger(logger))
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
	if cfg.CacheSize <= 0 {
		return base, nil
	}
	return NewCachedEmbedder(base, cfg.CacheSize)
}

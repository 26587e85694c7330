package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hyperjump/kabbel/pkg/utils"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// HTTPConfig configures an OpenAI-compatible /embeddings client.
type HTTPConfig struct {
	BaseURL    string
	Model      string
	APIKey     string
	Dimensions int
	Timeout    time.Duration
	MaxRetries int
}

// HTTPEmbedder calls an OpenAI-compatible embeddings endpoint (OpenAI, Ollama /v1).
type HTTPEmbedder struct {
	cfg    HTTPConfig
	client *http.Client
	group  singleflight.Group
	logger *zap.Logger
}

// HTTPOption configures an HTTPEmbedder.
type HTTPOption func(*HTTPEmbedder)

// WithLogger sets a logger for retries.
func WithLogger(l *zap.Logger) HTTPOption {
	return func(e *HTTPEmbedder) { e.logger = l }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(e *HTTPEmbedder) { e.client = c }
}

// NewHTTPEmbedder creates an embeddings client.
func NewHTTPEmbedder(cfg HTTPConfig, opts ...HTTPOption) *HTTPEmbedder {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	e := &HTTPEmbedder{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = utils.OrNop(e.logger)
	return e
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	// Ollama native /api/embed shape.
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed embeds one text. Concurrent calls for the same text share one request.
func (e *HTTPEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	v, err, _ := e.group.Do(text, func() (interface{}, error) {
		vecs, err := e.EmbedBatch(ctx, []string{text})
		if err != nil {
			return nil, err
		}
		return vecs[0], nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]float32), nil
}

// EmbedBatch embeds texts in a single request, retrying on 429 and 5xx.
func (e *HTTPEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	body, err := json.Marshal(embedRequest{Model: e.cfg.Model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	url := e.cfg.BaseURL + "/embeddings"

	var lastErr error
	for attempt := 0; attempt <= e.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			e.logger.Debug("retrying embeddings request", zap.Int("attempt", attempt), zap.Error(lastErr))
		}
		vecs, wait, err := e.do(ctx, url, body, len(texts))
		if err == nil {
			return vecs, nil
		}
		lastErr = err
		if wait < 0 || attempt == e.cfg.MaxRetries {
			break
		}
		if wait == 0 {
			wait = retryDelay(attempt)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil, fmt.Errorf("embeddings request failed: %w", lastErr)
}

// do performs one request. A negative wait means the error is not retryable;
// a positive wait comes from Retry-After.
func (e *HTTPEmbedder) do(ctx context.Context, url string, body []byte, n int) ([][]float32, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, -1, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, -1, ctx.Err()
		}
		return nil, 0, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, retryAfter(resp.Header.Get("Retry-After")), fmt.Errorf("status %s", resp.Status)
	}
	if resp.StatusCode >= 300 {
		return nil, -1, fmt.Errorf("status %s: %s", resp.Status, utils.Truncate(string(payload), 200))
	}

	var out embedResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, -1, fmt.Errorf("failed to decode response: %w", err)
	}
	vecs := out.Embeddings
	if len(out.Data) > 0 {
		vecs = make([][]float32, len(out.Data))
		for i, d := range out.Data {
			idx := d.Index
			if idx < 0 || idx >= len(vecs) {
				idx = i
			}
			vecs[idx] = d.Embedding
		}
	}
	if len(vecs) != n {
		return nil, -1, fmt.Errorf("expected %d embeddings, got %d", n, len(vecs))
	}
	for i, v := range vecs {
		if len(v) == 0 {
			return nil, -1, errors.New("empty embedding returned")
		}
		if e.cfg.Dimensions > 0 && len(v) != e.cfg.Dimensions {
			return nil, -1, fmt.Errorf("embedding %d has %d dimensions, configured %d", i, len(v), e.cfg.Dimensions)
		}
		utils.NormalizeL2(v)
	}
	return vecs, 0, nil
}

func retryAfter(h string) time.Duration {
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}

// retryDelay is exponential backoff from 200ms capped at 5s.
func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := 200 * time.Millisecond << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}

// Dimensions returns the configured embedding dimension.
func (e *HTTPEmbedder) Dimensions() int {
	return e.cfg.Dimensions
}

// Close releases idle connections.
func (e *HTTPEmbedder) Close() error {
	e.client.CloseIdleConnections()
	return nil
}

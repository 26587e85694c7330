// Package llm talks to an OpenAI-compatible chat-completions endpoint to
// classify questions and generate answers.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hyperjump/kabbel/internal/config"
	"github.com/hyperjump/kabbel/pkg/utils"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ErrMissingAPIKey is returned when the configured key variable is unset.
var ErrMissingAPIKey = errors.New("llm API key not set")

// Completer sends one system + user exchange and returns the model's reply.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// ChatClient is a rate-limited client for /chat/completions.
type ChatClient struct {
	baseURL     string
	model       string
	apiKey      string
	temperature float64
	maxRetries  int
	http        *http.Client
	limiter     *rate.Limiter
	logger      *zap.Logger
}

// ClientOption configures a ChatClient.
type ClientOption func(*ChatClient)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *ChatClient) { c.logger = l }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *ChatClient) { c.http = h }
}

// WithAPIKey sets the key directly instead of reading it from the environment.
func WithAPIKey(key string) ClientOption {
	return func(c *ChatClient) { c.apiKey = key }
}

// NewChatClient builds a client from cfg. The API key is read from the
// environment variable named by cfg.APIKeyEnv.
func NewChatClient(cfg config.LLMConfig, opts ...ClientOption) *ChatClient {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	c := &ChatClient{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxRetries:  cfg.MaxRetries,
		http:        &http.Client{Timeout: cfg.Timeout},
		limiter:     rate.NewLimiter(limit, 1),
	}
	if cfg.APIKeyEnv != "" {
		c.apiKey = os.Getenv(cfg.APIKeyEnv)
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = utils.OrNop(c.logger)
	return c
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete sends the exchange, waiting on the rate limiter before every
// attempt and retrying 429 and 5xx responses with backoff.
func (c *ChatClient) Complete(ctx context.Context, system, user string) (string, error) {
	if c.apiKey == "" {
		return "", ErrMissingAPIKey
	}
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}
		text, wait, err := c.do(ctx, body)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if wait < 0 || attempt == c.maxRetries {
			break
		}
		if wait == 0 {
			wait = retryDelay(attempt)
		}
		c.logger.Debug("retrying chat completion",
			zap.Int("attempt", attempt+1),
			zap.Duration("wait", wait),
			zap.Error(err))
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(wait):
		}
	}
	return "", fmt.Errorf("chat completion failed: %w", lastErr)
}

func (c *ChatClient) do(ctx context.Context, body []byte) (string, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", -1, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", -1, ctx.Err()
		}
		return "", 0, err
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, err
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return "", retryAfter(resp.Header.Get("Retry-After")), fmt.Errorf("status %s", resp.Status)
	}
	if resp.StatusCode >= 300 {
		return "", -1, fmt.Errorf("status %s: %s", resp.Status, utils.Truncate(string(payload), 300))
	}

	var out chatResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return "", -1, fmt.Errorf("failed to decode response: %w", err)
	}
	if out.Error != nil {
		return "", -1, errors.New(out.Error.Message)
	}
	if len(out.Choices) == 0 {
		return "", -1, errors.New("response has no choices")
	}
	return out.Choices[0].Message.Content, 0, nil
}

func retryAfter(h string) time.Duration {
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}

func retryDelay(attempt int) time.Duration {
	d := 500 * time.Millisecond << attempt
	if d > 10*time.Second {
		d = 10 * time.Second
	}
	return d
}

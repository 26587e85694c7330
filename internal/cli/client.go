package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/hyperjump/kabbel/internal/models"
)

// Client talks to a running kabbel server. The CLI uses it so that a second
// process does not open the SQLite database and Bleve index held by the server.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for baseURL. A nil httpClient uses http.DefaultClient.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

type apiError struct {
	Error  string         `json:"error"`
	Answer *models.Answer `json:"answer,omitempty"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		var apiErr apiError
		if json.Unmarshal(b, &apiErr) == nil && apiErr.Error != "" {
			if apiErr.Answer != nil {
				if a, ok := out.(*models.Answer); ok {
					*a = *apiErr.Answer
				}
			}
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Ask posts a question. On a generation failure the partial answer is
// returned together with the error.
func (c *Client) Ask(ctx context.Context, question string) (*models.Answer, error) {
	var a models.Answer
	err := c.do(ctx, http.MethodPost, "/api/v1/ask", map[string]string{"question": question}, &a)
	if err != nil {
		if a.ID != "" {
			return &a, err
		}
		return nil, err
	}
	return &a, nil
}

// Statistics requests per-party counts for terms over a year range.
func (c *Client) Statistics(ctx context.Context, terms []string, startYear, endYear int) (*models.Statistics, error) {
	body := map[string]interface{}{"terms": terms, "start_year": startYear, "end_year": endYear}
	var s models.Statistics
	if err := c.do(ctx, http.MethodPost, "/api/v1/statistics", body, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Status returns the server's index status.
func (c *Client) Status(ctx context.Context) (*models.Status, error) {
	var s models.Status
	if err := c.do(ctx, http.MethodGet, "/api/v1/status", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

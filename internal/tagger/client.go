// Package tagger is the HTTP client for the remote sequence-tagging model
// service. The model itself is a black box: it takes an address and returns
// a parallel character/tag sequence.
package tagger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/zhongyd/addrnorm/internal/addr"
)

// Client calls the tagging model's /inference endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client

	// Stats collects call latencies for the /api/stats/tagger endpoint.
	Stats *Stats
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		Stats: NewStats(time.Hour),
	}
}

type inferenceRequest struct {
	Address string `json:"address"`
}

type inferenceResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    struct {
		Tokens []string `json:"tokens"`
		Tags   []string `json:"ner_tags"`
		Text   string   `json:"text"`
	} `json:"data"`
}

// Tag sends address to the model service and returns its tag sequence.
// 429 and 5xx responses come back as *RetryableError so the pipeline can
// back off and retry.
func (c *Client) Tag(ctx context.Context, address string) (addr.Tagged, error) {
	body, err := json.Marshal(inferenceRequest{Address: address})
	if err != nil {
		return addr.Tagged{}, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/inference", bytes.NewReader(body))
	if err != nil {
		return addr.Tagged{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return addr.Tagged{}, fmt.Errorf("tagger service: %w", err)
	}
	defer resp.Body.Close()
	c.Stats.Record(time.Since(start).Milliseconds())

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return addr.Tagged{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return addr.Tagged{}, &RetryableError{
			StatusCode: resp.StatusCode,
			Message:    string(respBody),
		}
	}
	if resp.StatusCode != http.StatusOK {
		return addr.Tagged{}, fmt.Errorf("tagger service status %d: %s", resp.StatusCode, string(respBody))
	}

	var apiResp inferenceResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return addr.Tagged{}, fmt.Errorf("decode response: %w", err)
	}
	if !apiResp.Success {
		return addr.Tagged{}, fmt.Errorf("tagger service: %s", apiResp.Message)
	}
	if len(apiResp.Data.Tokens) != len(apiResp.Data.Tags) {
		return addr.Tagged{}, fmt.Errorf("tagger returned %d tokens but %d tags", len(apiResp.Data.Tokens), len(apiResp.Data.Tags))
	}

	return addr.Tagged{
		Tokens: apiResp.Data.Tokens,
		Tags:   apiResp.Data.Tags,
		Text:   apiResp.Data.Text,
	}, nil
}

// BaseURL returns the configured service URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// RetryableError indicates a transient failure that can be retried.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Close releases resources.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

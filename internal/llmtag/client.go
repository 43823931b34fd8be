// Package llmtag calls an OpenAI-compatible chat endpoint to classify an
// address into category -> value pairs. The model's output is free text and
// possibly malformed; parsing is best-effort and the caller treats a failed
// record as recoverable.
package llmtag

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// Client calls the chat completions API for address tagging.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

func NewClient(apiKey, baseURL, model string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   model,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// TagAddress asks the model to decompose address into category -> value
// pairs.
func (c *Client) TagAddress(ctx context.Context, address string) (map[string]string, error) {
	prompt := strings.Replace(addressPrompt, "{{address}}", address, 1)

	reqBody := chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: 0.1,
		MaxTokens:   1000,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("llm api: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, &RetryableError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("llm api status %d: %s", resp.StatusCode, string(respBody))
	}

	var apiResp chatResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if apiResp.Error != nil {
		return nil, fmt.Errorf("llm error: %s: %s", apiResp.Error.Type, apiResp.Error.Message)
	}
	if len(apiResp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from llm")
	}

	entities, ok := ParseEntities(apiResp.Choices[0].Message.Content)
	if !ok {
		return nil, fmt.Errorf("parse entities json (raw: %s)", truncate(apiResp.Choices[0].Message.Content, 200))
	}
	return entities, nil
}

var codeBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// ParseEntities salvages a category map from model output: direct JSON
// first, then a fenced code block, then the outermost {...} window.
func ParseEntities(raw string) (map[string]string, bool) {
	raw = strings.TrimSpace(raw)

	if m, ok := tryUnmarshal(raw); ok {
		return m, true
	}
	if sub := codeBlockRe.FindStringSubmatch(raw); len(sub) > 1 {
		if m, ok := tryUnmarshal(sub[1]); ok {
			return m, true
		}
	}
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		if m, ok := tryUnmarshal(raw[start : end+1]); ok {
			return m, true
		}
	}
	return nil, false
}

func tryUnmarshal(s string) (map[string]string, bool) {
	var generic map[string]any
	if err := json.Unmarshal([]byte(s), &generic); err != nil {
		return nil, false
	}
	out := make(map[string]string, len(generic))
	for k, v := range generic {
		switch val := v.(type) {
		case string:
			if val != "" {
				out[k] = val
			}
		case float64:
			out[k] = strings.TrimSuffix(fmt.Sprintf("%v", val), ".0")
		case []any:
			var parts []string
			for _, item := range val {
				if str, ok := item.(string); ok && str != "" {
					parts = append(parts, str)
				}
			}
			if len(parts) > 0 {
				out[k] = strings.Join(parts, ",")
			}
		}
	}
	return out, true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// RetryableError indicates a transient failure that can be retried.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

// Close releases resources.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

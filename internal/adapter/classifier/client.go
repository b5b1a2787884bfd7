// Package classifier implements domain.Classifier against an external
// model-serving HTTP endpoint.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Client scores normalized text by calling a model-serving endpoint.
// The model itself is trained offline; this client only runs inference.
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a classifier client with a bounded per-request timeout.
func NewClient(endpoint string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

type classifyRequest struct {
	Text string `json:"text"`
}

type classifyResponse struct {
	Score float64 `json:"score"`
}

// Classify posts the normalized text and returns the model's congestion
// score. Errors are returned to the caller; the resolver degrades to the
// neutral default on failure.
func (c *Client) Classify(ctx context.Context, text string) (float64, error) {
	body, err := json.Marshal(classifyRequest{Text: text})
	if err != nil {
		return 0, fmt.Errorf("marshal classify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("create classify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("classify request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("classifier returned status %d", resp.StatusCode)
	}

	var payload classifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("decode classify response: %w", err)
	}

	return payload.Score, nil
}

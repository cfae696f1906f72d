// Package advisor is the HTTP client for the signal advisor service. The
// advisor is a black box: it takes a symbol and returns a recommendation with
// a confidence score and supporting analysis text.
package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client talks to the signal advisor API
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new advisor client
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Signal is the advisor's recommendation for a symbol
type Signal struct {
	Symbol     string  `json:"symbol"`
	Signal     string  `json:"signal"` // buy, sell, hold
	Confidence float64 `json:"confidence"`
	Price      float64 `json:"price"`
	Reason     string  `json:"reason"`
}

// GetSignal requests a recommendation for a symbol
func (c *Client) GetSignal(ctx context.Context, symbol string) (*Signal, error) {
	body, err := json.Marshal(map[string]string{"symbol": symbol})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/signal", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("advisor API error (%d): %s", resp.StatusCode, string(data))
	}

	var sig Signal
	if err := json.Unmarshal(data, &sig); err != nil {
		return nil, err
	}
	return &sig, nil
}

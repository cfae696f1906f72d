// Package broker is a typed HTTP client for the brokerage API. It exposes the
// handful of request functions the orchestrator needs (account state, quotes,
// history, order submission) and nothing else; the broker's matching and
// settlement are entirely its own concern.
package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Trading modes. The paper endpoint simulates fills against real quotes.
const (
	ModePaper = "paper"
	ModeLive  = "live"
)

// Client is a stateless adapter over the brokerage REST API
type Client struct {
	liveURL    string
	paperURL   string
	apiKey     string
	apiSecret  string
	httpClient *http.Client
}

// NewClient creates a new broker API client
func NewClient(liveURL, paperURL, apiKey, apiSecret string) *Client {
	return &Client{
		liveURL:   liveURL,
		paperURL:  paperURL,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Account holds broker-side account state
type Account struct {
	Equity        float64 `json:"equity"`
	BuyingPower   float64 `json:"buying_power"`
	Cash          float64 `json:"cash"`
	DayTradeCount int     `json:"day_trade_count"`
}

// Quote is the latest market snapshot for a symbol
type Quote struct {
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	Volume        float64 `json:"volume"`
	ChangePercent float64 `json:"change_percent"`
}

// Bar is a single historical price bar, ordered oldest to newest by the API
type Bar struct {
	Time   time.Time `json:"t"`
	Open   float64   `json:"o"`
	High   float64   `json:"h"`
	Low    float64   `json:"l"`
	Close  float64   `json:"c"`
	Volume float64   `json:"v"`
}

// OrderRequest describes an order intent. StopLoss/TakeProfit are bracket
// levels; zero means no bracket leg.
type OrderRequest struct {
	Symbol        string  `json:"symbol"`
	Side          string  `json:"side"`
	Quantity      int     `json:"quantity"`
	StopLoss      float64 `json:"stop_loss,omitempty"`
	TakeProfit    float64 `json:"take_profit,omitempty"`
	ClientOrderID string  `json:"client_order_id,omitempty"`
}

// OrderResult is the broker's response to an order submission. SimulatedPnL
// is only populated by the paper endpoint, which simulates the round trip.
type OrderResult struct {
	Status       string  `json:"status"`
	FilledPrice  float64 `json:"filled_price,omitempty"`
	SimulatedPnL float64 `json:"simulated_pnl,omitempty"`
}

// APIError represents an error response from the broker API
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("broker API error (%d): %s", e.StatusCode, e.Message)
}

// IsAuthError reports whether the error indicates an expired or rejected
// broker session
func IsAuthError(err error) bool {
	apiErr, ok := err.(*APIError)
	if !ok {
		return false
	}
	return apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden
}

func (c *Client) baseURL(mode string) string {
	if mode == ModeLive {
		return c.liveURL
	}
	return c.paperURL
}

// GetAccount fetches account state for the given mode
func (c *Client) GetAccount(ctx context.Context, mode string) (*Account, error) {
	var account Account
	if err := c.get(ctx, mode, "/v2/account", nil, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// GetQuote fetches the latest quote for a symbol. Quotes come from the live
// data feed regardless of trading mode.
func (c *Client) GetQuote(ctx context.Context, symbol string) (*Quote, error) {
	var quote Quote
	if err := c.get(ctx, ModeLive, "/v2/quotes/"+symbol, nil, &quote); err != nil {
		return nil, err
	}
	return &quote, nil
}

// GetBars fetches up to limit recent daily bars for a symbol, oldest first
func (c *Client) GetBars(ctx context.Context, symbol string, limit int) ([]Bar, error) {
	params := url.Values{}
	params.Set("limit", fmt.Sprintf("%d", limit))

	var resp struct {
		Bars []Bar `json:"bars"`
	}
	if err := c.get(ctx, ModeLive, "/v2/bars/"+symbol, params, &resp); err != nil {
		return nil, err
	}
	return resp.Bars, nil
}

// SubmitOrder submits a market order with optional bracket levels
func (c *Client) SubmitOrder(ctx context.Context, mode string, req *OrderRequest) (*OrderResult, error) {
	var result OrderResult
	if err := c.post(ctx, mode, "/v2/orders", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// HasOpenPosition reports whether an open position exists for the symbol
func (c *Client) HasOpenPosition(ctx context.Context, mode, symbol string) (bool, error) {
	var resp struct {
		Open bool `json:"open"`
	}
	err := c.get(ctx, mode, "/v2/positions/"+symbol, nil, &resp)
	if err != nil {
		if apiErr, ok := err.(*APIError); ok && apiErr.StatusCode == http.StatusNotFound {
			return false, nil
		}
		return false, err
	}
	return resp.Open, nil
}

func (c *Client) get(ctx context.Context, mode, path string, params url.Values, dest interface{}) error {
	endpoint := c.baseURL(mode) + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	return c.do(req, dest)
}

func (c *Client) post(ctx context.Context, mode, path string, body, dest interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL(mode)+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, dest)
}

func (c *Client) do(req *http.Request, dest interface{}) error {
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("X-API-Secret", c.apiSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(data, &errResp) == nil && errResp.Message != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: errResp.Message}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: string(data)}
	}

	if dest == nil {
		return nil
	}
	return json.Unmarshal(data, dest)
}

package model

import "time"

// Order sides
const (
	SideBuy  = "buy"
	SideSell = "sell"
)

// Signal values produced by the signal evaluator
const (
	SignalBuy  = "buy"
	SignalSell = "sell"
	SignalHold = "hold"
)

// Quote is the latest market snapshot for a symbol
type Quote struct {
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	Volume        float64 `json:"volume"`
	ChangePercent float64 `json:"change_percent"`
}

// Account holds broker account state for one trading mode
type Account struct {
	Equity        float64 `json:"equity"`
	BuyingPower   float64 `json:"buying_power"`
	Cash          float64 `json:"cash"`
	DayTradeCount int     `json:"day_trade_count"`
}

// Recommendation is the signal evaluator's output for a symbol
type Recommendation struct {
	Symbol     string  `json:"symbol"`
	Signal     string  `json:"signal"` // buy, sell, hold
	Confidence float64 `json:"confidence"`
	Price      float64 `json:"price"`
	Reason     string  `json:"reason"`
}

// ScanResult records one symbol that passed the scan thresholds. Immutable
// once created.
type ScanResult struct {
	Symbol     string    `json:"symbol"`
	Price      float64   `json:"price"`
	Volume     float64   `json:"volume"`
	Oscillator float64   `json:"oscillator"`
	Action     string    `json:"action"`
	Timestamp  time.Time `json:"timestamp"`
}

// LogEntry is one timestamped orchestrator event. Entries are observability
// only and never the source of truth for bot state.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

// TradeAttempt records one submitted order and its outcome
type TradeAttempt struct {
	BotID      int64     `json:"bot_id"`
	Symbol     string    `json:"symbol"`
	Side       string    `json:"side"`
	Quantity   int       `json:"quantity"`
	Price      float64   `json:"price"`
	StopLoss   float64   `json:"stop_loss"`
	TakeProfit float64   `json:"take_profit"`
	PnL        float64   `json:"pnl"` // simulated in paper mode
	Strategy   string    `json:"strategy"`
	Confidence float64   `json:"confidence"`
	Mode       string    `json:"mode"`
	Timestamp  time.Time `json:"timestamp"`
}

// OrderIntent is the orchestrator's order submission, routed to the broker
// gateway
type OrderIntent struct {
	Symbol        string  `json:"symbol"`
	Side          string  `json:"side"`
	Quantity      int     `json:"quantity"`
	Mode          string  `json:"mode"`
	StopLoss      float64 `json:"stop_loss,omitempty"`
	TakeProfit    float64 `json:"take_profit,omitempty"`
	ClientOrderID string  `json:"client_order_id,omitempty"`
}

// OrderOutcome is the broker's response to an order intent
type OrderOutcome struct {
	Status       string  `json:"status"`
	FilledPrice  float64 `json:"filled_price,omitempty"`
	SimulatedPnL float64 `json:"simulated_pnl,omitempty"`
}

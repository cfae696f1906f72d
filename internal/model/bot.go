package model

import (
	"strings"
	"time"
)

// Bot lifecycle states
const (
	BotStateStopped = "stopped"
	BotStateRunning = "running"
	BotStatePaused  = "paused"
)

// Trading modes
const (
	ModePaper = "paper"
	ModeLive  = "live"
)

// Strategy identifiers
const (
	StrategyMomentum       = "momentum"
	StrategyMeanReversion  = "mean_reversion"
	StrategyTrendFollowing = "trend_following"
	StrategyBuyLowSellHigh = "buy_low_sell_high"
	StrategyReinforcement  = "reinforcement_learning"
	StrategyScalping       = "scalping"
)

// MaxEquityPoints caps the per-bot equity curve; the oldest point is dropped
// once the cap is reached.
const MaxEquityPoints = 100

// ScanConfig holds the per-bot scan parameters
type ScanConfig struct {
	OscillatorThreshold float64 `json:"oscillator_threshold"`
	VolumeThreshold     float64 `json:"volume_threshold"`
	TradeAmount         float64 `json:"trade_amount"`
	TakeProfitPercent   float64 `json:"take_profit_percent"`
	StopLossPercent     float64 `json:"stop_loss_percent"`
	IntervalMinutes     int     `json:"interval_minutes"`
}

// EquityPoint is one point of a bot's equity curve
type EquityPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Equity    float64   `json:"equity"`
	PnL       float64   `json:"pnl"`
}

// Bot represents one independently scheduled trading bot configuration
type Bot struct {
	ID       int64    `json:"id"`
	UserID   string   `json:"user_id"`
	Name     string   `json:"name"`
	Strategy string   `json:"strategy"`
	State    string   `json:"state"` // stopped, running, paused
	Mode     string   `json:"mode"`  // paper, live
	Symbols  []string `json:"symbols"`

	RiskPercent float64    `json:"risk_percent"`
	Scan        ScanConfig `json:"scan"`

	// Statistics. WinRate is never stored: it is always derived from
	// WinningTrades and TotalTrades so the two cannot drift apart.
	TotalTrades   int           `json:"total_trades"`
	WinningTrades int           `json:"winning_trades"`
	TotalPnL      float64       `json:"total_pnl"`
	EquityCurve   []EquityPoint `json:"equity_curve"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	LastTradeAt *time.Time `json:"last_trade_at,omitempty"`
}

// WinRate calculates the win rate percentage
func (b *Bot) WinRate() float64 {
	if b.TotalTrades == 0 {
		return 0
	}
	return float64(b.WinningTrades) / float64(b.TotalTrades) * 100
}

// NormalizeSymbols uppercases and deduplicates the tracked symbol set,
// preserving first-seen order
func (b *Bot) NormalizeSymbols() {
	seen := make(map[string]bool, len(b.Symbols))
	out := make([]string, 0, len(b.Symbols))
	for _, s := range b.Symbols {
		sym := strings.ToUpper(strings.TrimSpace(s))
		if sym == "" || seen[sym] {
			continue
		}
		seen[sym] = true
		out = append(out, sym)
	}
	b.Symbols = out
}

// ValidStrategy reports whether the strategy identifier is known
func ValidStrategy(strategy string) bool {
	switch strategy {
	case StrategyMomentum, StrategyMeanReversion, StrategyTrendFollowing,
		StrategyBuyLowSellHigh, StrategyReinforcement, StrategyScalping:
		return true
	}
	return false
}

// BotRequest represents the request to create or update a bot
type BotRequest struct {
	Name     string   `json:"name" binding:"required"`
	Strategy string   `json:"strategy" binding:"required,oneof=momentum mean_reversion trend_following buy_low_sell_high reinforcement_learning scalping"`
	Mode     string   `json:"mode" binding:"required,oneof=paper live"`
	Symbols  []string `json:"symbols" binding:"required,min=1"`

	RiskPercent float64 `json:"risk_percent" binding:"gte=0,lte=100"`

	OscillatorThreshold float64 `json:"oscillator_threshold" binding:"gte=0,lte=100"`
	VolumeThreshold     float64 `json:"volume_threshold" binding:"gte=0"`
	TradeAmount         float64 `json:"trade_amount" binding:"required,gt=0"`
	TakeProfitPercent   float64 `json:"take_profit_percent" binding:"gte=0"`
	StopLossPercent     float64 `json:"stop_loss_percent" binding:"gte=0"`
	IntervalMinutes     int     `json:"interval_minutes" binding:"required,gt=0"`
}

// IntervalRequest updates the scan interval of a (possibly running) bot
type IntervalRequest struct {
	IntervalMinutes int `json:"interval_minutes" binding:"required,gt=0"`
}

// ModeRequest switches the trading environment
type ModeRequest struct {
	Mode string `json:"mode" binding:"required,oneof=paper live"`
}

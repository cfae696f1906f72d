package service

import (
	"context"

	"tradepilot/backend/internal/model"
)

// BotStore defines the bot repository surface the services depend on
type BotStore interface {
	Create(ctx context.Context, bot *model.Bot) error
	GetByID(ctx context.Context, botID int64) (*model.Bot, error)
	Update(ctx context.Context, bot *model.Bot, oldState string) error
	Delete(ctx context.Context, botID int64) error
	ListByUser(ctx context.Context, userID string) ([]*model.Bot, error)
}

// TradeStore defines the trade-attempt repository surface
type TradeStore interface {
	Record(ctx context.Context, attempt *model.TradeAttempt) error
	ListByBot(ctx context.Context, botID int64, limit int) ([]*model.TradeAttempt, error)
}

// MarketGateway is the orchestrator's view of the brokerage: typed,
// stateless request functions for market data, account state and orders
type MarketGateway interface {
	GetAccount(ctx context.Context, mode string) (*model.Account, error)
	GetQuote(ctx context.Context, symbol string) (*model.Quote, error)
	GetHistory(ctx context.Context, symbol string) ([]float64, error)
	SubmitOrder(ctx context.Context, intent *model.OrderIntent) (*model.OrderOutcome, error)
	HasOpenPosition(ctx context.Context, mode, symbol string) (bool, error)
}

// SignalProvider produces a trade recommendation for a symbol
type SignalProvider interface {
	GetSignal(ctx context.Context, symbol string) (*model.Recommendation, error)
}

// Notifier pushes orchestrator events to connected dashboard clients
type Notifier interface {
	NotifyBotUpdate(userID string, bot *model.Bot)
	NotifyLogEntry(userID string, botID int64, entry model.LogEntry)
	NotifyScanResults(userID string, botID int64, results []model.ScanResult)
	NotifySession(status, reason string)
}

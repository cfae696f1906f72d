package service

import (
	"context"
	"time"

	"tradepilot/backend/internal/model"
	"tradepilot/backend/pkg/logger"
)

// PerformanceTracker folds trade results into a bot's cumulative statistics
// and its bounded equity curve
type PerformanceTracker struct {
	bots   BotStore
	trades TradeStore
	log    *logger.Logger
}

func NewPerformanceTracker(bots BotStore, trades TradeStore) *PerformanceTracker {
	return &PerformanceTracker{
		bots:   bots,
		trades: trades,
		log:    logger.GetLogger(),
	}
}

// Apply folds one trade result into the bot's in-memory statistics: appends
// an equity-curve point, bumps the trade counters, and truncates the curve to
// its cap. The caller must hold whatever lock guards the bot, so updates for
// one bot are never concurrent.
func (t *PerformanceTracker) Apply(bot *model.Bot, attempt *model.TradeAttempt) {
	when := attempt.Timestamp
	if when.IsZero() {
		when = time.Now()
	}

	priorEquity := 0.0
	if n := len(bot.EquityCurve); n > 0 {
		priorEquity = bot.EquityCurve[n-1].Equity
	}

	bot.TotalTrades++
	if attempt.PnL > 0 {
		bot.WinningTrades++
	}
	bot.TotalPnL += attempt.PnL
	bot.LastTradeAt = &when

	bot.EquityCurve = append(bot.EquityCurve, model.EquityPoint{
		Timestamp: when,
		Equity:    priorEquity + attempt.PnL,
		PnL:       attempt.PnL,
	})
	if len(bot.EquityCurve) > model.MaxEquityPoints {
		bot.EquityCurve = bot.EquityCurve[len(bot.EquityCurve)-model.MaxEquityPoints:]
	}
}

// Persist writes the attempt and the updated bot to storage. Takes a bot the
// caller owns (a snapshot is fine), so no lock needs to be held across the
// store calls.
func (t *PerformanceTracker) Persist(ctx context.Context, bot *model.Bot, attempt *model.TradeAttempt) error {
	if err := t.trades.Record(ctx, attempt); err != nil {
		t.log.WithBot(bot.ID).Error("failed to persist trade attempt", err)
	}
	return t.bots.Update(ctx, bot, "")
}

// Record applies and persists one trade result in a single step
func (t *PerformanceTracker) Record(ctx context.Context, bot *model.Bot, attempt *model.TradeAttempt) error {
	t.Apply(bot, attempt)
	return t.Persist(ctx, bot, attempt)
}

package service

import (
	"context"
	"testing"
	"time"

	"tradepilot/backend/internal/model"
)

func trackedBot(t *testing.T, store *mockBotStore) *model.Bot {
	t.Helper()
	bot := &model.Bot{
		UserID:   "u1",
		Name:     "tracker",
		Strategy: model.StrategyMomentum,
		Mode:     model.ModePaper,
		Symbols:  []string{"AAPL"},
	}
	if err := store.Create(context.Background(), bot); err != nil {
		t.Fatalf("create bot: %v", err)
	}
	return bot
}

func TestRecordUpdatesStatsAndEquity(t *testing.T) {
	bots := newMockBotStore()
	trades := newMockTradeStore()
	tracker := NewPerformanceTracker(bots, trades)
	bot := trackedBot(t, bots)

	attempts := []*model.TradeAttempt{
		{BotID: bot.ID, Symbol: "AAPL", PnL: 25, Timestamp: time.Now()},
		{BotID: bot.ID, Symbol: "AAPL", PnL: -10, Timestamp: time.Now()},
		{BotID: bot.ID, Symbol: "AAPL", PnL: 5, Timestamp: time.Now()},
	}
	for _, a := range attempts {
		if err := tracker.Record(context.Background(), bot, a); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	if bot.TotalTrades != 3 || bot.WinningTrades != 2 {
		t.Errorf("counts = %d/%d, want 3 total, 2 wins", bot.TotalTrades, bot.WinningTrades)
	}
	if bot.TotalPnL != 20 {
		t.Errorf("total pnl = %.2f, want 20", bot.TotalPnL)
	}
	if got := bot.WinRate(); got < 66.6 || got > 66.7 {
		t.Errorf("win rate = %.2f, want 2/3 as percent", got)
	}
	if bot.LastTradeAt == nil {
		t.Error("last trade timestamp not set")
	}

	// Equity is cumulative: 25, 15, 20
	curve := bot.EquityCurve
	if len(curve) != 3 {
		t.Fatalf("curve length = %d, want 3", len(curve))
	}
	wantEquity := []float64{25, 15, 20}
	for i, point := range curve {
		if point.Equity != wantEquity[i] {
			t.Errorf("curve[%d].Equity = %.2f, want %.2f", i, point.Equity, wantEquity[i])
		}
	}

	// Both the bot and the attempts were persisted
	stored, err := bots.GetByID(context.Background(), bot.ID)
	if err != nil {
		t.Fatalf("get bot: %v", err)
	}
	if stored.TotalTrades != 3 {
		t.Errorf("persisted total trades = %d, want 3", stored.TotalTrades)
	}
	if trades.count(bot.ID) != 3 {
		t.Errorf("persisted attempts = %d, want 3", trades.count(bot.ID))
	}
}

func TestEquityCurveCapNeverExceededOrReordered(t *testing.T) {
	bots := newMockBotStore()
	trades := newMockTradeStore()
	tracker := NewPerformanceTracker(bots, trades)
	bot := trackedBot(t, bots)

	total := model.MaxEquityPoints + 20
	for i := 0; i < total; i++ {
		attempt := &model.TradeAttempt{BotID: bot.ID, Symbol: "AAPL", PnL: 1, Timestamp: time.Now()}
		if err := tracker.Record(context.Background(), bot, attempt); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
		if len(bot.EquityCurve) > model.MaxEquityPoints {
			t.Fatalf("curve length %d exceeds cap after %d records", len(bot.EquityCurve), i+1)
		}
	}

	if len(bot.EquityCurve) != model.MaxEquityPoints {
		t.Fatalf("curve length = %d, want cap %d", len(bot.EquityCurve), model.MaxEquityPoints)
	}

	// Oldest dropped, order preserved: equity still strictly rising at +1/trade
	// and the newest point reflects all trades
	for i := 1; i < len(bot.EquityCurve); i++ {
		if bot.EquityCurve[i].Equity != bot.EquityCurve[i-1].Equity+1 {
			t.Fatalf("curve reordered at %d: %.0f after %.0f", i,
				bot.EquityCurve[i].Equity, bot.EquityCurve[i-1].Equity)
		}
	}
	last := bot.EquityCurve[len(bot.EquityCurve)-1]
	if last.Equity != float64(total) {
		t.Errorf("newest equity = %.0f, want %d", last.Equity, total)
	}
}

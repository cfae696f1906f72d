package service

import (
	"tradepilot/backend/internal/model"
)

// recentTradeWindow is the lookback used by the adaptive reinforcement
// learning threshold
const recentTradeWindow = 5

// Decision is the outcome of a strategy evaluation
type Decision struct {
	Trade bool
	Side  string
}

// DecisionContext carries the market and bot state a strategy may consult.
// RecentTrades is newest first, as stored.
type DecisionContext struct {
	Price        float64
	History      []float64
	RecentTrades []*model.TradeAttempt
}

// Strategy converts a signal plus context into a go/no-go trade decision.
// Implementations are pure; any adaptivity comes from the explicit context.
type Strategy interface {
	Name() string
	Decide(rec *model.Recommendation, dctx DecisionContext) Decision
}

// NewStrategyRegistry returns the full strategy dispatch table keyed by
// strategy identifier
func NewStrategyRegistry() map[string]Strategy {
	return map[string]Strategy{
		model.StrategyMomentum:       momentumStrategy{},
		model.StrategyMeanReversion:  meanReversionStrategy{},
		model.StrategyTrendFollowing: trendFollowingStrategy{},
		model.StrategyBuyLowSellHigh: buyLowSellHighStrategy{},
		model.StrategyReinforcement:  reinforcementStrategy{},
		model.StrategyScalping:       scalpingStrategy{},
	}
}

// RecentWinRate computes the win rate over up to window most recent trades
// (newest first). Returns 0 when there are no trades to consider.
func RecentWinRate(trades []*model.TradeAttempt, window int) float64 {
	if window > 0 && len(trades) > window {
		trades = trades[:window]
	}
	if len(trades) == 0 {
		return 0
	}

	wins := 0
	for _, t := range trades {
		if t.PnL > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(trades))
}

// signalSide maps a buy/sell signal to an order side; hold has no side
func signalSide(signal string) (string, bool) {
	switch signal {
	case model.SignalBuy:
		return model.SideBuy, true
	case model.SignalSell:
		return model.SideSell, true
	}
	return "", false
}

type momentumStrategy struct{}

func (momentumStrategy) Name() string { return model.StrategyMomentum }

func (momentumStrategy) Decide(rec *model.Recommendation, _ DecisionContext) Decision {
	if rec.Signal == model.SignalBuy && rec.Confidence > 70 {
		return Decision{Trade: true, Side: model.SideBuy}
	}
	return Decision{}
}

type meanReversionStrategy struct{}

func (meanReversionStrategy) Name() string { return model.StrategyMeanReversion }

// Oversold entry only: sells are never opened by this strategy
func (meanReversionStrategy) Decide(rec *model.Recommendation, _ DecisionContext) Decision {
	if rec.Signal == model.SignalBuy && rec.Confidence > 60 {
		return Decision{Trade: true, Side: model.SideBuy}
	}
	return Decision{}
}

type trendFollowingStrategy struct{}

func (trendFollowingStrategy) Name() string { return model.StrategyTrendFollowing }

func (trendFollowingStrategy) Decide(rec *model.Recommendation, _ DecisionContext) Decision {
	side, ok := signalSide(rec.Signal)
	if ok && rec.Confidence > 65 {
		return Decision{Trade: true, Side: side}
	}
	return Decision{}
}

type buyLowSellHighStrategy struct{}

func (buyLowSellHighStrategy) Name() string { return model.StrategyBuyLowSellHigh }

// Buys when the current price sits at least 5% below the trailing average of
// the full available history. No history means no trade.
func (buyLowSellHighStrategy) Decide(_ *model.Recommendation, dctx DecisionContext) Decision {
	if len(dctx.History) == 0 {
		return Decision{}
	}

	var sum float64
	for _, p := range dctx.History {
		sum += p
	}
	avg := sum / float64(len(dctx.History))

	if dctx.Price < avg*0.95 {
		return Decision{Trade: true, Side: model.SideBuy}
	}
	return Decision{}
}

type reinforcementStrategy struct{}

func (reinforcementStrategy) Name() string { return model.StrategyReinforcement }

// The confidence bar adapts to the bot's recent results: a recent win rate
// above 0.6 lowers the bar from 60 to 50 for this decision only.
func (reinforcementStrategy) Decide(rec *model.Recommendation, dctx DecisionContext) Decision {
	threshold := 60.0
	if RecentWinRate(dctx.RecentTrades, recentTradeWindow) > 0.6 {
		threshold = 50.0
	}

	side, ok := signalSide(rec.Signal)
	if ok && rec.Confidence > threshold {
		return Decision{Trade: true, Side: side}
	}
	return Decision{}
}

type scalpingStrategy struct{}

func (scalpingStrategy) Name() string { return model.StrategyScalping }

func (scalpingStrategy) Decide(rec *model.Recommendation, _ DecisionContext) Decision {
	side, ok := signalSide(rec.Signal)
	if ok && rec.Confidence > 75 {
		return Decision{Trade: true, Side: side}
	}
	return Decision{}
}

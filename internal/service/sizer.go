package service

import (
	"math"

	"tradepilot/backend/internal/model"
	"tradepilot/backend/internal/util"
)

// Shares converts a notional dollar amount into a whole-share quantity at the
// given price. Fractional shares are never ordered; the result is floored.
func Shares(amount, price float64) int {
	if price <= 0 || amount <= 0 {
		return 0
	}
	return int(math.Floor(amount / price))
}

// RiskCappedAmount limits the notional amount to riskPercent of account
// equity. A zero riskPercent leaves the amount unchanged.
func RiskCappedAmount(amount, equity, riskPercent float64) float64 {
	if riskPercent <= 0 || equity <= 0 {
		return amount
	}
	maxNotional := equity * riskPercent / 100
	if amount > maxNotional {
		return maxNotional
	}
	return amount
}

// BracketLevels computes the stop-loss and take-profit prices for an entry.
// For buys the stop sits below the entry and the target above; for sells the
// offsets invert. A zero percentage disables that bracket leg.
func BracketLevels(side string, price, takeProfitPercent, stopLossPercent float64) (stopLoss, takeProfit float64) {
	tp := takeProfitPercent / 100
	sl := stopLossPercent / 100
	if side == model.SideSell {
		tp, sl = -tp, -sl
	}

	if stopLossPercent > 0 {
		stopLoss = util.Round2(price * (1 - sl))
	}
	if takeProfitPercent > 0 {
		takeProfit = util.Round2(price * (1 + tp))
	}
	return stopLoss, takeProfit
}

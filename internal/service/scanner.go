package service

import (
	"context"
	"time"

	"tradepilot/backend/internal/model"
	"tradepilot/backend/pkg/logger"
)

// OscillatorPeriod is the lookback used by the scan oscillator. Computing a
// value needs OscillatorPeriod+1 closes.
const OscillatorPeriod = 14

// Oscillator computes a 0-100 momentum oscillator over the closing prices,
// oldest first. Values near 0 indicate an oversold series, values near 100 an
// overbought one. ok is false when the history is too short for the period.
func Oscillator(prices []float64, period int) (value float64, ok bool) {
	if period <= 0 || len(prices) < period+1 {
		return 0, false
	}

	var gains, losses float64
	for i := len(prices) - period; i < len(prices); i++ {
		delta := prices[i] - prices[i-1]
		if delta > 0 {
			gains += delta
		} else {
			losses -= delta
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	if avgLoss == 0 {
		if avgGain == 0 {
			return 50, true
		}
		return 100, true
	}

	rs := avgGain / avgLoss
	return 100 - 100/(1+rs), true
}

// Scanner filters a bot's symbol set down to trade candidates using live
// quotes and the oscillator
type Scanner struct {
	gateway MarketGateway
	log     *logger.Logger
}

func NewScanner(gateway MarketGateway) *Scanner {
	return &Scanner{
		gateway: gateway,
		log:     logger.GetLogger(),
	}
}

// Scan evaluates each symbol against the configured thresholds and returns
// the candidates in input order. A symbol qualifies when its oscillator is at
// or below the oscillator threshold and its volume at or above the volume
// threshold. Symbols with a failing quote or too little history are skipped,
// never failing the scan as a whole.
func (s *Scanner) Scan(ctx context.Context, symbols []string, cfg model.ScanConfig) []model.ScanResult {
	results := make([]model.ScanResult, 0, len(symbols))

	for _, symbol := range symbols {
		quote, err := s.gateway.GetQuote(ctx, symbol)
		if err != nil {
			s.log.Warnf("Scan: quote for %s failed: %v", symbol, err)
			continue
		}

		history, err := s.gateway.GetHistory(ctx, symbol)
		if err != nil {
			s.log.Warnf("Scan: history for %s failed: %v", symbol, err)
			continue
		}

		osc, ok := Oscillator(history, OscillatorPeriod)
		if !ok {
			s.log.Debugf("Scan: %s has insufficient history (%d bars)", symbol, len(history))
			continue
		}

		if osc > cfg.OscillatorThreshold || quote.Volume < cfg.VolumeThreshold {
			continue
		}

		results = append(results, model.ScanResult{
			Symbol:     symbol,
			Price:      quote.Price,
			Volume:     quote.Volume,
			Oscillator: osc,
			Timestamp:  time.Now(),
		})
	}

	return results
}

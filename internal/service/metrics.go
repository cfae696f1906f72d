package service

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus collectors for the orchestrator. Registered once on the default
// registry; the /metrics endpoint serves them.
var (
	botTicksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradepilot_bot_ticks_total",
		Help: "Bot tick executions by result (run or skipped).",
	}, []string{"result"})

	botTickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tradepilot_bot_tick_duration_seconds",
		Help:    "Wall-clock duration of completed bot ticks.",
		Buckets: prometheus.DefBuckets,
	})

	tradesSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradepilot_trades_submitted_total",
		Help: "Submitted trade attempts by strategy and mode.",
	}, []string{"strategy", "mode"})

	tradeFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradepilot_trade_failures_total",
		Help: "Trade attempts that did not reach the broker, by reason.",
	}, []string{"reason"})

	runningBots = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tradepilot_running_bots",
		Help: "Number of bots currently in the running state.",
	})
)

func observeTickRun(start time.Time) {
	botTicksTotal.WithLabelValues("run").Inc()
	botTickDuration.Observe(time.Since(start).Seconds())
}

func observeTickSkipped() {
	botTicksTotal.WithLabelValues("skipped").Inc()
}

func observeTradeSubmitted(strategy, mode string) {
	tradesSubmitted.WithLabelValues(strategy, mode).Inc()
}

func observeTradeFailure(reason string) {
	tradeFailures.WithLabelValues(reason).Inc()
}

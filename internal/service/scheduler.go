// Package service implements the trading bot orchestrator: bot lifecycle and
// scheduling, market scanning, strategy evaluation, order sizing, and
// performance bookkeeping.
package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"tradepilot/backend/internal/model"
	"tradepilot/backend/internal/util"
	"tradepilot/backend/pkg/logger"
)

const (
	// tickTimeout bounds all external calls made by one tick
	tickTimeout = 30 * time.Second

	// maxScanResults caps each bot's in-memory scan result history
	maxScanResults = 50
)

// BotInstance is the runtime state the scheduler keeps for one active bot.
// The scheduler exclusively owns the timer handle; it is never exposed.
type BotInstance struct {
	Config *model.Bot
	Logs   *ActivityLog

	// mu guards Config and scans. Ticks take the write lock to apply trade
	// results; display reads take the read lock and copy out.
	mu    sync.RWMutex
	scans []model.ScanResult

	ticker       *time.Ticker
	stopChan     chan struct{}
	tickInFlight int32
}

// BotScheduler owns the active bot set, one independent recurring timer per
// running bot, and the scan/decide/trade cycle each timer drives.
type BotScheduler struct {
	bots     BotStore
	trades   TradeStore
	gateway  MarketGateway
	signals  SignalProvider
	scanner  *Scanner
	perf     *PerformanceTracker
	registry map[string]Strategy
	notifier Notifier
	log      *logger.Logger

	// mu serializes Start/Pause/Delete/interval changes against each other
	mu        sync.Mutex
	instances map[int64]*BotInstance

	// sessionActive is 1 while the broker session is believed good. When it
	// drops to 0 all bots are paused and Start is refused.
	sessionActive int32

	// intervalOverride, when positive, replaces the minute-based scan
	// interval. Set only by tests.
	intervalOverride time.Duration
}

func NewBotScheduler(bots BotStore, trades TradeStore, gateway MarketGateway, signals SignalProvider, notifier Notifier) *BotScheduler {
	return &BotScheduler{
		bots:          bots,
		trades:        trades,
		gateway:       gateway,
		signals:       signals,
		scanner:       NewScanner(gateway),
		perf:          NewPerformanceTracker(bots, trades),
		registry:      NewStrategyRegistry(),
		notifier:      notifier,
		log:           logger.GetLogger(),
		instances:     make(map[int64]*BotInstance),
		sessionActive: 1,
	}
}

func (s *BotScheduler) interval(minutes int) time.Duration {
	if s.intervalOverride > 0 {
		return s.intervalOverride
	}
	return time.Duration(minutes) * time.Minute
}

// validateBotConfig rejects configurations that cannot be scheduled. Checked
// at Start time; a failing bot stays stopped.
func validateBotConfig(bot *model.Bot) error {
	if len(bot.Symbols) == 0 {
		return util.ErrValidation("Bot has no symbols to scan")
	}
	if bot.Scan.IntervalMinutes <= 0 {
		return util.ErrValidation("Scan interval must be positive")
	}
	if bot.Scan.TradeAmount <= 0 {
		return util.ErrValidation("Trade amount must be positive")
	}
	if !model.ValidStrategy(bot.Strategy) {
		return util.ErrValidation(fmt.Sprintf("Unknown strategy %q", bot.Strategy))
	}
	if bot.Mode != model.ModePaper && bot.Mode != model.ModeLive {
		return util.ErrValidation(fmt.Sprintf("Unknown trading mode %q", bot.Mode))
	}
	return nil
}

// StartBot transitions a stopped or paused bot to running, performs one
// immediate tick, and arms its recurring timer
func (s *BotScheduler) StartBot(ctx context.Context, userID string, botID int64) (*model.Bot, error) {
	if atomic.LoadInt32(&s.sessionActive) == 0 {
		return nil, util.ErrSessionLost("Broker session lost; re-authenticate before starting bots")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	inst, active := s.instances[botID]
	var bot *model.Bot
	if active {
		bot = inst.Config
	} else {
		var err error
		bot, err = s.bots.GetByID(ctx, botID)
		if err != nil {
			return nil, err
		}
	}

	if bot.UserID != userID {
		return nil, util.ErrForbidden("Bot belongs to another user")
	}
	if bot.State == model.BotStateRunning {
		return nil, util.ErrAlreadyRunning(fmt.Sprintf("Bot %d is already running", botID))
	}
	if err := validateBotConfig(bot); err != nil {
		return nil, err
	}

	if !active {
		inst = &BotInstance{Config: bot, Logs: NewActivityLog()}
		s.instances[botID] = inst
	}

	oldState := bot.State
	inst.mu.Lock()
	bot.State = model.BotStateRunning
	inst.mu.Unlock()

	if err := s.bots.Update(ctx, s.snapshot(inst), oldState); err != nil {
		inst.mu.Lock()
		bot.State = oldState
		inst.mu.Unlock()
		if !active {
			delete(s.instances, botID)
		}
		return nil, err
	}

	inst.stopChan = make(chan struct{})
	inst.ticker = time.NewTicker(s.interval(bot.Scan.IntervalMinutes))
	go s.runLoop(inst, inst.ticker, inst.stopChan)

	runningBots.Inc()
	s.log.WithBot(botID).Infof("Bot %d: started (%s, %s mode, every %dm)",
		botID, bot.Strategy, bot.Mode, bot.Scan.IntervalMinutes)
	s.logBot(inst, fmt.Sprintf("Bot started: %s strategy, %s mode, scanning every %dm",
		bot.Strategy, bot.Mode, bot.Scan.IntervalMinutes))

	s.launchTick(inst)
	s.notifyBot(inst)
	return s.snapshot(inst), nil
}

// PauseBot cancels the bot's timer and marks it paused, keeping accumulated
// logs, scans and statistics. No-op if the bot is not running.
func (s *BotScheduler) PauseBot(ctx context.Context, userID string, botID int64) (*model.Bot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, active := s.instances[botID]
	if !active {
		bot, err := s.bots.GetByID(ctx, botID)
		if err != nil {
			return nil, err
		}
		if bot.UserID != userID {
			return nil, util.ErrForbidden("Bot belongs to another user")
		}
		return bot, nil
	}

	if inst.Config.UserID != userID {
		return nil, util.ErrForbidden("Bot belongs to another user")
	}

	inst.mu.RLock()
	running := inst.Config.State == model.BotStateRunning
	inst.mu.RUnlock()
	if running {
		s.pauseInstance(ctx, inst, "Bot paused")
	}
	return s.snapshot(inst), nil
}

// pauseInstance stops the timer and persists the paused state. Caller holds
// s.mu, and the instance must be running. An in-flight tick is not
// interrupted; its result is still applied when it resolves.
func (s *BotScheduler) pauseInstance(ctx context.Context, inst *BotInstance, reason string) {
	inst.ticker.Stop()
	close(inst.stopChan)
	inst.ticker = nil
	inst.stopChan = nil

	inst.mu.Lock()
	inst.Config.State = model.BotStatePaused
	botID := inst.Config.ID
	inst.mu.Unlock()

	if err := s.bots.Update(ctx, s.snapshot(inst), model.BotStateRunning); err != nil {
		s.log.WithBot(botID).Error("failed to persist paused state", err)
	}

	runningBots.Dec()
	s.log.WithBot(botID).Infof("Bot %d: paused", botID)
	s.logBot(inst, reason)
	s.notifyBot(inst)
}

// DeleteBot cancels any timer, drops the bot from the active set, and removes
// it from storage. Unknown bot IDs are ignored.
func (s *BotScheduler) DeleteBot(ctx context.Context, userID string, botID int64) error {
	s.mu.Lock()
	if inst, active := s.instances[botID]; active {
		if inst.Config.UserID != userID {
			s.mu.Unlock()
			return util.ErrForbidden("Bot belongs to another user")
		}
		inst.mu.RLock()
		running := inst.Config.State == model.BotStateRunning
		inst.mu.RUnlock()
		if running {
			inst.ticker.Stop()
			close(inst.stopChan)
			inst.ticker = nil
			inst.stopChan = nil
			runningBots.Dec()
		}
		delete(s.instances, botID)
	}
	s.mu.Unlock()

	bot, err := s.bots.GetByID(ctx, botID)
	if err != nil {
		if util.HasCode(err, util.ErrCodeBotNotFound) {
			return nil
		}
		return err
	}
	if bot.UserID != userID {
		return util.ErrForbidden("Bot belongs to another user")
	}

	s.log.WithBot(botID).Infof("Bot %d: deleted", botID)
	return s.bots.Delete(ctx, botID)
}

// UpdateScanInterval changes the bot's scan interval. For a running bot the
// timer is re-armed atomically; an in-flight tick finishes undisturbed.
func (s *BotScheduler) UpdateScanInterval(ctx context.Context, userID string, botID int64, minutes int) (*model.Bot, error) {
	if minutes <= 0 {
		return nil, util.ErrValidation("Scan interval must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if inst, active := s.instances[botID]; active {
		if inst.Config.UserID != userID {
			return nil, util.ErrForbidden("Bot belongs to another user")
		}

		inst.mu.Lock()
		inst.Config.Scan.IntervalMinutes = minutes
		running := inst.Config.State == model.BotStateRunning
		inst.mu.Unlock()

		if running {
			inst.ticker.Reset(s.interval(minutes))
		}

		snap := s.snapshot(inst)
		if err := s.bots.Update(ctx, snap, ""); err != nil {
			return nil, err
		}
		s.logBot(inst, fmt.Sprintf("Scan interval changed to %dm", minutes))
		return snap, nil
	}

	bot, err := s.bots.GetByID(ctx, botID)
	if err != nil {
		return nil, err
	}
	if bot.UserID != userID {
		return nil, util.ErrForbidden("Bot belongs to another user")
	}

	bot.Scan.IntervalMinutes = minutes
	if err := s.bots.Update(ctx, bot, ""); err != nil {
		return nil, err
	}
	return bot, nil
}

// SetGlobalMode switches every bot of the user between paper and live.
// In-flight ticks finish under the mode they started with; later ticks use
// the new mode.
func (s *BotScheduler) SetGlobalMode(ctx context.Context, userID, mode string) error {
	if mode != model.ModePaper && mode != model.ModeLive {
		return util.ErrValidation(fmt.Sprintf("Unknown trading mode %q", mode))
	}

	bots, err := s.bots.ListByUser(ctx, userID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, bot := range bots {
		if inst, active := s.instances[bot.ID]; active {
			inst.mu.Lock()
			inst.Config.Mode = mode
			inst.mu.Unlock()
			if err := s.bots.Update(ctx, s.snapshot(inst), ""); err != nil {
				return err
			}
			s.logBot(inst, "Trading mode switched to "+mode)
			continue
		}
		bot.Mode = mode
		if err := s.bots.Update(ctx, bot, ""); err != nil {
			return err
		}
	}

	s.log.Infof("Trading mode for user %s switched to %s", userID, mode)
	return nil
}

// HandleSessionLost forcibly pauses every running bot and refuses new starts
// until the session is restored. Idempotent.
func (s *BotScheduler) HandleSessionLost(reason string) {
	if !atomic.CompareAndSwapInt32(&s.sessionActive, 1, 0) {
		return
	}
	s.log.Warnf("Broker session lost: %s; pausing all running bots", reason)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.mu.Lock()
	for _, inst := range s.instances {
		inst.mu.RLock()
		running := inst.Config.State == model.BotStateRunning
		inst.mu.RUnlock()
		if running {
			s.pauseInstance(ctx, inst, "Paused: broker session lost")
		}
	}
	s.mu.Unlock()

	s.notifier.NotifySession("lost", reason)
}

// HandleSessionRestored re-enables bot starts. Paused bots are not resumed
// automatically; the user restarts them.
func (s *BotScheduler) HandleSessionRestored() {
	if atomic.CompareAndSwapInt32(&s.sessionActive, 0, 1) {
		s.log.Info("Broker session restored")
		s.notifier.NotifySession("active", "")
	}
}

// SessionActive reports whether the broker session is believed good
func (s *BotScheduler) SessionActive() bool {
	return atomic.LoadInt32(&s.sessionActive) == 1
}

// IsRunning reports whether the bot currently has an armed timer
func (s *BotScheduler) IsRunning(botID int64) bool {
	s.mu.Lock()
	inst, active := s.instances[botID]
	s.mu.Unlock()
	if !active {
		return false
	}
	inst.mu.RLock()
	defer inst.mu.RUnlock()
	return inst.Config.State == model.BotStateRunning
}

// BotLogs returns the bot's buffered activity log, newest first
func (s *BotScheduler) BotLogs(botID int64) []model.LogEntry {
	s.mu.Lock()
	inst, active := s.instances[botID]
	s.mu.Unlock()
	if !active {
		return []model.LogEntry{}
	}
	return inst.Logs.Entries()
}

// ScanResults returns the bot's recent scan results, newest first
func (s *BotScheduler) ScanResults(botID int64) []model.ScanResult {
	s.mu.Lock()
	inst, active := s.instances[botID]
	s.mu.Unlock()
	if !active {
		return []model.ScanResult{}
	}

	inst.mu.RLock()
	defer inst.mu.RUnlock()
	out := make([]model.ScanResult, len(inst.scans))
	copy(out, inst.scans)
	return out
}

// Shutdown stops every armed timer. Persisted bot state is left untouched;
// bots never auto-resume after a restart.
func (s *BotScheduler) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, inst := range s.instances {
		if inst.ticker != nil {
			inst.ticker.Stop()
			close(inst.stopChan)
			inst.ticker = nil
			inst.stopChan = nil
		}
	}
}

// snapshot returns a deep-enough copy of the bot for display and persistence,
// safe against concurrent tick writes
func (s *BotScheduler) snapshot(inst *BotInstance) *model.Bot {
	inst.mu.RLock()
	defer inst.mu.RUnlock()

	bot := *inst.Config
	bot.Symbols = append([]string(nil), inst.Config.Symbols...)
	bot.EquityCurve = append([]model.EquityPoint(nil), inst.Config.EquityCurve...)
	return &bot
}

func (s *BotScheduler) runLoop(inst *BotInstance, ticker *time.Ticker, stop chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.launchTick(inst)
		}
	}
}

// launchTick starts one tick in its own goroutine. A tick is suppressed, not
// queued, while the previous tick for the same bot is still in flight.
func (s *BotScheduler) launchTick(inst *BotInstance) {
	if !atomic.CompareAndSwapInt32(&inst.tickInFlight, 0, 1) {
		observeTickSkipped()
		s.logBot(inst, "Tick skipped: previous tick still in flight")
		return
	}

	go func() {
		defer atomic.StoreInt32(&inst.tickInFlight, 0)
		s.tick(inst)
	}()
}

// tick runs one scan/decide/trade cycle. Configuration is snapshotted at the
// start, so concurrent mode or interval changes only affect later ticks.
func (s *BotScheduler) tick(inst *BotInstance) {
	start := time.Now()

	inst.mu.RLock()
	botID := inst.Config.ID
	userID := inst.Config.UserID
	strategyID := inst.Config.Strategy
	mode := inst.Config.Mode
	riskPercent := inst.Config.RiskPercent
	scanCfg := inst.Config.Scan
	symbols := append([]string(nil), inst.Config.Symbols...)
	inst.mu.RUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), tickTimeout)
	defer cancel()

	strategy, ok := s.registry[strategyID]
	if !ok {
		s.logBot(inst, fmt.Sprintf("Unknown strategy %q, tick aborted", strategyID))
		return
	}

	results := s.scanner.Scan(ctx, symbols, scanCfg)
	s.log.WithBot(botID).Debugf("Tick: %d of %d symbols qualified", len(results), len(symbols))

	for i := range results {
		results[i].Action = s.evaluateCandidate(ctx, inst, strategy, &results[i], mode, riskPercent, scanCfg)
	}

	if len(results) > 0 {
		inst.mu.Lock()
		inst.scans = append(append([]model.ScanResult(nil), results...), inst.scans...)
		if len(inst.scans) > maxScanResults {
			inst.scans = inst.scans[:maxScanResults]
		}
		inst.mu.Unlock()

		s.notifier.NotifyScanResults(userID, botID, results)
	}

	observeTickRun(start)
}

// evaluateCandidate runs the decision gate and, if approved, sizes and
// submits the order. Returns the action recorded on the scan result. Failed
// external calls skip this symbol only; the bot keeps running.
func (s *BotScheduler) evaluateCandidate(ctx context.Context, inst *BotInstance, strategy Strategy, res *model.ScanResult, mode string, riskPercent float64, scanCfg model.ScanConfig) string {
	inst.mu.RLock()
	botID := inst.Config.ID
	inst.mu.RUnlock()

	rec, err := s.signals.GetSignal(ctx, res.Symbol)
	if err != nil {
		s.logBot(inst, fmt.Sprintf("%s: signal fetch failed, skipping: %v", res.Symbol, err))
		return "error"
	}

	var history []float64
	if strategy.Name() == model.StrategyBuyLowSellHigh {
		history, err = s.gateway.GetHistory(ctx, res.Symbol)
		if err != nil {
			s.logBot(inst, fmt.Sprintf("%s: history fetch failed, skipping: %v", res.Symbol, err))
			return "error"
		}
	}

	recent, err := s.trades.ListByBot(ctx, botID, recentTradeWindow)
	if err != nil {
		// Adaptive thresholds fall back to their base value
		recent = nil
	}

	decision := strategy.Decide(rec, DecisionContext{
		Price:        res.Price,
		History:      history,
		RecentTrades: recent,
	})
	if !decision.Trade {
		s.logBot(inst, fmt.Sprintf("%s: no trade (signal %s, confidence %.0f)", res.Symbol, rec.Signal, rec.Confidence))
		return "hold"
	}

	open, err := s.gateway.HasOpenPosition(ctx, mode, res.Symbol)
	if err != nil {
		s.checkSessionLost(err)
		s.logBot(inst, fmt.Sprintf("%s: position check failed, skipping: %v", res.Symbol, err))
		return "error"
	}
	if open {
		s.logBot(inst, fmt.Sprintf("%s: position already open, skipping", res.Symbol))
		return "position_open"
	}

	// The account state fetched here, after the decision, is authoritative
	// for the funds check; any earlier check is advisory only.
	account, err := s.gateway.GetAccount(ctx, mode)
	if err != nil {
		s.checkSessionLost(err)
		s.logBot(inst, fmt.Sprintf("%s: account fetch failed, skipping: %v", res.Symbol, err))
		return "error"
	}

	if account.BuyingPower < res.Price {
		observeTradeFailure("insufficient_funds")
		s.logBot(inst, fmt.Sprintf("%s: insufficient buying power ($%.2f) for one share at $%.2f",
			res.Symbol, account.BuyingPower, res.Price))
		return "insufficient_funds"
	}

	amount := RiskCappedAmount(scanCfg.TradeAmount, account.Equity, riskPercent)
	if amount > account.BuyingPower {
		amount = account.BuyingPower
	}

	qty := Shares(amount, res.Price)
	if qty <= 0 {
		observeTradeFailure("zero_quantity")
		s.logBot(inst, fmt.Sprintf("%s: $%.2f buys no whole share at $%.2f, skipping",
			res.Symbol, amount, res.Price))
		return "skipped"
	}

	stopLoss, takeProfit := BracketLevels(decision.Side, res.Price, scanCfg.TakeProfitPercent, scanCfg.StopLossPercent)

	outcome, err := s.gateway.SubmitOrder(ctx, &model.OrderIntent{
		Symbol:        res.Symbol,
		Side:          decision.Side,
		Quantity:      qty,
		Mode:          mode,
		StopLoss:      stopLoss,
		TakeProfit:    takeProfit,
		ClientOrderID: newClientOrderID(botID),
	})
	if err != nil {
		observeTradeFailure("submit_error")
		s.checkSessionLost(err)
		s.logBot(inst, fmt.Sprintf("%s: order submit failed: %v", res.Symbol, err))
		return "error"
	}

	price := res.Price
	if outcome.FilledPrice > 0 {
		price = outcome.FilledPrice
	}

	attempt := &model.TradeAttempt{
		BotID:      botID,
		Symbol:     res.Symbol,
		Side:       decision.Side,
		Quantity:   qty,
		Price:      price,
		StopLoss:   stopLoss,
		TakeProfit: takeProfit,
		PnL:        outcome.SimulatedPnL,
		Strategy:   strategy.Name(),
		Confidence: rec.Confidence,
		Mode:       mode,
		Timestamp:  time.Now(),
	}

	// The instance lock covers only the in-memory mutation; persistence runs
	// on a snapshot with no lock held
	inst.mu.Lock()
	s.perf.Apply(inst.Config, attempt)
	inst.mu.Unlock()

	if err := s.perf.Persist(ctx, s.snapshot(inst), attempt); err != nil {
		s.log.WithBot(botID).Error("failed to persist performance update", err)
	}

	observeTradeSubmitted(strategy.Name(), mode)
	s.logBot(inst, fmt.Sprintf("%s: %s %d @ $%.2f (confidence %.0f, pnl $%.2f)",
		res.Symbol, decision.Side, qty, price, rec.Confidence, attempt.PnL))
	s.notifyBot(inst)

	if decision.Side == model.SideSell {
		return "sold"
	}
	return "bought"
}

// checkSessionLost escalates an auth failure from any tick to a global
// session-lost pause
func (s *BotScheduler) checkSessionLost(err error) {
	if util.HasCode(err, util.ErrCodeSessionLost) {
		go s.HandleSessionLost(err.Error())
	}
}

func (s *BotScheduler) logBot(inst *BotInstance, message string) {
	entry := inst.Logs.Append(message)

	inst.mu.RLock()
	botID := inst.Config.ID
	userID := inst.Config.UserID
	inst.mu.RUnlock()

	s.log.WithBot(botID).Debug(message)
	s.notifier.NotifyLogEntry(userID, botID, entry)
}

func (s *BotScheduler) notifyBot(inst *BotInstance) {
	bot := s.snapshot(inst)
	s.notifier.NotifyBotUpdate(bot.UserID, bot)
}

func newClientOrderID(botID int64) string {
	return fmt.Sprintf("bot%d-%s", botID, uuid.NewString()[:8])
}

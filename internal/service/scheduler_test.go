package service

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"tradepilot/backend/internal/model"
	"tradepilot/backend/internal/util"
)

const testUser = "user-1"

type schedulerFixture struct {
	scheduler *BotScheduler
	bots      *mockBotStore
	trades    *mockTradeStore
	gateway   *mockGateway
	signals   *mockSignals
	notifier  *mockNotifier
}

func newSchedulerFixture(t *testing.T) *schedulerFixture {
	t.Helper()

	gateway := newMockGateway()
	falling := make([]float64, 20)
	for i := range falling {
		falling[i] = 200 - float64(i)
	}
	gateway.quotes["AAPL"] = &model.Quote{Symbol: "AAPL", Price: 170.33, Volume: 5_000_000}
	gateway.history["AAPL"] = falling

	signals := &mockSignals{}
	signals.set(model.Recommendation{Signal: model.SignalBuy, Confidence: 90})

	f := &schedulerFixture{
		bots:     newMockBotStore(),
		trades:   newMockTradeStore(),
		gateway:  gateway,
		signals:  signals,
		notifier: &mockNotifier{},
	}
	f.scheduler = NewBotScheduler(f.bots, f.trades, gateway, signals, f.notifier)
	f.scheduler.intervalOverride = 20 * time.Millisecond

	t.Cleanup(f.scheduler.Shutdown)
	return f
}

func (f *schedulerFixture) createBot(t *testing.T) *model.Bot {
	t.Helper()
	bot := &model.Bot{
		UserID:   testUser,
		Name:     "momentum bot",
		Strategy: model.StrategyMomentum,
		Mode:     model.ModePaper,
		Symbols:  []string{"AAPL"},
		Scan: model.ScanConfig{
			OscillatorThreshold: 100,
			VolumeThreshold:     0,
			TradeAmount:         500,
			TakeProfitPercent:   5,
			StopLossPercent:     2,
			IntervalMinutes:     1,
		},
	}
	if err := f.bots.Create(context.Background(), bot); err != nil {
		t.Fatalf("create bot: %v", err)
	}
	return bot
}

func (f *schedulerFixture) instance(botID int64) *BotInstance {
	f.scheduler.mu.Lock()
	defer f.scheduler.mu.Unlock()
	return f.scheduler.instances[botID]
}

func (f *schedulerFixture) hasLog(botID int64, substr string) bool {
	for _, entry := range f.scheduler.BotLogs(botID) {
		if strings.Contains(entry.Message, substr) {
			return true
		}
	}
	return false
}

func waitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestStartRunsImmediateTickAndArmsTimer(t *testing.T) {
	f := newSchedulerFixture(t)
	bot := f.createBot(t)
	ctx := context.Background()

	started, err := f.scheduler.StartBot(ctx, testUser, bot.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if started.State != model.BotStateRunning {
		t.Errorf("state = %s, want running", started.State)
	}

	// Start performs one tick immediately, without waiting for the interval
	waitFor(t, 2*time.Second, "immediate tick to submit an order", func() bool {
		return len(f.gateway.submittedOrders()) >= 1
	})

	order := f.gateway.submittedOrders()[0]
	if order.Symbol != "AAPL" || order.Side != model.SideBuy || order.Quantity != 2 {
		t.Errorf("order = %+v, want buy 2 AAPL", order)
	}
	if order.TakeProfit == 0 || order.StopLoss == 0 {
		t.Errorf("bracket levels missing on order: %+v", order)
	}

	// Exactly one timer armed while running, zero once paused
	if inst := f.instance(bot.ID); inst == nil || inst.ticker == nil {
		t.Fatal("running bot must have an armed timer")
	}
	if _, err := f.scheduler.PauseBot(ctx, testUser, bot.ID); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if inst := f.instance(bot.ID); inst.ticker != nil {
		t.Error("paused bot must have no timer")
	}

	stored, _ := f.bots.GetByID(ctx, bot.ID)
	if stored.State != model.BotStatePaused {
		t.Errorf("persisted state = %s, want paused", stored.State)
	}

	// A paused bot keeps its logs and can be started again
	if len(f.scheduler.BotLogs(bot.ID)) == 0 {
		t.Error("pause must retain accumulated logs")
	}
	if _, err := f.scheduler.StartBot(ctx, testUser, bot.ID); err != nil {
		t.Fatalf("restart after pause: %v", err)
	}
	if inst := f.instance(bot.ID); inst.ticker == nil {
		t.Error("restarted bot must have an armed timer")
	}
}

func TestStartAlreadyRunning(t *testing.T) {
	f := newSchedulerFixture(t)
	bot := f.createBot(t)
	ctx := context.Background()

	if _, err := f.scheduler.StartBot(ctx, testUser, bot.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	_, err := f.scheduler.StartBot(ctx, testUser, bot.ID)
	if !util.HasCode(err, util.ErrCodeAlreadyRunning) {
		t.Errorf("second start: got %v, want %s", err, util.ErrCodeAlreadyRunning)
	}
}

func TestStartRejectsInvalidConfiguration(t *testing.T) {
	f := newSchedulerFixture(t)
	bot := f.createBot(t)
	ctx := context.Background()

	bot.Scan.IntervalMinutes = 0
	if err := f.bots.Update(ctx, bot, ""); err != nil {
		t.Fatalf("corrupt config: %v", err)
	}

	_, err := f.scheduler.StartBot(ctx, testUser, bot.ID)
	if !util.HasCode(err, util.ErrCodeValidation) {
		t.Fatalf("got %v, want %s", err, util.ErrCodeValidation)
	}

	// The bot stays stopped, with no timer and no instance
	stored, _ := f.bots.GetByID(ctx, bot.ID)
	if stored.State != model.BotStateStopped {
		t.Errorf("state = %s, want stopped", stored.State)
	}
	if f.instance(bot.ID) != nil {
		t.Error("rejected start must not leave an instance behind")
	}
}

func TestStartRejectsForeignBot(t *testing.T) {
	f := newSchedulerFixture(t)
	bot := f.createBot(t)

	_, err := f.scheduler.StartBot(context.Background(), "someone-else", bot.ID)
	if !util.HasCode(err, util.ErrCodeForbidden) {
		t.Errorf("got %v, want %s", err, util.ErrCodeForbidden)
	}
}

func TestTickSkipOnOverlap(t *testing.T) {
	f := newSchedulerFixture(t)
	f.gateway.quoteGate = make(chan struct{})
	bot := f.createBot(t)
	ctx := context.Background()

	if _, err := f.scheduler.StartBot(ctx, testUser, bot.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	// The immediate tick is held inside the quote call; interval ticks that
	// fire meanwhile must be suppressed and logged, never queued
	waitFor(t, 2*time.Second, "a skip event while the first tick is in flight", func() bool {
		return f.hasLog(bot.ID, "Tick skipped")
	})
	if len(f.gateway.submittedOrders()) != 0 {
		t.Fatal("no order may be submitted while the tick is blocked")
	}

	close(f.gateway.quoteGate)

	waitFor(t, 2*time.Second, "the held tick to complete", func() bool {
		return len(f.gateway.submittedOrders()) == 1
	})

	// Later ticks see the open position, so exactly one trade is applied
	time.Sleep(100 * time.Millisecond)
	if got := len(f.gateway.submittedOrders()); got != 1 {
		t.Errorf("submitted orders = %d, want exactly 1", got)
	}
	if f.trades.count(bot.ID) != 1 {
		t.Errorf("recorded attempts = %d, want exactly 1", f.trades.count(bot.ID))
	}
}

func TestPauseMidTickStillRecordsResult(t *testing.T) {
	f := newSchedulerFixture(t)
	f.gateway.quoteGate = make(chan struct{})
	bot := f.createBot(t)
	ctx := context.Background()

	if _, err := f.scheduler.StartBot(ctx, testUser, bot.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	inst := f.instance(bot.ID)
	waitFor(t, 2*time.Second, "tick to be in flight", func() bool {
		return atomic.LoadInt32(&inst.tickInFlight) == 1
	})

	if _, err := f.scheduler.PauseBot(ctx, testUser, bot.ID); err != nil {
		t.Fatalf("pause: %v", err)
	}

	// The in-flight tick is not interrupted; its result is applied even
	// though the bot is already paused when it resolves
	close(f.gateway.quoteGate)
	waitFor(t, 2*time.Second, "held tick result to be recorded", func() bool {
		stored, err := f.bots.GetByID(ctx, bot.ID)
		return err == nil && stored.TotalTrades == 1
	})

	stored, _ := f.bots.GetByID(ctx, bot.ID)
	if stored.State != model.BotStatePaused {
		t.Errorf("state = %s, want paused", stored.State)
	}
}

func TestDeleteIsSilentForUnknownBot(t *testing.T) {
	f := newSchedulerFixture(t)
	if err := f.scheduler.DeleteBot(context.Background(), testUser, 9999); err != nil {
		t.Errorf("delete of unknown bot: got %v, want nil", err)
	}
}

func TestDeleteRunningBotCancelsTimer(t *testing.T) {
	f := newSchedulerFixture(t)
	bot := f.createBot(t)
	ctx := context.Background()

	if _, err := f.scheduler.StartBot(ctx, testUser, bot.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := f.scheduler.DeleteBot(ctx, testUser, bot.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if f.scheduler.IsRunning(bot.ID) {
		t.Error("deleted bot must not be running")
	}
	if f.instance(bot.ID) != nil {
		t.Error("deleted bot must be dropped from the active set")
	}
	if _, err := f.bots.GetByID(ctx, bot.ID); !util.HasCode(err, util.ErrCodeBotNotFound) {
		t.Errorf("bot still in store after delete: %v", err)
	}

	// Delete is idempotent
	if err := f.scheduler.DeleteBot(ctx, testUser, bot.ID); err != nil {
		t.Errorf("second delete: got %v, want nil", err)
	}
}

func TestUpdateScanInterval(t *testing.T) {
	f := newSchedulerFixture(t)
	bot := f.createBot(t)
	ctx := context.Background()

	if _, err := f.scheduler.UpdateScanInterval(ctx, testUser, bot.ID, 0); !util.HasCode(err, util.ErrCodeValidation) {
		t.Errorf("zero interval: got %v, want %s", err, util.ErrCodeValidation)
	}

	// Stopped bot: persisted only
	updated, err := f.scheduler.UpdateScanInterval(ctx, testUser, bot.ID, 5)
	if err != nil {
		t.Fatalf("update interval: %v", err)
	}
	if updated.Scan.IntervalMinutes != 5 {
		t.Errorf("interval = %d, want 5", updated.Scan.IntervalMinutes)
	}

	// Running bot: the timer is re-armed and the bot keeps running
	if _, err := f.scheduler.StartBot(ctx, testUser, bot.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := f.scheduler.UpdateScanInterval(ctx, testUser, bot.ID, 2); err != nil {
		t.Fatalf("update while running: %v", err)
	}
	if !f.scheduler.IsRunning(bot.ID) {
		t.Error("interval change must not stop the bot")
	}
	stored, _ := f.bots.GetByID(ctx, bot.ID)
	if stored.Scan.IntervalMinutes != 2 {
		t.Errorf("persisted interval = %d, want 2", stored.Scan.IntervalMinutes)
	}
}

func TestInsufficientFundsDowngradesToNoTrade(t *testing.T) {
	f := newSchedulerFixture(t)
	f.gateway.mu.Lock()
	f.gateway.account = model.Account{Equity: 50, BuyingPower: 50, Cash: 50}
	f.gateway.mu.Unlock()
	bot := f.createBot(t)
	ctx := context.Background()

	if _, err := f.scheduler.StartBot(ctx, testUser, bot.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	waitFor(t, 2*time.Second, "an insufficiency log entry", func() bool {
		return f.hasLog(bot.ID, "insufficient buying power")
	})

	if len(f.gateway.submittedOrders()) != 0 {
		t.Error("no order may be submitted without buying power")
	}
	if !f.scheduler.IsRunning(bot.ID) {
		t.Error("insufficient funds must not stop the bot")
	}
}

func TestSetGlobalModeSwitchesAllBots(t *testing.T) {
	f := newSchedulerFixture(t)
	f.gateway.quoteGate = make(chan struct{})
	running := f.createBot(t)
	stopped := f.createBot(t)
	ctx := context.Background()

	if err := f.scheduler.SetGlobalMode(ctx, testUser, "margin"); !util.HasCode(err, util.ErrCodeValidation) {
		t.Errorf("unknown mode: got %v, want %s", err, util.ErrCodeValidation)
	}

	if _, err := f.scheduler.StartBot(ctx, testUser, running.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	inst := f.instance(running.ID)
	waitFor(t, 2*time.Second, "tick to be in flight", func() bool {
		return atomic.LoadInt32(&inst.tickInFlight) == 1
	})

	if err := f.scheduler.SetGlobalMode(ctx, testUser, model.ModeLive); err != nil {
		t.Fatalf("set mode: %v", err)
	}

	// Both bots persist the new mode; the running one keeps its timer
	for _, id := range []int64{running.ID, stopped.ID} {
		stored, err := f.bots.GetByID(ctx, id)
		if err != nil {
			t.Fatalf("get bot %d: %v", id, err)
		}
		if stored.Mode != model.ModeLive {
			t.Errorf("bot %d mode = %s, want live", id, stored.Mode)
		}
	}
	if !f.scheduler.IsRunning(running.ID) {
		t.Error("mode switch must not stop a running bot")
	}
	if inst.ticker == nil {
		t.Error("mode switch must leave the timer armed")
	}

	// The tick already in flight was snapshotted before the switch and
	// submits under the old mode
	close(f.gateway.quoteGate)
	waitFor(t, 2*time.Second, "the held tick to submit", func() bool {
		return len(f.gateway.submittedOrders()) >= 1
	})
	if got := f.gateway.submittedOrders()[0].Mode; got != model.ModePaper {
		t.Errorf("in-flight order mode = %s, want paper", got)
	}

	// Ticks started after the switch submit under the new mode
	f.gateway.clearPositions()
	waitFor(t, 2*time.Second, "a post-switch order", func() bool {
		return len(f.gateway.submittedOrders()) >= 2
	})
	orders := f.gateway.submittedOrders()
	if got := orders[len(orders)-1].Mode; got != model.ModeLive {
		t.Errorf("post-switch order mode = %s, want live", got)
	}
}

func TestDisplayReadsNotBlockedByPersistence(t *testing.T) {
	f := newSchedulerFixture(t)
	f.gateway.quoteGate = make(chan struct{})
	bot := f.createBot(t)
	ctx := context.Background()

	if _, err := f.scheduler.StartBot(ctx, testUser, bot.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	inst := f.instance(bot.ID)
	waitFor(t, 2*time.Second, "tick to be in flight", func() bool {
		return atomic.LoadInt32(&inst.tickInFlight) == 1
	})

	// Hold the bot store's Update, then let the tick run into it. The trade
	// attempt is recorded just before the update, so its arrival means the
	// tick is now stalled on persistence.
	updateGate := make(chan struct{})
	f.bots.mu.Lock()
	f.bots.updateGate = updateGate
	f.bots.mu.Unlock()
	close(f.gateway.quoteGate)

	waitFor(t, 2*time.Second, "the tick to reach persistence", func() bool {
		return f.trades.count(bot.ID) == 1
	})

	// Display reads must not wait for the store write to finish
	read := make(chan struct{})
	go func() {
		f.scheduler.ScanResults(bot.ID)
		f.scheduler.BotLogs(bot.ID)
		close(read)
	}()
	select {
	case <-read:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("display reads blocked behind a slow store write")
	}

	close(updateGate)
	waitFor(t, 2*time.Second, "the stalled write to land", func() bool {
		stored, err := f.bots.GetByID(ctx, bot.ID)
		return err == nil && stored.TotalTrades == 1
	})
}

func TestSessionLostPausesEverythingAndBlocksStart(t *testing.T) {
	f := newSchedulerFixture(t)
	first := f.createBot(t)
	second := f.createBot(t)
	ctx := context.Background()

	if _, err := f.scheduler.StartBot(ctx, testUser, first.ID); err != nil {
		t.Fatalf("start first: %v", err)
	}
	if _, err := f.scheduler.StartBot(ctx, testUser, second.ID); err != nil {
		t.Fatalf("start second: %v", err)
	}

	f.scheduler.HandleSessionLost("auth expired")

	for _, id := range []int64{first.ID, second.ID} {
		if f.scheduler.IsRunning(id) {
			t.Errorf("bot %d still running after session loss", id)
		}
		stored, _ := f.bots.GetByID(ctx, id)
		if stored.State != model.BotStatePaused {
			t.Errorf("bot %d state = %s, want paused", id, stored.State)
		}
	}

	if _, err := f.scheduler.StartBot(ctx, testUser, first.ID); !util.HasCode(err, util.ErrCodeSessionLost) {
		t.Errorf("start during lost session: got %v, want %s", err, util.ErrCodeSessionLost)
	}

	events := f.notifier.sessionEvents()
	if len(events) == 0 || events[0] != "lost" {
		t.Errorf("session events = %v, want lost notification", events)
	}

	// Restore re-enables starts but resumes nothing by itself
	f.scheduler.HandleSessionRestored()
	if f.scheduler.IsRunning(first.ID) {
		t.Error("restore must not auto-resume bots")
	}
	if _, err := f.scheduler.StartBot(ctx, testUser, first.ID); err != nil {
		t.Errorf("start after restore: %v", err)
	}
}

package service

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"tradepilot/backend/internal/model"
	"tradepilot/backend/internal/util"
)

// In-memory fakes for the service interfaces. Safe for concurrent use so
// scheduler tests can exercise real ticks.

// mockBotStore keeps bots in a map. updateGate, when set, blocks Update until
// the channel is closed so tests can hold persistence in flight.
type mockBotStore struct {
	mu         sync.Mutex
	bots       map[int64]*model.Bot
	nextID     int64
	updateGate chan struct{}
}

func newMockBotStore() *mockBotStore {
	return &mockBotStore{bots: make(map[int64]*model.Bot)}
}

func copyBot(b *model.Bot) *model.Bot {
	c := *b
	c.Symbols = append([]string(nil), b.Symbols...)
	c.EquityCurve = append([]model.EquityPoint(nil), b.EquityCurve...)
	return &c
}

func (m *mockBotStore) Create(_ context.Context, bot *model.Bot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if bot.ID == 0 {
		m.nextID++
		bot.ID = m.nextID
	}
	bot.State = model.BotStateStopped
	m.bots[bot.ID] = copyBot(bot)
	return nil
}

func (m *mockBotStore) GetByID(_ context.Context, botID int64) (*model.Bot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	bot, ok := m.bots[botID]
	if !ok {
		return nil, util.NewAppError(http.StatusNotFound, util.ErrCodeBotNotFound, "Bot not found")
	}
	return copyBot(bot), nil
}

func (m *mockBotStore) Update(_ context.Context, bot *model.Bot, _ string) error {
	m.mu.Lock()
	gate := m.updateGate
	m.mu.Unlock()
	if gate != nil {
		<-gate
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bots[bot.ID]; !ok {
		return util.NewAppError(http.StatusNotFound, util.ErrCodeBotNotFound, "Bot not found")
	}
	m.bots[bot.ID] = copyBot(bot)
	return nil
}

func (m *mockBotStore) Delete(_ context.Context, botID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bots[botID]; !ok {
		return util.NewAppError(http.StatusNotFound, util.ErrCodeBotNotFound, "Bot not found")
	}
	delete(m.bots, botID)
	return nil
}

func (m *mockBotStore) ListByUser(_ context.Context, userID string) ([]*model.Bot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Bot
	for _, bot := range m.bots {
		if bot.UserID == userID {
			out = append(out, copyBot(bot))
		}
	}
	return out, nil
}

type mockTradeStore struct {
	mu     sync.Mutex
	trades map[int64][]*model.TradeAttempt
}

func newMockTradeStore() *mockTradeStore {
	return &mockTradeStore{trades: make(map[int64][]*model.TradeAttempt)}
}

func (m *mockTradeStore) Record(_ context.Context, attempt *model.TradeAttempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := *attempt
	m.trades[attempt.BotID] = append([]*model.TradeAttempt{&a}, m.trades[attempt.BotID]...)
	return nil
}

func (m *mockTradeStore) ListByBot(_ context.Context, botID int64, limit int) ([]*model.TradeAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	trades := m.trades[botID]
	if limit > 0 && len(trades) > limit {
		trades = trades[:limit]
	}
	out := make([]*model.TradeAttempt, len(trades))
	copy(out, trades)
	return out, nil
}

func (m *mockTradeStore) count(botID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.trades[botID])
}

// mockGateway serves canned quotes, history and account state. quoteGate,
// when set, blocks GetQuote until the channel is closed so tests can hold a
// tick in flight.
type mockGateway struct {
	mu        sync.Mutex
	quotes    map[string]*model.Quote
	history   map[string][]float64
	account   model.Account
	outcome   model.OrderOutcome
	positions map[string]bool
	submitted []*model.OrderIntent

	quoteErr   error
	accountErr error
	submitErr  error
	quoteGate  chan struct{}
}

func newMockGateway() *mockGateway {
	return &mockGateway{
		quotes:    make(map[string]*model.Quote),
		history:   make(map[string][]float64),
		account:   model.Account{Equity: 100000, BuyingPower: 100000, Cash: 100000},
		outcome:   model.OrderOutcome{Status: "filled"},
		positions: make(map[string]bool),
	}
}

func (g *mockGateway) GetAccount(_ context.Context, _ string) (*model.Account, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.accountErr != nil {
		return nil, g.accountErr
	}
	account := g.account
	return &account, nil
}

func (g *mockGateway) GetQuote(ctx context.Context, symbol string) (*model.Quote, error) {
	g.mu.Lock()
	gate := g.quoteGate
	g.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, util.ErrTransientIO("quote timed out", ctx.Err())
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.quoteErr != nil {
		return nil, g.quoteErr
	}
	quote, ok := g.quotes[symbol]
	if !ok {
		return nil, util.ErrTransientIO(fmt.Sprintf("no quote for %s", symbol), nil)
	}
	q := *quote
	return &q, nil
}

func (g *mockGateway) GetHistory(_ context.Context, symbol string) ([]float64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]float64(nil), g.history[symbol]...), nil
}

func (g *mockGateway) SubmitOrder(_ context.Context, intent *model.OrderIntent) (*model.OrderOutcome, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.submitErr != nil {
		return nil, g.submitErr
	}
	cp := *intent
	g.submitted = append(g.submitted, &cp)
	g.positions[intent.Symbol] = true
	outcome := g.outcome
	return &outcome, nil
}

func (g *mockGateway) HasOpenPosition(_ context.Context, _, symbol string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.positions[symbol], nil
}

func (g *mockGateway) clearPositions() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.positions = make(map[string]bool)
}

func (g *mockGateway) submittedOrders() []*model.OrderIntent {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*model.OrderIntent, len(g.submitted))
	copy(out, g.submitted)
	return out
}

type mockSignals struct {
	mu  sync.Mutex
	rec model.Recommendation
	err error
}

func (m *mockSignals) GetSignal(_ context.Context, symbol string) (*model.Recommendation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	rec := m.rec
	rec.Symbol = symbol
	return &rec, nil
}

func (m *mockSignals) set(rec model.Recommendation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rec = rec
}

type mockNotifier struct {
	mu       sync.Mutex
	sessions []string
	logCount int
}

func (m *mockNotifier) NotifyBotUpdate(string, *model.Bot) {}

func (m *mockNotifier) NotifyLogEntry(string, int64, model.LogEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logCount++
}

func (m *mockNotifier) NotifyScanResults(string, int64, []model.ScanResult) {}

func (m *mockNotifier) NotifySession(status, _ string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = append(m.sessions, status)
}

func (m *mockNotifier) sessionEvents() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sessions...)
}

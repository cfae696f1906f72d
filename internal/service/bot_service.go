package service

import (
	"context"
	"fmt"

	"tradepilot/backend/internal/model"
	"tradepilot/backend/internal/util"
	"tradepilot/backend/pkg/logger"
)

// BotService handles bot CRUD and read paths. Lifecycle transitions go
// through the scheduler, which owns the timers.
type BotService struct {
	bots      BotStore
	trades    TradeStore
	scheduler *BotScheduler
	log       *logger.Logger
}

func NewBotService(bots BotStore, trades TradeStore, scheduler *BotScheduler) *BotService {
	return &BotService{
		bots:      bots,
		trades:    trades,
		scheduler: scheduler,
		log:       logger.GetLogger(),
	}
}

// Create registers a new bot in the stopped state
func (s *BotService) Create(ctx context.Context, userID string, req *model.BotRequest) (*model.Bot, error) {
	bot := &model.Bot{
		UserID:      userID,
		Name:        req.Name,
		Strategy:    req.Strategy,
		Mode:        req.Mode,
		Symbols:     req.Symbols,
		RiskPercent: req.RiskPercent,
		Scan: model.ScanConfig{
			OscillatorThreshold: req.OscillatorThreshold,
			VolumeThreshold:     req.VolumeThreshold,
			TradeAmount:         req.TradeAmount,
			TakeProfitPercent:   req.TakeProfitPercent,
			StopLossPercent:     req.StopLossPercent,
			IntervalMinutes:     req.IntervalMinutes,
		},
	}
	bot.NormalizeSymbols()
	if len(bot.Symbols) == 0 {
		return nil, util.ErrValidation("Bot needs at least one valid symbol")
	}

	if err := s.bots.Create(ctx, bot); err != nil {
		return nil, err
	}

	s.log.WithBot(bot.ID).Infof("Bot %d: created (%s) for user %s", bot.ID, bot.Name, userID)
	return bot, nil
}

// List returns all of the user's bots ordered by ID
func (s *BotService) List(ctx context.Context, userID string) ([]*model.Bot, error) {
	return s.bots.ListByUser(ctx, userID)
}

// Get returns one bot, enforcing ownership
func (s *BotService) Get(ctx context.Context, userID string, botID int64) (*model.Bot, error) {
	bot, err := s.bots.GetByID(ctx, botID)
	if err != nil {
		return nil, err
	}
	if bot.UserID != userID {
		return nil, util.ErrForbidden("Bot belongs to another user")
	}
	return bot, nil
}

// UpdateConfig replaces a bot's configuration. Refused while the bot is
// running; pause it first.
func (s *BotService) UpdateConfig(ctx context.Context, userID string, botID int64, req *model.BotRequest) (*model.Bot, error) {
	bot, err := s.Get(ctx, userID, botID)
	if err != nil {
		return nil, err
	}

	if s.scheduler.IsRunning(botID) {
		return nil, util.NewAppError(409, util.ErrCodeConflict,
			fmt.Sprintf("Bot %d is running; pause it before reconfiguring", botID))
	}

	bot.Name = req.Name
	bot.Strategy = req.Strategy
	bot.Mode = req.Mode
	bot.Symbols = req.Symbols
	bot.RiskPercent = req.RiskPercent
	bot.Scan = model.ScanConfig{
		OscillatorThreshold: req.OscillatorThreshold,
		VolumeThreshold:     req.VolumeThreshold,
		TradeAmount:         req.TradeAmount,
		TakeProfitPercent:   req.TakeProfitPercent,
		StopLossPercent:     req.StopLossPercent,
		IntervalMinutes:     req.IntervalMinutes,
	}
	bot.NormalizeSymbols()
	if len(bot.Symbols) == 0 {
		return nil, util.ErrValidation("Bot needs at least one valid symbol")
	}

	if err := s.bots.Update(ctx, bot, ""); err != nil {
		return nil, err
	}
	return bot, nil
}

// Trades returns up to limit most recent trade attempts, newest first
func (s *BotService) Trades(ctx context.Context, userID string, botID int64, limit int) ([]*model.TradeAttempt, error) {
	if _, err := s.Get(ctx, userID, botID); err != nil {
		return nil, err
	}
	return s.trades.ListByBot(ctx, botID, limit)
}

// Logs returns the bot's in-memory activity log, newest first. Empty for
// bots that have not run since the process started.
func (s *BotService) Logs(ctx context.Context, userID string, botID int64) ([]model.LogEntry, error) {
	if _, err := s.Get(ctx, userID, botID); err != nil {
		return nil, err
	}
	return s.scheduler.BotLogs(botID), nil
}

// Scans returns the bot's recent scan results, newest first
func (s *BotService) Scans(ctx context.Context, userID string, botID int64) ([]model.ScanResult, error) {
	if _, err := s.Get(ctx, userID, botID); err != nil {
		return nil, err
	}
	return s.scheduler.ScanResults(botID), nil
}

// EquityCurve returns the bot's bounded equity history, oldest first
func (s *BotService) EquityCurve(ctx context.Context, userID string, botID int64) ([]model.EquityPoint, error) {
	bot, err := s.Get(ctx, userID, botID)
	if err != nil {
		return nil, err
	}
	return bot.EquityCurve, nil
}

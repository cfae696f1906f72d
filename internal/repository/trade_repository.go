package repository

import (
	"context"
	"encoding/json"

	"tradepilot/backend/internal/model"
	"tradepilot/backend/pkg/redis"
)

// maxStoredTrades caps each bot's persisted trade history. The list is
// newest-first; LTRIM drops the oldest entries past the cap.
const maxStoredTrades = 500

type TradeRepository struct {
	redis *redis.Client
}

func NewTradeRepository(redisClient *redis.Client) *TradeRepository {
	return &TradeRepository{
		redis: redisClient,
	}
}

// Record appends a trade attempt to the bot's history (newest first)
func (r *TradeRepository) Record(ctx context.Context, attempt *model.TradeAttempt) error {
	key := redis.BotTradesKey(attempt.BotID)
	if err := r.redis.LPushJSON(ctx, key, attempt); err != nil {
		return err
	}
	return r.redis.LTrim(ctx, key, 0, maxStoredTrades-1)
}

// ListByBot returns up to limit most recent trade attempts for a bot,
// newest first. limit <= 0 returns the full stored history.
func (r *TradeRepository) ListByBot(ctx context.Context, botID int64, limit int) ([]*model.TradeAttempt, error) {
	stop := int64(limit) - 1
	if limit <= 0 {
		stop = -1
	}

	raw, err := r.redis.LRange(ctx, redis.BotTradesKey(botID), 0, stop)
	if err != nil {
		return nil, err
	}

	attempts := make([]*model.TradeAttempt, 0, len(raw))
	for _, item := range raw {
		var attempt model.TradeAttempt
		if err := json.Unmarshal([]byte(item), &attempt); err != nil {
			continue
		}
		attempts = append(attempts, &attempt)
	}
	return attempts, nil
}

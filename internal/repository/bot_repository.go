// Package repository provides data access for the application and interacts with Redis.
package repository

import (
	"context"
	"sort"
	"strconv"
	"time"

	"tradepilot/backend/internal/model"
	"tradepilot/backend/internal/util"
	"tradepilot/backend/pkg/redis"

	redislib "github.com/redis/go-redis/v9"
)

type BotRepository struct {
	redis *redis.Client
}

func NewBotRepository(redisClient *redis.Client) *BotRepository {
	return &BotRepository{
		redis: redisClient,
	}
}

// Create creates a new bot configuration. Bots are always created stopped;
// nothing auto-starts a bot, and nothing resumes one after a restart.
func (r *BotRepository) Create(ctx context.Context, bot *model.Bot) error {
	if bot.ID == 0 {
		id, err := r.redis.Incr(ctx, redis.BotSequenceKey())
		if err != nil {
			return err
		}
		bot.ID = id
	}

	bot.CreatedAt = time.Now()
	bot.UpdatedAt = bot.CreatedAt
	bot.State = model.BotStateStopped
	bot.NormalizeSymbols()

	if err := r.redis.SetJSON(ctx, redis.BotKey(bot.ID), bot, 0); err != nil {
		return err
	}

	botIDStr := strconv.FormatInt(bot.ID, 10)
	if err := r.redis.SAdd(ctx, redis.UserBotsKey(bot.UserID), botIDStr); err != nil {
		return err
	}
	return r.redis.SAdd(ctx, redis.BotsByStatusKey(bot.State), botIDStr)
}

// GetByID retrieves a bot by ID
func (r *BotRepository) GetByID(ctx context.Context, botID int64) (*model.Bot, error) {
	var bot model.Bot
	err := r.redis.GetJSON(ctx, redis.BotKey(botID), &bot)
	if err != nil {
		if err == redislib.Nil {
			return nil, util.NewAppError(404, util.ErrCodeBotNotFound, "Bot not found")
		}
		return nil, err
	}
	return &bot, nil
}

// Update persists a bot configuration, maintaining the status index
func (r *BotRepository) Update(ctx context.Context, bot *model.Bot, oldState string) error {
	bot.UpdatedAt = time.Now()

	if err := r.redis.SetJSON(ctx, redis.BotKey(bot.ID), bot, 0); err != nil {
		return err
	}

	if oldState != "" && oldState != bot.State {
		botIDStr := strconv.FormatInt(bot.ID, 10)
		r.redis.SRem(ctx, redis.BotsByStatusKey(oldState), botIDStr)
		r.redis.SAdd(ctx, redis.BotsByStatusKey(bot.State), botIDStr)
	}

	return nil
}

// Delete removes a bot and its indexes
func (r *BotRepository) Delete(ctx context.Context, botID int64) error {
	bot, err := r.GetByID(ctx, botID)
	if err != nil {
		return err
	}

	botIDStr := strconv.FormatInt(botID, 10)
	r.redis.SRem(ctx, redis.UserBotsKey(bot.UserID), botIDStr)
	r.redis.SRem(ctx, redis.BotsByStatusKey(bot.State), botIDStr)
	r.redis.Del(ctx, redis.BotTradesKey(botID))

	return r.redis.Del(ctx, redis.BotKey(botID))
}

// ListByUser lists all bots for a user, ordered by ID
func (r *BotRepository) ListByUser(ctx context.Context, userID string) ([]*model.Bot, error) {
	ids, err := r.redis.SMembers(ctx, redis.UserBotsKey(userID))
	if err != nil {
		return nil, err
	}

	bots := make([]*model.Bot, 0, len(ids))
	for _, idStr := range ids {
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			continue
		}
		bot, err := r.GetByID(ctx, id)
		if err != nil {
			// Stale index entry; skip it
			continue
		}
		bots = append(bots, bot)
	}

	sort.Slice(bots, func(i, j int) bool { return bots[i].ID < bots[j].ID })
	return bots, nil
}

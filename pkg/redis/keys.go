package redis

import (
	"fmt"
	"strconv"
)

// Redis key patterns for the application
// Following the pattern: entity:id or entity:id:attribute

// Bot keys

func BotKey(botID int64) string {
	return fmt.Sprintf("bot:%s", strconv.FormatInt(botID, 10))
}

func UserBotsKey(userID string) string {
	return fmt.Sprintf("user_bots:%s", userID)
}

func BotsByStatusKey(status string) string {
	return fmt.Sprintf("bots_by_status:%s", status)
}

func BotSequenceKey() string {
	return "sequences:bot_id"
}

// Trade keys

func BotTradesKey(botID int64) string {
	return fmt.Sprintf("bot_trades:%s", strconv.FormatInt(botID, 10))
}

// Rate limit keys

func RateLimitKey(identifier, prefix string) string {
	return fmt.Sprintf("rate_limit:%s:%s", prefix, identifier)
}

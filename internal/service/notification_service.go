package service

import (
	"tradepilot/backend/internal/model"
)

// NotificationService translates orchestrator events into websocket pushes
type NotificationService struct {
	hub *WSHub
}

func NewNotificationService(hub *WSHub) *NotificationService {
	return &NotificationService{hub: hub}
}

func (n *NotificationService) NotifyBotUpdate(userID string, bot *model.Bot) {
	n.hub.SendToUser(userID, model.WSMessage{
		Type: model.WSTypeBotUpdate,
		Payload: model.WSBotUpdatePayload{
			BotID:         bot.ID,
			State:         bot.State,
			Mode:          bot.Mode,
			TotalTrades:   bot.TotalTrades,
			WinningTrades: bot.WinningTrades,
			WinRate:       bot.WinRate(),
			TotalPnL:      bot.TotalPnL,
		},
	})
}

func (n *NotificationService) NotifyLogEntry(userID string, botID int64, entry model.LogEntry) {
	n.hub.SendToUser(userID, model.WSMessage{
		Type: model.WSTypeLogEntry,
		Payload: model.WSLogPayload{
			BotID: botID,
			Entry: entry,
		},
	})
}

func (n *NotificationService) NotifyScanResults(userID string, botID int64, results []model.ScanResult) {
	n.hub.SendToUser(userID, model.WSMessage{
		Type: model.WSTypeScanResults,
		Payload: model.WSScanPayload{
			BotID:   botID,
			Results: results,
		},
	})
}

// NotifySession broadcasts broker session transitions to every client
func (n *NotificationService) NotifySession(status, reason string) {
	n.hub.Broadcast(model.WSMessage{
		Type: model.WSTypeSession,
		Payload: model.WSSessionPayload{
			Status: status,
			Reason: reason,
		},
	})
}

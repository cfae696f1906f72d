package model

// WebSocket message types
const (
	WSTypeBotUpdate   = "bot_update"
	WSTypeLogEntry    = "log_entry"
	WSTypeScanResults = "scan_results"
	WSTypeSession     = "session"
)

// WSMessage is the envelope for all websocket pushes
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// WSBotUpdatePayload pushes a bot's state and statistics to the dashboard
type WSBotUpdatePayload struct {
	BotID         int64   `json:"bot_id"`
	State         string  `json:"state"`
	Mode          string  `json:"mode"`
	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	WinRate       float64 `json:"win_rate"`
	TotalPnL      float64 `json:"total_pnl"`
}

// WSLogPayload pushes one orchestrator log entry
type WSLogPayload struct {
	BotID int64    `json:"bot_id"`
	Entry LogEntry `json:"entry"`
}

// WSScanPayload pushes the results of one scan sweep
type WSScanPayload struct {
	BotID   int64        `json:"bot_id"`
	Results []ScanResult `json:"results"`
}

// WSSessionPayload notifies the dashboard about broker session state
type WSSessionPayload struct {
	Status string `json:"status"` // active, lost
	Reason string `json:"reason,omitempty"`
}

// Package handler contains the HTTP handlers for the dashboard API.
package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"tradepilot/backend/internal/middleware"
	"tradepilot/backend/internal/model"
	"tradepilot/backend/internal/service"
	"tradepilot/backend/internal/util"
)

// BotHandler exposes bot CRUD, lifecycle and read endpoints
type BotHandler struct {
	bots      *service.BotService
	scheduler *service.BotScheduler
}

func NewBotHandler(bots *service.BotService, scheduler *service.BotScheduler) *BotHandler {
	return &BotHandler{
		bots:      bots,
		scheduler: scheduler,
	}
}

// botView decorates a bot with its derived win rate for API responses
type botView struct {
	*model.Bot
	WinRate float64 `json:"win_rate"`
}

func viewOf(bot *model.Bot) botView {
	return botView{Bot: bot, WinRate: bot.WinRate()}
}

func botIDParam(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, util.ErrBadRequest("Invalid bot ID")
	}
	return id, nil
}

// Create handles POST /api/bots
func (h *BotHandler) Create(c *gin.Context) {
	var req model.BotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.SendValidationError(c, err.Error())
		return
	}

	bot, err := h.bots.Create(c.Request.Context(), middleware.UserID(c), &req)
	if err != nil {
		util.SendError(c, err)
		return
	}
	util.SendCreated(c, viewOf(bot), "Bot created")
}

// List handles GET /api/bots
func (h *BotHandler) List(c *gin.Context) {
	bots, err := h.bots.List(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		util.SendError(c, err)
		return
	}

	views := make([]botView, len(bots))
	for i, bot := range bots {
		views[i] = viewOf(bot)
	}
	util.SendSuccess(c, views)
}

// Get handles GET /api/bots/:id
func (h *BotHandler) Get(c *gin.Context) {
	botID, err := botIDParam(c)
	if err != nil {
		util.SendError(c, err)
		return
	}

	bot, err := h.bots.Get(c.Request.Context(), middleware.UserID(c), botID)
	if err != nil {
		util.SendError(c, err)
		return
	}
	util.SendSuccess(c, viewOf(bot))
}

// Update handles PUT /api/bots/:id
func (h *BotHandler) Update(c *gin.Context) {
	botID, err := botIDParam(c)
	if err != nil {
		util.SendError(c, err)
		return
	}

	var req model.BotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.SendValidationError(c, err.Error())
		return
	}

	bot, err := h.bots.UpdateConfig(c.Request.Context(), middleware.UserID(c), botID, &req)
	if err != nil {
		util.SendError(c, err)
		return
	}
	util.SendSuccess(c, viewOf(bot))
}

// Delete handles DELETE /api/bots/:id
func (h *BotHandler) Delete(c *gin.Context) {
	botID, err := botIDParam(c)
	if err != nil {
		util.SendError(c, err)
		return
	}

	if err := h.scheduler.DeleteBot(c.Request.Context(), middleware.UserID(c), botID); err != nil {
		util.SendError(c, err)
		return
	}
	util.SendSuccess(c, gin.H{"deleted": true})
}

// Start handles POST /api/bots/:id/start
func (h *BotHandler) Start(c *gin.Context) {
	botID, err := botIDParam(c)
	if err != nil {
		util.SendError(c, err)
		return
	}

	bot, err := h.scheduler.StartBot(c.Request.Context(), middleware.UserID(c), botID)
	if err != nil {
		util.SendError(c, err)
		return
	}
	util.SendSuccess(c, viewOf(bot))
}

// Pause handles POST /api/bots/:id/pause
func (h *BotHandler) Pause(c *gin.Context) {
	botID, err := botIDParam(c)
	if err != nil {
		util.SendError(c, err)
		return
	}

	bot, err := h.scheduler.PauseBot(c.Request.Context(), middleware.UserID(c), botID)
	if err != nil {
		util.SendError(c, err)
		return
	}
	util.SendSuccess(c, viewOf(bot))
}

// UpdateInterval handles PATCH /api/bots/:id/interval
func (h *BotHandler) UpdateInterval(c *gin.Context) {
	botID, err := botIDParam(c)
	if err != nil {
		util.SendError(c, err)
		return
	}

	var req model.IntervalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.SendValidationError(c, err.Error())
		return
	}

	bot, err := h.scheduler.UpdateScanInterval(c.Request.Context(), middleware.UserID(c), botID, req.IntervalMinutes)
	if err != nil {
		util.SendError(c, err)
		return
	}
	util.SendSuccess(c, viewOf(bot))
}

// SetMode handles POST /api/bots/mode, switching all of the user's bots
// between paper and live
func (h *BotHandler) SetMode(c *gin.Context) {
	var req model.ModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.SendValidationError(c, err.Error())
		return
	}

	if err := h.scheduler.SetGlobalMode(c.Request.Context(), middleware.UserID(c), req.Mode); err != nil {
		util.SendError(c, err)
		return
	}
	util.SendSuccess(c, gin.H{"mode": req.Mode})
}

// Logs handles GET /api/bots/:id/logs
func (h *BotHandler) Logs(c *gin.Context) {
	botID, err := botIDParam(c)
	if err != nil {
		util.SendError(c, err)
		return
	}

	logs, err := h.bots.Logs(c.Request.Context(), middleware.UserID(c), botID)
	if err != nil {
		util.SendError(c, err)
		return
	}
	util.SendSuccess(c, logs)
}

// Scans handles GET /api/bots/:id/scans
func (h *BotHandler) Scans(c *gin.Context) {
	botID, err := botIDParam(c)
	if err != nil {
		util.SendError(c, err)
		return
	}

	scans, err := h.bots.Scans(c.Request.Context(), middleware.UserID(c), botID)
	if err != nil {
		util.SendError(c, err)
		return
	}
	util.SendSuccess(c, scans)
}

// Trades handles GET /api/bots/:id/trades?limit=n
func (h *BotHandler) Trades(c *gin.Context) {
	botID, err := botIDParam(c)
	if err != nil {
		util.SendError(c, err)
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			util.SendError(c, util.ErrBadRequest("Invalid limit"))
			return
		}
	}

	trades, err := h.bots.Trades(c.Request.Context(), middleware.UserID(c), botID, limit)
	if err != nil {
		util.SendError(c, err)
		return
	}
	util.SendSuccess(c, trades)
}

// Equity handles GET /api/bots/:id/equity
func (h *BotHandler) Equity(c *gin.Context) {
	botID, err := botIDParam(c)
	if err != nil {
		util.SendError(c, err)
		return
	}

	curve, err := h.bots.EquityCurve(c.Request.Context(), middleware.UserID(c), botID)
	if err != nil {
		util.SendError(c, err)
		return
	}
	util.SendSuccess(c, curve)
}

package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"tradepilot/backend/internal/model"
	"tradepilot/backend/internal/service"
	"tradepilot/backend/internal/util"
)

// MarketHandler proxies market data and signal reads for the dashboard
type MarketHandler struct {
	gateway service.MarketGateway
	signals service.SignalProvider
}

func NewMarketHandler(gateway service.MarketGateway, signals service.SignalProvider) *MarketHandler {
	return &MarketHandler{
		gateway: gateway,
		signals: signals,
	}
}

func symbolParam(c *gin.Context) (string, error) {
	symbol := strings.ToUpper(strings.TrimSpace(c.Param("symbol")))
	if symbol == "" {
		return "", util.ErrBadRequest("Symbol is required")
	}
	return symbol, nil
}

// Quote handles GET /api/market/quote/:symbol
func (h *MarketHandler) Quote(c *gin.Context) {
	symbol, err := symbolParam(c)
	if err != nil {
		util.SendError(c, err)
		return
	}

	quote, err := h.gateway.GetQuote(c.Request.Context(), symbol)
	if err != nil {
		util.SendError(c, err)
		return
	}
	util.SendSuccess(c, quote)
}

// History handles GET /api/market/history/:symbol
func (h *MarketHandler) History(c *gin.Context) {
	symbol, err := symbolParam(c)
	if err != nil {
		util.SendError(c, err)
		return
	}

	prices, err := h.gateway.GetHistory(c.Request.Context(), symbol)
	if err != nil {
		util.SendError(c, err)
		return
	}
	util.SendSuccess(c, gin.H{"symbol": symbol, "prices": prices})
}

// Account handles GET /api/market/account?mode=paper|live
func (h *MarketHandler) Account(c *gin.Context) {
	mode := c.DefaultQuery("mode", model.ModePaper)
	if mode != model.ModePaper && mode != model.ModeLive {
		util.SendError(c, util.ErrBadRequest("Mode must be paper or live"))
		return
	}

	account, err := h.gateway.GetAccount(c.Request.Context(), mode)
	if err != nil {
		util.SendError(c, err)
		return
	}
	util.SendSuccess(c, account)
}

// Signal handles GET /api/market/signal/:symbol
func (h *MarketHandler) Signal(c *gin.Context) {
	symbol, err := symbolParam(c)
	if err != nil {
		util.SendError(c, err)
		return
	}

	rec, err := h.signals.GetSignal(c.Request.Context(), symbol)
	if err != nil {
		util.SendError(c, err)
		return
	}
	util.SendSuccess(c, rec)
}

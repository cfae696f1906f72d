package handler

import (
	"github.com/gin-gonic/gin"

	"tradepilot/backend/internal/service"
	"tradepilot/backend/internal/util"
	"tradepilot/backend/pkg/jwt"
)

// WSHandler upgrades dashboard connections to websockets. Browsers cannot
// set an Authorization header on the upgrade, so the token rides in the
// query string.
type WSHandler struct {
	hub        *service.WSHub
	jwtManager *jwt.Manager
}

func NewWSHandler(hub *service.WSHub, jwtManager *jwt.Manager) *WSHandler {
	return &WSHandler{
		hub:        hub,
		jwtManager: jwtManager,
	}
}

// Connect handles GET /ws?token=...
func (h *WSHandler) Connect(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		util.SendError(c, util.ErrUnauthorized("Token is required"))
		return
	}

	claims, err := h.jwtManager.ValidateToken(token)
	if err != nil {
		util.SendError(c, util.ErrUnauthorized("Invalid token"))
		return
	}

	h.hub.ServeWS(c, claims.UserID)
}

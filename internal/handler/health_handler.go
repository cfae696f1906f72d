package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tradepilot/backend/pkg/redis"
)

// HealthHandler reports process and dependency health
type HealthHandler struct {
	redis *redis.Client
}

func NewHealthHandler(redisClient *redis.Client) *HealthHandler {
	return &HealthHandler{redis: redisClient}
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	status := http.StatusOK
	overall := "ok"
	redisStatus := "up"
	if err := h.redis.Ping(c.Request.Context()); err != nil {
		status = http.StatusServiceUnavailable
		overall = "degraded"
		redisStatus = "down"
	}

	c.JSON(status, gin.H{
		"status": overall,
		"redis":  redisStatus,
	})
}

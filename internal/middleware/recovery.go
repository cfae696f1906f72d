package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"tradepilot/backend/internal/util"
	"tradepilot/backend/pkg/logger"
)

// Recovery converts panics into a 500 response instead of tearing down the
// connection
func Recovery(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				requestID, _ := c.Get("request_id")
				log.WithFields(map[string]interface{}{
					"request_id": requestID,
					"panic":      r,
					"stack":      string(debug.Stack()),
				}).Error("Panic recovered", fmt.Errorf("%v", r))

				util.SendCustomError(c, http.StatusInternalServerError,
					util.ErrCodeInternal, "Internal server error")
				c.Abort()
			}
		}()

		c.Next()
	}
}

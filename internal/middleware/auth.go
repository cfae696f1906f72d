package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"tradepilot/backend/internal/util"
	"tradepilot/backend/pkg/jwt"
)

// Auth validates the Bearer token and stores the authenticated user on the
// context
func Auth(jwtManager *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			util.AbortWithError(c, util.ErrUnauthorized("Authorization header required"))
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			util.AbortWithError(c, util.ErrUnauthorized("Invalid authorization header format"))
			return
		}

		claims, err := jwtManager.ValidateToken(parts[1])
		if err != nil {
			if jwt.IsExpired(err) {
				util.AbortWithError(c, util.ErrUnauthorized("Token expired"))
				return
			}
			util.AbortWithError(c, util.ErrUnauthorized("Invalid token"))
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("username", claims.Username)
		c.Next()
	}
}

// UserID returns the authenticated user ID from the context. Empty when the
// request did not pass Auth.
func UserID(c *gin.Context) string {
	if v, exists := c.Get("user_id"); exists {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

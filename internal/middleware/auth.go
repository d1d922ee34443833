package middleware

import (
	"strings"

	"feedback-app/internal/handler"
	"feedback-app/internal/services"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware validates the Bearer token and puts the resolved user into
// the request context.
func AuthMiddleware(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authorization := c.GetHeader("Authorization")
		if authorization == "" {
			handler.Unauthorized(c, "no token provided")
			c.Abort()
			return
		}

		parts := strings.SplitN(authorization, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			handler.Unauthorized(c, "invalid authorization header")
			c.Abort()
			return
		}

		user, err := auth.ValidateToken(c.Request.Context(), parts[1])
		if err != nil {
			handler.Unauthorized(c, "invalid token")
			c.Abort()
			return
		}

		c.Set("user", user)
		c.Next()
	}
}

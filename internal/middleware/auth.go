package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"personashield/internal/service"
)

const (
	ContextKeyOperator = "operator"
	ContextKeyClaims   = "claims"
)

// AuthMiddleware returns Gin middleware that validates operator tokens and
// injects the operator name.
func AuthMiddleware(authService service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			abortUnauthorized(c, "missing or invalid authorization header")
			return
		}

		claims, err := authService.ValidateToken(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			abortUnauthorized(c, "invalid or expired token")
			return
		}

		c.Set(ContextKeyOperator, claims.Operator)
		c.Set(ContextKeyClaims, claims)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error":   gin.H{"code": "UNAUTHORIZED", "message": msg},
	})
}

// GetOperator extracts the authenticated operator name from the Gin context.
func GetOperator(c *gin.Context) string {
	return c.GetString(ContextKeyOperator)
}

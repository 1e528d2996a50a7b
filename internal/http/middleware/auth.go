package middleware

import (
	"net/http"
	"strings"

	"resume_rewards/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AccountIDKey is the gin context key set by JWT.
const AccountIDKey = "account_id"

// JWT requires "Authorization: Bearer <token>" and stores the account id.
func JWT() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token required"})
			return
		}

		accountID, err := service.ParseJWT(strings.TrimSpace(token))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(AccountIDKey, accountID)
		c.Next()
	}
}

// AccountID returns the id set by JWT.
func AccountID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(AccountIDKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

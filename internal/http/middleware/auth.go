package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/testimonialkit/testimonialkit/internal/security"
)

// Context keys set by RequireAuth.
const (
	ContextKeyUserID   = "userID"
	ContextKeyUsername = "username"
)

// TokenParser verifies bearer tokens.
type TokenParser interface {
	Parse(token string) (*security.UserClaims, error)
}

// RequireAuth validates the bearer token and stores the owner id in context.
func RequireAuth(tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Kimlik doğrulama gerekli"})
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Geçersiz yetkilendirme biçimi"})
			return
		}
		token = strings.TrimSpace(token)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Kimlik doğrulama gerekli"})
			return
		}

		claims, errParse := tokens.Parse(token)
		if errParse != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Geçersiz veya süresi dolmuş oturum"})
			return
		}

		c.Set(ContextKeyUserID, claims.UserID)
		c.Set(ContextKeyUsername, claims.Username)
		c.Next()
	}
}

// UserID returns the authenticated owner id, or 0.
func UserID(c *gin.Context) uint64 {
	if v, ok := c.Get(ContextKeyUserID); ok {
		if id, okID := v.(uint64); okID {
			return id
		}
	}
	return 0
}

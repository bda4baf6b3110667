package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// HeaderOperatorToken carries the operator secret for monitoring routes.
const HeaderOperatorToken = "X-Operator-Token"

// RequireOperator admits only requests presenting the configured operator
// token. An empty token rejects every request.
func RequireOperator(token string) gin.HandlerFunc {
	expected := []byte(strings.TrimSpace(token))
	return func(c *gin.Context) {
		presented := []byte(strings.TrimSpace(c.GetHeader(HeaderOperatorToken)))
		if len(expected) == 0 || subtle.ConstantTimeCompare(presented, expected) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Bu işlem için yetkiniz yok"})
			return
		}
		c.Next()
	}
}

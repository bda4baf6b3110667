package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Recovery turns handler panics into a 500 JSON response.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if recovered := recover(); recovered != nil {
				log.WithFields(log.Fields{
					"request_id": c.GetString(ContextKeyRequestID),
					"path":       c.Request.URL.Path,
					"panic":      recovered,
				}).Error("http: handler panicked")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Sunucu hatası"})
			}
		}()
		c.Next()
	}
}

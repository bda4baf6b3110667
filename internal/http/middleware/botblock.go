package middleware

import (
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

var (
	developmentBotPattern = regexp.MustCompile(`(?i)bot|crawler|spider|scraper`)
	productionBotPattern  = regexp.MustCompile(`(?i)bot|crawler|spider|scraper|curl|wget|python|java|perl|ruby|php|go-http-client|okhttp|axios|fetch`)
)

// BotBlocker rejects requests whose User-Agent matches a scripted-client
// pattern. Development only blocks obvious crawlers.
func BotBlocker(development bool) gin.HandlerFunc {
	pattern := productionBotPattern
	if development {
		pattern = developmentBotPattern
	}
	return func(c *gin.Context) {
		ua := c.Request.UserAgent()
		if ua != "" && pattern.MatchString(ua) {
			log.WithField("user_agent", ua).Debug("http: blocked suspicious client")
			c.String(http.StatusForbidden, "Forbidden")
			c.Abort()
			return
		}
		c.Next()
	}
}

package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/testimonialkit/testimonialkit/internal/ratelimit"
)

const (
	apiPathPrefix  = "/api/"
	authPathPrefix = "/api/auth"
)

// RateLimit counts every /api/ request by client address: /api/auth paths
// against the auth policy, the rest against the API policy.
func RateLimit(gate *ratelimit.Gate, limiters ratelimit.Limiters, nowFn func() time.Time) gin.HandlerFunc {
	if nowFn == nil {
		nowFn = time.Now
	}
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if !strings.HasPrefix(path, apiPathPrefix) || c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}
		limiter := limiters.API
		if strings.HasPrefix(path, authPathPrefix) {
			limiter = limiters.Auth
		}

		decision := gate.Check(c.Request.Context(), c.Request, limiter, "")
		if !decision.Success {
			AbortRateLimited(c, decision, nowFn())
			return
		}
		WriteRateLimitHeaders(c, decision)
		c.Next()
	}
}

// WriteRateLimitHeaders copies the decision's X-RateLimit-* headers onto the
// response. Fail-open decisions carry no limit and write nothing.
func WriteRateLimitHeaders(c *gin.Context, decision ratelimit.Decision) {
	if decision.Limit == 0 {
		return
	}
	for name, value := range decision.Headers() {
		c.Header(name, value)
	}
}

// AbortRateLimited answers 429 with the decision's headers, Retry-After and a
// JSON body of {error, retryAfter}.
func AbortRateLimited(c *gin.Context, decision ratelimit.Decision, now time.Time) {
	retryAfter := decision.RetryAfter(now)
	WriteRateLimitHeaders(c, decision)
	c.Header("Retry-After", strconv.Itoa(retryAfter))
	message := decision.Message
	if message == "" {
		message = ratelimit.ExceededMessage
	}
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"error":      message,
		"retryAfter": retryAfter,
	})
}

package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// SecurityOptions tunes SecurityHeaders.
type SecurityOptions struct {
	Development bool
	// PublicURL is added to script, img and connect sources.
	PublicURL string
	// EmbeddablePrefixes are paths allowed inside third-party frames.
	EmbeddablePrefixes []string
}

// SecurityHeaders sets framing, sniffing, referrer and permission headers and,
// outside development, a Content-Security-Policy.
func SecurityHeaders(opts SecurityOptions) gin.HandlerFunc {
	csp := ""
	if !opts.Development {
		csp = buildCSP(opts.PublicURL)
	}
	return func(c *gin.Context) {
		h := c.Writer.Header()
		embeddable := hasAnyPrefix(c.Request.URL.Path, opts.EmbeddablePrefixes)
		if !embeddable {
			h.Set("X-Frame-Options", "DENY")
		}
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
		if csp != "" {
			policy := csp
			if !embeddable {
				policy += "; frame-ancestors 'none'"
			}
			h.Set("Content-Security-Policy", policy)
		}
		c.Next()
	}
}

func buildCSP(publicURL string) string {
	extra := ""
	if publicURL = strings.TrimSpace(publicURL); publicURL != "" {
		extra = " " + publicURL
	}
	return strings.Join([]string{
		"default-src 'self'",
		"script-src 'self' 'unsafe-inline'" + extra,
		"style-src 'self' 'unsafe-inline' https://fonts.googleapis.com",
		"img-src 'self' data: https: blob:" + extra,
		"font-src 'self' https://fonts.gstatic.com",
		"connect-src 'self'" + extra,
		"media-src 'self' blob: https:",
		"object-src 'none'",
		"base-uri 'self'",
		"form-action 'self'",
		"upgrade-insecure-requests",
	}, "; ")
}

func hasAnyPrefix(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if prefix != "" && strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

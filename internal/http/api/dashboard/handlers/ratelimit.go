package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/testimonialkit/testimonialkit/internal/ratelimit"
)

// IdentityCacheHandler exposes the client identity cache for monitoring.
type IdentityCacheHandler struct {
	resolver *ratelimit.IdentityResolver
}

// NewIdentityCacheHandler constructs an IdentityCacheHandler.
func NewIdentityCacheHandler(resolver *ratelimit.IdentityResolver) *IdentityCacheHandler {
	return &IdentityCacheHandler{resolver: resolver}
}

// Stats returns the cache size and keys.
func (h *IdentityCacheHandler) Stats(c *gin.Context) {
	if h.resolver == nil {
		c.JSON(http.StatusOK, ratelimit.CacheStats{Keys: []string{}})
		return
	}
	c.JSON(http.StatusOK, h.resolver.Stats())
}

// Clear empties the cache.
func (h *IdentityCacheHandler) Clear(c *gin.Context) {
	if h.resolver != nil {
		h.resolver.Clear()
	}
	c.Status(http.StatusNoContent)
}

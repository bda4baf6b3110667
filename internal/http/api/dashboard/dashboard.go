package dashboard

import (
	"github.com/gin-gonic/gin"
	"github.com/testimonialkit/testimonialkit/internal/http/api/dashboard/handlers"
	"github.com/testimonialkit/testimonialkit/internal/http/middleware"
	"github.com/testimonialkit/testimonialkit/internal/ratelimit"
	"github.com/testimonialkit/testimonialkit/internal/security"
	"gorm.io/gorm"
)

// RegisterDashboardRoutes registers the owner-only moderation routes. The
// identity cache routes additionally require the operator token.
func RegisterDashboardRoutes(r *gin.Engine, db *gorm.DB, tokens *security.TokenIssuer, resolver *ratelimit.IdentityResolver, operatorToken string) {
	if r == nil || db == nil {
		return
	}

	authed := r.Group("/api/dashboard")
	authed.Use(middleware.RequireAuth(tokens))

	testimonialHandler := handlers.NewTestimonialHandler(db)
	authed.GET("/testimonials", testimonialHandler.List)
	authed.GET("/stats", testimonialHandler.Stats)
	authed.POST("/testimonials/:id/approve", testimonialHandler.Approve)
	authed.POST("/testimonials/:id/reject", testimonialHandler.Reject)

	cacheHandler := handlers.NewIdentityCacheHandler(resolver)
	operator := authed.Group("/rate-limit", middleware.RequireOperator(operatorToken))
	operator.GET("/identity-cache", cacheHandler.Stats)
	operator.DELETE("/identity-cache", cacheHandler.Clear)
}

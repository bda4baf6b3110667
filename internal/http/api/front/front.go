package front

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/testimonialkit/testimonialkit/internal/http/api/front/handlers"
	"github.com/testimonialkit/testimonialkit/internal/http/middleware"
	"github.com/testimonialkit/testimonialkit/internal/ratelimit"
	"github.com/testimonialkit/testimonialkit/internal/security"
	"gorm.io/gorm"
)

// Dependencies are the shared services the public routes need.
type Dependencies struct {
	DB        *gorm.DB
	Tokens    *security.TokenIssuer
	Gate      *ratelimit.Gate
	Limiters  ratelimit.Limiters
	PublicURL string
	Now       func() time.Time
}

// RegisterFrontRoutes registers auth, profile, testimonial and widget routes.
func RegisterFrontRoutes(r *gin.Engine, deps Dependencies) {
	if r == nil || deps.DB == nil {
		return
	}

	authHandler := handlers.NewAuthHandler(deps.DB, deps.Tokens)
	authGroup := r.Group("/api/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)

	profileHandler := handlers.NewProfileHandler(deps.DB, deps.Gate, deps.Limiters.API, deps.Now)
	profiles := r.Group("/api/user-profile")
	profiles.PUT("/update", middleware.RequireAuth(deps.Tokens), profileHandler.Update)
	profiles.GET("/:username", profileHandler.Get)

	testimonialHandler := handlers.NewTestimonialHandler(deps.DB, deps.Gate, deps.Limiters.Testimonial, deps.Now)
	r.GET("/api/testimonials/:username", testimonialHandler.List)
	r.POST("/api/testimonials/:username", testimonialHandler.Create)

	widgetHandler := handlers.NewWidgetHandler(deps.DB, deps.PublicURL)
	r.GET("/api/widget/:username", widgetHandler.Get)
	r.OPTIONS("/api/widget/:username", widgetHandler.Options)
}

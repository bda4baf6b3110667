// Package api assembles the HTTP engine: global middleware, health check,
// public routes and the owner dashboard.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/testimonialkit/testimonialkit/internal/http/api/dashboard"
	"github.com/testimonialkit/testimonialkit/internal/http/api/front"
	"github.com/testimonialkit/testimonialkit/internal/http/middleware"
	"github.com/testimonialkit/testimonialkit/internal/ratelimit"
	"github.com/testimonialkit/testimonialkit/internal/security"
	"gorm.io/gorm"
)

const slowRequestThreshold = 100 * time.Millisecond

// CounterBackend reports the active rate limit store.
type CounterBackend interface {
	Name() string
	Ping(ctx context.Context) error
}

// Options wires the router.
type Options struct {
	DB          *gorm.DB
	Tokens      *security.TokenIssuer
	Gate        *ratelimit.Gate
	Limiters    ratelimit.Limiters
	Backend     CounterBackend
	Development bool
	PublicURL   string

	// OperatorToken unlocks the identity cache routes; empty keeps them closed.
	OperatorToken string
	Now           func() time.Time
}

// NewRouter builds the gin engine with the global middleware chain.
func NewRouter(opts Options) *gin.Engine {
	if opts.Now == nil {
		opts.Now = time.Now
	}

	engine := gin.New()
	engine.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.AccessLogger(),
		middleware.SlowRequest(slowRequestThreshold),
		middleware.BotBlocker(opts.Development),
		middleware.SecurityHeaders(middleware.SecurityOptions{
			Development:        opts.Development,
			PublicURL:          opts.PublicURL,
			EmbeddablePrefixes: []string{"/api/widget/"},
		}),
		middleware.RateLimit(opts.Gate, opts.Limiters, opts.Now),
	)

	healthHandler := newHealthHandler(opts.DB, opts.Backend)
	engine.GET("/healthz", healthHandler.Healthz)

	front.RegisterFrontRoutes(engine, front.Dependencies{
		DB:        opts.DB,
		Tokens:    opts.Tokens,
		Gate:      opts.Gate,
		Limiters:  opts.Limiters,
		PublicURL: opts.PublicURL,
		Now:       opts.Now,
	})
	dashboard.RegisterDashboardRoutes(engine, opts.DB, opts.Tokens, opts.Gate.Resolver(), opts.OperatorToken)

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Bulunamadı"})
	})
	return engine
}

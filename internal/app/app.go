package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/testimonialkit/testimonialkit/internal/config"
	"github.com/testimonialkit/testimonialkit/internal/db"
	"github.com/testimonialkit/testimonialkit/internal/http/api"
	"github.com/testimonialkit/testimonialkit/internal/logging"
	"github.com/testimonialkit/testimonialkit/internal/ratelimit"
	"github.com/testimonialkit/testimonialkit/internal/security"
	"gorm.io/gorm"
)

const (
	shutdownTimeout = 5 * time.Second
	janitorInterval = time.Minute
	readTimeout     = 15 * time.Second
	writeTimeout    = 30 * time.Second
)

// Server bundles the HTTP handler with the resources it owns.
type Server struct {
	cfg     config.Config
	conn    *gorm.DB
	backend ratelimit.Backend
	engine  *gin.Engine
}

// Migrate opens the database and runs migrations.
func Migrate(ctx context.Context, cfg config.Config) error {
	conn, err := db.Open(cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer func() {
		if errClose := db.Close(conn); errClose != nil {
			log.WithError(errClose).Warn("close database")
		}
	}()
	return db.Migrate(conn.WithContext(ctx))
}

// NewServer opens the database, selects the rate limit store and builds the router.
func NewServer(ctx context.Context, cfg config.Config) (*Server, error) {
	conn, err := db.Open(cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		_ = db.Close(conn)
		return nil, errMigrate
	}
	log.WithField("database", describeDSN(cfg.DatabaseDSN)).Info("database ready")

	tokens, errTokens := newTokenIssuer(cfg)
	if errTokens != nil {
		_ = db.Close(conn)
		return nil, errTokens
	}

	backend := ratelimit.SelectBackend(ctx, ratelimit.RedisSettings{
		URL:      cfg.RateLimit.RedisURL,
		Addr:     cfg.RateLimit.RedisAddr,
		Password: cfg.RateLimit.RedisPassword,
		DB:       cfg.RateLimit.RedisDB,
	}, nil, nil)
	gate := ratelimit.NewGate(ratelimit.NewIdentityResolver(ratelimit.IdentityOptions{}), nil)

	engine := api.NewRouter(api.Options{
		DB:            conn,
		Tokens:        tokens,
		Gate:          gate,
		Limiters:      ratelimit.NewLimiters(backend.Counter, cfg.RateLimit.RedisPrefix),
		Backend:       backend,
		Development:   cfg.IsDevelopment(),
		PublicURL:     cfg.PublicURL,
		OperatorToken: cfg.RateLimit.OperatorToken,
	})

	return &Server{cfg: cfg, conn: conn, backend: backend, engine: engine}, nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.engine }

// Backend returns the selected rate limit store.
func (s *Server) Backend() ratelimit.Backend { return s.backend }

// Close releases the rate limit store and the database.
func (s *Server) Close() error {
	errBackend := s.backend.Close()
	errDB := db.Close(s.conn)
	return errors.Join(errBackend, errDB)
}

// Serve listens on the configured address until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	if s.backend.Memory != nil {
		s.backend.Memory.StartJanitor(ctx, janitorInterval)
	}

	srv := &http.Server{
		Addr:         s.cfg.Addr(),
		Handler:      s.engine,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if errShutdown := srv.Shutdown(shutdownCtx); errShutdown != nil {
			log.Errorf("server shutdown error: %v", errShutdown)
		}
	}()

	log.Infof("listening on %s (environment=%s, rate limit store=%s)", srv.Addr, s.cfg.Environment, s.backend.Name())
	if errListen := srv.ListenAndServe(); errListen != nil && !errors.Is(errListen, http.ErrServerClosed) {
		return errListen
	}
	return nil
}

// RunServer configures logging, then builds and serves the application until
// ctx is cancelled.
func RunServer(ctx context.Context, cfg config.Config) error {
	logCloser, errLogging := logging.Setup(cfg)
	if errLogging != nil {
		return fmt.Errorf("setup logging: %w", errLogging)
	}
	defer func() {
		_ = logCloser.Close()
	}()

	gin.SetMode(ginMode(cfg))

	server, err := NewServer(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if errClose := server.Close(); errClose != nil {
			log.WithError(errClose).Warn("close server resources")
		}
	}()

	log.Infof("starting server with config=%s", cfg.ConfigPath)
	return server.Serve(ctx)
}

func ginMode(cfg config.Config) string {
	switch cfg.Environment {
	case config.EnvironmentProduction:
		return gin.ReleaseMode
	case config.EnvironmentTest:
		return gin.TestMode
	default:
		return gin.DebugMode
	}
}

// newTokenIssuer falls back to an ephemeral secret outside production;
// issued tokens then stop verifying after a restart.
func newTokenIssuer(cfg config.Config) (*security.TokenIssuer, error) {
	secret := strings.TrimSpace(cfg.JWT.Secret)
	if secret == "" {
		if cfg.IsProduction() {
			return nil, config.ErrMissingJWTSecret
		}
		generated, errGenerate := security.GenerateRandomString(32)
		if errGenerate != nil {
			return nil, fmt.Errorf("generate jwt secret: %w", errGenerate)
		}
		log.Warn("jwt secret not configured, using an ephemeral secret")
		secret = generated
	}
	return security.NewTokenIssuer(secret, cfg.JWT.Expiry, nil)
}

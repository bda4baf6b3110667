package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// healthHandler reports database and rate limit store status.
type healthHandler struct {
	db      *gorm.DB
	backend CounterBackend
}

func newHealthHandler(db *gorm.DB, backend CounterBackend) *healthHandler {
	return &healthHandler{db: db, backend: backend}
}

// Healthz returns 200 when the database answers a ping. A failing rate limit
// store is reported but does not fail the check, since requests fail open.
func (h *healthHandler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	body := gin.H{"status": "ok"}

	if h.db == nil {
		status = http.StatusServiceUnavailable
		body["database"] = "missing"
	} else if sqlDB, errDB := h.db.DB(); errDB != nil {
		status = http.StatusServiceUnavailable
		body["database"] = "error"
	} else if errPing := sqlDB.PingContext(ctx); errPing != nil {
		status = http.StatusServiceUnavailable
		body["database"] = "unreachable"
	} else {
		body["database"] = "ok"
	}

	if h.backend != nil {
		body["rate_limit_backend"] = h.backend.Name()
		if errPing := h.backend.Ping(ctx); errPing != nil {
			body["rate_limit_store"] = "unreachable"
		} else {
			body["rate_limit_store"] = "ok"
		}
	}

	if status != http.StatusOK {
		body["status"] = "degraded"
	}
	c.JSON(status, body)
}

package ratelimit

import (
	"context"
	"time"
)

// Result describes the state of a counter after one increment.
type Result struct {
	Count     int64
	Remaining int
	ResetAt   time.Time
	Allowed   bool
}

// Counter tracks request counts per key within a window.
type Counter interface {
	// IncrementAndCheck records one request for key and reports the window state.
	IncrementAndCheck(ctx context.Context, key string, limit int, window time.Duration) (Result, error)
}

// newResult fills Remaining and Allowed from a post-increment count.
func newResult(count int64, limit int, resetAt time.Time) Result {
	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Count:     count,
		Remaining: remaining,
		ResetAt:   resetAt,
		Allowed:   count <= int64(limit),
	}
}

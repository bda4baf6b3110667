package ratelimit

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

type memoryEntry struct {
	count   int64
	resetAt time.Time
}

// MemoryCounter implements a fixed-window in-process counter.
// Each process keeps its own view, so with N instances the effective
// global limit is limit*N.
type MemoryCounter struct {
	mu       sync.Mutex
	nowFn    func() time.Time
	counters map[string]*memoryEntry
}

// NewMemoryCounter constructs a MemoryCounter; nowFn defaults to time.Now.
func NewMemoryCounter(nowFn func() time.Time) *MemoryCounter {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &MemoryCounter{
		nowFn:    nowFn,
		counters: make(map[string]*memoryEntry),
	}
}

// IncrementAndCheck starts a fresh window when the entry is missing or expired,
// otherwise increments it in place.
func (c *MemoryCounter) IncrementAndCheck(_ context.Context, key string, limit int, window time.Duration) (Result, error) {
	now := c.nowFn()

	c.mu.Lock()
	entry := c.counters[key]
	if entry == nil || entry.resetAt.Before(now) {
		entry = &memoryEntry{count: 1, resetAt: now.Add(window)}
		c.counters[key] = entry
	} else {
		entry.count++
	}
	count, resetAt := entry.count, entry.resetAt
	c.mu.Unlock()

	return newResult(count, limit, resetAt), nil
}

// Sweep drops entries whose window ended before now and returns how many were removed.
func (c *MemoryCounter) Sweep(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for key, entry := range c.counters {
		if entry.resetAt.Before(now) {
			delete(c.counters, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys, expired ones included.
func (c *MemoryCounter) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.counters)
}

// StartJanitor sweeps expired entries every interval until ctx is done.
func (c *MemoryCounter) StartJanitor(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := c.Sweep(c.nowFn()); removed > 0 {
					log.Debugf("rate limit: swept %d expired memory counters", removed)
				}
			}
		}
	}()
}

package ratelimit

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	// ExceededMessage is the user-facing notice attached to denied decisions.
	ExceededMessage = "Çok fazla istek gönderildi. Lütfen daha sonra tekrar deneyin."

	storeBreakerDuration = 30 * time.Second
	storeCallTimeout     = 2 * time.Second
)

// Rate limit response headers.
const (
	HeaderLimit     = "X-RateLimit-Limit"
	HeaderRemaining = "X-RateLimit-Remaining"
	HeaderReset     = "X-RateLimit-Reset"
)

// Decision is the outcome handed to HTTP callers. Reset is a unix timestamp in
// milliseconds; a zero Limit marks a fail-open decision.
type Decision struct {
	Success   bool   `json:"success"`
	Limit     int    `json:"limit"`
	Remaining int    `json:"remaining"`
	Reset     int64  `json:"reset"`
	Message   string `json:"message,omitempty"`
}

// Headers returns the X-RateLimit-* headers for d.
func (d Decision) Headers() map[string]string {
	return map[string]string{
		HeaderLimit:     strconv.Itoa(d.Limit),
		HeaderRemaining: strconv.Itoa(d.Remaining),
		HeaderReset:     strconv.FormatInt(d.Reset, 10),
	}
}

// RetryAfter returns the whole seconds until Reset, rounded up and never negative.
func (d Decision) RetryAfter(now time.Time) int {
	if d.Reset <= 0 {
		return 0
	}
	ms := d.Reset - now.UnixMilli()
	if ms <= 0 {
		return 0
	}
	return int(math.Ceil(float64(ms) / 1000))
}

// Gate turns limiter results into decisions and never lets a store failure
// reach the caller.
type Gate struct {
	resolver *IdentityResolver
	nowFn    func() time.Time

	mu           sync.Mutex
	breakerUntil time.Time
}

// NewGate constructs a Gate. A nil resolver gets a default one.
func NewGate(resolver *IdentityResolver, nowFn func() time.Time) *Gate {
	if resolver == nil {
		resolver = NewIdentityResolver(IdentityOptions{})
	}
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Gate{resolver: resolver, nowFn: nowFn}
}

// Resolver exposes the identity resolver for monitoring endpoints.
func (g *Gate) Resolver() *IdentityResolver {
	if g == nil {
		return nil
	}
	return g.resolver
}

// Check counts req against limiter. A non-empty identifier replaces the
// resolved client address.
func (g *Gate) Check(ctx context.Context, req *http.Request, limiter *Limiter, identifier string) (decision Decision) {
	defer func() {
		if recovered := recover(); recovered != nil {
			log.WithField("panic", recovered).Error("rate limit: check panicked, allowing request")
			decision = failOpen()
		}
	}()

	if ctx == nil {
		ctx = context.Background()
	}
	id := identifier
	if id == "" {
		id = g.resolver.Resolve(req)
	}

	now := g.nowFn()
	if g.isBreakerActive(now) {
		return failOpen()
	}

	// A client hanging up must not abort the count or look like a store outage.
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeCallTimeout)
	defer cancel()
	result, errLimit := limiter.Limit(storeCtx, id)
	if errLimit != nil {
		if ctx.Err() != nil {
			log.WithError(errLimit).WithField("identifier", id).Debug("rate limit: request cancelled during check, allowing request")
			return failOpen()
		}
		log.WithError(errLimit).WithField("identifier", id).Error("rate limit: store failure, allowing request")
		g.tripBreaker(errLimit, now)
		return failOpen()
	}

	decision = Decision{
		Success:   result.Allowed,
		Limit:     limiter.Policy().Limit,
		Remaining: result.Remaining,
		Reset:     result.ResetAt.UnixMilli(),
	}
	if !decision.Success {
		decision.Message = ExceededMessage
	}
	return decision
}

func failOpen() Decision {
	return Decision{Success: true}
}

func (g *Gate) isBreakerActive(now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.breakerUntil.IsZero() {
		return false
	}
	if now.Before(g.breakerUntil) {
		return true
	}
	g.breakerUntil = time.Time{}
	return false
}

func (g *Gate) tripBreaker(err error, now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.breakerUntil.IsZero() && now.Before(g.breakerUntil) {
		return
	}
	g.breakerUntil = now.Add(storeBreakerDuration)
	log.WithError(err).Warnf("rate limit: store unavailable, allowing requests for %s", storeBreakerDuration)
}

package ratelimit

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Policy names a limit and window; Prefix keeps keys of different policies
// apart when they share one store.
type Policy struct {
	Prefix string
	Limit  int
	Window time.Duration
}

// Built-in policies per route class.
var (
	APIPolicy         = Policy{Prefix: "api_limiter", Limit: 10, Window: time.Minute}
	AuthPolicy        = Policy{Prefix: "auth_limiter", Limit: 5, Window: 5 * time.Minute}
	TestimonialPolicy = Policy{Prefix: "testimonial_limiter", Limit: 3, Window: time.Hour}
)

// Limiter binds a Policy to a Counter.
type Limiter struct {
	policy    Policy
	counter   Counter
	keyPrefix string
}

// NewLimiter constructs a Limiter. keyPrefix is an optional namespace placed
// before the policy prefix (for example when several apps share one Redis).
func NewLimiter(policy Policy, counter Counter, keyPrefix string) *Limiter {
	return &Limiter{
		policy:    policy,
		counter:   counter,
		keyPrefix: strings.Trim(strings.TrimSpace(keyPrefix), ":"),
	}
}

// Policy returns the configured policy.
func (l *Limiter) Policy() Policy { return l.policy }

// Key builds the storage key for identifier.
func (l *Limiter) Key(identifier string) string {
	key := l.policy.Prefix + ":" + identifier
	if l.keyPrefix == "" {
		return key
	}
	return l.keyPrefix + ":" + key
}

// Limit counts one request for identifier under this policy.
func (l *Limiter) Limit(ctx context.Context, identifier string) (Result, error) {
	if l == nil || l.counter == nil {
		return Result{}, errors.New("rate limit: limiter not configured")
	}
	return l.counter.IncrementAndCheck(ctx, l.Key(identifier), l.policy.Limit, l.policy.Window)
}

// Limiters groups the limiters used by the HTTP layer.
type Limiters struct {
	API         *Limiter
	Auth        *Limiter
	Testimonial *Limiter
}

// NewLimiters builds the three built-in limiters over one counter.
func NewLimiters(counter Counter, keyPrefix string) Limiters {
	return Limiters{
		API:         NewLimiter(APIPolicy, counter, keyPrefix),
		Auth:        NewLimiter(AuthPolicy, counter, keyPrefix),
		Testimonial: NewLimiter(TestimonialPolicy, counter, keyPrefix),
	}
}

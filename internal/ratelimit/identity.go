package ratelimit

import (
	"net/http"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	// UnknownClient is returned when no client address header is present.
	UnknownClient = "unknown"

	defaultIdentityTTL        = 5 * time.Minute
	defaultIdentityMaxEntries = 10000

	headerForwardedFor = "X-Forwarded-For"
	headerRealIP       = "X-Real-IP"
	headerCFConnecting = "CF-Connecting-IP"
)

// IdentityOptions tunes the resolver cache. Now defaults to time.Now.
type IdentityOptions struct {
	TTL        time.Duration
	MaxEntries int
	Now        func() time.Time
}

// CacheStats reports the resolver cache contents.
type CacheStats struct {
	Size int      `json:"size"`
	Keys []string `json:"keys"`
}

type identityEntry struct {
	ip        string
	expiresAt time.Time
}

// IdentityResolver derives the client identifier used for bucketing and
// memoizes it per request fingerprint. Expired entries are dropped on lookup
// and when stats are read; the LRU cap bounds memory in between.
type IdentityResolver struct {
	cache *lru.Cache[string, identityEntry]
	ttl   time.Duration
	nowFn func() time.Time
}

// NewIdentityResolver constructs a resolver; zero options select a 5 minute
// TTL and a 10000 entry cap.
func NewIdentityResolver(opts IdentityOptions) *IdentityResolver {
	if opts.TTL <= 0 {
		opts.TTL = defaultIdentityTTL
	}
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = defaultIdentityMaxEntries
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	// lru.New only fails for a non-positive size.
	cache, _ := lru.New[string, identityEntry](opts.MaxEntries)
	return &IdentityResolver{cache: cache, ttl: opts.TTL, nowFn: opts.Now}
}

// Resolve returns the client address for r, or UnknownClient.
func (r *IdentityResolver) Resolve(req *http.Request) string {
	if req == nil {
		return UnknownClient
	}
	key := cacheKey(req)
	now := r.nowFn()
	if entry, ok := r.cache.Get(key); ok && now.Before(entry.expiresAt) {
		return entry.ip
	}
	ip := clientIP(req.Header)
	r.cache.Add(key, identityEntry{ip: ip, expiresAt: now.Add(r.ttl)})
	return ip
}

// Clear drops every cached entry.
func (r *IdentityResolver) Clear() {
	r.cache.Purge()
}

// Stats returns the current cache size and keys.
func (r *IdentityResolver) Stats() CacheStats {
	now := r.nowFn()
	keys := make([]string, 0, r.cache.Len())
	for _, key := range r.cache.Keys() {
		entry, ok := r.cache.Peek(key)
		if !ok {
			continue
		}
		if !now.Before(entry.expiresAt) {
			r.cache.Remove(key)
			continue
		}
		keys = append(keys, key)
	}
	return CacheStats{Size: len(keys), Keys: keys}
}

// cacheKey fingerprints every input that influences the resolved address.
// Header values cannot contain newlines, so the separator is unambiguous.
func cacheKey(req *http.Request) string {
	url := req.Host
	if req.URL != nil {
		url += req.URL.RequestURI()
	}
	return strings.Join([]string{
		url,
		req.Header.Get("User-Agent"),
		req.Header.Get(headerForwardedFor),
		req.Header.Get(headerRealIP),
		req.Header.Get(headerCFConnecting),
	}, "\n")
}

func clientIP(h http.Header) string {
	if forwarded := h.Get(headerForwardedFor); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	if realIP := h.Get(headerRealIP); realIP != "" {
		return realIP
	}
	if cfIP := h.Get(headerCFConnecting); cfIP != "" {
		return cfIP
	}
	return UnknownClient
}

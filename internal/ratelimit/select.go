package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Backend names reported by Backend.Name.
const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

const redisPingTimeout = 2 * time.Second

// RedisSettings locates the durable counter store. URL wins over Addr.
type RedisSettings struct {
	URL      string
	Addr     string
	Password string
	DB       int
}

// Configured reports whether any Redis location is set.
func (s RedisSettings) Configured() bool {
	return strings.TrimSpace(s.URL) != "" || strings.TrimSpace(s.Addr) != ""
}

// RedisClientFactory constructs a Redis client for the given options.
type RedisClientFactory func(options *redis.Options) *redis.Client

// Backend is the counter chosen at startup.
type Backend struct {
	Counter Counter
	// Memory is set when the in-process counter was selected.
	Memory *MemoryCounter
	client *redis.Client
}

// Name returns BackendRedis or BackendMemory.
func (b Backend) Name() string {
	if b.client != nil {
		return BackendRedis
	}
	return BackendMemory
}

// Ping checks the durable store; the memory backend is always healthy.
func (b Backend) Ping(ctx context.Context) error {
	if b.client == nil {
		return nil
	}
	return b.client.Ping(ctx).Err()
}

// Close releases the Redis client, if any.
func (b Backend) Close() error {
	if b.client == nil {
		return nil
	}
	return b.client.Close()
}

// SelectBackend returns a Redis-backed counter when Redis is configured and
// reachable, otherwise the in-process counter. Neither case is fatal.
func SelectBackend(ctx context.Context, cfg RedisSettings, newClient RedisClientFactory, nowFn func() time.Time) Backend {
	if nowFn == nil {
		nowFn = time.Now
	}
	if !cfg.Configured() {
		log.Warn("rate limit: redis not configured, using in-memory counters (limits are per instance)")
		return memoryBackend(nowFn)
	}
	if newClient == nil {
		newClient = redis.NewClient
	}
	if ctx == nil {
		ctx = context.Background()
	}

	client, errConnect := connectRedis(ctx, cfg, newClient)
	if errConnect != nil {
		log.WithError(errConnect).Warn("rate limit: redis unavailable, falling back to in-memory counters")
		return memoryBackend(nowFn)
	}
	log.Info("rate limit: using redis counters")
	return Backend{Counter: NewRedisCounter(client, nowFn), client: client}
}

func memoryBackend(nowFn func() time.Time) Backend {
	memory := NewMemoryCounter(nowFn)
	return Backend{Counter: memory, Memory: memory}
}

func connectRedis(ctx context.Context, cfg RedisSettings, newClient RedisClientFactory) (*redis.Client, error) {
	options, errOptions := redisOptions(cfg)
	if errOptions != nil {
		return nil, errOptions
	}
	client := newClient(options)
	if client == nil {
		return nil, errors.New("rate limit redis: factory returned nil client")
	}
	ctxPing, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if errPing := client.Ping(ctxPing).Err(); errPing != nil {
		_ = client.Close()
		return nil, fmt.Errorf("rate limit redis: ping: %w", errPing)
	}
	return client, nil
}

func redisOptions(cfg RedisSettings) (*redis.Options, error) {
	if rawURL := strings.TrimSpace(cfg.URL); rawURL != "" {
		options, errParse := redis.ParseURL(rawURL)
		if errParse != nil {
			return nil, fmt.Errorf("rate limit redis: parse url: %w", errParse)
		}
		return options, nil
	}
	db := cfg.DB
	if db < 0 {
		db = 0
	}
	return &redis.Options{
		Addr:     strings.TrimSpace(cfg.Addr),
		Password: strings.TrimSpace(cfg.Password),
		DB:       db,
	}, nil
}

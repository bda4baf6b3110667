package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisCounterBlocksAfterLimit(t *testing.T) {
	_, client := newTestRedis(t)
	clock := newFakeClock()
	counter := NewRedisCounter(client, clock.Now)
	ctx := context.Background()

	for i, wantRemaining := range []int{2, 1, 0} {
		res, err := counter.IncrementAndCheck(ctx, "api_limiter:1.2.3.4", 3, time.Minute)
		if err != nil {
			t.Fatalf("call %d: unexpected error: %v", i+1, err)
		}
		if !res.Allowed || res.Remaining != wantRemaining {
			t.Fatalf("call %d: expected allowed with remaining %d, got allowed=%v remaining=%d", i+1, wantRemaining, res.Allowed, res.Remaining)
		}
	}

	res, err := counter.IncrementAndCheck(ctx, "api_limiter:1.2.3.4", 3, time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Allowed || res.Remaining != 0 {
		t.Fatalf("expected denial with remaining 0, got allowed=%v remaining=%d", res.Allowed, res.Remaining)
	}
}

func TestRedisCounterSetsExpiryOnFirstHit(t *testing.T) {
	mr, client := newTestRedis(t)
	clock := newFakeClock()
	counter := NewRedisCounter(client, clock.Now)

	res, err := counter.IncrementAndCheck(context.Background(), "k", 3, time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ttl := mr.TTL("k"); ttl != time.Minute {
		t.Fatalf("expected ttl 1m, got %v", ttl)
	}
	if want := clock.Now().Add(time.Minute); !res.ResetAt.Equal(want) {
		t.Fatalf("expected reset %v, got %v", want, res.ResetAt)
	}
}

func TestRedisCounterStartsFreshWindow(t *testing.T) {
	mr, client := newTestRedis(t)
	counter := NewRedisCounter(client, nil)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		if _, err := counter.IncrementAndCheck(ctx, "k", 3, time.Minute); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	mr.FastForward(61 * time.Second)
	res, err := counter.IncrementAndCheck(ctx, "k", 3, time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Allowed || res.Remaining != 2 {
		t.Fatalf("expected fresh window with remaining 2, got allowed=%v remaining=%d", res.Allowed, res.Remaining)
	}
}

func TestRedisCounterRestoresMissingExpiry(t *testing.T) {
	mr, client := newTestRedis(t)
	counter := NewRedisCounter(client, nil)

	if err := mr.Set("k", "5"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	res, err := counter.IncrementAndCheck(context.Background(), "k", 10, time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Count != 6 {
		t.Fatalf("expected count 6, got %d", res.Count)
	}
	if ttl := mr.TTL("k"); ttl != time.Minute {
		t.Fatalf("expected ttl restored to 1m, got %v", ttl)
	}
}

func TestRedisCounterReportsStoreErrors(t *testing.T) {
	mr, client := newTestRedis(t)
	counter := NewRedisCounter(client, nil)
	mr.Close()

	if _, err := counter.IncrementAndCheck(context.Background(), "k", 3, time.Minute); err == nil {
		t.Fatalf("expected error from closed store")
	}
}

func TestRedisCounterNilClient(t *testing.T) {
	counter := NewRedisCounter(nil, nil)
	if _, err := counter.IncrementAndCheck(context.Background(), "k", 3, time.Minute); err == nil {
		t.Fatalf("expected error for nil client")
	}
}

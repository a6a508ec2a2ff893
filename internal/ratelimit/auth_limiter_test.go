package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func newTestLimiter(t *testing.T, limit int, window time.Duration) (*AuthLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	limiter, err := NewAuthLimiter(mr.Addr(), "", limit, window)
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	return limiter, mr
}

func TestAuthLimiterBlocksOverQuota(t *testing.T) {
	limiter, _ := newTestLimiter(t, 2, time.Minute)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if ok, _ := limiter.Allow(ctx, "198.51.100.10"); !ok {
			t.Fatalf("request %d should pass", i+1)
		}
	}
	ok, retryAfter := limiter.Allow(ctx, "198.51.100.10")
	if ok {
		t.Fatal("request over quota should be blocked")
	}
	if retryAfter <= 0 || retryAfter > time.Minute {
		t.Fatalf("retry-after = %v, want within the window", retryAfter)
	}
	// A different client IP has its own window.
	if ok, _ := limiter.Allow(ctx, "198.51.100.11"); !ok {
		t.Fatal("other client should not share the window")
	}
}

func TestAuthLimiterFailsClosed(t *testing.T) {
	limiter, mr := newTestLimiter(t, 5, time.Minute)
	mr.Close()
	if ok, _ := limiter.Allow(context.Background(), "198.51.100.10"); ok {
		t.Fatal("limiter should fail closed when redis is down")
	}
}

func TestNewAuthLimiterValidation(t *testing.T) {
	if _, err := NewAuthLimiter("", "", 1, time.Second); err == nil {
		t.Fatal("expected error for missing redis addr")
	}
	if _, err := NewAuthLimiter("localhost:6379", "", 0, time.Second); err == nil {
		t.Fatal("expected error for non-positive limit")
	}
}

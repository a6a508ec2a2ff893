// Package ratelimit throttles the credential endpoints. Signup, login and
// refresh share one fixed-window counter per client IP so password guessing
// cannot be spread across them.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const authKeyPrefix = "godsaeng:ratelimit:auth"

var windowScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// AuthLimiter counts attempts per client IP in fixed windows, backed by
// Redis so every replica sees the same counter.
type AuthLimiter struct {
	limit  int
	window time.Duration
	client *redis.Client
}

// NewAuthLimiter connects the limiter to Redis. limit is the number of
// attempts allowed per window per client IP.
func NewAuthLimiter(addr, password string, limit int, window time.Duration) (*AuthLimiter, error) {
	if limit <= 0 || window <= 0 {
		return nil, errors.New("auth limiter requires positive limit and window")
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("auth limiter redis addr is required")
	}
	return &AuthLimiter{
		limit:  limit,
		window: window,
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
	}, nil
}

// Allow reports whether the client may attempt another credential request.
// When the quota is spent it also returns how long until the current
// window rolls over, for the Retry-After header. Redis failures fail
// closed: a broken limiter must not open the door to brute force.
func (l *AuthLimiter) Allow(ctx context.Context, clientIP string) (bool, time.Duration) {
	if l == nil {
		return false, 0
	}
	clientIP = strings.TrimSpace(clientIP)
	if clientIP == "" {
		clientIP = "unknown"
	}

	windowMs := l.window.Milliseconds()
	nowMs := time.Now().UTC().UnixMilli()
	slot := nowMs / windowMs
	key := fmt.Sprintf("%s:%s:%d", authKeyPrefix, clientIP, slot)

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	count, err := windowScript.Run(ctx, l.client, []string{key}, windowMs).Int64()
	if err != nil {
		return false, l.window
	}
	if count <= int64(l.limit) {
		return true, 0
	}
	resetMs := (slot+1)*windowMs - nowMs
	return false, time.Duration(resetMs) * time.Millisecond
}

package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/farmstead/farmbook/pkg/observability"
)

// RateLimiter is a Redis-backed fixed-window rate limiter. Counters live
// in Redis so the limit holds across multiple instances.
type RateLimiter struct {
	redis             *redis.Client
	prefix            string
	requestsPerWindow int
	window            time.Duration
}

// NewRateLimiter creates a new Redis-backed rate limiter
func NewRateLimiter(redisClient *redis.Client, requestsPerWindow int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		redis:             redisClient,
		prefix:            "ratelimit",
		requestsPerWindow: requestsPerWindow,
		window:            window,
	}
}

// Allow checks if a request is allowed for the key
func (rl *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := fmt.Sprintf("%s:%s", rl.prefix, key)

	pipe := rl.redis.Pipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, rl.window)

	if _, err := pipe.Exec(ctx); err != nil {
		// Fail open on Redis errors so a cache outage doesn't take the
		// API down with it
		return true, fmt.Errorf("redis error: %w", err)
	}

	return incr.Val() <= int64(rl.requestsPerWindow), nil
}

// Remaining returns the number of remaining requests in the window
func (rl *RateLimiter) Remaining(ctx context.Context, key string) (int, error) {
	redisKey := fmt.Sprintf("%s:%s", rl.prefix, key)

	count, err := rl.redis.Get(ctx, redisKey).Int()
	if err == redis.Nil {
		return rl.requestsPerWindow, nil
	} else if err != nil {
		return 0, err
	}

	remaining := rl.requestsPerWindow - count
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// TTL returns the time until the rate limit window resets
func (rl *RateLimiter) TTL(ctx context.Context, key string) (time.Duration, error) {
	return rl.redis.TTL(ctx, fmt.Sprintf("%s:%s", rl.prefix, key)).Result()
}

// Reset clears the rate limit for a key
func (rl *RateLimiter) Reset(ctx context.Context, key string) error {
	return rl.redis.Del(ctx, fmt.Sprintf("%s:%s", rl.prefix, key)).Err()
}

// Handler wraps an HTTP handler with rate limiting. Authenticated
// requests are limited per user, anonymous ones per client IP.
func (rl *RateLimiter) Handler(logger *observability.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			var key string
			if authCtx := GetAuthContext(r); authCtx != nil && authCtx.User != nil {
				key = fmt.Sprintf("user:%d", authCtx.User.ID)
			} else {
				key = "ip:" + getClientIP(r)
			}

			allowed, err := rl.Allow(ctx, key)
			if err != nil {
				logger.WithError(err).Warn("rate limiter unavailable, allowing request")
				next.ServeHTTP(w, r)
				return
			}

			if !allowed {
				rl.rateLimitExceeded(ctx, w, key)
				return
			}

			if remaining, err := rl.Remaining(ctx, key); err == nil {
				w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", rl.requestsPerWindow))
				w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (rl *RateLimiter) rateLimitExceeded(ctx context.Context, w http.ResponseWriter, key string) {
	retryAfter := rl.window.Seconds()
	if ttl, err := rl.TTL(ctx, key); err == nil && ttl > 0 {
		retryAfter = ttl.Seconds()
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", fmt.Sprintf("%.0f", retryAfter))
	w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", rl.requestsPerWindow))
	w.Header().Set("X-RateLimit-Remaining", "0")
	w.WriteHeader(http.StatusTooManyRequests)
	w.Write([]byte(`{"error":"rate limit exceeded","retry_after":` + fmt.Sprintf("%.0f", retryAfter) + `}`))
}

// HealthCheck verifies Redis connectivity
func (rl *RateLimiter) HealthCheck(ctx context.Context) error {
	return rl.redis.Ping(ctx).Err()
}

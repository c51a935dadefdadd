package security

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"bike-market/monitoring"

	"github.com/pocketbase/pocketbase/core"
	"github.com/redis/go-redis/v9"
)

// RateLimiter is a fixed-window limiter backed by Redis INCR/EXPIRE.
type RateLimiter struct {
	redis  *redis.Client
	limit  int64
	window time.Duration
}

func NewRateLimiter(redisClient *redis.Client, perMinute int) *RateLimiter {
	if perMinute <= 0 {
		perMinute = 30
	}
	return &RateLimiter{redis: redisClient, limit: int64(perMinute), window: time.Minute}
}

// Allow counts one request for key. Redis errors let the request through.
func (r *RateLimiter) Allow(ctx context.Context, key string) bool {
	k := fmt.Sprintf("ratelimit:%s", key)

	count, err := r.redis.Incr(ctx, k).Result()
	if err != nil {
		return true
	}
	if count == 1 {
		r.redis.Expire(ctx, k, r.window)
	}
	return count <= r.limit
}

// Middleware guards mutating routes: known bot user agents are refused and
// each client IP is limited per window.
func (r *RateLimiter) Middleware() func(e *core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		if r.isSuspiciousUserAgent(e.Request.Header.Get("User-Agent")) {
			monitoring.TrackRateLimited("user_agent")
			return e.JSON(http.StatusForbidden, map[string]string{
				"error": "Access denied",
			})
		}

		if !r.Allow(e.Request.Context(), e.RealIP()) {
			monitoring.TrackRateLimited("rate")
			return e.JSON(http.StatusTooManyRequests, map[string]string{
				"error": "Too many requests",
			})
		}

		return e.Next()
	}
}

func (r *RateLimiter) isSuspiciousUserAgent(ua string) bool {
	suspicious := []string{"bot", "crawler", "spider", "scraper"}
	for _, pattern := range suspicious {
		if strings.Contains(strings.ToLower(ua), pattern) {
			return true
		}
	}
	return false
}

package middleware

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/sjwg/reporter-backend/internal/http/response"
	"github.com/sjwg/reporter-backend/internal/platform/logger"
)

// Limiter answers whether a caller identified by key may proceed within the
// current window.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type redisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

// NewRedisLimiter counts requests per key in redis so the limit holds across
// multiple API processes.
func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) Limiter {
	return &redisLimiter{client: client, limit: limit, window: window}
}

func (l *redisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := "ratelimit:" + key
	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, err
	}
	if count == 1 {
		if err := l.client.Expire(ctx, redisKey, l.window).Err(); err != nil {
			return false, err
		}
	}
	return count <= int64(l.limit), nil
}

type memoryLimiter struct {
	mu     sync.Mutex
	counts map[string]*windowCount
	limit  int
	window time.Duration
}

type windowCount struct {
	count   int
	resetAt time.Time
}

// NewMemoryLimiter is the single-process fallback used when REDIS_ADDR is
// not configured.
func NewMemoryLimiter(limit int, window time.Duration) Limiter {
	return &memoryLimiter{
		counts: make(map[string]*windowCount),
		limit:  limit,
		window: window,
	}
}

func (l *memoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	wc, ok := l.counts[key]
	if !ok || now.After(wc.resetAt) {
		l.counts[key] = &windowCount{count: 1, resetAt: now.Add(l.window)}
		return true, nil
	}
	wc.count++
	return wc.count <= l.limit, nil
}

// RateLimit rejects callers that exceed the per-IP request limit. A broken
// limiter backend fails open.
func RateLimit(limiter Limiter, log *logger.Logger) gin.HandlerFunc {
	mwLog := log.With("middleware", "RateLimit")
	return func(c *gin.Context) {
		allowed, err := limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			mwLog.Warn("rate limiter unavailable", "error", err)
			c.Next()
			return
		}
		if !allowed {
			response.RespondError(c, http.StatusTooManyRequests, "rate_limited",
				fmt.Errorf("too many requests, slow down"))
			c.Abort()
			return
		}
		c.Next()
	}
}

package api

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dompeassist/internal/logger"
	"dompeassist/internal/redis"
)

const rateLimitKeyPrefix = "dompeassist:ratelimit:"

// Limiter decides whether a client may issue another chat request. When it
// refuses, retryAfter says how long until the next slot opens.
type Limiter interface {
	Allow(ctx context.Context, key string) (allowed bool, retryAfter time.Duration, err error)
}

// memoryLimiter is a per-process sliding window.
type memoryLimiter struct {
	limit  int
	window time.Duration
	mu     sync.Mutex
	hits   map[string][]time.Time
	now    func() time.Time
}

func NewMemoryLimiter(limit int, window time.Duration) Limiter {
	return &memoryLimiter{limit: limit, window: window, hits: make(map[string][]time.Time), now: time.Now}
}

func (l *memoryLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	queue := l.hits[key]
	cutoff := now.Add(-l.window)
	idx := 0
	for _, t := range queue {
		if t.After(cutoff) {
			break
		}
		idx++
	}
	if idx > 0 {
		queue = queue[idx:]
	}
	if len(queue) >= l.limit {
		l.hits[key] = queue
		return false, queue[0].Add(l.window).Sub(now), nil
	}
	l.hits[key] = append(queue, now)
	return true, 0, nil
}

// redisLimiter is a fixed window shared by every replica using the same redis.
type redisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) Limiter {
	return &redisLimiter{client: client, limit: limit, window: window}
}

func (l *redisLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	count, ttl, err := l.client.IncrWindow(ctx, rateLimitKeyPrefix+key, l.window)
	if err != nil {
		return false, 0, err
	}
	if count > int64(l.limit) {
		return false, ttl, nil
	}
	return true, 0, nil
}

func (h *Handler) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, retryAfter, err := h.limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			// fail open when the store is unreachable
			logger.WithCtx(c.Request.Context()).Warn("rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}
		if !allowed {
			secs := int(retryAfter.Round(time.Second) / time.Second)
			if secs < 1 {
				secs = 1
			}
			c.Header("Retry-After", strconv.Itoa(secs))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": errTooManyRequests})
			return
		}
		c.Next()
	}
}

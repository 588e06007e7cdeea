// Package ratelimit decides whether a client may make another request to a throttled route.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/yukikurage/taskflow-api/internal/config"
	"golang.org/x/time/rate"
)

// Result of a single Allow check.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
	Limit     int
}

// Limiter allows at most limit requests per key in any window.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*Result, error)
}

// New builds the backend selected by RATE_LIMIT_BACKEND.
func New(cfg *config.Config) (Limiter, error) {
	switch cfg.RateLimitBackend {
	case "memory":
		return NewMemoryLimiter(), nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr(),
			Password: cfg.RedisPassword,
		})
		return NewRedisLimiter(client, "taskflow:ratelimit:"), nil
	default:
		return nil, fmt.Errorf("unsupported rate limit backend %q", cfg.RateLimitBackend)
	}
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemoryLimiter keeps one token bucket per key in process memory.
// A bucket holds limit tokens and refills one token every window/limit.
type MemoryLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (*Result, error) {
	if limit <= 0 || window <= 0 {
		return nil, fmt.Errorf("invalid rate limit %d per %s", limit, window)
	}

	now := l.now()
	interval := window / time.Duration(limit)
	bucketKey := fmt.Sprintf("%s|%d|%s", key, limit, window)

	l.mu.Lock()
	defer l.mu.Unlock()

	l.evictIdle(now, window)

	b, ok := l.buckets[bucketKey]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rate.Every(interval), limit)}
		l.buckets[bucketKey] = b
	}
	b.lastSeen = now

	allowed := b.limiter.AllowN(now, 1)
	remaining := int(b.limiter.TokensAt(now))
	if remaining < 0 {
		remaining = 0
	}

	resetAt := now
	if !allowed || remaining == 0 {
		resetAt = now.Add(interval)
	}

	return &Result{
		Allowed:   allowed,
		Remaining: remaining,
		ResetAt:   resetAt,
		Limit:     limit,
	}, nil
}

// evictIdle drops buckets that have had a full window to refill.
func (l *MemoryLimiter) evictIdle(now time.Time, window time.Duration) {
	for k, b := range l.buckets {
		if now.Sub(b.lastSeen) > window {
			delete(l.buckets, k)
		}
	}
}

package security

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"golang.org/x/time/rate"
)

// RateLimitRule defines rate limiting rules
type RateLimitRule struct {
	Name   string        `json:"name"`
	Limit  int           `json:"limit"`
	Window time.Duration `json:"window"`
	Burst  int           `json:"burst"`
}

// RateLimitResult contains the result of a rate limit check
type RateLimitResult struct {
	Allowed    bool          `json:"allowed"`
	Remaining  int           `json:"remaining"`
	RetryAfter time.Duration `json:"retry_after,omitempty"`
}

// RateLimiter decides whether one more request from identifier fits rule.
type RateLimiter interface {
	Allow(ctx context.Context, identifier string, rule RateLimitRule) (*RateLimitResult, error)
}

// RedisRateLimiter shares a sliding window across every server instance.
type RedisRateLimiter struct {
	redis  *redis.Client
	prefix string
}

// NewRedisRateLimiter creates a new Redis-backed rate limiter
func NewRedisRateLimiter(redisClient *redis.Client, keyPrefix string) *RedisRateLimiter {
	if keyPrefix == "" {
		keyPrefix = "journal:ratelimit"
	}
	return &RedisRateLimiter{
		redis:  redisClient,
		prefix: keyPrefix,
	}
}

// Allow implements a sliding window log: one sorted-set member per request,
// scored by its timestamp.
func (rl *RedisRateLimiter) Allow(ctx context.Context, identifier string, rule RateLimitRule) (*RateLimitResult, error) {
	key := fmt.Sprintf("%s:%s:%s", rl.prefix, rule.Name, identifier)
	now := time.Now()
	windowStart := now.Add(-rule.Window)

	pipe := rl.redis.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", fmt.Sprintf("%.3f", float64(windowStart.UnixNano())/1e9))
	countCmd := pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, &redis.Z{
		Score:  float64(now.UnixNano()) / 1e9,
		Member: fmt.Sprintf("%d_%d", now.UnixNano(), rand.Intn(10000)),
	})
	pipe.Expire(ctx, key, rule.Window+time.Minute)

	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("redis pipeline execution failed: %w", err)
	}

	limit := rule.Limit + rule.Burst
	current := int(countCmd.Val())
	result := &RateLimitResult{
		Allowed:   current < limit,
		Remaining: limit - current - 1,
	}
	if result.Remaining < 0 {
		result.Remaining = 0
	}

	if !result.Allowed {
		result.RetryAfter = time.Second
		oldest, err := rl.redis.ZRangeWithScores(ctx, key, 0, 0).Result()
		if err == nil && len(oldest) > 0 {
			oldestAt := time.Unix(0, int64(oldest[0].Score*1e9))
			if wait := oldestAt.Add(rule.Window).Sub(now); wait > 0 {
				result.RetryAfter = wait
			}
		}
	}

	return result, nil
}

// LocalRateLimiter keeps one token bucket per identifier in process memory.
// It is used when Redis is not configured.
type LocalRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func NewLocalRateLimiter() *LocalRateLimiter {
	return &LocalRateLimiter{limiters: make(map[string]*rate.Limiter)}
}

func (rl *LocalRateLimiter) Allow(_ context.Context, identifier string, rule RateLimitRule) (*RateLimitResult, error) {
	key := rule.Name + ":" + identifier

	rl.mu.Lock()
	limiter, ok := rl.limiters[key]
	if !ok {
		every := rate.Every(rule.Window / time.Duration(maxInt(rule.Limit, 1)))
		limiter = rate.NewLimiter(every, maxInt(rule.Burst, 1))
		rl.limiters[key] = limiter
	}
	rl.mu.Unlock()

	now := time.Now()
	reservation := limiter.ReserveN(now, 1)
	if delay := reservation.DelayFrom(now); delay > 0 {
		reservation.CancelAt(now)
		return &RateLimitResult{Allowed: false, RetryAfter: delay}, nil
	}

	return &RateLimitResult{Allowed: true, Remaining: int(limiter.TokensAt(now))}, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

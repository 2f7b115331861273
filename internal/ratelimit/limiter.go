// Package ratelimit throttles bot command invocations per user using a fixed
// window counter. The Redis limiter (INCR + EXPIRE) shares counts across
// replicas; the memory limiter serves single-process deployments.
package ratelimit

import (
	"context"
	"log"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/redis/go-redis/v9"
)

// Rule defines a rate limiting policy: the key prefix, maximum number of
// requests allowed in the window, and the window duration.
type Rule struct {
	Key    string        // key prefix (e.g., "rl:cmd:")
	Limit  int           // max count in the window
	Window time.Duration // time window
}

// RuleCommand allows 5 commands per 10 seconds per user.
var RuleCommand = Rule{Key: "rl:cmd:", Limit: 5, Window: 10 * time.Second}

// Limiter performs rate limiting checks against Redis.
type Limiter struct {
	client *redis.Client
}

// NewLimiter creates a Limiter backed by the given Redis client.
func NewLimiter(client *redis.Client) *Limiter {
	return &Limiter{client: client}
}

// Allow checks whether the given identifier is within the rate limit defined by
// rule. It increments the counter in Redis and sets the expiry on first access.
//
// Returns true if the request is allowed, false if rate limited. On Redis
// errors the method fails open (returns true) so that a Redis outage does not
// silence the bot.
func (l *Limiter) Allow(ctx context.Context, identifier string, rule Rule) (bool, error) {
	key := rule.Key + identifier

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		log.Printf("[ratelimit] redis INCR error key=%s: %v (failing open)", key, err)
		return true, err
	}

	// On the first increment, set the expiry to define the window boundary.
	if count == 1 {
		if err := l.client.Expire(ctx, key, rule.Window).Err(); err != nil {
			log.Printf("[ratelimit] redis EXPIRE error key=%s: %v (failing open)", key, err)
			// A key without TTL would block the identifier forever.
			l.client.Del(ctx, key)
			return true, err
		}
	}

	return int(count) <= rule.Limit, nil
}

type window struct {
	start time.Time
	count int
}

// MemoryLimiter is an in-process fixed window limiter.
type MemoryLimiter struct {
	windows *xsync.MapOf[string, window]
	now     func() time.Time
}

// NewMemoryLimiter creates an empty MemoryLimiter.
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		windows: xsync.NewMapOf[string, window](),
		now:     time.Now,
	}
}

// SetClock replaces the time source. Intended for tests.
func (l *MemoryLimiter) SetClock(now func() time.Time) {
	l.now = now
}

// Allow counts one request for identifier and reports whether it is within
// rule. It never fails.
func (l *MemoryLimiter) Allow(_ context.Context, identifier string, rule Rule) (bool, error) {
	now := l.now()
	w, _ := l.windows.Compute(rule.Key+identifier, func(old window, loaded bool) (window, bool) {
		if !loaded || now.Sub(old.start) >= rule.Window {
			return window{start: now, count: 1}, false
		}
		old.count++
		return old, false
	})
	return w.count <= rule.Limit, nil
}

// Sweep drops windows that started more than maxAge ago and returns how many
// were removed.
func (l *MemoryLimiter) Sweep(maxAge time.Duration) int {
	now := l.now()
	removed := 0
	l.windows.Range(func(key string, w window) bool {
		if now.Sub(w.start) >= maxAge {
			l.windows.Delete(key)
			removed++
		}
		return true
	})
	return removed
}

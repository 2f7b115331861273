package cooldown

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisPrefix is the key prefix for cooldown records:
//
//	Key:   cooldown:<policy>:<user_id>
//	Value: unix milliseconds of the last warning
//	TTL:   window plus one second
const RedisPrefix = "cooldown:"

// RedisStore keeps cooldown records in Redis so several bot processes can
// share them. The escalation step runs as a Lua script, which makes it atomic
// across processes.
type RedisStore struct {
	client   *redis.Client
	escalate *redis.Script
}

// NewRedisStore creates a RedisStore using the provided Redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client:   client,
		escalate: redis.NewScript(escalateLua),
	}
}

func redisKey(key Key) string {
	return RedisPrefix + string(key.Policy) + ":" + key.UserID
}

// Escalate implements Store.
func (s *RedisStore) Escalate(ctx context.Context, key Key, now time.Time, window time.Duration) (Decision, error) {
	ttl := window + time.Second
	result, err := s.escalate.Run(ctx, s.client, []string{redisKey(key)},
		now.UnixMilli(), window.Milliseconds(), ttl.Milliseconds()).Int()
	if err != nil {
		return 0, fmt.Errorf("cooldown: escalate: %w", err)
	}
	if result == 1 {
		return Mute, nil
	}
	return Warn, nil
}

// LastWarning implements Store.
func (s *RedisStore) LastWarning(ctx context.Context, key Key) (time.Time, bool, error) {
	val, err := s.client.Get(ctx, redisKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("cooldown: get: %w", err)
	}
	ms, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("cooldown: parse %q: %w", val, err)
	}
	return time.UnixMilli(ms), true, nil
}

// Reset implements Store.
func (s *RedisStore) Reset(ctx context.Context, key Key) error {
	if err := s.client.Del(ctx, redisKey(key)).Err(); err != nil {
		return fmt.Errorf("cooldown: reset: %w", err)
	}
	return nil
}

// escalateLua reads the last warning, mutes (and clears) when it is inside
// the window, and otherwise records a new warning. Returns 1 for mute and 0
// for warn.
const escalateLua = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])

local last = redis.call('GET', key)
if last and now - tonumber(last) <= window then
    redis.call('DEL', key)
    return 1
end

redis.call('SET', key, ARGV[1], 'PX', ARGV[3])
return 0
`

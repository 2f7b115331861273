package cooldown

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// newTestRedisStore creates a RedisStore connected to a local Redis instance
// and removes test keys before and after the test. Tests that call this
// helper require a running Redis on localhost:6379.
func newTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}
	clean := func() {
		iter := client.Scan(ctx, 0, RedisPrefix+"*:test_*", 100).Iterator()
		for iter.Next(ctx) {
			client.Del(ctx, iter.Val())
		}
	}
	clean()
	t.Cleanup(func() {
		clean()
		client.Close()
	})
	return NewRedisStore(client)
}

func TestRedisStore_EscalationCycle(t *testing.T) {
	store := newTestRedisStore(t)
	ctx := context.Background()
	key := Key{UserID: "test_cycle", Policy: PolicyLink}
	now := time.Now()

	d, err := store.Escalate(ctx, key, now, DefaultWindow)
	if err != nil {
		t.Fatalf("Escalate() error: %v", err)
	}
	if d != Warn {
		t.Fatalf("1st violation: got %v, want warn", d)
	}

	last, ok, err := store.LastWarning(ctx, key)
	if err != nil {
		t.Fatalf("LastWarning() error: %v", err)
	}
	if !ok {
		t.Fatal("expected a record after the first warning")
	}
	if last.UnixMilli() != now.UnixMilli() {
		t.Errorf("LastWarning() = %v, want %v", last, now)
	}

	d, _ = store.Escalate(ctx, key, now.Add(10*time.Minute), DefaultWindow)
	if d != Mute {
		t.Fatalf("2nd violation: got %v, want mute", d)
	}
	if _, ok, _ := store.LastWarning(ctx, key); ok {
		t.Fatal("expected the record to be cleared after a mute")
	}

	d, _ = store.Escalate(ctx, key, now.Add(11*time.Minute), DefaultWindow)
	if d != Warn {
		t.Fatalf("3rd violation: got %v, want warn", d)
	}
}

func TestRedisStore_OutsideWindow(t *testing.T) {
	store := newTestRedisStore(t)
	ctx := context.Background()
	key := Key{UserID: "test_window", Policy: PolicyBadWord}
	now := time.Now()

	store.Escalate(ctx, key, now, DefaultWindow)
	d, _ := store.Escalate(ctx, key, now.Add(DefaultWindow+time.Second), DefaultWindow)
	if d != Warn {
		t.Errorf("violation after the window: got %v, want warn", d)
	}
}

func TestRedisStore_TTL(t *testing.T) {
	store := newTestRedisStore(t)
	ctx := context.Background()
	key := Key{UserID: "test_ttl", Policy: PolicyLink}

	store.Escalate(ctx, key, time.Now(), time.Minute)

	ttl, err := store.client.TTL(ctx, redisKey(key)).Result()
	if err != nil {
		t.Fatalf("TTL() error: %v", err)
	}
	if ttl <= 0 || ttl > time.Minute+time.Second {
		t.Errorf("expected TTL in (0, 61s], got %v", ttl)
	}
}

func TestRedisStore_Reset(t *testing.T) {
	store := newTestRedisStore(t)
	ctx := context.Background()
	key := Key{UserID: "test_reset", Policy: PolicyLink}

	store.Escalate(ctx, key, time.Now(), DefaultWindow)
	if err := store.Reset(ctx, key); err != nil {
		t.Fatalf("Reset() error: %v", err)
	}
	if _, ok, _ := store.LastWarning(ctx, key); ok {
		t.Error("expected no record after Reset()")
	}
}

func TestRedisKey(t *testing.T) {
	got := redisKey(Key{UserID: "42", Policy: PolicyBadWord})
	if got != "cooldown:badword:42" {
		t.Errorf("redisKey() = %q, want %q", got, "cooldown:badword:42")
	}
}

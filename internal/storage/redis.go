package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// consumeScript runs the fixed-window read, check and increment in one step.
// Window bounds are unix milliseconds; the new reset time is computed by the
// caller so the stored value is always an integer string.
//
// KEYS[1] entry key
// ARGV[1] limit, ARGV[2] now, ARGV[3] reset_at for a fresh window
// Returns {allowed, count, reset_at}.
var consumeScript = redis.NewScript(`
local state = redis.call('HMGET', KEYS[1], 'count', 'reset_at')
local limit = tonumber(ARGV[1])
local now = tonumber(ARGV[2])

local count = 0
local resetAt = state[2]
if resetAt and now < tonumber(resetAt) then
	if state[1] then
		count = tonumber(state[1])
	end
else
	resetAt = ARGV[3]
end

if count >= limit then
	return {0, count, tonumber(resetAt)}
end

count = count + 1
redis.call('HSET', KEYS[1], 'count', count, 'reset_at', resetAt)
redis.call('PEXPIREAT', KEYS[1], resetAt)

return {1, count, tonumber(resetAt)}
`)

// RedisStore implements Store interface using Redis. Entries live in a hash
// per key and expire through Redis TTLs, so no sweep goroutine is needed and
// several service replicas share one set of counters.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStoreWithClient creates a new Redis store with an existing client
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Consume implements Store.
func (s *RedisStore) Consume(ctx context.Context, key string, limit int64, window time.Duration, now time.Time) (Entry, bool, error) {
	res, err := consumeScript.Run(ctx, s.client, []string{key},
		limit,
		now.UnixMilli(),
		now.Add(window).UnixMilli(),
	).Int64Slice()
	if err != nil {
		return Entry{}, false, fmt.Errorf("failed to consume key: %w", err)
	}
	if len(res) != 3 {
		return Entry{}, false, fmt.Errorf("failed to consume key: unexpected script reply %v", res)
	}

	entry := Entry{Count: res[1], ResetAt: time.UnixMilli(res[2])}
	return entry, res[0] == 1, nil
}

// Peek implements Store.
func (s *RedisStore) Peek(ctx context.Context, key string, now time.Time) (Entry, bool, error) {
	vals, err := s.client.HMGet(ctx, key, "count", "reset_at").Result()
	if err != nil {
		return Entry{}, false, fmt.Errorf("failed to read key: %w", err)
	}
	if len(vals) != 2 || vals[0] == nil || vals[1] == nil {
		return Entry{}, false, nil
	}

	count, err := parseInt(vals[0])
	if err != nil {
		return Entry{}, false, fmt.Errorf("invalid count for key %q: %w", key, err)
	}
	resetAt, err := parseInt(vals[1])
	if err != nil {
		return Entry{}, false, fmt.Errorf("invalid reset_at for key %q: %w", key, err)
	}

	entry := Entry{Count: count, ResetAt: time.UnixMilli(resetAt)}
	if entry.Expired(now) {
		return Entry{}, false, nil
	}

	return entry, true, nil
}

func parseInt(v any) (int64, error) {
	s, ok := v.(string)
	if !ok {
		return 0, errors.New("not a string")
	}
	return strconv.ParseInt(s, 10, 64)
}

// Delete removes the key from storage
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete key: %w", err)
	}
	return nil
}

// Ping checks if the storage is accessible
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Close closes the storage connection
func (s *RedisStore) Close() error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("failed to close redis connection: %w", err)
	}
	return nil
}

package ratelimit

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// recordScript implements the sliding window check-and-record atomically
// on the Redis side: prune expired members, count, and add the new
// timestamp only when under the limit.
var recordScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
if count >= limit then
  return {0, count}
end
redis.call('ZADD', key, now, ARGV[1] .. ':' .. ARGV[4])
redis.call('PEXPIRE', key, window)
return {1, count + 1}
`)

// RedisStore is a Store backed by Redis sorted sets, sharing state
// across server instances.
type RedisStore struct {
	client *redis.Client
	prefix string
	seq    atomic.Int64 // disambiguates same-millisecond members
}

// NewRedisStore creates a RedisStore. Keys are namespaced with the given
// prefix to keep rate limit state separate from other Redis users.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(key string) string {
	return s.prefix + ":" + key
}

func (s *RedisStore) RecordIfAllowed(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (bool, int64, error) {
	res, err := recordScript.Run(ctx, s.client, []string{s.key(key)},
		now.UnixMilli(),
		window.Milliseconds(),
		limit,
		strconv.FormatInt(s.seq.Add(1), 10),
	).Int64Slice()
	if err != nil {
		return false, 0, err
	}

	return res[0] == 1, res[1], nil
}

func (s *RedisStore) Reset(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.key(key)).Err()
}

package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// recordScript prunes expired members, then adds the new timestamp only
// when the window still has room. Running as a single script keeps the
// check-and-record atomic across processes.
var recordScript = redis.NewScript(`
local cutoff = tonumber(ARGV[1]) - tonumber(ARGV[2])
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', cutoff)
local count = redis.call('ZCARD', KEYS[1])
if count >= tonumber(ARGV[3]) then
	return {0, count}
end
redis.call('ZADD', KEYS[1], ARGV[1], ARGV[4])
redis.call('PEXPIRE', KEYS[1], ARGV[5])
return {1, count + 1}
`)

// RedisStore backs sliding windows with Redis sorted sets so limits hold
// across all instances sharing the Redis.
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisStore creates a store on the given client. Keys are namespaced
// under "ratelimit:".
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client, keyPrefix: "ratelimit:"}
}

func (s *RedisStore) RecordIfAllowed(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (bool, int64, error) {
	nowMicro := now.UnixMicro()
	member := strconv.FormatInt(nowMicro, 10) + ":" + strconv.FormatInt(now.UnixNano()%1000, 10)

	res, err := recordScript.Run(ctx, s.client, []string{s.keyPrefix + key},
		nowMicro,
		window.Microseconds(),
		limit,
		member,
		window.Milliseconds(),
	).Slice()
	if err != nil {
		return false, 0, fmt.Errorf("ratelimit redis: %w", err)
	}
	if len(res) != 2 {
		return false, 0, fmt.Errorf("ratelimit redis: unexpected script reply %v", res)
	}

	allowed, _ := res[0].(int64)
	count, _ := res[1].(int64)
	return allowed == 1, count, nil
}

func (s *RedisStore) CountInWindow(ctx context.Context, key string, window time.Duration) (int64, error) {
	cutoff := time.Now().Add(-window).UnixMicro()
	count, err := s.client.ZCount(ctx, s.keyPrefix+key,
		"("+strconv.FormatInt(cutoff, 10), "+inf").Result()
	if err != nil {
		return 0, fmt.Errorf("ratelimit redis: %w", err)
	}
	return count, nil
}

func (s *RedisStore) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("ratelimit redis: %w", err)
	}
	return nil
}

package throttle

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
)

const keyPrefix = "authflow:login:"

// incrWithWindow counts a failure and starts the window on the first one.
// A counter left without a TTL gets one on its next increment.
var incrWithWindow = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if redis.call("PTTL", KEYS[1]) < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// RedisLimiter shares attempt counters between replicas.
type RedisLimiter struct {
	client redis.UniversalClient
	policy Policy
}

func NewRedisLimiter(client redis.UniversalClient, policy Policy) *RedisLimiter {
	return &RedisLimiter{client: client, policy: policy}
}

func attemptsKey(key string) string { return keyPrefix + "attempts:" + key }
func lockKey(key string) string     { return keyPrefix + "lock:" + key }

func (r *RedisLimiter) Locked(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := r.client.PTTL(ctx, lockKey(key)).Result()
	if err != nil {
		return 0, oops.Code("THROTTLE_LOOKUP").In("redis").Wrap(err)
	}
	// -2: no key, -1: no expiry.
	if ttl <= 0 {
		return 0, nil
	}
	return ttl, nil
}

func (r *RedisLimiter) Fail(ctx context.Context, key string) (int, error) {
	count, err := incrWithWindow.Run(ctx, r.client, []string{attemptsKey(key)}, r.policy.Window.Milliseconds()).Int64()
	if err != nil {
		return 0, oops.Code("THROTTLE_RECORD").In("redis").Wrap(err)
	}
	if count < int64(r.policy.MaxAttempts) {
		return r.policy.MaxAttempts - int(count), nil
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, lockKey(key), 1, r.policy.Lockout)
		pipe.Del(ctx, attemptsKey(key))
		return nil
	})
	if err != nil {
		return 0, oops.Code("THROTTLE_LOCK").In("redis").Wrap(err)
	}
	return 0, nil
}

func (r *RedisLimiter) Reset(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, attemptsKey(key), lockKey(key)).Err(); err != nil {
		return oops.Code("THROTTLE_RESET").In("redis").Wrap(err)
	}
	return nil
}

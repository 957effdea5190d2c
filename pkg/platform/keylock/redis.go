package keylock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"domio/pkg/platform/sentinel"
)

// releaseScript deletes a lock key only when the caller still owns it, so a
// lock that expired and was re-acquired by another process is never released
// from under its new owner.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisLocker serializes operations across processes using SET NX with a TTL.
// The TTL bounds how long a crashed holder can block other operations.
type RedisLocker struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisLocker constructs a Redis-backed locker.
// A zero ttl defaults to 30 seconds, comfortably above any single saga.
func NewRedisLocker(client *redis.Client, prefix string, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisLocker{client: client, prefix: prefix, ttl: ttl}
}

// TryLock acquires all keys or none. Partially-acquired keys are released
// before returning sentinel.ErrLocked.
func (l *RedisLocker) TryLock(ctx context.Context, keys ...string) (func(), error) {
	keys = normalize(keys)
	if len(keys) == 0 {
		return func() {}, nil
	}

	owner := uuid.NewString()
	acquired := make([]string, 0, len(keys))

	releaseAcquired := func() {
		for _, key := range acquired {
			// Best effort; an expired key simply no-ops.
			_ = releaseScript.Run(context.WithoutCancel(ctx), l.client, []string{key}, owner).Err()
		}
	}

	for _, key := range keys {
		full := l.prefix + key
		ok, err := l.client.SetNX(ctx, full, owner, l.ttl).Result()
		if err != nil {
			releaseAcquired()
			return nil, fmt.Errorf("acquire lock %q: %w", key, err)
		}
		if !ok {
			releaseAcquired()
			return nil, fmt.Errorf("key %q: %w", key, sentinel.ErrLocked)
		}
		acquired = append(acquired, full)
	}

	var once sync.Once
	return func() { once.Do(releaseAcquired) }, nil
}

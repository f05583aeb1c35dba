package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/harborvet/vetpms/internal/apperr"
	"github.com/harborvet/vetpms/pkg/logging"
)

// Locker serializes check-and-write for a set of slot keys. Acquire returns a
// release function; the TTL bounds how long a crashed holder can block a slot.
type Locker interface {
	Acquire(ctx context.Context, keys []string, ttl time.Duration) (func(), error)
}

// NoopLocker disables advisory locking. The database exclusion constraint is
// then the only protection against the check-then-write race.
type NoopLocker struct{}

func (NoopLocker) Acquire(context.Context, []string, time.Duration) (func(), error) {
	return func() {}, nil
}

// releaseScript deletes a lock key only when the caller still owns it, so a
// slow request cannot drop a lock re-acquired by someone else after expiry.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisLocker implements Locker with per-key SET NX + TTL.
type RedisLocker struct {
	client *redis.Client
	logger *logging.Logger
}

// NewRedisLocker wraps a redis client as a Locker.
func NewRedisLocker(client *redis.Client, logger *logging.Logger) *RedisLocker {
	if client == nil {
		panic("scheduling: redis client required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &RedisLocker{client: client, logger: logger}
}

// Acquire takes every key or none. Losing any key means another request is
// mid-booking on an overlapping slot, which surfaces as a Conflict the caller
// can retry.
func (l *RedisLocker) Acquire(ctx context.Context, keys []string, ttl time.Duration) (func(), error) {
	token := uuid.NewString()
	acquired := make([]string, 0, len(keys))

	releaseAll := func() {
		// Release must proceed even when the request context is cancelled.
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		for _, key := range acquired {
			if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil && err != redis.Nil {
				l.logger.Warn("failed to release slot lock", "key", key, "error", err)
			}
		}
	}

	for _, key := range keys {
		ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			releaseAll()
			return nil, apperr.Wrap(apperr.KindInternal, "slot lock unavailable", err)
		}
		if !ok {
			releaseAll()
			return nil, apperr.New(apperr.KindConflict, "time slot is being booked by another request")
		}
		acquired = append(acquired, key)
	}

	return releaseAll, nil
}

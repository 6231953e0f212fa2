// Package lock provides short-lived mutual exclusion keyed by string. The
// booking flow holds one per (doctor, slot) while it writes.
package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// compare-and-delete so a lock that expired and was re-acquired elsewhere
// is not released by the old holder
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type Redis struct {
	client *redis.Client
}

func NewRedis(ctx context.Context, url string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	c := redis.NewClient(opts)
	if err := c.Ping(ctx).Err(); err != nil {
		c.Close()
		return nil, err
	}
	return &Redis{client: c}, nil
}

// TryLock returns ok=false when another holder owns key. The token must be
// passed back to Unlock.
func (r *Redis) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, string, error) {
	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return false, "", err
	}
	return ok, token, nil
}

func (r *Redis) Unlock(ctx context.Context, key, token string) error {
	err := unlockScript.Run(ctx, r.client, []string{key}, token).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}

func (r *Redis) Close() error {
	return r.client.Close()
}

// Noop always grants the lock. The database constraints still prevent
// double booking without it.
type Noop struct{}

func (Noop) TryLock(context.Context, string, time.Duration) (bool, string, error) {
	return true, "", nil
}

func (Noop) Unlock(context.Context, string, string) error { return nil }

func (Noop) Close() error { return nil }

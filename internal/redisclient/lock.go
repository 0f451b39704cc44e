package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrCancelInProgress = errors.New("a cancellation for this appointment is already in progress")
)

// CancelLocker serializes reconciliation runs per appointment id so that
// duplicate cancel requests from the voice agent cannot interleave their
// candidate attempts against the remote system.
type CancelLocker interface {
	WithCancelLock(ctx context.Context, appointmentID string, fn func(ctx context.Context) error) error
}

type redisCancelLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCancelLocker creates a locker that uses a per appointment Redis key
func NewRedisCancelLocker(client *redis.Client, ttl time.Duration) CancelLocker {
	return &redisCancelLocker{
		client: client,
		ttl:    ttl,
	}
}

func (l *redisCancelLocker) WithCancelLock(ctx context.Context, appointmentID string, fn func(ctx context.Context) error) error {
	key := fmt.Sprintf("lock:cancel:%s", appointmentID)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire cancel lock: %w", err)
	}
	if !ok {
		return ErrCancelInProgress
	}

	defer func() {
		_ = l.release(ctx, key, token)
	}()

	ctxWithTimeout, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(ctxWithTimeout)
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *redisCancelLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release cancel lock: %w", err)
	}
	return nil
}

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
	// ErrSlotLocked is returned when another booking holds the slot.
	ErrSlotLocked = errors.New("slot is being booked by another request")
	// ErrLockUnavailable wraps failures talking to the lock backend.
	ErrLockUnavailable = errors.New("slot lock backend unavailable")
)

// SlotLocker serializes bookings of the same doctor slot.
type SlotLocker interface {
	// WithSlotLock runs fn while holding the lock of the doctor's slot on the given date.
	WithSlotLock(ctx context.Context, doctorID int64, date, slot string, fn func(ctx context.Context) error) error
}

// SlotLockKey returns the Redis key guarding a doctor slot.
func SlotLockKey(doctorID int64, date, slot string) string {
	return fmt.Sprintf("lock:slot:%d:%s:%s", doctorID, date, slot)
}

type redisSlotLocker struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedisSlotLocker creates a slot locker backed by SET NX keys that expire after ttl.
func NewRedisSlotLocker(client redis.Cmdable, ttl time.Duration) SlotLocker {
	return &redisSlotLocker{
		client: client,
		ttl:    ttl,
	}
}

func (l *redisSlotLocker) WithSlotLock(ctx context.Context, doctorID int64, date, slot string, fn func(ctx context.Context) error) error {
	key := SlotLockKey(doctorID, date, slot)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLockUnavailable, err)
	}
	if !ok {
		return ErrSlotLocked
	}

	defer func() {
		_ = l.release(context.WithoutCancel(ctx), key, token)
	}()

	ctxWithTimeout, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(ctxWithTimeout)
}

// unlockScript deletes the key only while it still holds our token.
var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *redisSlotLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release slot lock: %w", err)
	}
	return nil
}

type noopSlotLocker struct{}

// NewNoopSlotLocker creates a slot locker that runs fn right away, used when Redis is not configured.
func NewNoopSlotLocker() SlotLocker {
	return noopSlotLocker{}
}

func (noopSlotLocker) WithSlotLock(ctx context.Context, _ int64, _, _ string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

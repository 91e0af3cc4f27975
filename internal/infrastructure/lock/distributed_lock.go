package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

var (
	ErrLockFailed = errors.New("failed to acquire distributed lock")
)

// DistributedLock is a redis SetNX lock. The value identifies the holder
// so that Unlock never releases a lock someone else re-acquired after
// expiry.
type DistributedLock struct {
	client     *redis.Client
	key        string
	value      string
	expiration time.Duration
}

func NewDistributedLock(client *redis.Client, key, value string, expiration time.Duration) *DistributedLock {
	return &DistributedLock{
		client:     client,
		key:        key,
		value:      value,
		expiration: expiration,
	}
}

// TryLock attempts the lock once without blocking. The expiration keeps a
// crashed holder from leaving the lock stuck.
func (l *DistributedLock) TryLock(ctx context.Context) (bool, error) {
	success, err := l.client.SetNX(ctx, l.key, l.value, l.expiration).Result()
	if err != nil {
		return false, err
	}
	return success, nil
}

// Lock blocks with retries until the lock is held or retries run out.
func (l *DistributedLock) Lock(ctx context.Context, retryInterval time.Duration, maxRetries int) error {
	for i := 0; i < maxRetries; i++ {
		success, err := l.TryLock(ctx)
		if err != nil {
			return err
		}
		if success {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
		}
	}
	return ErrLockFailed
}

// Unlock releases the lock. The Lua script keeps check-and-delete atomic:
// the key is deleted only when it still holds our value.
func (l *DistributedLock) Unlock(ctx context.Context) error {
	script := `
		if redis.call("GET", KEYS[1]) == ARGV[1] then
			return redis.call("DEL", KEYS[1])
		else
			return 0
		end
	`
	_, err := l.client.Eval(ctx, script, []string{l.key}, l.value).Result()
	return err
}

// NewChargeLock serializes charge collection per charge account. Two
// concurrent requests against the same account take turns; the loser then
// hits the collected-charge pre-check. Different accounts do not contend.
func NewChargeLock(client *redis.Client, chargeAccount, token string, ttl time.Duration) *DistributedLock {
	key := fmt.Sprintf("charge:lock:account:%s", chargeAccount)
	return NewDistributedLock(client, key, token, ttl)
}

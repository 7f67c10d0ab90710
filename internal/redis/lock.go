package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// SweepLockName is held by the replica running the dispatch sweep.
const SweepLockName = "dispatch:sweep"

// OrderLockName names the lock serialising payment steps on an order.
func OrderLockName(orderID string) string {
	return "order:" + orderID
}

// WithdrawalLockName names the lock serialising payouts of a withdrawal.
func WithdrawalLockName(transactionID string) string {
	return "withdrawal:" + transactionID
}

// releaseScript deletes a lock only if it is still held by the caller.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// LockStore handles distributed locking in Redis.
type LockStore struct {
	client *redis.Client
}

// NewLockStore creates a new LockStore.
func NewLockStore(client *redis.Client) *LockStore {
	return &LockStore{client: client}
}

// Acquire attempts to take the named lock for owner.
// Returns true if the lock was acquired, false if already held.
func (s *LockStore) Acquire(ctx context.Context, name, owner string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, "lock:"+name, owner, ttl).Result()
}

// Release drops the named lock if owner still holds it.
func (s *LockStore) Release(ctx context.Context, name, owner string) error {
	return releaseScript.Run(ctx, s.client, []string{"lock:" + name}, owner).Err()
}

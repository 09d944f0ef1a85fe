package workspace

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// acquireLeaseScript is a Lua script for atomic lease acquisition, the same
// EXISTS-then-HSET-then-EXPIRE idiom the teacher's STATE_DB lock uses for
// per-device locks, applied here to a bridge domain ID instead of a device
// name. Returns 1 on success, 0 if another holder already owns the lease.
var acquireLeaseScript = redis.NewScript(`
local key = KEYS[1]
if redis.call("EXISTS", key) == 1 then
	return 0
end
redis.call("HSET", key, "holder", ARGV[1], "acquired", ARGV[2])
redis.call("EXPIRE", key, tonumber(ARGV[3]))
return 1
`)

// releaseLeaseScript releases a lease only if the caller is still the
// recorded holder. Returns 1 on success, 0 on holder mismatch, -1 if the
// lease had already expired or was never acquired.
var releaseLeaseScript = redis.NewScript(`
local key = KEYS[1]
if redis.call("EXISTS", key) == 0 then
	return -1
end
local current = redis.call("HGET", key, "holder")
if current ~= ARGV[1] then
	return 0
end
redis.call("DEL", key)
return 1
`)

// renewLeaseScript refreshes a lease's TTL on behalf of its current holder,
// so a crashed holder's claim expires instead of deadlocking the bridge
// domain forever, while a live holder can keep working past the initial TTL.
var renewLeaseScript = redis.NewScript(`
local key = KEYS[1]
if redis.call("EXISTS", key) == 0 then
	return -1
end
local current = redis.call("HGET", key, "holder")
if current ~= ARGV[1] then
	return 0
end
redis.call("EXPIRE", key, tonumber(ARGV[2]))
return 1
`)

const leaseKeyPrefix = "DNAAS_BRIDGE_LEASE|"

// LeaseManager backs assignment holds with a TTL'd Redis key so a process
// that dies mid-edit releases its claim automatically instead of leaving
// the bridge domain assigned forever. It is optional: a nil *LeaseManager
// (no DNAAS_BRIDGE_REDIS_ADDR configured) degrades Workspace to DB-only
// assignment enforcement, which is still correct — just without the
// crash-recovery TTL.
type LeaseManager struct {
	client *redis.Client
	ttl    time.Duration
}

// NewLeaseManager dials addr and returns a LeaseManager with the given
// lease TTL. Connectivity is not verified here; a dead Redis surfaces as an
// error on the first Acquire/Renew/Release call, which callers should treat
// as non-fatal (the DB-level assignment is still authoritative).
func NewLeaseManager(addr string, ttl time.Duration) *LeaseManager {
	return &LeaseManager{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		ttl:    ttl,
	}
}

func (l *LeaseManager) key(bdID string) string {
	return leaseKeyPrefix + bdID
}

// Acquire claims the lease for bdID on behalf of holder.
func (l *LeaseManager) Acquire(ctx context.Context, bdID, holder string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	result, err := acquireLeaseScript.Run(ctx, l.client, []string{l.key(bdID)}, holder, now, int(l.ttl.Seconds())).Int()
	if err != nil {
		return fmt.Errorf("acquiring lease for %s: %w", bdID, err)
	}
	if result == 0 {
		return fmt.Errorf("bridge domain %s lease already held by another process", bdID)
	}
	return nil
}

// Renew extends bdID's lease TTL, provided holder still owns it.
func (l *LeaseManager) Renew(ctx context.Context, bdID, holder string) error {
	result, err := renewLeaseScript.Run(ctx, l.client, []string{l.key(bdID)}, holder, int(l.ttl.Seconds())).Int()
	if err != nil {
		return fmt.Errorf("renewing lease for %s: %w", bdID, err)
	}
	if result == 0 {
		return fmt.Errorf("lease holder mismatch for %s", bdID)
	}
	return nil
}

// Release gives up bdID's lease. A missing or already-expired lease is
// treated as a successful release, matching the teacher's ReleaseLock
// idempotence.
func (l *LeaseManager) Release(ctx context.Context, bdID, holder string) error {
	result, err := releaseLeaseScript.Run(ctx, l.client, []string{l.key(bdID)}, holder).Int()
	if err != nil {
		return fmt.Errorf("releasing lease for %s: %w", bdID, err)
	}
	if result == 0 {
		return fmt.Errorf("lease holder mismatch for %s", bdID)
	}
	return nil
}

// Close releases the underlying Redis connection pool.
func (l *LeaseManager) Close() error {
	return l.client.Close()
}

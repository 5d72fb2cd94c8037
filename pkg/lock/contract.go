package lock

import (
	"context"
	"time"
)

// Lease identifies one successful acquisition. It is owned by the single
// invocation that acquired it and must not be shared across goroutines.
type Lease struct {
	Key      string
	Token    string
	ExpireAt time.Time
}

// Provider grants mutual exclusion across independent processes. The
// backend enforces TTL expiry on held keys, so a crashed holder never
// deadlocks the fleet.
type Provider interface {
	// Acquire makes a single attempt; acquired is false when the key is held.
	Acquire(ctx context.Context, key string, ttl time.Duration) (lease *Lease, acquired bool, err error)
	// Renew extends lease expiry when the lease token still matches.
	Renew(ctx context.Context, lease *Lease, ttl time.Duration) error
	// Release unlocks the key if the lease token matches.
	Release(ctx context.Context, lease *Lease) error
	HealthCheck(ctx context.Context) error
	Close() error
}

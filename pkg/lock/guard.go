package lock

import (
	"context"
	"strings"
	"time"

	"github.com/cronguard/cronguard/pkg/config"
	"github.com/cronguard/cronguard/pkg/observability/logger"
)

// Options configures one guarded method. Constructed once at binding time
// and closed over by the wrapper; never mutated afterwards.
type Options struct {
	// Name is the key exclusivity is granted under. Two call sites
	// sharing a name exclude each other even when unrelated.
	Name string
	// LockTimeout bounds the hold duration via backend expiry.
	LockTimeout time.Duration
	// WaitInterval is the poll period while the lock is held elsewhere.
	// Setting it (or WaitTimeout) switches acquisition to poll-and-retry.
	WaitInterval time.Duration
	// WaitTimeout is the give-up ceiling for a retrying acquisition.
	WaitTimeout time.Duration
}

func (o Options) retrying() bool {
	return o.WaitInterval > 0 || o.WaitTimeout > 0
}

// Method is the calling convention shared by guarded methods and their
// wrappers.
type Method func(ctx context.Context) error

// ConfigResolver yields the lock backend configuration at call time.
// *config.Config satisfies it.
type ConfigResolver interface {
	LockBackend() (config.LockBackendConfig, bool)
}

// Guard wraps fn so that each invocation runs under the distributed lock
// named by opts. Acquisition failures skip the invocation and are never
// surfaced to the caller; errors from fn itself always are. The lock is
// released in all outcomes, best-effort.
func Guard(resolver ConfigResolver, cache *ProviderCache, opts Options, log logger.Logger, fn Method) Method {
	return func(ctx context.Context) error {
		name := strings.TrimSpace(opts.Name)
		if name == "" {
			return lockError(ErrConfiguration, "lock name is required")
		}
		if resolver == nil {
			return lockError(ErrConfiguration, "lock backend resolver is required")
		}
		backend, ok := resolver.LockBackend()
		if !ok {
			return lockError(ErrConfiguration, "no lock backend configured under scheduler_lock or redis")
		}

		provider, err := cache.Get(backend)
		if err != nil {
			log.Warn("lock backend unavailable; skipping invocation",
				"lock", name,
				"error", err,
			)
			return nil
		}
		client, err := NewClient(provider, log)
		if err != nil {
			log.Warn("lock client unavailable; skipping invocation",
				"lock", name,
				"error", err,
			)
			return nil
		}

		var lease *Lease
		var acquired bool
		if opts.retrying() {
			lease, acquired, err = client.AcquireWithRetry(ctx, name, opts.LockTimeout, opts.WaitInterval, opts.WaitTimeout)
		} else {
			lease, acquired, err = client.Acquire(ctx, name, opts.LockTimeout)
		}
		if !acquired {
			log.Warn("lock not acquired; skipping invocation",
				"lock", name,
				"error", err,
			)
			return nil
		}
		defer client.Release(ctx, lease)

		if err := fn(ctx); err != nil {
			log.Error("guarded method failed",
				"lock", name,
				"error", err,
			)
			return err
		}
		return nil
	}
}

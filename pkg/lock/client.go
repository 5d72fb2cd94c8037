package lock

import (
	"context"
	"time"

	"github.com/cronguard/cronguard/pkg/observability/logger"
)

const (
	// DefaultLockTimeout bounds the hold duration when none is configured.
	DefaultLockTimeout = 30 * time.Second
	// DefaultPollInterval is used when a retry is requested without an
	// explicit poll period. Keeps retries off a busy loop.
	DefaultPollInterval = 100 * time.Millisecond
	// DefaultWaitTimeout bounds a retrying acquisition when no give-up
	// ceiling was configured.
	DefaultWaitTimeout = 5 * time.Second
)

// Client layers acquisition policies over a Provider. It is safe for
// concurrent use by multiple jobs sharing the same backend.
type Client struct {
	provider Provider
	log      logger.Logger
}

// NewClient creates a lock client over a provider.
func NewClient(provider Provider, log logger.Logger) (*Client, error) {
	if provider == nil {
		return nil, lockError(ErrInvalidArgument, "provider is required")
	}
	if log == nil {
		return nil, lockError(ErrInvalidArgument, "logger is required")
	}
	return &Client{provider: provider, log: log}, nil
}

// Acquire makes a single acquisition attempt. It fails immediately when
// the key is held by another process.
func (c *Client) Acquire(ctx context.Context, name string, lockTimeout time.Duration) (*Lease, bool, error) {
	if c == nil || c.provider == nil {
		return nil, false, lockError(ErrNotInitialized, "lock client is not initialized")
	}
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}
	lease, acquired, err := c.provider.Acquire(ctx, name, lockTimeout)
	recordAcquire(name, acquireStatus(acquired, err))
	return lease, acquired, err
}

// AcquireWithRetry polls for the lock every pollInterval until acquisition
// succeeds or giveUpAfter elapses. A zero pollInterval defaults to
// DefaultPollInterval; a zero giveUpAfter defaults to DefaultWaitTimeout.
// Waiting acquirers are not queued: there is no fairness across pollers,
// and the give-up ceiling is the only starvation bound.
func (c *Client) AcquireWithRetry(ctx context.Context, name string, lockTimeout, pollInterval, giveUpAfter time.Duration) (*Lease, bool, error) {
	if c == nil || c.provider == nil {
		return nil, false, lockError(ErrNotInitialized, "lock client is not initialized")
	}
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	if giveUpAfter <= 0 {
		giveUpAfter = DefaultWaitTimeout
	}

	deadline := time.Now().Add(giveUpAfter)
	var lastErr error
	for {
		lease, acquired, err := c.provider.Acquire(ctx, name, lockTimeout)
		if err != nil {
			// transient backend failures count as missed attempts
			lastErr = err
		}
		if acquired {
			recordAcquire(name, "acquired")
			return lease, true, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			recordAcquire(name, acquireStatus(false, lastErr))
			return nil, false, lastErr
		}

		wait := pollInterval
		if wait > remaining {
			wait = remaining
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			recordAcquire(name, "canceled")
			return nil, false, ctx.Err()
		case <-timer.C:
		}
	}
}

// Release gives the lock back. It is best-effort: by the time it runs the
// guarded work already finished, so failures are logged and never
// returned. A nil lease or missing provider is skipped silently.
func (c *Client) Release(ctx context.Context, lease *Lease) {
	if c == nil || c.provider == nil || lease == nil {
		return
	}
	if err := c.provider.Release(ctx, lease); err != nil {
		recordRelease(lease.Key, "error")
		c.log.Warn("lock release failed",
			"lock", lease.Key,
			"error", err,
		)
		return
	}
	recordRelease(lease.Key, "released")
}

func acquireStatus(acquired bool, err error) string {
	switch {
	case acquired:
		return "acquired"
	case err != nil:
		return "error"
	default:
		return "contended"
	}
}

package lock

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration classifies missing or invalid lock configuration.
	ErrConfiguration = errors.New("lock configuration error")
	// ErrInvalidArgument classifies invalid caller arguments.
	ErrInvalidArgument = errors.New("lock invalid argument")
	// ErrNotInitialized classifies operations on an uninitialized provider.
	ErrNotInitialized = errors.New("lock provider not initialized")
	// ErrRetryable classifies transient backend failures safe to retry.
	ErrRetryable = errors.New("lock retryable error")
	// ErrConflict classifies release/renew rejections for stale leases.
	ErrConflict = errors.New("lock conflict")
)

func lockError(kind error, message string) error {
	if message == "" {
		return kind
	}
	return fmt.Errorf("%w: %s", kind, message)
}

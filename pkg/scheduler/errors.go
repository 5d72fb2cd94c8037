package scheduler

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration classifies binding/startup configuration failures:
	// empty cron expressions, locks on per-request components, undefined
	// owners. These surface immediately and loudly.
	ErrConfiguration = errors.New("scheduler configuration error")
	// ErrConflict classifies state conflicts (already started).
	ErrConflict = errors.New("scheduler conflict")
	// ErrNotInitialized classifies operations on an unbuilt registrar.
	ErrNotInitialized = errors.New("scheduler not initialized")
)

func schedulerError(kind error, message string) error {
	if message == "" {
		return kind
	}
	return fmt.Errorf("%w: %s", kind, message)
}

package scheduler

import (
	"strings"
	"time"

	"github.com/cronguard/cronguard/pkg/health"
	"github.com/cronguard/cronguard/pkg/lock"
)

const (
	defaultLockProviderHealthCheckName = "scheduler-lock-provider"
	defaultRegistrarHealthCheckName    = "scheduler"
)

// NewLockProviderHealthChecker creates a standard health checker for lock
// providers.
func NewLockProviderHealthChecker(name string, provider lock.Provider, timeout time.Duration) health.Checker {
	checkName := strings.TrimSpace(name)
	if checkName == "" {
		checkName = defaultLockProviderHealthCheckName
	}
	return health.NewAdapterChecker(checkName, provider, timeout)
}

// NewRegistrarHealthChecker creates a health checker that reports whether
// the registrar is running.
func NewRegistrarHealthChecker(name string, registrar *Registrar, timeout time.Duration) health.Checker {
	checkName := strings.TrimSpace(name)
	if checkName == "" {
		checkName = defaultRegistrarHealthCheckName
	}
	return health.NewAdapterChecker(checkName, registrar, timeout)
}

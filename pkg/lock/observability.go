package lock

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	lockAcquireTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cronguard_lock_acquire_total",
			Help: "Total number of lock acquisition attempts",
		},
		[]string{"lock", "status"},
	)

	lockReleaseTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cronguard_lock_release_total",
			Help: "Total number of lock release operations",
		},
		[]string{"lock", "status"},
	)
)

func recordAcquire(lockName, status string) {
	lockAcquireTotal.WithLabelValues(
		normalizeLockLabel(lockName),
		normalizeLockLabel(status),
	).Inc()
}

func recordRelease(lockName, status string) {
	lockReleaseTotal.WithLabelValues(
		normalizeLockLabel(lockName),
		normalizeLockLabel(status),
	).Inc()
}

func normalizeLockLabel(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "unknown"
	}
	return trimmed
}

package scheduler

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	schedulerFiringTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cronguard_scheduler_firing_total",
			Help: "Total number of timer job firings",
		},
		[]string{"job", "status"},
	)

	schedulerFiringInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cronguard_scheduler_firing_inflight",
			Help: "Current number of in-flight timer job firings",
		},
		[]string{"job"},
	)
)

func recordFiring(jobName, status string) {
	schedulerFiringTotal.WithLabelValues(
		normalizeSchedulerLabel(jobName),
		normalizeSchedulerLabel(status),
	).Inc()
}

func incrementFiringInFlight(jobName string) {
	schedulerFiringInFlight.WithLabelValues(normalizeSchedulerLabel(jobName)).Inc()
}

func decrementFiringInFlight(jobName string) {
	schedulerFiringInFlight.WithLabelValues(normalizeSchedulerLabel(jobName)).Dec()
}

func normalizeSchedulerLabel(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "unknown"
	}
	return trimmed
}

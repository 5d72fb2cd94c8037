package scheduler

import (
	"fmt"
	"strings"

	"github.com/cronguard/cronguard/pkg/lock"
	"github.com/cronguard/cronguard/pkg/metadata"
	"github.com/cronguard/cronguard/pkg/observability/logger"
)

// Reserved metadata registry keys.
const (
	ScheduleMetadataKey = "cronguard:schedule"
	LockMetadataKey     = "cronguard:lock"
)

// ScheduleRegistration is one recorded (component, method, cron) triple.
// Immutable once recorded.
type ScheduleRegistration struct {
	Component string
	Method    string
	Cron      string
}

// LockRegistration is one recorded lock requirement for a method.
type LockRegistration struct {
	Component string
	Method    string
	Options   lock.Options
}

// Binding records schedule and lock metadata for one component's methods
// during the startup phase. Configuration mistakes fail here, not at first
// firing.
type Binding struct {
	registry  *metadata.Registry
	component string
	log       logger.Logger
}

// Bind starts a metadata binding for a defined component.
func Bind(registry *metadata.Registry, component string, log logger.Logger) *Binding {
	return &Binding{
		registry:  registry,
		component: strings.TrimSpace(component),
		log:       log,
	}
}

// Cron records a cron trigger for a method. The expression must be
// non-empty and parseable.
func (b *Binding) Cron(method, expr string) error {
	if b == nil || b.registry == nil {
		return schedulerError(ErrNotInitialized, "binding requires a metadata registry")
	}
	method = strings.TrimSpace(method)
	if method == "" {
		return schedulerError(ErrConfiguration, "method name is required")
	}
	if _, ok := b.registry.Component(b.component); !ok {
		return schedulerError(ErrConfiguration, fmt.Sprintf("component %q is not defined", b.component))
	}
	if strings.TrimSpace(expr) == "" {
		return schedulerError(ErrConfiguration, fmt.Sprintf("empty cron expression on %s.%s", b.component, method))
	}
	if _, err := ParseSchedule(expr); err != nil {
		return err
	}

	return b.registry.Record(ScheduleMetadataKey, b.component, method, ScheduleRegistration{
		Component: b.component,
		Method:    method,
		Cron:      strings.TrimSpace(expr),
	})
}

// Lock records a distributed-lock requirement for a method. Controllers
// are rejected: lock semantics assume a singleton lifetime, not a
// per-request instance. An unset lock name defaults to
// {component}_{method}; a default name already bound elsewhere is a
// correctness hazard and is warned about, never silently resolved.
func (b *Binding) Lock(method string, opts lock.Options) error {
	if b == nil || b.registry == nil {
		return schedulerError(ErrNotInitialized, "binding requires a metadata registry")
	}
	method = strings.TrimSpace(method)
	if method == "" {
		return schedulerError(ErrConfiguration, "method name is required")
	}
	component, ok := b.registry.Component(b.component)
	if !ok {
		return schedulerError(ErrConfiguration, fmt.Sprintf("component %q is not defined", b.component))
	}
	if component.Kind == metadata.KindController {
		return schedulerError(ErrConfiguration, fmt.Sprintf("lock on controller method %s.%s: controllers have per-request lifetime", b.component, method))
	}

	if strings.TrimSpace(opts.Name) == "" {
		opts.Name = DefaultJobName(b.component, method)
	}
	b.warnOnNameCollision(opts.Name, method)

	return b.registry.Record(LockMetadataKey, b.component, method, LockRegistration{
		Component: b.component,
		Method:    method,
		Options:   opts,
	})
}

func (b *Binding) warnOnNameCollision(name, method string) {
	if b.log == nil {
		return
	}
	for _, entry := range b.registry.ReadKey(LockMetadataKey) {
		registration, ok := entry.Data.(LockRegistration)
		if !ok || registration.Options.Name != name {
			continue
		}
		b.log.Warn("lock name already bound to another method; both now exclude each other",
			"lock", name,
			"existing", DefaultJobName(entry.Component, entry.Method),
			"new", DefaultJobName(b.component, method),
		)
	}
}

// DefaultJobName is the diagnostic name shared by timer jobs and default
// lock names, so log lines correlate firings with lock contention.
func DefaultJobName(component, method string) string {
	return component + "_" + method
}

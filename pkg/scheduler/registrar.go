package scheduler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/cronguard/cronguard/pkg/app"
	"github.com/cronguard/cronguard/pkg/lock"
	"github.com/cronguard/cronguard/pkg/metadata"
	"github.com/cronguard/cronguard/pkg/observability/logger"
)

// DebugEnvVar enables verbose registration tracing when set. It changes
// log verbosity only, never functional behavior.
const DebugEnvVar = "CRONGUARD_DEBUG"

const (
	DefaultLockTTL         = 30 * time.Second
	DefaultShutdownTimeout = 15 * time.Second
)

// Config controls registrar runtime behavior.
type Config struct {
	// DefaultLockTTL bounds lock hold duration for guarded methods that
	// did not set one.
	DefaultLockTTL time.Duration
	// ShutdownTimeout bounds how long Stop waits for in-flight firings.
	ShutdownTimeout time.Duration
}

func (c *Config) normalize() {
	if c.DefaultLockTTL <= 0 {
		c.DefaultLockTTL = DefaultLockTTL
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}
}

// Registrar turns decoration-time metadata into running timer jobs. It
// walks the metadata registry once the application signals readiness,
// binds each (component, method, cron) triple to a live instance from the
// container, and runs one timer loop per entry for the process lifetime or
// until Stop.
type Registrar struct {
	metadata  *metadata.Registry
	container *app.Container
	resolver  lock.ConfigResolver
	cache     *lock.ProviderCache
	log       logger.Logger
	config    Config
	debug     bool

	mu      sync.Mutex
	jobs    []*timerJob
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewRegistrar creates a scheduler registrar.
func NewRegistrar(
	meta *metadata.Registry,
	container *app.Container,
	resolver lock.ConfigResolver,
	cache *lock.ProviderCache,
	log logger.Logger,
	cfg Config,
) (*Registrar, error) {
	if meta == nil {
		return nil, errors.New("metadata registry is required")
	}
	if container == nil {
		return nil, errors.New("instance container is required")
	}
	if log == nil {
		return nil, errors.New("logger is required")
	}

	cfg.normalize()
	return &Registrar{
		metadata:  meta,
		container: container,
		resolver:  resolver,
		cache:     cache,
		log:       log,
		config:    cfg,
		debug:     os.Getenv(DebugEnvVar) != "",
	}, nil
}

// WireReady subscribes registration to the application ready gate. The
// gate fires callbacks at most once, and Start itself refuses a second
// run, so registration happens at most once even if the surrounding
// lifecycle misbehaves.
func (r *Registrar) WireReady(ctx context.Context, gate *app.ReadyGate) {
	if r == nil || gate == nil {
		return
	}
	gate.OnReady(func() {
		if err := r.Start(ctx); err != nil && !errors.Is(err, ErrConflict) {
			r.log.Error("scheduler registration failed", "error", err)
		}
	})
}

// Start walks the metadata registry and launches one timer loop per
// scheduled entry. Entries whose instance or method cannot be resolved
// are skipped; the remaining jobs still register.
func (r *Registrar) Start(ctx context.Context) error {
	if r == nil {
		return schedulerError(ErrNotInitialized, "registrar is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return schedulerError(ErrConflict, "scheduler already running")
	}
	runningCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running = true
	r.jobs = r.buildJobs()
	jobs := r.jobs
	r.mu.Unlock()

	for _, job := range jobs {
		r.wg.Add(1)
		go job.run(runningCtx, &r.wg)
	}
	r.log.Info("scheduler started", "jobs", len(jobs))
	return nil
}

// Stop cancels all timer loops and waits for in-flight firings, bounded
// by the context deadline or the configured shutdown timeout.
func (r *Registrar) Stop(ctx context.Context) error {
	if r == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.ShutdownTimeout)
		defer cancel()
	}

	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	cancel := r.cancel
	r.cancel = nil
	r.running = false
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	waitCh := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(waitCh)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-waitCh:
		r.log.Info("scheduler stopped")
		return nil
	}
}

// Jobs returns the diagnostic names of all registered timer jobs.
func (r *Registrar) Jobs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.jobs))
	for _, job := range r.jobs {
		names = append(names, job.name)
	}
	return names
}

// HealthCheck reports whether the registrar is running.
func (r *Registrar) HealthCheck(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return schedulerError(ErrNotInitialized, "scheduler is not running")
	}
	return nil
}

func (r *Registrar) buildJobs() []*timerJob {
	var jobs []*timerJob
	for _, component := range r.metadata.Components() {
		entries := r.metadata.ReadAll(ScheduleMetadataKey, component)
		if len(entries) == 0 {
			continue
		}
		if r.debug {
			r.log.Debug("registration walk", "component", component, "methods", len(entries))
		}

		instance, ok := r.container.GetInstance(component)
		if !ok {
			if r.debug {
				r.log.Debug("no live instance for scheduled component; skipping", "component", component)
			}
			continue
		}
		locks := r.metadata.ReadAll(LockMetadataKey, component)

		methods := make([]string, 0, len(entries))
		for method := range entries {
			methods = append(methods, method)
		}
		sort.Strings(methods)

		for _, method := range methods {
			fn, ok := resolveMethod(instance, method)
			if !ok {
				if r.debug {
					r.log.Debug("scheduled method absent or not callable; skipping",
						"component", component,
						"method", method,
					)
				}
				continue
			}
			fn = r.wrapWithLocks(component, method, locks[method], fn)

			for _, data := range entries[method] {
				registration, ok := data.(ScheduleRegistration)
				if !ok {
					continue
				}
				schedule, err := ParseSchedule(registration.Cron)
				if err != nil {
					// validated at binding time; a failure here means the
					// registry was populated without going through Bind
					r.log.Error("invalid schedule in registry; skipping",
						"component", component,
						"method", method,
						"error", err,
					)
					continue
				}
				name := DefaultJobName(component, method)
				jobs = append(jobs, &timerJob{
					name:     name,
					schedule: schedule,
					fn:       fn,
					log:      r.log.With("job", name),
				})
				if r.debug {
					r.log.Debug("timer job registered", "job", name, "schedule", registration.Cron)
				}
			}
		}
	}
	return jobs
}

// wrapWithLocks applies recorded lock guards around the method, innermost
// first, using the registrar's default TTL when the binding left it unset.
func (r *Registrar) wrapWithLocks(component, method string, records []any, fn lock.Method) lock.Method {
	for _, data := range records {
		registration, ok := data.(LockRegistration)
		if !ok {
			continue
		}
		opts := registration.Options
		if opts.LockTimeout <= 0 {
			opts.LockTimeout = r.config.DefaultLockTTL
		}
		fn = lock.Guard(r.resolver, r.cache, opts, r.log.With("job", DefaultJobName(component, method)), fn)
	}
	return fn
}

// resolveMethod binds a named method on the instance to the scheduler
// calling convention. Supported signatures are func(context.Context) error
// and func() error; anything else is treated as not callable.
func resolveMethod(instance any, name string) (lock.Method, bool) {
	value := reflect.ValueOf(instance)
	if !value.IsValid() {
		return nil, false
	}
	method := value.MethodByName(name)
	if !method.IsValid() {
		return nil, false
	}

	switch target := method.Interface().(type) {
	case func(context.Context) error:
		return target, true
	case func() error:
		return func(context.Context) error { return target() }, true
	default:
		return nil, false
	}
}

// timerJob is one recurring scheduled invocation bound to a live instance
// method. Firings of the same job never overlap: the loop arms the next
// timer only after the previous firing, including any lock wait, has
// finished. Distinct jobs run on independent goroutines and never block
// one another.
type timerJob struct {
	name     string
	schedule *Schedule
	fn       lock.Method
	log      logger.Logger
}

func (j *timerJob) run(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	now := time.Now()
	for {
		next, err := j.schedule.Next(now)
		if err != nil {
			j.log.Error("timer job has invalid schedule", "error", err)
			return
		}

		wait := time.Until(next)
		if wait < 0 {
			wait = 0
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		j.fire(ctx)
		now = next
	}
}

// fire runs one invocation. Errors and panics are terminal for this firing
// only; the timer keeps running.
func (j *timerJob) fire(ctx context.Context) {
	start := time.Now()
	j.log.Info("job firing")
	incrementFiringInFlight(j.name)
	defer decrementFiringInFlight(j.name)

	defer func() {
		if recovered := recover(); recovered != nil {
			recordFiring(j.name, "panic")
			j.log.Error("job panicked", "panic", fmt.Sprintf("%v", recovered))
		}
	}()

	err := j.fn(logger.ContextWithJobName(ctx, j.name))
	if err != nil {
		recordFiring(j.name, "error")
		j.log.Error("job failed", "duration", time.Since(start), "error", err)
		return
	}
	recordFiring(j.name, "ok")
	j.log.Info("job completed", "duration", time.Since(start))
}

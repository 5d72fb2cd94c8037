package health

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"
)

type staticChecker struct {
	name   string
	status Status
}

func (c staticChecker) Check(context.Context) CheckResult {
	return CheckResult{Name: c.name, Status: c.status, Timestamp: time.Now()}
}

func (c staticChecker) Name() string { return c.name }

func TestRegistryAggregatesAllHealthy(t *testing.T) {
	registry := NewRegistry()
	registry.Register(staticChecker{name: "redis", status: StatusHealthy})
	registry.Register(staticChecker{name: "scheduler", status: StatusHealthy})

	result := registry.Check(context.Background())
	if !result.IsHealthy() {
		t.Errorf("expected healthy aggregate, got %s", result.Status)
	}
	if len(result.Checks) != 2 {
		t.Errorf("expected 2 check results, got %d", len(result.Checks))
	}
}

func TestRegistryAnyFailureIsUnhealthy(t *testing.T) {
	registry := NewRegistry()
	registry.Register(staticChecker{name: "redis", status: StatusHealthy})
	registry.Register(staticChecker{name: "scheduler", status: StatusUnhealthy})

	if result := registry.Check(context.Background()); result.IsHealthy() {
		t.Error("a failing check must make the aggregate unhealthy")
	}
}

func TestRegistryCheckOne(t *testing.T) {
	registry := NewRegistry()
	registry.Register(staticChecker{name: "redis", status: StatusHealthy})

	result, err := registry.CheckOne(context.Background(), "redis")
	if err != nil {
		t.Fatalf("check one: %v", err)
	}
	if result.Name != "redis" || result.Status != StatusHealthy {
		t.Errorf("unexpected result %+v", result)
	}

	if _, err := registry.CheckOne(context.Background(), "ghost"); err == nil {
		t.Error("expected an error for an unknown check")
	}
}

func TestRegistryRegisterReplacesAndUnregisters(t *testing.T) {
	registry := NewRegistry()
	registry.Register(staticChecker{name: "redis", status: StatusUnhealthy})
	registry.Register(staticChecker{name: "redis", status: StatusHealthy})

	result, err := registry.CheckOne(context.Background(), "redis")
	if err != nil {
		t.Fatalf("check one: %v", err)
	}
	if result.Status != StatusHealthy {
		t.Error("re-registering a name must replace the checker")
	}

	registry.Unregister("redis")
	if names := registry.List(); len(names) != 0 {
		t.Errorf("expected empty registry, got %v", names)
	}
}

func TestRegistryList(t *testing.T) {
	registry := NewRegistry()
	registry.Register(staticChecker{name: "b"})
	registry.Register(staticChecker{name: "a"})

	names := registry.List()
	sort.Strings(names)
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("unexpected names %v", names)
	}
}

type checkableFunc func(ctx context.Context) error

func (f checkableFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

func TestAdapterCheckerTranslatesErrors(t *testing.T) {
	healthy := NewAdapterChecker("up", checkableFunc(func(context.Context) error {
		return nil
	}), 0)
	if result := healthy.Check(context.Background()); result.Status != StatusHealthy {
		t.Errorf("expected healthy, got %+v", result)
	}

	down := NewAdapterChecker("down", checkableFunc(func(context.Context) error {
		return errors.New("connection refused")
	}), 0)
	result := down.Check(context.Background())
	if result.Status != StatusUnhealthy || result.Error != "connection refused" {
		t.Errorf("expected unhealthy with error, got %+v", result)
	}
}

func TestAdapterCheckerAppliesTimeout(t *testing.T) {
	slow := NewAdapterChecker("slow", checkableFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}), 50*time.Millisecond)

	start := time.Now()
	result := slow.Check(context.Background())
	if result.Status != StatusUnhealthy {
		t.Errorf("expected unhealthy on timeout, got %+v", result)
	}
	if time.Since(start) > time.Second {
		t.Error("checker did not enforce its timeout")
	}
}

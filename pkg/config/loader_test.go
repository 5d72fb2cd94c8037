package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := NewViperLoader("", "CRONGUARD").Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Service.Name != "cronguard" {
		t.Errorf("unexpected service name %q", cfg.Service.Name)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("unexpected logging defaults %+v", cfg.Logging)
	}
	if cfg.Scheduler.DefaultLockTTL != 30*time.Second {
		t.Errorf("unexpected default lock ttl %v", cfg.Scheduler.DefaultLockTTL)
	}
	if _, ok := cfg.LockBackend(); ok {
		t.Error("no backend host is configured, LockBackend must report absence")
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
service:
  name: billing-worker
logging:
  level: debug
  format: console
redis:
  host: redis.internal
  port: 6380
  db: 2
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := NewViperLoader(path, "CRONGUARD").Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Service.Name != "billing-worker" {
		t.Errorf("unexpected service name %q", cfg.Service.Name)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("unexpected log level %q", cfg.Logging.Level)
	}
	backend, ok := cfg.LockBackend()
	if !ok {
		t.Fatal("expected a lock backend")
	}
	if backend.Addr() != "redis.internal:6380" || backend.DB != 2 {
		t.Errorf("unexpected backend %+v", backend)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("logging:\n  level: warn\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CRONGUARD_LOG_LEVEL", "error")
	t.Setenv("CRONGUARD_REDIS_HOST", "override.internal")

	cfg, err := NewViperLoader(path, "CRONGUARD").Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Logging.Level != "error" {
		t.Errorf("environment must win over file, got level %q", cfg.Logging.Level)
	}
	if cfg.Redis.Host != "override.internal" {
		t.Errorf("environment must populate nested fields, got host %q", cfg.Redis.Host)
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := NewViperLoader("/nonexistent/config.yaml", "CRONGUARD").Load(); err == nil {
		t.Error("expected an error for a missing config file")
	}
}

func TestLockBackendPrecedence(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Redis.Host = "fallback"
	cfg.SchedulerLock = LockBackendConfig{Host: "dedicated", Port: 6379}

	backend, ok := cfg.LockBackend()
	if !ok || backend.Host != "dedicated" {
		t.Errorf("scheduler_lock must win over redis, got %+v ok=%v", backend, ok)
	}

	cfg.SchedulerLock = LockBackendConfig{}
	backend, ok = cfg.LockBackend()
	if !ok || backend.Host != "fallback" {
		t.Errorf("redis must be the fallback backend, got %+v ok=%v", backend, ok)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	loader := NewViperLoader("", "CRONGUARD")

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty service name", func(c *Config) { c.Service.Name = " " }},
		{"unknown log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"unknown log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"negative lock ttl", func(c *Config) { c.Scheduler.DefaultLockTTL = -time.Second }},
		{"backend port out of range", func(c *Config) {
			c.Redis.Host = "localhost"
			c.Redis.Port = 70000
		}},
		{"negative backend db", func(c *Config) {
			c.Redis.Host = "localhost"
			c.Redis.DB = -1
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			if err := loader.Validate(cfg); err == nil {
				t.Error("expected a validation error")
			}
		})
	}

	if err := loader.Validate(DefaultConfig()); err != nil {
		t.Errorf("default config must validate, got %v", err)
	}
}

func TestLockBackendKeyIdentity(t *testing.T) {
	a := LockBackendConfig{Host: "h", Port: 6379, DB: 1, Prefix: "x"}
	b := LockBackendConfig{Host: "h", Port: 6379, DB: 1, Prefix: "y"}
	c := LockBackendConfig{Host: "h", Port: 6379, DB: 2}

	// the prefix is not part of the connection identity
	if a.Key() != b.Key() {
		t.Errorf("expected equal keys, got %q and %q", a.Key(), b.Key())
	}
	if a.Key() == c.Key() {
		t.Errorf("different databases must not share a pooled client, key %q", a.Key())
	}
}

package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure for the scheduling runtime.
type Config struct {
	Service   ServiceConfig   `mapstructure:"service"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`

	// SchedulerLock and Redis are the two recognized lock backend
	// namespaces. SchedulerLock wins when both are set.
	SchedulerLock LockBackendConfig `mapstructure:"scheduler_lock"`
	Redis         LockBackendConfig `mapstructure:"redis"`
}

// ServiceConfig configures service identity metadata.
type ServiceConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SchedulerConfig controls scheduler runtime behavior.
type SchedulerConfig struct {
	DefaultLockTTL  time.Duration `mapstructure:"default_lock_ttl"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LockBackendConfig describes one distributed lock backend connection.
type LockBackendConfig struct {
	Host             string        `mapstructure:"host"`
	Port             int           `mapstructure:"port"`
	Password         string        `mapstructure:"password"`
	DB               int           `mapstructure:"db"`
	Prefix           string        `mapstructure:"prefix"`
	OperationTimeout time.Duration `mapstructure:"operation_timeout"`
}

// IsZero reports whether the backend was left unconfigured.
func (c LockBackendConfig) IsZero() bool {
	return strings.TrimSpace(c.Host) == ""
}

// Addr returns the host:port dial address.
func (c LockBackendConfig) Addr() string {
	return fmt.Sprintf("%s:%d", strings.TrimSpace(c.Host), c.Port)
}

// Key returns the identity under which connections to this backend are
// pooled. Two configs with the same key share one client.
func (c LockBackendConfig) Key() string {
	return fmt.Sprintf("%s/%d/%s", c.Addr(), c.DB, c.Password)
}

// LockBackend resolves the effective lock backend configuration. The
// scheduler_lock namespace is consulted first, then redis; the first one
// with a host set wins.
func (c *Config) LockBackend() (LockBackendConfig, bool) {
	if !c.SchedulerLock.IsZero() {
		return c.SchedulerLock, true
	}
	if !c.Redis.IsZero() {
		return c.Redis, true
	}
	return LockBackendConfig{}, false
}

// DefaultConfig returns the baseline configuration before file and
// environment overrides.
func DefaultConfig() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:        "cronguard",
			Environment: "development",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Scheduler: SchedulerConfig{
			DefaultLockTTL:  30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Redis: LockBackendConfig{
			Port:             6379,
			OperationTimeout: 3 * time.Second,
		},
	}
}

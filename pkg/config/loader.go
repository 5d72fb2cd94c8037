package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Loader defines the interface for loading configuration
type Loader interface {
	Load() (*Config, error)
	Validate(*Config) error
}

// ViperLoader implements Loader using Viper for configuration management
type ViperLoader struct {
	configFile string
	envPrefix  string
}

// NewViperLoader creates a new ViperLoader.
// configFile: path to configuration file (optional, can be empty)
// envPrefix: prefix for environment variables (e.g., "CRONGUARD")
func NewViperLoader(configFile, envPrefix string) *ViperLoader {
	return &ViperLoader{
		configFile: configFile,
		envPrefix:  envPrefix,
	}
}

// ConfigFile returns the path to the config file that will be loaded, or
// empty string if none.
func (l *ViperLoader) ConfigFile() string {
	if l == nil {
		return ""
	}
	return l.configFile
}

// Load loads configuration with precedence: ENV > file > defaults
func (l *ViperLoader) Load() (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	l.setDefaults(v, defaults)

	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", l.configFile, err)
		}
	}

	// Environment variables override file config through explicit bindings.
	v.SetEnvPrefix(l.envPrefix)
	l.bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := l.Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func (l *ViperLoader) setDefaults(v *viper.Viper, defaults *Config) {
	v.SetDefault("service.name", defaults.Service.Name)
	v.SetDefault("service.environment", defaults.Service.Environment)

	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.format", defaults.Logging.Format)

	v.SetDefault("scheduler.default_lock_ttl", defaults.Scheduler.DefaultLockTTL)
	v.SetDefault("scheduler.shutdown_timeout", defaults.Scheduler.ShutdownTimeout)

	v.SetDefault("redis.port", defaults.Redis.Port)
	v.SetDefault("redis.operation_timeout", defaults.Redis.OperationTimeout)
}

// bindEnvVars explicitly binds environment variables for nested structs
func (l *ViperLoader) bindEnvVars(v *viper.Viper) {
	v.BindEnv("service.name", l.prefixedEnv("SERVICE_NAME"))
	v.BindEnv("service.environment", l.prefixedEnv("SERVICE_ENVIRONMENT"), l.prefixedEnv("ENVIRONMENT"))

	v.BindEnv("logging.level", l.prefixedEnv("LOG_LEVEL"))
	v.BindEnv("logging.format", l.prefixedEnv("LOG_FORMAT"))

	v.BindEnv("scheduler.default_lock_ttl", l.prefixedEnv("SCHEDULER_DEFAULT_LOCK_TTL"))
	v.BindEnv("scheduler.shutdown_timeout", l.prefixedEnv("SCHEDULER_SHUTDOWN_TIMEOUT"))

	v.BindEnv("scheduler_lock.host", l.prefixedEnv("SCHEDULER_LOCK_HOST"))
	v.BindEnv("scheduler_lock.port", l.prefixedEnv("SCHEDULER_LOCK_PORT"))
	v.BindEnv("scheduler_lock.password", l.prefixedEnv("SCHEDULER_LOCK_PASSWORD"))
	v.BindEnv("scheduler_lock.db", l.prefixedEnv("SCHEDULER_LOCK_DB"))
	v.BindEnv("scheduler_lock.prefix", l.prefixedEnv("SCHEDULER_LOCK_PREFIX"))
	v.BindEnv("scheduler_lock.operation_timeout", l.prefixedEnv("SCHEDULER_LOCK_OPERATION_TIMEOUT"))

	v.BindEnv("redis.host", l.prefixedEnv("REDIS_HOST"))
	v.BindEnv("redis.port", l.prefixedEnv("REDIS_PORT"))
	v.BindEnv("redis.password", l.prefixedEnv("REDIS_PASSWORD"))
	v.BindEnv("redis.db", l.prefixedEnv("REDIS_DB"))
	v.BindEnv("redis.prefix", l.prefixedEnv("REDIS_PREFIX"))
	v.BindEnv("redis.operation_timeout", l.prefixedEnv("REDIS_OPERATION_TIMEOUT"))
}

func (l *ViperLoader) prefixedEnv(name string) string {
	if l.envPrefix == "" {
		return name
	}
	return l.envPrefix + "_" + name
}

// Validate checks configuration invariants that would otherwise surface as
// confusing runtime failures.
func (l *ViperLoader) Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	if strings.TrimSpace(cfg.Service.Name) == "" {
		return fmt.Errorf("service.name must not be empty")
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", cfg.Logging.Level)
	}
	switch cfg.Logging.Format {
	case "json", "text", "console":
	default:
		return fmt.Errorf("logging.format %q is not one of json, text", cfg.Logging.Format)
	}

	if cfg.Scheduler.DefaultLockTTL < 0 {
		return fmt.Errorf("scheduler.default_lock_ttl must not be negative")
	}
	if cfg.Scheduler.ShutdownTimeout < 0 {
		return fmt.Errorf("scheduler.shutdown_timeout must not be negative")
	}

	for _, backend := range []struct {
		name string
		cfg  LockBackendConfig
	}{
		{"scheduler_lock", cfg.SchedulerLock},
		{"redis", cfg.Redis},
	} {
		if backend.cfg.IsZero() {
			continue
		}
		if backend.cfg.Port <= 0 || backend.cfg.Port > 65535 {
			return fmt.Errorf("%s.port %d is out of range", backend.name, backend.cfg.Port)
		}
		if backend.cfg.DB < 0 {
			return fmt.Errorf("%s.db must not be negative", backend.name)
		}
		if backend.cfg.OperationTimeout < 0 {
			return fmt.Errorf("%s.operation_timeout must not be negative", backend.name)
		}
	}

	return nil
}

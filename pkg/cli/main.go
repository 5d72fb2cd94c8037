package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/cronguard/cronguard/pkg/app"
	"github.com/cronguard/cronguard/pkg/config"
	"github.com/cronguard/cronguard/pkg/lock"
	"github.com/cronguard/cronguard/pkg/metadata"
	"github.com/cronguard/cronguard/pkg/observability/logger"
	"github.com/cronguard/cronguard/pkg/scheduler"
	"github.com/cronguard/cronguard/pkg/version"
)

// ServiceCommandOptions defines callbacks for service-specific logic.
type ServiceCommandOptions struct {
	Name        string
	Description string
	ConfigPath  string
	EnvPrefix   string

	// Required: defines components, registers live instances, and records
	// schedule/lock bindings. Runs during startup, before the ready gate
	// fires.
	ConfigureScheduler func(cfg *config.Config, log logger.Logger, registry *metadata.Registry, container *app.Container) error

	// Optional: override the lock provider factory (useful for tests and
	// custom backends).
	LockProviderFactory lock.ProviderFactory

	// Optional: additional custom commands
	CustomCommands []*cobra.Command
}

// NewServiceCommand creates a standardized CLI with run, locks, config,
// and version subcommands.
func NewServiceCommand(opts ServiceCommandOptions) *cobra.Command {
	if opts.EnvPrefix == "" {
		opts.EnvPrefix = "CRONGUARD"
	}

	rootCmd := &cobra.Command{
		Use:   opts.Name,
		Short: opts.Description,
	}

	var cfgPath string
	bindRootFlags(rootCmd.PersistentFlags(), &cfgPath, opts.ConfigPath)

	loadConfig := func() (*config.Config, logger.Logger, error) {
		return loadConfigAndLogger(cfgPath, opts.EnvPrefix)
	}

	rootCmd.AddCommand(newRunCommand(opts, loadConfig))
	rootCmd.AddCommand(newLocksCommand(opts, loadConfig))
	rootCmd.AddCommand(newConfigCommand(loadConfig))
	rootCmd.AddCommand(newVersionCommand(opts.Name))
	rootCmd.AddCommand(opts.CustomCommands...)

	return rootCmd
}

func bindRootFlags(flags *pflag.FlagSet, cfgPath *string, defaultPath string) {
	flags.StringVarP(cfgPath, "config-file", "c", defaultPath, "config file path")
}

func loadConfigAndLogger(cfgPath, envPrefix string) (*config.Config, logger.Logger, error) {
	cfg, err := config.NewViperLoader(cfgPath, envPrefix).Load()
	if err != nil {
		return nil, nil, err
	}

	level, err := logger.ParseLogLevel(cfg.Logging.Level)
	if err != nil {
		return nil, nil, err
	}
	format, err := logger.ParseLogFormat(cfg.Logging.Format)
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.NewZapLogger(logger.Config{Level: level, Format: format})
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func newRunCommand(opts ServiceCommandOptions, loadConfig func() (*config.Config, logger.Logger, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the scheduler and run until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			if opts.ConfigureScheduler == nil {
				return fmt.Errorf("no scheduler configuration callback provided")
			}

			registry := metadata.NewRegistry()
			container := app.NewContainer()
			if err := opts.ConfigureScheduler(cfg, log, registry, container); err != nil {
				return err
			}

			cache := lock.NewProviderCache(opts.LockProviderFactory, log)
			defer cache.Close()

			registrar, err := scheduler.NewRegistrar(registry, container, cfg, cache, log, scheduler.Config{
				DefaultLockTTL:  cfg.Scheduler.DefaultLockTTL,
				ShutdownTimeout: cfg.Scheduler.ShutdownTimeout,
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			gate := app.NewReadyGate()
			registrar.WireReady(ctx, gate)

			log.Info("service starting",
				"service", cfg.Service.Name,
				"environment", cfg.Service.Environment,
				"version", version.Current(opts.Name).String(),
			)
			gate.Fire()

			<-ctx.Done()
			return registrar.Stop(context.Background())
		},
	}
}

func newLocksCommand(opts ServiceCommandOptions, loadConfig func() (*config.Config, logger.Logger, error)) *cobra.Command {
	locksCmd := &cobra.Command{
		Use:   "locks",
		Short: "Distributed lock backend utilities",
	}

	locksCmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Verify connectivity to the configured lock backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			backend, ok := cfg.LockBackend()
			if !ok {
				return fmt.Errorf("no lock backend configured under scheduler_lock or redis")
			}

			cache := lock.NewProviderCache(opts.LockProviderFactory, log)
			defer cache.Close()

			provider, err := cache.Get(backend)
			if err != nil {
				return fmt.Errorf("lock backend %s unreachable: %w", backend.Addr(), err)
			}
			if err := provider.HealthCheck(cmd.Context()); err != nil {
				return fmt.Errorf("lock backend %s unhealthy: %w", backend.Addr(), err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "lock backend %s healthy\n", backend.Addr())
			return nil
		},
	})

	return locksCmd
}

func newConfigCommand(loadConfig func() (*config.Config, logger.Logger, error)) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}

			redacted := *cfg
			redacted.SchedulerLock.Password = redactSecret(redacted.SchedulerLock.Password)
			redacted.Redis.Password = redactSecret(redacted.Redis.Password)

			out, err := yaml.Marshal(redacted)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), string(out))
			return nil
		},
	})

	return configCmd
}

func newVersionCommand(serviceName string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Current(serviceName).String())
		},
	}
}

func redactSecret(value string) string {
	if value == "" {
		return ""
	}
	return "***"
}

// Execute runs the root command and exits non-zero on error.
func Execute(rootCmd *cobra.Command) {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

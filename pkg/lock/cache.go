package lock

import (
	"errors"
	"sync"

	"github.com/cronguard/cronguard/pkg/config"
	"github.com/cronguard/cronguard/pkg/observability/logger"
)

// ProviderFactory builds a provider for one backend configuration.
type ProviderFactory func(cfg config.LockBackendConfig, log logger.Logger) (Provider, error)

// ProviderCache pools lock providers by backend identity so that all jobs
// sharing a backend reuse one connection pool instead of reopening per
// call. The cache is process-scoped and safe for concurrent use; Reset
// exists so tests can start from a clean slate.
type ProviderCache struct {
	mu        sync.Mutex
	factory   ProviderFactory
	providers map[string]Provider
	log       logger.Logger
}

// NewProviderCache creates a provider cache. A nil factory defaults to
// Redis-backed providers.
func NewProviderCache(factory ProviderFactory, log logger.Logger) *ProviderCache {
	if factory == nil {
		factory = func(cfg config.LockBackendConfig, log logger.Logger) (Provider, error) {
			return NewRedisProvider(cfg, log)
		}
	}
	return &ProviderCache{
		factory:   factory,
		providers: map[string]Provider{},
		log:       log,
	}
}

// Get returns the pooled provider for the backend, creating it on first
// use.
func (c *ProviderCache) Get(cfg config.LockBackendConfig) (Provider, error) {
	if c == nil {
		return nil, lockError(ErrNotInitialized, "provider cache is not initialized")
	}
	if cfg.IsZero() {
		return nil, lockError(ErrConfiguration, "lock backend host is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	key := cfg.Key()
	if provider, ok := c.providers[key]; ok {
		return provider, nil
	}

	provider, err := c.factory(cfg, c.log)
	if err != nil {
		return nil, err
	}
	c.providers[key] = provider
	return provider, nil
}

// Reset closes and discards all pooled providers.
func (c *ProviderCache) Reset() {
	if c == nil {
		return
	}
	c.mu.Lock()
	providers := c.providers
	c.providers = map[string]Provider{}
	c.mu.Unlock()

	for _, provider := range providers {
		if err := provider.Close(); err != nil && c.log != nil {
			c.log.Warn("closing pooled lock provider failed", "error", err)
		}
	}
}

// Close closes all pooled providers and returns the joined errors.
func (c *ProviderCache) Close() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	providers := c.providers
	c.providers = map[string]Provider{}
	c.mu.Unlock()

	var errs []error
	for _, provider := range providers {
		if err := provider.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Size returns the number of pooled providers.
func (c *ProviderCache) Size() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.providers)
}

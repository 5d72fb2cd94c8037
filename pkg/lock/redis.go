package lock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cronguard/cronguard/pkg/config"
	"github.com/cronguard/cronguard/pkg/observability/logger"
)

const (
	defaultRedisPrefix           = "cronguard:lock"
	defaultRedisOperationTimeout = 3 * time.Second
)

var (
	releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

	renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)
)

// RedisProvider is a distributed lock provider using Redis SET NX PX
// semantics. Key expiry is enforced by the server, not by client
// bookkeeping.
type RedisProvider struct {
	client  *redis.Client
	log     logger.Logger
	prefix  string
	timeout time.Duration
}

// NewRedisProvider creates a Redis-backed lock provider and verifies
// connectivity.
func NewRedisProvider(cfg config.LockBackendConfig, log logger.Logger) (*RedisProvider, error) {
	if log == nil {
		return nil, lockError(ErrInvalidArgument, "logger is required")
	}
	if cfg.IsZero() {
		return nil, lockError(ErrConfiguration, "lock backend host is required")
	}

	prefix := strings.TrimSpace(cfg.Prefix)
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	timeout := cfg.OperationTimeout
	if timeout <= 0 {
		timeout = defaultRedisOperationTimeout
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Join(lockError(ErrRetryable, "ping redis failed"), err)
	}

	return &RedisProvider{
		client:  client,
		log:     log,
		prefix:  prefix,
		timeout: timeout,
	}, nil
}

// Acquire attempts to take the lock key once with the given TTL.
func (p *RedisProvider) Acquire(ctx context.Context, key string, ttl time.Duration) (*Lease, bool, error) {
	if p == nil || p.client == nil {
		return nil, false, lockError(ErrNotInitialized, "redis lock provider is not initialized")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, false, lockError(ErrInvalidArgument, "lock key is required")
	}
	if ttl <= 0 {
		return nil, false, lockError(ErrInvalidArgument, "ttl must be > 0")
	}

	token := randomToken()

	opCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	acquired, err := p.client.SetNX(opCtx, p.fullKey(key), token, ttl).Result()
	if err != nil {
		return nil, false, errors.Join(lockError(ErrRetryable, "acquire lock failed"), err)
	}
	if !acquired {
		return nil, false, nil
	}

	return &Lease{
		Key:      key,
		Token:    token,
		ExpireAt: time.Now().UTC().Add(ttl),
	}, true, nil
}

// Renew extends lock expiry when the lease token still matches.
func (p *RedisProvider) Renew(ctx context.Context, lease *Lease, ttl time.Duration) error {
	if p == nil || p.client == nil {
		return lockError(ErrNotInitialized, "redis lock provider is not initialized")
	}
	if lease == nil {
		return lockError(ErrInvalidArgument, "lease is required")
	}
	if ttl <= 0 {
		return lockError(ErrInvalidArgument, "ttl must be > 0")
	}
	key := strings.TrimSpace(lease.Key)
	token := strings.TrimSpace(lease.Token)
	if key == "" || token == "" {
		return lockError(ErrInvalidArgument, "lease key and token are required")
	}

	opCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	result, err := renewScript.Run(opCtx, p.client, []string{p.fullKey(key)}, token, ttl.Milliseconds()).Int64()
	if err != nil {
		return errors.Join(lockError(ErrRetryable, "renew lock failed"), err)
	}
	if result == 0 {
		return lockError(ErrConflict, "lock renew rejected")
	}

	lease.ExpireAt = time.Now().UTC().Add(ttl)
	return nil
}

// Release unlocks the key if the lease token matches.
func (p *RedisProvider) Release(ctx context.Context, lease *Lease) error {
	if p == nil || p.client == nil {
		return lockError(ErrNotInitialized, "redis lock provider is not initialized")
	}
	if lease == nil {
		return lockError(ErrInvalidArgument, "lease is required")
	}
	key := strings.TrimSpace(lease.Key)
	token := strings.TrimSpace(lease.Token)
	if key == "" || token == "" {
		return lockError(ErrInvalidArgument, "lease key and token are required")
	}

	opCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	result, err := releaseScript.Run(opCtx, p.client, []string{p.fullKey(key)}, token).Int64()
	if err != nil {
		return errors.Join(lockError(ErrRetryable, "release lock failed"), err)
	}
	if result == 0 {
		return lockError(ErrConflict, "lock release rejected")
	}
	return nil
}

// HealthCheck verifies Redis connectivity.
func (p *RedisProvider) HealthCheck(ctx context.Context) error {
	if p == nil || p.client == nil {
		return lockError(ErrNotInitialized, "redis lock provider is not initialized")
	}
	opCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.client.Ping(opCtx).Err(); err != nil {
		return errors.Join(lockError(ErrRetryable, "redis healthcheck failed"), err)
	}
	return nil
}

// Close closes Redis client connections.
func (p *RedisProvider) Close() error {
	if p == nil || p.client == nil {
		return nil
	}
	return p.client.Close()
}

func (p *RedisProvider) fullKey(key string) string {
	return strings.TrimRight(p.prefix, ":") + ":" + strings.TrimSpace(key)
}

func randomToken() string {
	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(raw)
}

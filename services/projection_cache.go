package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"lead_flow_app_go/config"
	"lead_flow_app_go/logger"

	"github.com/redis/go-redis/v9"
)

const (
	projectionKeyPrefix  = "lead_flow:renewals"
	projectionVersionKey = projectionKeyPrefix + ":version"
	cacheCallTimeout     = 2 * time.Second
)

// ProjectionCache stores serialized renewal projections. Failures are logged
// and treated as misses; the database stays the source of truth.
type ProjectionCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte)
	// Invalidate drops every cached projection
	Invalidate(ctx context.Context)
}

// Projections is the global projection cache
var Projections ProjectionCache = NewMemoryCache(5 * time.Minute)

// InitializeProjectionCache selects Redis when configured and reachable
func InitializeProjectionCache(cfg *config.Config) {
	if cfg.RedisAddr == "" {
		Projections = NewMemoryCache(cfg.CacheTTL)
		logger.L.Info("projection cache initialized", "provider", "memory")
		return
	}

	rc, err := NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.CacheTTL)
	if err != nil {
		logger.L.Warn("redis unavailable, using in-memory projection cache", "error", err)
		Projections = NewMemoryCache(cfg.CacheTTL)
		return
	}
	Projections = rc
	logger.L.Info("projection cache initialized", "provider", "redis", "addr", cfg.RedisAddr)
}

// CloseProjectionCache releases the connection of a cache that holds one
func CloseProjectionCache() error {
	closer, ok := Projections.(io.Closer)
	if !ok {
		return nil
	}
	if err := closer.Close(); err != nil {
		logger.L.Warn("failed to close projection cache", "error", err)
		return err
	}
	return nil
}

// RedisCache keeps projections in Redis. Keys embed a version counter so that
// invalidation is a single INCR.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to Redis and verifies the connection
func NewRedisCache(addr, password string, db int, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisCache{client: client, ttl: ttl}, nil
}

func (r *RedisCache) versionedKey(ctx context.Context, key string) (string, error) {
	version, err := r.client.Get(ctx, projectionVersionKey).Result()
	if errors.Is(err, redis.Nil) {
		version = "0"
	} else if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:v%s:%s", projectionKeyPrefix, version, key), nil
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(ctx, cacheCallTimeout)
	defer cancel()

	k, err := r.versionedKey(ctx, key)
	if err != nil {
		logger.L.Warn("projection cache read failed", "error", err)
		return nil, false
	}
	val, err := r.client.Get(ctx, k).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.L.Warn("projection cache read failed", "error", err)
		}
		return nil, false
	}
	return val, true
}

func (r *RedisCache) Set(ctx context.Context, key string, value []byte) {
	ctx, cancel := context.WithTimeout(ctx, cacheCallTimeout)
	defer cancel()

	k, err := r.versionedKey(ctx, key)
	if err != nil {
		logger.L.Warn("projection cache write failed", "error", err)
		return
	}
	if err := r.client.Set(ctx, k, value, r.ttl).Err(); err != nil {
		logger.L.Warn("projection cache write failed", "error", err)
	}
}

func (r *RedisCache) Invalidate(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, cacheCallTimeout)
	defer cancel()

	if err := r.client.Incr(ctx, projectionVersionKey).Err(); err != nil {
		logger.L.Error("projection cache invalidation failed", "error", err)
	}
}

// Close closes the Redis connection
func (r *RedisCache) Close() error {
	return r.client.Close()
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryCache is the in-process fallback used without Redis and in tests
type MemoryCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]memoryEntry
}

// NewMemoryCache creates an empty in-process cache
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &MemoryCache{ttl: ttl, entries: make(map[string]memoryEntry)}
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[key]
	if !ok || time.Now().After(e.expiresAt) {
		return nil, false
	}
	return e.value, true
}

func (m *MemoryCache) Set(_ context.Context, key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memoryEntry{value: value, expiresAt: time.Now().Add(m.ttl)}
}

func (m *MemoryCache) Invalidate(_ context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]memoryEntry)
}

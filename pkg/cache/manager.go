package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"socialfetch/pkg/logger"
	"socialfetch/pkg/metrics"
)

var (
	// ErrCacheMiss indicates the requested key was not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is invalid or corrupted
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Manager stores API responses in Redis with a fixed TTL.
type Manager struct {
	redis  *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

// NewManager creates a cache manager. A non-positive ttl disables writes.
func NewManager(redisClient *redis.Client, ttl time.Duration, log logger.Logger) *Manager {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Manager{redis: redisClient, ttl: ttl, logger: log}
}

// Connect dials addr and verifies the server answers PING.
func Connect(ctx context.Context, addr string, db int, ttl time.Duration, log logger.Logger) (*Manager, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}

	return NewManager(client, ttl, log), nil
}

// Close releases the Redis connection pool.
func (m *Manager) Close() error {
	return m.redis.Close()
}

// Get retrieves an entry. Returns ErrCacheMiss if the key doesn't exist or expired.
func (m *Manager) Get(ctx context.Context, key Key) (*Entry, error) {
	data, err := m.redis.Get(ctx, key.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			metrics.CacheMisses.Inc()
			return nil, ErrCacheMiss
		}
		metrics.CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		metrics.CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	if entry.IsExpired() {
		_ = m.Delete(ctx, key)
		metrics.CacheMisses.Inc()
		return nil, ErrCacheMiss
	}

	metrics.CacheHits.Inc()
	return &entry, nil
}

// Set stores an entry until its Expires time. Entries without one get the
// manager TTL.
func (m *Manager) Set(ctx context.Context, key Key, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}

	if entry.CachedAt.IsZero() {
		entry.CachedAt = time.Now()
	}
	if entry.Expires.IsZero() {
		if m.ttl <= 0 {
			return nil
		}
		entry.Expires = entry.CachedAt.Add(m.ttl)
	}

	ttl := entry.TTL()
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		metrics.CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := m.redis.Set(ctx, key.String(), data, ttl).Err(); err != nil {
		metrics.CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete removes an entry.
func (m *Manager) Delete(ctx context.Context, key Key) error {
	if err := m.redis.Del(ctx, key.String()).Err(); err != nil {
		metrics.CacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Lookup returns the cached body for key, treating any failure as a miss.
func (m *Manager) Lookup(ctx context.Context, key Key) ([]byte, bool) {
	entry, err := m.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			m.logger.WithError(err).Warn("Cache lookup failed")
		}
		return nil, false
	}
	m.logger.DebugWithFields("Cache hit", map[string]interface{}{"key": key.String()})
	return entry.Data, true
}

// Store caches a successful response body; failures are logged and dropped.
func (m *Manager) Store(ctx context.Context, key Key, body []byte, contentType string) {
	entry := &Entry{Data: body, StatusCode: 200, ContentType: contentType}
	if err := m.Set(ctx, key, entry); err != nil {
		m.logger.WithError(err).Warn("Cache store failed")
	}
}

package kvstore

import (
	"context"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/outfitwx/platform/internal/core/domain"
)

// MemoryStore implements ports.KVStore over github.com/patrickmn/go-cache,
// used as a local fallback when Redis is unavailable or for tests.
type MemoryStore struct {
	cache  *gocache.Cache
	logger *zap.Logger
}

// NewMemoryStore creates an in-memory KV store with the given default TTL
// and expired-item cleanup interval.
func NewMemoryStore(defaultTTL, cleanupInterval time.Duration, logger *zap.Logger) *MemoryStore {
	return &MemoryStore{
		cache:  gocache.New(defaultTTL, cleanupInterval),
		logger: logger,
	}
}

// Get retrieves a value by key, returning a NotFound ServiceError on a miss.
func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	tracer := otel.Tracer("kvstore")
	_, span := tracer.Start(ctx, "MemoryStore.Get")
	defer span.End()

	span.SetAttributes(attribute.String("kvstore.key", key))

	if value, found := m.cache.Get(key); found {
		span.SetAttributes(attribute.Bool("kvstore.hit", true))
		m.logger.Debug("memory kv store hit", zap.String("key", key))
		return value.([]byte), nil
	}

	span.SetAttributes(attribute.Bool("kvstore.hit", false))
	m.logger.Debug("memory kv store miss", zap.String("key", key))

	return nil, domain.NewServiceError(domain.KindNotFound, "key not found", nil)
}

// Set stores value under key with the given TTL. A zero TTL means no
// expiration.
func (m *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	tracer := otel.Tracer("kvstore")
	_, span := tracer.Start(ctx, "MemoryStore.Set")
	defer span.End()

	span.SetAttributes(
		attribute.String("kvstore.key", key),
		attribute.Int("kvstore.value_size", len(value)),
	)

	if ttl == 0 {
		ttl = gocache.NoExpiration
	}

	m.cache.Set(key, value, ttl)
	m.logger.Debug("memory kv store set", zap.String("key", key))

	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	tracer := otel.Tracer("kvstore")
	_, span := tracer.Start(ctx, "MemoryStore.Delete")
	defer span.End()

	span.SetAttributes(attribute.String("kvstore.key", key))
	m.cache.Delete(key)

	return nil
}

// Scan returns every key carrying prefix.
func (m *MemoryStore) Scan(ctx context.Context, prefix string) ([]string, error) {
	tracer := otel.Tracer("kvstore")
	_, span := tracer.Start(ctx, "MemoryStore.Scan")
	defer span.End()

	span.SetAttributes(attribute.String("kvstore.prefix", prefix))

	var keys []string
	for key := range m.cache.Items() {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}

	return keys, nil
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close() error {
	return nil
}

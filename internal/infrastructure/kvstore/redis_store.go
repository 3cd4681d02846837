// Package kvstore provides the ports.KVStore implementations backing the
// weather cache and recommendation cache: a Redis-backed distributed store
// and an in-memory fallback, adapted from the teacher's infrastructure/cache
// package and generalized beyond weather-only values.
package kvstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/outfitwx/platform/internal/core/domain"
)

// RedisStore implements ports.KVStore over github.com/go-redis/redis/v8.
type RedisStore struct {
	client *redis.Client
	logger *zap.Logger
}

// RedisConfig holds Redis connection and performance settings.
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	MaxRetries   int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// NewRedisStore creates a new Redis-backed KV store, pinging the server to
// surface connection errors at construction time rather than on first use.
func NewRedisStore(cfg RedisConfig, logger *zap.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, domain.NewServiceError(domain.KindTransientKV, "failed to connect to redis", err)
	}

	return &RedisStore{client: client, logger: logger}, nil
}

// Get retrieves a value by key, returning a NotFound ServiceError on a
// cache miss and a TransientKVFailure on any other redis error.
func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	tracer := otel.Tracer("kvstore")
	ctx, span := tracer.Start(ctx, "KVStore.Get")
	defer span.End()

	span.SetAttributes(attribute.String("kvstore.key", key))

	start := time.Now()
	result, err := r.client.Get(ctx, key).Bytes()
	duration := time.Since(start)

	if errors.Is(err, redis.Nil) {
		span.SetAttributes(attribute.Bool("kvstore.hit", false))
		r.logger.Debug("kv store miss", zap.String("key", key), zap.Duration("duration", duration))
		return nil, domain.NewServiceError(domain.KindNotFound, "key not found", nil)
	}

	if err != nil {
		span.RecordError(err)
		r.logger.Error("kv store get error", zap.String("key", key), zap.Error(err))
		return nil, domain.NewServiceError(domain.KindTransientKV, "redis get failed", err)
	}

	span.SetAttributes(attribute.Bool("kvstore.hit", true))
	r.logger.Debug("kv store hit", zap.String("key", key), zap.Duration("duration", duration))

	return result, nil
}

// Set stores value under key with the given TTL. A zero TTL means no
// expiration.
func (r *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	tracer := otel.Tracer("kvstore")
	ctx, span := tracer.Start(ctx, "KVStore.Set")
	defer span.End()

	span.SetAttributes(
		attribute.String("kvstore.key", key),
		attribute.Int("kvstore.value_size", len(value)),
		attribute.String("kvstore.ttl", ttl.String()),
	)

	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		span.RecordError(err)
		r.logger.Error("kv store set error", zap.String("key", key), zap.Error(err))
		return domain.NewServiceError(domain.KindTransientKV, "redis set failed", err)
	}

	r.logger.Debug("kv store set", zap.String("key", key))

	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (r *RedisStore) Delete(ctx context.Context, key string) error {
	tracer := otel.Tracer("kvstore")
	ctx, span := tracer.Start(ctx, "KVStore.Delete")
	defer span.End()

	span.SetAttributes(attribute.String("kvstore.key", key))

	if err := r.client.Del(ctx, key).Err(); err != nil {
		span.RecordError(err)
		r.logger.Error("kv store delete error", zap.String("key", key), zap.Error(err))
		return domain.NewServiceError(domain.KindTransientKV, "redis delete failed", err)
	}

	return nil
}

// Scan returns every key carrying prefix, using an incremental SCAN cursor
// rather than the blocking KEYS command.
func (r *RedisStore) Scan(ctx context.Context, prefix string) ([]string, error) {
	tracer := otel.Tracer("kvstore")
	ctx, span := tracer.Start(ctx, "KVStore.Scan")
	defer span.End()

	span.SetAttributes(attribute.String("kvstore.prefix", prefix))

	var keys []string
	iter := r.client.Scan(ctx, 0, matchPattern(prefix), 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}

	if err := iter.Err(); err != nil {
		span.RecordError(err)
		return nil, domain.NewServiceError(domain.KindTransientKV, "redis scan failed", err)
	}

	return keys, nil
}

func matchPattern(prefix string) string {
	if strings.HasSuffix(prefix, "*") {
		return prefix
	}
	return prefix + "*"
}

// Close closes the underlying Redis client connection.
func (r *RedisStore) Close() error {
	return r.client.Close()
}

package app

import (
	"github.com/go-redis/redis/v8"

	"github.com/outfitwx/platform/internal/config"
)

// redisClientFor builds a redis.Client directly from configuration for
// components that need the raw client rather than the kvstore.KVStore
// abstraction, such as the rate limiter.
func redisClientFor(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		MaxRetries:   cfg.Redis.MaxRetries,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
}

// Package app provides application-level coordination and dependency
// injection for both binaries, weatherd and recommendd. Each binary gets
// its own composition root (WeatherApp, RecommendApp) so that a deployment
// can run the weather cache and the recommendation engine as independently
// scaled services, per spec.md §1's service-boundary split.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/outfitwx/platform/internal/adapters/primary/rest"
	"github.com/outfitwx/platform/internal/adapters/secondary/openweather"
	"github.com/outfitwx/platform/internal/config"
	"github.com/outfitwx/platform/internal/core/ports"
	"github.com/outfitwx/platform/internal/core/services/weathercache"
	"github.com/outfitwx/platform/internal/infrastructure/circuitbreaker"
	"github.com/outfitwx/platform/internal/infrastructure/database"
	"github.com/outfitwx/platform/internal/infrastructure/kvstore"
	"github.com/outfitwx/platform/internal/infrastructure/ratelimit"
	"github.com/outfitwx/platform/internal/middleware"
	"github.com/outfitwx/platform/internal/observability"
	"github.com/outfitwx/platform/internal/version"
)

// WeatherApp manages the weatherd binary's lifecycle and dependencies:
// the weather cache service, its HTTP surface, and the cross-cutting
// infrastructure (KV store, rate limiting, telemetry, audit database).
type WeatherApp struct {
	cfg       *config.Config
	logger    *zap.Logger
	telemetry *observability.Telemetry
	db        *database.PostgresDB
	kv        ports.KVStore
	cache     *weathercache.Service
	server    *http.Server
}

// NewWeatherApp creates a new weatherd application instance.
func NewWeatherApp() (*WeatherApp, error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return &WeatherApp{cfg: config.Load(), logger: logger}, nil
}

// Start initializes all weatherd components and begins serving HTTP
// traffic. It returns once the listener goroutine has been launched; fatal
// listener errors are logged, not returned.
func (a *WeatherApp) Start(ctx context.Context) error {
	if err := a.cfg.Validate(); err != nil {
		return err
	}

	if err := a.initTelemetry(ctx); err != nil {
		a.logger.Warn("failed to initialize telemetry, continuing without it", zap.Error(err))
	}

	rateLimitService := a.initKVAndRateLimit(ctx)

	if err := a.initDatabase(); err != nil {
		a.logger.Warn("failed to connect to audit database, continuing without it", zap.Error(err))
	}

	provider := a.initWeatherProvider()

	a.cache = weathercache.NewService(a.kv, provider, a.logger,
		weathercache.WithCacheTTL(a.cfg.WeatherCache.CacheDuration),
		weathercache.WithRefreshThreshold(a.cfg.WeatherCache.RefreshThreshold),
		weathercache.WithProximityPrecision(a.cfg.WeatherCache.ProximityPrecision),
		weathercache.WithRefreshInterval(a.cfg.WeatherCache.RefreshInterval),
	)
	a.cache.Start(ctx)

	weatherHandler := rest.NewWeatherHandler(a.cache, a.cache, a.logger)

	rateLimitMiddleware := middleware.NewRateLimitMiddleware(
		rateLimitService,
		a.cfg.RateLimit.RPS,
		a.cfg.RateLimit.Window,
		a.logger,
	)

	router := a.setupRouter(weatherHandler, rateLimitMiddleware)

	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%s", a.cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
		IdleTimeout:  a.cfg.Server.IdleTimeout,
	}

	go func() {
		a.logger.Info("starting weatherd HTTP server", zap.String("port", a.cfg.Server.Port))

		if err := a.server.ListenAndServe(); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				a.logger.Fatal("failed to start weatherd server", zap.Error(err))
			}
		}
	}()

	return nil
}

// Stop gracefully shuts down all weatherd components.
func (a *WeatherApp) Stop() {
	a.logger.Info("shutting down weatherd...")

	if a.cache != nil {
		a.cache.Stop()
	}

	if a.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("failed to shutdown server gracefully", zap.Error(err))
		}
	}

	if a.kv != nil {
		if err := a.kv.Close(); err != nil {
			a.logger.Error("failed to close kv store", zap.Error(err))
		}
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("failed to close database connection", zap.Error(err))
		}
	}

	if a.telemetry != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := a.telemetry.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("failed to shutdown telemetry", zap.Error(err))
		}
	}

	if err := a.logger.Sync(); err != nil {
		_ = err
	}
}

// WaitForShutdown blocks until the process receives a termination signal.
func (a *WeatherApp) WaitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	a.logger.Info("shutdown signal received")
}

func (a *WeatherApp) initTelemetry(ctx context.Context) error {
	telemetryConfig := observability.Config{
		ServiceName:    a.cfg.Observability.ServiceName,
		ServiceVersion: a.cfg.Observability.ServiceVersion,
		Environment:    a.cfg.Observability.Environment,
		OTLPEndpoint:   a.cfg.Observability.OTLPEndpoint,
		SampleRate:     a.cfg.Observability.SampleRate,
	}

	var err error
	a.telemetry, err = observability.InitTelemetry(ctx, telemetryConfig, a.logger)

	return err
}

// initKVAndRateLimit wires Redis-backed KV and rate limiting when enabled,
// falling back to in-memory implementations of both ports otherwise.
func (a *WeatherApp) initKVAndRateLimit(ctx context.Context) ports.RateLimitService {
	if !a.cfg.Redis.Enabled {
		a.logger.Info("redis disabled, using memory-based kv store and rate limiter")

		a.kv = kvstore.NewMemoryStore(a.cfg.WeatherCache.CacheDuration, 10*time.Minute, a.logger)

		return middleware.NewMemoryRateLimiter(a.logger)
	}

	redisCfg := kvstore.RedisConfig{
		Addr:         a.cfg.Redis.Addr,
		Password:     a.cfg.Redis.Password,
		DB:           a.cfg.Redis.DB,
		PoolSize:     a.cfg.Redis.PoolSize,
		MinIdleConns: a.cfg.Redis.MinIdleConns,
		MaxRetries:   a.cfg.Redis.MaxRetries,
		DialTimeout:  a.cfg.Redis.DialTimeout,
		ReadTimeout:  a.cfg.Redis.ReadTimeout,
		WriteTimeout: a.cfg.Redis.WriteTimeout,
	}

	store, err := kvstore.NewRedisStore(redisCfg, a.logger)
	if err != nil {
		a.logger.Warn("redis connection failed, falling back to memory-based kv store", zap.Error(err))

		a.kv = kvstore.NewMemoryStore(a.cfg.WeatherCache.CacheDuration, 10*time.Minute, a.logger)

		return middleware.NewMemoryRateLimiter(a.logger)
	}

	a.logger.Info("redis connected successfully")
	a.kv = store

	return ratelimit.NewRedisRateLimiter(redisClientFor(a.cfg), a.logger)
}

func (a *WeatherApp) initDatabase() error {
	if !a.cfg.Database.Enabled {
		return nil
	}

	dbConfig := database.Config{
		Host:                  a.cfg.Database.Host,
		Port:                  a.cfg.Database.Port,
		User:                  a.cfg.Database.User,
		Password:              a.cfg.Database.Password,
		Database:              a.cfg.Database.Database,
		SSLMode:               a.cfg.Database.SSLMode,
		MaxConnections:        a.cfg.Database.MaxConnections,
		MaxIdleConnections:    a.cfg.Database.MaxIdleConnections,
		ConnectionMaxLifetime: a.cfg.Database.ConnectionMaxLifetime,
	}

	var err error
	a.db, err = database.NewPostgresDB(dbConfig, a.logger)

	return err
}

// initWeatherProvider creates an OpenWeather client wrapped with circuit
// breaker protection.
func (a *WeatherApp) initWeatherProvider() ports.WeatherProvider {
	httpClient := &http.Client{Timeout: a.cfg.Weather.HTTPTimeout}
	cbManager := circuitbreaker.NewManager(a.logger)

	breaker := cbManager.GetBreaker("openweather-api", circuitbreaker.Config{
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
	})

	return openweather.NewClient(a.cfg.Weather.BaseURL, a.cfg.Weather.APIKey, httpClient, breaker, a.logger)
}

func (a *WeatherApp) setupRouter(weatherHandler *rest.WeatherHandler, rateLimitMiddleware *middleware.RateLimitMiddleware) http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}).Methods("GET")

	router.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)

		if err := json.NewEncoder(w).Encode(version.Get()); err != nil {
			a.logger.Error("failed to encode version info", zap.Error(err))
		}
	}).Methods("GET")

	if a.telemetry != nil {
		obsMiddleware := middleware.NewObservabilityMiddleware(a.telemetry, a.logger)
		router.Use(obsMiddleware.TracingMiddleware)
		router.Use(obsMiddleware.MetricsMiddleware)
	}

	api := router.PathPrefix("/api/v1").Subrouter()

	if rateLimitMiddleware != nil {
		api.Use(rateLimitMiddleware.Middleware)
	}

	api.HandleFunc("/weather", weatherHandler.GetByCity).Methods("GET")
	api.HandleFunc("/weather/proximity", weatherHandler.GetByProximity).Methods("GET")
	api.HandleFunc("/weather/forecast", weatherHandler.GetForecast).Methods("GET")

	return router
}

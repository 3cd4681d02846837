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
	"github.com/outfitwx/platform/internal/adapters/secondary/catalogfile"
	"github.com/outfitwx/platform/internal/adapters/secondary/llmclient"
	"github.com/outfitwx/platform/internal/adapters/secondary/openweather"
	"github.com/outfitwx/platform/internal/config"
	"github.com/outfitwx/platform/internal/core/ports"
	"github.com/outfitwx/platform/internal/core/services/catalog"
	"github.com/outfitwx/platform/internal/core/services/filter"
	"github.com/outfitwx/platform/internal/core/services/recommend"
	"github.com/outfitwx/platform/internal/core/services/weathercache"
	"github.com/outfitwx/platform/internal/infrastructure/circuitbreaker"
	"github.com/outfitwx/platform/internal/infrastructure/kvstore"
	"github.com/outfitwx/platform/internal/infrastructure/ratelimit"
	"github.com/outfitwx/platform/internal/middleware"
	"github.com/outfitwx/platform/internal/observability"
	"github.com/outfitwx/platform/internal/version"
)

// RecommendApp manages the recommendd binary's lifecycle and dependencies:
// the asset catalog, the weather cache it consumes, the filter pipeline,
// the LLM-backed recommendation engine, and its HTTP surface.
type RecommendApp struct {
	cfg       *config.Config
	logger    *zap.Logger
	telemetry *observability.Telemetry
	kv        ports.KVStore
	cache     *weathercache.Service
	catalog   *catalog.Service
	engine    *recommend.Engine
	server    *http.Server
}

// NewRecommendApp creates a new recommendd application instance.
func NewRecommendApp() (*RecommendApp, error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return &RecommendApp{cfg: config.Load(), logger: logger}, nil
}

// Start initializes all recommendd components and begins serving HTTP
// traffic.
func (a *RecommendApp) Start(ctx context.Context) error {
	if err := a.cfg.Validate(); err != nil {
		return err
	}

	if err := a.initTelemetry(ctx); err != nil {
		a.logger.Warn("failed to initialize telemetry, continuing without it", zap.Error(err))
	}

	rateLimitService := a.initKVAndRateLimit(ctx)

	weatherProvider := a.initWeatherProvider()
	a.cache = weathercache.NewService(a.kv, weatherProvider, a.logger,
		weathercache.WithCacheTTL(a.cfg.WeatherCache.CacheDuration),
		weathercache.WithRefreshThreshold(a.cfg.WeatherCache.RefreshThreshold),
		weathercache.WithProximityPrecision(a.cfg.WeatherCache.ProximityPrecision),
		weathercache.WithRefreshInterval(a.cfg.WeatherCache.RefreshInterval),
	)
	a.cache.Start(ctx)

	loader := catalogfile.NewLoader(a.cfg.Catalog.AssetFilePath)
	a.catalog = catalog.NewService(loader, a.logger)
	if err := a.catalog.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize asset catalog: %w", err)
	}

	pipeline := filter.NewPipeline(filter.DefaultPredicates(), a.cfg.Catalog.MaxWorkers, a.logger)
	llmProvider := a.initLLMProvider()

	engine, err := recommend.NewEngine(a.cache, a.catalog, pipeline, llmProvider, a.kv, a.logger, a.cfg.LLM.MaxRecommendations)
	if err != nil {
		return fmt.Errorf("failed to construct recommendation engine: %w", err)
	}
	a.engine = engine

	recommendationHandler := rest.NewRecommendationHandler(a.engine, a.cache, a.logger)

	rateLimitMiddleware := middleware.NewRateLimitMiddleware(
		rateLimitService,
		a.cfg.RateLimit.RPS,
		a.cfg.RateLimit.Window,
		a.logger,
	)

	router := a.setupRouter(recommendationHandler, rateLimitMiddleware)

	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%s", a.cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
		IdleTimeout:  a.cfg.Server.IdleTimeout,
	}

	go func() {
		a.logger.Info("starting recommendd HTTP server", zap.String("port", a.cfg.Server.Port))

		if err := a.server.ListenAndServe(); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				a.logger.Fatal("failed to start recommendd server", zap.Error(err))
			}
		}
	}()

	return nil
}

// Stop gracefully shuts down all recommendd components.
func (a *RecommendApp) Stop() {
	a.logger.Info("shutting down recommendd...")

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
func (a *RecommendApp) WaitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	a.logger.Info("shutdown signal received")
}

func (a *RecommendApp) initTelemetry(ctx context.Context) error {
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

func (a *RecommendApp) initKVAndRateLimit(ctx context.Context) ports.RateLimitService {
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

	redisClient := redisClientFor(a.cfg)

	return ratelimit.NewRedisRateLimiter(redisClient, a.logger)
}

func (a *RecommendApp) initWeatherProvider() ports.WeatherProvider {
	httpClient := &http.Client{Timeout: a.cfg.Weather.HTTPTimeout}
	cbManager := circuitbreaker.NewManager(a.logger)

	breaker := cbManager.GetBreaker("openweather-api", circuitbreaker.Config{
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
	})

	return openweather.NewClient(a.cfg.Weather.BaseURL, a.cfg.Weather.APIKey, httpClient, breaker, a.logger)
}

func (a *RecommendApp) initLLMProvider() ports.LLMProvider {
	httpClient := &http.Client{Timeout: a.cfg.LLM.HTTPTimeout}
	cbManager := circuitbreaker.NewManager(a.logger)

	breaker := cbManager.GetBreaker("llm-provider", circuitbreaker.Config{
		MaxRequests: 2,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
	})

	return llmclient.NewClient(a.cfg.LLM.Endpoint, a.cfg.LLM.APIKey, a.cfg.LLM.Model, a.cfg.LLM.Temperature, httpClient, breaker, a.logger)
}

func (a *RecommendApp) setupRouter(recommendationHandler *rest.RecommendationHandler, rateLimitMiddleware *middleware.RateLimitMiddleware) http.Handler {
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

	api.HandleFunc("/recommendations", recommendationHandler.GetRecommendations).Methods("POST")
	api.HandleFunc("/recommendations/categorized", recommendationHandler.GetCategorizedRecommendations).Methods("POST")

	router.HandleFunc("/admin/catalog/reload", func(w http.ResponseWriter, r *http.Request) {
		if err := a.catalog.Reload(r.Context()); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}).Methods("POST")

	return router
}

// Package weathercache implements the stale-while-revalidate weather cache
// described in spec.md §4.2: cache-first reads, background staleness
// refresh, and proximity-clustered geo lookups, all backed by a
// ports.KVStore substrate.
package weathercache

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/outfitwx/platform/internal/core/domain"
	"github.com/outfitwx/platform/internal/core/ports"
)

const (
	defaultCacheTTL            = 4 * time.Hour
	defaultRefreshThreshold    = 220 * time.Minute
	defaultProximityPrecision = 5.0
	defaultRefreshInterval     = 300 * time.Second
	refreshPacingDelay         = 500 * time.Millisecond
)

// Service implements the weather cache's stale-while-revalidate protocol.
type Service struct {
	kv       ports.KVStore
	provider ports.WeatherProvider
	logger   *zap.Logger

	cacheTTL            time.Duration
	refreshThreshold    time.Duration
	proximityPrecision float64
	refreshInterval     time.Duration

	group singleflight.Group

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures a Service at construction time.
type Option func(*Service)

// WithCacheTTL overrides the default 4-hour cache entry lifetime.
func WithCacheTTL(d time.Duration) Option {
	return func(s *Service) { s.cacheTTL = d }
}

// WithRefreshThreshold overrides the staleness threshold that triggers a
// background refresh.
func WithRefreshThreshold(d time.Duration) Option {
	return func(s *Service) { s.refreshThreshold = d }
}

// WithProximityPrecision overrides the degree-rounding precision used by
// ByProximity's cache key clustering.
func WithProximityPrecision(precision float64) Option {
	return func(s *Service) { s.proximityPrecision = precision }
}

// WithRefreshInterval overrides the background refresher's polling period.
func WithRefreshInterval(d time.Duration) Option {
	return func(s *Service) { s.refreshInterval = d }
}

// NewService constructs a weather cache Service.
func NewService(kv ports.KVStore, provider ports.WeatherProvider, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		kv:                  kv,
		provider:            provider,
		logger:              logger,
		cacheTTL:            defaultCacheTTL,
		refreshThreshold:    defaultRefreshThreshold,
		proximityPrecision: defaultProximityPrecision,
		refreshInterval:     defaultRefreshInterval,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start launches the background refresher goroutine. Start is idempotent;
// calling it again before Stop is a no-op.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return
	}

	refreshCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.refreshLoop(refreshCtx)

	s.logger.Info("started weather cache background refresher")
}

// Stop cancels the background refresher and waits for it to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	s.wg.Wait()
	s.logger.Info("stopped weather cache background refresher")
}

func cacheKeyForCity(city string) string {
	return fmt.Sprintf("weather:city:%s", normalizeCity(city))
}

func metadataKeyFor(cacheKey string) string {
	return fmt.Sprintf("metadata:%s", cacheKey)
}

func normalizeCity(city string) string {
	out := make([]byte, 0, len(city))
	for i := 0; i < len(city); i++ {
		c := city[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out = append(out, c)
	}
	return string(out)
}

// proximityKey clusters lat/lon into a cache key by rounding to the nearest
// multiple of precision, matching spec.md §6's format exactly.
func proximityKey(lat, lon, precision float64) string {
	latCluster := math.Round(lat/precision) * precision
	lonCluster := math.Round(lon/precision) * precision
	return fmt.Sprintf("weather:proximity:%.2f:%.2f", latCluster, lonCluster)
}

// ByCity returns the cached weather snapshot for city, fetching and caching
// it first if absent. A stale cached entry is returned immediately while a
// refresh is scheduled in the background.
func (s *Service) ByCity(ctx context.Context, city string) (domain.WeatherSnapshot, error) {
	cacheKey := cacheKeyForCity(city)
	metaKey := metadataKeyFor(cacheKey)

	if cached, ok := s.readSnapshot(ctx, cacheKey); ok {
		s.touchMetadata(ctx, metaKey, cacheKey)

		if s.isStale(ctx, metaKey) {
			s.scheduleRefresh(cacheKey, func() (domain.WeatherSnapshot, error) {
				return s.fetchAndCacheByCity(ctx, city, cacheKey, metaKey)
			})
		}

		return cached, nil
	}

	return s.fetchAndCacheByCity(ctx, city, cacheKey, metaKey)
}

// ByProximity returns the cached weather snapshot for the geo cluster
// containing (lat, lon).
func (s *Service) ByProximity(ctx context.Context, lat, lon float64) (domain.WeatherSnapshot, error) {
	cacheKey := proximityKey(lat, lon, s.proximityPrecision)
	metaKey := metadataKeyFor(cacheKey)

	if cached, ok := s.readSnapshot(ctx, cacheKey); ok {
		s.touchMetadata(ctx, metaKey, cacheKey)

		if s.isStale(ctx, metaKey) {
			s.scheduleRefresh(cacheKey, func() (domain.WeatherSnapshot, error) {
				return s.fetchAndCacheByProximity(ctx, lat, lon, cacheKey, metaKey)
			})
		}

		return cached, nil
	}

	return s.fetchAndCacheByProximity(ctx, lat, lon, cacheKey, metaKey)
}

// ForecastByCity returns the cached forecast for city, fetching and caching
// it first if absent.
func (s *Service) ForecastByCity(ctx context.Context, city string) (domain.Forecast, error) {
	cacheKey := fmt.Sprintf("forecast:city:%s", normalizeCity(city))

	raw, err := s.kv.Get(ctx, cacheKey)
	if err == nil {
		var forecast domain.Forecast
		if jsonErr := json.Unmarshal(raw, &forecast); jsonErr == nil {
			return forecast, nil
		}
		s.logger.Warn("discarding corrupt forecast cache entry", zap.String("key", cacheKey))
	}

	forecast, err := s.provider.Forecast(ctx, city)
	if err != nil {
		return domain.Forecast{}, err
	}

	s.cacheForecast(ctx, cacheKey, forecast)

	return forecast, nil
}

func (s *Service) readSnapshot(ctx context.Context, cacheKey string) (domain.WeatherSnapshot, bool) {
	raw, err := s.kv.Get(ctx, cacheKey)
	if err != nil {
		return domain.WeatherSnapshot{}, false
	}

	var snapshot domain.WeatherSnapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		s.logger.Warn("discarding corrupt weather cache entry", zap.String("key", cacheKey), zap.Error(err))
		return domain.WeatherSnapshot{}, false
	}

	return snapshot, true
}

func (s *Service) touchMetadata(ctx context.Context, metaKey, cacheKey string) {
	raw, err := s.kv.Get(ctx, metaKey)
	var entry domain.LocationCacheEntry
	if err == nil {
		if jsonErr := json.Unmarshal(raw, &entry); jsonErr != nil {
			entry = domain.LocationCacheEntry{LocationKey: cacheKey, Active: true}
		}
	} else {
		entry = domain.LocationCacheEntry{LocationKey: cacheKey, Active: true, LastUpdated: time.Now().Unix()}
	}

	entry.RequestCount++

	encoded, err := json.Marshal(entry)
	if err != nil {
		return
	}

	if err := s.kv.Set(ctx, metaKey, encoded, s.cacheTTL); err != nil {
		s.logger.Warn("failed to update cache metadata", zap.String("key", metaKey), zap.Error(err))
	}
}

func (s *Service) isStale(ctx context.Context, metaKey string) bool {
	raw, err := s.kv.Get(ctx, metaKey)
	if err != nil {
		return false
	}

	var entry domain.LocationCacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return false
	}

	age := time.Since(time.Unix(entry.LastUpdated, 0))
	return age > s.refreshThreshold
}

// scheduleRefresh coalesces concurrent refresh attempts for the same key
// into a single in-flight fetch via singleflight.
func (s *Service) scheduleRefresh(key string, fetch func() (domain.WeatherSnapshot, error)) {
	go func() {
		_, err, _ := s.group.Do(key, func() (interface{}, error) {
			return fetch()
		})
		if err != nil {
			s.logger.Warn("background refresh failed", zap.String("key", key), zap.Error(err))
		}
	}()
}

func (s *Service) fetchAndCacheByCity(ctx context.Context, city, cacheKey, metaKey string) (domain.WeatherSnapshot, error) {
	snapshot, err := s.provider.Current(ctx, city)
	if err != nil {
		return domain.WeatherSnapshot{}, err
	}

	s.cacheSnapshot(ctx, cacheKey, metaKey, snapshot)

	return snapshot, nil
}

func (s *Service) fetchAndCacheByProximity(ctx context.Context, lat, lon float64, cacheKey, metaKey string) (domain.WeatherSnapshot, error) {
	snapshot, err := s.provider.CurrentByCoordinates(ctx, lat, lon)
	if err != nil {
		return domain.WeatherSnapshot{}, err
	}

	s.cacheSnapshot(ctx, cacheKey, metaKey, snapshot)

	return snapshot, nil
}

func (s *Service) cacheSnapshot(ctx context.Context, cacheKey, metaKey string, snapshot domain.WeatherSnapshot) {
	encoded, err := json.Marshal(snapshot)
	if err != nil {
		s.logger.Error("failed to marshal weather snapshot", zap.Error(err))
		return
	}

	if err := s.kv.Set(ctx, cacheKey, encoded, s.cacheTTL); err != nil {
		s.logger.Warn("failed to cache weather snapshot", zap.String("key", cacheKey), zap.Error(err))
	}

	entry := domain.LocationCacheEntry{
		LocationKey:  cacheKey,
		LastUpdated:  time.Now().Unix(),
		Active:       true,
		RequestCount: 1,
	}

	encodedMeta, err := json.Marshal(entry)
	if err != nil {
		return
	}

	if err := s.kv.Set(ctx, metaKey, encodedMeta, s.cacheTTL); err != nil {
		s.logger.Warn("failed to cache weather metadata", zap.String("key", metaKey), zap.Error(err))
	}
}

func (s *Service) cacheForecast(ctx context.Context, cacheKey string, forecast domain.Forecast) {
	encoded, err := json.Marshal(forecast)
	if err != nil {
		s.logger.Error("failed to marshal forecast", zap.Error(err))
		return
	}

	if err := s.kv.Set(ctx, cacheKey, encoded, s.cacheTTL); err != nil {
		s.logger.Warn("failed to cache forecast", zap.String("key", cacheKey), zap.Error(err))
	}
}

// refreshLoop scans the metadata namespace every refreshInterval, refreshing
// one stale entry at a time with a pacing delay between fetches to avoid
// bursting the upstream provider.
func (s *Service) refreshLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refreshStaleEntries(ctx)
		}
	}
}

func (s *Service) refreshStaleEntries(ctx context.Context) {
	keys, err := s.kv.Scan(ctx, "metadata:weather:")
	if err != nil {
		s.logger.Error("refresh loop failed to scan metadata keys", zap.Error(err))
		return
	}

	for _, metaKey := range keys {
		if ctx.Err() != nil {
			return
		}

		if !s.isStale(ctx, metaKey) {
			continue
		}

		cacheKey := metaKey[len("metadata:"):]
		s.refreshByCacheKey(ctx, cacheKey, metaKey)

		select {
		case <-ctx.Done():
			return
		case <-time.After(refreshPacingDelay):
		}
	}
}

func (s *Service) refreshByCacheKey(ctx context.Context, cacheKey, metaKey string) {
	_, err, _ := s.group.Do(cacheKey, func() (interface{}, error) {
		raw, getErr := s.kv.Get(ctx, cacheKey)
		if getErr != nil {
			return nil, getErr
		}

		var snapshot domain.WeatherSnapshot
		if jsonErr := json.Unmarshal(raw, &snapshot); jsonErr != nil {
			return nil, jsonErr
		}

		refreshed, fetchErr := s.provider.Current(ctx, snapshot.Location)
		if fetchErr != nil {
			return nil, fetchErr
		}

		s.cacheSnapshot(ctx, cacheKey, metaKey, refreshed)

		return refreshed, nil
	})
	if err != nil {
		s.logger.Warn("scheduled refresh failed", zap.String("key", cacheKey), zap.Error(err))
	}
}

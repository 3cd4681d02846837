// Package recommend orchestrates the recommendation request lifecycle
// described in spec.md §4.6: weather resolution, catalog filtering, LLM
// prompting, output sanitization/validation, and response assembly.
// Grounded on original_source's RecommendationEngine, restructured into the
// teacher's service shape.
package recommend

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/outfitwx/platform/internal/core/domain"
	"github.com/outfitwx/platform/internal/core/ports"
	"github.com/outfitwx/platform/internal/core/services/filter"
)

const (
	defaultMaxRecommendations = 5
	defaultResponseTTL        = 10 * time.Minute
)

// WeatherResolver supplies the weather snapshot for a named location. The
// weathercache.Service satisfies this interface.
type WeatherResolver interface {
	ByCity(ctx context.Context, city string) (domain.WeatherSnapshot, error)
}

// CatalogProvider supplies the current catalog snapshot. catalog.Service
// satisfies this interface once Initialize has been called.
type CatalogProvider interface {
	Assets() []*domain.AssetItem
}

// Engine orchestrates recommendation generation.
type Engine struct {
	weather  WeatherResolver
	catalog  CatalogProvider
	pipeline *filter.Pipeline
	llm      ports.LLMProvider
	kv       ports.KVStore
	logger   *zap.Logger

	maxRecommendations int
	responseTTL        time.Duration
}

// NewEngine constructs a recommendation Engine. maxRecommendations above 5
// is rejected at construction per spec.md §9's canonicalization of the
// "1 and 10" docstring ambiguity in favor of 5.
func NewEngine(weather WeatherResolver, catalog CatalogProvider, pipeline *filter.Pipeline, llm ports.LLMProvider, kv ports.KVStore, logger *zap.Logger, maxRecommendations int) (*Engine, error) {
	if maxRecommendations <= 0 {
		maxRecommendations = defaultMaxRecommendations
	}
	if maxRecommendations > defaultMaxRecommendations {
		return nil, fmt.Errorf("max_recommendations must not exceed %d, got %d", defaultMaxRecommendations, maxRecommendations)
	}

	return &Engine{
		weather:            weather,
		catalog:            catalog,
		pipeline:           pipeline,
		llm:                llm,
		kv:                 kv,
		logger:             logger,
		maxRecommendations: maxRecommendations,
		responseTTL:        defaultResponseTTL,
	}, nil
}

// Recommend resolves weather for location via the weather cache, filters
// the catalog against weather and preferences, and produces an LLM-ranked
// uncategorized recommendation response.
func (e *Engine) Recommend(ctx context.Context, location string, prefs domain.Preferences) (domain.RecommendationResponse, error) {
	snapshot, err := e.weather.ByCity(ctx, location)
	if err != nil {
		return domain.RecommendationResponse{}, err
	}

	return e.recommendFor(ctx, location, snapshot, prefs, filter.DefaultPredicates())
}

// RecommendSimple resolves weather for location and applies the temperature
// predicate only, ignoring preferences, per spec.md §4.6.
func (e *Engine) RecommendSimple(ctx context.Context, location string) (domain.RecommendationResponse, error) {
	snapshot, err := e.weather.ByCity(ctx, location)
	if err != nil {
		return domain.RecommendationResponse{}, err
	}

	return e.recommendFor(ctx, location, snapshot, domain.Preferences{}, []filter.Predicate{filter.Temperature})
}

func (e *Engine) recommendFor(ctx context.Context, location string, weather domain.WeatherSnapshot, prefs domain.Preferences, predicates []filter.Predicate) (domain.RecommendationResponse, error) {
	fingerprint, err := fingerprintFor(location, weather.Temperature, prefs)
	if err != nil {
		return domain.RecommendationResponse{}, domain.NewServiceError(domain.KindInternal, "failed to compute recommendation fingerprint", err)
	}

	cacheKey := fmt.Sprintf("rec:%s", fingerprint)

	if cached, ok := e.readCachedResponse(ctx, cacheKey); ok {
		return cached, nil
	}

	pipeline := filter.NewPipeline(predicates, 0, e.logger)

	assets, err := pipeline.Apply(ctx, e.catalog.Assets(), weather, prefs)
	if err != nil {
		return domain.RecommendationResponse{}, domain.NewServiceError(domain.KindInternal, "filter pipeline failed", err)
	}

	if len(assets) == 0 {
		return domain.RecommendationResponse{}, domain.NewServiceError(domain.KindNoSuitableAssets,
			"no suitable assets found for the given conditions", nil)
	}

	userPrompt, err := buildUncategorizedPrompt(weather, assets, prefs.Styles)
	if err != nil {
		return domain.RecommendationResponse{}, domain.NewServiceError(domain.KindInternal, "failed to build LLM prompt", err)
	}

	completion, err := e.callLLMWithRetry(ctx, systemRole, userPrompt)
	if err != nil {
		return domain.RecommendationResponse{}, err
	}

	sanitized := fixCommonJSONDefects(stripCodeFence(completion))

	recommendations, err := parseUncategorized(sanitized)
	if err != nil {
		return domain.RecommendationResponse{}, err
	}

	if len(recommendations) > e.maxRecommendations {
		recommendations = recommendations[:e.maxRecommendations]
	}

	response := domain.RecommendationResponse{
		Location:        location,
		Recommendations: recommendations,
		WeatherSummary:  weatherSummary(location, weather),
		StyleNotes:      styleNotes(weather),
		GeneratedAt:     time.Now(),
	}

	e.cacheResponse(ctx, cacheKey, response)

	return response, nil
}

// RecommendCategorized takes an externally supplied weather snapshot and
// produces a categorized, per-slot-ranked recommendation response.
func (e *Engine) RecommendCategorized(ctx context.Context, weather domain.WeatherSnapshot, prefs domain.Preferences) (domain.CategorizedRecommendationResponse, error) {
	pipeline := filter.NewPipeline(filter.DefaultPredicates(), 0, e.logger)

	assets, err := pipeline.Apply(ctx, e.catalog.Assets(), weather, prefs)
	if err != nil {
		return domain.CategorizedRecommendationResponse{}, domain.NewServiceError(domain.KindInternal, "filter pipeline failed", err)
	}

	if len(assets) == 0 {
		return domain.CategorizedRecommendationResponse{}, domain.NewServiceError(domain.KindNoSuitableAssets,
			"no suitable assets found for the given conditions", nil)
	}

	userPrompt, err := buildCategorizedPrompt(weather, assets, prefs.Styles)
	if err != nil {
		return domain.CategorizedRecommendationResponse{}, domain.NewServiceError(domain.KindInternal, "failed to build LLM prompt", err)
	}

	completion, err := e.callLLMWithRetry(ctx, systemRole, userPrompt)
	if err != nil {
		return domain.CategorizedRecommendationResponse{}, err
	}

	sanitized := fixCommonJSONDefects(stripCodeFence(completion))

	categorized, err := parseCategorized(sanitized)
	if err != nil {
		return domain.CategorizedRecommendationResponse{}, err
	}

	return domain.CategorizedRecommendationResponse{
		Location:        weather.Location,
		Recommendations: []domain.CategorizedRecommendation{categorized},
		WeatherSummary:  weatherSummary(weather.Location, weather),
		StyleNotes:      styleNotes(weather),
		GeneratedAt:     time.Now(),
	}, nil
}

// callLLMWithRetry retries only on LLMRateLimited/LLMTimeout, base 1s cap
// 10s, per spec.md §4.6 step 6.
func (e *Engine) callLLMWithRetry(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 1 * time.Second
	b.MaxInterval = 10 * time.Second
	retrier := backoff.WithMaxRetries(backoff.WithContext(b, ctx), 3)

	var completion string

	operation := func() error {
		text, err := e.llm.GenerateRecommendation(ctx, systemPrompt, userPrompt)
		if err != nil {
			if svcErr, ok := err.(*domain.ServiceError); ok {
				if svcErr.Kind == domain.KindLLMRateLimited || svcErr.Kind == domain.KindLLMTimeout {
					return err
				}
			}
			return backoff.Permanent(err)
		}
		completion = text
		return nil
	}

	if err := backoff.Retry(operation, retrier); err != nil {
		if permanent, ok := err.(*backoff.PermanentError); ok {
			return "", permanent.Err
		}
		return "", err
	}

	return completion, nil
}

func (e *Engine) readCachedResponse(ctx context.Context, cacheKey string) (domain.RecommendationResponse, bool) {
	raw, err := e.kv.Get(ctx, cacheKey)
	if err != nil {
		return domain.RecommendationResponse{}, false
	}

	var cached domain.RecommendationResponse
	if err := json.Unmarshal(raw, &cached); err != nil {
		return domain.RecommendationResponse{}, false
	}

	return cached, true
}

func (e *Engine) cacheResponse(ctx context.Context, cacheKey string, response domain.RecommendationResponse) {
	encoded, err := json.Marshal(response)
	if err != nil {
		e.logger.Warn("failed to marshal recommendation response for caching", zap.Error(err))
		return
	}

	if err := e.kv.Set(ctx, cacheKey, encoded, e.responseTTL); err != nil {
		e.logger.Warn("failed to cache recommendation response", zap.String("key", cacheKey), zap.Error(err))
	}
}

// fingerprintFor canonicalizes the identifying request inputs and hashes
// them, per spec.md §9: encoding/json's deterministic struct field order
// for domain.Preferences already gives stable key ordering, so no extra
// sorting step is required.
func fingerprintFor(location string, temperature float64, prefs domain.Preferences) (string, error) {
	canonicalPrefs, err := json.Marshal(prefs)
	if err != nil {
		return "", err
	}

	keyData := fmt.Sprintf("%s_%f_%s", location, temperature, canonicalPrefs)
	sum := md5.Sum([]byte(keyData))

	return hex.EncodeToString(sum[:]), nil
}

func weatherSummary(location string, weather domain.WeatherSnapshot) string {
	return fmt.Sprintf("Current weather in %s: %.1f°C, %s. Wind speed: %.1f m/s",
		location, weather.Temperature, weather.Description, weather.WindSpeed)
}

func styleNotes(weather domain.WeatherSnapshot) string {
	switch {
	case weather.Rain > 0:
		return "Don't forget to grab an umbrella! These outfits are selected to keep you dry and stylish."
	case weather.Snow > 0:
		return "These warm outfits are perfect for snowy conditions. Consider adding a scarf and gloves!"
	case weather.WindSpeed > 5.0:
		return "It's quite windy! These outfits are selected to keep you comfortable in breezy conditions."
	default:
		return "These outfits are perfectly suited for today's weather conditions."
	}
}

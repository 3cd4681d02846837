// Package ports defines the interfaces that connect the core domain with
// external systems. These interfaces follow the Dependency Inversion
// Principle, allowing the domain layer to remain independent of
// infrastructure concerns while defining contracts for external services.
package ports

import (
	"context"
	"time"

	"github.com/outfitwx/platform/internal/core/domain"
)

// KVStore is the general key-value substrate shared by the weather cache and
// the recommendation engine's response cache. A TransientKVFailure
// (domain.ServiceError{Kind: domain.KindTransientKV}) must never cross this
// boundary as a fatal error; callers treat it as a miss on read and log-only
// on write.
type KVStore interface {
	// Get retrieves a value by key. Returns a NotFound ServiceError if the
	// key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value under key with the given TTL. A zero TTL means no
	// expiration.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Scan returns all keys carrying the given prefix.
	Scan(ctx context.Context, prefix string) ([]string, error)

	// Close releases any underlying connection resources.
	Close() error
}

// WeatherProvider is the secondary port for an upstream weather data source.
type WeatherProvider interface {
	// Current retrieves the current weather conditions for a city name.
	Current(ctx context.Context, city string) (domain.WeatherSnapshot, error)

	// CurrentByCoordinates retrieves current weather conditions for a
	// latitude/longitude pair.
	CurrentByCoordinates(ctx context.Context, lat, lon float64) (domain.WeatherSnapshot, error)

	// Forecast retrieves a multi-point forecast for a city name.
	Forecast(ctx context.Context, city string) (domain.Forecast, error)
}

// LLMProvider is the secondary port for the recommendation engine's language
// model backend.
type LLMProvider interface {
	// GenerateRecommendation sends a system/user prompt pair and returns the
	// raw text completion. Callers are responsible for sanitizing and
	// parsing the result as JSON.
	GenerateRecommendation(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// AssetCatalog is the primary port exposing the loaded clothing catalog to
// the filter pipeline and recommendation engine.
type AssetCatalog interface {
	// Initialize loads the catalog exactly once; subsequent calls are no-ops
	// until Reload is invoked.
	Initialize(ctx context.Context) error

	// Reload forces a re-read of the backing catalog source.
	Reload(ctx context.Context) error

	// Assets returns the current immutable snapshot of catalog items.
	Assets() []*domain.AssetItem
}

// AuditLog represents a complete audit trail entry for a request, logged for
// security monitoring, compliance reporting, and troubleshooting.
type AuditLog struct {
	CorrelationID string
	RequestID     string
	Method        string
	Path          string
	StatusCode    int
	DurationMs    int64
	UserAgent     string
	RemoteAddr    string
	ErrorMessage  *string
	Metadata      map[string]interface{}
}

// DatabaseRepository persists audit trail data independent of the chosen
// database technology.
type DatabaseRepository interface {
	LogAudit(ctx context.Context, log AuditLog) error
	GetRequestStats(ctx context.Context, since time.Time) (map[string]interface{}, error)
}

// RateLimitService abstracts the sliding-window rate limiting strategy
// applied to both service binaries' HTTP surfaces.
type RateLimitService interface {
	Allow(ctx context.Context, identifier string, limit int, window time.Duration) (bool, error)
	Reset(ctx context.Context, identifier string) error
}

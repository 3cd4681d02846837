// Package rest implements HTTP handlers for the weather and recommendation
// endpoints. This package serves as the primary adapter, translating HTTP
// requests into domain operations and formatting responses for clients.
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/outfitwx/platform/internal/core/domain"
	"github.com/outfitwx/platform/internal/middleware"
)

// WeatherResolver exposes the weather cache's current-conditions lookups.
// weathercache.Service satisfies this interface.
type WeatherResolver interface {
	ByCity(ctx context.Context, city string) (domain.WeatherSnapshot, error)
	ByProximity(ctx context.Context, lat, lon float64) (domain.WeatherSnapshot, error)
}

// ForecastResolver exposes the weather cache's forecast lookup.
type ForecastResolver interface {
	ForecastByCity(ctx context.Context, city string) (domain.Forecast, error)
}

// WeatherHandler handles HTTP requests for weather-related operations. It
// acts as the primary adapter between HTTP transport and business logic,
// managing request parsing, validation, and response formatting.
type WeatherHandler struct {
	weather  WeatherResolver
	forecast ForecastResolver
	logger   *zap.Logger
}

// NewWeatherHandler creates a new HTTP handler for weather operations.
func NewWeatherHandler(weather WeatherResolver, forecast ForecastResolver, logger *zap.Logger) *WeatherHandler {
	return &WeatherHandler{weather: weather, forecast: forecast, logger: logger}
}

// WeatherResponse is the client-facing DTO for current-conditions endpoints.
type WeatherResponse struct {
	Location    string  `json:"location"`
	Temperature float64 `json:"temperature"`
	FeelsLike   float64 `json:"feels_like"`
	Humidity    int     `json:"humidity"`
	Description string  `json:"description"`
	WindSpeed   float64 `json:"wind_speed"`
	Rain        float64 `json:"rain"`
	Snow        float64 `json:"snow"`
}

// ForecastResponse is the client-facing DTO for the forecast endpoint.
type ForecastResponse struct {
	Location string                 `json:"location"`
	Points   []domain.ForecastPoint `json:"points"`
}

// ErrorResponse is the standardized error envelope returned by every
// endpoint in this package.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// GetByCity handles GET /api/v1/weather?city=...
func (h *WeatherHandler) GetByCity(w http.ResponseWriter, r *http.Request) {
	city := r.URL.Query().Get("city")
	if city == "" {
		h.respondWithError(w, http.StatusBadRequest, string(domain.KindInvalidRequest), "'city' query parameter is required")
		return
	}

	snapshot, err := h.weather.ByCity(r.Context(), city)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, toWeatherResponse(snapshot))
}

// GetByProximity handles GET /api/v1/weather/proximity?lat=...&lon=...
func (h *WeatherHandler) GetByProximity(w http.ResponseWriter, r *http.Request) {
	latStr := r.URL.Query().Get("lat")
	lonStr := r.URL.Query().Get("lon")

	if latStr == "" || lonStr == "" {
		h.respondWithError(w, http.StatusBadRequest, string(domain.KindInvalidRequest), "'lat' and 'lon' query parameters are required")
		return
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, string(domain.KindInvalidRequest), "invalid 'lat' value")
		return
	}

	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, string(domain.KindInvalidRequest), "invalid 'lon' value")
		return
	}

	snapshot, err := h.weather.ByProximity(r.Context(), lat, lon)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, toWeatherResponse(snapshot))
}

// GetForecast handles GET /api/v1/weather/forecast?city=...
func (h *WeatherHandler) GetForecast(w http.ResponseWriter, r *http.Request) {
	city := r.URL.Query().Get("city")
	if city == "" {
		h.respondWithError(w, http.StatusBadRequest, string(domain.KindInvalidRequest), "'city' query parameter is required")
		return
	}

	forecast, err := h.forecast.ForecastByCity(r.Context(), city)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, ForecastResponse{Location: forecast.Location, Points: forecast.Points})
}

func toWeatherResponse(s domain.WeatherSnapshot) WeatherResponse {
	return WeatherResponse{
		Location:    s.Location,
		Temperature: s.Temperature,
		FeelsLike:   s.FeelsLike,
		Humidity:    s.Humidity,
		Description: s.Description,
		WindSpeed:   s.WindSpeed,
		Rain:        s.Rain,
		Snow:        s.Snow,
	}
}

func (h *WeatherHandler) respondWithJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (h *WeatherHandler) respondWithError(w http.ResponseWriter, status int, code, message string) {
	h.respondWithJSON(w, status, ErrorResponse{Error: code, Message: message})
}

// handleServiceError maps domain.ServiceError kinds to HTTP responses per
// spec.md §7's status table.
func (h *WeatherHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var svcErr *domain.ServiceError

	if !errors.As(err, &svcErr) {
		h.logger.Error("unexpected error",
			zap.Error(err),
			zap.String("correlation_id", middleware.GetCorrelationID(r.Context())),
			zap.String("request_id", middleware.GetRequestID(r.Context())),
		)
		h.respondWithError(w, http.StatusInternalServerError, string(domain.KindInternal), "an unexpected error occurred")
		return
	}

	switch svcErr.Kind {
	case domain.KindInvalidRequest:
		h.respondWithError(w, http.StatusBadRequest, string(svcErr.Kind), svcErr.Message)
	case domain.KindNotFound:
		h.respondWithError(w, http.StatusNotFound, string(svcErr.Kind), svcErr.Message)
	case domain.KindUpstreamUnavailable, domain.KindUpstreamSchemaError:
		h.respondWithError(w, http.StatusServiceUnavailable, string(svcErr.Kind), "weather service is temporarily unavailable")
	default:
		h.logger.Error("unexpected service error",
			zap.Error(svcErr),
			zap.String("correlation_id", middleware.GetCorrelationID(r.Context())),
		)
		h.respondWithError(w, http.StatusInternalServerError, string(domain.KindInternal), "an unexpected error occurred")
	}
}

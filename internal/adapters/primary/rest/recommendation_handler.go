package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/outfitwx/platform/internal/core/domain"
	"github.com/outfitwx/platform/internal/middleware"
)

// RecommendationEngine exposes the recommendation orchestration the handler
// needs. recommend.Engine satisfies this interface.
type RecommendationEngine interface {
	Recommend(ctx context.Context, location string, prefs domain.Preferences) (domain.RecommendationResponse, error)
	RecommendSimple(ctx context.Context, location string) (domain.RecommendationResponse, error)
	RecommendCategorized(ctx context.Context, weather domain.WeatherSnapshot, prefs domain.Preferences) (domain.CategorizedRecommendationResponse, error)
}

// WeatherLookup resolves a weather snapshot for the categorized endpoint,
// which requires a live snapshot to pass through to the engine.
type WeatherLookup interface {
	ByCity(ctx context.Context, city string) (domain.WeatherSnapshot, error)
}

// RecommendationHandler handles HTTP requests for outfit recommendations.
type RecommendationHandler struct {
	engine  RecommendationEngine
	weather WeatherLookup
	logger  *zap.Logger
}

// NewRecommendationHandler creates a new HTTP handler for recommendation
// operations.
func NewRecommendationHandler(engine RecommendationEngine, weather WeatherLookup, logger *zap.Logger) *RecommendationHandler {
	return &RecommendationHandler{engine: engine, weather: weather, logger: logger}
}

// recommendationRequest is the request body accepted by POST /recommendations.
type recommendationRequest struct {
	Location    string             `json:"location"`
	Preferences domain.Preferences `json:"preferences"`
}

// GetRecommendations handles POST /api/v1/recommendations.
func (h *RecommendationHandler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	var req recommendationRequest

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, string(domain.KindInvalidRequest), "request body must be valid JSON matching the recommendation request schema")
		return
	}

	if req.Location == "" {
		h.respondWithError(w, http.StatusBadRequest, string(domain.KindInvalidRequest), "'location' is required")
		return
	}

	var (
		response domain.RecommendationResponse
		err      error
	)

	if req.Preferences.IsZero() {
		response, err = h.engine.RecommendSimple(r.Context(), req.Location)
	} else {
		response, err = h.engine.Recommend(r.Context(), req.Location, req.Preferences)
	}

	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, response)
}

// categorizedRequest is the request body accepted by the categorized
// endpoint, per spec.md §7's worn-slot-ranked response shape.
type categorizedRequest struct {
	Location    string             `json:"location"`
	Preferences domain.Preferences `json:"preferences"`
}

// GetCategorizedRecommendations handles POST /api/v1/recommendations/categorized.
func (h *RecommendationHandler) GetCategorizedRecommendations(w http.ResponseWriter, r *http.Request) {
	var req categorizedRequest

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, string(domain.KindInvalidRequest), "request body must be valid JSON matching the recommendation request schema")
		return
	}

	if req.Location == "" {
		h.respondWithError(w, http.StatusBadRequest, string(domain.KindInvalidRequest), "'location' is required")
		return
	}

	snapshot, err := h.weather.ByCity(r.Context(), req.Location)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	response, err := h.engine.RecommendCategorized(r.Context(), snapshot, req.Preferences)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, response)
}

func (h *RecommendationHandler) respondWithJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (h *RecommendationHandler) respondWithError(w http.ResponseWriter, status int, code, message string) {
	h.respondWithJSON(w, status, ErrorResponse{Error: code, Message: message})
}

// handleServiceError maps domain.ServiceError kinds to HTTP responses per
// spec.md §7's status table for the recommendation endpoints.
func (h *RecommendationHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
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
	case domain.KindNoSuitableAssets:
		h.respondWithError(w, http.StatusUnprocessableEntity, string(svcErr.Kind), svcErr.Message)
	case domain.KindUpstreamUnavailable, domain.KindUpstreamSchemaError:
		h.respondWithError(w, http.StatusServiceUnavailable, string(svcErr.Kind), "weather service is temporarily unavailable")
	case domain.KindLLMRateLimited:
		h.respondWithError(w, http.StatusTooManyRequests, string(svcErr.Kind), "recommendation provider is rate limiting requests")
	case domain.KindLLMTimeout:
		h.respondWithError(w, http.StatusGatewayTimeout, string(svcErr.Kind), "recommendation provider did not respond in time")
	case domain.KindLLMOutputMalformed:
		h.respondWithError(w, http.StatusBadGateway, string(svcErr.Kind), "recommendation provider returned an unparseable response")
	default:
		h.logger.Error("unexpected service error",
			zap.Error(svcErr),
			zap.String("correlation_id", middleware.GetCorrelationID(r.Context())),
		)
		h.respondWithError(w, http.StatusInternalServerError, string(domain.KindInternal), "an unexpected error occurred")
	}
}

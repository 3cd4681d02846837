package steps

import (
	"context"
	"fmt"
	"net/http/httptest"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/outfitwx/platform/internal/adapters/primary/rest"
	"github.com/outfitwx/platform/internal/core/domain"
)

// recommendationTestContext drives the recommendation handler through an
// httptest server, backed by mock weather and engine collaborators.
type recommendationTestContext struct {
	shared  *sharedResponseContext
	server  *httptest.Server
	weather *mockWeatherResolver
	engine  *mockRecommendationEngine
}

func newRecommendationTestContext(shared *sharedResponseContext) *recommendationTestContext {
	return &recommendationTestContext{
		shared:  shared,
		weather: &mockWeatherResolver{temperature: 70},
		engine:  &mockRecommendationEngine{hasSuitableOutfit: true},
	}
}

// mockRecommendationEngine satisfies rest.RecommendationEngine so scenarios
// can drive the handler without a live catalog or LLM provider.
type mockRecommendationEngine struct {
	hasSuitableOutfit bool
}

func (m *mockRecommendationEngine) Recommend(ctx context.Context, location string, prefs domain.Preferences) (domain.RecommendationResponse, error) {
	return m.recommend(location)
}

func (m *mockRecommendationEngine) RecommendSimple(ctx context.Context, location string) (domain.RecommendationResponse, error) {
	return m.recommend(location)
}

func (m *mockRecommendationEngine) RecommendCategorized(ctx context.Context, weather domain.WeatherSnapshot, prefs domain.Preferences) (domain.CategorizedRecommendationResponse, error) {
	if !m.hasSuitableOutfit {
		return domain.CategorizedRecommendationResponse{}, domain.NewServiceError(domain.KindNoSuitableAssets, "no assets satisfy the current filters", nil)
	}

	return domain.CategorizedRecommendationResponse{
		Location:    weather.Location,
		GeneratedAt: time.Unix(0, 0),
		Recommendations: []domain.CategorizedRecommendation{
			{OutfitRecommendation: domain.OutfitRecommendation{Head: "beanie", Top: "wool sweater", Bottom: "jeans", Footwear: "boots"}},
		},
	}, nil
}

func (m *mockRecommendationEngine) recommend(location string) (domain.RecommendationResponse, error) {
	if !m.hasSuitableOutfit {
		return domain.RecommendationResponse{}, domain.NewServiceError(domain.KindNoSuitableAssets, "no assets satisfy the current filters", nil)
	}

	return domain.RecommendationResponse{
		Location:    location,
		GeneratedAt: time.Unix(0, 0),
		Recommendations: []domain.OutfitRecommendation{
			{Head: "beanie", Top: "wool sweater", Bottom: "jeans", Footwear: "boots"},
		},
	}, nil
}

func (tc *recommendationTestContext) theRecommendationServiceIsRunning() error {
	handler := rest.NewRecommendationHandler(tc.engine, tc.weather, zap.NewNop())

	router := mux.NewRouter()
	router.HandleFunc("/recommendations", handler.GetRecommendations).Methods("POST")
	router.HandleFunc("/recommendations/categorized", handler.GetCategorizedRecommendations).Methods("POST")

	tc.server = httptest.NewServer(router)

	return nil
}

func (tc *recommendationTestContext) theRecommendationWeatherIs(city string, temp int) error {
	tc.weather.temperature = float64(temp)
	return nil
}

func (tc *recommendationTestContext) theCatalogContainsASuitableOutfit() error {
	tc.engine.hasSuitableOutfit = true
	return nil
}

func (tc *recommendationTestContext) theCatalogContainsNoSuitableOutfit() error {
	tc.engine.hasSuitableOutfit = false
	return nil
}

func (tc *recommendationTestContext) iRequestARecommendation(location string) error {
	body := fmt.Sprintf(`{"location": %q}`, location)
	return tc.shared.post(tc.server.URL+"/recommendations", body)
}

func (tc *recommendationTestContext) theResponseShouldContainARecommendation() error {
	recs, ok := tc.shared.responseBody["recommendations"].([]interface{})
	if !ok || len(recs) == 0 {
		return fmt.Errorf("response does not contain any recommendations")
	}
	return nil
}

func (tc *recommendationTestContext) close() {
	if tc.server != nil {
		tc.server.Close()
	}
}

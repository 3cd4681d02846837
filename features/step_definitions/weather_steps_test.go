package steps

import (
	"context"
	"fmt"
	"net/http/httptest"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/outfitwx/platform/internal/adapters/primary/rest"
	"github.com/outfitwx/platform/internal/core/domain"
)

// weatherTestContext drives the weather handler through an httptest server.
// Response assertions are registered once, centrally, against the embedded
// shared context.
type weatherTestContext struct {
	shared *sharedResponseContext
	server *httptest.Server
	mock   *mockWeatherResolver
}

func newWeatherTestContext(shared *sharedResponseContext) *weatherTestContext {
	return &weatherTestContext{shared: shared, mock: &mockWeatherResolver{temperature: 70}}
}

// mockWeatherResolver satisfies rest.WeatherResolver and rest.ForecastResolver
// so scenarios can drive the handler without a live weather cache.
type mockWeatherResolver struct {
	temperature float64
	unavailable bool
}

func (m *mockWeatherResolver) ByCity(ctx context.Context, city string) (domain.WeatherSnapshot, error) {
	if m.unavailable {
		return domain.WeatherSnapshot{}, domain.NewServiceError(domain.KindUpstreamUnavailable, "upstream weather provider unavailable", nil)
	}

	return domain.WeatherSnapshot{Location: city, Temperature: m.temperature, Description: "clear sky"}, nil
}

func (m *mockWeatherResolver) ByProximity(ctx context.Context, lat, lon float64) (domain.WeatherSnapshot, error) {
	if m.unavailable {
		return domain.WeatherSnapshot{}, domain.NewServiceError(domain.KindUpstreamUnavailable, "upstream weather provider unavailable", nil)
	}

	return domain.WeatherSnapshot{Location: "proximity", Temperature: m.temperature, Description: "clear sky"}, nil
}

func (m *mockWeatherResolver) ForecastByCity(ctx context.Context, city string) (domain.Forecast, error) {
	if m.unavailable {
		return domain.Forecast{}, domain.NewServiceError(domain.KindUpstreamUnavailable, "upstream weather provider unavailable", nil)
	}

	return domain.Forecast{
		Location: city,
		Points: []domain.ForecastPoint{
			{Timestamp: 1, Temperature: m.temperature, Description: "clear sky"},
			{Timestamp: 2, Temperature: m.temperature + 2, Description: "clouds"},
		},
	}, nil
}

func (tc *weatherTestContext) theWeatherServiceIsRunning() error {
	handler := rest.NewWeatherHandler(tc.mock, tc.mock, zap.NewNop())

	router := mux.NewRouter()
	router.HandleFunc("/weather", handler.GetByCity).Methods("GET")
	router.HandleFunc("/weather/proximity", handler.GetByProximity).Methods("GET")
	router.HandleFunc("/weather/forecast", handler.GetForecast).Methods("GET")

	tc.server = httptest.NewServer(router)

	return nil
}

func (tc *weatherTestContext) theCurrentTemperatureIs(city string, temp int) error {
	tc.mock.temperature = float64(temp)
	return nil
}

func (tc *weatherTestContext) theUpstreamProviderIsUnavailable() error {
	tc.mock.unavailable = true
	return nil
}

func (tc *weatherTestContext) iRequestCurrentWeatherForCity(city string) error {
	return tc.shared.get(fmt.Sprintf("%s/weather?city=%s", tc.server.URL, city))
}

func (tc *weatherTestContext) iRequestCurrentWeatherWithoutCity() error {
	return tc.shared.get(fmt.Sprintf("%s/weather", tc.server.URL))
}

func (tc *weatherTestContext) iRequestCurrentWeatherForCoordinates(lat, lon string) error {
	return tc.shared.get(fmt.Sprintf("%s/weather/proximity?lat=%s&lon=%s", tc.server.URL, lat, lon))
}

func (tc *weatherTestContext) iRequestForecastForCity(city string) error {
	return tc.shared.get(fmt.Sprintf("%s/weather/forecast?city=%s", tc.server.URL, city))
}

func (tc *weatherTestContext) theResponseShouldContainTemperature() error {
	if _, ok := tc.shared.responseBody["temperature"]; !ok {
		return fmt.Errorf("response does not contain temperature")
	}
	return nil
}

func (tc *weatherTestContext) theResponseShouldContainForecastPoints() error {
	points, ok := tc.shared.responseBody["points"].([]interface{})
	if !ok || len(points) == 0 {
		return fmt.Errorf("response does not contain forecast points")
	}
	return nil
}

func (tc *weatherTestContext) close() {
	if tc.server != nil {
		tc.server.Close()
	}
}

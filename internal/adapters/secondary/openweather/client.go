// Package openweather implements ports.WeatherProvider against the
// OpenWeather current-weather and forecast HTTP APIs, grounded on the
// teacher's nws.Client shape and original_source's OpenWeatherService field
// mapping.
package openweather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/outfitwx/platform/internal/core/domain"
	"github.com/outfitwx/platform/internal/infrastructure/circuitbreaker"
)

// Client implements ports.WeatherProvider against the OpenWeather API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
	breaker    *circuitbreaker.CircuitBreakerWrapper
	retryFn    func() backoff.BackOff
}

// NewClient constructs an OpenWeather client. baseURL is typically
// https://api.openweathermap.org/data/2.5.
func NewClient(baseURL, apiKey string, httpClient *http.Client, breaker *circuitbreaker.CircuitBreakerWrapper, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: httpClient,
		logger:     logger,
		breaker:    breaker,
		retryFn: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			return backoff.WithMaxRetries(b, 3)
		},
	}
}

type currentWeatherEnvelope struct {
	Name string `json:"name"`
	Sys  struct {
		Country string `json:"country"`
		Sunrise int64  `json:"sunrise"`
		Sunset  int64  `json:"sunset"`
	} `json:"sys"`
	Main *struct {
		Temp     float64  `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		TempMin  *float64 `json:"temp_min"`
		TempMax  *float64 `json:"temp_max"`
		Humidity int      `json:"humidity"`
		Pressure int      `json:"pressure"`
	} `json:"main"`
	Weather []struct {
		ID          int    `json:"id"`
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Rain map[string]float64 `json:"rain"`
	Snow map[string]float64 `json:"snow"`
	Dt   int64              `json:"dt"`
}

func (e currentWeatherEnvelope) validate() error {
	if e.Main == nil {
		return domain.NewServiceError(domain.KindUpstreamSchemaError,
			"openweather response missing main object", nil)
	}
	if len(e.Weather) == 0 {
		return domain.NewServiceError(domain.KindUpstreamSchemaError,
			"openweather response missing weather[] entry", nil)
	}
	return nil
}

func (e currentWeatherEnvelope) toSnapshot() domain.WeatherSnapshot {
	rain := e.Rain["1h"]
	snow := e.Snow["1h"]

	var weatherID *int
	if len(e.Weather) > 0 {
		id := e.Weather[0].ID
		weatherID = &id
	}

	return domain.WeatherSnapshot{
		Temperature:    e.Main.Temp,
		FeelsLike:      e.Main.FeelsLike,
		TemperatureMin: e.Main.TempMin,
		TemperatureMax: e.Main.TempMax,
		Humidity:       e.Main.Humidity,
		Pressure:       e.Main.Pressure,
		Description:    e.Weather[0].Description,
		WeatherGroup:   domain.WeatherGroup(e.Weather[0].Main),
		WindSpeed:      e.Wind.Speed,
		Rain:           rain,
		Snow:           snow,
		WeatherID:      weatherID,
		Location:       e.Name,
		Country:        e.Sys.Country,
		Timestamp:      e.Dt,
		Sunrise:        e.Sys.Sunrise,
		Sunset:         e.Sys.Sunset,
	}
}

// Current fetches current weather conditions for city.
func (c *Client) Current(ctx context.Context, city string) (domain.WeatherSnapshot, error) {
	params := url.Values{"q": []string{city}, "units": []string{"metric"}}
	return c.fetchCurrent(ctx, params)
}

// CurrentByCoordinates fetches current weather conditions for a lat/lon
// pair.
func (c *Client) CurrentByCoordinates(ctx context.Context, lat, lon float64) (domain.WeatherSnapshot, error) {
	params := url.Values{
		"lat":   []string{fmt.Sprintf("%f", lat)},
		"lon":   []string{fmt.Sprintf("%f", lon)},
		"units": []string{"metric"},
	}
	return c.fetchCurrent(ctx, params)
}

func (c *Client) fetchCurrent(ctx context.Context, params url.Values) (domain.WeatherSnapshot, error) {
	var snapshot domain.WeatherSnapshot

	operation := func() error {
		body, status, err := c.doRequest(ctx, "weather", params)
		if err != nil {
			return err
		}

		if status == http.StatusNotFound {
			return backoff.Permanent(domain.NewServiceError(domain.KindNotFound,
				"location not found upstream", nil))
		}

		var envelope currentWeatherEnvelope
		if jsonErr := json.Unmarshal(body, &envelope); jsonErr != nil {
			return backoff.Permanent(domain.NewServiceError(domain.KindUpstreamSchemaError,
				"malformed openweather response body", jsonErr))
		}

		if validateErr := envelope.validate(); validateErr != nil {
			return backoff.Permanent(validateErr)
		}

		snapshot = envelope.toSnapshot()
		return nil
	}

	wrapped := func() error {
		return c.breaker.Execute(ctx, "openweather.current", func() error {
			return backoff.Retry(operation, c.retryFn())
		})
	}

	if err := wrapped(); err != nil {
		return domain.WeatherSnapshot{}, c.classify(err)
	}

	return snapshot, nil
}

type forecastEnvelope struct {
	City *struct {
		Name    string `json:"name"`
		Country string `json:"country"`
	} `json:"city"`
	List []struct {
		Dt   int64 `json:"dt"`
		Main struct {
			Temp float64 `json:"temp"`
		} `json:"main"`
		Weather []struct {
			Description string `json:"description"`
		} `json:"weather"`
		Wind struct {
			Speed float64 `json:"speed"`
		} `json:"wind"`
		Rain map[string]float64 `json:"rain"`
		Snow map[string]float64 `json:"snow"`
	} `json:"list"`
}

// Forecast fetches the multi-point forecast for city.
func (c *Client) Forecast(ctx context.Context, city string) (domain.Forecast, error) {
	params := url.Values{"q": []string{city}, "units": []string{"metric"}}

	var forecast domain.Forecast

	operation := func() error {
		body, status, err := c.doRequest(ctx, "forecast", params)
		if err != nil {
			return err
		}

		if status == http.StatusNotFound {
			return backoff.Permanent(domain.NewServiceError(domain.KindNotFound,
				"location not found upstream", nil))
		}

		var envelope forecastEnvelope
		if jsonErr := json.Unmarshal(body, &envelope); jsonErr != nil {
			return backoff.Permanent(domain.NewServiceError(domain.KindUpstreamSchemaError,
				"malformed openweather forecast response body", jsonErr))
		}

		if len(envelope.List) == 0 {
			return backoff.Permanent(domain.NewServiceError(domain.KindUpstreamSchemaError,
				"openweather forecast response missing list[] entries", nil))
		}

		if envelope.City == nil {
			return backoff.Permanent(domain.NewServiceError(domain.KindUpstreamSchemaError,
				"openweather forecast response missing city object", nil))
		}

		points := make([]domain.ForecastPoint, 0, len(envelope.List))
		for _, p := range envelope.List {
			description := ""
			if len(p.Weather) > 0 {
				description = p.Weather[0].Description
			}
			points = append(points, domain.ForecastPoint{
				Timestamp:   p.Dt,
				Temperature: p.Main.Temp,
				Description: description,
				WindSpeed:   p.Wind.Speed,
				Rain:        p.Rain["3h"],
				Snow:        p.Snow["3h"],
			})
		}

		forecast = domain.Forecast{
			Location: envelope.City.Name,
			Country:  envelope.City.Country,
			Points:   points,
		}

		return nil
	}

	wrapped := func() error {
		return c.breaker.Execute(ctx, "openweather.forecast", func() error {
			return backoff.Retry(operation, c.retryFn())
		})
	}

	if err := wrapped(); err != nil {
		return domain.Forecast{}, c.classify(err)
	}

	return forecast, nil
}

func (c *Client) doRequest(ctx context.Context, endpoint string, params url.Values) ([]byte, int, error) {
	params.Set("appid", c.apiKey)

	reqURL := fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, 0, backoff.Permanent(fmt.Errorf("building openweather request: %w", err))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("openweather request failed", zap.String("endpoint", endpoint), zap.Error(err))
		return nil, 0, err
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Warn("failed to close openweather response body", zap.Error(closeErr))
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}

	if resp.StatusCode >= 500 {
		return body, resp.StatusCode, fmt.Errorf("openweather returned status %d", resp.StatusCode)
	}

	return body, resp.StatusCode, nil
}

// classify maps an unclassified transport/retry-budget error into
// UpstreamUnavailable, leaving already-classified ServiceErrors untouched.
func (c *Client) classify(err error) error {
	if svcErr, ok := err.(*domain.ServiceError); ok {
		return svcErr
	}

	return domain.NewServiceError(domain.KindUpstreamUnavailable,
		"openweather upstream unavailable after retries", err)
}

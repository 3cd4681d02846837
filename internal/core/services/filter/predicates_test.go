package filter

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/outfitwx/platform/internal/core/domain"
)

// assetFrom builds an AssetItem through the catalog wire format, since
// stringSet (Style/Fit/Season/Condition) is unexported and only settable
// via AssetItem's UnmarshalJSON.
func assetFrom(t *testing.T, wire map[string]interface{}) *domain.AssetItem {
	t.Helper()

	base := map[string]interface{}{
		"AssetName":  "base",
		"OutfitPart": "top",
		"Gender":     "unisex",
		"TempRange":  map[string]interface{}{"Min": 30.0, "Max": 70.0},
		"Wind":       "yes",
		"Rain":       "yes",
		"Snow":       "yes",
	}
	for k, v := range wire {
		base[k] = v
	}

	data, err := json.Marshal(base)
	require.NoError(t, err)

	var a domain.AssetItem
	require.NoError(t, json.Unmarshal(data, &a))
	return &a
}

func TestTemperature(t *testing.T) {
	a := assetFrom(t, map[string]interface{}{"TempRange": map[string]interface{}{"Min": 30.0, "Max": 70.0}})

	assert.True(t, Temperature(a, domain.WeatherSnapshot{Temperature: 30}, domain.Preferences{}), "lower bound is inclusive")
	assert.True(t, Temperature(a, domain.WeatherSnapshot{Temperature: 70}, domain.Preferences{}), "upper bound is inclusive")
	assert.True(t, Temperature(a, domain.WeatherSnapshot{Temperature: 50}, domain.Preferences{}))
	assert.False(t, Temperature(a, domain.WeatherSnapshot{Temperature: 29}, domain.Preferences{}))
	assert.False(t, Temperature(a, domain.WeatherSnapshot{Temperature: 71}, domain.Preferences{}))
}

func TestCondition(t *testing.T) {
	a := assetFrom(t, map[string]interface{}{"Condition": []string{"clear sky", "sunny"}})

	assert.True(t, Condition(a, domain.WeatherSnapshot{Description: "clear sky"}, domain.Preferences{}))
	assert.False(t, Condition(a, domain.WeatherSnapshot{Description: "rain"}, domain.Preferences{}))
}

func TestWind(t *testing.T) {
	windNo := assetFrom(t, map[string]interface{}{"Wind": "no"})
	windYes := assetFrom(t, map[string]interface{}{"Wind": "yes"})

	assert.False(t, Wind(windNo, domain.WeatherSnapshot{WindSpeed: 5}, domain.Preferences{}), "wind-unsuitable asset rejected when windy")
	assert.True(t, Wind(windNo, domain.WeatherSnapshot{WindSpeed: 0}, domain.Preferences{}), "no wind admits every asset")
	assert.True(t, Wind(windYes, domain.WeatherSnapshot{WindSpeed: 5}, domain.Preferences{}))
}

func TestRain(t *testing.T) {
	rainNo := assetFrom(t, map[string]interface{}{"Rain": "no"})

	assert.False(t, Rain(rainNo, domain.WeatherSnapshot{Rain: 1}, domain.Preferences{}))
	assert.True(t, Rain(rainNo, domain.WeatherSnapshot{Rain: 0}, domain.Preferences{}))
}

func TestSnow(t *testing.T) {
	snowNo := assetFrom(t, map[string]interface{}{"Snow": "no"})

	assert.False(t, Snow(snowNo, domain.WeatherSnapshot{Snow: 1}, domain.Preferences{}))
	assert.True(t, Snow(snowNo, domain.WeatherSnapshot{Snow: 0}, domain.Preferences{}))
}

func TestGender(t *testing.T) {
	unisex := assetFrom(t, map[string]interface{}{"Gender": "unisex"})
	male := assetFrom(t, map[string]interface{}{"Gender": "male"})
	female := assetFrom(t, map[string]interface{}{"Gender": "female"})

	assert.True(t, Gender(male, domain.WeatherSnapshot{}, domain.Preferences{}), "no preference admits every asset")
	assert.True(t, Gender(unisex, domain.WeatherSnapshot{}, domain.Preferences{Gender: domain.Male}), "unisex always admitted")
	assert.True(t, Gender(male, domain.WeatherSnapshot{}, domain.Preferences{Gender: domain.Male}))
	assert.False(t, Gender(female, domain.WeatherSnapshot{}, domain.Preferences{Gender: domain.Male}))
}

func TestStyles(t *testing.T) {
	a := assetFrom(t, map[string]interface{}{"Style": []string{"casual", "sporty"}})

	assert.True(t, Styles(a, domain.WeatherSnapshot{}, domain.Preferences{}), "no preference admits every asset")
	assert.True(t, Styles(a, domain.WeatherSnapshot{}, domain.Preferences{Styles: []string{"sporty"}}))
	assert.False(t, Styles(a, domain.WeatherSnapshot{}, domain.Preferences{Styles: []string{"formal"}}))
}

func TestColors(t *testing.T) {
	a := assetFrom(t, map[string]interface{}{"Color": "blue"})

	assert.True(t, Colors(a, domain.WeatherSnapshot{}, domain.Preferences{}), "no preference admits every asset")
	assert.True(t, Colors(a, domain.WeatherSnapshot{}, domain.Preferences{Colors: []string{"blue", "red"}}))
	assert.False(t, Colors(a, domain.WeatherSnapshot{}, domain.Preferences{Colors: []string{"red"}}))
}

func TestFit(t *testing.T) {
	a := assetFrom(t, map[string]interface{}{"Fit": []string{"slim"}})

	assert.True(t, Fit(a, domain.WeatherSnapshot{}, domain.Preferences{}), "no preference admits every asset")
	assert.True(t, Fit(a, domain.WeatherSnapshot{}, domain.Preferences{Fit: "slim"}))
	assert.False(t, Fit(a, domain.WeatherSnapshot{}, domain.Preferences{Fit: "loose"}))
}

func TestDefaultPredicates(t *testing.T) {
	preds := DefaultPredicates()

	assert.Len(t, preds, 8, "Condition is intentionally excluded from the default set")
}

func TestStyleMatchScore(t *testing.T) {
	a := assetFrom(t, map[string]interface{}{"Style": []string{"casual", "sporty"}})

	assert.Equal(t, 0.0, StyleMatchScore(a, nil))
	assert.Equal(t, 0.5, StyleMatchScore(a, []string{"casual", "formal"}))
	assert.Equal(t, 1.0, StyleMatchScore(a, []string{"casual", "sporty"}))
}

func TestSeasonForMonth(t *testing.T) {
	assert.Equal(t, "winter", SeasonForMonth(time.January))
	assert.Equal(t, "spring", SeasonForMonth(time.April))
	assert.Equal(t, "summer", SeasonForMonth(time.July))
	assert.Equal(t, "autumn", SeasonForMonth(time.October))
}

func TestSeasonFilter(t *testing.T) {
	a := assetFrom(t, map[string]interface{}{"Season": []string{"winter"}})

	assert.True(t, SeasonFilter(a, time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)))
	assert.False(t, SeasonFilter(a, time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC)))
}

func TestOutfitCompatible(t *testing.T) {
	candidate := assetFrom(t, map[string]interface{}{"Style": []string{"casual"}})

	assert.True(t, OutfitCompatible(candidate, nil), "an empty outfit always matches")

	compatible := map[domain.OutfitPart]*domain.AssetItem{
		domain.Top: assetFrom(t, map[string]interface{}{"Style": []string{"casual", "relaxed"}}),
	}
	assert.True(t, OutfitCompatible(candidate, compatible))

	incompatible := map[domain.OutfitPart]*domain.AssetItem{
		domain.Top: assetFrom(t, map[string]interface{}{"Style": []string{"formal"}}),
	}
	assert.False(t, OutfitCompatible(candidate, incompatible))
}

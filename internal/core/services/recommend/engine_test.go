package recommend

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/outfitwx/platform/internal/core/domain"
	"github.com/outfitwx/platform/internal/core/services/filter"
	"github.com/outfitwx/platform/internal/infrastructure/kvstore"
)

type fakeWeatherResolver struct {
	snapshot domain.WeatherSnapshot
	err      error
}

func (f *fakeWeatherResolver) ByCity(ctx context.Context, city string) (domain.WeatherSnapshot, error) {
	return f.snapshot, f.err
}

type fakeCatalogProvider struct {
	assets []*domain.AssetItem
}

func (f *fakeCatalogProvider) Assets() []*domain.AssetItem {
	return f.assets
}

type fakeLLM struct {
	calls      int32
	completion string
	err        error
	// errUntilCall, if set, makes the first N calls fail as rate limited before
	// completion/err take over, to exercise the engine's retry path.
	errUntilCall int32
}

func (f *fakeLLM) GenerateRecommendation(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	n := atomic.AddInt32(&f.calls, 1)
	if f.errUntilCall > 0 && n <= f.errUntilCall {
		return "", domain.NewServiceError(domain.KindLLMRateLimited, "rate limited", nil)
	}
	if f.err != nil {
		return "", f.err
	}
	return f.completion, nil
}

func suitableAsset(t *testing.T, name, part string) *domain.AssetItem {
	t.Helper()

	data, err := json.Marshal(map[string]interface{}{
		"AssetName":  name,
		"OutfitPart": part,
		"Gender":     "unisex",
		"TempRange":  map[string]interface{}{"Min": -10.0, "Max": 100.0},
		"Wind":       "yes",
		"Rain":       "yes",
		"Snow":       "yes",
	})
	require.NoError(t, err)

	var a domain.AssetItem
	require.NoError(t, json.Unmarshal(data, &a))
	return &a
}

func newTestKV() *kvstore.MemoryStore {
	return kvstore.NewMemoryStore(time.Minute, time.Minute, zap.NewNop())
}

func testPipeline() *filter.Pipeline {
	return filter.NewPipeline(filter.DefaultPredicates(), 2, zap.NewNop())
}

func TestNewEngine(t *testing.T) {
	t.Run("zero falls back to the default", func(t *testing.T) {
		e, err := NewEngine(&fakeWeatherResolver{}, &fakeCatalogProvider{}, testPipeline(), &fakeLLM{}, newTestKV(), zap.NewNop(), 0)
		require.NoError(t, err)
		assert.Equal(t, defaultMaxRecommendations, e.maxRecommendations)
	})

	t.Run("above the hard cap is rejected", func(t *testing.T) {
		_, err := NewEngine(&fakeWeatherResolver{}, &fakeCatalogProvider{}, testPipeline(), &fakeLLM{}, newTestKV(), zap.NewNop(), 10)
		assert.Error(t, err)
	})
}

func TestEngine_RecommendSimple(t *testing.T) {
	weather := &fakeWeatherResolver{snapshot: domain.WeatherSnapshot{Location: "Seattle", Temperature: 40}}
	catalog := &fakeCatalogProvider{assets: []*domain.AssetItem{
		suitableAsset(t, "beanie", "head"),
		suitableAsset(t, "sweater", "top"),
		suitableAsset(t, "jeans", "bottom"),
		suitableAsset(t, "boots", "footwear"),
	}}
	llm := &fakeLLM{completion: `[{"outfit": {"head": "beanie", "top": "sweater", "bottom": "jeans", "footwear": "boots"}, "description": "warm"}]`}

	e, err := NewEngine(weather, catalog, testPipeline(), llm, newTestKV(), zap.NewNop(), 5)
	require.NoError(t, err)

	resp, err := e.RecommendSimple(context.Background(), "Seattle")
	require.NoError(t, err)

	assert.Equal(t, "Seattle", resp.Location)
	require.Len(t, resp.Recommendations, 1)
	assert.Equal(t, "beanie", resp.Recommendations[0].Head)
}

func TestEngine_RecommendSimplePropagatesWeatherError(t *testing.T) {
	weather := &fakeWeatherResolver{err: domain.NewServiceError(domain.KindNotFound, "unknown city", nil)}
	e, err := NewEngine(weather, &fakeCatalogProvider{}, testPipeline(), &fakeLLM{}, newTestKV(), zap.NewNop(), 5)
	require.NoError(t, err)

	_, err = e.RecommendSimple(context.Background(), "Nowhere")
	assert.Error(t, err)
}

func TestEngine_RecommendSimpleNoSuitableAssets(t *testing.T) {
	weather := &fakeWeatherResolver{snapshot: domain.WeatherSnapshot{Location: "Seattle", Temperature: 40}}
	e, err := NewEngine(weather, &fakeCatalogProvider{}, testPipeline(), &fakeLLM{}, newTestKV(), zap.NewNop(), 5)
	require.NoError(t, err)

	_, err = e.RecommendSimple(context.Background(), "Seattle")
	require.Error(t, err)

	var svcErr *domain.ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, domain.KindNoSuitableAssets, svcErr.Kind)
}

func TestEngine_RecommendCachesResponseByFingerprint(t *testing.T) {
	weather := &fakeWeatherResolver{snapshot: domain.WeatherSnapshot{Location: "Seattle", Temperature: 40}}
	catalog := &fakeCatalogProvider{assets: []*domain.AssetItem{
		suitableAsset(t, "beanie", "head"),
		suitableAsset(t, "sweater", "top"),
		suitableAsset(t, "jeans", "bottom"),
		suitableAsset(t, "boots", "footwear"),
	}}
	llm := &fakeLLM{completion: `[{"outfit": {"head": "beanie", "top": "sweater", "bottom": "jeans", "footwear": "boots"}}]`}

	e, err := NewEngine(weather, catalog, testPipeline(), llm, newTestKV(), zap.NewNop(), 5)
	require.NoError(t, err)

	_, err = e.RecommendSimple(context.Background(), "Seattle")
	require.NoError(t, err)

	_, err = e.RecommendSimple(context.Background(), "Seattle")
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&llm.calls), "the second identical request is served from the response cache")
}

func TestEngine_CallLLMRetriesOnRateLimit(t *testing.T) {
	weather := &fakeWeatherResolver{snapshot: domain.WeatherSnapshot{Location: "Seattle", Temperature: 40}}
	catalog := &fakeCatalogProvider{assets: []*domain.AssetItem{
		suitableAsset(t, "beanie", "head"),
		suitableAsset(t, "sweater", "top"),
		suitableAsset(t, "jeans", "bottom"),
		suitableAsset(t, "boots", "footwear"),
	}}
	llm := &fakeLLM{
		errUntilCall: 1,
		completion:   `[{"outfit": {"head": "beanie", "top": "sweater", "bottom": "jeans", "footwear": "boots"}}]`,
	}

	e, err := NewEngine(weather, catalog, testPipeline(), llm, newTestKV(), zap.NewNop(), 5)
	require.NoError(t, err)

	_, err = e.RecommendSimple(context.Background(), "Seattle")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&llm.calls), int32(2))
}

func TestEngine_RecommendCategorized(t *testing.T) {
	catalog := &fakeCatalogProvider{assets: []*domain.AssetItem{
		suitableAsset(t, "beanie", "head"),
		suitableAsset(t, "sweater", "top"),
		suitableAsset(t, "jeans", "bottom"),
		suitableAsset(t, "boots", "footwear"),
	}}
	llm := &fakeLLM{completion: `{"recommendations": {"head": ["beanie"], "top": ["sweater"], "bottom": ["jeans"], "footwear": ["boots"]}}`}

	e, err := NewEngine(&fakeWeatherResolver{}, catalog, testPipeline(), llm, newTestKV(), zap.NewNop(), 5)
	require.NoError(t, err)

	snapshot := domain.WeatherSnapshot{Location: "Seattle", Temperature: 40}
	resp, err := e.RecommendCategorized(context.Background(), snapshot, domain.Preferences{})
	require.NoError(t, err)

	assert.Equal(t, "Seattle", resp.Location)
	require.Len(t, resp.Recommendations, 1)
	assert.Equal(t, "beanie", resp.Recommendations[0].Head)
}

func TestWeatherSummaryAndStyleNotes(t *testing.T) {
	rain := domain.WeatherSnapshot{Rain: 1, Description: "rain"}
	assert.Contains(t, styleNotes(rain), "umbrella")

	snow := domain.WeatherSnapshot{Snow: 1}
	assert.Contains(t, styleNotes(snow), "snowy")

	windy := domain.WeatherSnapshot{WindSpeed: 10}
	assert.Contains(t, styleNotes(windy), "windy")

	calm := domain.WeatherSnapshot{}
	assert.Contains(t, styleNotes(calm), "perfectly suited")

	summary := weatherSummary("Seattle", domain.WeatherSnapshot{Temperature: 20, Description: "clear", WindSpeed: 3})
	assert.Contains(t, summary, "Seattle")
}

func TestFingerprintForIsDeterministic(t *testing.T) {
	prefs := domain.Preferences{Styles: []string{"casual"}}

	a, err := fingerprintFor("Seattle", 40.0, prefs)
	require.NoError(t, err)
	b, err := fingerprintFor("Seattle", 40.0, prefs)
	require.NoError(t, err)

	assert.Equal(t, a, b)

	c, err := fingerprintFor("Denver", 40.0, prefs)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

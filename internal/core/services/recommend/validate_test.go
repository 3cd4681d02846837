package recommend

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/outfitwx/platform/internal/core/domain"
)

func TestParseUncategorized(t *testing.T) {
	t.Run("nested object payload", func(t *testing.T) {
		body := `[{"outfit": {"head": "beanie", "top": "sweater", "bottom": "jeans", "footwear": "boots"}, "description": "warm layers", "weather_appropriate_score": 0.9, "style_score": 1.5}]`

		recs, err := parseUncategorized(body)

		assert.NoError(t, err)
		assert.Len(t, recs, 1)
		assert.Equal(t, "beanie", recs[0].Head)
		assert.Equal(t, "warm layers", recs[0].Description)
		assert.Equal(t, 1.0, recs[0].StyleScore, "scores above 1 are clamped")
	})

	t.Run("single-element array payload", func(t *testing.T) {
		body := `[{"outfit": [{"head": "cap", "top": "tee", "bottom": "shorts", "footwear": "sandals"}]}]`

		recs, err := parseUncategorized(body)

		assert.NoError(t, err)
		assert.Len(t, recs, 1)
		assert.Equal(t, "cap", recs[0].Head)
		assert.Equal(t, "N/A", recs[0].Description, "missing description falls back to the placeholder")
	})

	t.Run("not a JSON array", func(t *testing.T) {
		_, err := parseUncategorized(`{"not": "an array"}`)

		assert.Error(t, err)

		var svcErr *domain.ServiceError
		assert.ErrorAs(t, err, &svcErr)
		assert.Equal(t, domain.KindLLMOutputMalformed, svcErr.Kind)
	})

	t.Run("entries with no extractable outfit are dropped", func(t *testing.T) {
		body := `[{"description": "nothing useful here"}]`

		_, err := parseUncategorized(body)

		assert.Error(t, err)

		var svcErr *domain.ServiceError
		assert.ErrorAs(t, err, &svcErr)
		assert.Equal(t, domain.KindLLMOutputMalformed, svcErr.Kind)
	})
}

func TestParseCategorized(t *testing.T) {
	t.Run("well-formed payload", func(t *testing.T) {
		body := `{"recommendations": {"head": ["beanie", "cap"], "top": ["sweater"], "bottom": ["jeans"], "footwear": ["boots"]}, "description": "layer up"}`

		rec, err := parseCategorized(body)

		assert.NoError(t, err)
		assert.Equal(t, "beanie", rec.Head)
		assert.Equal(t, []string{"beanie", "cap"}, rec.HeadOptions)
		assert.Equal(t, "layer up", rec.Description)
	})

	t.Run("empty option lists fall back to placeholder", func(t *testing.T) {
		body := `{"recommendations": {"head": [], "top": [], "bottom": [], "footwear": []}}`

		rec, err := parseCategorized(body)

		assert.NoError(t, err)
		assert.Equal(t, "N/A", rec.Head)
	})

	t.Run("malformed JSON", func(t *testing.T) {
		_, err := parseCategorized(`not json`)

		assert.Error(t, err)

		var svcErr *domain.ServiceError
		assert.ErrorAs(t, err, &svcErr)
		assert.Equal(t, domain.KindLLMOutputMalformed, svcErr.Kind)
	})
}

func TestClampScore(t *testing.T) {
	assert.Equal(t, 0.0, clampScore(-0.5))
	assert.Equal(t, 1.0, clampScore(1.5))
	assert.Equal(t, 0.5, clampScore(0.5))
}

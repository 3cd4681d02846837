package domain

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssetItem_UnmarshalJSON(t *testing.T) {
	t.Run("full wire payload", func(t *testing.T) {
		raw := `{
			"AssetName": "wool-sweater",
			"OutfitPart": "top",
			"Color": "gray",
			"Style": ["casual", "cozy"],
			"Gender": "unisex",
			"Fit": "regular",
			"Season": ["winter"],
			"Condition": "clear sky",
			"TempRange": {"Min": 20, "Max": 50},
			"Wind": "yes",
			"Rain": "no",
			"Snow": "yes"
		}`

		var a AssetItem
		require.NoError(t, json.Unmarshal([]byte(raw), &a))

		assert.Equal(t, "wool-sweater", a.AssetName)
		assert.Equal(t, Top, a.OutfitPart)
		assert.True(t, a.Style.Has("casual"))
		assert.True(t, a.Condition.Has("clear sky"), "a bare string Condition normalizes to a one-element set")
		assert.Equal(t, TemperatureRange{Min: 20, Max: 50}, a.TempRange)
		assert.Equal(t, TriNo, a.Rain)
	})

	t.Run("missing temp bounds default to infinities", func(t *testing.T) {
		raw := `{"AssetName": "universal", "OutfitPart": "footwear", "Gender": "unisex", "TempRange": {}}`

		var a AssetItem
		require.NoError(t, json.Unmarshal([]byte(raw), &a))

		assert.True(t, math.IsInf(a.TempRange.Min, -1))
		assert.True(t, math.IsInf(a.TempRange.Max, 1))
	})

	t.Run("unknown outfit_part is rejected", func(t *testing.T) {
		raw := `{"AssetName": "bad", "OutfitPart": "gloves", "Gender": "unisex", "TempRange": {}}`

		var a AssetItem
		err := json.Unmarshal([]byte(raw), &a)

		require.Error(t, err)
		var svcErr *ServiceError
		require.ErrorAs(t, err, &svcErr)
		assert.Equal(t, KindInvalidRequest, svcErr.Kind)
	})

	t.Run("min greater than max is rejected", func(t *testing.T) {
		raw := `{"AssetName": "bad", "OutfitPart": "top", "Gender": "unisex", "TempRange": {"Min": 80, "Max": 20}}`

		var a AssetItem
		err := json.Unmarshal([]byte(raw), &a)

		require.Error(t, err)
		var svcErr *ServiceError
		require.ErrorAs(t, err, &svcErr)
		assert.Equal(t, KindInvalidRequest, svcErr.Kind)
	})
}

func TestPreferences_IsZero(t *testing.T) {
	assert.True(t, Preferences{}.IsZero())
	assert.False(t, Preferences{Gender: Male}.IsZero())
	assert.False(t, Preferences{Styles: []string{"casual"}}.IsZero())
	assert.False(t, Preferences{Colors: []string{"blue"}}.IsZero())
	assert.False(t, Preferences{Fit: "slim"}.IsZero())
}

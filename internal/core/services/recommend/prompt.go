package recommend

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/outfitwx/platform/internal/core/domain"
)

const systemRole = "You are an expert fashion stylist who recommends outfits suited to the current weather."

// buildUncategorizedPrompt mirrors original_source's STYLIST_PROMPT_TEMPLATE
// context assembly: weather JSON, the filtered asset catalog, and the
// caller's style preferences.
func buildUncategorizedPrompt(weather domain.WeatherSnapshot, assets []*domain.AssetItem, styles []string) (string, error) {
	weatherJSON, err := json.Marshal(weather)
	if err != nil {
		return "", err
	}

	assetsJSON, err := json.Marshal(assets)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(
		"Weather: %s\nAvailable assets: %s\nStyle preferences: %s\n\n"+
			"Respond with a JSON array of 2 to 5 outfit recommendations. Each element must "+
			"contain a description, a weather_appropriate_score and style_score between 0 and 1, "+
			"and an outfit object naming head/top/bottom/footwear asset_name values from the "+
			"available assets.",
		string(weatherJSON), string(assetsJSON), strings.Join(styles, ", "),
	), nil
}

// buildCategorizedPrompt assembles the categorized-endpoint prompt context.
func buildCategorizedPrompt(weather domain.WeatherSnapshot, assets []*domain.AssetItem, styles []string) (string, error) {
	weatherJSON, err := json.Marshal(weather)
	if err != nil {
		return "", err
	}

	assetsJSON, err := json.Marshal(assets)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(
		"Weather: %s\nAvailable assets: %s\nStyle preferences: %s\n\n"+
			"Respond with a single JSON object shaped {recommendations: {head: [...], top: [...], "+
			"bottom: [...], footwear: [...]}, description}, each list ranked best-match first and "+
			"naming asset_name values from the available assets.",
		string(weatherJSON), string(assetsJSON), strings.Join(styles, ", "),
	), nil
}

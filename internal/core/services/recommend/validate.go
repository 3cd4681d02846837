package recommend

import (
	"encoding/json"
	"fmt"

	"github.com/outfitwx/platform/internal/core/domain"
)

const naPlaceholder = "N/A"

// rawOutfitPieces is the nested {head, top, bottom, footwear} shape that may
// appear either directly or as the single element of an array under an
// LLM-chosen key, per spec.md §4.6 step 8 and grounded on original_source's
// _process_llm_recommendations indexing into `list(rec_item.values())[0][0]`.
type rawOutfitPieces struct {
	Head     string `json:"head"`
	Top      string `json:"top"`
	Bottom   string `json:"bottom"`
	Footwear string `json:"footwear"`
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func orNA(s string) string {
	if s == "" {
		return naPlaceholder
	}
	return s
}

// parseUncategorized decodes the sanitized LLM JSON body into a list of
// OutfitRecommendation, tolerating the outfit payload appearing either as a
// nested object or as a single-element array under a sibling key.
func parseUncategorized(sanitizedJSON string) ([]domain.OutfitRecommendation, error) {
	var entries []map[string]json.RawMessage
	if err := json.Unmarshal([]byte(sanitizedJSON), &entries); err != nil {
		return nil, domain.NewServiceError(domain.KindLLMOutputMalformed,
			"LLM response is not a JSON array of recommendation objects", err)
	}

	recommendations := make([]domain.OutfitRecommendation, 0, len(entries))

	for _, entry := range entries {
		rec, err := parseEntry(entry)
		if err != nil {
			continue
		}
		recommendations = append(recommendations, rec)
	}

	if len(recommendations) == 0 {
		return nil, domain.NewServiceError(domain.KindLLMOutputMalformed,
			"no valid recommendations could be extracted from LLM response", nil)
	}

	return recommendations, nil
}

func parseEntry(entry map[string]json.RawMessage) (domain.OutfitRecommendation, error) {
	var description string
	var weatherScore, styleScore float64

	if raw, ok := entry["description"]; ok {
		_ = json.Unmarshal(raw, &description)
	}
	if raw, ok := entry["weather_appropriate_score"]; ok {
		_ = json.Unmarshal(raw, &weatherScore)
	}
	if raw, ok := entry["style_score"]; ok {
		_ = json.Unmarshal(raw, &styleScore)
	}

	pieces, err := extractPieces(entry)
	if err != nil {
		return domain.OutfitRecommendation{}, err
	}

	return domain.OutfitRecommendation{
		Head:                    orNA(pieces.Head),
		Top:                     orNA(pieces.Top),
		Bottom:                  orNA(pieces.Bottom),
		Footwear:                orNA(pieces.Footwear),
		Description:             orNA(description),
		WeatherAppropriateScore: clampScore(weatherScore),
		StyleScore:              clampScore(styleScore),
	}, nil
}

func extractPieces(entry map[string]json.RawMessage) (rawOutfitPieces, error) {
	for key, raw := range entry {
		switch key {
		case "description", "weather_appropriate_score", "style_score":
			continue
		}

		var obj rawOutfitPieces
		if err := json.Unmarshal(raw, &obj); err == nil && hasAnyPiece(obj) {
			return obj, nil
		}

		var list []rawOutfitPieces
		if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
			return list[0], nil
		}
	}

	return rawOutfitPieces{}, fmt.Errorf("no outfit payload key found in LLM recommendation entry")
}

func hasAnyPiece(p rawOutfitPieces) bool {
	return p.Head != "" || p.Top != "" || p.Bottom != "" || p.Footwear != ""
}

// categorizedPayload is the categorized-endpoint LLM response shape from
// spec.md §4.6 step 8.
type categorizedPayload struct {
	Recommendations struct {
		Head     []string `json:"head"`
		Top      []string `json:"top"`
		Bottom   []string `json:"bottom"`
		Footwear []string `json:"footwear"`
	} `json:"recommendations"`
	Description     string `json:"description"`
	AdditionalNotes string `json:"additional_notes"`
}

func parseCategorized(sanitizedJSON string) (domain.CategorizedRecommendation, error) {
	var payload categorizedPayload
	if err := json.Unmarshal([]byte(sanitizedJSON), &payload); err != nil {
		return domain.CategorizedRecommendation{}, domain.NewServiceError(domain.KindLLMOutputMalformed,
			"LLM response is not a valid categorized recommendation object", err)
	}

	return domain.CategorizedRecommendation{
		OutfitRecommendation: domain.OutfitRecommendation{
			Head:        firstOrNA(payload.Recommendations.Head),
			Top:         firstOrNA(payload.Recommendations.Top),
			Bottom:      firstOrNA(payload.Recommendations.Bottom),
			Footwear:    firstOrNA(payload.Recommendations.Footwear),
			Description: orNA(payload.Description),
		},
		HeadOptions:     payload.Recommendations.Head,
		TopOptions:      payload.Recommendations.Top,
		BottomOptions:   payload.Recommendations.Bottom,
		FootwearOptions: payload.Recommendations.Footwear,
		AdditionalNotes: orNA(payload.AdditionalNotes),
	}, nil
}

func firstOrNA(options []string) string {
	if len(options) == 0 {
		return naPlaceholder
	}
	return options[0]
}

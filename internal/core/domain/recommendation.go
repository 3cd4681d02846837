package domain

import "time"

// OutfitRecommendation is a single LLM-generated outfit suggestion tied to
// four catalog asset names, one per OutfitPart.
type OutfitRecommendation struct {
	Head                    string  `json:"head"`
	Top                     string  `json:"top"`
	Bottom                  string  `json:"bottom"`
	Footwear                string  `json:"footwear"`
	Description             string  `json:"description"`
	WeatherAppropriateScore float64 `json:"weather_appropriate_score"`
	StyleScore              float64 `json:"style_score"`
}

// CategorizedRecommendation groups the candidate assets considered for each
// outfit slot alongside the chosen recommendation, used by the categorized
// recommendation endpoint described in spec.md §4.6.
type CategorizedRecommendation struct {
	OutfitRecommendation
	HeadOptions     []string `json:"head_options,omitempty"`
	TopOptions      []string `json:"top_options,omitempty"`
	BottomOptions   []string `json:"bottom_options,omitempty"`
	FootwearOptions []string `json:"footwear_options,omitempty"`
	AdditionalNotes string   `json:"additional_notes,omitempty"`
}

// RecommendationResponse is the full response envelope for a recommendation
// request.
type RecommendationResponse struct {
	Location        string                 `json:"location"`
	Recommendations []OutfitRecommendation `json:"recommendations"`
	WeatherSummary  string                 `json:"weather_summary"`
	StyleNotes      string                 `json:"style_notes"`
	GeneratedAt     time.Time              `json:"generated_at"`
}

// CategorizedRecommendationResponse is the categorized counterpart of
// RecommendationResponse.
type CategorizedRecommendationResponse struct {
	Location        string                       `json:"location"`
	Recommendations []CategorizedRecommendation `json:"recommendations"`
	WeatherSummary  string                       `json:"weather_summary"`
	StyleNotes      string                       `json:"style_notes"`
	GeneratedAt     time.Time                    `json:"generated_at"`
}

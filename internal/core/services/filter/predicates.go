// Package filter implements the parallel chunked asset filter pipeline
// described in spec.md §4.5, grounded on original_source's
// ParallelFilterSystem and filters.py predicate set.
package filter

import (
	"time"

	"github.com/outfitwx/platform/internal/core/domain"
)

// Predicate reports whether asset survives a single filter stage given the
// current weather conditions and caller preferences.
type Predicate func(asset *domain.AssetItem, weather domain.WeatherSnapshot, prefs domain.Preferences) bool

// Temperature keeps assets whose temp_range contains the current
// temperature, inclusive on both bounds per spec.md §4.5.
func Temperature(asset *domain.AssetItem, weather domain.WeatherSnapshot, _ domain.Preferences) bool {
	return asset.TempRange.Min <= weather.Temperature && weather.Temperature <= asset.TempRange.Max
}

// Condition keeps assets whose condition set contains the current weather
// description. Disabled by default on the primary request path per
// spec.md §4.5 / §9; exported for callers assembling a bespoke pipeline.
func Condition(asset *domain.AssetItem, weather domain.WeatherSnapshot, _ domain.Preferences) bool {
	return asset.Condition.Has(weather.Description)
}

// Wind rejects assets that are not wind-suitable when the current wind
// speed is positive.
func Wind(asset *domain.AssetItem, weather domain.WeatherSnapshot, _ domain.Preferences) bool {
	if weather.WindSpeed > 0 && asset.Wind == domain.TriNo {
		return false
	}
	return true
}

// Rain rejects assets that are not rain-suitable when it is currently
// raining.
func Rain(asset *domain.AssetItem, weather domain.WeatherSnapshot, _ domain.Preferences) bool {
	if weather.Rain > 0 && asset.Rain == domain.TriNo {
		return false
	}
	return true
}

// Snow rejects assets that are not snow-suitable when it is currently
// snowing.
func Snow(asset *domain.AssetItem, weather domain.WeatherSnapshot, _ domain.Preferences) bool {
	if weather.Snow > 0 && asset.Snow == domain.TriNo {
		return false
	}
	return true
}

// Gender keeps assets matching the requested gender, always admitting
// unisex assets.
func Gender(asset *domain.AssetItem, _ domain.WeatherSnapshot, prefs domain.Preferences) bool {
	if prefs.Gender == "" || prefs.Gender == domain.Unisex {
		return true
	}
	return asset.Gender == prefs.Gender || asset.Gender == domain.Unisex
}

// Styles keeps assets whose style set intersects the requested styles. A
// caller supplying no style preference admits every asset.
func Styles(asset *domain.AssetItem, _ domain.WeatherSnapshot, prefs domain.Preferences) bool {
	if len(prefs.Styles) == 0 {
		return true
	}
	return asset.Style.HasAny(prefs.Styles)
}

// Colors keeps assets whose color is among the requested colors. A caller
// supplying no color preference admits every asset.
func Colors(asset *domain.AssetItem, _ domain.WeatherSnapshot, prefs domain.Preferences) bool {
	if len(prefs.Colors) == 0 {
		return true
	}
	for _, c := range prefs.Colors {
		if asset.Color == c {
			return true
		}
	}
	return false
}

// Fit keeps assets whose fit set contains the requested fit. A caller
// supplying no fit preference admits every asset.
func Fit(asset *domain.AssetItem, _ domain.WeatherSnapshot, prefs domain.Preferences) bool {
	if prefs.Fit == "" {
		return true
	}
	return asset.Fit.Has(prefs.Fit)
}

// DefaultPredicates is the exact ordered predicate set applied on the
// primary recommend/recommend_simple request path (spec.md §4.5): Condition
// is intentionally absent here since it defaults to disabled.
func DefaultPredicates() []Predicate {
	return []Predicate{Temperature, Wind, Rain, Snow, Gender, Styles, Colors, Fit}
}

// StyleMatchScore computes the overlap ratio between an asset's styles and
// the requested styles, as original_source's StyleFilter._calculate_style_match
// does. Supplemented from filters.py; not wired into DefaultPredicates.
func StyleMatchScore(asset *domain.AssetItem, styles []string) float64 {
	if len(styles) == 0 {
		return 0.0
	}

	matches := 0
	for _, s := range styles {
		if asset.Style.Has(s) {
			matches++
		}
	}

	return float64(matches) / float64(len(styles))
}

// SeasonForMonth maps a calendar month (1-12) to the season name used by
// AssetItem.Season, as original_source's SeasonFilter._get_season does.
func SeasonForMonth(month time.Month) string {
	switch month {
	case time.December, time.January, time.February:
		return "winter"
	case time.March, time.April, time.May:
		return "spring"
	case time.June, time.July, time.August:
		return "summer"
	default:
		return "autumn"
	}
}

// SeasonFilter keeps assets whose season set contains the season
// corresponding to when. Supplemented from filters.py; not wired into
// DefaultPredicates.
func SeasonFilter(asset *domain.AssetItem, when time.Time) bool {
	return asset.Season.Has(SeasonForMonth(when.Month()))
}

// OutfitCompatible reports whether candidate shares at least one style tag
// with any already-chosen outfit piece, as original_source's
// OutfitCompatibilityFilter does. An empty currentOutfit always matches.
// Supplemented from filters.py; not wired into DefaultPredicates.
func OutfitCompatible(candidate *domain.AssetItem, currentOutfit map[domain.OutfitPart]*domain.AssetItem) bool {
	if len(currentOutfit) == 0 {
		return true
	}

	for _, piece := range currentOutfit {
		if candidate.Style.HasAny(piece.Style.Slice()) {
			return true
		}
	}

	return false
}

package domain

import "strings"

// Fixed rating categories, in prompt order.
const (
	CategoryOrganization = "organization"
	CategoryLighting     = "lighting"
	CategorySpacing      = "spacing"
	CategoryColorHarmony = "color_harmony"
	CategoryCleanliness  = "cleanliness"
	CategoryFengShui     = "feng_shui"
)

// DefaultCategories returns a fresh copy of the fixed category list.
func DefaultCategories() []string {
	return []string{
		CategoryOrganization,
		CategoryLighting,
		CategorySpacing,
		CategoryColorHarmony,
		CategoryCleanliness,
		CategoryFengShui,
	}
}

// IsCategory reports whether c belongs to the fixed enum.
func IsCategory(c string) bool {
	for _, known := range DefaultCategories() {
		if known == c {
			return true
		}
	}
	return false
}

// NormalizeCategories lowercases and trims names, rejecting unknown or
// repeated ones.
func NormalizeCategories(categories []string) ([]string, error) {
	seen := make(map[string]struct{}, len(categories))
	out := make([]string, 0, len(categories))
	for _, c := range categories {
		c = strings.ToLower(strings.TrimSpace(c))
		if !IsCategory(c) {
			return nil, NewError(KindValidation, "unknown category %q", c)
		}
		if _, dup := seen[c]; dup {
			return nil, NewError(KindValidation, "duplicate category %q", c)
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out, nil
}

// Rating is the validated structured result of the rating pipeline.
type Rating struct {
	OverallScore     float64            `json:"overall_score"`
	Breakdown        map[string]float64 `json:"breakdown"`
	Summary          string             `json:"summary"`
	Suggestions      []Suggestion       `json:"suggestions"`
	RisksOrTradeoffs []string           `json:"risks_or_tradeoffs,omitempty"`
}

// Suggestion is one actionable improvement tied to a category.
type Suggestion struct {
	ID       string   `json:"id"`
	Category string   `json:"category"`
	Title    string   `json:"title"`
	Why      string   `json:"why"`
	Steps    []string `json:"steps"`
	Impact   string   `json:"impact"`
	Effort   string   `json:"effort"`
}

// PhotoAnalysis is the lightweight single-call analysis shape.
type PhotoAnalysis struct {
	Summary     string   `json:"summary"`
	Labels      []string `json:"labels"`
	Confidence  float64  `json:"confidence"`
	SafetyNotes []string `json:"safety_notes"`
}

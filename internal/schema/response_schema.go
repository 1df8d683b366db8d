package schema

import "saun/internal/domain"

// RatingResponseSchema is the responseSchema sent with rating requests. The
// provider treats it as a hint; ValidateRating remains the enforcement point.
func RatingResponseSchema(categories []string) map[string]any {
	breakdown := make(map[string]any, len(categories))
	for _, c := range categories {
		breakdown[c] = map[string]any{"type": "NUMBER"}
	}
	return map[string]any{
		"type": "OBJECT",
		"properties": map[string]any{
			"overall_score": map[string]any{"type": "NUMBER"},
			"breakdown": map[string]any{
				"type":       "OBJECT",
				"properties": breakdown,
				"required":   categories,
			},
			"summary": map[string]any{"type": "STRING"},
			"suggestions": map[string]any{
				"type":     "ARRAY",
				"minItems": len(categories),
				"maxItems": len(categories),
				"items": map[string]any{
					"type": "OBJECT",
					"properties": map[string]any{
						"id":       map[string]any{"type": "STRING"},
						"category": map[string]any{"type": "STRING", "enum": domain.DefaultCategories()},
						"title":    map[string]any{"type": "STRING"},
						"why":      map[string]any{"type": "STRING"},
						"steps":    map[string]any{"type": "ARRAY", "items": map[string]any{"type": "STRING"}},
						"impact":   map[string]any{"type": "STRING", "enum": []string{"low", "medium", "high"}},
						"effort":   map[string]any{"type": "STRING", "enum": []string{"low", "medium", "high"}},
					},
					"required": suggestionKeys,
				},
			},
			"risks_or_tradeoffs": map[string]any{"type": "ARRAY", "items": map[string]any{"type": "STRING"}},
		},
		"required": ratingRequiredKeys,
	}
}

// PhotoAnalysisResponseSchema is the responseSchema for the quick analysis call.
func PhotoAnalysisResponseSchema() map[string]any {
	return map[string]any{
		"type": "OBJECT",
		"properties": map[string]any{
			"summary":      map[string]any{"type": "STRING"},
			"labels":       map[string]any{"type": "ARRAY", "items": map[string]any{"type": "STRING"}},
			"confidence":   map[string]any{"type": "NUMBER"},
			"safety_notes": map[string]any{"type": "ARRAY", "items": map[string]any{"type": "STRING"}},
		},
		"required": photoAnalysisKeys,
	}
}

// Package schema enforces the structured-output contract of the remote model.
// Every function here accepts arbitrary decoded JSON and fails closed with a
// human-readable reason instead of panicking.
package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"saun/internal/domain"
)

var photoAnalysisKeys = []string{"summary", "labels", "confidence", "safety_notes"}

var (
	ratingRequiredKeys = []string{"overall_score", "breakdown", "summary", "suggestions"}
	ratingOptionalKeys = []string{"risks_or_tradeoffs"}
	suggestionKeys     = []string{"id", "category", "title", "why", "steps", "impact", "effort"}
)

// ValidatePhotoAnalysis checks the lightweight analysis shape.
func ValidatePhotoAnalysis(parsed any) (bool, string) {
	obj, ok := parsed.(map[string]any)
	if !ok {
		return false, "response must be a JSON object"
	}
	if !sameKeys(obj, photoAnalysisKeys) {
		return false, fmt.Sprintf("response keys %v do not match required schema %v", sortedKeys(obj), photoAnalysisKeys)
	}
	if _, ok := obj["summary"].(string); !ok {
		return false, "summary must be a string"
	}
	if !isStringArray(obj["labels"]) {
		return false, "labels must be an array of strings"
	}
	if reason := checkNumberRange("confidence", obj["confidence"], 0, 1); reason != "" {
		return false, reason
	}
	if !isStringArray(obj["safety_notes"]) {
		return false, "safety_notes must be an array of strings"
	}
	return true, ""
}

// ValidateRating checks the full rating shape against the given categories.
// Exactly one suggestion per category is required.
func ValidateRating(parsed any, categories []string) (bool, string) {
	obj, ok := parsed.(map[string]any)
	if !ok {
		return false, "response must be a JSON object"
	}
	for _, k := range ratingRequiredKeys {
		if _, present := obj[k]; !present {
			return false, fmt.Sprintf("%s is required", k)
		}
	}
	for k := range obj {
		if !contains(ratingRequiredKeys, k) && !contains(ratingOptionalKeys, k) {
			return false, fmt.Sprintf("unexpected key %q", k)
		}
	}

	if reason := checkNumberRange("overall_score", obj["overall_score"], 0, 10); reason != "" {
		return false, reason
	}

	breakdown, ok := obj["breakdown"].(map[string]any)
	if !ok {
		return false, "breakdown must be an object"
	}
	if !sameKeys(breakdown, categories) {
		return false, fmt.Sprintf("breakdown keys %v must equal categories %v", sortedKeys(breakdown), categories)
	}
	for _, c := range categories {
		if reason := checkNumberRange("breakdown."+c, breakdown[c], 0, 10); reason != "" {
			return false, reason
		}
	}

	if _, ok := obj["summary"].(string); !ok {
		return false, "summary must be a string"
	}

	suggestions, ok := obj["suggestions"].([]any)
	if !ok {
		return false, "suggestions must be an array"
	}
	if len(suggestions) != len(categories) {
		return false, fmt.Sprintf("suggestions must contain exactly %d items, got %d", len(categories), len(suggestions))
	}
	requested := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		requested[c] = struct{}{}
	}
	seenIDs := make(map[string]struct{}, len(suggestions))
	covered := make(map[string]struct{}, len(suggestions))
	for i, raw := range suggestions {
		if reason := validateSuggestion(i, raw); reason != "" {
			return false, reason
		}
		s := raw.(map[string]any)
		id := s["id"].(string)
		if _, dup := seenIDs[id]; dup {
			return false, fmt.Sprintf("suggestions[%d].id %q is duplicated", i, id)
		}
		seenIDs[id] = struct{}{}

		category := s["category"].(string)
		if _, ok := requested[category]; !ok {
			return false, fmt.Sprintf("suggestions[%d].category %q was not requested %v", i, category, categories)
		}
		if _, dup := covered[category]; dup {
			return false, fmt.Sprintf("suggestions[%d].category %q is duplicated", i, category)
		}
		covered[category] = struct{}{}
	}

	if risks, present := obj["risks_or_tradeoffs"]; present && !isStringArray(risks) {
		return false, "risks_or_tradeoffs must be an array of strings"
	}
	return true, ""
}

func validateSuggestion(i int, raw any) string {
	field := func(name string) string { return fmt.Sprintf("suggestions[%d].%s", i, name) }
	s, ok := raw.(map[string]any)
	if !ok {
		return fmt.Sprintf("suggestions[%d] must be an object", i)
	}
	if !sameKeys(s, suggestionKeys) {
		return fmt.Sprintf("suggestions[%d] keys %v must equal %v", i, sortedKeys(s), suggestionKeys)
	}
	for _, name := range []string{"id", "title", "why", "impact", "effort"} {
		v, ok := s[name].(string)
		if !ok || strings.TrimSpace(v) == "" {
			return field(name) + " must be a non-empty string"
		}
	}
	category, ok := s["category"].(string)
	if !ok {
		return field("category") + " must be a string"
	}
	if !domain.IsCategory(category) {
		return fmt.Sprintf("%s %q is not one of %v", field("category"), category, domain.DefaultCategories())
	}
	if !isStringArray(s["steps"]) {
		return field("steps") + " must be an array of strings"
	}
	return ""
}

// DecodeRating validates parsed and converts it to the typed rating.
func DecodeRating(parsed any, categories []string) (*domain.Rating, error) {
	if ok, reason := ValidateRating(parsed, categories); !ok {
		return nil, domain.NewError(domain.KindSchemaViolation, "%s", reason)
	}
	var out domain.Rating
	if err := redecode(parsed, &out); err != nil {
		return nil, domain.WrapError(domain.KindSchemaViolation, err, "decode rating")
	}
	return &out, nil
}

// DecodePhotoAnalysis validates parsed and converts it to the typed analysis.
func DecodePhotoAnalysis(parsed any) (*domain.PhotoAnalysis, error) {
	if ok, reason := ValidatePhotoAnalysis(parsed); !ok {
		return nil, domain.NewError(domain.KindSchemaViolation, "%s", reason)
	}
	var out domain.PhotoAnalysis
	if err := redecode(parsed, &out); err != nil {
		return nil, domain.WrapError(domain.KindSchemaViolation, err, "decode analysis")
	}
	return &out, nil
}

func redecode(parsed any, out any) error {
	b, err := json.Marshal(parsed)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

func checkNumberRange(name string, v any, lo, hi float64) string {
	n, ok := asNumber(v)
	if !ok {
		return name + " must be a number"
	}
	if math.IsNaN(n) || n < lo || n > hi {
		return fmt.Sprintf("%s must be between %g and %g", name, lo, hi)
	}
	return ""
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func isStringArray(v any) bool {
	arr, ok := v.([]any)
	if !ok {
		return false
	}
	for _, item := range arr {
		if _, ok := item.(string); !ok {
			return false
		}
	}
	return true
}

func sameKeys(obj map[string]any, want []string) bool {
	if len(obj) != len(want) {
		return false
	}
	for _, k := range want {
		if _, ok := obj[k]; !ok {
			return false
		}
	}
	return true
}

func sortedKeys(obj map[string]any) []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

package generation

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"saun/internal/domain"
)

// ResolveSelection picks the suggestions a job will apply. Explicit ids win;
// otherwise each requested category maps to its stored suggestion or a
// placeholder; otherwise the first stored suggestion is used. The result never
// aliases stored.
func ResolveSelection(stored []domain.Suggestion, ids, categories []string) []domain.Suggestion {
	if len(ids) > 0 {
		byID := make(map[string]domain.Suggestion, len(stored))
		for _, s := range stored {
			byID[s.ID] = s
		}
		var picked []domain.Suggestion
		seen := map[string]struct{}{}
		for _, id := range ids {
			s, ok := byID[strings.TrimSpace(id)]
			if !ok {
				continue
			}
			if _, dup := seen[s.ID]; dup {
				continue
			}
			seen[s.ID] = struct{}{}
			picked = append(picked, cloneSuggestion(s))
		}
		if len(picked) > 0 {
			return picked
		}
	}

	if len(categories) > 0 {
		var picked []domain.Suggestion
		for _, c := range categories {
			if s, ok := firstInCategory(stored, c); ok {
				picked = append(picked, cloneSuggestion(s))
				continue
			}
			picked = append(picked, placeholder(c))
		}
		return picked
	}

	if len(stored) > 0 {
		return []domain.Suggestion{cloneSuggestion(stored[0])}
	}
	return nil
}

func firstInCategory(stored []domain.Suggestion, category string) (domain.Suggestion, bool) {
	for _, s := range stored {
		if s.Category == category {
			return s, true
		}
	}
	return domain.Suggestion{}, false
}

func placeholder(category string) domain.Suggestion {
	label := cases.Title(language.English).String(strings.ReplaceAll(category, "_", " "))
	return domain.Suggestion{
		ID:       "placeholder-" + category,
		Category: category,
		Title:    "Improve " + label,
		Why:      "Requested " + strings.ToLower(label) + " improvements.",
		Steps:    []string{},
		Impact:   "medium",
		Effort:   "medium",
	}
}

func cloneSuggestion(s domain.Suggestion) domain.Suggestion {
	s.Steps = append([]string(nil), s.Steps...)
	return s
}

// categoriesOf lists the distinct categories of picked in first-seen order.
func categoriesOf(picked []domain.Suggestion) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, s := range picked {
		if _, ok := seen[s.Category]; ok {
			continue
		}
		seen[s.Category] = struct{}{}
		out = append(out, s.Category)
	}
	return out
}

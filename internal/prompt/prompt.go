// Package prompt builds the text instructions sent to the remote model.
// All builders are pure and deterministic.
package prompt

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"saun/internal/domain"
)

const none = "none"

// PhotoAnalysisPrompt drives the single-call photo analysis endpoint.
const PhotoAnalysisPrompt = `Analyze this photo and return JSON only with this exact shape:
{
  "summary": "short description",
  "labels": ["label1", "label2"],
  "confidence": 0.0,
  "safety_notes": ["optional note"]
}

Rules:
- confidence must be a number from 0 to 1.
- labels should be short and relevant.
- safety_notes can be an empty array.
- Return valid JSON only. No markdown.
`

// BuildRatingPrompt asks for a 0-10 rating per category and exactly one
// suggestion for each category.
func BuildRatingPrompt(categories []string) string {
	if len(categories) == 0 {
		categories = domain.DefaultCategories()
	}
	var b strings.Builder
	b.WriteString("You are an interior design coach. Rate the room in this photo.\n\n")
	b.WriteString("Categories (use these exact keys): ")
	b.WriteString(strings.Join(categories, ", "))
	b.WriteString("\n\nScoring rubric for overall_score and every breakdown value:\n")
	b.WriteString("- 0-3: poor, major problems\n")
	b.WriteString("- 4-6: acceptable, clear room for improvement\n")
	b.WriteString("- 7-8: good, minor issues\n")
	b.WriteString("- 9-10: excellent\n\n")
	b.WriteString("Return JSON only with this exact shape:\n")
	b.WriteString("{\n")
	b.WriteString(`  "overall_score": 0-10,` + "\n")
	b.WriteString(`  "breakdown": {` + breakdownShape(categories) + "},\n")
	b.WriteString(`  "summary": "two or three sentences",` + "\n")
	b.WriteString(`  "suggestions": [{"id": "s1", "category": "<category>", "title": "...", "why": "...", "steps": ["..."], "impact": "low|medium|high", "effort": "low|medium|high"}],` + "\n")
	b.WriteString(`  "risks_or_tradeoffs": ["optional"]` + "\n")
	b.WriteString("}\n\n")
	b.WriteString("Rules:\n")
	fmt.Fprintf(&b, "- suggestions must contain exactly %d items, one per category, in the category order above.\n", len(categories))
	b.WriteString("- suggestion ids must be unique.\n")
	b.WriteString("- every suggestion field is required and must be non-empty.\n")
	b.WriteString("- Return valid JSON only. No markdown, no commentary before or after the JSON.\n")
	return b.String()
}

func breakdownShape(categories []string) string {
	parts := make([]string, len(categories))
	for i, c := range categories {
		parts[i] = fmt.Sprintf("%q: 0-10", c)
	}
	return strings.Join(parts, ", ")
}

// BuildEditPrompt describes an edit of the supplied room photo limited to the
// listed changes.
func BuildEditPrompt(suggestions []domain.Suggestion, categories, additionalChanges []string, userExtra string) string {
	title := cases.Title(language.Und)

	var b strings.Builder
	b.WriteString("Edit the supplied room photo.\n\n")
	b.WriteString("Hard constraints:\n")
	b.WriteString("- Keep the exact camera angle, framing and perspective.\n")
	b.WriteString("- Keep the same walls, windows, doors and floor. Do not move or restyle them.\n")
	b.WriteString("- Do not change the architecture of the room.\n")
	b.WriteString("- Apply only the changes listed below. Leave everything else untouched.\n")
	b.WriteString("- The result must stay photorealistic.\n\n")

	b.WriteString("Selected suggestions:\n")
	if len(suggestions) == 0 {
		b.WriteString("- " + none + "\n")
	}
	for _, s := range suggestions {
		fmt.Fprintf(&b, "- [%s] %s", title.String(humanCategory(s.Category)), strings.TrimSpace(s.Title))
		if why := strings.TrimSpace(s.Why); why != "" {
			fmt.Fprintf(&b, ": %s", why)
		}
		b.WriteString("\n")
		for _, step := range s.Steps {
			if step = strings.TrimSpace(step); step != "" {
				fmt.Fprintf(&b, "    * %s\n", step)
			}
		}
	}

	b.WriteString("\nFocus categories: ")
	if len(categories) == 0 {
		b.WriteString(none)
	} else {
		names := make([]string, len(categories))
		for i, c := range categories {
			names[i] = title.String(humanCategory(c))
		}
		b.WriteString(strings.Join(names, ", "))
	}
	b.WriteString("\n\nAdditional changes:\n")
	if len(additionalChanges) == 0 {
		b.WriteString("- " + none + "\n")
	}
	for _, c := range additionalChanges {
		fmt.Fprintf(&b, "- %s\n", strings.TrimSpace(c))
	}

	b.WriteString("\nExtra instructions from the user: ")
	if extra := strings.TrimSpace(userExtra); extra != "" {
		b.WriteString(extra)
	} else {
		b.WriteString(none)
	}
	b.WriteString("\n")
	return b.String()
}

// BuildEditPromptFromSnapshot renders the prompt for a stored job snapshot.
func BuildEditPromptFromSnapshot(edits domain.RequestedEdits) string {
	return BuildEditPrompt(edits.Suggestions, edits.Categories, edits.AdditionalChanges, edits.UserExtra)
}

func humanCategory(c string) string {
	return strings.ReplaceAll(c, "_", " ")
}

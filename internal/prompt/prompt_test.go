package prompt

import (
	"strings"
	"testing"

	"saun/internal/domain"
)

func TestBuildRatingPromptIsDeterministic(t *testing.T) {
	cats := domain.DefaultCategories()
	a := BuildRatingPrompt(cats)
	b := BuildRatingPrompt(cats)
	if a != b {
		t.Fatalf("rating prompt is not deterministic")
	}
	if !strings.Contains(a, "exactly 6 items") {
		t.Fatalf("rating prompt does not pin the suggestion count:\n%s", a)
	}
	for _, c := range cats {
		if !strings.Contains(a, c) {
			t.Fatalf("rating prompt missing category %q", c)
		}
	}
	if !strings.Contains(a, "No markdown") {
		t.Fatalf("rating prompt must forbid commentary")
	}
}

func TestBuildRatingPromptSubset(t *testing.T) {
	p := BuildRatingPrompt([]string{domain.CategoryLighting})
	if !strings.Contains(p, "exactly 1 items") {
		t.Fatalf("expected count 1 in prompt:\n%s", p)
	}
	if strings.Contains(p, domain.CategoryFengShui) {
		t.Fatalf("unexpected category in subset prompt")
	}
}

func TestBuildEditPromptEmptyListsRenderNone(t *testing.T) {
	p := BuildEditPrompt(nil, nil, nil, "")
	if got := strings.Count(p, none); got != 4 {
		t.Fatalf("expected 4 none placeholders, got %d:\n%s", got, p)
	}
	for _, want := range []string{"camera angle", "walls, windows", "architecture", "only the changes"} {
		if !strings.Contains(p, want) {
			t.Fatalf("edit prompt missing constraint %q", want)
		}
	}
}

func TestBuildEditPromptRendersSelections(t *testing.T) {
	p := BuildEditPrompt(
		[]domain.Suggestion{{ID: "s1", Category: domain.CategoryColorHarmony, Title: "Warm palette", Why: "Too cold", Steps: []string{"Add rug", " "}}},
		[]string{domain.CategoryFengShui},
		[]string{"add a plant"},
		"keep the sofa",
	)
	for _, want := range []string{"[Color Harmony] Warm palette: Too cold", "* Add rug", "Feng Shui", "- add a plant", "keep the sofa"} {
		if !strings.Contains(p, want) {
			t.Fatalf("edit prompt missing %q:\n%s", want, p)
		}
	}
	if strings.Contains(p, none) {
		t.Fatalf("no placeholder expected when every list is filled:\n%s", p)
	}
}

func TestBuildEditPromptFromSnapshot(t *testing.T) {
	edits := domain.RequestedEdits{AdditionalChanges: []string{"paint the wall sage"}}
	if got, want := BuildEditPromptFromSnapshot(edits), BuildEditPrompt(nil, nil, edits.AdditionalChanges, ""); got != want {
		t.Fatalf("snapshot prompt differs")
	}
}

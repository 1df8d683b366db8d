package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLintFindsMarkerProblems(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "ok.go", "package q\n\nconst QGood = `--sql 11111111-2222-4333-8444-555555555555\nselect 1;`\n\nconst Greeting = \"please update your profile\"\n")
	writeFile(t, dir, "bad.go", "package q\n\nconst QMissing = `select id from sessions;`\n\nvar Migrate = []string{\n\t`--sql nope\ncreate table t (id int);`,\n\t`--sql 11111111-2222-4333-8444-555555555555\ndrop table t;`,\n}\n")

	got, err := lint([]string{dir})
	if err != nil {
		t.Fatalf("lint: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 violations, got %d: %v", len(got), got)
	}
	var messages []string
	for _, v := range got {
		messages = append(messages, v.name+": "+v.message)
	}
	joined := strings.Join(messages, "\n")
	for _, want := range []string{"QMissing: missing", "Migrate: missing", "Migrate: marker reused"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("expected %q in\n%s", want, joined)
		}
	}
}

func TestLintSkipsTestsAndUnderscoreDirs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "x_test.go", "package q\n\nconst Q = `select 1;`\n")
	hidden := filepath.Join(dir, "_examples")
	if err := os.MkdirAll(hidden, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeFile(t, hidden, "y.go", "package q\n\nconst Q = `select 1;`\n")

	got, err := lint([]string{dir})
	if err != nil {
		t.Fatalf("lint: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no violations, got %v", got)
	}
}

func TestRepositoryStatementsAreMarked(t *testing.T) {
	got, err := lint([]string{filepath.Join("..", "..", "sqlinline")})
	if err != nil {
		t.Fatalf("lint: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("sqlinline violations: %v", got)
	}
}

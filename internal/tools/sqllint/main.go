// Command sqllint checks that every SQL string constant in the tree starts
// with a unique "--sql <uuid>" audit marker, the form infra.SQLRunner and the
// database/sql store log with each statement.
package main

import (
	"flag"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

var (
	sqlMarkerPattern  = regexp.MustCompile(`(?i)^\s*(--sql\b|select|insert|update|delete|with|create|alter|drop)\b`)
	uuidMarkerPattern = regexp.MustCompile(`^--sql [0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
)

type violation struct {
	file    string
	name    string
	line    int
	message string
}

func (v violation) String() string {
	return fmt.Sprintf("%s:%d %s (%s)", v.file, v.line, v.message, v.name)
}

func main() {
	flag.Parse()
	targets := flag.Args()
	if len(targets) == 0 {
		targets = []string{"."}
	}

	violations, err := lint(targets)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sqllint: %v\n", err)
		os.Exit(1)
	}
	if len(violations) > 0 {
		fmt.Fprintln(os.Stderr, "sqllint: SQL audit marker problems")
		for _, v := range violations {
			fmt.Fprintf(os.Stderr, "  %s\n", v)
		}
		os.Exit(1)
	}
}

// lint walks targets (files or directories) and reports missing, malformed
// and duplicated markers.
func lint(targets []string) ([]violation, error) {
	l := &linter{seen: map[string]token.Position{}}
	for _, target := range targets {
		info, err := os.Stat(target)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			if filepath.Ext(target) == ".go" {
				if err := l.file(target); err != nil {
					return nil, err
				}
			}
			continue
		}
		err = filepath.WalkDir(target, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				name := d.Name()
				if path != target && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") || name == "vendor" || name == "testdata") {
					return filepath.SkipDir
				}
				return nil
			}
			if filepath.Ext(path) != ".go" || strings.HasSuffix(path, "_test.go") {
				return nil
			}
			return l.file(path)
		})
		if err != nil {
			return nil, err
		}
	}
	return l.violations, nil
}

type linter struct {
	fset       *token.FileSet
	seen       map[string]token.Position
	violations []violation
}

func (l *linter) file(path string) error {
	if l.fset == nil {
		l.fset = token.NewFileSet()
	}
	file, err := parser.ParseFile(l.fset, path, nil, parser.SkipObjectResolution)
	if err != nil {
		return err
	}
	ast.Inspect(file, func(n ast.Node) bool {
		vs, ok := n.(*ast.ValueSpec)
		if !ok {
			return true
		}
		name := joinNames(vs.Names)
		for _, value := range vs.Values {
			for _, lit := range stringLiterals(value) {
				l.check(path, name, lit)
			}
		}
		return true
	})
	return nil
}

// stringLiterals yields the string literal itself or, for slice literals
// such as migration lists, each string element.
func stringLiterals(expr ast.Expr) []*ast.BasicLit {
	switch e := expr.(type) {
	case *ast.BasicLit:
		if e.Kind == token.STRING {
			return []*ast.BasicLit{e}
		}
	case *ast.CompositeLit:
		var out []*ast.BasicLit
		for _, elt := range e.Elts {
			out = append(out, stringLiterals(elt)...)
		}
		return out
	}
	return nil
}

func (l *linter) check(path, name string, lit *ast.BasicLit) {
	raw, err := unquote(lit.Value)
	if err != nil || !sqlMarkerPattern.MatchString(raw) {
		return
	}
	pos := l.fset.Position(lit.Pos())
	marker := firstLine(raw)
	if !uuidMarkerPattern.MatchString(marker) {
		l.violations = append(l.violations, violation{file: path, line: pos.Line, name: name, message: "missing or invalid --sql <uuid> marker"})
		return
	}
	if prev, dup := l.seen[marker]; dup {
		l.violations = append(l.violations, violation{
			file:    path,
			line:    pos.Line,
			name:    name,
			message: fmt.Sprintf("marker reused from %s:%d", prev.Filename, prev.Line),
		})
		return
	}
	l.seen[marker] = pos
}

func firstLine(s string) string {
	s = strings.TrimLeft(s, "\n\r \t")
	if idx := strings.IndexAny(s, "\n\r"); idx >= 0 {
		return strings.TrimSpace(s[:idx])
	}
	return strings.TrimSpace(s)
}

func unquote(v string) (string, error) {
	if len(v) == 0 {
		return v, nil
	}
	if v[0] == '`' {
		return v[1 : len(v)-1], nil
	}
	return strconv.Unquote(v)
}

func joinNames(idents []*ast.Ident) string {
	parts := make([]string, 0, len(idents))
	for _, ident := range idents {
		if ident == nil {
			continue
		}
		parts = append(parts, ident.Name)
	}
	return strings.Join(parts, ",")
}

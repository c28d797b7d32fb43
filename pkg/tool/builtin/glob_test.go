package toolbuiltin

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFiles(t *testing.T, dir string, paths ...string) {
	t.Helper()
	for _, p := range paths {
		full := filepath.Join(dir, p)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(full, []byte("x"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
}

func TestGlobToolMatchesSingleSegment(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.go", "b.txt")
	gt := NewGlobToolWithRoot(dir)

	res, err := gt.Execute(context.Background(), map[string]any{"pattern": "*.go"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if res.Output != "a.go" {
		t.Fatalf("unexpected output %q", res.Output)
	}
}

func TestGlobToolMatchesRecursiveDoubleStar(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "pkg/a/x.go", "pkg/b/y.go", "pkg/a/z.txt")
	gt := NewGlobToolWithRoot(dir)

	res, err := gt.Execute(context.Background(), map[string]any{"pattern": "**/*.go"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(res.Output, "x.go") || !strings.Contains(res.Output, "y.go") || strings.Contains(res.Output, "z.txt") {
		t.Fatalf("unexpected output %q", res.Output)
	}
}

func TestGlobToolRejectsEmptyPattern(t *testing.T) {
	gt := NewGlobToolWithRoot(t.TempDir())
	if _, err := gt.Execute(context.Background(), map[string]any{"pattern": "   "}); err == nil {
		t.Fatalf("expected error for empty pattern")
	}
}

func TestDoubleStarMatchAcrossMultipleDirectories(t *testing.T) {
	if !doubleStarMatch(strings.Split("a/**/c.go", "/"), strings.Split("a/b/d/c.go", "/")) {
		t.Fatalf("expected a/**/c.go to match a/b/d/c.go")
	}
	if doubleStarMatch(strings.Split("a/**/c.go", "/"), strings.Split("a/b/d/e.go", "/")) {
		t.Fatalf("expected mismatch on differing file name")
	}
}

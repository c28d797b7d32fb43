package toolbuiltin

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGrepToolFilesWithMatchesDefault(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.go", "b.go")
	if err := os.WriteFile(filepath.Join(dir, "a.go"), []byte("func Foo() {}\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "b.go"), []byte("func Bar() {}\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	gt := NewGrepToolWithRoot(dir)

	res, err := gt.Execute(context.Background(), map[string]any{"pattern": "Foo"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if res.Output != "a.go" {
		t.Fatalf("unexpected output %q", res.Output)
	}
}

func TestGrepToolContentModeIncludesLineNumbers(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.go"), []byte("one\nFoo here\nthree\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	gt := NewGrepToolWithRoot(dir)

	res, err := gt.Execute(context.Background(), map[string]any{"pattern": "Foo", "output_mode": "content"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(res.Output, "2:Foo here") {
		t.Fatalf("unexpected output %q", res.Output)
	}
}

func TestGrepToolCaseInsensitive(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.go"), []byte("FOO\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	gt := NewGrepToolWithRoot(dir)

	res, err := gt.Execute(context.Background(), map[string]any{"pattern": "foo", "case_insensitive": true})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if res.Output != "a.go" {
		t.Fatalf("expected case-insensitive match, got %q", res.Output)
	}
}

func TestGrepToolRejectsInvalidRegex(t *testing.T) {
	gt := NewGrepToolWithRoot(t.TempDir())
	if _, err := gt.Execute(context.Background(), map[string]any{"pattern": "("}); err == nil {
		t.Fatalf("expected error for invalid regex")
	}
}

func TestGrepToolGlobFilter(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.go"), []byte("needle\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("needle\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	gt := NewGrepToolWithRoot(dir)

	res, err := gt.Execute(context.Background(), map[string]any{"pattern": "needle", "glob": "*.go"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if res.Output != "a.go" {
		t.Fatalf("expected glob filter to restrict match, got %q", res.Output)
	}
}

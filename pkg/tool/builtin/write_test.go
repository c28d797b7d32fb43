package toolbuiltin

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteToolCreatesFile(t *testing.T) {
	dir := t.TempDir()
	wt := NewWriteToolWithRoot(dir)

	target := filepath.Join("nested", "note.txt")
	res, err := wt.Execute(context.Background(), map[string]any{"file_path": target, "content": "payload"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(res.Output, "wrote") {
		t.Fatalf("unexpected output %q", res.Output)
	}
	data, err := os.ReadFile(filepath.Join(dir, target))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "payload" {
		t.Fatalf("content mismatch: %q", string(data))
	}
}

func TestWriteToolRejectsMissingParams(t *testing.T) {
	wt := NewWriteToolWithRoot(t.TempDir())
	if _, err := wt.Execute(context.Background(), map[string]any{"content": "x"}); err == nil {
		t.Fatalf("expected error for missing file_path")
	}
	if _, err := wt.Execute(context.Background(), map[string]any{"file_path": "a.txt"}); err == nil {
		t.Fatalf("expected error for missing content")
	}
}

func TestWriteToolOverwritesExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(path, []byte("old"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	wt := NewWriteToolWithRoot(dir)
	if _, err := wt.Execute(context.Background(), map[string]any{"file_path": "a.txt", "content": "new"}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "new" {
		t.Fatalf("expected overwrite, got %q", string(data))
	}
}

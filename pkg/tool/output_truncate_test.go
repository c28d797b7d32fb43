package tool

import (
	"strings"
	"testing"
)

func TestTruncateLinesNoTruncationNeeded(t *testing.T) {
	out, truncated := TruncateLines("line1\nline2", 10, 1000)
	if truncated {
		t.Fatalf("expected no truncation")
	}
	if out != "line1\nline2" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestTruncateLinesClipsLineCount(t *testing.T) {
	lines := make([]string, 10)
	for i := range lines {
		lines[i] = "l"
	}
	input := strings.Join(lines, "\n")
	out, truncated := TruncateLines(input, 3, 1000)
	if !truncated {
		t.Fatalf("expected truncation")
	}
	if !strings.HasSuffix(out, "[output truncated]") {
		t.Fatalf("expected truncation marker, got %q", out)
	}
	if strings.Count(out, "l") != 3 {
		t.Fatalf("expected 3 lines retained, got %q", out)
	}
}

func TestTruncateLinesClipsByteCount(t *testing.T) {
	out, truncated := TruncateLines(strings.Repeat("a", 100), 0, 10)
	if !truncated {
		t.Fatalf("expected truncation")
	}
	if !strings.HasPrefix(out, strings.Repeat("a", 10)) {
		t.Fatalf("expected byte-clipped prefix, got %q", out)
	}
}

func TestTruncateLinesZeroLimitsDisableTruncation(t *testing.T) {
	input := strings.Repeat("a\n", 5000)
	out, truncated := TruncateLines(input, 0, 0)
	if truncated || out != input {
		t.Fatalf("expected zero limits to disable truncation")
	}
}

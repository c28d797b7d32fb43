package obs

import (
	"errors"
	"testing"
)

func TestTracerSpansAreNoopButNonNilWithoutAnSDKProvider(t *testing.T) {
	tr := NewTracer()

	loop := tr.StartLoopSpan("sess-1", 0)
	if loop == nil {
		t.Fatal("expected a non-nil span even with no SDK TracerProvider registered")
	}

	stream := tr.StartStreamSpan(loop, "anthropic", "claude-sonnet-4-20250514")
	tr.EndSpan(stream, map[string]any{"provider.model": "claude-sonnet-4-20250514"}, nil)

	tool := tr.StartToolSpan(loop, "bash")
	tr.EndSpan(tool, nil, errors.New("boom"))

	tr.EndSpan(loop, nil, nil)
}

func TestTracerAcceptsNilParent(t *testing.T) {
	tr := NewTracer()
	span := tr.StartToolSpan(nil, "bash")
	if span == nil {
		t.Fatal("expected a span even with a nil parent")
	}
	tr.EndSpan(span, nil, nil)
}

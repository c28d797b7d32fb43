package tool

import (
	"context"
	"testing"
)

type fakeTool struct {
	name      string
	agentOnly bool
	result    *Result
	err       error
	schema    *JSONSchema
}

func (f *fakeTool) Name() string        { return f.name }
func (f *fakeTool) Description() string { return "fake " + f.name }
func (f *fakeTool) Schema() *JSONSchema  { return f.schema }
func (f *fakeTool) AgentOnly() bool      { return f.agentOnly }
func (f *fakeTool) Execute(ctx context.Context, params map[string]any) (*Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&fakeTool{name: "bash"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	got, err := r.Get("bash")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name() != "bash" {
		t.Fatalf("unexpected tool %q", got.Name())
	}
}

func TestRegistryRejectsDuplicateAndEmptyName(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&fakeTool{name: ""}); err == nil {
		t.Fatalf("expected error for empty tool name")
	}
	if err := r.Register(nil); err == nil {
		t.Fatalf("expected error for nil tool")
	}
	if err := r.Register(&fakeTool{name: "bash"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.Register(&fakeTool{name: "bash"}); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
}

func TestRegistryUnregisterAndListSorted(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(&fakeTool{name: "write"})
	_ = r.Register(&fakeTool{name: "bash"})
	_ = r.Register(&fakeTool{name: "grep"})

	list := r.List()
	if len(list) != 3 || list[0].Name() != "bash" || list[1].Name() != "grep" || list[2].Name() != "write" {
		t.Fatalf("expected sorted tool list, got %+v", list)
	}

	r.Unregister("grep")
	if _, err := r.Get("grep"); err == nil {
		t.Fatalf("expected grep to be gone after unregister")
	}
}

func TestRegistryListForFiltersAgentOnly(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(&fakeTool{name: "bash"})
	_ = r.Register(&fakeTool{name: "task", agentOnly: true})

	top := r.ListFor(false, nil, nil)
	if len(top) != 1 || top[0].Name() != "bash" {
		t.Fatalf("expected agent-only tool filtered out, got %+v", top)
	}

	sub := r.ListFor(true, nil, nil)
	if len(sub) != 2 {
		t.Fatalf("expected both tools in subtask context, got %+v", sub)
	}
}

func TestRegistryListForAppliesAllowedThenDenied(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(&fakeTool{name: "bash"})
	_ = r.Register(&fakeTool{name: "write"})
	_ = r.Register(&fakeTool{name: "read"})

	allowedOnly := r.ListFor(false, []string{"read", "write"}, nil)
	if len(allowedOnly) != 2 || allowedOnly[0].Name() != "read" || allowedOnly[1].Name() != "write" {
		t.Fatalf("expected only allowed tools, got %+v", allowedOnly)
	}

	deniedWins := r.ListFor(false, []string{"read", "write"}, []string{"write"})
	if len(deniedWins) != 1 || deniedWins[0].Name() != "read" {
		t.Fatalf("expected denied to remove from allowed set, got %+v", deniedWins)
	}

	noAllowed := r.ListFor(false, nil, []string{"bash"})
	if len(noAllowed) != 2 {
		t.Fatalf("expected denied-only filtering to keep non-denied tools, got %+v", noAllowed)
	}
}

func TestDefinitionsProjectsSchema(t *testing.T) {
	tools := []Tool{&fakeTool{name: "bash", schema: &JSONSchema{Type: "object"}}}
	defs := Definitions(tools)
	if len(defs) != 1 || defs[0].Name != "bash" || defs[0].Schema["type"] != "object" {
		t.Fatalf("unexpected definitions %+v", defs)
	}
}

func TestRegistryGetUnknownTool(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Get("missing"); err == nil {
		t.Fatalf("expected not-found error")
	}
}

package toolbuiltin

import (
	"context"
	"testing"

	"github.com/cexll/agentsdk-core/pkg/tool"
)

func TestTaskToolDelegatesToRunner(t *testing.T) {
	var captured TaskRequest
	runner := func(ctx context.Context, req TaskRequest) (*tool.Result, error) {
		captured = req
		return &tool.Result{Success: true, Output: "done"}, nil
	}
	tt := NewTaskTool(runner)

	res, err := tt.Execute(context.Background(), map[string]any{
		"description":   "investigate bug",
		"prompt":        "find the root cause",
		"subagent_type": SubagentExplore,
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if res.Output != "done" {
		t.Fatalf("unexpected output %q", res.Output)
	}
	if captured.SubagentType != SubagentExplore || captured.Prompt != "find the root cause" {
		t.Fatalf("unexpected captured request %+v", captured)
	}
}

func TestTaskToolRejectsUnknownSubagentType(t *testing.T) {
	tt := NewTaskTool(func(ctx context.Context, req TaskRequest) (*tool.Result, error) {
		return &tool.Result{}, nil
	})
	if _, err := tt.Execute(context.Background(), map[string]any{
		"description": "x", "prompt": "y", "subagent_type": "unknown",
	}); err == nil {
		t.Fatalf("expected error for unsupported subagent type")
	}
}

func TestTaskToolRequiresRunner(t *testing.T) {
	tt := NewTaskTool(nil)
	if _, err := tt.Execute(context.Background(), map[string]any{
		"description": "x", "prompt": "y", "subagent_type": SubagentPlan,
	}); err == nil {
		t.Fatalf("expected error when no runner is configured")
	}
}

func TestTaskToolIsAgentOnly(t *testing.T) {
	tt := NewTaskTool(nil)
	if !tt.AgentOnly() {
		t.Fatalf("expected task tool to be agent-only")
	}
}

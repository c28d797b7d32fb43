package toolbuiltin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/cexll/agentsdk-core/pkg/tool"
)

// Subagent type identifiers accepted by the task schema.
const (
	SubagentGeneralPurpose = "general-purpose"
	SubagentExplore        = "explore"
	SubagentPlan           = "plan"
)

var supportedSubagentTypes = map[string]struct{}{
	SubagentGeneralPurpose: {},
	SubagentExplore:        {},
	SubagentPlan:           {},
}

const taskDescription = `Launches a subagent to handle a complex, multi-step task autonomously.

Available subagent_type values:
- general-purpose: full tool access, for research/coding/remediation.
- explore: read-only (glob/grep/read), for fast codebase exploration.
- plan: produces a multi-step implementation plan, no file mutation.

The subagent is stateless: it receives only the prompt given here and returns a single
final report. Give it a complete, self-contained task description.`

var taskSchema = &tool.JSONSchema{
	Type: "object",
	Properties: map[string]*tool.JSONSchema{
		"description":   {Type: "string", Description: "A short (3-5 word) description of the task."},
		"prompt":        {Type: "string", Description: "The task for the subagent to perform."},
		"subagent_type": {Type: "string", Description: "Which subagent type to launch.", Enum: []any{SubagentGeneralPurpose, SubagentExplore, SubagentPlan}},
	},
	Required: []string{"description", "prompt", "subagent_type"},
}

// TaskRequest carries the normalized parameters of a Task invocation.
type TaskRequest struct {
	Description  string
	Prompt       string
	SubagentType string
}

// TaskRunner executes a validated Task invocation — typically bound by the
// session engine to "spawn a child session and run it to completion",
// since pkg/tool cannot itself depend on pkg/session.
type TaskRunner func(ctx context.Context, req TaskRequest) (*tool.Result, error)

// TaskTool delegates to specialized subagents through an injected TaskRunner.
// It is AgentOnly: only reachable from a subtask/top-level agent loop that
// explicitly enables subagent delegation, per SPEC_FULL.md §5.
type TaskTool struct {
	mu     sync.RWMutex
	runner TaskRunner
}

func NewTaskTool(runner TaskRunner) *TaskTool { return &TaskTool{runner: runner} }

func (t *TaskTool) SetRunner(runner TaskRunner) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.runner = runner
}

func (t *TaskTool) Name() string             { return "task" }
func (t *TaskTool) Description() string      { return taskDescription }
func (t *TaskTool) Schema() *tool.JSONSchema { return taskSchema }
func (t *TaskTool) AgentOnly() bool          { return true }

func (t *TaskTool) Execute(ctx context.Context, params map[string]any) (*tool.Result, error) {
	if ctx == nil {
		return nil, errors.New("context is nil")
	}
	if t == nil {
		return nil, errors.New("task tool is not initialised")
	}
	t.mu.RLock()
	runner := t.runner
	t.mu.RUnlock()
	if runner == nil {
		return nil, errors.New("task tool has no runner configured")
	}

	req, err := parseTaskRequest(params)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return runner(ctx, req)
}

func parseTaskRequest(params map[string]any) (TaskRequest, error) {
	description, err := requiredString(params, "description")
	if err != nil {
		return TaskRequest{}, err
	}
	prompt, err := requiredString(params, "prompt")
	if err != nil {
		return TaskRequest{}, err
	}
	if strings.TrimSpace(prompt) == "" {
		return TaskRequest{}, errors.New("prompt cannot be empty")
	}
	subagentType, err := requiredString(params, "subagent_type")
	if err != nil {
		return TaskRequest{}, err
	}
	if _, ok := supportedSubagentTypes[subagentType]; !ok {
		return TaskRequest{}, fmt.Errorf("unsupported subagent_type %q", subagentType)
	}
	return TaskRequest{Description: description, Prompt: prompt, SubagentType: subagentType}, nil
}

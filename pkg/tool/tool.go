// Package tool implements the provider-agnostic tool registry and execution
// pipeline described in spec §4.4: JSON-Schema derivation, a permission
// matrix (allow/ask/deny), and output truncation with spooling to disk for
// oversized results.
package tool

import "context"

// Tool represents an executable capability exposed to the agent runtime.
type Tool interface {
	Name() string
	Description() string
	// Schema describes the tool's parameters in JSON-Schema terms. A nil
	// schema means the tool takes no input.
	Schema() *JSONSchema
	// AgentOnly marks a tool (e.g. `task`, `question`) that Registry.ListFor
	// offers only when agentContext is true; the session engine passes its
	// agent config's AllowAgentOnlyTools there.
	AgentOnly() bool
	Execute(ctx context.Context, params map[string]any) (*Result, error)
}

// StreamingTool is implemented by tools that can emit incremental output
// (e.g. bash) as it becomes available, instead of only a final Result.
type StreamingTool interface {
	Tool
	StreamExecute(ctx context.Context, params map[string]any, sink func(chunk string, isStderr bool)) (*Result, error)
}

package session

import (
	"github.com/cexll/agentsdk-core/pkg/tool"
)

// buildSystemPrompt texts below are deliberately short: the bulk of the
// assembled system prompt comes from discovered instruction files (see
// instructions.go); these are just the per-policy seed, mirroring how the
// teacher's registerTools/builtinOrder (pkg/api/agent.go) varies the tool
// set and framing by EntryPoint rather than writing a long canned prompt.
const (
	buildSystemPrompt      = "You write and modify code directly in the project. Prefer small, verifiable edits."
	exploreSystemPrompt    = "You investigate the codebase read-only. Do not modify files; report findings."
	generalSystemPrompt    = "You are a general-purpose assistant with access to the full tool set."
	planSystemPrompt       = "You produce a plan before any code changes. Do not execute destructive commands."
	compactionSystemPrompt = "Summarize the conversation so far: Topic/Goal, Progress, Key Decisions, Current State, Pending Items."
)

// NewBuildAgentConfig returns the default, ask-on-sensitive-tools policy for
// code-editing sessions: full read/write/bash tool access, but write, edit,
// and bash each require a permission-callback decision before executing
// (spec §3's "(default, ask-on-sensitive-tools)"). No agent-only tools — it
// is not itself a subtask host.
func NewBuildAgentConfig(model string, contextWindow int) AgentConfig {
	return AgentConfig{
		Type:          AgentBuild,
		Model:         model,
		SystemPrompt:  buildSystemPrompt,
		ContextWindow: contextWindow,
		ToolPermissions: &tool.PermissionConfig{
			Ask: []string{"write", "edit", "bash"},
		},
	}
}

// NewExploreAgentConfig returns the read-only investigation policy: write,
// edit, and bash are denied via the permission matrix.
func NewExploreAgentConfig(model string, contextWindow int) AgentConfig {
	return AgentConfig{
		Type:          AgentExplore,
		Model:         model,
		SystemPrompt:  exploreSystemPrompt,
		ContextWindow: contextWindow,
		ToolPermissions: &tool.PermissionConfig{
			Deny: []string{"write", "edit", "bash"},
		},
	}
}

// NewGeneralAgentConfig returns the unrestricted top-level policy, with
// access to the task/question agent-only tools so it can spawn subagents.
func NewGeneralAgentConfig(model string, contextWindow int) AgentConfig {
	return AgentConfig{
		Type:                AgentGeneral,
		Model:               model,
		SystemPrompt:        generalSystemPrompt,
		ContextWindow:       contextWindow,
		AllowAgentOnlyTools: true,
	}
}

// NewPlanAgentConfig returns the deny-by-default planning policy: only the
// read-like tools are named in AllowedTools, so registry.ListFor never even
// offers write/edit/bash/task to the model (spec §3's "deny-by-default,
// only read-like tools allowed" — a trait a denied-tools list alone cannot
// express, since it can only subtract from an otherwise-full set). The
// matching ToolPermissions.Deny is defense in depth against a hallucinated
// tool call for something outside AllowedTools.
func NewPlanAgentConfig(model string, contextWindow int) AgentConfig {
	return AgentConfig{
		Type:          AgentPlan,
		Model:         model,
		SystemPrompt:  planSystemPrompt,
		ContextWindow: contextWindow,
		AllowedTools:  []string{"read", "glob", "grep"},
		ToolPermissions: &tool.PermissionConfig{
			Deny: []string{"write", "edit", "bash", "task"},
		},
	}
}

// NewCompactionAgentConfig returns the policy used internally by the
// compaction secondary LLM call (spec §4.5 Compaction: "tools list empty").
// It is not meant to drive a user-facing loop.
func NewCompactionAgentConfig(model string, contextWindow int) AgentConfig {
	return AgentConfig{
		Type:          AgentCompaction,
		Model:         model,
		SystemPrompt:  compactionSystemPrompt,
		ContextWindow: contextWindow,
		ToolPermissions: &tool.PermissionConfig{
			Deny: []string{"*"},
		},
	}
}

package session

import (
	"context"
	"fmt"

	"github.com/cexll/agentsdk-core/pkg/message"
	"github.com/cexll/agentsdk-core/pkg/tool"
	toolbuiltin "github.com/cexll/agentsdk-core/pkg/tool/builtin"
)

// CreateChild implements spec §4.5 Child sessions: "create_child(agent_type)
// returns a new session sharing the runtime, config, and store, with its
// parent_id set. Cancellation propagates to children."
func (s *Session) CreateChild(agentType AgentType, config AgentConfig) (*Session, error) {
	config.Type = agentType

	child, err := New(Options{
		Agent:              config,
		Provider:           s.provider,
		Tools:              s.tools,
		Store:              s.store,
		Recorder:           s.recorder,
		Callbacks:          s.callbacks,
		PruneProtectTokens: s.pruneProtectTokens,
		PruneMinimumTokens: s.pruneMinimumTokens,
		ParentID:           s.id,
	})
	if err != nil {
		return nil, fmt.Errorf("session: create child: %w", err)
	}

	s.childMu.Lock()
	s.children = append(s.children, child)
	s.childMu.Unlock()
	return child, nil
}

// subagentAgentType maps the task tool's subagent_type strings onto this
// package's AgentType/config presets.
func subagentAgentType(subagentType string, model string, contextWindow int) (AgentType, AgentConfig) {
	switch subagentType {
	case toolbuiltin.SubagentExplore:
		return AgentExplore, NewExploreAgentConfig(model, contextWindow)
	case toolbuiltin.SubagentPlan:
		return AgentPlan, NewPlanAgentConfig(model, contextWindow)
	default:
		return AgentGeneral, NewGeneralAgentConfig(model, contextWindow)
	}
}

// TaskRunner adapts CreateChild + Prompt into the toolbuiltin.TaskRunner
// signature, wiring the `task` tool's subagent delegation to real child
// sessions without pkg/tool importing pkg/session — the indirection
// SPEC_FULL.md's §5 package layout calls for between pkg/tool/builtin and
// pkg/session.
//
// Callers register it with toolbuiltin.NewTaskTool(parent.TaskRunner()).
func (s *Session) TaskRunner() toolbuiltin.TaskRunner {
	return func(ctx context.Context, req toolbuiltin.TaskRequest) (*tool.Result, error) {
		agentType, config := subagentAgentType(req.SubagentType, s.agent.Model, s.agent.ContextWindow)
		child, err := s.CreateChild(agentType, config)
		if err != nil {
			return nil, err
		}

		if err := child.Prompt(ctx, req.Prompt); err != nil {
			return nil, fmt.Errorf("session: subtask %s: %w", req.SubagentType, err)
		}

		msgs := child.Messages()
		var output string
		for i := len(msgs) - 1; i >= 0; i-- {
			if msgs[i].Role == message.RoleAssistant {
				output = msgs[i].Text()
				break
			}
		}
		return &tool.Result{Success: true, Output: output}, nil
	}
}

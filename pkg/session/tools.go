package session

import (
	"context"
	"fmt"
	"time"

	"github.com/cexll/agentsdk-core/pkg/message"
	"github.com/cexll/agentsdk-core/pkg/tool"
)

const doomLoopWindow = 10
const doomLoopThreshold = 3

// recordCall pushes (tool, canonical-args) onto the recent-calls ring
// buffer (max length 10, spec §4.5 Tool execution step 6).
func (s *Session) recordCall(toolName string, args map[string]any) {
	entry := recentCall{tool: toolName, args: canonicalArgsJSON(args)}
	s.recentCalls = append(s.recentCalls, entry)
	if len(s.recentCalls) > doomLoopWindow {
		s.recentCalls = s.recentCalls[len(s.recentCalls)-doomLoopWindow:]
	}
}

// isDoomLoop implements spec §4.5 Doom-loop detection: count how many
// consecutive entries from the end of the ring match the current (tool,
// args) pair exactly; ≥3 flags a doom loop. The check runs before the call
// being evaluated is itself recorded.
func (s *Session) isDoomLoop(toolName string, args map[string]any) bool {
	target := recentCall{tool: toolName, args: canonicalArgsJSON(args)}
	count := 0
	for i := len(s.recentCalls) - 1; i >= 0; i-- {
		if s.recentCalls[i] != target {
			break
		}
		count++
	}
	return count >= doomLoopThreshold
}

// executeToolCalls implements spec §4.5 Tool execution: for each
// uncompleted tool call on the last assistant message, doom-loop check,
// permission-gated execution, truncation/sanitization, and a tool-result
// part on a fresh user message.
func (s *Session) executeToolCalls(ctx context.Context, assistant *message.Message) *message.Message {
	s.setState(StateWaitingForTool)
	defer s.setState(StateRunning)

	result := message.New(s.id, message.RoleUser)

	for _, call := range assistant.UncompletedToolCalls() {
		if s.isAborted() {
			break
		}

		if s.isDoomLoop(call.Name, call.Arguments) {
			if s.recorder != nil {
				s.recorder.DoomLoopDetected(call.Name)
			}
			// Logged only; a higher-level policy may intervene via the
			// permission callback (spec §4.5 Doom-loop detection).
		}

		call.Started = true

		toolCall := tool.Call{
			Name:       call.Name,
			Params:     call.Arguments,
			SessionID:  s.id,
			WorkingDir: s.workingDir,
		}

		var toolSpan SpanContext
		if s.tracer != nil {
			toolSpan = s.tracer.StartToolSpan(s.loopSpan, call.Name)
		}

		res, execErr := s.executor.Execute(ctx, toolCall)

		if s.tracer != nil {
			s.tracer.EndSpan(toolSpan, map[string]any{"tool.call_id": call.ID}, execErr)
		}

		var output string
		var isError bool
		if execErr != nil {
			output = fmt.Sprintf("Tool execution failed: %v", execErr)
			isError = true
		} else if res != nil && res.Result != nil {
			output = message.Sanitize(res.Result.Output)
			isError = !res.Result.Success
		}

		if s.callbacks.OnToolResult != nil {
			s.callbacks.OnToolResult(call.ID, call.Name, output, isError)
		}
		s.emitEvent(Event{Kind: EventToolCallCompleted, ToolCallID: call.ID, ToolName: call.Name})

		result.AddToolResult(call.ID, call.Name, output, isError)
		call.Completed = true

		s.recordCall(call.Name, call.Arguments)

		if s.recorder != nil {
			var d time.Duration
			if res != nil {
				d = res.Duration()
			}
			s.recorder.ToolExecuted(call.Name, !isError, d)
		}
	}

	if !result.HasToolResults() {
		return nil
	}
	return result
}

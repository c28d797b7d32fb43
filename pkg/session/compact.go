package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cexll/agentsdk-core/pkg/message"
	"github.com/cexll/agentsdk-core/pkg/provider"
)

const (
	compactionThresholdRatio = 0.8
	charsPerToken            = 4
	summaryTextLimit         = 500
)

// estimateTokens applies spec §4.5's "4 characters ≈ 1 token, summing
// visible text and the output of non-compacted tool-result parts" unless
// the bound provider can supply a same-provider estimate (SPEC_FULL.md §4,
// "Qwen token pre-count").
func (s *Session) estimateTokens(ctx []*message.Message) int {
	if req, ok := s.buildRequest(ctx); ok {
		if n, est := s.provider.EstimateTokens(req); est {
			return n
		}
	}
	total := 0
	for _, m := range ctx {
		total += len(m.Text())
		for _, tr := range m.ToolResults() {
			if !tr.Compacted {
				total += len(tr.Output)
			}
		}
	}
	return total / charsPerToken
}

func (s *Session) shouldCompact(ctx []*message.Message) bool {
	if s.agent.ContextWindow <= 0 {
		return false
	}
	estimated := s.estimateTokens(ctx)
	return float64(estimated) > compactionThresholdRatio*float64(s.agent.ContextWindow)
}

// runCompaction implements spec §4.5 Compaction: a secondary LLM call over
// the context since the last finished summary (or everything), rendered to
// a single user-role payload, with a system prompt instructing a concise
// structured summary. Only TextDelta events are accumulated; stream errors
// fall through to prune-only — see DESIGN.md for the recorded decision on
// spec §9's open question.
func (s *Session) runCompaction(ctx context.Context, ctxMessages []*message.Message) error {
	s.setState(StateCompacting)
	defer s.setState(StateRunning)

	if s.recorder != nil {
		s.recorder.CompactionRun()
	}

	tokensBefore := s.estimateTokens(ctxMessages)
	payload := renderCompactionPayload(ctxMessages)

	req := provider.Request{
		Model:     s.agent.Model,
		System:    compactionSystemPrompt,
		Messages:  []*message.Message{message.NewText(s.id, message.RoleUser, payload)},
		Tools:     nil,
		MaxTokens: s.agent.MaxTokens,
		SessionID: s.id,
	}

	var text strings.Builder
	var streamErr error
	done := make(chan struct{})
	s.provider.Stream(ctx, req,
		func(evt provider.StreamEvent) {
			switch evt.Kind {
			case provider.EventTextDelta:
				text.WriteString(evt.Text)
			case provider.EventStreamError:
				streamErr = fmt.Errorf("%s", evt.ErrMessage)
			}
		},
		func(err error) {
			if err != nil {
				streamErr = err
			}
			close(done)
		},
	)
	<-done

	if streamErr != nil {
		// Spec: "stream errors fall through to prune only."
		return s.prune()
	}

	summary := message.New(s.id, message.RoleAssistant)
	summary.AddText(text.String())
	summary.IsSummary = true
	summary.IsSynthetic = true
	summary.SetFinished(message.FinishStop)
	s.addMessage(summary)

	tokensAfter := s.estimateTokens(s.Messages())
	if err := s.prune(); err != nil {
		return err
	}
	s.emitEvent(Event{Kind: EventContextCompacted, TokensBefore: tokensBefore, TokensAfter: tokensAfter})
	return nil
}

// renderCompactionPayload implements spec §4.5's per-part-kind rendering
// rules for the summarization sub-call's input.
func renderCompactionPayload(msgs []*message.Message) string {
	var b strings.Builder
	for _, m := range msgs {
		if m.IsSummary {
			fmt.Fprintf(&b, "[Previous Summary]\n%s\n\n", m.Text())
			continue
		}
		switch m.Role {
		case message.RoleUser:
			if text := m.Text(); text != "" {
				fmt.Fprintf(&b, "User: %s\n\n", text)
			}
		case message.RoleAssistant:
			if text := m.Text(); text != "" {
				fmt.Fprintf(&b, "Assistant: %s\n\n", text)
			}
		}
		for _, tc := range m.ToolCalls() {
			fmt.Fprintf(&b, "[Tool call: %s(%s)]\n", tc.Name, canonicalArgsJSON(tc.Arguments))
		}
		for _, tr := range m.ToolResults() {
			if tr.Compacted {
				fmt.Fprintf(&b, "[Tool result: %s (content cleared)]", tr.ToolName)
				continue
			}
			out := tr.Output
			if len(out) > summaryTextLimit {
				out = out[:summaryTextLimit]
			}
			fmt.Fprintf(&b, "[Tool result: %s]\n%s\n\n", tr.ToolName, out)
		}
	}
	return b.String()
}

func canonicalArgsJSON(args map[string]any) string {
	raw, err := json.Marshal(args)
	if err != nil {
		return "{}"
	}
	return string(raw)
}

// prune implements spec §4.5 Pruning: walk newest to oldest, accumulate a
// "protected" token count of output.size()/4 per non-compacted tool-result
// output; once the accumulator exceeds pruneProtectTokens, clear subsequent
// non-compacted tool-result outputs (skipping protected tools).
func (s *Session) prune() error {
	msgs := s.Messages()
	protectedTokens := 0
	prunedTokens := 0

	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		touched := false
		for _, tr := range m.ToolResults() {
			if tr.Compacted {
				continue
			}
			tokens := len(tr.Output) / charsPerToken
			if protectedTokens < s.pruneProtectTokens {
				protectedTokens += tokens
				continue
			}
			if isProtectedTool(tr.ToolName) {
				continue
			}
			tr.Compacted = true
			tr.CompactedAt = time.Now()
			tr.Output = "[Old tool result content cleared]"
			prunedTokens += tokens
			touched = true
		}
		if touched {
			s.updateMessage(m)
		}
	}

	if prunedTokens >= s.pruneMinimumTokens {
		s.emitEvent(Event{Kind: EventContextCompacted, TokensBefore: protectedTokens + prunedTokens, TokensAfter: protectedTokens})
	}
	return nil
}

// isProtectedTool reports whether a tool's results are exempt from pruning
// ("skill results are protected", spec §4.5 Pruning), grounded on
// original_source/src/session/session.cpp's prune_old_outputs:
// `if (tr->tool_name == "skill") continue;`.
func isProtectedTool(name string) bool {
	return name == "skill"
}

package session

import (
	"encoding/json"
	"fmt"

	"github.com/cexll/agentsdk-core/pkg/message"
	"github.com/cexll/agentsdk-core/pkg/provider"
)

// toolCallBuilder accumulates one in-progress tool call's argument JSON
// across ToolCallDelta events, keyed by id (spec §4.5 Stream accumulation).
type toolCallBuilder struct {
	id       string
	name     string
	argsJSON string
}

// streamAccumulator mirrors spec §4.5's "Maintain: an accumulated text
// buffer, a token-usage tally, a finish reason (default Stop), a list of
// in-progress tool-call builders keyed by id, and an error slot."
type streamAccumulator struct {
	text         string
	usage        message.Usage
	finishReason message.FinishReason
	builders     map[string]*toolCallBuilder
	order        []string
	err          error
}

func newStreamAccumulator() *streamAccumulator {
	return &streamAccumulator{
		finishReason: message.FinishStop,
		builders:     map[string]*toolCallBuilder{},
	}
}

func (a *streamAccumulator) builder(id string) *toolCallBuilder {
	b, ok := a.builders[id]
	if !ok {
		b = &toolCallBuilder{id: id}
		a.builders[id] = b
		a.order = append(a.order, id)
	}
	return b
}

// apply folds one provider event into the accumulator, firing the
// session's on-stream/on-thinking/on-tool-call callbacks and
// ToolCallStarted event as side effects, matching spec §4.5's per-kind
// behaviour exactly.
func (s *Session) apply(acc *streamAccumulator, evt provider.StreamEvent) {
	if s.recorder != nil {
		s.recorder.StreamEvent(s.provider.Name(), evt.Kind)
	}
	switch evt.Kind {
	case provider.EventTextDelta:
		acc.text += evt.Text
		if s.callbacks.OnStream != nil {
			s.callbacks.OnStream(evt.Text)
		}
	case provider.EventThinkingDelta:
		if s.callbacks.OnThinking != nil {
			s.callbacks.OnThinking(evt.Text)
		}
	case provider.EventToolCallDelta:
		if evt.ToolCallID == "" {
			return
		}
		b := acc.builder(evt.ToolCallID)
		if evt.ToolCallName != "" {
			b.name = evt.ToolCallName
		}
		b.argsJSON += evt.ToolCallArgsDelta
	case provider.EventToolCallComplete:
		b := acc.builder(evt.ToolCallID)
		if evt.ToolCallName != "" {
			b.name = evt.ToolCallName
		}
		if evt.ToolCallArguments != nil {
			if raw, err := json.Marshal(evt.ToolCallArguments); err == nil {
				b.argsJSON = string(raw)
			}
		}
		if s.callbacks.OnToolCall != nil {
			s.callbacks.OnToolCall(b.id, b.name, provider.ParseToolArgs(b.argsJSON))
		}
		s.emitEvent(Event{Kind: EventToolCallStarted, ToolCallID: b.id, ToolName: b.name})
	case provider.EventFinishStep:
		acc.finishReason = evt.FinishReason
		acc.usage = evt.Usage
	case provider.EventStreamError:
		acc.err = fmt.Errorf("%s", evt.ErrMessage)
	}
}

// finish builds the finished assistant message from the accumulator: a
// single text part if the buffer is non-empty, then one tool-call part per
// builder, in arrival order; then finished, finish reason and usage. Every
// builder becomes a tool call: arguments that are not a JSON object are
// replaced by an empty object, and nothing is dropped or logged.
func (acc *streamAccumulator) finish(sessionID string) *message.Message {
	m := message.New(sessionID, message.RoleAssistant)
	if acc.text != "" {
		m.AddText(acc.text)
	}
	for _, id := range acc.order {
		b := acc.builders[id]
		args := provider.ParseToolArgs(b.argsJSON)
		m.AddToolCall(b.id, b.name, args)
	}
	m.Usage = acc.usage
	m.SetFinished(acc.finishReason)
	return m
}

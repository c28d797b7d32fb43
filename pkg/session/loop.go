package session

import (
	"context"
	"fmt"

	"github.com/cexll/agentsdk-core/pkg/message"
	"github.com/cexll/agentsdk-core/pkg/provider"
	"github.com/cexll/agentsdk-core/pkg/tool"
)

// getContextMessages implements spec §4.5 Context selection: "if a finished
// summary message exists, the newest such summary plus everything after it;
// otherwise all messages."
func (s *Session) getContextMessages() []*message.Message {
	msgs := s.Messages()
	lastSummary := -1
	for i, m := range msgs {
		if m.IsSummary && m.Finished {
			lastSummary = i
		}
	}
	if lastSummary < 0 {
		return msgs
	}
	return msgs[lastSummary:]
}

// buildRequest implements spec §4.5 Request construction. It returns
// ok=false only when both the context and the system prompt are empty.
func (s *Session) buildRequest(ctx []*message.Message) (provider.Request, bool) {
	if len(ctx) == 0 && s.systemPrompt == "" {
		return provider.Request{}, false
	}
	tools := s.tools.ListFor(s.agent.AllowAgentOnlyTools, s.agent.AllowedTools, s.agent.DeniedTools)
	return provider.Request{
		Model:         s.agent.Model,
		System:        s.systemPrompt,
		Messages:      ctx,
		Tools:         tool.Definitions(tools),
		Temperature:   s.agent.Temperature,
		StopSequences: s.agent.StopSequences,
		MaxTokens:     s.agent.MaxTokens,
		SessionID:     s.id,
	}, true
}

// Prompt constructs a user message carrying text, appends it, and runs the
// loop (spec §4.5 "prompt(text)").
func (s *Session) Prompt(ctx context.Context, text string) error {
	return s.PromptMessage(ctx, message.NewText(s.id, message.RoleUser, text))
}

// PromptMessage is the general form: append an already-constructed message
// (e.g. one carrying image parts) and run the loop.
func (s *Session) PromptMessage(ctx context.Context, m *message.Message) error {
	s.addMessage(m)
	return s.run(ctx)
}

// run is spec §4.5's Loop: reset the abort flag, enter Running, repeat up
// to 100 iterations through termination check, compaction, tool draining,
// and streaming a step.
func (s *Session) run(ctx context.Context) error {
	s.aborted.Store(false)
	s.setState(StateRunning)

	var loopErr error

	for i := 0; i < maxLoopIterations; i++ {
		if s.isAborted() {
			break
		}
		done, err := s.runIteration(ctx, i)
		if err != nil {
			loopErr = err
			break
		}
		if done {
			break
		}
	}

	final := StateCompleted
	switch {
	case s.isAborted():
		final = StateCancelled
	case loopErr != nil:
		final = StateFailed
	}
	s.setState(final)
	_ = s.prune()
	s.persistMetadata()

	if s.callbacks.OnComplete != nil {
		s.callbacks.OnComplete(final)
	}
	if loopErr != nil && s.callbacks.OnError != nil {
		s.callbacks.OnError(loopErr.Error())
	}
	return loopErr
}

// runIteration runs one pass of the loop body, wrapped in a loop-iteration
// span per the expanded spec's Tracing note. It returns done=true when the
// loop should stop (a terminal condition was reached or an error halted
// it), matching run's prior break/continue structure one level down.
func (s *Session) runIteration(ctx context.Context, i int) (done bool, err error) {
	if s.tracer != nil {
		s.loopSpan = s.tracer.StartLoopSpan(s.id, i)
		defer func() {
			s.tracer.EndSpan(s.loopSpan, map[string]any{"session.iteration": i}, err)
			s.loopSpan = nil
		}()
	}

	ctxMessages := s.getContextMessages()
	lastAssistant := lastAssistantMessage(ctxMessages)
	needsResponse := len(ctxMessages) > 0 && ctxMessages[len(ctxMessages)-1].Role == message.RoleUser

	if !needsResponse && lastAssistant != nil && lastAssistant.Finished && lastAssistant.FinishReas != message.FinishToolCalls {
		return true, nil
	}

	if s.shouldCompact(ctxMessages) {
		if err := s.runCompaction(ctx, ctxMessages); err != nil {
			return true, err
		}
		return false, nil
	}

	if lastAssistant != nil && lastAssistant.FinishReas == message.FinishToolCalls && len(lastAssistant.UncompletedToolCalls()) > 0 {
		resultMsg := s.executeToolCalls(ctx, lastAssistant)
		if resultMsg != nil {
			s.addMessage(resultMsg)
		}
		return false, nil
	}

	assistant, err := s.streamStep(ctx, ctxMessages)
	if err != nil {
		return true, err
	}
	if assistant == nil {
		return true, nil
	}
	s.addMessage(assistant)

	if assistant.FinishReas == message.FinishToolCalls && len(assistant.UncompletedToolCalls()) > 0 {
		resultMsg := s.executeToolCalls(ctx, assistant)
		if resultMsg != nil {
			s.addMessage(resultMsg)
		}
	}
	return false, nil
}

func lastAssistantMessage(msgs []*message.Message) *message.Message {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == message.RoleAssistant {
			return msgs[i]
		}
	}
	return nil
}

// streamStep implements spec §4.5 "Stream a step": build a request, invoke
// the provider's stream, accumulate per-event into an in-progress assistant
// message, and return it once the stream completes.
func (s *Session) streamStep(ctx context.Context, ctxMessages []*message.Message) (*message.Message, error) {
	req, ok := s.buildRequest(ctxMessages)
	if !ok {
		return nil, nil
	}

	var streamSpan SpanContext
	if s.tracer != nil {
		streamSpan = s.tracer.StartStreamSpan(s.loopSpan, s.provider.Name(), req.Model)
	}

	acc := newStreamAccumulator()
	done := make(chan struct{})
	s.provider.Stream(ctx, req,
		func(evt provider.StreamEvent) { s.apply(acc, evt) },
		func(err error) {
			if err != nil && acc.err == nil {
				acc.err = err
			}
			close(done)
		},
	)
	<-done

	if s.tracer != nil {
		s.tracer.EndSpan(streamSpan, map[string]any{"provider.model": req.Model}, acc.err)
	}

	if acc.err != nil {
		return nil, fmt.Errorf("session: stream: %w", acc.err)
	}

	m := acc.finish(s.id)
	if s.recorder != nil {
		s.recorder.TokensUsed(m.Usage)
	}
	return m, nil
}

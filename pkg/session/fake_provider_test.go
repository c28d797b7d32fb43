package session

import (
	"context"
	"sync"

	"github.com/cexll/agentsdk-core/pkg/message"
	"github.com/cexll/agentsdk-core/pkg/provider"
)

// scriptedStep is one canned response for fakeProvider.Stream, in call order.
type scriptedStep struct {
	events []provider.StreamEvent
	err    error
}

// fakeProvider is a deterministic provider.Provider double: each call to
// Stream consumes the next scriptedStep, replaying its events synchronously.
type fakeProvider struct {
	mu       sync.Mutex
	steps    []scriptedStep
	calls    int
	canceled bool
	estimate func(req provider.Request) (int, bool)
}

func (f *fakeProvider) Name() string                { return "fake" }
func (f *fakeProvider) Models() []provider.ModelInfo { return nil }

func (f *fakeProvider) Complete(ctx context.Context, req provider.Request) (*provider.LlmResponse, error) {
	return nil, nil
}

func (f *fakeProvider) Stream(ctx context.Context, req provider.Request, onEvent provider.OnEvent, onComplete provider.OnComplete) {
	f.mu.Lock()
	idx := f.calls
	f.calls++
	var step scriptedStep
	if idx < len(f.steps) {
		step = f.steps[idx]
	}
	f.mu.Unlock()

	for _, e := range step.events {
		onEvent(e)
	}
	onComplete(step.err)
}

func (f *fakeProvider) Cancel() { f.canceled = true }

func (f *fakeProvider) EstimateTokens(req provider.Request) (int, bool) {
	if f.estimate != nil {
		return f.estimate(req)
	}
	return 0, false
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// textStep builds a scriptedStep that emits a finished text-only assistant
// turn with the given finish reason.
func textStep(text string, reason message.FinishReason) scriptedStep {
	return scriptedStep{events: []provider.StreamEvent{
		{Kind: provider.EventTextDelta, Text: text},
		{Kind: provider.EventFinishStep, FinishReason: reason},
	}}
}

// toolCallStep builds a scriptedStep that emits one completed tool call.
func toolCallStep(id, name string, args map[string]any) scriptedStep {
	return scriptedStep{events: []provider.StreamEvent{
		{Kind: provider.EventToolCallComplete, ToolCallID: id, ToolCallName: name, ToolCallArguments: args},
		{Kind: provider.EventFinishStep, FinishReason: message.FinishToolCalls},
	}}
}

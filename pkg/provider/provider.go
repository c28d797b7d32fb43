// Package provider implements the unified streaming event vocabulary and
// per-vendor adapters described in spec §4.3.
package provider

import (
	"context"
	"encoding/json"

	"github.com/cexll/agentsdk-core/pkg/message"
)

// ModelInfo describes one model a provider can serve.
type ModelInfo struct {
	ID              string
	Provider        string
	ContextWindow   int
	MaxOutputTokens int
	SupportsVision  bool
	SupportsTools   bool
}

// Request is the provider-agnostic shape a session builds before delegating
// to a concrete adapter.
type Request struct {
	Model         string
	System        string
	Messages      []*message.Message
	Tools         []message.ToolDefinition
	Temperature   *float64
	StopSequences []string
	MaxTokens     int
	SessionID     string
}

// EventKind discriminates the unified stream-event vocabulary (§4.3 table).
type EventKind string

const (
	EventTextDelta        EventKind = "text_delta"
	EventThinkingDelta    EventKind = "thinking_delta"
	EventToolCallDelta    EventKind = "tool_call_delta"
	EventToolCallComplete EventKind = "tool_call_complete"
	EventFinishStep       EventKind = "finish_step"
	EventStreamError      EventKind = "stream_error"
)

// StreamEvent is one element of the unified decoding result. Exactly one of
// the typed payload fields is meaningful, selected by Kind.
type StreamEvent struct {
	Kind EventKind

	// TextDelta / ThinkingDelta
	Text string

	// ToolCallDelta / ToolCallComplete
	ToolCallID        string
	ToolCallName      string
	ToolCallArgsDelta string
	ToolCallArguments map[string]any

	// FinishStep
	FinishReason message.FinishReason
	Usage        message.Usage

	// StreamError
	ErrMessage string
	Retryable  bool
}

// LlmResponse is the unary result of Complete.
type LlmResponse struct {
	Message      *message.Message
	FinishReason message.FinishReason
	Usage        message.Usage
}

// OnEvent is fired for every decoded stream event, in arrival order.
type OnEvent func(StreamEvent)

// OnComplete is fired once the stream has ended (successfully or not).
type OnComplete func(err error)

// Provider is the per-vendor adapter contract.
type Provider interface {
	Name() string
	Models() []ModelInfo
	Complete(ctx context.Context, req Request) (*LlmResponse, error)
	Stream(ctx context.Context, req Request, onEvent OnEvent, onComplete OnComplete)
	Cancel()
	// EstimateTokens optionally gives a provider-specific token estimate for
	// req, used by the session loop instead of the generic 4-chars/token
	// heuristic when available (see SPEC_FULL.md §4, Qwen pre-count).
	EstimateTokens(req Request) (tokens int, ok bool)
}

// Config carries per-provider connection details, per §6 Provider
// configuration.
type Config struct {
	Name         string
	APIKey       string
	BaseURL      string
	Organization string
	Headers      map[string]string
}

// FinishReasonFromVendor maps a vendor-specific stop-reason string onto the
// unified message.FinishReason vocabulary. Shared by every adapter so the
// mapping stays in one place.
func FinishReasonFromVendor(reason string) message.FinishReason {
	switch reason {
	case "end_turn", "stop", "stop_sequence":
		return message.FinishStop
	case "tool_use", "tool_calls", "function_call":
		return message.FinishToolCalls
	case "max_tokens", "length":
		return message.FinishLength
	default:
		return message.FinishStop
	}
}

// ParseToolArgs parses accumulated JSON argument bytes into an object,
// tolerating empty or malformed input per §4.3/§9 (empty ⇒ {}, parse error
// ⇒ {}).
func ParseToolArgs(raw string) map[string]any {
	if raw == "" {
		return map[string]any{}
	}
	var v map[string]any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return map[string]any{}
	}
	if v == nil {
		return map[string]any{}
	}
	return v
}

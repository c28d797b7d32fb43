// Package anthropic adapts the Anthropic Messages API to the provider.Provider
// contract, decoding its server-sent event stream
// (message_start/content_block_start/content_block_delta/content_block_stop/
// message_delta/message_stop/error) into the unified stream-event vocabulary.
//
// The request goes out over pkg/transport rather than an official SDK client
// (see SPEC_FULL.md, "Dropped teacher dependencies"); the event-name mapping
// mirrors the teacher's switch over anthropicsdk.MessageStreamEventUnion in
// third_party/agentsdk-go/pkg/model/anthropic.go.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cexll/agentsdk-core/pkg/message"
	"github.com/cexll/agentsdk-core/pkg/provider"
	"github.com/cexll/agentsdk-core/pkg/transport"
)

const defaultBaseURL = "https://api.anthropic.com"

// Adapter implements provider.Provider for Anthropic.
type Adapter struct {
	cfg       provider.Config
	client    *transport.Client
	cancelled atomic.Bool
}

// defaultRequestsPerSecond seeds the transport's 429 back-off limiter; the
// Anthropic API's default org-level rate limits comfortably allow this for
// a single-session client.
const defaultRequestsPerSecond = 5

// New constructs an Anthropic adapter from cfg.
func New(cfg provider.Config) *Adapter {
	return &Adapter{cfg: cfg, client: &transport.Client{RateLimiter: transport.NewRateLimiter(defaultRequestsPerSecond)}}
}

func (a *Adapter) Name() string { return "anthropic" }

func (a *Adapter) Models() []provider.ModelInfo {
	return []provider.ModelInfo{
		{ID: "claude-opus-4-6", Provider: "anthropic", ContextWindow: 200000, MaxOutputTokens: 32000, SupportsVision: true, SupportsTools: true},
		{ID: "claude-sonnet-4-6", Provider: "anthropic", ContextWindow: 200000, MaxOutputTokens: 16000, SupportsVision: true, SupportsTools: true},
		{ID: "claude-haiku-4-6", Provider: "anthropic", ContextWindow: 200000, MaxOutputTokens: 8192, SupportsVision: true, SupportsTools: true},
	}
}

func (a *Adapter) Cancel() { a.cancelled.Store(true) }

func (a *Adapter) EstimateTokens(req provider.Request) (int, bool) { return 0, false }

func (a *Adapter) baseURL() string {
	if a.cfg.BaseURL != "" {
		return strings.TrimRight(a.cfg.BaseURL, "/")
	}
	return defaultBaseURL
}

func (a *Adapter) headers() map[string]string {
	h := map[string]string{
		"content-type":      "application/json",
		"anthropic-version": "2023-06-01",
		"x-api-key":         a.cfg.APIKey,
	}
	for k, v := range a.cfg.Headers {
		h[strings.ToLower(k)] = v
	}
	return h
}

func (a *Adapter) buildBody(req provider.Request, stream bool) ([]byte, error) {
	anthReq := message.ToAnthropicRequest(req.Model, req.MaxTokens, req.System, req.Temperature, req.StopSequences, req.Messages, req.Tools)
	anthReq.Stream = stream
	return json.Marshal(anthReq)
}

// Complete issues a non-streaming request.
func (a *Adapter) Complete(ctx context.Context, req provider.Request) (*provider.LlmResponse, error) {
	body, err := a.buildBody(req, false)
	if err != nil {
		return nil, fmt.Errorf("anthropic: build request: %w", err)
	}

	resp := a.client.DoWithRetry(ctx, transport.Request{
		Method:     "POST",
		URL:        a.baseURL() + "/v1/messages",
		Headers:    a.headers(),
		Body:       body,
		Timeout:    600 * time.Second,
		RetryCount: 2,
		RetryDelay: time.Second,
	})
	if resp.Err != nil {
		return nil, fmt.Errorf("anthropic: %w", resp.Err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("anthropic: status %d: %s", resp.StatusCode, string(resp.Body))
	}

	var wire anthropicMessageResponse
	if err := json.Unmarshal(resp.Body, &wire); err != nil {
		return nil, fmt.Errorf("anthropic: decode response: %w", err)
	}

	msg := message.New(req.SessionID, message.RoleAssistant)
	for _, block := range wire.Content {
		switch block.Type {
		case "text":
			msg.AddText(block.Text)
		case "tool_use":
			msg.AddToolCall(block.ID, block.Name, provider.ParseToolArgs(string(block.Input)))
		}
	}
	msg.SetFinished(provider.FinishReasonFromVendor(wire.StopReason))

	return &provider.LlmResponse{
		Message:      msg,
		FinishReason: provider.FinishReasonFromVendor(wire.StopReason),
		Usage: message.Usage{
			InputTokens:         wire.Usage.InputTokens,
			OutputTokens:        wire.Usage.OutputTokens,
			CacheWriteTokens:    wire.Usage.CacheCreationInputTokens,
			CacheReadTokens:     wire.Usage.CacheReadInputTokens,
		},
	}, nil
}

// Stream issues a streaming request and decodes the SSE body.
func (a *Adapter) Stream(ctx context.Context, req provider.Request, onEvent provider.OnEvent, onComplete provider.OnComplete) {
	body, err := a.buildBody(req, true)
	if err != nil {
		onComplete(fmt.Errorf("anthropic: build request: %w", err))
		return
	}

	dec := newSSEDecoder()
	tools := newToolAccumulator()
	var streamErr error

	a.client.Stream(ctx, transport.Request{
		Method:  "POST",
		URL:     a.baseURL() + "/v1/messages",
		Headers: a.headers(),
		Body:    body,
		Timeout: 600 * time.Second,
	},
		func(chunk []byte) {
			if a.cancelled.Load() {
				return
			}
			for _, evt := range dec.feed(chunk) {
				if handleErr := translateEvent(evt, tools, onEvent); handleErr != nil {
					streamErr = handleErr
				}
			}
		},
		func(statusCode int, err error) {
			if err != nil {
				onEvent(provider.StreamEvent{Kind: provider.EventStreamError, ErrMessage: err.Error(), Retryable: isRetryable(err)})
				onComplete(err)
				return
			}
			if statusCode >= 300 {
				onEvent(provider.StreamEvent{Kind: provider.EventStreamError, ErrMessage: fmt.Sprintf("status %d", statusCode), Retryable: statusCode >= 500})
				onComplete(fmt.Errorf("anthropic: status %d", statusCode))
				return
			}
			onComplete(streamErr)
		},
	)
}

func isRetryable(err error) bool {
	var terr *transport.Error
	if errors.As(err, &terr) {
		return terr.Kind != transport.FailureNone
	}
	return false
}

// sseEvent is one decoded "event: X\ndata: {...}" block.
type sseEvent struct {
	name string
	data []byte
}

// sseDecoder buffers raw transport chunks and splits them on blank-line
// terminated SSE records, tolerating records split across chunk boundaries.
type sseDecoder struct {
	buf bytes.Buffer
}

func newSSEDecoder() *sseDecoder { return &sseDecoder{} }

func (d *sseDecoder) feed(chunk []byte) []sseEvent {
	d.buf.Write(chunk)
	var events []sseEvent
	for {
		raw := d.buf.Bytes()
		idx := bytes.Index(raw, []byte("\n\n"))
		if idx < 0 {
			break
		}
		record := raw[:idx]
		d.buf.Next(idx + 2)

		var evt sseEvent
		for _, line := range bytes.Split(record, []byte("\n")) {
			switch {
			case bytes.HasPrefix(line, []byte("event:")):
				evt.name = strings.TrimSpace(string(line[len("event:"):]))
			case bytes.HasPrefix(line, []byte("data:")):
				evt.data = append(evt.data, bytes.TrimSpace(line[len("data:"):])...)
			}
		}
		if evt.name != "" || len(evt.data) > 0 {
			events = append(events, evt)
		}
	}
	return events
}

type anthropicStreamPayload struct {
	Type  string `json:"type"`
	Index int    `json:"index"`
	Delta struct {
		Type        string `json:"type"`
		Text        string `json:"text"`
		PartialJSON string `json:"partial_json"`
		StopReason  string `json:"stop_reason"`
	} `json:"delta"`
	ContentBlock struct {
		Type  string          `json:"type"`
		ID    string          `json:"id"`
		Name  string          `json:"name"`
		Input json.RawMessage `json:"input"`
	} `json:"content_block"`
	Usage struct {
		InputTokens              int `json:"input_tokens"`
		OutputTokens             int `json:"output_tokens"`
		CacheCreationInputTokens int `json:"cache_creation_input_tokens"`
		CacheReadInputTokens     int `json:"cache_read_input_tokens"`
	} `json:"usage"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// toolAccumulator tracks partial_json fragments per content-block index
// between content_block_start and content_block_stop, scoped to a single
// Stream call (each call gets its own instance — no shared state across
// concurrent requests).
type toolAccumulator struct {
	pending map[int]*pendingTool
}

func newToolAccumulator() *toolAccumulator { return &toolAccumulator{pending: map[int]*pendingTool{}} }

type pendingTool struct {
	id, name string
	args     strings.Builder
}

func translateEvent(evt sseEvent, tools *toolAccumulator, onEvent provider.OnEvent) error {
	if evt.name == "ping" {
		return nil
	}
	var payload anthropicStreamPayload
	if len(evt.data) > 0 {
		if err := json.Unmarshal(evt.data, &payload); err != nil {
			return fmt.Errorf("anthropic: decode event %q: %w", evt.name, err)
		}
	}

	switch payload.Type {
	case "content_block_start":
		if payload.ContentBlock.Type == "tool_use" {
			tools.pending[payload.Index] = &pendingTool{id: payload.ContentBlock.ID, name: payload.ContentBlock.Name}
		}
	case "content_block_delta":
		switch payload.Delta.Type {
		case "text_delta":
			onEvent(provider.StreamEvent{Kind: provider.EventTextDelta, Text: payload.Delta.Text})
		case "thinking_delta":
			onEvent(provider.StreamEvent{Kind: provider.EventThinkingDelta, Text: payload.Delta.Text})
		case "input_json_delta":
			if t, ok := tools.pending[payload.Index]; ok {
				t.args.WriteString(payload.Delta.PartialJSON)
			}
			onEvent(provider.StreamEvent{Kind: provider.EventToolCallDelta, ToolCallArgsDelta: payload.Delta.PartialJSON})
		}
	case "content_block_stop":
		t, ok := tools.pending[payload.Index]
		if ok {
			delete(tools.pending, payload.Index)
		}
		if ok {
			onEvent(provider.StreamEvent{
				Kind:              provider.EventToolCallComplete,
				ToolCallID:        t.id,
				ToolCallName:      t.name,
				ToolCallArguments: provider.ParseToolArgs(t.args.String()),
			})
		}
	case "message_delta":
		onEvent(provider.StreamEvent{
			Kind:         provider.EventFinishStep,
			FinishReason: provider.FinishReasonFromVendor(payload.Delta.StopReason),
			Usage: message.Usage{
				InputTokens:         payload.Usage.InputTokens,
				OutputTokens:        payload.Usage.OutputTokens,
				CacheWriteTokens:    payload.Usage.CacheCreationInputTokens,
				CacheReadTokens:     payload.Usage.CacheReadInputTokens,
			},
		})
	case "error":
		onEvent(provider.StreamEvent{Kind: provider.EventStreamError, ErrMessage: payload.Error.Message, Retryable: payload.Error.Type == "overloaded_error"})
	}
	return nil
}

type anthropicMessageResponse struct {
	ID         string `json:"id"`
	StopReason string `json:"stop_reason"`
	Content    []struct {
		Type  string          `json:"type"`
		Text  string          `json:"text"`
		ID    string          `json:"id"`
		Name  string          `json:"name"`
		Input json.RawMessage `json:"input"`
	} `json:"content"`
	Usage struct {
		InputTokens              int `json:"input_tokens"`
		OutputTokens             int `json:"output_tokens"`
		CacheCreationInputTokens int `json:"cache_creation_input_tokens"`
		CacheReadInputTokens     int `json:"cache_read_input_tokens"`
	} `json:"usage"`
}

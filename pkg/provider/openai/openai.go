// Package openai adapts any OpenAI-compatible chat-completions endpoint
// (OpenAI itself, and self-hosted/OSS-served models using the same wire
// shape) to the provider.Provider contract.
//
// Streaming accumulates delta.tool_calls by index the way the teacher's
// toolCallAccumulator does in
// third_party/agentsdk-go/pkg/model/openai.go, and strips inline
// "<think>...</think>" reasoning spans some OpenAI-compatible backends emit
// in delta.content instead of a separate reasoning_content field.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cexll/agentsdk-core/pkg/message"
	"github.com/cexll/agentsdk-core/pkg/provider"
	"github.com/cexll/agentsdk-core/pkg/transport"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Adapter implements provider.Provider for OpenAI-compatible chat APIs.
type Adapter struct {
	cfg       provider.Config
	client    *transport.Client
	cancelled atomic.Bool
}

// defaultRequestsPerSecond seeds the transport's 429 back-off limiter.
const defaultRequestsPerSecond = 5

func New(cfg provider.Config) *Adapter {
	return &Adapter{cfg: cfg, client: &transport.Client{RateLimiter: transport.NewRateLimiter(defaultRequestsPerSecond)}}
}

func (a *Adapter) Name() string { return "openai" }

func (a *Adapter) Models() []provider.ModelInfo {
	return []provider.ModelInfo{
		{ID: "gpt-4o", Provider: "openai", ContextWindow: 128000, MaxOutputTokens: 16384, SupportsVision: true, SupportsTools: true},
		{ID: "gpt-4o-mini", Provider: "openai", ContextWindow: 128000, MaxOutputTokens: 16384, SupportsVision: true, SupportsTools: true},
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

func (a *Adapter) headers(ctx context.Context) map[string]string {
	h := map[string]string{
		"content-type":  "application/json",
		"authorization": provider.ResolveAuthHeader(ctx, a.cfg.APIKey),
	}
	if a.cfg.Organization != "" {
		h["openai-organization"] = a.cfg.Organization
	}
	for k, v := range a.cfg.Headers {
		h[strings.ToLower(k)] = v
	}
	return h
}

func (a *Adapter) buildBody(req provider.Request, stream bool) ([]byte, error) {
	oaReq := message.ToOpenAIRequest(req.Model, req.System, req.Temperature, req.StopSequences, req.MaxTokens, req.Messages, req.Tools)
	oaReq.Stream = stream
	if !stream {
		oaReq.StreamOpts = nil
	}
	return json.Marshal(oaReq)
}

// Complete issues a non-streaming chat completion request.
func (a *Adapter) Complete(ctx context.Context, req provider.Request) (*provider.LlmResponse, error) {
	body, err := a.buildBody(req, false)
	if err != nil {
		return nil, fmt.Errorf("openai: build request: %w", err)
	}

	resp := a.client.DoWithRetry(ctx, transport.Request{
		Method:     "POST",
		URL:        a.baseURL() + "/chat/completions",
		Headers:    a.headers(ctx),
		Body:       body,
		Timeout:    600 * time.Second,
		RetryCount: 2,
		RetryDelay: time.Second,
	})
	if resp.Err != nil {
		return nil, fmt.Errorf("openai: %w", resp.Err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("openai: status %d: %s", resp.StatusCode, string(resp.Body))
	}

	var wire chatCompletionResponse
	if err := json.Unmarshal(resp.Body, &wire); err != nil {
		return nil, fmt.Errorf("openai: decode response: %w", err)
	}
	if len(wire.Choices) == 0 {
		return nil, fmt.Errorf("openai: response has no choices")
	}
	choice := wire.Choices[0]

	msg := message.New(req.SessionID, message.RoleAssistant)
	if text := stripThinkTags(choice.Message.Content); text != "" {
		msg.AddText(text)
	}
	for _, tc := range choice.Message.ToolCalls {
		msg.AddToolCall(tc.ID, tc.Function.Name, provider.ParseToolArgs(tc.Function.Arguments))
	}
	finish := provider.FinishReasonFromVendor(choice.FinishReason)
	msg.SetFinished(finish)

	return &provider.LlmResponse{
		Message:      msg,
		FinishReason: finish,
		Usage: message.Usage{
			InputTokens:  wire.Usage.PromptTokens,
			OutputTokens: wire.Usage.CompletionTokens,
		},
	}, nil
}

// Stream issues a streaming chat completion and decodes the
// "data: {...}\n\n" / "data: [DONE]" SSE body.
func (a *Adapter) Stream(ctx context.Context, req provider.Request, onEvent provider.OnEvent, onComplete provider.OnComplete) {
	body, err := a.buildBody(req, true)
	if err != nil {
		onComplete(fmt.Errorf("openai: build request: %w", err))
		return
	}

	dec := &lineSSEDecoder{}
	tools := map[int]*pendingToolCall{}
	var order []int
	var finishReason string
	var usage message.Usage
	var inThink bool

	emitToolCalls := func() {
		sort.Ints(order)
		for _, idx := range order {
			t := tools[idx]
			if t == nil || t.id == "" {
				continue
			}
			onEvent(provider.StreamEvent{
				Kind:              provider.EventToolCallComplete,
				ToolCallID:        t.id,
				ToolCallName:      t.name,
				ToolCallArguments: provider.ParseToolArgs(t.args.String()),
			})
		}
	}

	a.client.Stream(ctx, transport.Request{
		Method:  "POST",
		URL:     a.baseURL() + "/chat/completions",
		Headers: a.headers(ctx),
		Body:    body,
		Timeout: 600 * time.Second,
	},
		func(chunk []byte) {
			if a.cancelled.Load() {
				return
			}
			for _, line := range dec.feed(chunk) {
				if line == "[DONE]" {
					continue
				}
				var cc chatCompletionChunk
				if err := json.Unmarshal([]byte(line), &cc); err != nil {
					continue
				}
				if cc.Usage.TotalTokens > 0 {
					usage = message.Usage{InputTokens: cc.Usage.PromptTokens, OutputTokens: cc.Usage.CompletionTokens}
				}
				for _, choice := range cc.Choices {
					if choice.FinishReason != "" {
						finishReason = choice.FinishReason
					}
					if choice.Delta.Content != "" {
						for _, frag := range splitThinkFragments(choice.Delta.Content, &inThink) {
							if frag.thinking {
								onEvent(provider.StreamEvent{Kind: provider.EventThinkingDelta, Text: frag.text})
							} else if frag.text != "" {
								onEvent(provider.StreamEvent{Kind: provider.EventTextDelta, Text: frag.text})
							}
						}
					}
					if choice.Delta.ReasoningContent != "" {
						onEvent(provider.StreamEvent{Kind: provider.EventThinkingDelta, Text: choice.Delta.ReasoningContent})
					} else if choice.Delta.Reasoning != "" {
						onEvent(provider.StreamEvent{Kind: provider.EventThinkingDelta, Text: choice.Delta.Reasoning})
					}
					for _, tc := range choice.Delta.ToolCalls {
						t, ok := tools[tc.Index]
						if !ok {
							t = &pendingToolCall{}
							tools[tc.Index] = t
							order = append(order, tc.Index)
						}
						if tc.ID != "" {
							t.id = tc.ID
						}
						if tc.Function.Name != "" {
							t.name = tc.Function.Name
						}
						t.args.WriteString(tc.Function.Arguments)
						onEvent(provider.StreamEvent{Kind: provider.EventToolCallDelta, ToolCallArgsDelta: tc.Function.Arguments})
					}
				}
			}
		},
		func(statusCode int, err error) {
			if err != nil {
				onEvent(provider.StreamEvent{Kind: provider.EventStreamError, ErrMessage: err.Error(), Retryable: true})
				onComplete(err)
				return
			}
			if statusCode >= 300 {
				onEvent(provider.StreamEvent{Kind: provider.EventStreamError, ErrMessage: fmt.Sprintf("status %d", statusCode), Retryable: statusCode >= 500})
				onComplete(fmt.Errorf("openai: status %d", statusCode))
				return
			}
			emitToolCalls()
			onEvent(provider.StreamEvent{Kind: provider.EventFinishStep, FinishReason: provider.FinishReasonFromVendor(finishReason), Usage: usage})
			onComplete(nil)
		},
	)
}

type pendingToolCall struct {
	id, name string
	args     strings.Builder
}

// lineSSEDecoder splits a raw byte stream into "data: ..." payload lines,
// tolerating lines split across chunk boundaries.
type lineSSEDecoder struct {
	buf bytes.Buffer
}

func (d *lineSSEDecoder) feed(chunk []byte) []string {
	d.buf.Write(chunk)
	var out []string
	for {
		raw := d.buf.Bytes()
		idx := bytes.IndexByte(raw, '\n')
		if idx < 0 {
			break
		}
		line := raw[:idx]
		d.buf.Next(idx + 1)
		line = bytes.TrimRight(line, "\r")
		if !bytes.HasPrefix(line, []byte("data:")) {
			continue
		}
		payload := strings.TrimSpace(string(line[len("data:"):]))
		if payload == "" {
			continue
		}
		out = append(out, payload)
	}
	return out
}

// stripThinkTags removes <think>...</think> spans from a complete string
// (non-streaming path, where the whole content arrives at once).
func stripThinkTags(s string) string {
	for {
		start := strings.Index(s, "<think>")
		if start < 0 {
			break
		}
		end := strings.Index(s[start:], "</think>")
		if end < 0 {
			s = s[:start]
			break
		}
		s = s[:start] + s[start+end+len("</think>"):]
	}
	return strings.TrimSpace(s)
}

type thinkFragment struct {
	text     string
	thinking bool
}

// splitThinkFragments incrementally classifies streamed content as regular
// text or "<think>" reasoning, carrying in-tag state across calls via inThink.
// This is a best-effort streaming approximation of stripThinkTags: it assumes
// the "<think>"/"</think>" markers themselves are not split across deltas.
func splitThinkFragments(content string, inThink *bool) []thinkFragment {
	var out []thinkFragment
	remaining := content
	for len(remaining) > 0 {
		if *inThink {
			end := strings.Index(remaining, "</think>")
			if end < 0 {
				out = append(out, thinkFragment{text: remaining, thinking: true})
				return out
			}
			out = append(out, thinkFragment{text: remaining[:end], thinking: true})
			remaining = remaining[end+len("</think>"):]
			*inThink = false
			continue
		}
		start := strings.Index(remaining, "<think>")
		if start < 0 {
			out = append(out, thinkFragment{text: remaining})
			return out
		}
		if start > 0 {
			out = append(out, thinkFragment{text: remaining[:start]})
		}
		remaining = remaining[start+len("<think>"):]
		*inThink = true
	}
	return out
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content   string `json:"content"`
			ToolCalls []struct {
				ID       string `json:"id"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type chatCompletionChunk struct {
	Choices []struct {
		Delta struct {
			Content          string `json:"content"`
			ReasoningContent string `json:"reasoning_content"`
			Reasoning        string `json:"reasoning"`
			ToolCalls        []struct {
				Index    int `json:"index"`
				ID       string `json:"id"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

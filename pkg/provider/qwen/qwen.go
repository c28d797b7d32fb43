// Package qwen adapts Alibaba DashScope's "compatible" chat-generation
// endpoint to the provider.Provider contract. Qwen accepts an OpenAI-shaped
// request body but wraps its response in an `output.choices[0]` envelope
// instead of a bare `choices[0]`; this package reuses message.ToOpenAIRequest
// for the request and implements its own response/event decoding for that
// envelope, grounded on original_source/src/llm/qwen.cpp's
// QwenProvider::complete and ::parse_sse_event.
package qwen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cexll/agentsdk-core/pkg/message"
	"github.com/cexll/agentsdk-core/pkg/provider"
	"github.com/cexll/agentsdk-core/pkg/transport"
)

const defaultBaseURL = "https://dashscope.aliyuncs.com"
const generationPath = "/api/v1/services/aigc/text-generation/generation"

// Adapter implements provider.Provider for DashScope/Qwen. Its Authorization
// header is resolved through provider.ResolveAuthHeader, so a registered
// provider.AuthProvider (see SPEC_FULL.md's Qwen OAuth extension point) can
// swap in an OAuth access token without this package knowing how one is
// obtained.
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

func (a *Adapter) Name() string { return "qwen" }

func (a *Adapter) Models() []provider.ModelInfo {
	return []provider.ModelInfo{
		{ID: "qwen-max", Provider: "qwen", ContextWindow: 32768, MaxOutputTokens: 8192, SupportsTools: true},
		{ID: "qwen-plus", Provider: "qwen", ContextWindow: 128000, MaxOutputTokens: 8192, SupportsVision: true, SupportsTools: true},
		{ID: "qwen-turbo", Provider: "qwen", ContextWindow: 128000, MaxOutputTokens: 8192, SupportsVision: true, SupportsTools: true},
		{ID: "qwen-long", Provider: "qwen", ContextWindow: 1000000, MaxOutputTokens: 8192, SupportsTools: true},
	}
}

func (a *Adapter) Cancel() { a.cancelled.Store(true) }

// EstimateTokens applies DashScope's documented ~1.3 tokens-per-Chinese-
// character, ~0.75 tokens-per-English-word heuristic as a pre-count so the
// session loop can budget context before the API call returns real usage.
func (a *Adapter) EstimateTokens(req provider.Request) (int, bool) {
	var chars, asciiWords int
	inWord := false
	for _, m := range req.Messages {
		for _, r := range m.Text() {
			if r > 0x2E80 {
				chars++
				inWord = false
			} else if r == ' ' || r == '\n' || r == '\t' {
				inWord = false
			} else {
				if !inWord {
					asciiWords++
					inWord = true
				}
			}
		}
	}
	return int(float64(chars)*1.3 + float64(asciiWords)*0.75), true
}

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
	for k, v := range a.cfg.Headers {
		if strings.EqualFold(k, "authorization") {
			continue
		}
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

func (a *Adapter) Complete(ctx context.Context, req provider.Request) (*provider.LlmResponse, error) {
	body, err := a.buildBody(req, false)
	if err != nil {
		return nil, fmt.Errorf("qwen: build request: %w", err)
	}

	resp := a.client.DoWithRetry(ctx, transport.Request{
		Method:     "POST",
		URL:        a.baseURL() + generationPath,
		Headers:    a.headers(ctx),
		Body:       body,
		Timeout:    600 * time.Second,
		RetryCount: 2,
		RetryDelay: time.Second,
	})
	if resp.Err != nil {
		return nil, fmt.Errorf("qwen: %w", resp.Err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("qwen: status %d: %s", resp.StatusCode, string(resp.Body))
	}

	var wire qwenResponse
	if err := json.Unmarshal(resp.Body, &wire); err != nil {
		return nil, fmt.Errorf("qwen: decode response: %w", err)
	}
	if len(wire.Output.Choices) == 0 {
		return nil, fmt.Errorf("qwen: response has no choices")
	}
	choice := wire.Output.Choices[0]

	msg := message.New(req.SessionID, message.RoleAssistant)
	if choice.Message.Content != "" {
		msg.AddText(choice.Message.Content)
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
			InputTokens:     wire.Usage.InputTokens,
			OutputTokens:    wire.Usage.OutputTokens,
			CacheReadTokens: wire.Usage.CacheReadTokens,
		},
	}, nil
}

func (a *Adapter) Stream(ctx context.Context, req provider.Request, onEvent provider.OnEvent, onComplete provider.OnComplete) {
	body, err := a.buildBody(req, true)
	if err != nil {
		onComplete(fmt.Errorf("qwen: build request: %w", err))
		return
	}

	dec := &lineSSEDecoder{}
	tools := map[int]*pendingToolCall{}

	emitRemainingToolCalls := func() {
		for _, t := range tools {
			if t.id == "" {
				continue
			}
			onEvent(provider.StreamEvent{
				Kind:              provider.EventToolCallComplete,
				ToolCallID:        t.id,
				ToolCallName:      t.name,
				ToolCallArguments: provider.ParseToolArgs(t.args.String()),
			})
		}
		tools = map[int]*pendingToolCall{}
	}

	a.client.Stream(ctx, transport.Request{
		Method:  "POST",
		URL:     a.baseURL() + generationPath,
		Headers: mergeHeaders(a.headers(ctx), map[string]string{"accept": "text/event-stream"}),
		Body:    body,
		Timeout: 600 * time.Second,
	},
		func(chunk []byte) {
			if a.cancelled.Load() {
				return
			}
			for _, line := range dec.feed(chunk) {
				if line == "[DONE]" {
					emitRemainingToolCalls()
					continue
				}

				var payload qwenStreamPayload
				if err := json.Unmarshal([]byte(line), &payload); err != nil {
					continue
				}

				if payload.Error.Message != "" {
					onEvent(provider.StreamEvent{Kind: provider.EventStreamError, ErrMessage: payload.Error.Message})
					continue
				}

				if payload.Usage != nil {
					var finishReason string
					if len(payload.Output.Choices) > 0 {
						finishReason = payload.Output.Choices[0].FinishReason
					}
					onEvent(provider.StreamEvent{
						Kind:         provider.EventFinishStep,
						FinishReason: provider.FinishReasonFromVendor(finishReason),
						Usage: message.Usage{
							InputTokens:     payload.Usage.InputTokens,
							OutputTokens:    payload.Usage.OutputTokens,
							CacheReadTokens: payload.Usage.CacheReadTokens,
						},
					})
					continue
				}

				if len(payload.Output.Choices) == 0 {
					continue
				}
				choice := payload.Output.Choices[0]

				if choice.Delta.Content != "" {
					onEvent(provider.StreamEvent{Kind: provider.EventTextDelta, Text: choice.Delta.Content})
				}

				for _, tc := range choice.Delta.ToolCalls {
					t, ok := tools[tc.Index]
					if !ok {
						t = &pendingToolCall{}
						tools[tc.Index] = t
					}
					if tc.ID != "" {
						t.id = tc.ID
						t.name = tc.Function.Name
						onEvent(provider.StreamEvent{Kind: provider.EventToolCallDelta, ToolCallID: tc.ID, ToolCallName: tc.Function.Name})
					}
					if tc.Function.Arguments != "" {
						t.args.WriteString(tc.Function.Arguments)
						onEvent(provider.StreamEvent{Kind: provider.EventToolCallDelta, ToolCallArgsDelta: tc.Function.Arguments})
					}
				}

				if choice.FinishReason == "tool_calls" {
					emitRemainingToolCalls()
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
				onComplete(fmt.Errorf("qwen: status %d", statusCode))
				return
			}
			onComplete(nil)
		},
	)
}

func mergeHeaders(base, extra map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

type pendingToolCall struct {
	id, name string
	args     strings.Builder
}

type lineSSEDecoder struct {
	buf bytes.Buffer
}

func (d *lineSSEDecoder) feed(chunk []byte) []string {
	d.buf.Write(chunk)
	var out []string
	for {
		raw := d.buf.Bytes()
		idx := bytes.Index(raw, []byte("\n\n"))
		if idx < 0 {
			break
		}
		record := raw[:idx]
		d.buf.Next(idx + 2)

		var data strings.Builder
		for _, line := range bytes.Split(record, []byte("\n")) {
			line = bytes.TrimRight(line, "\r")
			if bytes.HasPrefix(line, []byte("data:")) {
				if data.Len() > 0 {
					data.WriteByte('\n')
				}
				data.Write(bytes.TrimSpace(line[len("data:"):]))
			}
		}
		if data.Len() > 0 {
			out = append(out, data.String())
		}
	}
	return out
}

type qwenUsage struct {
	InputTokens     int `json:"input_tokens"`
	OutputTokens    int `json:"output_tokens"`
	CacheReadTokens int `json:"cache_read_tokens"`
}

type qwenResponse struct {
	Output struct {
		Choices []qwenChoice `json:"choices"`
	} `json:"output"`
	Usage qwenUsage `json:"usage"`
}

type qwenChoice struct {
	FinishReason string `json:"finish_reason"`
	Message      struct {
		Content   string `json:"content"`
		ToolCalls []struct {
			ID       string `json:"id"`
			Function struct {
				Name      string `json:"name"`
				Arguments string `json:"arguments"`
			} `json:"function"`
		} `json:"tool_calls"`
	} `json:"message"`
}

type qwenStreamPayload struct {
	Output struct {
		Choices []struct {
			FinishReason string `json:"finish_reason"`
			Delta        struct {
				Content   string `json:"content"`
				ToolCalls []struct {
					Index    int    `json:"index"`
					ID       string `json:"id"`
					Function struct {
						Name      string `json:"name"`
						Arguments string `json:"arguments"`
					} `json:"function"`
				} `json:"tool_calls"`
			} `json:"delta"`
		} `json:"choices"`
	} `json:"output"`
	Usage *qwenUsage `json:"usage"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

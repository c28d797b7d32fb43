package message

import "encoding/json"

// ToolDefinition describes a tool's JSON-Schema surface as seen by a
// provider request. It is duplicated here (rather than imported from
// pkg/tool) to keep the message package free of a dependency on tool
// execution concerns.
type ToolDefinition struct {
	Name        string
	Description string
	Schema      map[string]any
}

// --- Anthropic wire shape --------------------------------------------------

// AnthropicBlock is one element of an Anthropic content array.
type AnthropicBlock struct {
	Type       string          `json:"type"`
	Text       string          `json:"text,omitempty"`
	ID         string          `json:"id,omitempty"`
	Name       string          `json:"name,omitempty"`
	Input      json.RawMessage `json:"input,omitempty"`
	ToolUseID  string          `json:"tool_use_id,omitempty"`
	Content    string          `json:"content,omitempty"`
	IsError    bool            `json:"is_error,omitempty"`
	Source     *AnthropicImageSource `json:"source,omitempty"`
}

// AnthropicImageSource is the base64 image envelope Anthropic expects.
type AnthropicImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

// AnthropicMessage is one element of the Anthropic `messages` array. Content
// is either a bare string (single text part) or an array of AnthropicBlock.
type AnthropicMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// AnthropicTool is the Anthropic tool declaration shape.
type AnthropicTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema"`
}

// AnthropicRequest is the full request body for POST /v1/messages.
type AnthropicRequest struct {
	Model         string             `json:"model"`
	MaxTokens     int                `json:"max_tokens"`
	System        string             `json:"system,omitempty"`
	Temperature   *float64           `json:"temperature,omitempty"`
	StopSequences []string           `json:"stop_sequences,omitempty"`
	Messages      []AnthropicMessage `json:"messages"`
	Tools         []AnthropicTool    `json:"tools,omitempty"`
	Stream        bool               `json:"stream"`
}

// ToAnthropicRequest projects a session's messages (System excluded — it is
// carried as the top-level System field) into the Anthropic wire shape.
func ToAnthropicRequest(model string, maxTokens int, system string, temperature *float64, stopSeqs []string, msgs []*Message, tools []ToolDefinition) AnthropicRequest {
	req := AnthropicRequest{
		Model:         model,
		MaxTokens:     maxTokens,
		System:        system,
		Temperature:   temperature,
		StopSequences: stopSeqs,
		Stream:        true,
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = 8192
	}

	for _, m := range msgs {
		if m.Role == RoleSystem {
			continue
		}
		req.Messages = append(req.Messages, toAnthropicMessage(m))
	}

	for _, t := range tools {
		schema := t.Schema
		if schema == nil {
			schema = map[string]any{"type": "object"}
		}
		req.Tools = append(req.Tools, AnthropicTool{Name: t.Name, Description: t.Description, InputSchema: schema})
	}

	return req
}

func toAnthropicMessage(m *Message) AnthropicMessage {
	role := "user"
	if m.Role == RoleAssistant {
		role = "assistant"
	}

	var blocks []AnthropicBlock
	var soleText string
	textCount := 0

	for _, p := range m.Parts {
		switch v := p.(type) {
		case *TextPart:
			blocks = append(blocks, AnthropicBlock{Type: "text", Text: v.Text})
			soleText = v.Text
			textCount++
		case *ToolCallPart:
			input, _ := json.Marshal(v.Arguments)
			blocks = append(blocks, AnthropicBlock{Type: "tool_use", ID: v.ID, Name: v.Name, Input: input})
		case *ToolResultPart:
			blocks = append(blocks, AnthropicBlock{Type: "tool_result", ToolUseID: v.CallID, Content: v.Output, IsError: v.IsError})
		case *ImagePart:
			src := &AnthropicImageSource{Type: "base64", MediaType: v.MediaType, Data: v.URI}
			blocks = append(blocks, AnthropicBlock{Type: "image", Source: src})
		}
	}

	if textCount == 1 && len(blocks) == 1 {
		return AnthropicMessage{Role: role, Content: soleText}
	}
	if len(blocks) == 0 {
		return AnthropicMessage{Role: role, Content: "."}
	}
	return AnthropicMessage{Role: role, Content: blocks}
}

// --- OpenAI-compatible wire shape -------------------------------------------

// OpenAIToolCall is a single entry of an assistant message's tool_calls array.
type OpenAIToolCall struct {
	ID       string             `json:"id"`
	Type     string             `json:"type"`
	Function OpenAIToolCallFunc `json:"function"`
}

// OpenAIToolCallFunc holds the function-call payload of an OpenAIToolCall.
type OpenAIToolCallFunc struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// OpenAIMessage is one element of the OpenAI-compatible `messages` array.
type OpenAIMessage struct {
	Role       string           `json:"role"`
	Content    any              `json:"content"`
	Name       string           `json:"name,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
	ToolCalls  []OpenAIToolCall `json:"tool_calls,omitempty"`
}

// OpenAIFunctionTool is the OpenAI function-tool declaration shape.
type OpenAIFunctionTool struct {
	Type     string                 `json:"type"`
	Function OpenAIFunctionDef      `json:"function"`
}

// OpenAIFunctionDef describes a callable function tool.
type OpenAIFunctionDef struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// OpenAIRequest is the full request body for POST /v1/chat/completions.
type OpenAIRequest struct {
	Model       string              `json:"model"`
	Messages    []OpenAIMessage     `json:"messages"`
	Tools       []OpenAIFunctionTool `json:"tools,omitempty"`
	Temperature *float64            `json:"temperature,omitempty"`
	Stop        []string            `json:"stop,omitempty"`
	Stream      bool                `json:"stream"`
	StreamOpts  *openAIStreamOptions `json:"stream_options,omitempty"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
}

type openAIStreamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

// ToOpenAIRequest projects messages (with a prepended system message when
// non-empty) into the OpenAI-compatible wire shape.
func ToOpenAIRequest(model string, system string, temperature *float64, stopSeqs []string, maxTokens int, msgs []*Message, tools []ToolDefinition) OpenAIRequest {
	req := OpenAIRequest{
		Model:       model,
		Temperature: temperature,
		Stop:        stopSeqs,
		Stream:      true,
		StreamOpts:  &openAIStreamOptions{IncludeUsage: true},
		MaxTokens:   maxTokens,
	}

	if system != "" {
		req.Messages = append(req.Messages, OpenAIMessage{Role: "system", Content: system})
	}

	for _, m := range msgs {
		if m.Role == RoleSystem {
			continue
		}
		req.Messages = append(req.Messages, toOpenAIMessages(m)...)
	}

	for _, t := range tools {
		params := t.Schema
		if params == nil {
			params = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		req.Tools = append(req.Tools, OpenAIFunctionTool{
			Type: "function",
			Function: OpenAIFunctionDef{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  params,
			},
		})
	}

	return req
}

// toOpenAIMessages may expand a single Message into several OpenAI messages,
// since each tool-result part becomes its own top-level `role:"tool"` entry.
func toOpenAIMessages(m *Message) []OpenAIMessage {
	var text string
	var toolCalls []OpenAIToolCall
	var toolResults []OpenAIMessage

	for _, p := range m.Parts {
		switch v := p.(type) {
		case *TextPart:
			if text != "" {
				text += "\n"
			}
			text += v.Text
		case *ToolCallPart:
			args, _ := json.Marshal(v.Arguments)
			toolCalls = append(toolCalls, OpenAIToolCall{
				ID:   v.ID,
				Type: "function",
				Function: OpenAIToolCallFunc{
					Name:      v.Name,
					Arguments: string(args),
				},
			})
		case *ToolResultPart:
			toolResults = append(toolResults, OpenAIMessage{
				Role:       "tool",
				Content:    v.Output,
				ToolCallID: v.CallID,
			})
		}
	}

	role := "user"
	if m.Role == RoleAssistant {
		role = "assistant"
	}

	var out []OpenAIMessage
	if len(toolCalls) > 0 {
		out = append(out, OpenAIMessage{Role: role, Content: nil, ToolCalls: toolCalls})
	} else if text != "" || len(toolResults) == 0 {
		out = append(out, OpenAIMessage{Role: role, Content: text})
	}
	out = append(out, toolResults...)
	return out
}

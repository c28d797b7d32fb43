// Package message implements the typed conversation turn model: messages,
// their parts, the storage JSON codec, and conversion to the Anthropic and
// OpenAI-compatible wire shapes.
package message

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role identifies who produced a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// FinishReason is the reason a provider stopped generating.
type FinishReason string

const (
	FinishNone      FinishReason = ""
	FinishStop      FinishReason = "stop"
	FinishToolCalls FinishReason = "tool_calls"
	FinishLength    FinishReason = "length"
	FinishError     FinishReason = "error"
	FinishCancelled FinishReason = "cancelled"
)

// Usage tallies token accounting for a single message or a whole session.
type Usage struct {
	InputTokens      int `json:"input_tokens"`
	OutputTokens     int `json:"output_tokens"`
	CacheReadTokens  int `json:"cache_read_tokens"`
	CacheWriteTokens int `json:"cache_write_tokens"`
}

// Add accumulates u2 into u and returns u for chaining.
func (u *Usage) Add(u2 Usage) *Usage {
	u.InputTokens += u2.InputTokens
	u.OutputTokens += u2.OutputTokens
	u.CacheReadTokens += u2.CacheReadTokens
	u.CacheWriteTokens += u2.CacheWriteTokens
	return u
}

// Message is a single conversational turn.
type Message struct {
	ID          string
	SessionID   string
	Role        Role
	Parts       []Part
	ParentID    string
	Finished    bool
	FinishReas  FinishReason
	Usage       Usage
	IsSummary   bool
	IsSynthetic bool
	CreatedAt   time.Time
}

// New creates an empty message for the given session and role.
func New(sessionID string, role Role) *Message {
	return &Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      role,
		CreatedAt: time.Now(),
	}
}

// NewText creates a message with a single text part already attached.
func NewText(sessionID string, role Role, text string) *Message {
	m := New(sessionID, role)
	m.AddText(text)
	return m
}

// AddText appends a text part.
func (m *Message) AddText(text string) *TextPart {
	p := &TextPart{Text: text}
	m.Parts = append(m.Parts, p)
	return p
}

// AddToolCall appends a tool-call part and returns it for further mutation
// (Started/Completed toggles happen in place through the returned pointer).
func (m *Message) AddToolCall(id, name string, args map[string]any) *ToolCallPart {
	p := &ToolCallPart{ID: id, Name: name, Arguments: args}
	m.Parts = append(m.Parts, p)
	return p
}

// AddToolResult appends a tool-result part answering callID.
func (m *Message) AddToolResult(callID, toolName, output string, isError bool) *ToolResultPart {
	p := &ToolResultPart{CallID: callID, ToolName: toolName, Output: output, IsError: isError}
	m.Parts = append(m.Parts, p)
	return p
}

// Text concatenates every text part's content with newlines, per §4.1.
func (m *Message) Text() string {
	var b strings.Builder
	first := true
	for _, p := range m.Parts {
		if tp, ok := p.(*TextPart); ok {
			if !first {
				b.WriteByte('\n')
			}
			b.WriteString(tp.Text)
			first = false
		}
	}
	return b.String()
}

// ToolCalls returns every tool-call part. The slice is new, but its elements
// are the message's own parts, so mutations through them are visible on m.
func (m *Message) ToolCalls() []*ToolCallPart {
	var out []*ToolCallPart
	for _, p := range m.Parts {
		if tc, ok := p.(*ToolCallPart); ok {
			out = append(out, tc)
		}
	}
	return out
}

// ToolResults returns every tool-result part. As with ToolCalls, the
// elements are the message's own parts, not copies.
func (m *Message) ToolResults() []*ToolResultPart {
	var out []*ToolResultPart
	for _, p := range m.Parts {
		if tr, ok := p.(*ToolResultPart); ok {
			out = append(out, tr)
		}
	}
	return out
}

// UncompletedToolCalls returns tool-call parts whose Completed flag is false.
func (m *Message) UncompletedToolCalls() []*ToolCallPart {
	var out []*ToolCallPart
	for _, p := range m.Parts {
		if tc, ok := p.(*ToolCallPart); ok && !tc.Completed {
			out = append(out, tc)
		}
	}
	return out
}

// HasToolResults reports whether m (normally a User message) carries at
// least one tool-result part — the mechanical reply to a prior assistant
// tool-call turn, per invariant (iii).
func (m *Message) HasToolResults() bool {
	for _, p := range m.Parts {
		if _, ok := p.(*ToolResultPart); ok {
			return true
		}
	}
	return false
}

// SetFinished marks the message finished with the given reason.
func (m *Message) SetFinished(reason FinishReason) {
	m.Finished = true
	m.FinishReas = reason
}

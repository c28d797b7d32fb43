package message

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAnthropicRequestExcludesSystemMessages(t *testing.T) {
	msgs := []*Message{
		NewText("s", RoleSystem, "system stuff"),
		NewText("s", RoleUser, "hi"),
	}
	req := ToAnthropicRequest("claude-x", 0, "top-level system", nil, nil, msgs, nil)
	require.Equal(t, "top-level system", req.System)
	require.Equal(t, 8192, req.MaxTokens)
	require.Len(t, req.Messages, 1)
	require.Equal(t, "user", req.Messages[0].Role)
	require.Equal(t, "hi", req.Messages[0].Content)
}

func TestAnthropicMultiPartUsesBlockArray(t *testing.T) {
	m := New("s", RoleAssistant)
	m.AddText("thinking")
	m.AddToolCall("t1", "echo", map[string]any{"text": "hi"})
	req := ToAnthropicRequest("claude-x", 100, "", nil, nil, []*Message{m}, nil)
	blocks, ok := req.Messages[0].Content.([]AnthropicBlock)
	require.True(t, ok)
	require.Len(t, blocks, 2)
	require.Equal(t, "text", blocks[0].Type)
	require.Equal(t, "tool_use", blocks[1].Type)
	require.Equal(t, "t1", blocks[1].ID)
}

func TestOpenAIRequestPrependsSystem(t *testing.T) {
	msgs := []*Message{NewText("s", RoleUser, "hi")}
	req := ToOpenAIRequest("gpt-x", "be nice", nil, nil, 0, msgs, nil)
	require.Len(t, req.Messages, 2)
	require.Equal(t, "system", req.Messages[0].Role)
	require.Equal(t, "be nice", req.Messages[0].Content)
}

func TestOpenAIToolCallMessageHasNilContent(t *testing.T) {
	m := New("s", RoleAssistant)
	m.AddToolCall("t1", "echo", map[string]any{"text": "hi"})
	req := ToOpenAIRequest("gpt-x", "", nil, nil, 0, []*Message{m}, nil)
	require.Len(t, req.Messages, 1)
	require.Nil(t, req.Messages[0].Content)
	require.Len(t, req.Messages[0].ToolCalls, 1)
	require.Equal(t, "function", req.Messages[0].ToolCalls[0].Type)
}

func TestOpenAIToolResultBecomesSeparateMessage(t *testing.T) {
	m := New("s", RoleUser)
	m.AddToolResult("t1", "echo", "hi", false)
	req := ToOpenAIRequest("gpt-x", "", nil, nil, 0, []*Message{m}, nil)
	require.Len(t, req.Messages, 1)
	require.Equal(t, "tool", req.Messages[0].Role)
	require.Equal(t, "t1", req.Messages[0].ToolCallID)
	require.Equal(t, "hi", req.Messages[0].Content)
}

func TestOpenAIToolDefinition(t *testing.T) {
	tools := []ToolDefinition{{Name: "echo", Description: "echoes", Schema: map[string]any{"type": "object"}}}
	req := ToOpenAIRequest("gpt-x", "", nil, nil, 0, nil, tools)
	require.Len(t, req.Tools, 1)
	require.Equal(t, "function", req.Tools[0].Type)
	require.Equal(t, "echo", req.Tools[0].Function.Name)
}

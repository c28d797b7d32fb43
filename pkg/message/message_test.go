package message

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTextConcatenation(t *testing.T) {
	m := New("s", RoleAssistant)
	m.AddText("line one")
	m.AddToolCall("c1", "echo", nil)
	m.AddText("line two")
	require.Equal(t, "line one\nline two", m.Text())
}

func TestToolCallsAndResults(t *testing.T) {
	m := New("s", RoleAssistant)
	m.AddToolCall("c1", "echo", map[string]any{"x": 1})
	m.AddToolCall("c2", "read", map[string]any{"path": "/x"})
	require.Len(t, m.ToolCalls(), 2)
	require.Len(t, m.UncompletedToolCalls(), 2)

	m.ToolCalls()[0].Completed = true
	require.Len(t, m.UncompletedToolCalls(), 1)
	require.Equal(t, "c2", m.UncompletedToolCalls()[0].ID)
}

func TestHasToolResults(t *testing.T) {
	m := New("s", RoleUser)
	require.False(t, m.HasToolResults())
	m.AddToolResult("c1", "echo", "hi", false)
	require.True(t, m.HasToolResults())
}

func TestSetFinished(t *testing.T) {
	m := New("s", RoleAssistant)
	require.False(t, m.Finished)
	m.SetFinished(FinishStop)
	require.True(t, m.Finished)
	require.Equal(t, FinishStop, m.FinishReas)
}

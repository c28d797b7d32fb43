package message

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	m := New("sess-1", RoleAssistant)
	m.ParentID = "parent-1"
	m.AddText("hello")
	tc := m.AddToolCall("call-1", "echo", map[string]any{"text": "hi"})
	tc.Started = true
	tc.Completed = true
	tr := m.AddToolResult("call-1", "echo", "hi", false)
	tr.Title = "Echo"
	tr.Metadata = map[string]any{"k": "v"}
	tr.Compacted = true
	tr.CompactedAt = time.Unix(1700000000, 0).UTC()
	m.SetFinished(FinishToolCalls)
	m.Usage = Usage{InputTokens: 10, OutputTokens: 5, CacheReadTokens: 1, CacheWriteTokens: 2}
	m.IsSummary = true
	m.IsSynthetic = true
	m.CreatedAt = time.Unix(1700000001, 0).UTC()

	data, err := m.ToJSON()
	require.NoError(t, err)

	got, err := FromJSON(data)
	require.NoError(t, err)

	require.Equal(t, m.ID, got.ID)
	require.Equal(t, m.SessionID, got.SessionID)
	require.Equal(t, m.Role, got.Role)
	require.Equal(t, m.ParentID, got.ParentID)
	require.Equal(t, m.Finished, got.Finished)
	require.Equal(t, m.FinishReas, got.FinishReas)
	require.Equal(t, m.Usage, got.Usage)
	require.Equal(t, m.IsSummary, got.IsSummary)
	require.Equal(t, m.IsSynthetic, got.IsSynthetic)
	require.Equal(t, m.CreatedAt, got.CreatedAt)
	require.Len(t, got.Parts, 3)

	gotText := got.Parts[0].(*TextPart)
	require.Equal(t, "hello", gotText.Text)

	gotCall := got.Parts[1].(*ToolCallPart)
	require.Equal(t, tc.ID, gotCall.ID)
	require.Equal(t, tc.Name, gotCall.Name)
	require.Equal(t, tc.Arguments, gotCall.Arguments)
	require.Equal(t, tc.Started, gotCall.Started)
	require.Equal(t, tc.Completed, gotCall.Completed)

	gotResult := got.Parts[2].(*ToolResultPart)
	require.Equal(t, tr.CallID, gotResult.CallID)
	require.Equal(t, tr.ToolName, gotResult.ToolName)
	require.Equal(t, tr.Output, gotResult.Output)
	require.Equal(t, tr.IsError, gotResult.IsError)
	require.Equal(t, tr.Title, gotResult.Title)
	require.Equal(t, tr.Metadata, gotResult.Metadata)
	require.Equal(t, tr.Compacted, gotResult.Compacted)
	require.Equal(t, tr.CompactedAt, gotResult.CompactedAt)
}

func TestRoundTripAllPartTypes(t *testing.T) {
	m := New("sess-2", RoleUser)
	m.Parts = append(m.Parts,
		&ImagePart{URI: "data:image/png;base64,abc", MediaType: "image/png"},
		&FilePart{Path: "/tmp/x", Content: "hi", Truncated: true},
		&CompactionPart{ParentID: "m-0", Complete: true},
		&SubtaskPart{TaskID: "t1", Prompt: "do it", AgentType: "build", Complete: true, Result: "done"},
	)

	data, err := m.ToJSON()
	require.NoError(t, err)
	got, err := FromJSON(data)
	require.NoError(t, err)
	require.Len(t, got.Parts, 4)
	require.Equal(t, m.Parts[0], got.Parts[0])
	require.Equal(t, m.Parts[1], got.Parts[1])
	require.Equal(t, m.Parts[2], got.Parts[2])
	require.Equal(t, m.Parts[3], got.Parts[3])
}

package openai

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cexll/agentsdk-core/pkg/message"
	"github.com/cexll/agentsdk-core/pkg/provider"
	"github.com/stretchr/testify/require"
)

func TestCompleteStripsThinkTagsAndParsesToolCalls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"choices": [{
				"message": {
					"content": "<think>pondering</think>the answer is 4",
					"tool_calls": [{"id":"call_1","function":{"name":"calc","arguments":"{\"x\":2}"}}]
				},
				"finish_reason": "tool_calls"
			}],
			"usage": {"prompt_tokens": 8, "completion_tokens": 4, "total_tokens": 12}
		}`)
	}))
	defer srv.Close()

	a := New(provider.Config{APIKey: "test-key", BaseURL: srv.URL})
	resp, err := a.Complete(context.Background(), provider.Request{
		Model:    "gpt-4o",
		Messages: []*message.Message{message.NewText("s1", message.RoleUser, "2+2?")},
	})
	require.NoError(t, err)
	require.Equal(t, "the answer is 4", resp.Message.Text())
	require.Equal(t, message.FinishToolCalls, resp.FinishReason)
	require.Len(t, resp.Message.ToolCalls(), 1)
	require.EqualValues(t, 2, resp.Message.ToolCalls()[0].Arguments["x"])
}

func TestStreamAccumulatesToolCallDeltasByIndex(t *testing.T) {
	lines := []string{
		`data: {"choices":[{"delta":{"content":"hi "}}]}`,
		`data: {"choices":[{"delta":{"tool_calls":[{"index":0,"id":"call_1","function":{"name":"bash","arguments":""}}]}}]}`,
		`data: {"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"arguments":"{\"cmd\":"}}]}}]}`,
		`data: {"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"arguments":"\"ls\"}"}}]}}]}`,
		`data: {"choices":[{"delta":{},"finish_reason":"tool_calls"}],"usage":{"prompt_tokens":1,"completion_tokens":2,"total_tokens":3}}`,
		`data: [DONE]`,
	}
	body := ""
	for _, l := range lines {
		body += l + "\n\n"
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, body)
	}))
	defer srv.Close()

	a := New(provider.Config{APIKey: "k", BaseURL: srv.URL})
	var text string
	var toolCall *provider.StreamEvent
	done := make(chan struct{})

	a.Stream(context.Background(), provider.Request{Model: "gpt-4o"},
		func(evt provider.StreamEvent) {
			switch evt.Kind {
			case provider.EventTextDelta:
				text += evt.Text
			case provider.EventToolCallComplete:
				e := evt
				toolCall = &e
			}
		},
		func(err error) {
			require.NoError(t, err)
			close(done)
		},
	)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not complete")
	}

	require.Equal(t, "hi ", text)
	require.NotNil(t, toolCall)
	require.Equal(t, "call_1", toolCall.ToolCallID)
	require.Equal(t, "bash", toolCall.ToolCallName)
	require.Equal(t, "ls", toolCall.ToolCallArguments["cmd"])
}

func TestStripThinkTagsHandlesMultipleSpans(t *testing.T) {
	out := stripThinkTags("<think>a</think>keep<think>b</think> this")
	require.Equal(t, "keep this", out)
}

func TestSplitThinkFragmentsAcrossDeltas(t *testing.T) {
	inThink := false
	frags := splitThinkFragments("before <think>reasoning", &inThink)
	require.True(t, inThink)
	require.Len(t, frags, 2)
	require.False(t, frags[0].thinking)
	require.True(t, frags[1].thinking)

	frags2 := splitThinkFragments(" more</think> after", &inThink)
	require.False(t, inThink)
	require.True(t, frags2[0].thinking)
	require.False(t, frags2[1].thinking)
}

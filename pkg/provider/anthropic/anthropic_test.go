package anthropic

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

func TestCompleteParsesTextAndToolUse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/messages", r.URL.Path)
		require.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "msg_1",
			"stop_reason": "tool_use",
			"content": [
				{"type":"text","text":"looking it up"},
				{"type":"tool_use","id":"call_1","name":"get_weather","input":{"city":"nyc"}}
			],
			"usage": {"input_tokens": 10, "output_tokens": 5}
		}`)
	}))
	defer srv.Close()

	a := New(provider.Config{APIKey: "test-key", BaseURL: srv.URL})
	resp, err := a.Complete(context.Background(), provider.Request{
		Model:    "claude-sonnet-4-6",
		Messages: []*message.Message{message.NewText("s1", message.RoleUser, "weather in nyc?")},
	})
	require.NoError(t, err)
	require.Equal(t, message.FinishToolCalls, resp.FinishReason)
	require.Equal(t, "looking it up", resp.Message.Text())
	tcs := resp.Message.ToolCalls()
	require.Len(t, tcs, 1)
	require.Equal(t, "get_weather", tcs[0].Name)
	require.Equal(t, "nyc", tcs[0].Arguments["city"])
	require.Equal(t, 10, resp.Usage.InputTokens)
}

func TestStreamDecodesTextAndToolCallEvents(t *testing.T) {
	body := "" +
		"event: content_block_start\ndata: {\"type\":\"content_block_start\",\"index\":0,\"content_block\":{\"type\":\"text\"}}\n\n" +
		"event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"index\":0,\"delta\":{\"type\":\"text_delta\",\"text\":\"hi\"}}\n\n" +
		"event: content_block_stop\ndata: {\"type\":\"content_block_stop\",\"index\":0}\n\n" +
		"event: content_block_start\ndata: {\"type\":\"content_block_start\",\"index\":1,\"content_block\":{\"type\":\"tool_use\",\"id\":\"call_1\",\"name\":\"bash\"}}\n\n" +
		"event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"index\":1,\"delta\":{\"type\":\"input_json_delta\",\"partial_json\":\"{\\\"cmd\\\":\\\"ls\\\"}\"}}\n\n" +
		"event: content_block_stop\ndata: {\"type\":\"content_block_stop\",\"index\":1}\n\n" +
		"event: message_delta\ndata: {\"type\":\"message_delta\",\"delta\":{\"stop_reason\":\"tool_use\"},\"usage\":{\"output_tokens\":3}}\n\n"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, body)
	}))
	defer srv.Close()

	a := New(provider.Config{APIKey: "k", BaseURL: srv.URL})
	var textDeltas []string
	var toolCalls []provider.StreamEvent
	var finished bool
	done := make(chan struct{})

	a.Stream(context.Background(), provider.Request{Model: "claude-sonnet-4-6"},
		func(evt provider.StreamEvent) {
			switch evt.Kind {
			case provider.EventTextDelta:
				textDeltas = append(textDeltas, evt.Text)
			case provider.EventToolCallComplete:
				toolCalls = append(toolCalls, evt)
			case provider.EventFinishStep:
				finished = true
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

	require.Equal(t, []string{"hi"}, textDeltas)
	require.Len(t, toolCalls, 1)
	require.Equal(t, "call_1", toolCalls[0].ToolCallID)
	require.Equal(t, "bash", toolCalls[0].ToolCallName)
	require.Equal(t, "ls", toolCalls[0].ToolCallArguments["cmd"])
	require.True(t, finished)
}

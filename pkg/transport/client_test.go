package transport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDoSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/hello", r.URL.Path)
		w.Header().Set("X-Test", "yes")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("world"))
	}))
	defer srv.Close()

	c := &Client{}
	resp := c.Do(context.Background(), Request{Method: "GET", URL: srv.URL + "/hello", Timeout: 5 * time.Second})
	require.NoError(t, resp.Err)
	require.Equal(t, 200, resp.StatusCode)
	require.Equal(t, "world", string(resp.Body))
	require.Equal(t, "yes", resp.Headers["x-test"])
}

func TestDoConnectFailureClassified(t *testing.T) {
	c := &Client{}
	resp := c.Do(context.Background(), Request{Method: "GET", URL: "http://127.0.0.1:1", Timeout: 2 * time.Second})
	require.Error(t, resp.Err)
	var terr *Error
	require.ErrorAs(t, resp.Err, &terr)
	require.Equal(t, FailureConnect, terr.Kind)
}

func TestDoWithRetryRetriesOn5xx(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := &Client{}
	resp := c.DoWithRetry(context.Background(), Request{
		Method: "GET", URL: srv.URL, Timeout: 5 * time.Second,
		RetryCount: 3, RetryDelay: 10 * time.Millisecond,
	})
	require.NoError(t, resp.Err)
	require.Equal(t, 200, resp.StatusCode)
	require.Equal(t, 3, calls)
}

func TestStreamDeliversChunksAndCompletes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher, _ := w.(http.Flusher)
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "data: chunk1\n\n")
		if flusher != nil {
			flusher.Flush()
		}
		_, _ = io.WriteString(w, "data: chunk2\n\n")
		if flusher != nil {
			flusher.Flush()
		}
	}))
	defer srv.Close()

	c := &Client{}
	var gotBytes []byte
	var status int
	var completeErr error
	done := make(chan struct{})

	c.Stream(context.Background(), Request{Method: "GET", URL: srv.URL, Timeout: 5 * time.Second},
		func(chunk []byte) { gotBytes = append(gotBytes, chunk...) },
		func(code int, err error) { status = code; completeErr = err; close(done) },
	)
	<-done

	require.NoError(t, completeErr)
	require.Equal(t, 200, status)
	require.Contains(t, string(gotBytes), "chunk1")
	require.Contains(t, string(gotBytes), "chunk2")
}

func TestParseURLDefaults(t *testing.T) {
	p, err := ParseURL("https://example.com/v1/messages?x=1")
	require.NoError(t, err)
	require.Equal(t, "example.com", p.Host)
	require.Equal(t, "443", p.Port)
	require.Equal(t, "/v1/messages", p.Path)
	require.Equal(t, "x=1", p.Query)
	require.True(t, p.IsHTTPS())

	p2, err := ParseURL("http://example.com")
	require.NoError(t, err)
	require.Equal(t, "80", p2.Port)
	require.Equal(t, "/", p2.Path)
}

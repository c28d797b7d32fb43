package openai

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cexll/agentsdk-core/pkg/provider"
	"github.com/stretchr/testify/require"
)

func TestOllamaModelsFetchesOnceAndCaches(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		require.Equal(t, "/api/tags", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"models":[{"name":"llama3"},{"name":"mistral"}]}`))
	}))
	defer srv.Close()

	a := NewOllama(provider.Config{BaseURL: srv.URL + "/v1"})

	first := a.Models()
	second := a.Models()

	require.Equal(t, 1, calls)
	require.Len(t, first, 2)
	require.Equal(t, first, second)
	require.Equal(t, "ollama", a.Name())
}

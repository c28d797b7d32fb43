package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cexll/agentsdk-core/pkg/provider"
	"github.com/cexll/agentsdk-core/pkg/transport"
)

const defaultOllamaBaseURL = "http://localhost:11434/v1"

// OllamaAdapter is an OpenAI-compatible adapter for Ollama's local server.
// It only overrides model discovery, fetching from Ollama's native
// `/api/tags` endpoint instead of returning a static list, and caches the
// result for the adapter's lifetime — grounded on
// original_source/src/llm/ollama.cpp's OllamaProvider::models, which caches
// once into cached_models_ rather than re-fetching on every call.
type OllamaAdapter struct {
	*Adapter

	once         sync.Once
	cachedModels []provider.ModelInfo
}

// NewOllama constructs an Ollama adapter. cfg.BaseURL defaults to Ollama's
// local OpenAI-compatible endpoint when unset.
func NewOllama(cfg provider.Config) *OllamaAdapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultOllamaBaseURL
	}
	return &OllamaAdapter{Adapter: New(cfg)}
}

func (o *OllamaAdapter) Name() string { return "ollama" }

func (o *OllamaAdapter) Models() []provider.ModelInfo {
	o.once.Do(func() {
		models, err := o.fetchModels()
		if err != nil {
			o.cachedModels = nil
			return
		}
		o.cachedModels = models
	})
	return o.cachedModels
}

func (o *OllamaAdapter) fetchModels() ([]provider.ModelInfo, error) {
	tagsURL := strings.TrimSuffix(o.baseURL(), "/v1") + "/api/tags"
	resp := o.client.DoWithRetry(context.Background(), transport.Request{
		Method:  "GET",
		URL:     tagsURL,
		Headers: map[string]string{"content-type": "application/json"},
		Timeout: 10 * time.Second,
	})
	if resp.Err != nil {
		return nil, fmt.Errorf("ollama: fetch tags: %w", resp.Err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("ollama: tags status %d", resp.StatusCode)
	}

	var tags struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.Unmarshal(resp.Body, &tags); err != nil {
		return nil, fmt.Errorf("ollama: decode tags: %w", err)
	}

	out := make([]provider.ModelInfo, 0, len(tags.Models))
	for _, m := range tags.Models {
		out = append(out, provider.ModelInfo{
			ID:              m.Name,
			Provider:        "ollama",
			ContextWindow:   8192,
			MaxOutputTokens: 4096,
			SupportsTools:   true,
		})
	}
	return out, nil
}

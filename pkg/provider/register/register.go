// Package register wires every built-in vendor adapter into
// pkg/provider's factory, via blank-importable side effects. Importing
// this package (e.g. from cmd/agentsdk-core) is enough to make
// provider.New("anthropic"|"openai"|"qwen"|"ollama", cfg) work.
package register

import (
	"github.com/cexll/agentsdk-core/pkg/provider"
	"github.com/cexll/agentsdk-core/pkg/provider/anthropic"
	"github.com/cexll/agentsdk-core/pkg/provider/openai"
	"github.com/cexll/agentsdk-core/pkg/provider/qwen"
)

func init() {
	provider.RegisterBuilder("anthropic", func(cfg provider.Config) provider.Provider {
		return anthropic.New(cfg)
	})
	provider.RegisterBuilder("openai", func(cfg provider.Config) provider.Provider {
		return openai.New(cfg)
	})
	provider.RegisterBuilder("qwen", func(cfg provider.Config) provider.Provider {
		return qwen.New(cfg)
	})
	provider.RegisterBuilder("ollama", func(cfg provider.Config) provider.Provider {
		return openai.NewOllama(cfg)
	})
}

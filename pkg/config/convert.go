package config

import (
	"fmt"

	"github.com/cexll/agentsdk-core/pkg/provider"
	"github.com/cexll/agentsdk-core/pkg/session"
	"github.com/cexll/agentsdk-core/pkg/tool"
)

// ToProviderConfig converts one Config.Providers entry into the shape
// pkg/provider.New expects.
func (p ProviderConfig) ToProviderConfig(name string) provider.Config {
	return provider.Config{
		Name:         name,
		APIKey:       p.APIKey,
		BaseURL:      p.BaseURL,
		Organization: p.Organization,
		Headers:      p.Headers,
	}
}

// policyDefaults mirrors pkg/session/agenttype.go's five named
// constructors, keyed by the on-disk Policy string.
var policyDefaults = map[string]func(model string, contextWindow int) session.AgentConfig{
	"build":      session.NewBuildAgentConfig,
	"explore":    session.NewExploreAgentConfig,
	"general":    session.NewGeneralAgentConfig,
	"plan":       session.NewPlanAgentConfig,
	"compaction": session.NewCompactionAgentConfig,
}

// ToAgentConfig resolves one Config.Agents entry into a
// pkg/session.AgentConfig, starting from the named policy's defaults
// (agenttype.go) and then layering the on-disk overrides on top —
// Model/SystemPrompt/ContextWindow default from the policy, everything
// else is additive.
func (a AgentConfig) ToAgentConfig(defaultModel string) (session.AgentConfig, error) {
	build, ok := policyDefaults[a.Policy]
	if !ok {
		return session.AgentConfig{}, fmt.Errorf("config: unknown agent policy %q", a.Policy)
	}

	model := a.Model
	if model == "" {
		model = defaultModel
	}
	cfg := build(model, a.ContextWindow)

	if a.SystemPrompt != "" {
		cfg.SystemPrompt = a.SystemPrompt
	}
	if a.Temperature != nil {
		cfg.Temperature = a.Temperature
	}
	if len(a.StopSequences) > 0 {
		cfg.StopSequences = a.StopSequences
	}
	if a.MaxTokens > 0 {
		cfg.MaxTokens = a.MaxTokens
	}

	if len(a.ToolAllow) > 0 || len(a.ToolAsk) > 0 || len(a.ToolDeny) > 0 {
		perm := &tool.PermissionConfig{}
		if cfg.ToolPermissions != nil {
			*perm = *cfg.ToolPermissions
		}
		perm.Allow = append(perm.Allow, a.ToolAllow...)
		perm.Ask = append(perm.Ask, a.ToolAsk...)
		perm.Deny = append(perm.Deny, a.ToolDeny...)
		cfg.ToolPermissions = perm
	}

	if len(a.AllowedTools) > 0 {
		cfg.AllowedTools = append(append([]string{}, cfg.AllowedTools...), a.AllowedTools...)
	}
	if len(a.DeniedTools) > 0 {
		cfg.DeniedTools = append(append([]string{}, cfg.DeniedTools...), a.DeniedTools...)
	}

	return cfg, nil
}

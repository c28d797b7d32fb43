// Package config loads the application configuration described in spec
// §6 ("Application configuration") from YAML, with environment-variable
// overrides for secrets, mirroring the teacher's internal/config.Config /
// LoadConfig — but sourced from gopkg.in/yaml.v3 instead of
// encoding/json, per the expanded spec's Configuration ambient-stack note.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Defaults mirrors spec §6's literal default values.
const (
	DefaultModel             = "claude-sonnet-4-20250514"
	DefaultPruneProtectTokens = 40000
	DefaultPruneMinimumTokens = 20000
	DefaultTruncateMaxLines   = 2000
	DefaultTruncateMaxBytes   = 51200
	DefaultLogLevel           = "info"
)

// Config is the root application configuration, spec §6:
// "{providers: map<name, ProviderConfig>, default_model, agents: map<id,
// AgentConfig>, mcp_servers: list, working_dir, instructions: list,
// skill_paths: list, context: {...}, log_level, log_file?}".
type Config struct {
	Providers    map[string]ProviderConfig `yaml:"providers"`
	DefaultModel string                    `yaml:"default_model"`
	Agents       map[string]AgentConfig    `yaml:"agents"`
	MCPServers   []string                  `yaml:"mcp_servers"`
	WorkingDir   string                    `yaml:"working_dir"`
	Instructions []string                  `yaml:"instructions"`
	SkillPaths   []string                  `yaml:"skill_paths"`
	Context      ContextConfig             `yaml:"context"`
	LogLevel     string                    `yaml:"log_level"`
	LogFile      string                    `yaml:"log_file,omitempty"`
}

// ProviderConfig is one entry of Config.Providers, matching
// pkg/provider.Config's fields so it loads straight through.
type ProviderConfig struct {
	APIKey       string            `yaml:"api_key"`
	BaseURL      string            `yaml:"base_url,omitempty"`
	Organization string            `yaml:"organization,omitempty"`
	Headers      map[string]string `yaml:"headers,omitempty"`
}

// AgentConfig is one entry of Config.Agents — the on-disk shape of
// pkg/session.AgentConfig, minus the Type/ToolPermissions fields that are
// derived from Policy/ToolDeny/ToolAllow/ToolAsk below.
type AgentConfig struct {
	Policy        string   `yaml:"policy"` // build|explore|general|plan|compaction
	Model         string   `yaml:"model,omitempty"`
	SystemPrompt  string   `yaml:"system_prompt,omitempty"`
	Temperature   *float64 `yaml:"temperature,omitempty"`
	StopSequences []string `yaml:"stop_sequences,omitempty"`
	MaxTokens     int      `yaml:"max_tokens,omitempty"`
	ContextWindow int      `yaml:"context_window,omitempty"`
	ToolAllow     []string `yaml:"tool_allow,omitempty"`
	ToolAsk       []string `yaml:"tool_ask,omitempty"`
	ToolDeny      []string `yaml:"tool_deny,omitempty"`
	// AllowedTools/DeniedTools narrow the registry's for_agent result
	// itself (spec §6's allowed_tools/denied_tools) — which tool ids the
	// model is even offered — as opposed to ToolAllow/ToolAsk/ToolDeny,
	// which only govern the Allow/Ask/Deny permission decision for tools
	// the model is already offered.
	AllowedTools []string `yaml:"allowed_tools,omitempty"`
	DeniedTools  []string `yaml:"denied_tools,omitempty"`
}

// ContextConfig is Config.Context, spec §6's pruning/truncation knobs.
type ContextConfig struct {
	PruneProtectTokens int `yaml:"prune_protect_tokens"`
	PruneMinimumTokens int `yaml:"prune_minimum_tokens"`
	TruncateMaxLines   int `yaml:"truncate_max_lines"`
	TruncateMaxBytes   int `yaml:"truncate_max_bytes"`
}

// Default returns a Config populated with every spec §6 default.
func Default() *Config {
	return &Config{
		Providers:    map[string]ProviderConfig{},
		DefaultModel: DefaultModel,
		Agents:       map[string]AgentConfig{},
		Context: ContextConfig{
			PruneProtectTokens: DefaultPruneProtectTokens,
			PruneMinimumTokens: DefaultPruneMinimumTokens,
			TruncateMaxLines:   DefaultTruncateMaxLines,
			TruncateMaxBytes:   DefaultTruncateMaxBytes,
		},
		LogLevel: DefaultLogLevel,
	}
}

// Load reads path as YAML into a Default() config, then applies
// environment overrides via applyEnvOverrides. A missing file is not an
// error: Load returns the defaults, matching the teacher's LoadConfig
// tolerating a missing ConfigPath().
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if cfg.WorkingDir == "" {
		if wd, err := os.Getwd(); err == nil {
			cfg.WorkingDir = wd
		}
	}
	return cfg, nil
}

// applyEnvOverrides layers API-key/base-URL environment variables over
// whatever YAML provided, the same secrets-stay-out-of-the-file pattern as
// the teacher's ANTHROPIC_API_KEY/OPENAI_API_KEY handling in LoadConfig.
func applyEnvOverrides(cfg *Config) {
	for name, env := range map[string]string{
		"anthropic": "ANTHROPIC_API_KEY",
		"openai":    "OPENAI_API_KEY",
		"qwen":      "QWEN_API_KEY",
	} {
		key := os.Getenv(env)
		if key == "" {
			continue
		}
		p := cfg.Providers[name]
		if p.APIKey == "" {
			p.APIKey = key
		}
		cfg.Providers[name] = p
	}
	if url := os.Getenv("ANTHROPIC_BASE_URL"); url != "" {
		p := cfg.Providers["anthropic"]
		if p.BaseURL == "" {
			p.BaseURL = url
		}
		cfg.Providers["anthropic"] = p
	}
	if level := os.Getenv("AGENTSDK_LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}
}

// applyDefaults fills zero-valued Context fields left unset by a partial
// YAML document, so a user overriding one knob doesn't lose the rest.
func applyDefaults(cfg *Config) {
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = DefaultModel
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	if cfg.Context.PruneProtectTokens <= 0 {
		cfg.Context.PruneProtectTokens = DefaultPruneProtectTokens
	}
	if cfg.Context.PruneMinimumTokens <= 0 {
		cfg.Context.PruneMinimumTokens = DefaultPruneMinimumTokens
	}
	if cfg.Context.TruncateMaxLines <= 0 {
		cfg.Context.TruncateMaxLines = DefaultTruncateMaxLines
	}
	if cfg.Context.TruncateMaxBytes <= 0 {
		cfg.Context.TruncateMaxBytes = DefaultTruncateMaxBytes
	}
	for _, policy := range []string{"build", "explore", "general", "plan", "compaction"} {
		if _, ok := cfg.Agents[policy]; !ok {
			cfg.Agents[policy] = AgentConfig{Policy: policy}
		}
	}
}

// Save writes cfg as YAML to path, creating its parent directory if
// necessary — the save-side counterpart to the teacher's SaveConfig.
func Save(cfg *Config, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: create dir %s: %w", dir, err)
		}
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// DefaultPath returns ~/.agentsdk-core/config.yaml, falling back to
// "agentsdk-core.yaml" in the working directory if the home directory
// can't be resolved.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "agentsdk-core.yaml"
	}
	return filepath.Join(home, ".agentsdk-core", "config.yaml")
}

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cexll/agentsdk-core/internal/obs"
	"github.com/cexll/agentsdk-core/pkg/config"
	"github.com/cexll/agentsdk-core/pkg/metrics"
	"github.com/cexll/agentsdk-core/pkg/persist"
	"github.com/cexll/agentsdk-core/pkg/persist/sqlitestore"
	"github.com/cexll/agentsdk-core/pkg/provider"
	_ "github.com/cexll/agentsdk-core/pkg/provider/register"
	"github.com/cexll/agentsdk-core/pkg/session"
	"github.com/cexll/agentsdk-core/pkg/tool"
	toolbuiltin "github.com/cexll/agentsdk-core/pkg/tool/builtin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// runtime bundles the pieces every subcommand needs: a loaded config, a
// logger, and a persistence store. Built once in rootCmd's PersistentPreRunE
// and threaded through the subcommands, mirroring the teacher's
// config.LoadConfig-at-the-top-of-every-handler pattern but assembled once
// instead of per command.
type runtime struct {
	cfg    *config.Config
	logger zerolog.Logger
	store  persist.Store
}

var rt *runtime

func loadRuntime() (*runtime, error) {
	path := configFlag
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := obs.NewLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	store, err := openStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	return &runtime{cfg: cfg, logger: logger, store: store}, nil
}

// openStore picks the JSON or SQLite-backed persist.Store depending on the
// --sqlite flag; either store lives under .agentsdk-core in the configured
// working directory.
func openStore(cfg *config.Config) (persist.Store, error) {
	dir := filepath.Join(cfg.WorkingDir, ".agentsdk-core")
	if useSQLite {
		sc := sqlitestore.DefaultConfig(filepath.Join(dir, "sessions.db"))
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, err
		}
		return sqlitestore.Open(sc)
	}
	return persist.NewJSONStore(dir)
}

// buildRegistry assembles the fixed set of eight builtin tools rooted at the
// configured working directory. The task tool is registered with a nil runner
// and the question tool with ask; session.WireBuiltinTools sets the runner
// once the top-level session exists (see pkg/session/wiring.go's doc comment).
func buildRegistry(workingDir string, ask toolbuiltin.Asker) (*tool.Registry, error) {
	reg := tool.NewRegistry()
	tools := []tool.Tool{
		toolbuiltin.NewBashToolWithRoot(workingDir),
		toolbuiltin.NewEditToolWithRoot(workingDir),
		toolbuiltin.NewGlobToolWithRoot(workingDir),
		toolbuiltin.NewGrepToolWithRoot(workingDir),
		toolbuiltin.NewReadToolWithRoot(workingDir),
		toolbuiltin.NewWriteToolWithRoot(workingDir),
		toolbuiltin.NewQuestionTool(ask),
		toolbuiltin.NewTaskTool(nil),
	}
	for _, t := range tools {
		if err := reg.Register(t); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// newSession resolves the named agent policy from cfg, constructs its
// provider, tool registry, logging/tracing/metrics collaborators, and
// returns a ready session.Session with its builtin tools wired.
func newSession(cfg *config.Config, agentName string, ask toolbuiltin.Asker, store persist.Store, callbacks session.Callbacks) (*session.Session, error) {
	agentCfg, ok := cfg.Agents[agentName]
	if !ok {
		return nil, fmt.Errorf("no agent %q configured", agentName)
	}
	sessAgent, err := agentCfg.ToAgentConfig(cfg.DefaultModel)
	if err != nil {
		return nil, fmt.Errorf("resolve agent %q: %w", agentName, err)
	}

	providerName := providerNameForModel(cfg, sessAgent.Model)
	provCfg, ok := cfg.Providers[providerName]
	if !ok {
		return nil, fmt.Errorf("no provider %q configured", providerName)
	}
	prov, err := provider.New(provCfg.ToProviderConfig(providerName))
	if err != nil {
		return nil, fmt.Errorf("construct provider %q: %w", providerName, err)
	}

	registry, err := buildRegistry(cfg.WorkingDir, ask)
	if err != nil {
		return nil, fmt.Errorf("build tool registry: %w", err)
	}

	sess, err := session.New(session.Options{
		Agent:      sessAgent,
		Provider:   prov,
		Tools:      registry,
		Store:      store,
		Recorder:   metrics.New(prometheus.DefaultRegisterer),
		Tracer:     obs.NewTracer(),
		Callbacks:  callbacks,
		WorkingDir: cfg.WorkingDir,
	})
	if err != nil {
		return nil, err
	}
	sess.WireBuiltinTools()
	return sess, nil
}

// providerNameForModel picks which of cfg.Providers to construct. Configs
// with exactly one provider entry use it unconditionally; configs with
// several prefer "anthropic" (the default model's vendor) and otherwise fall
// back to whichever key iteration finds first.
func providerNameForModel(cfg *config.Config, model string) string {
	if len(cfg.Providers) == 1 {
		for name := range cfg.Providers {
			return name
		}
	}
	if _, ok := cfg.Providers["anthropic"]; ok {
		return "anthropic"
	}
	for name := range cfg.Providers {
		return name
	}
	return "anthropic"
}

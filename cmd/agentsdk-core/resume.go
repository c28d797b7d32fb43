package main

import (
	"context"
	"fmt"

	"github.com/cexll/agentsdk-core/pkg/provider"
	"github.com/cexll/agentsdk-core/pkg/session"
	"github.com/spf13/cobra"
)

var resumeCmd = &cobra.Command{
	Use:   "resume <session-id>",
	Short: "Resume a persisted session and send one message",
	Args:  cobra.ExactArgs(1),
	RunE:  runResume,
}

func runResume(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	sessionID := args[0]

	agentName := agentFlag
	if rt.store != nil {
		if meta, err := rt.store.LoadMetadata(sessionID); err == nil && meta.AgentType != "" {
			if _, ok := rt.cfg.Agents[meta.AgentType]; ok {
				agentName = meta.AgentType
			}
		}
	}
	agentCfg, ok := rt.cfg.Agents[agentName]
	if !ok {
		return fmt.Errorf("no agent %q configured", agentName)
	}
	sessAgent, err := agentCfg.ToAgentConfig(rt.cfg.DefaultModel)
	if err != nil {
		return fmt.Errorf("resolve agent %q: %w", agentName, err)
	}

	providerName := providerNameForModel(rt.cfg, sessAgent.Model)
	provCfg, ok := rt.cfg.Providers[providerName]
	if !ok {
		return fmt.Errorf("no provider %q configured", providerName)
	}
	prov, err := provider.New(provCfg.ToProviderConfig(providerName))
	if err != nil {
		return fmt.Errorf("construct provider %q: %w", providerName, err)
	}

	registry, err := buildRegistry(rt.cfg.WorkingDir, stdinAsker(cmd))
	if err != nil {
		return fmt.Errorf("build tool registry: %w", err)
	}

	sess, err := session.Resume(sessionID, rt.store, session.Options{
		Agent:      sessAgent,
		Provider:   prov,
		Tools:      registry,
		WorkingDir: rt.cfg.WorkingDir,
		Callbacks:  replCallbacks(cmd),
	})
	if err != nil {
		return fmt.Errorf("resume %s: %w", sessionID, err)
	}
	sess.WireBuiltinTools()
	rt.logger.Info().Str("session_id", sess.ID()).Int("messages", len(sess.Messages())).Msg("session resumed")

	if messageFlag == "" {
		fmt.Fprintf(cmd.OutOrStdout(), "resumed %s (%d messages, state %s)\n", sess.ID(), len(sess.Messages()), sess.State())
		return nil
	}
	return promptAndPrint(ctx, cmd, sess, messageFlag)
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Inspect the builtin tool registry",
}

var toolsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the builtin tools and their descriptions",
	RunE:  runToolsList,
}

func runToolsList(cmd *cobra.Command, args []string) error {
	registry, err := buildRegistry(rt.cfg.WorkingDir, nil)
	if err != nil {
		return err
	}
	for _, t := range registry.List() {
		agentOnly := ""
		if t.AgentOnly() {
			agentOnly = " (agent-only)"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%-10s%s — %s\n", t.Name(), agentOnly, firstLine(t.Description()))
	}
	return nil
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}

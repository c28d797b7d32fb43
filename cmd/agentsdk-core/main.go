// Command agentsdk-core is a thin cobra CLI exercising the library end to
// end: run a session (single message or REPL), resume a persisted one, and
// list the builtin tool registry.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	configFlag string
	useSQLite  bool
)

var rootCmd = &cobra.Command{
	Use:   "agentsdk-core",
	Short: "agentsdk-core - conversational agent runtime",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		r, err := loadRuntime()
		if err != nil {
			return err
		}
		rt = r
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "path to config.yaml (default ~/.agentsdk-core/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&useSQLite, "sqlite", false, "use the SQLite session store instead of the JSON one")

	runCmd.Flags().StringVarP(&messageFlag, "message", "m", "", "single message to send; omit for REPL mode")
	runCmd.Flags().StringVar(&agentFlag, "agent", "general", "agent policy to run (build, explore, general, plan, compaction)")

	resumeCmd.Flags().StringVar(&agentFlag, "agent", "general", "agent policy to use if the resumed session predates policy tagging")
	resumeCmd.Flags().StringVarP(&messageFlag, "message", "m", "", "message to send to the resumed session")

	toolsCmd.AddCommand(toolsListCmd)

	rootCmd.AddCommand(runCmd, resumeCmd, toolsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

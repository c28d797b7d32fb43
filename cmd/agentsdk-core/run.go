package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/cexll/agentsdk-core/pkg/session"
	toolbuiltin "github.com/cexll/agentsdk-core/pkg/tool/builtin"
	"github.com/spf13/cobra"
)

var (
	messageFlag string
	agentFlag   string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a session in single-message or REPL mode",
	RunE:  runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	sess, err := newSession(rt.cfg, agentFlag, stdinAsker(cmd), rt.store, replCallbacks(cmd))
	if err != nil {
		return err
	}
	rt.logger.Info().Str("session_id", sess.ID()).Str("agent", agentFlag).Msg("session started")

	if messageFlag != "" {
		return promptAndPrint(ctx, cmd, sess, messageFlag)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "agentsdk-core (type 'exit' to quit)")
	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(cmd.OutOrStdout(), "\n> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			break
		}
		if err := promptAndPrint(ctx, cmd, sess, input); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
		}
	}
	return nil
}

func promptAndPrint(ctx context.Context, cmd *cobra.Command, sess *session.Session, text string) error {
	if err := sess.Prompt(ctx, text); err != nil {
		return fmt.Errorf("prompt: %w", err)
	}
	msgs := sess.Messages()
	if len(msgs) == 0 {
		return nil
	}
	last := msgs[len(msgs)-1]
	if txt := last.Text(); txt != "" {
		fmt.Fprintln(cmd.OutOrStdout(), txt)
	}
	return nil
}

// replCallbacks streams assistant deltas to stdout and logs structured
// events/errors through the runtime logger, mirroring the teacher's
// REPL-mode fmt.Fprintln-on-response loop but driven by session.Callbacks
// instead of a single blocking Run call.
func replCallbacks(cmd *cobra.Command) session.Callbacks {
	return session.Callbacks{
		OnStream: func(delta string) {
			fmt.Fprint(cmd.OutOrStdout(), delta)
		},
		OnError: func(msg string) {
			rt.logger.Error().Str("error", msg).Msg("session error")
		},
		OnEvent: func(e session.Event) {
			rt.logger.Debug().Str("kind", string(e.Kind)).Str("session_id", e.SessionID).Msg("session event")
		},
	}
}

// stdinAsker answers the question tool by printing each question to stdout
// and reading one line of free-text reply per question from stdin, the REPL
// equivalent of the teacher's onboarding prompts (internal/config's
// interactive setup) generalized to an arbitrary set of questions.
func stdinAsker(cmd *cobra.Command) toolbuiltin.Asker {
	return func(ctx context.Context, questions []toolbuiltin.Question) (map[string]string, error) {
		answers := make(map[string]string, len(questions))
		scanner := bufio.NewScanner(cmd.InOrStdin())
		for _, q := range questions {
			fmt.Fprintf(cmd.OutOrStdout(), "\n%s\n", q.Question)
			for _, opt := range q.Options {
				fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", opt.Label)
			}
			fmt.Fprint(cmd.OutOrStdout(), "> ")
			if !scanner.Scan() {
				break
			}
			answers[q.Question] = strings.TrimSpace(scanner.Text())
		}
		return answers, nil
	}
}

package toolbuiltin

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/cexll/agentsdk-core/pkg/tool"
)

const (
	defaultBashTimeout = 2 * time.Minute
	maxBashTimeout     = 10 * time.Minute

	bashDescription = `Executes a bash command in a fresh bash process (no state is kept between calls).

Usage notes:
- This tool is for terminal operations (git, npm, docker, build tooling). Do not use it for file
  reads/writes/edits/search — use Read/Write/Edit/Grep/Glob instead.
- Quote paths containing spaces.
- Chain dependent commands with '&&'; use ';' to run commands regardless of prior failure.
- Maintain the working directory via the workdir parameter instead of 'cd'.
- Output is capped at the configured threshold (30000 bytes by default); anything
  beyond it is dropped, not saved.`
)

var bashSchema = &tool.JSONSchema{
	Type: "object",
	Properties: map[string]*tool.JSONSchema{
		"command": {Type: "string", Description: "Command string executed via bash."},
		"timeout": {Type: "number", Description: "Optional timeout in seconds (default 120, max 600)."},
		"workdir": {Type: "string", Description: "Optional working directory (defaults to the tool's root)."},
	},
	Required: []string{"command"},
}

// BashTool runs shell commands, streaming stdout/stderr through a caller
// supplied sink (when invoked as a StreamingTool) and buffering each stream
// in a SpoolWriter with no backing file: writes past the threshold are
// discarded, and combined output over the threshold is cut and marked.
type BashTool struct {
	root                 string
	timeout              time.Duration
	outputThresholdBytes int
}

func NewBashTool() *BashTool { return NewBashToolWithRoot("") }

func NewBashToolWithRoot(root string) *BashTool {
	return &BashTool{root: resolveRoot(root), timeout: defaultBashTimeout, outputThresholdBytes: 30000}
}

func (b *BashTool) Name() string             { return "bash" }
func (b *BashTool) Description() string      { return bashDescription }
func (b *BashTool) Schema() *tool.JSONSchema { return bashSchema }
func (b *BashTool) AgentOnly() bool          { return false }

func (b *BashTool) Execute(ctx context.Context, params map[string]any) (*tool.Result, error) {
	return b.run(ctx, params, nil)
}

func (b *BashTool) StreamExecute(ctx context.Context, params map[string]any, sink func(chunk string, isStderr bool)) (*tool.Result, error) {
	return b.run(ctx, params, sink)
}

func (b *BashTool) run(ctx context.Context, params map[string]any, sink func(chunk string, isStderr bool)) (*tool.Result, error) {
	if ctx == nil {
		return nil, errors.New("context is nil")
	}
	if b == nil {
		return nil, errors.New("bash tool is not initialised")
	}
	command, err := extractCommand(params)
	if err != nil {
		return nil, err
	}
	workdir, err := b.resolveWorkdir(params)
	if err != nil {
		return nil, err
	}
	timeout, err := b.resolveTimeout(params)
	if err != nil {
		return nil, err
	}

	execCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		execCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(execCtx, "bash", "-c", command)
	cmd.Env = os.Environ()
	cmd.Dir = workdir

	stdout := tool.NewSpoolWriter(b.effectiveThreshold(), nil)
	stderr := tool.NewSpoolWriter(b.effectiveThreshold(), nil)
	cmd.Stdout = &sinkWriter{spool: stdout, sink: sink, isStderr: false}
	cmd.Stderr = &sinkWriter{spool: stderr, sink: sink, isStderr: true}

	start := time.Now()
	runErr := cmd.Run()
	duration := time.Since(start)

	combined := combineOutput(stdout.String(), stderr.String())
	truncated, didTruncate := tool.TruncateLines(combined, 0, b.effectiveThreshold())
	if didTruncate {
		combined = truncated
	}

	result := &tool.Result{
		Success: runErr == nil,
		Output:  combined,
		Data: map[string]any{
			"workdir":     workdir,
			"duration_ms": duration.Milliseconds(),
		},
	}

	if runErr != nil {
		if errors.Is(execCtx.Err(), context.DeadlineExceeded) {
			return result, fmt.Errorf("command timed out after %s", timeout)
		}
		return result, fmt.Errorf("command failed: %w", runErr)
	}
	return result, nil
}

type sinkWriter struct {
	spool    *tool.SpoolWriter
	sink     func(chunk string, isStderr bool)
	isStderr bool
}

func (w *sinkWriter) Write(p []byte) (int, error) {
	if w.sink != nil && len(p) > 0 {
		w.sink(string(p), w.isStderr)
	}
	return w.spool.Write(p)
}

func (b *BashTool) effectiveThreshold() int {
	if b == nil || b.outputThresholdBytes <= 0 {
		return 30000
	}
	return b.outputThresholdBytes
}

func (b *BashTool) resolveWorkdir(params map[string]any) (string, error) {
	dir := b.root
	if raw, ok := params["workdir"]; ok && raw != nil {
		value, err := coerceString(raw)
		if err != nil {
			return "", fmt.Errorf("workdir must be string: %w", err)
		}
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			dir = trimmed
		}
	}
	resolved, err := resolvePath(b.root, dir)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return "", fmt.Errorf("workdir stat: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("workdir %s is not a directory", resolved)
	}
	return resolved, nil
}

func (b *BashTool) resolveTimeout(params map[string]any) (time.Duration, error) {
	timeout := b.timeout
	raw, ok := params["timeout"]
	if !ok || raw == nil {
		return timeout, nil
	}
	seconds, err := intFromParam(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout: %w", err)
	}
	if seconds <= 0 {
		return timeout, nil
	}
	dur := time.Duration(seconds) * time.Second
	if dur > maxBashTimeout {
		dur = maxBashTimeout
	}
	return dur, nil
}

func extractCommand(params map[string]any) (string, error) {
	if params == nil {
		return "", errors.New("params is nil")
	}
	raw, ok := params["command"]
	if !ok {
		return "", errors.New("command is required")
	}
	cmd, err := coerceString(raw)
	if err != nil {
		return "", fmt.Errorf("command must be string: %w", err)
	}
	cmd = strings.TrimSpace(cmd)
	if cmd == "" {
		return "", errors.New("command cannot be empty")
	}
	return cmd, nil
}

func combineOutput(stdout, stderr string) string {
	stdout = strings.TrimRight(stdout, "\r\n")
	stderr = strings.TrimRight(stderr, "\r\n")
	switch {
	case stdout == "" && stderr == "":
		return ""
	case stdout == "":
		return stderr
	case stderr == "":
		return stdout
	default:
		return stdout + "\n" + stderr
	}
}

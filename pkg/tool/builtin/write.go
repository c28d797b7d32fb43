package toolbuiltin

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cexll/agentsdk-core/pkg/tool"
)

const writeDescription = `Writes a file to the local filesystem, overwriting it if it already exists.

Usage notes:
- ALWAYS prefer editing an existing file over writing a new one.
- Use Read first if the file already exists; this tool does not require it but callers should.`

var writeSchema = &tool.JSONSchema{
	Type: "object",
	Properties: map[string]*tool.JSONSchema{
		"file_path": {Type: "string", Description: "Absolute or root-relative path to write."},
		"content":   {Type: "string", Description: "Content to write to the file."},
	},
	Required: []string{"file_path", "content"},
}

type WriteTool struct {
	root string
}

func NewWriteTool() *WriteTool                    { return NewWriteToolWithRoot("") }
func NewWriteToolWithRoot(root string) *WriteTool { return &WriteTool{root: resolveRoot(root)} }

func (w *WriteTool) Name() string             { return "write" }
func (w *WriteTool) Description() string      { return writeDescription }
func (w *WriteTool) Schema() *tool.JSONSchema { return writeSchema }
func (w *WriteTool) AgentOnly() bool          { return false }

func (w *WriteTool) Execute(ctx context.Context, params map[string]any) (*tool.Result, error) {
	if ctx == nil {
		return nil, errors.New("context is nil")
	}
	if w == nil {
		return nil, errors.New("write tool is not initialised")
	}
	raw, ok := params["file_path"]
	if !ok {
		return nil, errors.New("file_path is required")
	}
	path, err := resolvePath(w.root, raw)
	if err != nil {
		return nil, err
	}
	rawContent, ok := params["content"]
	if !ok {
		return nil, errors.New("content is required")
	}
	content, err := coerceString(rawContent)
	if err != nil {
		return nil, fmt.Errorf("content must be string: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create parent directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return nil, fmt.Errorf("write file: %w", err)
	}

	return &tool.Result{
		Success: true,
		Output:  fmt.Sprintf("wrote %d bytes to %s", len(content), displayPath(path, w.root)),
		Data:    map[string]any{"path": displayPath(path, w.root), "bytes": len(content)},
	}, nil
}

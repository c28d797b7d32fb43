package toolbuiltin

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/cexll/agentsdk-core/pkg/tool"
)

const (
	readDefaultLineLimit = 2000
	readMaxLineLength    = 2000
	readMaxFileBytes     = 1 << 20

	readDescription = `Reads a text file from the local filesystem.

Usage notes:
- file_path may be absolute or relative to the tool's root.
- By default reads up to 2000 lines from the start of the file.
- offset/limit narrow the range read, for large files.
- Lines longer than 2000 characters are truncated.
- Output uses "cat -n" formatting (line numbers starting at 1).
- Binary files are rejected rather than decoded into garbage.`
)

var readSchema = &tool.JSONSchema{
	Type: "object",
	Properties: map[string]*tool.JSONSchema{
		"file_path": {Type: "string", Description: "Path to the file to read."},
		"offset":    {Type: "number", Description: "1-based line number to start reading from."},
		"limit":     {Type: "number", Description: "Maximum number of lines to return."},
	},
	Required: []string{"file_path"},
}

type ReadTool struct {
	root string
}

func NewReadTool() *ReadTool                    { return NewReadToolWithRoot("") }
func NewReadToolWithRoot(root string) *ReadTool { return &ReadTool{root: resolveRoot(root)} }

func (r *ReadTool) Name() string             { return "read" }
func (r *ReadTool) Description() string      { return readDescription }
func (r *ReadTool) Schema() *tool.JSONSchema { return readSchema }
func (r *ReadTool) AgentOnly() bool          { return false }

func (r *ReadTool) Execute(ctx context.Context, params map[string]any) (*tool.Result, error) {
	if ctx == nil {
		return nil, errors.New("context is nil")
	}
	if r == nil {
		return nil, errors.New("read tool is not initialised")
	}
	raw, ok := params["file_path"]
	if !ok {
		return nil, errors.New("file_path is required")
	}
	path, err := resolvePath(r.root, raw)
	if err != nil {
		return nil, err
	}
	offset, err := parseOffset(params)
	if err != nil {
		return nil, err
	}
	limit, err := parseLimit(params)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	content, err := readTextFile(path)
	if err != nil {
		return nil, err
	}

	lines := strings.Split(content, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	totalLines := len(lines)

	start := offset - 1
	if start < 0 {
		start = 0
	}
	if start >= totalLines {
		return &tool.Result{
			Success: true,
			Output:  fmt.Sprintf("no content in requested range (file has %d lines)", totalLines),
			Data:    map[string]any{"path": displayPath(path, r.root), "total_lines": totalLines},
		}, nil
	}
	end := start + limit
	if end > totalLines {
		end = totalLines
	}

	var b strings.Builder
	for i := start; i < end; i++ {
		line := lines[i]
		truncated := len(line) > readMaxLineLength
		if truncated {
			line = line[:readMaxLineLength]
		}
		fmt.Fprintf(&b, "%6d\t%s\n", i+1, line)
	}

	return &tool.Result{
		Success: true,
		Output:  b.String(),
		Data: map[string]any{
			"path":           displayPath(path, r.root),
			"offset":         offset,
			"limit":          limit,
			"total_lines":    totalLines,
			"returned_lines": end - start,
		},
	}, nil
}

func parseOffset(params map[string]any) (int, error) {
	raw, ok := params["offset"]
	if !ok || raw == nil {
		return 1, nil
	}
	v, err := intFromParam(raw)
	if err != nil {
		return 0, fmt.Errorf("offset must be a number: %w", err)
	}
	if v <= 0 {
		return 1, nil
	}
	return v, nil
}

func parseLimit(params map[string]any) (int, error) {
	raw, ok := params["limit"]
	if !ok || raw == nil {
		return readDefaultLineLimit, nil
	}
	v, err := intFromParam(raw)
	if err != nil {
		return 0, fmt.Errorf("limit must be a number: %w", err)
	}
	if v <= 0 {
		return readDefaultLineLimit, nil
	}
	return v, nil
}

func readTextFile(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat file: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", path)
	}
	if info.Size() > readMaxFileBytes {
		return "", fmt.Errorf("file exceeds %d byte limit", readMaxFileBytes)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	for _, b := range data {
		if b == 0 {
			return "", fmt.Errorf("binary file %s is not supported", path)
		}
	}
	return string(data), nil
}

package toolbuiltin

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/cexll/agentsdk-core/pkg/tool"
)

const editDescription = `Performs exact string replacements in a file.

Usage notes:
- old_string must be unique in the file unless replace_all is set.
- new_string must differ from old_string.
- Read the file first so the replacement targets the file's current contents.`

var editSchema = &tool.JSONSchema{
	Type: "object",
	Properties: map[string]*tool.JSONSchema{
		"file_path":   {Type: "string", Description: "Absolute or root-relative path to modify."},
		"old_string":  {Type: "string", Description: "Text to replace."},
		"new_string":  {Type: "string", Description: "Replacement text."},
		"replace_all": {Type: "boolean", Description: "Replace every occurrence instead of requiring uniqueness."},
	},
	Required: []string{"file_path", "old_string", "new_string"},
}

type EditTool struct {
	root string
}

func NewEditTool() *EditTool                    { return NewEditToolWithRoot("") }
func NewEditToolWithRoot(root string) *EditTool { return &EditTool{root: resolveRoot(root)} }

func (e *EditTool) Name() string             { return "edit" }
func (e *EditTool) Description() string      { return editDescription }
func (e *EditTool) Schema() *tool.JSONSchema { return editSchema }
func (e *EditTool) AgentOnly() bool          { return false }

func (e *EditTool) Execute(ctx context.Context, params map[string]any) (*tool.Result, error) {
	if ctx == nil {
		return nil, errors.New("context is nil")
	}
	if e == nil {
		return nil, errors.New("edit tool is not initialised")
	}
	rawPath, ok := params["file_path"]
	if !ok {
		return nil, errors.New("file_path is required")
	}
	path, err := resolvePath(e.root, rawPath)
	if err != nil {
		return nil, err
	}
	oldString, err := requiredString(params, "old_string")
	if err != nil {
		return nil, err
	}
	if oldString == "" {
		return nil, errors.New("old_string cannot be empty")
	}
	newString, err := requiredString(params, "new_string")
	if err != nil {
		return nil, err
	}
	if oldString == newString {
		return nil, errors.New("new_string must differ from old_string")
	}
	replaceAll := false
	if raw, ok := params["replace_all"]; ok && raw != nil {
		replaceAll, err = boolFromParam(raw)
		if err != nil {
			return nil, fmt.Errorf("replace_all must be boolean: %w", err)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	content, err := readTextFile(path)
	if err != nil {
		return nil, err
	}

	matches := strings.Count(content, oldString)
	if matches == 0 {
		return nil, fmt.Errorf("old_string not found in %s", displayPath(path, e.root))
	}
	if !replaceAll && matches != 1 {
		return nil, fmt.Errorf("old_string must be unique when replace_all is false (found %d matches)", matches)
	}

	replacements := matches
	var updated string
	if replaceAll {
		updated = strings.ReplaceAll(content, oldString, newString)
	} else {
		updated = strings.Replace(content, oldString, newString, 1)
		replacements = 1
	}

	if err := os.WriteFile(path, []byte(updated), info.Mode()); err != nil {
		return nil, fmt.Errorf("write file: %w", err)
	}

	return &tool.Result{
		Success: true,
		Output:  fmt.Sprintf("applied %d replacement(s)", replacements),
		Data:    map[string]any{"path": displayPath(path, e.root), "replacements": replacements},
	}, nil
}

func requiredString(params map[string]any, key string) (string, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return "", fmt.Errorf("%s is required", key)
	}
	value, err := coerceString(raw)
	if err != nil {
		return "", fmt.Errorf("%s must be string: %w", key, err)
	}
	return value, nil
}

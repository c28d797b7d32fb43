package toolbuiltin

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cexll/agentsdk-core/pkg/tool"
)

const (
	globResultLimit = 100

	globDescription = `Fast file pattern matching. Supports "**" for recursive directory matching
(e.g. "**/*.go"). Returns matching paths sorted by modification time, most recent first.`
)

var globSchema = &tool.JSONSchema{
	Type: "object",
	Properties: map[string]*tool.JSONSchema{
		"pattern": {Type: "string", Description: "Glob pattern to match files against."},
		"path":    {Type: "string", Description: "Directory to search in (defaults to the tool's root)."},
	},
	Required: []string{"pattern"},
}

type GlobTool struct {
	root       string
	maxResults int
}

func NewGlobTool() *GlobTool                    { return NewGlobToolWithRoot("") }
func NewGlobToolWithRoot(root string) *GlobTool { return &GlobTool{root: resolveRoot(root), maxResults: globResultLimit} }

func (g *GlobTool) Name() string             { return "glob" }
func (g *GlobTool) Description() string      { return globDescription }
func (g *GlobTool) Schema() *tool.JSONSchema { return globSchema }
func (g *GlobTool) AgentOnly() bool          { return false }

func (g *GlobTool) Execute(ctx context.Context, params map[string]any) (*tool.Result, error) {
	if ctx == nil {
		return nil, errors.New("context is nil")
	}
	if g == nil {
		return nil, errors.New("glob tool is not initialised")
	}
	rawPattern, ok := params["pattern"]
	if !ok {
		return nil, errors.New("pattern is required")
	}
	pattern, err := coerceString(rawPattern)
	if err != nil {
		return nil, fmt.Errorf("pattern must be string: %w", err)
	}
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return nil, errors.New("pattern cannot be empty")
	}

	searchRoot := g.root
	if rawPath, ok := params["path"]; ok && rawPath != nil {
		resolved, err := resolvePath(g.root, rawPath)
		if err != nil {
			return nil, err
		}
		searchRoot = resolved
	}

	type match struct {
		path    string
		modTime int64
	}
	var matches []match

	err = filepath.WalkDir(searchRoot, func(path string, d os.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		rel, relErr := filepath.Rel(searchRoot, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if !globMatch(pattern, rel) {
			return nil
		}
		info, statErr := d.Info()
		var modTime int64
		if statErr == nil {
			modTime = info.ModTime().UnixNano()
		}
		matches = append(matches, match{path: path, modTime: modTime})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", searchRoot, err)
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].modTime > matches[j].modTime })

	limit := g.maxResults
	if limit <= 0 {
		limit = globResultLimit
	}
	truncated := len(matches) > limit
	if truncated {
		matches = matches[:limit]
	}

	paths := make([]string, len(matches))
	for i, m := range matches {
		paths[i] = displayPath(m.path, g.root)
	}

	return &tool.Result{
		Success: true,
		Output:  strings.Join(paths, "\n"),
		Data:    map[string]any{"matches": paths, "truncated": truncated},
	}, nil
}

// globMatch supports "**" (match across directory boundaries) in addition
// to filepath.Match's single-segment "*"/"?"/class semantics, by expanding
// "**/" segments into an optional-depth match.
func globMatch(pattern, name string) bool {
	if !strings.Contains(pattern, "**") {
		ok, err := filepath.Match(pattern, name)
		return err == nil && ok
	}
	return doubleStarMatch(strings.Split(pattern, "/"), strings.Split(name, "/"))
}

func doubleStarMatch(patternParts, nameParts []string) bool {
	if len(patternParts) == 0 {
		return len(nameParts) == 0
	}
	head := patternParts[0]
	if head == "**" {
		if doubleStarMatch(patternParts[1:], nameParts) {
			return true
		}
		for i := 1; i <= len(nameParts); i++ {
			if doubleStarMatch(patternParts[1:], nameParts[i:]) {
				return true
			}
		}
		return false
	}
	if len(nameParts) == 0 {
		return false
	}
	ok, err := filepath.Match(head, nameParts[0])
	if err != nil || !ok {
		return false
	}
	return doubleStarMatch(patternParts[1:], nameParts[1:])
}

package toolbuiltin

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/cexll/agentsdk-core/pkg/tool"
)

const (
	grepResultLimit = 100

	grepDescription = `Regex content search across files.

Usage notes:
- pattern is a Go regular expression (RE2 syntax).
- path scopes the search to a file or directory (default: tool root).
- glob filters files by name pattern (e.g. "*.go").
- output_mode: "content" (matching lines), "files_with_matches" (default), or "count".
- case_insensitive toggles case-insensitive matching.`
)

var grepSchema = &tool.JSONSchema{
	Type: "object",
	Properties: map[string]*tool.JSONSchema{
		"pattern":          {Type: "string", Description: "Regular expression to search for."},
		"path":             {Type: "string", Description: "File or directory to search (default: tool root)."},
		"glob":             {Type: "string", Description: "File name glob filter, e.g. *.go."},
		"output_mode":      {Type: "string", Enum: []any{"content", "files_with_matches", "count"}, Description: "Output shape."},
		"case_insensitive": {Type: "boolean", Description: "Match case-insensitively."},
		"head_limit":       {Type: "number", Description: "Cap the number of results returned."},
	},
	Required: []string{"pattern"},
}

type GrepTool struct {
	root string
}

func NewGrepTool() *GrepTool                    { return NewGrepToolWithRoot("") }
func NewGrepToolWithRoot(root string) *GrepTool { return &GrepTool{root: resolveRoot(root)} }

func (g *GrepTool) Name() string             { return "grep" }
func (g *GrepTool) Description() string      { return grepDescription }
func (g *GrepTool) Schema() *tool.JSONSchema { return grepSchema }
func (g *GrepTool) AgentOnly() bool          { return false }

func (g *GrepTool) Execute(ctx context.Context, params map[string]any) (*tool.Result, error) {
	if ctx == nil {
		return nil, errors.New("context is nil")
	}
	if g == nil {
		return nil, errors.New("grep tool is not initialised")
	}
	rawPattern, ok := params["pattern"]
	if !ok {
		return nil, errors.New("pattern is required")
	}
	patternStr, err := coerceString(rawPattern)
	if err != nil {
		return nil, fmt.Errorf("pattern must be string: %w", err)
	}

	caseInsensitive := false
	if raw, ok := params["case_insensitive"]; ok && raw != nil {
		caseInsensitive, err = boolFromParam(raw)
		if err != nil {
			return nil, fmt.Errorf("case_insensitive must be boolean: %w", err)
		}
	}
	if caseInsensitive && !strings.HasPrefix(patternStr, "(?i)") {
		patternStr = "(?i)" + patternStr
	}
	re, err := regexp.Compile(patternStr)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern: %w", err)
	}

	searchRoot := g.root
	if raw, ok := params["path"]; ok && raw != nil {
		resolved, err := resolvePath(g.root, raw)
		if err != nil {
			return nil, err
		}
		searchRoot = resolved
	}

	var nameFilter string
	if raw, ok := params["glob"]; ok && raw != nil {
		nameFilter, err = coerceString(raw)
		if err != nil {
			return nil, fmt.Errorf("glob must be string: %w", err)
		}
	}

	mode := "files_with_matches"
	if raw, ok := params["output_mode"]; ok && raw != nil {
		mode, err = coerceString(raw)
		if err != nil {
			return nil, fmt.Errorf("output_mode must be string: %w", err)
		}
	}

	limit := grepResultLimit
	if raw, ok := params["head_limit"]; ok && raw != nil {
		limit, err = intFromParam(raw)
		if err != nil {
			return nil, fmt.Errorf("head_limit must be a number: %w", err)
		}
		if limit <= 0 {
			limit = grepResultLimit
		}
	}

	type fileMatches struct {
		path  string
		lines []string
		count int
	}
	var files []fileMatches

	walkErr := filepath.WalkDir(searchRoot, func(path string, d os.DirEntry, err error) error {
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
		if nameFilter != "" {
			if ok, _ := filepath.Match(nameFilter, d.Name()); !ok {
				return nil
			}
		}
		matched, count, lines, err := grepFile(path, re, mode)
		if err != nil || !matched {
			return nil
		}
		files = append(files, fileMatches{path: path, lines: lines, count: count})
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("walk %s: %w", searchRoot, walkErr)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].path < files[j].path })
	truncated := len(files) > limit
	if truncated {
		files = files[:limit]
	}

	var out strings.Builder
	switch mode {
	case "content":
		for _, f := range files {
			for _, line := range f.lines {
				out.WriteString(displayPath(f.path, g.root))
				out.WriteString(":")
				out.WriteString(line)
				out.WriteString("\n")
			}
		}
	case "count":
		for _, f := range files {
			fmt.Fprintf(&out, "%s:%d\n", displayPath(f.path, g.root), f.count)
		}
	default:
		for _, f := range files {
			out.WriteString(displayPath(f.path, g.root))
			out.WriteString("\n")
		}
	}

	return &tool.Result{
		Success: true,
		Output:  strings.TrimRight(out.String(), "\n"),
		Data:    map[string]any{"files_matched": len(files), "truncated": truncated},
	}, nil
}

func grepFile(path string, re *regexp.Regexp, mode string) (bool, int, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, 0, nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	var lines []string
	count := 0
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if re.MatchString(line) {
			count++
			if mode == "content" {
				lines = append(lines, fmt.Sprintf("%d:%s", lineNo, line))
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return false, 0, nil, err
	}
	return count > 0, count, lines, nil
}

package tool

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
)

// Action represents the enforcement outcome for a tool invocation.
type Action string

const (
	ActionUnknown Action = "unknown"
	ActionAllow   Action = "allow"
	ActionAsk     Action = "ask"
	ActionDeny    Action = "deny"
)

// Decision captures the matched rule and the derived target string.
type Decision struct {
	Action Action
	Rule   string
	Tool   string
	Target string
}

// PermissionConfig lists rule strings per outcome, evaluated deny > ask >
// allow. A rule is either a bare tool name/glob ("bash", "write_*"), a bare
// path glob (matched against the call's working directory / first string
// param), or "tool(pattern)" scoping a glob to one tool; in that form '*'
// also matches '/', so "bash(rm *)" covers "rm -rf /tmp/x".
type PermissionConfig struct {
	Allow []string
	Ask   []string
	Deny  []string
}

type rule struct {
	raw       string
	toolMatch func(string) bool
	match     func(string) bool
}

// Matcher evaluates tool calls against a compiled PermissionConfig.
type Matcher struct {
	allow, ask, deny []*rule
}

// NewMatcher compiles cfg into a Matcher. A nil cfg yields a nil Matcher
// (Match then always allows).
func NewMatcher(cfg *PermissionConfig) (*Matcher, error) {
	if cfg == nil {
		return nil, nil
	}
	build := func(rules []string) ([]*rule, error) {
		var out []*rule
		for _, r := range rules {
			compiled, err := compileRule(r)
			if err != nil {
				return nil, err
			}
			out = append(out, compiled)
		}
		return out, nil
	}
	allow, err := build(cfg.Allow)
	if err != nil {
		return nil, err
	}
	ask, err := build(cfg.Ask)
	if err != nil {
		return nil, err
	}
	deny, err := build(cfg.Deny)
	if err != nil {
		return nil, err
	}
	return &Matcher{allow: allow, ask: ask, deny: deny}, nil
}

// Match resolves the decision for one tool invocation, priority deny > ask >
// allow, falling back to ActionUnknown (treated as allow by callers that do
// not require an explicit policy).
func (m *Matcher) Match(toolName string, target string) Decision {
	if m == nil {
		return Decision{Action: ActionAllow, Tool: toolName, Target: target}
	}
	if d, ok := matchRules(toolName, target, m.deny, ActionDeny); ok {
		return d
	}
	if d, ok := matchRules(toolName, target, m.ask, ActionAsk); ok {
		return d
	}
	if d, ok := matchRules(toolName, target, m.allow, ActionAllow); ok {
		return d
	}
	return Decision{Action: ActionUnknown, Tool: toolName, Target: target}
}

func matchRules(tool, target string, rules []*rule, action Action) (Decision, bool) {
	for _, r := range rules {
		if !r.toolMatch(tool) {
			continue
		}
		if r.match(target) {
			return Decision{Action: action, Rule: r.raw, Tool: tool, Target: target}, true
		}
	}
	return Decision{}, false
}

func compileRule(raw string) (*rule, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("permission rule is empty")
	}

	if open := strings.IndexByte(trimmed, '('); open >= 0 && strings.HasSuffix(trimmed, ")") {
		toolPart := strings.TrimSpace(trimmed[:open])
		pattern := trimmed[open+1 : len(trimmed)-1]
		// '/' is swapped out on both sides so that '*' spans it.
		p := strings.ReplaceAll(strings.ToLower(pattern), "/", "\x00")
		return &rule{
			raw:       trimmed,
			toolMatch: func(name string) bool { return strings.EqualFold(toolPart, name) },
			match: func(s string) bool {
				ok, err := filepath.Match(p, strings.ReplaceAll(strings.ToLower(s), "/", "\x00"))
				return err == nil && ok
			},
		}, nil
	}

	if strings.ContainsAny(trimmed, "/\\") {
		return &rule{raw: trimmed, toolMatch: func(string) bool { return true }, match: globMatcher(trimmed)}, nil
	}

	return &rule{raw: trimmed, toolMatch: globMatcher(trimmed), match: func(string) bool { return true }}, nil
}

func globMatcher(pattern string) func(string) bool {
	p := strings.ToLower(pattern)
	return func(s string) bool {
		ok, err := filepath.Match(p, strings.ToLower(s))
		return err == nil && ok
	}
}

// deriveTarget picks the string the permission rules are matched against:
// the call's working directory when set, otherwise its first string-valued
// parameter (typically a command or path), otherwise empty.
func deriveTarget(call Call) string {
	if call.WorkingDir != "" {
		return call.WorkingDir
	}
	for _, key := range []string{"command", "path", "file_path", "pattern"} {
		if v, ok := call.Params[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// Cache remembers prior ask-decisions so a session does not re-prompt for
// the same (tool, working directory) pair, per SPEC_FULL.md's
// "Working-directory-scoped tool permission prompts": a bash call scoped to
// one working directory and one scoped to another prompt independently.
type Cache struct {
	mu   sync.Mutex
	seen map[string]Action
}

func NewCache() *Cache { return &Cache{seen: map[string]Action{}} }

func cacheKey(toolName, workingDir string) string { return toolName + "\x00" + workingDir }

// Get returns a remembered decision for (toolName, workingDir), if any.
func (c *Cache) Get(toolName, workingDir string) (Action, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.seen[cacheKey(toolName, workingDir)]
	return a, ok
}

// Put remembers a decision for (toolName, workingDir).
func (c *Cache) Put(toolName, workingDir string, action Action) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen[cacheKey(toolName, workingDir)] = action
}

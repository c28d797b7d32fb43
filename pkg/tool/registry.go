package tool

import (
	"fmt"
	"sort"
	"sync"

	"github.com/cexll/agentsdk-core/pkg/message"
)

// Registry keeps the mapping between tool names and implementations.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register inserts a tool when its name is not already in use.
func (r *Registry) Register(t Tool) error {
	if t == nil {
		return fmt.Errorf("tool is nil")
	}
	name := t.Name()
	if name == "" {
		return fmt.Errorf("tool name is empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %s already registered", name)
	}
	r.tools[name] = t
	return nil
}

// Unregister removes a tool by name; a no-op if it was never registered.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
}

// Get fetches a tool by name.
func (r *Registry) Get(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, exists := r.tools[name]
	if !exists {
		return nil, fmt.Errorf("tool %s not found", name)
	}
	return t, nil
}

// List returns every registered tool, sorted by name.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// ListFor returns the tools eligible for the given caller context:
// agentContext=false hides agent-only tools, while agentContext=true keeps
// the full set (the session engine passes its agent config's
// AllowAgentOnlyTools here), per §4.4. agentContext-filtering
// runs first; allowed/denied (an agent config's allowed_tools/denied_tools)
// then narrow that set per §4.4's "filter by agent": a non-empty allowed
// restricts the result to exactly those ids, after which any id in denied
// is removed regardless of whether allowed named it.
func (r *Registry) ListFor(agentContext bool, allowed, denied []string) []Tool {
	all := r.List()
	out := make([]Tool, 0, len(all))
	for _, t := range all {
		if !agentContext && t.AgentOnly() {
			continue
		}
		if len(allowed) > 0 && !containsName(allowed, t.Name()) {
			continue
		}
		if containsName(denied, t.Name()) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func containsName(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

// Definitions projects the registry (or a filtered subset) into the
// provider-agnostic ToolDefinition shape each wire adapter consumes.
func Definitions(tools []Tool) []message.ToolDefinition {
	out := make([]message.ToolDefinition, 0, len(tools))
	for _, t := range tools {
		out = append(out, message.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Schema:      t.Schema().ToMap(),
		})
	}
	return out
}

// Package session implements the agent runtime's main loop (spec §4.5):
// provider selection, system-prompt assembly, streaming, tool execution,
// doom-loop detection, LLM-driven compaction, and protected-window output
// pruning.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/cexll/agentsdk-core/pkg/message"
	"github.com/cexll/agentsdk-core/pkg/persist"
	"github.com/cexll/agentsdk-core/pkg/provider"
	"github.com/cexll/agentsdk-core/pkg/tool"
	toolbuiltin "github.com/cexll/agentsdk-core/pkg/tool/builtin"
)

// State is the session's current lifecycle phase.
type State string

const (
	StateIdle           State = "idle"
	StateRunning        State = "running"
	StateWaitingForTool State = "waiting_for_tool"
	StateWaitingForUser State = "waiting_for_user"
	StateCompacting     State = "compacting"
	StateCompleted      State = "completed"
	StateFailed         State = "failed"
	StateCancelled      State = "cancelled"
)

const maxLoopIterations = 100

// AgentType names one of the five built-in agent policies (§3 DATA MODEL).
type AgentType string

const (
	AgentBuild      AgentType = "build"
	AgentExplore    AgentType = "explore"
	AgentGeneral    AgentType = "general"
	AgentPlan       AgentType = "plan"
	AgentCompaction AgentType = "compaction"
)

// AgentConfig binds a model, system prompt, tool filter, and generation
// parameters to a session, per spec §4.5 "Request construction."
type AgentConfig struct {
	Type            AgentType
	Model           string
	SystemPrompt    string
	Temperature     *float64
	StopSequences   []string
	MaxTokens       int
	ContextWindow   int
	ToolPermissions *tool.PermissionConfig
	// AllowAgentOnlyTools grants this agent config the subtask-only tool set
	// (task, question) — true for child-session-capable policies.
	AllowAgentOnlyTools bool
	// AllowedTools, when non-empty, restricts registry.for_agent's result to
	// exactly these tool ids (spec §4.4 "filter by agent"). Empty means no
	// restriction: every tool the AllowAgentOnlyTools pass admits is kept.
	AllowedTools []string
	// DeniedTools removes these tool ids from the result, applied after
	// AllowedTools — a plan-style policy can express "read-only" either by
	// naming the read-like tools in AllowedTools or by denying the rest.
	DeniedTools []string
}

// Recorder is the optional metrics collaborator, nil-safe like the
// teacher's Tracer interface (pkg/api/otel.go) — a concrete
// pkg/metrics.Recorder satisfies it without this package importing
// pkg/metrics.
type Recorder interface {
	ToolExecuted(name string, success bool, d time.Duration)
	StreamEvent(providerName string, kind provider.EventKind)
	CompactionRun()
	DoomLoopDetected(toolName string)
	TokensUsed(u message.Usage)
}

// SpanContext carries one span's identity and recording state, nil-safe
// like Recorder — a concrete internal/obs.otelSpan satisfies it without
// this package importing internal/obs.
type SpanContext interface {
	TraceID() string
	SpanID() string
	IsRecording() bool
}

// Tracer creates spans for one session's loop iterations, provider stream
// calls, and tool executions, per the expanded spec's Tracing note: "one
// span per session-loop iteration, one child span per provider stream call
// and per tool execution." A concrete internal/obs.Tracer satisfies this
// without this package importing internal/obs, the same seam Recorder
// uses for pkg/metrics.
type Tracer interface {
	StartLoopSpan(sessionID string, iteration int) SpanContext
	StartStreamSpan(parent SpanContext, providerName, model string) SpanContext
	StartToolSpan(parent SpanContext, toolName string) SpanContext
	EndSpan(span SpanContext, attrs map[string]any, err error)
}

// Callbacks are the optional per-session hooks spec §4.5 "Callbacks" names.
// Every field may be left nil.
type Callbacks struct {
	OnMessage    func(*message.Message)
	OnStream     func(delta string)
	OnThinking   func(delta string)
	OnToolCall   func(id, name string, args map[string]any)
	OnToolResult func(id, name, output string, isError bool)
	OnComplete   func(reason State)
	OnError      func(message string)

	// PermissionHandler resolves an Ask decision into a final allow/deny.
	PermissionHandler func(ctx context.Context, toolName, description string) (bool, error)
	// QuestionHandler answers a question tool invocation; it is wired
	// directly as a toolbuiltin.Asker by RegisterBuiltinTools.
	QuestionHandler toolbuiltin.Asker

	// OnEvent receives the structured observability events (ToolCallStarted,
	// ToolCallCompleted, ContextCompacted, SessionCreated) spec §4.5 calls
	// out separately from the named callbacks above.
	OnEvent func(Event)
}

// Session is one conversational run: its message log, agent configuration,
// and the mutable loop state described in spec §4.5/§5.
type Session struct {
	id       string
	parentID string
	title    string

	mu       sync.RWMutex
	state    State
	messages []*message.Message
	usage    message.Usage

	agent    AgentConfig
	provider provider.Provider

	tools     *tool.Registry
	executor  *tool.Executor
	permCache *tool.Cache

	store    persist.Store
	recorder Recorder
	tracer   Tracer

	// loopSpan is the current iteration's span, set at the top of each run
	// loop pass and read by streamStep/executeToolCalls as their spans'
	// parent. The loop is strictly sequential, so no lock is needed.
	loopSpan SpanContext

	callbacks Callbacks

	aborted atomic.Bool

	recentCalls []recentCall

	childMu  sync.Mutex
	children []*Session

	systemPrompt string
	workingDir   string

	pruneProtectTokens int
	pruneMinimumTokens int

	createdAt time.Time
	updatedAt time.Time
}

type recentCall struct {
	tool string
	args string
}

// Options configures a new Session. Provider is required; a nil Tools gets
// an empty registry, and Agent is used as given.
type Options struct {
	Agent    AgentConfig
	Provider provider.Provider
	Tools    *tool.Registry
	Store    persist.Store
	Recorder Recorder
	Tracer   Tracer

	Callbacks Callbacks

	WorkingDir string

	// PruneProtectTokens / PruneMinimumTokens override spec §4.5 Pruning's
	// defaults of 40000 / 20000.
	PruneProtectTokens int
	PruneMinimumTokens int

	ParentID string

	// resumeID, when non-empty, is used instead of a freshly generated id
	// and suppresses the SessionCreated event/initial metadata write —
	// Resume sets this and fires SessionCreated itself once messages are
	// loaded.
	resumeID string
}

// New constructs a session in state Idle, assembling its system prompt from
// the working directory's instruction files (spec §4.5 System-prompt
// assembly) and layering them onto Options.Agent.SystemPrompt.
func New(opts Options) (*Session, error) {
	if opts.Provider == nil {
		return nil, fmt.Errorf("session: provider is required")
	}
	if opts.Tools == nil {
		opts.Tools = tool.NewRegistry()
	}

	matcher, err := tool.NewMatcher(opts.Agent.ToolPermissions)
	if err != nil {
		return nil, fmt.Errorf("session: compile tool permissions: %w", err)
	}
	execCache := tool.NewCache()
	executor := tool.NewExecutor(opts.Tools).WithMatcher(matcher)
	if opts.Callbacks.PermissionHandler != nil {
		executor = executor.WithPermissionResolver(makePermissionResolver(opts.Callbacks.PermissionHandler))
	}

	protect := opts.PruneProtectTokens
	if protect <= 0 {
		protect = 40000
	}
	minimum := opts.PruneMinimumTokens
	if minimum <= 0 {
		minimum = 20000
	}

	id := opts.resumeID
	if id == "" {
		id = uuid.NewString()
	}

	now := time.Now()
	s := &Session{
		id:                 id,
		parentID:           opts.ParentID,
		state:              StateIdle,
		agent:              opts.Agent,
		provider:           opts.Provider,
		tools:              opts.Tools,
		executor:           executor,
		permCache:          execCache,
		store:              opts.Store,
		recorder:           opts.Recorder,
		tracer:             opts.Tracer,
		callbacks:          opts.Callbacks,
		pruneProtectTokens: protect,
		pruneMinimumTokens: minimum,
		workingDir:         opts.WorkingDir,
		createdAt:          now,
		updatedAt:          now,
	}

	prompt, err := assembleSystemPrompt(opts.WorkingDir, opts.Agent.SystemPrompt)
	if err != nil {
		return nil, err
	}
	s.systemPrompt = prompt

	if opts.resumeID == "" {
		s.emitEvent(Event{Kind: EventSessionCreated, SessionID: s.id})
		s.persistMetadata()
	}
	return s, nil
}

func makePermissionResolver(handler func(ctx context.Context, toolName, description string) (bool, error)) tool.PermissionResolver {
	return func(ctx context.Context, call tool.Call, decision tool.Decision) (tool.Decision, error) {
		allowed, err := handler(ctx, call.Name, fmt.Sprintf("%s %s", call.Name, decision.Target))
		if err != nil {
			return decision, err
		}
		if allowed {
			decision.Action = tool.ActionAllow
		} else {
			decision.Action = tool.ActionDeny
		}
		return decision, nil
	}
}

// ID returns the session's stable identifier.
func (s *Session) ID() string { return s.id }

// ParentID returns the id of the session that spawned this one via
// CreateChild, or "" for a top-level session.
func (s *Session) ParentID() string { return s.parentID }

// State returns the session's current lifecycle phase.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Title returns the session's display title, if set.
func (s *Session) Title() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.title
}

// SetTitle sets the session's display title and persists metadata.
func (s *Session) SetTitle(title string) {
	s.mu.Lock()
	s.title = title
	s.mu.Unlock()
	s.persistMetadata()
}

// Usage returns the cumulative token usage for the session.
func (s *Session) Usage() message.Usage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.usage
}

// Messages returns a snapshot of the session's message log.
func (s *Session) Messages() []*message.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*message.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Cancel raises the shared abort flag, polled at every loop iteration
// boundary, and recursively cancels children (spec §5 Cancellation).
func (s *Session) Cancel() {
	s.aborted.Store(true)
	s.provider.Cancel()
	s.childMu.Lock()
	children := append([]*Session(nil), s.children...)
	s.childMu.Unlock()
	for _, c := range children {
		c.Cancel()
	}
}

func (s *Session) isAborted() bool { return s.aborted.Load() }

func (s *Session) addMessage(m *message.Message) {
	s.mu.Lock()
	s.messages = append(s.messages, m)
	s.usage.Add(m.Usage)
	if s.title == "" && m.Role == message.RoleUser {
		s.title = deriveTitle(m.Text())
	}
	s.mu.Unlock()

	if s.callbacks.OnMessage != nil {
		s.callbacks.OnMessage(m)
	}
	if s.store != nil {
		if err := s.store.AppendMessage(s.id, m); err != nil && s.callbacks.OnError != nil {
			s.callbacks.OnError(fmt.Sprintf("persist message: %v", err))
		}
	}
	s.persistMetadata()
}

// deriveTitle truncates text to a title of about 50 runes, used when a
// session's first user message arrives and no explicit title was set via
// SetTitle (spec §3 Lifecycle: "auto-derived from the first user message
// (truncated to about 50 characters) unless set explicitly").
func deriveTitle(text string) string {
	const maxTitleRunes = 50
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	r := []rune(text)
	if len(r) <= maxTitleRunes {
		return text
	}
	return string(r[:maxTitleRunes])
}

func (s *Session) updateMessage(m *message.Message) {
	if s.store == nil {
		return
	}
	if err := s.store.UpdateMessage(s.id, m); err != nil && s.callbacks.OnError != nil {
		s.callbacks.OnError(fmt.Sprintf("persist message update: %v", err))
	}
}

func (s *Session) persistMetadata() {
	if s.store == nil {
		return
	}
	s.mu.RLock()
	meta := persist.Metadata{
		ID:        s.id,
		ParentID:  s.parentID,
		AgentType: string(s.agent.Type),
		Title:     s.title,
		State:     string(s.state),
		Usage:     s.usage,
		CreatedAt: s.createdAt,
		UpdatedAt: time.Now(),
	}
	s.mu.RUnlock()
	if err := s.store.SaveMetadata(meta); err != nil && s.callbacks.OnError != nil {
		s.callbacks.OnError(fmt.Sprintf("persist metadata: %v", err))
	}
}

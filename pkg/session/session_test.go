package session

import (
	"context"
	"testing"
	"time"

	"github.com/cexll/agentsdk-core/pkg/message"
	"github.com/cexll/agentsdk-core/pkg/provider"
	"github.com/cexll/agentsdk-core/pkg/tool"
)

type fakeTool struct {
	name string
}

func (f *fakeTool) Name() string                { return f.name }
func (f *fakeTool) Description() string         { return "fake tool for tests" }
func (f *fakeTool) Schema() *tool.JSONSchema     { return &tool.JSONSchema{Type: "object"} }
func (f *fakeTool) AgentOnly() bool              { return false }
func (f *fakeTool) Execute(ctx context.Context, params map[string]any) (*tool.Result, error) {
	return &tool.Result{Success: true, Output: "ok"}, nil
}

type recordingRecorder struct {
	doomLoops      []string
	compactionRuns int
}

func newRecordingRecorder() *recordingRecorder { return &recordingRecorder{} }

func (r *recordingRecorder) ToolExecuted(name string, success bool, d time.Duration)  {}
func (r *recordingRecorder) StreamEvent(providerName string, kind provider.EventKind) {}
func (r *recordingRecorder) CompactionRun()                                           { r.compactionRuns++ }
func (r *recordingRecorder) DoomLoopDetected(toolName string) {
	r.doomLoops = append(r.doomLoops, toolName)
}
func (r *recordingRecorder) TokensUsed(u message.Usage) {}

func newTestSession(t *testing.T, prov *fakeProvider, rec Recorder) *Session {
	t.Helper()
	registry := tool.NewRegistry()
	if err := registry.Register(&fakeTool{name: "read"}); err != nil {
		t.Fatalf("register tool: %v", err)
	}

	s, err := New(Options{
		Agent:      NewGeneralAgentConfig("test-model", 10000),
		Provider:   prov,
		Tools:      registry,
		Recorder:   rec,
		WorkingDir: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	return s
}

// S: a session whose provider emits a plain finished text turn terminates
// the loop without looping forever.
func TestSessionTerminatesOnFinishedAssistant(t *testing.T) {
	prov := &fakeProvider{steps: []scriptedStep{textStep("hello", message.FinishStop)}}
	s := newTestSession(t, prov, nil)

	if err := s.Prompt(context.Background(), "hi"); err != nil {
		t.Fatalf("prompt: %v", err)
	}
	if s.State() != StateCompleted {
		t.Fatalf("expected Completed, got %s", s.State())
	}
	if prov.callCount() != 1 {
		t.Fatalf("expected exactly one stream call, got %d", prov.callCount())
	}
}

// S6: three consecutive identical read/{"path":"/x"} tool calls; the fourth
// identical call causes the doom-loop detector to flag before execution
// proceeds (it is logged via the Recorder, not blocked, per spec §4.5).
func TestDoomLoopDetectionFlagsFourthIdenticalCall(t *testing.T) {
	args := map[string]any{"path": "/x"}
	steps := []scriptedStep{
		toolCallStep("c1", "read", args),
		toolCallStep("c2", "read", args),
		toolCallStep("c3", "read", args),
		toolCallStep("c4", "read", args),
		textStep("done", message.FinishStop),
	}
	prov := &fakeProvider{steps: steps}
	rec := newRecordingRecorder()
	s := newTestSession(t, prov, rec)

	if err := s.Prompt(context.Background(), "go"); err != nil {
		t.Fatalf("prompt: %v", err)
	}
	if len(rec.doomLoops) == 0 {
		t.Fatalf("expected at least one doom-loop detection, got none")
	}
}

// S4: with context_window=10000, once the estimated token count exceeds
// 80% (8000), the NEXT loop entered (a following prompt, since termination
// is checked before compaction within one loop pass) runs compaction — a
// secondary stream call — and the summary becomes the first element of the
// context returned by getContextMessages.
func TestCompactionTriggersBeforeNextStep(t *testing.T) {
	bigText := make([]byte, 8001*charsPerToken)
	for i := range bigText {
		bigText[i] = 'x'
	}
	prov := &fakeProvider{steps: []scriptedStep{
		textStep(string(bigText), message.FinishStop), // first turn, pushes token estimate over threshold
		textStep("summary of the conversation", message.FinishStop), // compaction sub-call
	}}
	rec := newRecordingRecorder()
	s := newTestSession(t, prov, rec)

	if err := s.Prompt(context.Background(), "start"); err != nil {
		t.Fatalf("prompt: %v", err)
	}
	if err := s.Prompt(context.Background(), "continue"); err != nil {
		t.Fatalf("second prompt: %v", err)
	}

	if rec.compactionRuns == 0 {
		t.Fatalf("expected compaction to run at least once")
	}

	ctxMsgs := s.getContextMessages()
	if len(ctxMsgs) == 0 || !ctxMsgs[0].IsSummary {
		t.Fatalf("expected the newest summary to lead the context, got %+v", ctxMsgs)
	}
}

func TestCancelRaisesAbortFlag(t *testing.T) {
	prov := &fakeProvider{steps: []scriptedStep{textStep("hello", message.FinishStop)}}
	s := newTestSession(t, prov, nil)
	s.Cancel()
	if !s.isAborted() {
		t.Fatalf("expected aborted flag to be set")
	}
}

// the title is auto-derived from the first user message when none was set
// explicitly via SetTitle (spec §3 Lifecycle).
func TestPromptDerivesTitleFromFirstUserMessage(t *testing.T) {
	prov := &fakeProvider{steps: []scriptedStep{textStep("hello", message.FinishStop)}}
	s := newTestSession(t, prov, nil)

	if err := s.Prompt(context.Background(), "what does this codebase do?"); err != nil {
		t.Fatalf("prompt: %v", err)
	}
	if got := s.Title(); got != "what does this codebase do?" {
		t.Fatalf("expected derived title, got %q", got)
	}
}

// a long first message is truncated to about 50 runes.
func TestPromptTruncatesDerivedTitle(t *testing.T) {
	prov := &fakeProvider{steps: []scriptedStep{textStep("hello", message.FinishStop)}}
	s := newTestSession(t, prov, nil)

	long := "this is a very long first message that should be truncated to fifty characters or so when used as the session title"
	if err := s.Prompt(context.Background(), long); err != nil {
		t.Fatalf("prompt: %v", err)
	}
	if got := s.Title(); len([]rune(got)) != 50 {
		t.Fatalf("expected title truncated to 50 runes, got %d: %q", len([]rune(got)), got)
	}
}

// an explicit SetTitle before the first message wins over auto-derivation.
func TestSetTitleBeforePromptIsNotOverwritten(t *testing.T) {
	prov := &fakeProvider{steps: []scriptedStep{textStep("hello", message.FinishStop)}}
	s := newTestSession(t, prov, nil)
	s.SetTitle("explicit title")

	if err := s.Prompt(context.Background(), "hi"); err != nil {
		t.Fatalf("prompt: %v", err)
	}
	if got := s.Title(); got != "explicit title" {
		t.Fatalf("expected explicit title to survive, got %q", got)
	}
}

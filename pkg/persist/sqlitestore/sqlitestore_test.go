package sqlitestore

import (
	"path/filepath"
	"testing"

	"github.com/cexll/agentsdk-core/pkg/message"
	"github.com/cexll/agentsdk-core/pkg/persist"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "sessions.db")
	s, err := Open(DefaultConfig(dbPath))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndLoadMetadata(t *testing.T) {
	s := newTestStore(t)

	meta := persist.Metadata{
		ID:        "sess-1",
		AgentType: "general",
		Title:     "first run",
		State:     "idle",
		Usage:     message.Usage{InputTokens: 10, OutputTokens: 5},
	}
	if err := s.SaveMetadata(meta); err != nil {
		t.Fatalf("save metadata: %v", err)
	}

	got, err := s.LoadMetadata("sess-1")
	if err != nil {
		t.Fatalf("load metadata: %v", err)
	}
	if got.Title != meta.Title || got.AgentType != meta.AgentType {
		t.Fatalf("metadata mismatch: got %+v", got)
	}
	if got.Usage.InputTokens != 10 || got.Usage.OutputTokens != 5 {
		t.Fatalf("usage mismatch: got %+v", got.Usage)
	}
	if got.CreatedAt.IsZero() {
		t.Fatalf("expected created_at to be set")
	}
}

func TestSaveMetadataPreservesCreatedAt(t *testing.T) {
	s := newTestStore(t)

	if err := s.SaveMetadata(persist.Metadata{ID: "sess-1", AgentType: "general", State: "idle"}); err != nil {
		t.Fatalf("initial save: %v", err)
	}
	first, err := s.LoadMetadata("sess-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if err := s.SaveMetadata(persist.Metadata{ID: "sess-1", AgentType: "general", State: "running", Title: "renamed"}); err != nil {
		t.Fatalf("second save: %v", err)
	}
	second, err := s.LoadMetadata("sess-1")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}

	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Fatalf("expected created_at to be preserved across updates: %v != %v", second.CreatedAt, first.CreatedAt)
	}
	if second.State != "running" || second.Title != "renamed" {
		t.Fatalf("expected update to apply: %+v", second)
	}
}

func TestAppendAndLoadMessagesPreservesOrder(t *testing.T) {
	s := newTestStore(t)

	m1 := message.NewText("sess-1", message.RoleUser, "hello")
	m2 := message.NewText("sess-1", message.RoleAssistant, "hi there")
	if err := s.AppendMessage("sess-1", m1); err != nil {
		t.Fatalf("append m1: %v", err)
	}
	if err := s.AppendMessage("sess-1", m2); err != nil {
		t.Fatalf("append m2: %v", err)
	}

	msgs, err := s.LoadMessages("sess-1")
	if err != nil {
		t.Fatalf("load messages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].ID != m1.ID || msgs[1].ID != m2.ID {
		t.Fatalf("expected append order preserved, got %s then %s", msgs[0].ID, msgs[1].ID)
	}
	if msgs[0].Text() != "hello" || msgs[1].Text() != "hi there" {
		t.Fatalf("unexpected text content: %+v", msgs)
	}
}

func TestUpdateMessageRewritesContent(t *testing.T) {
	s := newTestStore(t)

	m := message.NewText("sess-1", message.RoleUser, "original")
	if err := s.AppendMessage("sess-1", m); err != nil {
		t.Fatalf("append: %v", err)
	}

	m.AddText(" edited")
	if err := s.UpdateMessage("sess-1", m); err != nil {
		t.Fatalf("update: %v", err)
	}

	msgs, err := s.LoadMessages("sess-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected update in place, got %d messages", len(msgs))
	}
	if msgs[0].Text() != "original edited" {
		t.Fatalf("expected updated text, got %q", msgs[0].Text())
	}
}

func TestLoadMetadataUnknownSessionErrors(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.LoadMetadata("nope"); err == nil {
		t.Fatalf("expected error for unknown session")
	}
}

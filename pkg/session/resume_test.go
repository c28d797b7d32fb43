package session

import (
	"errors"
	"testing"
	"time"

	"github.com/cexll/agentsdk-core/pkg/message"
	"github.com/cexll/agentsdk-core/pkg/persist"
	"github.com/cexll/agentsdk-core/pkg/tool"
)

type fakeResumeStore struct {
	meta        persist.Metadata
	loadMetaErr error
	loadMsgsErr error
	messages    []*message.Message
}

func (s *fakeResumeStore) SaveMetadata(persist.Metadata) error { return nil }
func (s *fakeResumeStore) LoadMetadata(string) (persist.Metadata, error) {
	return s.meta, s.loadMetaErr
}
func (s *fakeResumeStore) AppendMessage(string, *message.Message) error { return nil }
func (s *fakeResumeStore) UpdateMessage(string, *message.Message) error { return nil }
func (s *fakeResumeStore) LoadMessages(string) ([]*message.Message, error) {
	return s.messages, s.loadMsgsErr
}

func resumeTestOptions(t *testing.T) Options {
	t.Helper()
	registry := tool.NewRegistry()
	if err := registry.Register(&fakeTool{name: "read"}); err != nil {
		t.Fatalf("register tool: %v", err)
	}
	return Options{
		Provider:   &fakeProvider{},
		Tools:      registry,
		WorkingDir: t.TempDir(),
	}
}

// spec §7.8: "resume returns nothing" for a missing session.
func TestResumeMissingSessionReturnsError(t *testing.T) {
	store := &fakeResumeStore{loadMetaErr: errors.New("not found")}
	_, err := Resume("missing-id", store, resumeTestOptions(t))
	if err == nil {
		t.Fatal("expected an error resuming a missing session")
	}
}

// spec §7.8: corrupt messages.json is replaced with an empty list and
// logged, rather than failing the whole resume.
func TestResumeCorruptMessagesReplacedWithEmptyList(t *testing.T) {
	store := &fakeResumeStore{
		meta: persist.Metadata{
			ID:        "s1",
			AgentType: string(AgentGeneral),
			Title:     "kept title",
			CreatedAt: time.Now(),
		},
		loadMsgsErr: errors.New("corrupt json"),
	}

	var logged []string
	opts := resumeTestOptions(t)
	opts.Callbacks.OnError = func(msg string) { logged = append(logged, msg) }

	s, err := Resume("s1", store, opts)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if len(s.Messages()) != 0 {
		t.Fatalf("expected empty message list, got %d", len(s.Messages()))
	}
	if s.Title() != "kept title" {
		t.Fatalf("expected metadata title to survive, got %q", s.Title())
	}
	if len(logged) == 0 {
		t.Fatal("expected the corrupt messages load to be logged")
	}
}

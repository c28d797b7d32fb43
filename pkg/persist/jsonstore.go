package persist

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cexll/agentsdk-core/pkg/message"
)

// JSONStore keeps one sessions.json (a map of id -> Metadata) plus one
// messages.json per session, each written via write-temp-then-rename (spec
// §5 Persistence atomicity). A single mutex guards the whole store, matching
// the spec's "mutex-protected; all CRUD holds the mutex for the duration of
// a JSON read-modify-write cycle" — the store is small enough in the
// expected deployment that per-session locking buys nothing.
type JSONStore struct {
	mu  sync.Mutex
	dir string
}

// NewJSONStore returns a store rooted at dir, creating it if necessary.
func NewJSONStore(dir string) (*JSONStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("persist: json store dir is empty")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("persist: mkdir %s: %w", dir, err)
	}
	return &JSONStore{dir: dir}, nil
}

func (s *JSONStore) sessionsPath() string { return filepath.Join(s.dir, "sessions.json") }

func (s *JSONStore) messagesPath(sessionID string) string {
	return filepath.Join(s.dir, sanitizeID(sessionID)+".messages.json")
}

func sanitizeID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return "default"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, id)
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("persist: write temp %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("persist: rename %s -> %s: %w", tmp, path, err)
	}
	return nil
}

func (s *JSONStore) readSessions() (map[string]Metadata, error) {
	data, err := os.ReadFile(s.sessionsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]Metadata{}, nil
		}
		return nil, fmt.Errorf("persist: read sessions.json: %w", err)
	}
	out := map[string]Metadata{}
	if len(data) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("persist: decode sessions.json: %w", err)
	}
	return out, nil
}

// SaveMetadata implements Store.
func (s *JSONStore) SaveMetadata(meta Metadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.readSessions()
	if err != nil {
		return err
	}
	if existing, ok := all[meta.ID]; ok && !existing.CreatedAt.IsZero() {
		meta.CreatedAt = existing.CreatedAt
	}
	all[meta.ID] = meta
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("persist: encode sessions.json: %w", err)
	}
	return writeAtomic(s.sessionsPath(), data)
}

// LoadMetadata implements Store.
func (s *JSONStore) LoadMetadata(sessionID string) (Metadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.readSessions()
	if err != nil {
		return Metadata{}, err
	}
	meta, ok := all[sessionID]
	if !ok {
		return Metadata{}, fmt.Errorf("persist: no metadata for session %q", sessionID)
	}
	return meta, nil
}

func (s *JSONStore) readMessages(sessionID string) ([]*message.Message, error) {
	data, err := os.ReadFile(s.messagesPath(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("persist: read messages: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("persist: decode messages: %w", err)
	}
	out := make([]*message.Message, 0, len(raw))
	for _, r := range raw {
		m, err := message.FromJSON(r)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *JSONStore) writeMessages(sessionID string, msgs []*message.Message) error {
	raw := make([]json.RawMessage, 0, len(msgs))
	for _, m := range msgs {
		data, err := m.ToJSON()
		if err != nil {
			return fmt.Errorf("persist: encode message %s: %w", m.ID, err)
		}
		raw = append(raw, data)
	}
	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("persist: encode messages: %w", err)
	}
	return writeAtomic(s.messagesPath(sessionID), data)
}

// AppendMessage implements Store.
func (s *JSONStore) AppendMessage(sessionID string, msg *message.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs, err := s.readMessages(sessionID)
	if err != nil {
		return err
	}
	msgs = append(msgs, msg)
	return s.writeMessages(sessionID, msgs)
}

// UpdateMessage implements Store.
func (s *JSONStore) UpdateMessage(sessionID string, msg *message.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs, err := s.readMessages(sessionID)
	if err != nil {
		return err
	}
	found := false
	for i, m := range msgs {
		if m.ID == msg.ID {
			msgs[i] = msg
			found = true
			break
		}
	}
	if !found {
		msgs = append(msgs, msg)
	}
	return s.writeMessages(sessionID, msgs)
}

// LoadMessages implements Store.
func (s *JSONStore) LoadMessages(sessionID string) ([]*message.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readMessages(sessionID)
}

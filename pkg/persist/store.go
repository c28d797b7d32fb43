// Package persist defines the storage contract the session engine depends
// on (never a concrete backend), plus the metadata record written alongside
// a session's messages. Concrete implementations live in sibling files
// (JSON file store) and sibling packages (sqlitestore).
package persist

import (
	"time"

	"github.com/cexll/agentsdk-core/pkg/message"
)

// Metadata is the session-level record kept separate from the message log,
// per spec §4.5 Persistence: "title, updated_at, total_usage, parent_id,
// agent_type ... written whenever a message is added or the title is set."
type Metadata struct {
	ID        string         `json:"id"`
	ParentID  string         `json:"parent_id,omitempty"`
	AgentType string         `json:"agent_type"`
	Title     string         `json:"title,omitempty"`
	State     string         `json:"state"`
	Usage     message.Usage  `json:"total_usage"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Store is the persistence contract the session engine drives. Every method
// must be safe for concurrent use; implementations hold their own mutex
// guarding the read-modify-write cycle for a given session id (spec §5
// Shared resources: "the message store — mutex-protected; all CRUD holds
// the mutex for the duration of a JSON read-modify-write cycle").
type Store interface {
	// SaveMetadata writes (creating or overwriting) a session's metadata
	// record. CreatedAt must be preserved from the first write.
	SaveMetadata(meta Metadata) error
	// LoadMetadata fetches a session's metadata record, for Resume.
	LoadMetadata(sessionID string) (Metadata, error)

	// AppendMessage persists a newly added message.
	AppendMessage(sessionID string, msg *message.Message) error
	// UpdateMessage rewrites an already-persisted message (used by pruning,
	// which mutates tool-result parts in place).
	UpdateMessage(sessionID string, msg *message.Message) error
	// LoadMessages returns every message for sessionID in append order, for
	// Resume.
	LoadMessages(sessionID string) ([]*message.Message, error)
}

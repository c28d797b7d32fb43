package session

import (
	"fmt"

	"github.com/cexll/agentsdk-core/pkg/persist"
)

// Resume implements spec §4.5 Resume: "given a session id and a store,
// fetch the metadata, create a session with the stored agent type,
// overwrite the generated id, and load all messages from the store. Fire a
// SessionCreated event."
func Resume(sessionID string, store persist.Store, opts Options) (*Session, error) {
	if store == nil {
		return nil, fmt.Errorf("session: resume requires a store")
	}
	meta, err := store.LoadMetadata(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session: resume %s: %w", sessionID, err)
	}

	opts.Store = store
	opts.Agent.Type = AgentType(meta.AgentType)
	opts.ParentID = meta.ParentID
	opts.resumeID = sessionID

	s, err := New(opts)
	if err != nil {
		return nil, err
	}

	s.title = meta.Title
	s.usage = meta.Usage
	s.createdAt = meta.CreatedAt

	// Spec §7.8 "Resume failure": a corrupt messages.json is replaced with
	// an empty list and logged rather than failing the whole resume — only
	// a missing session (LoadMetadata above) returns nothing.
	msgs, err := store.LoadMessages(sessionID)
	if err != nil {
		if s.callbacks.OnError != nil {
			s.callbacks.OnError(fmt.Sprintf("session: resume %s: corrupt messages, starting empty: %v", sessionID, err))
		}
		msgs = nil
	}
	s.messages = msgs

	s.emitEvent(Event{Kind: EventSessionCreated, SessionID: s.id})
	return s, nil
}

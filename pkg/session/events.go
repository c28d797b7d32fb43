package session

// EventKind discriminates the structured observability events spec §4.5
// calls out separately from the named Callbacks ("emit a ToolCallStarted
// event", "emit a ContextCompacted event", "fire a SessionCreated event").
type EventKind string

const (
	EventSessionCreated    EventKind = "session_created"
	EventToolCallStarted   EventKind = "tool_call_started"
	EventToolCallCompleted EventKind = "tool_call_completed"
	EventContextCompacted  EventKind = "context_compacted"
)

// Event is the payload delivered to Callbacks.OnEvent.
type Event struct {
	Kind      EventKind
	SessionID string

	// ToolCallStarted / ToolCallCompleted
	ToolCallID string
	ToolName   string

	// ContextCompacted
	TokensBefore int
	TokensAfter  int
}

func (s *Session) emitEvent(e Event) {
	if s.callbacks.OnEvent == nil {
		return
	}
	if e.SessionID == "" {
		e.SessionID = s.id
	}
	s.callbacks.OnEvent(e)
}

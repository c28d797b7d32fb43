package session

import (
	toolbuiltin "github.com/cexll/agentsdk-core/pkg/tool/builtin"
)

// WireBuiltinTools rebinds the task and question builtin tools (if present
// in the session's registry) to this session's TaskRunner and
// Callbacks.QuestionHandler. Registries are typically built once at process
// startup, before any session exists, so toolbuiltin.NewTaskTool/
// NewQuestionTool are registered with a nil collaborator; call this once
// per top-level session after New to complete the wiring.
func (s *Session) WireBuiltinTools() {
	if t, err := s.tools.Get("task"); err == nil {
		if tt, ok := t.(*toolbuiltin.TaskTool); ok {
			tt.SetRunner(s.TaskRunner())
		}
	}
	if s.callbacks.QuestionHandler == nil {
		return
	}
	if t, err := s.tools.Get("question"); err == nil {
		if qt, ok := t.(*toolbuiltin.QuestionTool); ok {
			qt.SetAsker(s.callbacks.QuestionHandler)
		}
	}
}

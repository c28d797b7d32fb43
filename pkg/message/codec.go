package message

import (
	"encoding/json"
	"fmt"
)

// storageDoc mirrors the §4.1 storage JSON schema exactly.
type storageDoc struct {
	ID          string          `json:"id"`
	Role        string          `json:"role"`
	Finished    bool            `json:"finished"`
	FinishReas  string          `json:"finish_reason"`
	IsSummary   bool            `json:"is_summary"`
	IsSynthetic bool            `json:"is_synthetic"`
	ParentID    string          `json:"parent_id,omitempty"`
	SessionID   string          `json:"session_id"`
	Parts       []storagePart   `json:"parts"`
	Usage       storageUsage    `json:"usage"`
	CreatedAt   int64           `json:"created_at"`
}

type storageUsage struct {
	InputTokens      int `json:"input_tokens"`
	OutputTokens     int `json:"output_tokens"`
	CacheReadTokens  int `json:"cache_read_tokens"`
	CacheWriteTokens int `json:"cache_write_tokens"`
}

type storagePart struct {
	Type string `json:"type"`

	// text
	Text string `json:"text,omitempty"`

	// tool_call
	ID        string         `json:"id,omitempty"`
	Name      string         `json:"name,omitempty"`
	Arguments map[string]any `json:"arguments,omitempty"`
	Started   bool           `json:"started,omitempty"`
	Completed bool           `json:"completed,omitempty"`

	// tool_result
	CallID      string         `json:"call_id,omitempty"`
	ToolName    string         `json:"tool_name,omitempty"`
	Output      string         `json:"output,omitempty"`
	IsError     bool           `json:"is_error,omitempty"`
	Title       string         `json:"title,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Compacted   bool           `json:"compacted,omitempty"`
	CompactedAt int64          `json:"compacted_at,omitempty"`

	// image
	URI       string `json:"uri,omitempty"`
	Path      string `json:"path,omitempty"`
	MediaType string `json:"media_type,omitempty"`

	// file
	Content   string `json:"content,omitempty"`
	Truncated bool   `json:"truncated,omitempty"`

	// compaction / subtask
	ParentRefID string `json:"parent_ref_id,omitempty"`
	Complete    bool   `json:"complete,omitempty"`
	TaskID      string `json:"task_id,omitempty"`
	Prompt      string `json:"prompt,omitempty"`
	AgentType   string `json:"agent_type,omitempty"`
	Result      string `json:"result,omitempty"`
}

// ToJSON encodes m into the §4.1 storage JSON schema.
func (m *Message) ToJSON() ([]byte, error) {
	doc := storageDoc{
		ID:          m.ID,
		Role:        string(m.Role),
		Finished:    m.Finished,
		FinishReas:  string(m.FinishReas),
		IsSummary:   m.IsSummary,
		IsSynthetic: m.IsSynthetic,
		ParentID:    m.ParentID,
		SessionID:   m.SessionID,
		Usage: storageUsage{
			InputTokens:      m.Usage.InputTokens,
			OutputTokens:     m.Usage.OutputTokens,
			CacheReadTokens:  m.Usage.CacheReadTokens,
			CacheWriteTokens: m.Usage.CacheWriteTokens,
		},
		CreatedAt: m.CreatedAt.Unix(),
	}

	for _, p := range m.Parts {
		sp, err := encodePart(p)
		if err != nil {
			return nil, err
		}
		doc.Parts = append(doc.Parts, sp)
	}

	return json.Marshal(doc)
}

func encodePart(p Part) (storagePart, error) {
	switch v := p.(type) {
	case *TextPart:
		return storagePart{Type: string(PartText), Text: v.Text}, nil
	case *ToolCallPart:
		return storagePart{
			Type:      string(PartToolCall),
			ID:        v.ID,
			Name:      v.Name,
			Arguments: v.Arguments,
			Started:   v.Started,
			Completed: v.Completed,
		}, nil
	case *ToolResultPart:
		sp := storagePart{
			Type:      string(PartToolResult),
			CallID:    v.CallID,
			ToolName:  v.ToolName,
			Output:    Sanitize(v.Output),
			IsError:   v.IsError,
			Title:     v.Title,
			Metadata:  v.Metadata,
			Compacted: v.Compacted,
		}
		if !v.CompactedAt.IsZero() {
			sp.CompactedAt = v.CompactedAt.Unix()
		}
		return sp, nil
	case *ImagePart:
		return storagePart{Type: string(PartImage), URI: v.URI, Path: v.Path, MediaType: v.MediaType}, nil
	case *FilePart:
		return storagePart{Type: string(PartFile), Path: v.Path, Content: v.Content, Truncated: v.Truncated}, nil
	case *CompactionPart:
		return storagePart{Type: string(PartCompaction), ParentRefID: v.ParentID, Complete: v.Complete}, nil
	case *SubtaskPart:
		return storagePart{Type: string(PartSubtask), TaskID: v.TaskID, Prompt: v.Prompt, AgentType: v.AgentType, Complete: v.Complete, Result: v.Result}, nil
	default:
		return storagePart{}, fmt.Errorf("message: unknown part type %T", p)
	}
}

// FromJSON decodes the §4.1 storage JSON schema into a Message.
func FromJSON(data []byte) (*Message, error) {
	var doc storageDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("message: decode: %w", err)
	}

	m := &Message{
		ID:          doc.ID,
		SessionID:   doc.SessionID,
		Role:        Role(doc.Role),
		ParentID:    doc.ParentID,
		Finished:    doc.Finished,
		FinishReas:  FinishReason(doc.FinishReas),
		IsSummary:   doc.IsSummary,
		IsSynthetic: doc.IsSynthetic,
		Usage: Usage{
			InputTokens:      doc.Usage.InputTokens,
			OutputTokens:     doc.Usage.OutputTokens,
			CacheReadTokens:  doc.Usage.CacheReadTokens,
			CacheWriteTokens: doc.Usage.CacheWriteTokens,
		},
		CreatedAt: unixTime(doc.CreatedAt),
	}

	for _, sp := range doc.Parts {
		p, err := decodePart(sp)
		if err != nil {
			return nil, err
		}
		m.Parts = append(m.Parts, p)
	}

	return m, nil
}

func decodePart(sp storagePart) (Part, error) {
	switch PartType(sp.Type) {
	case PartText:
		return &TextPart{Text: sp.Text}, nil
	case PartToolCall:
		return &ToolCallPart{ID: sp.ID, Name: sp.Name, Arguments: sp.Arguments, Started: sp.Started, Completed: sp.Completed}, nil
	case PartToolResult:
		tr := &ToolResultPart{
			CallID:    sp.CallID,
			ToolName:  sp.ToolName,
			Output:    sp.Output,
			IsError:   sp.IsError,
			Title:     sp.Title,
			Metadata:  sp.Metadata,
			Compacted: sp.Compacted,
		}
		if sp.CompactedAt != 0 {
			tr.CompactedAt = unixTime(sp.CompactedAt)
		}
		return tr, nil
	case PartImage:
		return &ImagePart{URI: sp.URI, Path: sp.Path, MediaType: sp.MediaType}, nil
	case PartFile:
		return &FilePart{Path: sp.Path, Content: sp.Content, Truncated: sp.Truncated}, nil
	case PartCompaction:
		return &CompactionPart{ParentID: sp.ParentRefID, Complete: sp.Complete}, nil
	case PartSubtask:
		return &SubtaskPart{TaskID: sp.TaskID, Prompt: sp.Prompt, AgentType: sp.AgentType, Complete: sp.Complete, Result: sp.Result}, nil
	default:
		return nil, fmt.Errorf("message: unknown stored part type %q", sp.Type)
	}
}

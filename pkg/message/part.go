package message

import "time"

// PartType discriminates the kind of a message part for storage tagging.
type PartType string

const (
	PartText       PartType = "text"
	PartToolCall   PartType = "tool_call"
	PartToolResult PartType = "tool_result"
	PartImage      PartType = "image"
	PartFile       PartType = "file"
	PartCompaction PartType = "compaction"
	PartSubtask    PartType = "subtask"
)

// Part is implemented by every message-part variant. It is intentionally a
// closed set (see the PartType constants); consumers should exhaustively
// switch on Type().
type Part interface {
	Type() PartType
}

// TextPart is free-form assistant or user text.
type TextPart struct {
	Text string
}

func (*TextPart) Type() PartType { return PartText }

// ToolCallPart is a model-issued instruction to invoke a named tool.
type ToolCallPart struct {
	ID        string
	Name      string
	Arguments map[string]any
	Started   bool
	Completed bool
}

func (*ToolCallPart) Type() PartType { return PartToolCall }

// ToolResultPart answers a prior ToolCallPart by CallID.
type ToolResultPart struct {
	CallID     string
	ToolName   string
	Output     string
	IsError    bool
	Title      string
	Metadata   map[string]any
	Compacted  bool
	CompactedAt time.Time
}

func (*ToolResultPart) Type() PartType { return PartToolResult }

// ImagePart carries either a data URI or a filesystem path.
type ImagePart struct {
	URI       string
	Path      string
	MediaType string
}

func (*ImagePart) Type() PartType { return PartImage }

// FilePart carries a path plus its (possibly truncated) content.
type FilePart struct {
	Path      string
	Content   string
	Truncated bool
}

func (*FilePart) Type() PartType { return PartFile }

// CompactionPart marks the boundary where a summary message replaces a
// pre-summary parent.
type CompactionPart struct {
	ParentID string
	Complete bool
}

func (*CompactionPart) Type() PartType { return PartCompaction }

// SubtaskPart records a child session spawned by the Task tool.
type SubtaskPart struct {
	TaskID    string
	Prompt    string
	AgentType string
	Complete  bool
	Result    string
}

func (*SubtaskPart) Type() PartType { return PartSubtask }

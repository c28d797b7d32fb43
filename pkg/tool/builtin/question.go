package toolbuiltin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/cexll/agentsdk-core/pkg/tool"
)

const questionDescription = `Asks the user one or more clarifying questions and waits for a reply.

Use this when requirements are ambiguous or a decision needs the user's input before continuing.
Each question may offer a fixed set of options; the user can always answer with free text instead.`

var questionSchema = &tool.JSONSchema{
	Type: "object",
	Properties: map[string]*tool.JSONSchema{
		"questions": {
			Type:        "array",
			Description: "One or more questions to ask.",
			Items: &tool.JSONSchema{
				Type: "object",
				Properties: map[string]*tool.JSONSchema{
					"question":     {Type: "string"},
					"header":       {Type: "string"},
					"multi_select": {Type: "boolean"},
					"options": {
						Type: "array",
						Items: &tool.JSONSchema{
							Type: "object",
							Properties: map[string]*tool.JSONSchema{
								"label":       {Type: "string"},
								"description": {Type: "string"},
							},
						},
					},
				},
				Required: []string{"question"},
			},
		},
	},
	Required: []string{"questions"},
}

type QuestionOption struct {
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

type Question struct {
	Question    string           `json:"question"`
	Header      string           `json:"header,omitempty"`
	Options     []QuestionOption `json:"options,omitempty"`
	MultiSelect bool             `json:"multi_select,omitempty"`
}

// Asker delivers questions to a human (or another agent acting as one) and
// returns their answers keyed by question text. Injected so pkg/tool does
// not need a concrete UI/channel dependency.
type Asker func(ctx context.Context, questions []Question) (map[string]string, error)

// QuestionTool is AgentOnly: it is only meaningful inside a running session
// that has wired an Asker to an actual user-facing channel.
type QuestionTool struct {
	mu  sync.RWMutex
	ask Asker
}

func NewQuestionTool(ask Asker) *QuestionTool { return &QuestionTool{ask: ask} }

// SetAsker swaps the Asker after construction, mirroring TaskTool.SetRunner
// — a registry can be built before the session that owns the real asker
// exists, then wired once the session is ready.
func (q *QuestionTool) SetAsker(ask Asker) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ask = ask
}

func (q *QuestionTool) Name() string             { return "question" }
func (q *QuestionTool) Description() string      { return questionDescription }
func (q *QuestionTool) Schema() *tool.JSONSchema { return questionSchema }
func (q *QuestionTool) AgentOnly() bool          { return true }

func (q *QuestionTool) Execute(ctx context.Context, params map[string]any) (*tool.Result, error) {
	if ctx == nil {
		return nil, errors.New("context is nil")
	}
	if q == nil {
		return nil, errors.New("question tool is not initialised")
	}
	questions, err := parseQuestions(params)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data := map[string]any{"questions": questions}
	q.mu.RLock()
	ask := q.ask
	q.mu.RUnlock()
	if ask == nil {
		return &tool.Result{Success: true, Output: formatQuestions(questions), Data: data}, nil
	}

	answers, err := ask(ctx, questions)
	if err != nil {
		return nil, fmt.Errorf("ask user: %w", err)
	}
	if len(answers) > 0 {
		data["answers"] = answers
	}
	return &tool.Result{Success: true, Output: formatQuestions(questions), Data: data}, nil
}

func parseQuestions(params map[string]any) ([]Question, error) {
	raw, ok := params["questions"]
	if !ok {
		return nil, errors.New("questions is required")
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("questions must be an array, got %T", raw)
	}
	if len(list) == 0 {
		return nil, errors.New("questions cannot be empty")
	}
	out := make([]Question, len(list))
	for i, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("questions[%d] must be an object", i)
		}
		text, err := requiredString(obj, "question")
		if err != nil {
			return nil, fmt.Errorf("questions[%d]: %w", i, err)
		}
		q := Question{Question: text}
		if header, ok := obj["header"]; ok && header != nil {
			q.Header, _ = coerceString(header)
		}
		if ms, ok := obj["multi_select"]; ok && ms != nil {
			q.MultiSelect, _ = boolFromParam(ms)
		}
		if rawOpts, ok := obj["options"]; ok && rawOpts != nil {
			opts, ok := rawOpts.([]any)
			if !ok {
				return nil, fmt.Errorf("questions[%d].options must be an array", i)
			}
			for _, rawOpt := range opts {
				optObj, ok := rawOpt.(map[string]any)
				if !ok {
					continue
				}
				label, _ := coerceString(optObj["label"])
				desc, _ := coerceString(optObj["description"])
				q.Options = append(q.Options, QuestionOption{Label: label, Description: desc})
			}
		}
		out[i] = q
	}
	return out, nil
}

func formatQuestions(questions []Question) string {
	var b strings.Builder
	for _, q := range questions {
		b.WriteString(q.Question)
		b.WriteString("\n")
		for _, opt := range q.Options {
			fmt.Fprintf(&b, "  - %s", opt.Label)
			if opt.Description != "" {
				fmt.Fprintf(&b, ": %s", opt.Description)
			}
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

package tool

// JSONSchema captures the subset of JSON Schema the tool registry needs for
// parameter validation and for deriving each provider's wire tool
// declaration.
type JSONSchema struct {
	Type       string                 `json:"type"`
	Properties map[string]*JSONSchema `json:"properties,omitempty"`
	Required   []string               `json:"required,omitempty"`
	Enum       []any                  `json:"enum,omitempty"`
	Description string                `json:"description,omitempty"`
	Pattern    string                 `json:"pattern,omitempty"`
	Minimum    *float64               `json:"minimum,omitempty"`
	Maximum    *float64               `json:"maximum,omitempty"`
	Items      *JSONSchema            `json:"items,omitempty"`
}

// ToMap renders the schema into the plain map[string]any shape
// message.ToolDefinition.Schema carries, since each vendor wire format
// expects raw JSON-Schema-as-object rather than a typed struct.
func (s *JSONSchema) ToMap() map[string]any {
	if s == nil {
		return map[string]any{"type": "object", "properties": map[string]any{}}
	}
	m := map[string]any{"type": s.Type}
	if s.Description != "" {
		m["description"] = s.Description
	}
	if len(s.Properties) > 0 {
		props := make(map[string]any, len(s.Properties))
		for k, v := range s.Properties {
			props[k] = v.ToMap()
		}
		m["properties"] = props
	} else if s.Type == "object" {
		m["properties"] = map[string]any{}
	}
	if len(s.Required) > 0 {
		m["required"] = s.Required
	}
	if len(s.Enum) > 0 {
		m["enum"] = s.Enum
	}
	if s.Pattern != "" {
		m["pattern"] = s.Pattern
	}
	if s.Minimum != nil {
		m["minimum"] = *s.Minimum
	}
	if s.Maximum != nil {
		m["maximum"] = *s.Maximum
	}
	if s.Items != nil {
		m["items"] = s.Items.ToMap()
	}
	return m
}

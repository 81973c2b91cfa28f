// Package plan holds the step/tool-call model produced by the planner.
package plan

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Plan is an ordered list of steps.
type Plan struct {
	Steps []Step `json:"steps"`
}

// Step groups tool calls under a title.
type Step struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	ToolCalls []ToolCall `json:"tool_calls"`
}

// ToolCall is one named tool invocation.
type ToolCall struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args"`
}

// Schema is the informal plan shape shown to the model.
var Schema = map[string]any{
	"steps": []any{
		map[string]any{
			"id":    "string",
			"title": "string",
			"tool_calls": []any{
				map[string]any{"tool": "string", "args": map[string]any{}},
			},
		},
	},
}

// Decode converts an extracted object into a Plan. It expects a document
// that already passed contract.ValidateDocument, but tolerates loose
// values: numeric ids become strings and missing args become empty maps.
func Decode(doc map[string]any) (Plan, error) {
	rawSteps, ok := doc["steps"].([]any)
	if !ok {
		return Plan{}, fmt.Errorf("plan has no steps list")
	}

	p := Plan{Steps: make([]Step, 0, len(rawSteps))}
	for i, rs := range rawSteps {
		sm, ok := rs.(map[string]any)
		if !ok {
			return Plan{}, fmt.Errorf("step[%d] is not an object", i)
		}
		step := Step{
			ID:    stringify(sm["id"]),
			Title: stringify(sm["title"]),
		}
		if step.ID == "" {
			step.ID = fmt.Sprintf("step-%d", i+1)
		}

		calls, _ := sm["tool_calls"].([]any)
		for j, rc := range calls {
			cm, ok := rc.(map[string]any)
			if !ok {
				return Plan{}, fmt.Errorf("step[%d].tool_calls[%d] is not an object", i, j)
			}
			args, _ := cm["args"].(map[string]any)
			if args == nil {
				args = map[string]any{}
			}
			step.ToolCalls = append(step.ToolCalls, ToolCall{
				Tool: stringify(cm["tool"]),
				Args: args,
			})
		}
		p.Steps = append(p.Steps, step)
	}
	return p, nil
}

// ToolNames lists every tool referenced, in execution order.
func (p Plan) ToolNames() []string {
	var names []string
	for _, s := range p.Steps {
		for _, c := range s.ToolCalls {
			names = append(names, c.Tool)
		}
	}
	return names
}

// CallCount returns the total number of tool calls.
func (p Plan) CallCount() int {
	n := 0
	for _, s := range p.Steps {
		n += len(s.ToolCalls)
	}
	return n
}

// MissingMentions returns the needles that do not appear anywhere in the
// serialized plan. Used to check a master plan covers required files.
func (p Plan) MissingMentions(needles []string) []string {
	data, _ := json.Marshal(p)
	text := string(data)
	var missing []string
	for _, n := range needles {
		if !strings.Contains(text, n) {
			missing = append(missing, n)
		}
	}
	return missing
}

// Load reads a saved plan from disk.
func Load(path string) (Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Plan{}, fmt.Errorf("failed to read plan %s: %w", path, err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return Plan{}, fmt.Errorf("failed to parse plan %s: %w", path, err)
	}
	return Decode(doc)
}

// Save writes the plan as indented JSON, creating parent directories.
func Save(path string, p Plan) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal plan: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	default:
		return fmt.Sprint(t)
	}
}

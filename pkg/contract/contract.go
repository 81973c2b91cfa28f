// Package contract enforces the allow/forbid tool policy on plans before
// anything is executed.
package contract

import (
	"fmt"

	"github.com/alantheprice/director/pkg/plan"
)

// Contract is the tool policy a plan must satisfy.
// An empty Allowed list places no restriction; Forbidden always applies and
// is checked first. Rules are advisory text passed to the model only.
type Contract struct {
	Allowed   []string `json:"allowed_tools" mapstructure:"allowed_tools"`
	Forbidden []string `json:"forbidden_tools" mapstructure:"forbidden_tools"`
	Rules     []string `json:"rules" mapstructure:"rules"`
}

// CheckTool applies the forbid and allow rules to a single tool name.
func (c Contract) CheckTool(name string) (bool, string) {
	if len(c.Forbidden) > 0 && contains(c.Forbidden, name) {
		return false, fmt.Sprintf("tool forbidden by contract: %s", name)
	}
	if len(c.Allowed) > 0 && !contains(c.Allowed, name) {
		return false, fmt.Sprintf("tool not allowed by contract: %s", name)
	}
	return true, "ok"
}

// ValidateDocument checks a freshly extracted plan object, including the
// structural shape that a typed Plan cannot express.
func ValidateDocument(doc map[string]any, c Contract) (bool, string) {
	steps, ok := doc["steps"].([]any)
	if !ok || len(steps) == 0 {
		return false, "plan.steps must be a non-empty list"
	}

	for si, rawStep := range steps {
		step, ok := rawStep.(map[string]any)
		if !ok {
			return false, fmt.Sprintf("step[%d] must be an object", si)
		}

		rawCalls, present := step["tool_calls"]
		if !present || rawCalls == nil {
			continue
		}
		calls, ok := rawCalls.([]any)
		if !ok {
			return false, fmt.Sprintf("step[%d].tool_calls must be a list", si)
		}

		for ti, rawCall := range calls {
			call, _ := rawCall.(map[string]any)
			name, _ := call["tool"].(string)
			if name == "" {
				return false, fmt.Sprintf("step[%d].tool_calls[%d].tool must be a non-empty string", si, ti)
			}
			if ok, reason := c.CheckTool(name); !ok {
				return false, reason
			}
		}
	}
	return true, "ok"
}

// Validate checks an already decoded plan.
func Validate(p plan.Plan, c Contract) (bool, string) {
	if len(p.Steps) == 0 {
		return false, "plan.steps must be a non-empty list"
	}
	for si, step := range p.Steps {
		for ti, call := range step.ToolCalls {
			if call.Tool == "" {
				return false, fmt.Sprintf("step[%d].tool_calls[%d].tool must be a non-empty string", si, ti)
			}
			if ok, reason := c.CheckTool(call.Tool); !ok {
				return false, reason
			}
		}
	}
	return true, "ok"
}

func contains(list []string, name string) bool {
	for _, item := range list {
		if item == name {
			return true
		}
	}
	return false
}

package planner

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/alantheprice/director/pkg/contract"
	"github.com/alantheprice/director/pkg/llm"
	"github.com/alantheprice/director/pkg/plan"
)

// ReplanState carries what the next planning attempt must repair.
type ReplanState struct {
	Attempt   int
	LastRaw   string
	LastError string
}

// BuildMessages assembles the planning request. The previous raw output is
// cut to limit characters.
func BuildMessages(systemPrompt string, env map[string]any, goal string, c contract.Contract, rs ReplanState, limit int) []llm.Message {
	osName := "unknown"
	if v, ok := env["os"].(string); ok && v != "" {
		osName = v
	}

	var repair strings.Builder
	if rs.LastError != "" {
		repair.WriteString("\nREPLAN REQUIRED.\n")
		fmt.Fprintf(&repair, "Reason: %s\n", rs.LastError)
		repair.WriteString("Fix the plan to satisfy the schema and constraints.\n")
	}
	if rs.LastRaw != "" {
		fmt.Fprintf(&repair, "\nPrevious plan (raw, truncated):\n%s\n", Truncate(rs.LastRaw, limit))
	}

	var user strings.Builder
	fmt.Fprintf(&user, "Detected OS: %s\n", osName)
	fmt.Fprintf(&user, "env_info: %s\n\n", mustJSON(env))
	fmt.Fprintf(&user, "Goal: %s\n\n", goal)
	user.WriteString(repair.String())
	user.WriteString("\nYou must return ONLY ONE JSON object, no markdown, no explanations.\n\n")
	fmt.Fprintf(&user, "Schema:\n%s\n\n", mustJSON(plan.Schema))
	user.WriteString("Constraints:\n")
	fmt.Fprintf(&user, "- allowed_tools: %s\n", mustJSON(nonNil(c.Allowed)))
	fmt.Fprintf(&user, "- forbidden_tools: %s\n", mustJSON(nonNil(c.Forbidden)))
	fmt.Fprintf(&user, "- rules: %s\n", mustJSON(nonNil(c.Rules)))

	return []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: user.String()},
	}
}

// Truncate returns at most limit characters of s.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}

func mustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(data)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

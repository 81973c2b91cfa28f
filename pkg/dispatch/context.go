package dispatch

import (
	"fmt"
	"strings"
)

// BuildArgs are the resolved arguments of the last run_build call.
type BuildArgs struct {
	ToolchainPath string
	ProjectPath   string
	ProjectName   string
	Method        string
	LogFile       string
}

// ExecutionContext collects facts learned while one plan runs, so later
// calls can omit arguments an earlier call already established. It is owned
// by a single run and is not safe for concurrent use.
type ExecutionContext struct {
	ToolchainPath string
	ProjectPath   string
	ProjectName   string
	LastBuild     *BuildArgs

	env   map[string]any
	facts map[string]string

	seq             int
	lastSourceWrite int
	lastBuildOK     int
}

// NewExecutionContext starts an empty context over the given environment facts.
func NewExecutionContext(env map[string]any) *ExecutionContext {
	if env == nil {
		env = map[string]any{}
	}
	return &ExecutionContext{env: env, facts: map[string]string{}}
}

// Env returns the environment facts the run started with.
func (c *ExecutionContext) Env() map[string]any {
	return c.env
}

// Set records a fact. The well-known keys also update the typed fields.
func (c *ExecutionContext) Set(key, value string) {
	switch key {
	case "toolchain_path":
		c.ToolchainPath = value
	case "project_path":
		c.ProjectPath = value
	case "project_name":
		c.ProjectName = value
	}
	c.facts[key] = value
}

// Get looks up a fact, including the typed fields.
func (c *ExecutionContext) Get(key string) (string, bool) {
	switch key {
	case "toolchain_path":
		return c.ToolchainPath, c.ToolchainPath != ""
	case "project_path":
		return c.ProjectPath, c.ProjectPath != ""
	case "project_name":
		return c.ProjectName, c.ProjectName != ""
	}
	v, ok := c.facts[key]
	return v, ok
}

// Snapshot returns every fact as a plain map, for logging.
func (c *ExecutionContext) Snapshot() map[string]string {
	out := make(map[string]string, len(c.facts)+3)
	for k, v := range c.facts {
		out[k] = v
	}
	for _, k := range []string{"toolchain_path", "project_path", "project_name"} {
		if v, ok := c.Get(k); ok {
			out[k] = v
		}
	}
	return out
}

// MarkSourceWritten records that a source file changed.
func (c *ExecutionContext) MarkSourceWritten() {
	c.seq++
	c.lastSourceWrite = c.seq
}

// MarkBuild records a build-type call and its outcome.
func (c *ExecutionContext) MarkBuild(args BuildArgs, ok bool) {
	c.seq++
	b := args
	c.LastBuild = &b
	if ok {
		c.lastBuildOK = c.seq
	}
}

// BuildSucceeded reports whether any build in this run succeeded.
func (c *ExecutionContext) BuildSucceeded() bool {
	return c.lastBuildOK > 0
}

// NeedsRebuild reports whether a source was written and no build has
// succeeded since.
func (c *ExecutionContext) NeedsRebuild() bool {
	return c.lastSourceWrite > c.lastBuildOK
}

// RebuildArgs returns arguments for a synthesized run_build call. Fields
// left empty are filled by context injection.
func (c *ExecutionContext) RebuildArgs() map[string]any {
	args := map[string]any{}
	if c.LastBuild == nil {
		return args
	}
	set := func(k, v string) {
		if v != "" {
			args[k] = v
		}
	}
	set("toolchain_path", c.LastBuild.ToolchainPath)
	set("project_path", c.LastBuild.ProjectPath)
	set("project_name", c.LastBuild.ProjectName)
	set("method", c.LastBuild.Method)
	set("log_file", c.LastBuild.LogFile)
	return args
}

// expand substitutes ${env_info.key} and ${ctx.key} placeholders. It reports
// false if any placeholder is left unresolved.
func (c *ExecutionContext) expand(s string) (string, bool) {
	for {
		start := strings.Index(s, "${")
		if start < 0 {
			return s, true
		}
		end := strings.Index(s[start:], "}")
		if end < 0 {
			return s, false
		}
		key := s[start+2 : start+end]
		var val string
		var ok bool
		switch {
		case strings.HasPrefix(key, "env_info."):
			var v any
			v, ok = c.env[strings.TrimPrefix(key, "env_info.")]
			if ok && v != nil {
				val = fmt.Sprint(v)
			} else {
				ok = false
			}
		case strings.HasPrefix(key, "ctx."):
			val, ok = c.Get(strings.TrimPrefix(key, "ctx."))
		}
		if !ok {
			return s, false
		}
		s = s[:start] + val + s[start+end+1:]
	}
}

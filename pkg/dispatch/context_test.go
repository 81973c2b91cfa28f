package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNeedsRebuild(t *testing.T) {
	c := NewExecutionContext(nil)
	assert.False(t, c.NeedsRebuild(), "nothing happened yet")

	c.MarkSourceWritten()
	assert.True(t, c.NeedsRebuild())
	assert.Empty(t, c.RebuildArgs())

	args := BuildArgs{ToolchainPath: "/u", ProjectPath: "/p", Method: "B.M"}
	c.MarkBuild(args, true)
	assert.False(t, c.NeedsRebuild())
	assert.True(t, c.BuildSucceeded())

	c.MarkSourceWritten()
	assert.True(t, c.NeedsRebuild())
	assert.Equal(t, map[string]any{"toolchain_path": "/u", "project_path": "/p", "method": "B.M"}, c.RebuildArgs())

	failed := NewExecutionContext(nil)
	failed.MarkBuild(args, false)
	assert.False(t, failed.NeedsRebuild(), "a failed build alone changes no sources")
	failed.MarkSourceWritten()
	failed.MarkBuild(args, false)
	assert.True(t, failed.NeedsRebuild())
}

func TestExpand(t *testing.T) {
	c := NewExecutionContext(map[string]any{"cwd": "/work"})
	c.Set("project_path", "/work/projects/P")

	got, ok := c.expand("${env_info.cwd}/sub")
	assert.True(t, ok)
	assert.Equal(t, "/work/sub", got)

	got, ok = c.expand("${ctx.project_path}/Assets")
	assert.True(t, ok)
	assert.Equal(t, "/work/projects/P/Assets", got)

	_, ok = c.expand("${env_info.missing}")
	assert.False(t, ok)
	_, ok = c.expand("${unterminated")
	assert.False(t, ok)

	got, ok = c.expand("plain")
	assert.True(t, ok)
	assert.Equal(t, "plain", got)
}

func TestContextFacts(t *testing.T) {
	c := NewExecutionContext(nil)
	c.Set("toolchain_path", "/opt/editor")
	c.Set("custom", "v")
	assert.Equal(t, "/opt/editor", c.ToolchainPath)
	v, ok := c.Get("custom")
	assert.True(t, ok)
	assert.Equal(t, "v", v)
	assert.Equal(t, map[string]string{"toolchain_path": "/opt/editor", "custom": "v"}, c.Snapshot())
}

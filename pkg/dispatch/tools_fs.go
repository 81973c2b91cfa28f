package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	tools "github.com/alantheprice/director/pkg/agent_tools"
)

// sourceExts are compiled file types. Writing one calls for a rebuild and
// their literal \n sequences are repaired.
var sourceExts = map[string]bool{
	".cs":     true,
	".shader": true,
	".hlsl":   true,
	".cginc":  true,
}

func handleEnvInfo(ctx context.Context, d *Dispatcher, args map[string]any, ectx *ExecutionContext) ToolResult {
	env := ectx.Env()
	if len(env) == 0 {
		env = tools.EnvInfo()
	}
	out, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return failResult("env_info: %v", err)
	}
	return okResult(string(out), env)
}

func handleListDir(ctx context.Context, d *Dispatcher, args map[string]any, ectx *ExecutionContext) ToolResult {
	var a listDirArgs
	if err := d.decode("list_dir", args, &a); err != nil {
		return failResult("list_dir: %v", err)
	}
	if a.Path == "" {
		a.Path = "."
	}
	entries, err := tools.ListDir(a.Path)
	if err != nil {
		return failResult("list_dir error: %v", err)
	}
	var b strings.Builder
	list := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		fmt.Fprintf(&b, "%-4s %s\n", e.Type, e.Name)
		list = append(list, map[string]any{"name": e.Name, "type": e.Type})
	}
	return okResult(strings.TrimRight(b.String(), "\n"), map[string]any{"path": a.Path, "entries": list})
}

func handleReadFile(ctx context.Context, d *Dispatcher, args map[string]any, ectx *ExecutionContext) ToolResult {
	var a readFileArgs
	if err := d.decode("read_file", args, &a); err != nil {
		return failResult("read_file: %v", err)
	}
	if strings.TrimSpace(a.Path) == "" {
		return failResult("read_file requires non-empty 'path' (string).")
	}
	content, err := tools.ReadFile(d.resolveProjectRelative(a.Path, ectx), a.MaxBytes)
	if err != nil {
		return failResult("read_file error: %v", err)
	}
	return okResult(content, map[string]any{"path": a.Path})
}

func handleWriteFile(ctx context.Context, d *Dispatcher, args map[string]any, ectx *ExecutionContext) ToolResult {
	if p, _ := args["path"].(string); strings.TrimSpace(p) == "" {
		return failResult("write_file requires non-empty 'path' (string).")
	}
	if _, ok := args["content"].(string); !ok {
		return failResult("write_file requires 'content' (string).")
	}
	var a writeFileArgs
	if err := d.decode("write_file", args, &a); err != nil {
		return failResult("write_file: %v", err)
	}

	norm := strings.TrimSpace(strings.ReplaceAll(a.Path, `\`, "/"))
	lower := strings.ToLower(norm)

	if isDirLike(lower) {
		dir := d.resolveProjectRelative(norm, ectx)
		if err := tools.EnsureDir(dir); err != nil {
			return failResult("mkdir error: %v", err)
		}
		return okResult("mkdir ok: "+dir, map[string]any{"dir": dir})
	}

	content := a.Content
	if sourceExts[path.Ext(lower)] && strings.Contains(content, `\n`) && !strings.Contains(content, "\n") {
		content = strings.NewReplacer(`\n`, "\n", `\t`, "\t").Replace(content)
	}

	dest := filepath.Clean(d.resolveProjectRelative(path.Clean(norm), ectx))
	data := map[string]any{"path": dest}

	o, override := d.manifest.MatchOverride(dest)
	if override {
		tpl, err := d.templates.Load(o.Template)
		if err != nil {
			return failResult("Failed to load template %s: %v", o.Template, err)
		}
		if tpl != content {
			change, err := d.tracker.RecordOverride(dest, o.Template, content, tpl)
			if err != nil {
				d.logger.LogError(fmt.Errorf("record override for %s: %w", dest, err))
			}
			data["override_additions"] = change.Stats.Additions
			data["override_deletions"] = change.Stats.Deletions
		}
		content = tpl
		data["template"] = o.Template
	}

	n, err := tools.WriteFile(dest, content)
	if err != nil {
		return failResult("write_file error: %v", err)
	}
	if override || sourceExts[strings.ToLower(filepath.Ext(dest))] {
		ectx.MarkSourceWritten()
	}
	data["bytes"] = n
	return okResult(fmt.Sprintf("wrote %d bytes to %s", n, dest), data)
}

func isDirLike(lower string) bool {
	return strings.HasSuffix(lower, "/") ||
		strings.HasSuffix(lower, "/assets/editor") ||
		lower == "assets/editor"
}

// resolveProjectRelative joins Assets/... paths onto the project directory
// known to the context. Other paths are returned unchanged.
func (d *Dispatcher) resolveProjectRelative(p string, ectx *ExecutionContext) string {
	norm := strings.ReplaceAll(p, `\`, "/")
	if strings.HasPrefix(strings.ToLower(norm), "assets/") {
		if proj := d.contextProjectPath(ectx); proj != "" {
			return filepath.Join(proj, filepath.FromSlash(norm))
		}
	}
	return filepath.FromSlash(norm)
}

func (d *Dispatcher) contextProjectPath(ectx *ExecutionContext) string {
	if ectx.ProjectPath != "" {
		return ectx.ProjectPath
	}
	if ectx.ProjectName != "" {
		return d.projectPathFor(ectx.ProjectName)
	}
	return ""
}

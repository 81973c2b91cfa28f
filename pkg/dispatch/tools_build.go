package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tools "github.com/alantheprice/director/pkg/agent_tools"
	"github.com/alantheprice/director/pkg/templates"
)

const (
	FailureCompile        = "compile_error"
	FailureInfrastructure = "infrastructure"

	maxLogScanBytes  = 4 << 20
	maxMarkerExcerpt = 20
)

func handleFindToolchain(ctx context.Context, d *Dispatcher, args map[string]any, ectx *ExecutionContext) ToolResult {
	var a findToolchainArgs
	if err := d.decode("find_toolchain", args, &a); err != nil {
		return failResult("find_toolchain: %v", err)
	}
	if a.Path != "" {
		if info, err := os.Stat(a.Path); err == nil && !info.IsDir() {
			ectx.Set("toolchain_path", a.Path)
			return okResult("ok", map[string]any{"toolchain_path": a.Path, "candidates": []string{a.Path}})
		}
	}
	best, candidates, err := tools.FindEditor(d.opts.EditorGlobs)
	if err != nil {
		return ToolResult{OK: false, Output: "editor not found in configured paths.", Data: map[string]any{"candidates": []string{}}}
	}
	ectx.Set("toolchain_path", best)
	return okResult("ok", map[string]any{"toolchain_path": best, "candidates": candidates})
}

// injectProject fills toolchain and project fields omitted by the model from
// the execution context.
func (d *Dispatcher) injectProject(ectx *ExecutionContext, toolchain, projectPath, projectName *string) {
	if *toolchain == "" {
		*toolchain = ectx.ToolchainPath
	}
	if *projectPath == "" && strings.TrimSpace(*projectName) != "" {
		*projectPath = d.projectPathFor(strings.TrimSpace(*projectName))
	}
	if *projectPath == "" {
		*projectPath = d.contextProjectPath(ectx)
	}
	if *projectName == "" {
		*projectName = ectx.ProjectName
	}
	if *projectName == "" && *projectPath != "" {
		*projectName = filepath.Base(*projectPath)
	}
}

func handleCreateProject(ctx context.Context, d *Dispatcher, args map[string]any, ectx *ExecutionContext) ToolResult {
	var a projectArgs
	if err := d.decode("create_project", args, &a); err != nil {
		return failResult("create_project: %v", err)
	}
	d.injectProject(ectx, &a.ToolchainPath, &a.ProjectPath, &a.ProjectName)
	if a.ToolchainPath == "" {
		return failResult("create_project requires toolchain_path (not found). Run find_toolchain first.")
	}
	if a.ProjectPath == "" {
		return failResult("create_project requires project_path or project_name.")
	}

	if existingProject(a.ProjectPath) {
		abs, _ := filepath.Abs(a.ProjectPath)
		ectx.Set("project_path", abs)
		ectx.Set("project_name", a.ProjectName)
		return okResult("project already exists: "+abs, map[string]any{"project_path": abs})
	}

	res, abs, err := tools.CreateProject(ctx, a.ToolchainPath, a.ProjectPath, d.opts.BuildTimeout)
	data := map[string]any{"project_path": abs, "exit_code": res.ExitCode}
	if err != nil {
		return ToolResult{OK: false, Output: joinOutput(err.Error(), res.Output), Data: data}
	}
	ectx.Set("project_path", abs)
	ectx.Set("project_name", a.ProjectName)
	return okResult(joinOutput("project created: "+abs, res.Output), data)
}

func existingProject(p string) bool {
	info, err := os.Stat(filepath.Join(p, "ProjectSettings"))
	return err == nil && info.IsDir()
}

func handleRunBuild(ctx context.Context, d *Dispatcher, args map[string]any, ectx *ExecutionContext) ToolResult {
	var a runBuildArgs
	if err := d.decode("run_build", args, &a); err != nil {
		return failResult("run_build: %v", err)
	}
	d.injectProject(ectx, &a.ToolchainPath, &a.ProjectPath, &a.ProjectName)
	if a.Method == "" {
		a.Method = d.opts.BuildMethod
	}
	if a.LogFile == "" {
		name := a.ProjectName
		if name == "" {
			name = "project"
		}
		a.LogFile = filepath.Join(d.opts.LogsDir, d.opts.LogPrefix+name+".log")
	}

	if a.ToolchainPath == "" {
		return failResult("run_build requires toolchain_path (not found). Run find_toolchain first.")
	}
	if a.ProjectPath == "" {
		return failResult("run_build requires project_path (not found). Run create_project first.")
	}
	if a.Method == "" {
		return failResult("run_build requires method (e.g. BuildScript.MakeBuild).")
	}

	build := BuildArgs{
		ToolchainPath: a.ToolchainPath,
		ProjectPath:   a.ProjectPath,
		ProjectName:   a.ProjectName,
		Method:        a.Method,
		LogFile:       a.LogFile,
	}

	written, err := d.Preflight(a.ProjectPath)
	if err != nil {
		ectx.MarkBuild(build, false)
		return ToolResult{OK: false, Output: err.Error(), Data: map[string]any{"failure_kind": FailureInfrastructure}}
	}

	res, runErr := tools.ExecuteMethod(ctx, a.ToolchainPath, a.ProjectPath, a.Method, a.LogFile, d.opts.BuildTimeout)
	ectx.MarkBuild(build, runErr == nil)
	ectx.Set("log_file", a.LogFile)

	data := map[string]any{
		"log_file":  a.LogFile,
		"exit_code": res.ExitCode,
		"preflight": written,
	}
	if runErr != nil {
		kind, excerpt := d.classifyBuildFailure(res.Output, a.LogFile)
		data["failure_kind"] = kind
		out := fmt.Sprintf("build failed (%s): %v", kind, runErr)
		if len(excerpt) > 0 {
			out += "\n" + strings.Join(excerpt, "\n")
		} else if res.Output != "" {
			out += "\n" + res.Output
		}
		return ToolResult{OK: false, Output: out, Data: data}
	}
	return okResult(joinOutput("build ok", res.Output), data)
}

// Preflight writes the manifest's files and the genome snapshot into the
// project. Missing optional templates are skipped.
func (d *Dispatcher) Preflight(projectPath string) ([]string, error) {
	var written []string
	for _, e := range d.manifest.Preflight {
		content, err := d.templates.Load(e.Template)
		if err != nil {
			if errors.Is(err, templates.ErrNotFound) && !e.Required {
				continue
			}
			return written, fmt.Errorf("preflight: missing template %s: %w", e.Template, err)
		}
		dest := filepath.Join(projectPath, filepath.FromSlash(e.Dest))
		if _, err := tools.WriteFile(dest, content); err != nil {
			return written, fmt.Errorf("preflight: failed to write %s: %w", dest, err)
		}
		written = append(written, e.Dest)
	}
	if d.genomes != nil && d.manifest.GenomeSnapshot != "" {
		dest := filepath.Join(projectPath, filepath.FromSlash(d.manifest.GenomeSnapshot))
		if err := d.genomes.ExportCollection(dest); err != nil {
			return written, fmt.Errorf("preflight: genome snapshot: %w", err)
		}
		written = append(written, d.manifest.GenomeSnapshot)
	}
	return written, nil
}

// classifyBuildFailure scans process output and the build log for compiler
// markers and returns the failure kind with the matching lines.
func (d *Dispatcher) classifyBuildFailure(output, logFile string) (string, []string) {
	text := output
	if logText, err := tools.ReadFile(logFile, maxLogScanBytes); err == nil {
		text += "\n" + logText
	}
	var excerpt []string
	for _, line := range strings.Split(text, "\n") {
		for _, m := range d.opts.CompileMarkers {
			if m != "" && strings.Contains(line, m) {
				if len(excerpt) < maxMarkerExcerpt {
					excerpt = append(excerpt, strings.TrimSpace(line))
				}
				break
			}
		}
	}
	if len(excerpt) > 0 {
		return FailureCompile, excerpt
	}
	return FailureInfrastructure, nil
}

func handleRunSimulation(ctx context.Context, d *Dispatcher, args map[string]any, ectx *ExecutionContext) ToolResult {
	var a simulationArgs
	if err := d.decode("run_simulation", args, &a); err != nil {
		return failResult("run_simulation: %v", err)
	}
	proj := d.contextProjectPath(ectx)
	if a.ExePath == "" && proj != "" {
		a.ExePath = filepath.Join(proj, d.opts.Executable)
	}
	if a.MetricsPath == "" && proj != "" {
		a.MetricsPath = filepath.Join(proj, d.opts.MetricsFile)
	}
	if a.ExePath == "" || a.MetricsPath == "" {
		return failResult("run_simulation requires exe_path and metrics_path (or a known project).")
	}
	timeout := d.opts.SimulationTimeout
	if a.TimeoutSec > 0 {
		timeout = secondsToDuration(a.TimeoutSec)
	}

	metrics, res, err := tools.RunSimulation(ctx, a.ExePath, a.MetricsPath, timeout)
	if err != nil {
		return ToolResult{OK: false, Output: joinOutput(err.Error(), res.Output), Data: map[string]any{"exit_code": res.ExitCode}}
	}
	out, _ := json.MarshalIndent(metrics, "", "  ")
	return okResult(string(out), map[string]any{
		"metrics":      metrics,
		"exe_path":     a.ExePath,
		"metrics_path": a.MetricsPath,
		"exit_code":    res.ExitCode,
	})
}

func joinOutput(head, body string) string {
	if body == "" {
		return head
	}
	return head + "\n" + body
}

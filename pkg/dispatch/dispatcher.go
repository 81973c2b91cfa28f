// Package dispatch executes plan tool calls. Every failure, including a
// panicking handler, comes back as a ToolResult with OK false.
package dispatch

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/alantheprice/director/pkg/changetracker"
	"github.com/alantheprice/director/pkg/configuration"
	"github.com/alantheprice/director/pkg/genome"
	"github.com/alantheprice/director/pkg/metrics"
	"github.com/alantheprice/director/pkg/templates"
	"github.com/alantheprice/director/pkg/utils"
)

// ToolResult is the uniform return value of every tool.
type ToolResult struct {
	OK     bool           `json:"ok"`
	Output string         `json:"output"`
	Data   map[string]any `json:"data,omitempty"`
}

func okResult(output string, data map[string]any) ToolResult {
	return ToolResult{OK: true, Output: output, Data: data}
}

func failResult(format string, a ...any) ToolResult {
	return ToolResult{OK: false, Output: fmt.Sprintf(format, a...)}
}

// ParameterConfig declares one tool argument and the alternative names
// models use for it.
type ParameterConfig struct {
	Name         string
	Alternatives []string
	Description  string
}

// ToolHandler runs one tool with alias-resolved arguments.
type ToolHandler func(ctx context.Context, d *Dispatcher, args map[string]any, ectx *ExecutionContext) ToolResult

// ToolConfig registers a tool.
type ToolConfig struct {
	Name        string
	Description string
	Parameters  []ParameterConfig
	Build       bool
	Handler     ToolHandler
}

// Options are the paths and limits tools work with.
type Options struct {
	WorkspaceDir      string
	ProjectsDir       string
	BackupsDir        string
	LogsDir           string
	EditorGlobs       []string
	BuildMethod       string
	LogPrefix         string
	CompileMarkers    []string
	Executable        string
	MetricsFile       string
	CommandTimeout    time.Duration
	BuildTimeout      time.Duration
	SimulationTimeout time.Duration
	BlockDestructive  bool
}

// OptionsFromConfig maps configuration onto dispatcher options.
func OptionsFromConfig(cfg *configuration.Config) Options {
	return Options{
		WorkspaceDir:      ".",
		ProjectsDir:       cfg.Paths.Projects,
		BackupsDir:        cfg.Paths.Backups,
		LogsDir:           cfg.Paths.Logs,
		EditorGlobs:       cfg.Toolchain.EditorGlobs,
		BuildMethod:       cfg.Toolchain.BuildMethod,
		LogPrefix:         cfg.Toolchain.LogPrefix,
		CompileMarkers:    cfg.Toolchain.CompileMarkers,
		Executable:        cfg.Project.Executable,
		MetricsFile:       cfg.Project.Metrics,
		CommandTimeout:    cfg.Toolchain.CommandTimeout,
		BuildTimeout:      cfg.Toolchain.BuildTimeout,
		SimulationTimeout: cfg.Simulation.Timeout,
		BlockDestructive:  cfg.Tools.BlockDestructive,
	}
}

// Dispatcher maps tool names to handlers.
type Dispatcher struct {
	tools     map[string]ToolConfig
	opts      Options
	templates *templates.Store
	manifest  *templates.Manifest
	genomes   *genome.Store
	tracker   *changetracker.Tracker
	metrics   *metrics.Recorder
	logger    *utils.Logger
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithTemplates sets the template source and manifest used by overrides and
// preflight.
func WithTemplates(store *templates.Store, manifest *templates.Manifest) Option {
	return func(d *Dispatcher) {
		d.templates = store
		d.manifest = manifest
	}
}

// WithGenomeStore enables the genome snapshot written during preflight.
func WithGenomeStore(s *genome.Store) Option {
	return func(d *Dispatcher) { d.genomes = s }
}

func WithTracker(t *changetracker.Tracker) Option {
	return func(d *Dispatcher) { d.tracker = t }
}

func WithMetrics(m *metrics.Recorder) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

func WithLogger(l *utils.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// New creates a dispatcher with every built-in tool registered.
func New(opts Options, options ...Option) *Dispatcher {
	if opts.WorkspaceDir == "" {
		opts.WorkspaceDir = "."
	}
	if opts.ProjectsDir == "" {
		opts.ProjectsDir = "projects"
	}
	if opts.BackupsDir == "" {
		opts.BackupsDir = "backups"
	}
	if opts.LogsDir == "" {
		opts.LogsDir = "logs"
	}
	d := &Dispatcher{tools: map[string]ToolConfig{}, opts: opts}
	for _, o := range options {
		o(d)
	}
	if d.templates == nil {
		d.templates = templates.NewStore("", true)
	}
	if d.manifest == nil {
		m, err := templates.DefaultManifest()
		if err != nil {
			m = &templates.Manifest{}
		}
		d.manifest = m
	}
	registerBuiltins(d)
	return d
}

// RegisterTool adds or replaces a tool.
func (d *Dispatcher) RegisterTool(config ToolConfig) {
	d.tools[config.Name] = config
}

// Tools lists registered tool names, sorted.
func (d *Dispatcher) Tools() []string {
	names := make([]string, 0, len(d.tools))
	for n := range d.tools {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// IsBuildTool reports whether name is a build-type tool.
func (d *Dispatcher) IsBuildTool(name string) bool {
	t, ok := d.tools[name]
	return ok && t.Build
}

// Dispatch runs one tool call. It never panics and never returns an error;
// failures are reported in the result.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, args map[string]any, ectx *ExecutionContext) (res ToolResult) {
	tool, ok := d.tools[name]
	if !ok {
		d.metrics.ToolCall(name, false, 0)
		return failResult("unknown tool: %s", name)
	}
	if ectx == nil {
		ectx = NewExecutionContext(nil)
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res = failResult("tool %s panicked: %v", name, r)
		}
		elapsed := time.Since(start)
		d.metrics.ToolCall(name, res.OK, elapsed)
		d.logger.Logf("tool %s ok=%t in %s: %s", name, res.OK, elapsed.Round(time.Millisecond), firstLine(res.Output))
	}()

	if err := ctx.Err(); err != nil {
		return failResult("%s cancelled: %v", name, err)
	}
	return tool.Handler(ctx, d, resolveAliases(tool, args), ectx)
}

// resolveAliases copies args and renames alternative parameter names to the
// canonical one when the canonical name is absent.
func resolveAliases(tool ToolConfig, args map[string]any) map[string]any {
	out := make(map[string]any, len(args))
	for k, v := range args {
		out[k] = v
	}
	for _, p := range tool.Parameters {
		if _, ok := out[p.Name]; ok {
			continue
		}
		for _, alt := range p.Alternatives {
			if v, ok := out[alt]; ok {
				out[p.Name] = v
				delete(out, alt)
				break
			}
		}
	}
	return out
}

func (d *Dispatcher) projectPathFor(name string) string {
	return filepath.Join(d.opts.ProjectsDir, name)
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	if len(s) > 200 {
		return s[:200]
	}
	return s
}

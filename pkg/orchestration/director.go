// Package orchestration ties a planning run, the simulation and the genome
// evolution together, and repeats that over game modes.
package orchestration

import (
	"context"
	"fmt"
	"os"
	"time"

	tools "github.com/alantheprice/director/pkg/agent_tools"
	"github.com/alantheprice/director/pkg/audit"
	"github.com/alantheprice/director/pkg/changetracker"
	"github.com/alantheprice/director/pkg/configuration"
	"github.com/alantheprice/director/pkg/dispatch"
	"github.com/alantheprice/director/pkg/evolution"
	"github.com/alantheprice/director/pkg/genome"
	"github.com/alantheprice/director/pkg/history"
	"github.com/alantheprice/director/pkg/llm"
	"github.com/alantheprice/director/pkg/metrics"
	"github.com/alantheprice/director/pkg/plan"
	"github.com/alantheprice/director/pkg/planner"
	"github.com/alantheprice/director/pkg/templates"
	"github.com/alantheprice/director/pkg/utils"
)

// Director owns the stores and services shared by every run of a process.
type Director struct {
	cfg        *configuration.Config
	client     llm.ChatClient
	dispatcher *dispatch.Dispatcher
	genomes    *genome.Store
	history    *history.Store
	audit      audit.Store
	evolver    *evolution.Loop
	metrics    *metrics.Recorder
	logger     *utils.Logger
	env        func() map[string]any
}

type Option func(*Director)

func WithMetrics(m *metrics.Recorder) Option {
	return func(d *Director) { d.metrics = m }
}

func WithLogger(l *utils.Logger) Option {
	return func(d *Director) { d.logger = l }
}

// WithEnv replaces host detection for the environment facts given to the
// planner.
func WithEnv(fn func() map[string]any) Option {
	return func(d *Director) { d.env = fn }
}

// WithAudit uses s instead of opening paths.audit_db.
func WithAudit(s audit.Store) Option {
	return func(d *Director) { d.audit = s }
}

// New wires every component from cfg. Close releases the audit store.
func New(ctx context.Context, cfg *configuration.Config, client llm.ChatClient, opts ...Option) (*Director, error) {
	d := &Director{cfg: cfg, client: client, env: tools.EnvInfo}
	for _, o := range opts {
		o(d)
	}

	manifest, err := templates.LoadManifest(cfg.Paths.Manifest)
	if err != nil {
		return nil, err
	}
	if d.audit == nil {
		d.audit, err = audit.Open(ctx, cfg.Paths.AuditDB)
		if err != nil {
			return nil, fmt.Errorf("failed to open audit store: %w", err)
		}
	}

	d.genomes = genome.NewStore(cfg.Paths.Genome)
	d.history = history.NewStore(cfg.Paths.State)
	d.dispatcher = dispatch.New(dispatch.OptionsFromConfig(cfg),
		dispatch.WithTemplates(templates.NewStore(cfg.Paths.Templates, true), manifest),
		dispatch.WithGenomeStore(d.genomes),
		dispatch.WithTracker(changetracker.New(cfg.Paths.Changes)),
		dispatch.WithMetrics(d.metrics),
		dispatch.WithLogger(d.logger),
	)
	d.evolver = evolution.New(client, d.genomes, evolution.ConfigFrom(cfg),
		evolution.WithHallOfFame(genome.NewHallOfFame(cfg.Paths.HallOfFame)),
		evolution.WithAudit(d.audit),
		evolution.WithMetrics(d.metrics),
		evolution.WithLogger(d.logger),
	)
	return d, nil
}

func (d *Director) Close() error {
	if d.audit == nil {
		return nil
	}
	return d.audit.Close()
}

func (d *Director) Dispatcher() *dispatch.Dispatcher { return d.dispatcher }
func (d *Director) Genomes() *genome.Store            { return d.genomes }
func (d *Director) History() *history.Store           { return d.history }
func (d *Director) Audit() audit.Store                { return d.audit }
func (d *Director) Evolver() *evolution.Loop          { return d.evolver }

// Controller returns a plan controller whose history entries carry mode.
func (d *Director) Controller(mode string) *planner.Controller {
	return planner.New(d.client, d.dispatcher, planner.ConfigFrom(d.cfg),
		planner.WithHistory(d.history),
		planner.WithMetrics(d.metrics),
		planner.WithLogger(d.logger),
		planner.WithMode(mode),
	)
}

// RunOptions selects what one run does.
type RunOptions struct {
	Goal string
	Mode string
	// Plan, when set, is executed instead of asking the model for one.
	Plan       *plan.Plan
	SkipEvolve bool
	ForceBuild bool
}

// RunResult summarizes one run.
type RunResult struct {
	Mode      string
	Status    string
	Reason    string
	Bypassed  bool
	Outcome   *planner.Outcome
	Metrics   evolution.Metrics
	Evolution *evolution.Result
}

func (r *RunResult) OK() bool {
	return r.Status == history.StatusOK
}

// Run builds the game (unless a build already exists), simulates it and
// evolves the genome of the played mode.
func (d *Director) Run(ctx context.Context, opts RunOptions) *RunResult {
	res := &RunResult{Mode: opts.Mode, Status: history.StatusFail}
	if opts.Goal == "" {
		opts.Goal = d.cfg.Planner.DefaultGoal
	}

	if res.Mode == "" {
		f, err := d.genomes.Load()
		if err != nil {
			res.Reason = err.Error()
			return res
		}
		res.Mode = f.ActiveMode
	}
	if err := d.genomes.SetActive(res.Mode); err != nil {
		res.Reason = fmt.Sprintf("failed to set active mode: %v", err)
		return res
	}
	d.logger.LogProcessStep(fmt.Sprintf("Active game mode: %s", res.Mode))

	env := d.env()
	exe := d.cfg.ExecutablePath()
	if _, err := os.Stat(exe); err == nil && !opts.ForceBuild {
		d.logger.LogProcessStep(fmt.Sprintf("Build found at %s, skipping the build phase", exe))
		res.Bypassed = true
	} else {
		ctrl := d.Controller(res.Mode)
		if opts.Plan != nil {
			res.Outcome = ctrl.RunPlan(ctx, opts.Goal, *opts.Plan, env)
		} else {
			res.Outcome = ctrl.Run(ctx, opts.Goal, env)
		}
		if !res.Outcome.Succeeded() {
			res.Reason = res.Outcome.Reason
			return res
		}
	}

	res.Status = history.StatusOK
	d.simulate(ctx, res, env, opts.SkipEvolve)

	if res.Bypassed {
		entry := history.Entry{
			ID:     "bypass-" + time.Now().Format("20060102-150405"),
			Goal:   "simulate existing build",
			Status: res.Status,
			Mode:   res.Mode,
		}
		if err := d.history.Append(entry); err != nil {
			d.logger.LogError(fmt.Errorf("failed to record run: %w", err))
		}
	}
	return res
}

// simulate runs the built game and evolves the genome on its metrics. A
// failed simulation is reported in res.Reason but does not fail the run.
func (d *Director) simulate(ctx context.Context, res *RunResult, env map[string]any, skipEvolve bool) {
	ectx := dispatch.NewExecutionContext(env)
	sim := d.dispatcher.Dispatch(ctx, "run_simulation", map[string]any{
		"exe_path":     d.cfg.ExecutablePath(),
		"metrics_path": d.cfg.MetricsPath(),
	}, ectx)
	if !sim.OK {
		res.Reason = "simulation failed: " + sim.Output
		d.logger.Logf("simulation failed, genome left as is: %s", sim.Output)
		return
	}
	m, _ := sim.Data["metrics"].(map[string]any)
	res.Metrics = evolution.Metrics(m)
	d.logger.LogProcessStep(fmt.Sprintf("Simulation finished: win rate %.2f", res.Metrics.WinRate()))

	if skipEvolve {
		return
	}
	ev := d.evolver.Evolve(ctx, res.Mode, res.Metrics)
	res.Evolution = &ev
}

// Evolve runs one evolution cycle for mode from a metrics file.
func (d *Director) Evolve(ctx context.Context, mode, metricsPath string) (evolution.Result, error) {
	if metricsPath == "" {
		metricsPath = d.cfg.MetricsPath()
	}
	m, err := evolution.LoadMetrics(metricsPath)
	if err != nil {
		return evolution.Result{}, err
	}
	if mode == "" {
		f, err := d.genomes.Load()
		if err != nil {
			return evolution.Result{}, err
		}
		mode = f.ActiveMode
	}
	return d.evolver.Evolve(ctx, mode, m), nil
}

// Cycle runs every mode runs times, pausing between runs. It stops early
// when ctx is cancelled.
func (d *Director) Cycle(ctx context.Context, modes []string, runs int, pause time.Duration, opts RunOptions) []*RunResult {
	if len(modes) == 0 {
		modes = d.cfg.Run.Modes
	}
	if runs < 1 {
		runs = 1
	}
	total := len(modes) * runs
	var results []*RunResult
	for _, mode := range modes {
		for i := 1; i <= runs; i++ {
			if ctx.Err() != nil {
				return results
			}
			d.logger.LogProcessStep(fmt.Sprintf("Cycle run %d/%d: mode %s (%d/%d)", len(results)+1, total, mode, i, runs))
			o := opts
			o.Mode = mode
			results = append(results, d.Run(ctx, o))

			if len(results) < total && pause > 0 {
				select {
				case <-ctx.Done():
					return results
				case <-time.After(pause):
				}
			}
		}
	}
	return results
}

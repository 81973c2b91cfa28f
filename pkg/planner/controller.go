// Package planner runs the plan, validate, execute and replan loop.
package planner

import (
	"context"
	"fmt"
	"time"

	"github.com/alantheprice/director/pkg/configuration"
	"github.com/alantheprice/director/pkg/contract"
	"github.com/alantheprice/director/pkg/dispatch"
	"github.com/alantheprice/director/pkg/history"
	"github.com/alantheprice/director/pkg/jsonextract"
	"github.com/alantheprice/director/pkg/llm"
	"github.com/alantheprice/director/pkg/metrics"
	"github.com/alantheprice/director/pkg/plan"
	"github.com/alantheprice/director/pkg/utils"
	"github.com/google/uuid"
)

// State is a controller state.
type State string

const (
	StatePlanning   State = "PLANNING"
	StateValidating State = "VALIDATING"
	StateExecuting  State = "EXECUTING"
	StateSucceeded  State = "SUCCEEDED"
	StateReplanning State = "REPLANNING"
	StateFailed     State = "FAILED"
)

// Attempt outcomes recorded in history and metrics.
const (
	OutcomeModelError    = "model_error"
	OutcomeExtractFailed = "extract_failed"
	OutcomeRejected      = "rejected"
	OutcomeExecFailed    = "exec_failed"
	OutcomeSucceeded     = "succeeded"
	OutcomeCancelled     = "cancelled"
)

// RebuildTool is the tool synthesized by the build-retry step.
const RebuildTool = "run_build"

// Executor runs tool calls. *dispatch.Dispatcher implements it.
type Executor interface {
	Dispatch(ctx context.Context, name string, args map[string]any, ectx *dispatch.ExecutionContext) dispatch.ToolResult
	IsBuildTool(name string) bool
}

// Config holds the controller settings.
type Config struct {
	SystemPrompt        string
	MaxReplans          int
	PreviousOutputLimit int
	Contract            contract.Contract
	Options             llm.Options
	RunLogDir           string
}

// ConfigFrom maps configuration onto controller settings.
func ConfigFrom(cfg *configuration.Config) Config {
	return Config{
		SystemPrompt:        cfg.Planner.SystemPrompt,
		MaxReplans:          cfg.Planner.MaxReplans,
		PreviousOutputLimit: cfg.Planner.PreviousOutputLimit,
		Contract:            cfg.Planner.Contract,
		Options: llm.Options{
			Temperature: cfg.Ollama.Temperature,
			TopP:        cfg.Ollama.TopP,
			NumCtx:      cfg.Ollama.NumCtx,
		},
		RunLogDir: cfg.RunLogDir(),
	}
}

// Outcome is the result of one controller run.
type Outcome struct {
	RunID    string
	Status   string
	State    State
	Reason   string
	Plan     *plan.Plan
	Context  *dispatch.ExecutionContext
	Attempts []history.Attempt
	RunLog   string
}

// Succeeded reports whether the run ended in SUCCEEDED.
func (o *Outcome) Succeeded() bool {
	return o.State == StateSucceeded
}

// Controller drives planning attempts against a model and an executor.
type Controller struct {
	client  llm.ChatClient
	exec    Executor
	cfg     Config
	history *history.Store
	metrics *metrics.Recorder
	logger  *utils.Logger
	mode    string
}

// Option customizes a Controller.
type Option func(*Controller)

func WithHistory(h *history.Store) Option {
	return func(c *Controller) { c.history = h }
}

func WithMetrics(m *metrics.Recorder) Option {
	return func(c *Controller) { c.metrics = m }
}

func WithLogger(l *utils.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithMode tags history entries with the game mode being built.
func WithMode(mode string) Option {
	return func(c *Controller) { c.mode = mode }
}

func New(client llm.ChatClient, exec Executor, cfg Config, opts ...Option) *Controller {
	if cfg.PreviousOutputLimit <= 0 {
		cfg.PreviousOutputLimit = 4000
	}
	if cfg.MaxReplans < 0 {
		cfg.MaxReplans = 0
	}
	c := &Controller{client: client, exec: exec, cfg: cfg}
	for _, o := range opts {
		o(c)
	}
	return c
}

func newRunID() string {
	return time.Now().Format("20060102-150405") + "-" + uuid.NewString()[:8]
}

// Run plans and executes goal until it succeeds or max_replans+1 attempts
// are used. It always records one history entry.
func (c *Controller) Run(ctx context.Context, goal string, env map[string]any) *Outcome {
	out := &Outcome{RunID: newRunID(), State: StatePlanning}
	rl := utils.NewRunLogger(c.cfg.RunLogDir, out.RunID)
	defer rl.Close()
	out.RunLog = rl.Path()

	ectx := dispatch.NewExecutionContext(env)
	out.Context = ectx

	c.logger.LogProcessStep(fmt.Sprintf("Planning run %s: %s", out.RunID, goal))

	var rs ReplanState
	maxAttempts := c.cfg.MaxReplans + 1
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		rs.Attempt = attempt
		if err := ctx.Err(); err != nil {
			c.record(out, history.Attempt{Number: attempt, Outcome: OutcomeCancelled, Reason: err.Error()})
			break
		}

		out.State = StatePlanning
		msgs := BuildMessages(c.cfg.SystemPrompt, env, goal, c.cfg.Contract, rs, c.cfg.PreviousOutputLimit)
		raw, err := c.client.Chat(ctx, msgs, c.cfg.Options)
		if err != nil {
			reason := fmt.Sprintf("model call failed: %v", err)
			c.record(out, history.Attempt{Number: attempt, Outcome: OutcomeModelError, Reason: reason})
			rs.LastError, rs.LastRaw = reason, ""
			out.State = StateReplanning
			continue
		}
		rl.LogEvent("llm_plan_raw", map[string]any{"attempt": attempt, "content": raw})

		out.State = StateValidating
		p, outcome, reason := c.validate(raw)
		if reason != "" {
			rl.LogEvent("plan_rejected", map[string]any{"attempt": attempt, "reason": reason})
			c.record(out, history.Attempt{Number: attempt, Outcome: outcome, Reason: reason})
			rs.LastError, rs.LastRaw = reason, raw
			out.State = StateReplanning
			continue
		}
		out.Plan = &p

		out.State = StateExecuting
		ok, reason := c.execute(ctx, p, ectx, rl)
		a := history.Attempt{Number: attempt, Steps: len(p.Steps), Calls: p.CallCount()}
		if ok {
			a.Outcome = OutcomeSucceeded
			c.record(out, a)
			out.State = StateSucceeded
			break
		}
		a.Outcome, a.Reason = OutcomeExecFailed, reason
		c.record(out, a)
		rs.LastError, rs.LastRaw = reason, raw
		out.State = StateReplanning
	}

	if out.State != StateSucceeded {
		out.State = StateFailed
	}
	c.finish(out, goal, rl)
	return out
}

// RunPlan executes a saved plan once, after checking it against the
// contract, and records a history entry.
func (c *Controller) RunPlan(ctx context.Context, goal string, p plan.Plan, env map[string]any) *Outcome {
	out := &Outcome{RunID: newRunID(), State: StateValidating, Plan: &p}
	rl := utils.NewRunLogger(c.cfg.RunLogDir, out.RunID)
	defer rl.Close()
	out.RunLog = rl.Path()
	ectx := dispatch.NewExecutionContext(env)
	out.Context = ectx

	a := history.Attempt{Number: 1, Steps: len(p.Steps), Calls: p.CallCount()}
	if ok, msg := contract.Validate(p, c.cfg.Contract); !ok {
		a.Outcome, a.Reason = OutcomeRejected, msg
		out.State = StateFailed
	} else {
		out.State = StateExecuting
		if ok, reason := c.execute(ctx, p, ectx, rl); ok {
			a.Outcome = OutcomeSucceeded
			out.State = StateSucceeded
		} else {
			a.Outcome, a.Reason = OutcomeExecFailed, reason
			out.State = StateFailed
		}
	}
	c.record(out, a)
	c.finish(out, goal, rl)
	return out
}

// Execute runs an already validated plan against ectx, including the
// build retry. It returns the failure reason when it does not succeed.
func (c *Controller) Execute(ctx context.Context, p plan.Plan, ectx *dispatch.ExecutionContext) (bool, string) {
	return c.execute(ctx, p, ectx, nil)
}

func (c *Controller) validate(raw string) (plan.Plan, string, string) {
	doc, ok := jsonextract.FirstObject(raw)
	if !ok {
		return plan.Plan{}, OutcomeExtractFailed, "model output contained no JSON object"
	}
	if _, ok := doc["steps"]; !ok {
		return plan.Plan{}, OutcomeExtractFailed, "plan JSON has no 'steps' field"
	}
	if ok, msg := contract.ValidateDocument(doc, c.cfg.Contract); !ok {
		return plan.Plan{}, OutcomeRejected, msg
	}
	p, err := plan.Decode(doc)
	if err != nil {
		return plan.Plan{}, OutcomeRejected, err.Error()
	}
	return p, "", ""
}

func (c *Controller) execute(ctx context.Context, p plan.Plan, ectx *dispatch.ExecutionContext, rl *utils.RunLogger) (bool, string) {
	failure := ""
	failedTool := ""

steps:
	for i, step := range p.Steps {
		c.logger.LogProcessStep(fmt.Sprintf("Step %d/%d: %s", i+1, len(p.Steps), step.Title))
		for j, call := range step.ToolCalls {
			res := c.dispatch(ctx, call.Tool, call.Args, ectx, rl)
			if !res.OK {
				failure = fmt.Sprintf("step %s call %d (%s) failed: %s", step.ID, j+1, call.Tool, res.Output)
				failedTool = call.Tool
				break steps
			}
		}
	}

	if (failure == "" || c.exec.IsBuildTool(failedTool)) && ectx.NeedsRebuild() {
		c.logger.LogProcessStep("Sources changed since the last successful build; rebuilding once")
		res := c.dispatch(ctx, RebuildTool, ectx.RebuildArgs(), ectx, rl)
		if res.OK {
			return true, ""
		}
		if failure == "" {
			failure = fmt.Sprintf("rebuild (%s) failed: %s", RebuildTool, res.Output)
		} else {
			failure += fmt.Sprintf("\nrebuild (%s) failed: %s", RebuildTool, res.Output)
		}
	}
	return failure == "", failure
}

func (c *Controller) dispatch(ctx context.Context, tool string, args map[string]any, ectx *dispatch.ExecutionContext, rl *utils.RunLogger) dispatch.ToolResult {
	rl.LogEvent("tool_call", map[string]any{"tool": tool, "args": args})
	res := c.exec.Dispatch(ctx, tool, args, ectx)
	rl.LogEvent("tool_result", map[string]any{"tool": tool, "ok": res.OK, "output": res.Output})
	return res
}

func (c *Controller) record(out *Outcome, a history.Attempt) {
	out.Attempts = append(out.Attempts, a)
	out.Reason = a.Reason
	c.metrics.PlanAttempt(a.Outcome)
	if a.Reason != "" {
		c.logger.Logf("attempt %d %s: %s", a.Number, a.Outcome, a.Reason)
	}
}

func (c *Controller) finish(out *Outcome, goal string, rl *utils.RunLogger) {
	out.Status = history.StatusFail
	if out.State == StateSucceeded {
		out.Status = history.StatusOK
		out.Reason = ""
	}
	c.metrics.Run(out.Status)
	rl.LogEvent("run_finished", map[string]any{"status": out.Status, "attempts": len(out.Attempts), "reason": out.Reason})

	if c.history != nil {
		entry := history.Entry{
			ID:       out.RunID,
			Goal:     goal,
			Status:   out.Status,
			Mode:     c.mode,
			Attempts: out.Attempts,
			RunLog:   out.RunLog,
		}
		if err := c.history.Append(entry); err != nil {
			c.logger.LogError(fmt.Errorf("failed to record run %s: %w", out.RunID, err))
		}
	}
	c.logger.LogProcessStep(fmt.Sprintf("Run %s finished: %s", out.RunID, out.Status))
}

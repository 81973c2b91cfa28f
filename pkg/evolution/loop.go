// Package evolution asks the model for a rebalanced genome after each
// simulation and persists the result.
package evolution

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/alantheprice/director/pkg/audit"
	"github.com/alantheprice/director/pkg/changetracker"
	"github.com/alantheprice/director/pkg/configuration"
	"github.com/alantheprice/director/pkg/genome"
	"github.com/alantheprice/director/pkg/jsonextract"
	"github.com/alantheprice/director/pkg/llm"
	"github.com/alantheprice/director/pkg/metrics"
	"github.com/alantheprice/director/pkg/utils"
	"github.com/google/uuid"
)

const noReport = "No report text provided."

// Config holds the evolution settings.
type Config struct {
	TargetMin float64
	TargetMax float64
	Options   llm.Options
	RunLogDir string
}

// ConfigFrom maps configuration onto evolution settings.
func ConfigFrom(cfg *configuration.Config) Config {
	return Config{
		TargetMin: cfg.Evolution.TargetMin,
		TargetMax: cfg.Evolution.TargetMax,
		Options: llm.Options{
			Temperature: cfg.Evolution.Temperature,
			TopP:        cfg.Evolution.TopP,
			NumCtx:      cfg.Evolution.NumCtx,
		},
		RunLogDir: cfg.RunLogDir(),
	}
}

// InBand reports whether winRate lies in [TargetMin, TargetMax].
func (c Config) InBand(winRate float64) bool {
	return winRate >= c.TargetMin && winRate <= c.TargetMax
}

// Result describes one evolution cycle. A failed cycle leaves the genome
// file untouched.
type Result struct {
	Mode     string
	OK       bool
	Reason   string
	Report   string
	WinRate  float64
	Previous genome.Genome
	Genome   genome.Genome
	Archived string
	AuditID  int64
	Changes  string
}

// Loop runs evolution cycles.
type Loop struct {
	client  llm.ChatClient
	store   *genome.Store
	cfg     Config
	hof     *genome.HallOfFame
	audit   audit.Store
	metrics *metrics.Recorder
	logger  *utils.Logger
}

type Option func(*Loop)

func WithHallOfFame(h *genome.HallOfFame) Option {
	return func(l *Loop) { l.hof = h }
}

func WithAudit(s audit.Store) Option {
	return func(l *Loop) { l.audit = s }
}

func WithMetrics(m *metrics.Recorder) Option {
	return func(l *Loop) { l.metrics = m }
}

func WithLogger(lg *utils.Logger) Option {
	return func(l *Loop) { l.logger = lg }
}

func New(client llm.ChatClient, store *genome.Store, cfg Config, opts ...Option) *Loop {
	if cfg.TargetMin == 0 && cfg.TargetMax == 0 {
		cfg.TargetMin, cfg.TargetMax = 0.6, 0.8
	}
	l := &Loop{client: client, store: store, cfg: cfg}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Evolve runs one cycle for mode. Failures are reported in the result and
// never returned as errors; every cycle appends one audit record.
func (l *Loop) Evolve(ctx context.Context, mode string, m Metrics) Result {
	res := Result{Mode: mode, WinRate: m.WinRate()}

	cur, err := l.store.Get(mode)
	if errors.Is(err, genome.ErrModeNotFound) {
		l.logger.Logf("no genome for mode %s, starting from defaults", mode)
		cur, err = genome.DefaultFor(mode), nil
	}
	if err != nil {
		res.Reason = fmt.Sprintf("failed to load genome: %v", err)
		return l.finish(ctx, res, m)
	}
	cur.Mode = mode
	res.Previous, res.Genome = cur, cur

	if l.hof != nil && l.cfg.InBand(res.WinRate) {
		path, err := l.hof.Archive(cur, res.WinRate)
		if err != nil {
			l.logger.LogError(fmt.Errorf("hall of fame archive failed: %w", err))
		} else {
			res.Archived = path
			l.logger.LogProcessStep(fmt.Sprintf("Hall of fame: win rate %.2f archived to %s", res.WinRate, path))
		}
	}

	l.logger.LogProcessStep(fmt.Sprintf("Evolving the %s genome (win rate %.2f)", mode, res.WinRate))
	raw, err := l.client.Chat(ctx, BuildMessages(cur, m, l.cfg.TargetMin, l.cfg.TargetMax), l.cfg.Options)
	if err != nil {
		res.Reason = fmt.Sprintf("model call failed: %v", err)
		return l.finish(ctx, res, m)
	}
	l.logRaw(mode, raw)

	next, report, reason := l.propose(cur, raw)
	if reason != "" {
		res.Reason = reason
		return l.finish(ctx, res, m)
	}

	if err := l.store.Put(next); err != nil {
		res.Reason = fmt.Sprintf("failed to save genome: %v", err)
		return l.finish(ctx, res, m)
	}
	res.OK = true
	res.Genome = next
	res.Report = report
	res.Changes = genomeDiff(cur, next)
	return l.finish(ctx, res, m)
}

// propose turns raw model output into the next genome for cur.Mode.
func (l *Loop) propose(cur genome.Genome, raw string) (genome.Genome, string, string) {
	doc, ok := jsonextract.FirstObject(raw)
	if !ok {
		return cur, "", "model output contained no JSON object"
	}
	proposal, ok := doc["new_genome"].(map[string]any)
	if !ok {
		return cur, "", "model output has no 'new_genome' object"
	}
	// both are assigned here, never taken from the model
	delete(proposal, "mode")
	delete(proposal, "seed")

	next, err := genome.Merge(cur, proposal)
	if err != nil {
		return cur, "", err.Error()
	}
	next.Mode = cur.Mode
	next.Seed = cur.Seed + 1
	if err := genome.Validate(next); err != nil {
		return cur, "", err.Error()
	}

	report, _ := doc["report"].(string)
	if report == "" {
		report = noReport
	}
	return next, report, ""
}

func (l *Loop) finish(ctx context.Context, res Result, m Metrics) Result {
	l.metrics.Evolution(res.Mode, res.OK, res.WinRate)

	report := res.Report
	if !res.OK {
		report = res.Reason
		l.logger.Logf("evolution of %s failed, keeping the current genome: %s", res.Mode, res.Reason)
	} else {
		l.logger.LogProcessStep(fmt.Sprintf("New %s genome saved (seed %d)", res.Mode, res.Genome.Seed))
		if res.Changes != "" {
			l.logger.Log(res.Changes)
		}
	}

	if l.audit != nil {
		genomeJSON, _ := json.Marshal(res.Genome)
		rec := audit.NewRecord(res.Mode, res.WinRate, res.Genome, m.JSON(), string(genomeJSON), report)
		id, err := l.audit.Append(ctx, rec)
		if err != nil {
			l.logger.LogError(fmt.Errorf("failed to append evolution record: %w", err))
		}
		res.AuditID = id
	}
	return res
}

func (l *Loop) logRaw(mode, raw string) {
	if l.cfg.RunLogDir == "" {
		return
	}
	id := "evolve-" + time.Now().Format("20060102-150405") + "-" + uuid.NewString()[:8]
	rl := utils.NewRunLogger(l.cfg.RunLogDir, id)
	defer rl.Close()
	rl.LogEvent("evolution_raw", map[string]any{"mode": mode, "content": raw})
}

func genomeDiff(prev, next genome.Genome) string {
	a, _ := json.MarshalIndent(prev, "", "  ")
	b, _ := json.MarshalIndent(next, "", "  ")
	return changetracker.GetDiff(next.Mode+" genome", string(a)+"\n", string(b)+"\n", 40, false)
}

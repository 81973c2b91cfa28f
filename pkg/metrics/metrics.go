// Package metrics exposes run counters through a private Prometheus registry
// that is written to a textfile at the end of each command.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder holds the director's collectors. A nil *Recorder is a no-op.
type Recorder struct {
	registry     *prometheus.Registry
	toolCalls    *prometheus.CounterVec
	toolDuration *prometheus.HistogramVec
	planAttempts *prometheus.CounterVec
	runs         *prometheus.CounterVec
	evolutions   *prometheus.CounterVec
	winRate      *prometheus.GaugeVec
}

// New registers all collectors on a fresh registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "director_tool_calls_total",
			Help: "Tool dispatches by tool name and result.",
		}, []string{"tool", "result"}),
		toolDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "director_tool_duration_seconds",
			Help:    "Wall time of tool dispatches.",
			Buckets: []float64{0.01, 0.1, 1, 10, 60, 300, 1800},
		}, []string{"tool"}),
		planAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "director_plan_attempts_total",
			Help: "Planning attempts by outcome.",
		}, []string{"outcome"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "director_runs_total",
			Help: "Controller runs by final status.",
		}, []string{"status"}),
		evolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "director_evolutions_total",
			Help: "Genome evolution cycles by mode and result.",
		}, []string{"mode", "result"}),
		winRate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "director_win_rate",
			Help: "Last observed simulation win rate per mode.",
		}, []string{"mode"}),
	}
	r.registry.MustRegister(r.toolCalls, r.toolDuration, r.planAttempts, r.runs, r.evolutions, r.winRate)
	return r
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "fail"
}

// ToolCall records one dispatch.
func (r *Recorder) ToolCall(tool string, ok bool, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.toolCalls.WithLabelValues(tool, result(ok)).Inc()
	r.toolDuration.WithLabelValues(tool).Observe(elapsed.Seconds())
}

// PlanAttempt records a planning attempt outcome such as "accepted",
// "extract_failed", "rejected" or "model_error".
func (r *Recorder) PlanAttempt(outcome string) {
	if r == nil {
		return
	}
	r.planAttempts.WithLabelValues(outcome).Inc()
}

// Run records a finished controller run.
func (r *Recorder) Run(status string) {
	if r == nil {
		return
	}
	r.runs.WithLabelValues(status).Inc()
}

// Evolution records one evolution cycle and the win rate that drove it.
func (r *Recorder) Evolution(mode string, ok bool, winRate float64) {
	if r == nil {
		return
	}
	r.evolutions.WithLabelValues(mode, result(ok)).Inc()
	r.winRate.WithLabelValues(mode).Set(winRate)
}

// Registry exposes the underlying registry for tests and exporters.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// WriteTextfile writes the current values in the node-exporter textfile format.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// ErrMetricsMissing means the simulator exited without producing metrics.
var ErrMetricsMissing = errors.New("simulation finished but metrics file not found")

// RunSimulation deletes stale metrics, runs the built executable headless and
// decodes the metrics file it leaves behind.
func RunSimulation(ctx context.Context, exePath, metricsPath string, timeout time.Duration) (map[string]any, CommandResult, error) {
	if _, err := os.Stat(exePath); err != nil {
		return nil, CommandResult{}, fmt.Errorf("executable not found: %s", exePath)
	}
	if err := os.Remove(metricsPath); err != nil && !os.IsNotExist(err) {
		return nil, CommandResult{}, fmt.Errorf("failed to remove stale metrics: %w", err)
	}

	res, runErr := RunCommand(ctx, []string{exePath, "-batchmode", "-nographics"}, "", timeout)
	if errors.Is(runErr, ErrCommandTimeout) {
		return nil, res, fmt.Errorf("simulation timed out: %w", runErr)
	}

	data, err := os.ReadFile(metricsPath)
	if os.IsNotExist(err) {
		return nil, res, ErrMetricsMissing
	}
	if err != nil {
		return nil, res, fmt.Errorf("failed to read metrics: %w", err)
	}

	var metrics map[string]any
	if err := json.Unmarshal(data, &metrics); err != nil {
		return nil, res, fmt.Errorf("failed to parse metrics %s: %w", metricsPath, err)
	}
	return metrics, res, nil
}

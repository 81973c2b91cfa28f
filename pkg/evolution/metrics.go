package evolution

import (
	"encoding/json"
	"fmt"
	"os"
)

// Metrics is the simulator output. Known keys are win_rate, total_rounds,
// total_collected, stuck_events and timeouts; others are kept as is.
type Metrics map[string]any

// LoadMetrics reads a simulator metrics file.
func LoadMetrics(path string) (Metrics, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read metrics: %w", err)
	}
	var m Metrics
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse metrics %s: %w", path, err)
	}
	return m, nil
}

// Float returns a numeric metric, or 0 when absent or not a number.
func (m Metrics) Float(key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		f, _ := v.Float64()
		return f
	}
	return 0
}

func (m Metrics) WinRate() float64 {
	return m.Float("win_rate")
}

// CollectEfficiency is total_collected / (targetCount * total_rounds).
// total_rounds defaults to 1; a non-positive targetCount yields 0.
func (m Metrics) CollectEfficiency(targetCount int) float64 {
	if targetCount <= 0 {
		return 0
	}
	rounds := m.Float("total_rounds")
	if rounds <= 0 {
		rounds = 1
	}
	return m.Float("total_collected") / (float64(targetCount) * rounds)
}

func (m Metrics) JSON() string {
	data, err := json.Marshal(m)
	if err != nil {
		return "{}"
	}
	return string(data)
}

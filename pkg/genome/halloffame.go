package genome

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	tools "github.com/alantheprice/director/pkg/agent_tools"
)

// Entry is one archived genome.
type Entry struct {
	Seed    int     `json:"seed"`
	WinRate float64 `json:"win_rate"`
	Mode    string  `json:"mode"`
	Genome  Genome  `json:"genome"`
}

// HallOfFame archives genomes whose win rate landed in the target band.
type HallOfFame struct {
	dir string
}

func NewHallOfFame(dir string) *HallOfFame {
	return &HallOfFame{dir: dir}
}

// FileName is the archive name for a seed and win rate.
func FileName(seed int, winRate float64) string {
	return fmt.Sprintf("genome_seed_%d_wr_%.2f.json", seed, winRate)
}

// Archive writes g with its seed and win rate and returns the file path.
func (h *HallOfFame) Archive(g Genome, winRate float64) (string, error) {
	if err := os.MkdirAll(h.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create hall of fame: %w", err)
	}
	entry := Entry{Seed: g.Seed, WinRate: winRate, Mode: g.Mode, Genome: g}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return "", err
	}
	p := filepath.Join(h.dir, FileName(g.Seed, winRate))
	if err := tools.WriteFileAtomic(p, data); err != nil {
		return "", err
	}
	return p, nil
}

// List reads every archived entry, sorted by file name.
func (h *HallOfFame) List() ([]Entry, error) {
	matches, err := filepath.Glob(filepath.Join(h.dir, "genome_seed_*.json"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	var out []Entry
	for _, m := range matches {
		data, err := os.ReadFile(m)
		if err != nil {
			return nil, err
		}
		var e Entry
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("hall of fame %s: %w", filepath.Base(m), err)
		}
		out = append(out, e)
	}
	return out, nil
}

// Package genome holds the per-mode game configuration that the evolution
// loop mutates and the build bakes into the game.
package genome

import (
	"errors"
	"sort"
)

const (
	ModePointToPoint = "PointToPoint"
	ModeCollect      = "Collect"
)

// ErrModeNotFound is returned when the genome file has no entry for a mode.
var ErrModeNotFound = errors.New("genome mode not found")

type Arena struct {
	HalfSize float64 `json:"halfSize"`
	Walls    bool    `json:"walls"`
}

type Agent struct {
	Speed        float64 `json:"speed"`
	Acceleration float64 `json:"acceleration"`
	StopDistance float64 `json:"stopDistance"`
}

type Obstacles struct {
	Count    int     `json:"count"`
	MinScale float64 `json:"minScale"`
	MaxScale float64 `json:"maxScale"`
}

type Rules struct {
	TimeLimit     float64 `json:"timeLimit"`
	Rounds        int     `json:"rounds"`
	TargetCount   int     `json:"targetCount"`
	EnemySpeed    float64 `json:"enemySpeed"`
	TrapChance    float64 `json:"trapChance,omitempty"`
	PowerUpChance float64 `json:"powerUpChance,omitempty"`
}

// Genome is the configuration of one game mode.
type Genome struct {
	Mode      string    `json:"mode"`
	Seed      int       `json:"seed"`
	Arena     Arena     `json:"arena"`
	Agent     Agent     `json:"agent"`
	Obstacles Obstacles `json:"obstacles"`
	Rules     Rules     `json:"rules"`
}

// File is the canonical on-disk layout: one genome per mode.
type File struct {
	ActiveMode string            `json:"active_mode"`
	Modes      map[string]Genome `json:"modes"`
}

// Collection is the list layout the game build reads.
type Collection struct {
	Mode    string   `json:"mode"`
	Configs []Genome `json:"configs"`
}

// DefaultFor returns the starting genome for mode. Unknown modes start from
// the PointToPoint values.
func DefaultFor(mode string) Genome {
	switch mode {
	case ModeCollect:
		return Genome{
			Mode:      ModeCollect,
			Seed:      99,
			Arena:     Arena{HalfSize: 15, Walls: true},
			Agent:     Agent{Speed: 8, Acceleration: 15, StopDistance: 0.5},
			Obstacles: Obstacles{Count: 12, MinScale: 1, MaxScale: 1.5},
			Rules:     Rules{TimeLimit: 45, Rounds: 3, TargetCount: 10, EnemySpeed: 0.5},
		}
	default:
		if mode == "" {
			mode = ModePointToPoint
		}
		return Genome{
			Mode:      mode,
			Seed:      42,
			Arena:     Arena{HalfSize: 10, Walls: true},
			Agent:     Agent{Speed: 6, Acceleration: 12, StopDistance: 0.5},
			Obstacles: Obstacles{Count: 8, MinScale: 1, MaxScale: 2.5},
			Rules:     Rules{TimeLimit: 30, Rounds: 5, TargetCount: 1, EnemySpeed: 1},
		}
	}
}

// Defaults returns a file with both built-in modes.
func Defaults() *File {
	return &File{
		ActiveMode: ModePointToPoint,
		Modes: map[string]Genome{
			ModePointToPoint: DefaultFor(ModePointToPoint),
			ModeCollect:      DefaultFor(ModeCollect),
		},
	}
}

// ModeNames lists the modes in f, sorted.
func (f *File) ModeNames() []string {
	names := make([]string, 0, len(f.Modes))
	for m := range f.Modes {
		names = append(names, m)
	}
	sort.Strings(names)
	return names
}

// Collection converts f to the list layout, tagged with the active mode.
func (f *File) Collection() Collection {
	c := Collection{Mode: f.ActiveMode}
	for _, m := range f.ModeNames() {
		c.Configs = append(c.Configs, f.Modes[m])
	}
	return c
}

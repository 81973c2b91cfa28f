package genome

import (
	"encoding/json"
	"fmt"
	"os"

	tools "github.com/alantheprice/director/pkg/agent_tools"
)

// Parse decodes a genome file. Besides the canonical layout it accepts the
// list layout ({"mode", "configs": [...]}) and a bare single genome, both
// converted to the canonical form.
func Parse(data []byte) (*File, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("genome file is not a JSON object: %w", err)
	}

	switch {
	case top["modes"] != nil:
		var raw struct {
			ActiveMode string                     `json:"active_mode"`
			Modes      map[string]json.RawMessage `json:"modes"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("invalid genome file: %w", err)
		}
		f := &File{ActiveMode: raw.ActiveMode, Modes: map[string]Genome{}}
		for mode, r := range raw.Modes {
			g, err := decodeOver(DefaultFor(mode), r)
			if err != nil {
				return nil, fmt.Errorf("mode %s: %w", mode, err)
			}
			g.Mode = mode
			f.Modes[mode] = g
		}
		return f.normalized(), nil

	case top["configs"] != nil:
		var raw struct {
			Mode    string            `json:"mode"`
			Configs []json.RawMessage `json:"configs"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("invalid genome collection: %w", err)
		}
		f := &File{ActiveMode: raw.Mode, Modes: map[string]Genome{}}
		for i, r := range raw.Configs {
			var head struct {
				Mode string `json:"mode"`
			}
			_ = json.Unmarshal(r, &head)
			g, err := decodeOver(DefaultFor(head.Mode), r)
			if err != nil {
				return nil, fmt.Errorf("configs[%d]: %w", i, err)
			}
			f.Modes[g.Mode] = g
			if f.ActiveMode == "" && i == 0 {
				f.ActiveMode = g.Mode
			}
		}
		return f.normalized(), nil

	case top["arena"] != nil || top["rules"] != nil || top["agent"] != nil:
		var head struct {
			Mode string `json:"mode"`
		}
		_ = json.Unmarshal(data, &head)
		g, err := decodeOver(DefaultFor(head.Mode), data)
		if err != nil {
			return nil, err
		}
		f := Defaults()
		f.Modes[g.Mode] = g
		f.ActiveMode = g.Mode
		return f, nil
	}
	return nil, fmt.Errorf("unrecognized genome file layout")
}

func decodeOver(base Genome, raw []byte) (Genome, error) {
	g := base
	if err := json.Unmarshal(raw, &g); err != nil {
		return base, fmt.Errorf("invalid genome: %w", err)
	}
	if g.Mode == "" {
		g.Mode = base.Mode
	}
	return g, nil
}

func (f *File) normalized() *File {
	if len(f.Modes) == 0 {
		return Defaults()
	}
	if _, ok := f.Modes[f.ActiveMode]; !ok {
		f.ActiveMode = f.ModeNames()[0]
	}
	return f
}

// Store reads and atomically replaces the genome file.
// A single process writes it; concurrent writers are not coordinated.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string {
	return s.path
}

// Load reads the file. A missing file yields the built-in defaults.
func (s *Store) Load() (*File, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return Defaults(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read genome %s: %w", s.path, err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("genome %s: %w", s.path, err)
	}
	return f, nil
}

// Get returns the genome for mode.
func (s *Store) Get(mode string) (Genome, error) {
	f, err := s.Load()
	if err != nil {
		return Genome{}, err
	}
	g, ok := f.Modes[mode]
	if !ok {
		return Genome{}, fmt.Errorf("%w: %s", ErrModeNotFound, mode)
	}
	return g, nil
}

// Put replaces the entry for g.Mode and writes the whole file atomically.
func (s *Store) Put(g Genome) error {
	if g.Mode == "" {
		return fmt.Errorf("genome mode is required")
	}
	f, err := s.Load()
	if err != nil {
		return err
	}
	f.Modes[g.Mode] = g
	return s.save(f)
}

// SetActive marks mode as the one the next build plays. A mode with no
// entry is seeded from the defaults.
func (s *Store) SetActive(mode string) error {
	f, err := s.Load()
	if err != nil {
		return err
	}
	if _, ok := f.Modes[mode]; !ok {
		f.Modes[mode] = DefaultFor(mode)
	}
	f.ActiveMode = mode
	return s.save(f)
}

// ExportCollection writes the list layout read by the game build to dest.
func (s *Store) ExportCollection(dest string) error {
	f, err := s.Load()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(f.Collection(), "", "  ")
	if err != nil {
		return err
	}
	return tools.WriteFileAtomic(dest, data)
}

func (s *Store) save(f *File) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	return tools.WriteFileAtomic(s.path, data)
}

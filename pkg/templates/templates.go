// Package templates serves the trusted project sources that replace
// model-authored content and are forced into the project before builds.
package templates

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed unity/*.cs manifest.yaml
var builtin embed.FS

// ErrNotFound is returned when a template exists in neither source.
var ErrNotFound = errors.New("template not found")

// Entry is one preflight file.
type Entry struct {
	Dest     string `yaml:"dest"`
	Template string `yaml:"template"`
	Required bool   `yaml:"required"`
}

// Override maps a destination suffix to the template that replaces any
// model-provided content written there.
type Override struct {
	Suffix   string `yaml:"suffix"`
	Template string `yaml:"template"`
}

// Manifest describes preflight files and the override table.
type Manifest struct {
	Preflight      []Entry    `yaml:"preflight"`
	Overrides      []Override `yaml:"overrides"`
	GenomeSnapshot string     `yaml:"genome_snapshot"`
}

// DefaultManifest returns the built-in manifest.
func DefaultManifest() (*Manifest, error) {
	data, err := builtin.ReadFile("manifest.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read built-in manifest: %w", err)
	}
	return parseManifest(data)
}

// LoadManifest reads a manifest file, falling back to the built-in one when
// the path is empty or does not exist.
func LoadManifest(p string) (*Manifest, error) {
	if p == "" {
		return DefaultManifest()
	}
	data, err := os.ReadFile(p)
	if os.IsNotExist(err) {
		return DefaultManifest()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", p, err)
	}
	m, err := parseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", p, err)
	}
	return m, nil
}

func parseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	for i := range m.Overrides {
		m.Overrides[i].Suffix = NormalizePath(m.Overrides[i].Suffix)
	}
	// longest suffix first so more specific entries win
	sort.SliceStable(m.Overrides, func(i, j int) bool {
		return len(m.Overrides[i].Suffix) > len(m.Overrides[j].Suffix)
	})
	return &m, nil
}

// Validate rejects entries without a destination or template.
func (m *Manifest) Validate() error {
	for i, e := range m.Preflight {
		if strings.TrimSpace(e.Dest) == "" || strings.TrimSpace(e.Template) == "" {
			return fmt.Errorf("preflight[%d] needs dest and template", i)
		}
		if filepath.IsAbs(e.Dest) || strings.Contains(filepath.ToSlash(e.Dest), "../") {
			return fmt.Errorf("preflight[%d] dest must stay inside the project: %s", i, e.Dest)
		}
	}
	for i, o := range m.Overrides {
		if strings.TrimSpace(o.Suffix) == "" || strings.TrimSpace(o.Template) == "" {
			return fmt.Errorf("overrides[%d] needs suffix and template", i)
		}
	}
	return nil
}

// MatchOverride reports the override for a write destination, if any.
// Matching is on the normalized, lower-cased path suffix.
func (m *Manifest) MatchOverride(dest string) (Override, bool) {
	norm := NormalizePath(dest)
	for _, o := range m.Overrides {
		if strings.HasSuffix(norm, o.Suffix) || norm == strings.TrimPrefix(o.Suffix, "/") {
			return o, true
		}
	}
	return Override{}, false
}

// NormalizePath converts separators to '/', trims space, resolves "." and
// ".." elements and repeated separators, and lower-cases.
func NormalizePath(p string) string {
	p = strings.TrimSpace(strings.ReplaceAll(p, `\`, "/"))
	if p == "" {
		return ""
	}
	return strings.ToLower(path.Clean(p))
}

// Store loads template sources from a directory, optionally backed by the
// built-in set.
type Store struct {
	dir      string
	fallback fs.FS
}

// NewStore creates a store reading from dir. When useBuiltin is set, names
// missing from dir are served from the embedded templates.
func NewStore(dir string, useBuiltin bool) *Store {
	s := &Store{dir: dir}
	if useBuiltin {
		sub, err := fs.Sub(builtin, "unity")
		if err == nil {
			s.fallback = sub
		}
	}
	return s
}

// Load returns the content of a named template.
func (s *Store) Load(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("invalid template name %q", name)
	}
	if s.dir != "" {
		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err == nil {
			return string(data), nil
		}
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("failed reading template %s: %w", name, err)
		}
	}
	if s.fallback != nil {
		data, err := fs.ReadFile(s.fallback, path.Clean(name))
		if err == nil {
			return string(data), nil
		}
	}
	return "", fmt.Errorf("%w: %s in %s", ErrNotFound, name, s.dir)
}

// Names lists templates available from either source.
func (s *Store) Names() []string {
	seen := map[string]bool{}
	if s.dir != "" {
		if entries, err := os.ReadDir(s.dir); err == nil {
			for _, e := range entries {
				if !e.IsDir() {
					seen[e.Name()] = true
				}
			}
		}
	}
	if s.fallback != nil {
		if entries, err := fs.ReadDir(s.fallback, "."); err == nil {
			for _, e := range entries {
				seen[e.Name()] = true
			}
		}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

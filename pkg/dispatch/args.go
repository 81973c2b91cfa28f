package dispatch

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

type listDirArgs struct {
	Path string `mapstructure:"path"`
}

type readFileArgs struct {
	Path     string `mapstructure:"path"`
	MaxBytes int    `mapstructure:"max_bytes"`
}

type writeFileArgs struct {
	Path    string `mapstructure:"path"`
	Content string `mapstructure:"content"`
}

type runCmdArgs struct {
	Cmd        []string `mapstructure:"cmd"`
	Cwd        string   `mapstructure:"cwd"`
	TimeoutSec float64  `mapstructure:"timeout_sec"`
}

type snapshotCreateArgs struct {
	Label string `mapstructure:"label"`
}

type snapshotRestoreArgs struct {
	SnapshotID string `mapstructure:"snapshot_id"`
}

type findToolchainArgs struct {
	Path string `mapstructure:"path"`
}

type projectArgs struct {
	ToolchainPath string `mapstructure:"toolchain_path"`
	ProjectPath   string `mapstructure:"project_path"`
	ProjectName   string `mapstructure:"project_name"`
}

type runBuildArgs struct {
	ToolchainPath string `mapstructure:"toolchain_path"`
	ProjectPath   string `mapstructure:"project_path"`
	ProjectName   string `mapstructure:"project_name"`
	Method        string `mapstructure:"method"`
	LogFile       string `mapstructure:"log_file"`
}

type simulationArgs struct {
	ExePath     string  `mapstructure:"exe_path"`
	MetricsPath string  `mapstructure:"metrics_path"`
	TimeoutSec  float64 `mapstructure:"timeout_sec"`
}

// decodeArgs decodes loosely typed model arguments into a typed record.
// Keys the record does not declare are returned so callers can log them.
func decodeArgs(in map[string]any, out any) ([]string, error) {
	var md mapstructure.Metadata
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Metadata:         &md,
		Result:           out,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(in); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	sort.Strings(md.Unused)
	return md.Unused, nil
}

// decode is decodeArgs for tool, logging keys the tool does not take.
func (d *Dispatcher) decode(tool string, in map[string]any, out any) error {
	unused, err := decodeArgs(in, out)
	if err != nil {
		return err
	}
	if len(unused) > 0 {
		d.logger.Logf("tool %s ignoring unknown args: %s", tool, strings.Join(unused, ", "))
	}
	return nil
}

// normalizeCmd turns a command given as a string into whitespace tokens,
// keeps lists, and drops anything else.
func normalizeCmd(v any) []string {
	switch c := v.(type) {
	case string:
		return strings.Fields(c)
	case []string:
		return c
	case []any:
		out := make([]string, 0, len(c))
		for _, x := range c {
			out = append(out, fmt.Sprint(x))
		}
		return out
	default:
		return nil
	}
}

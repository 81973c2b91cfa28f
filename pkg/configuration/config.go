package configuration

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alantheprice/director/pkg/contract"
	"github.com/spf13/viper"
)

const (
	ConfigDirName  = ".director"
	ConfigFileName = "director.yaml"
	EnvPrefix      = "DIRECTOR"
)

// Config represents the director configuration
type Config struct {
	Ollama     OllamaConfig     `mapstructure:"ollama"`
	Planner    PlannerConfig    `mapstructure:"planner"`
	Evolution  EvolutionConfig  `mapstructure:"evolution"`
	Paths      PathsConfig      `mapstructure:"paths"`
	Project    ProjectConfig    `mapstructure:"project"`
	Toolchain  ToolchainConfig  `mapstructure:"toolchain"`
	Simulation SimulationConfig `mapstructure:"simulation"`
	Run        RunConfig        `mapstructure:"run"`
	Tools      ToolsConfig      `mapstructure:"tools"`
}

// OllamaConfig points at the model service
type OllamaConfig struct {
	Host        string        `mapstructure:"host"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	TopP        float64       `mapstructure:"top_p"`
	NumCtx      int           `mapstructure:"num_ctx"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// PlannerConfig drives the plan/execute/replan loop
type PlannerConfig struct {
	MaxReplans          int               `mapstructure:"max_replans"`
	PreviousOutputLimit int               `mapstructure:"previous_output_limit"`
	SystemPrompt        string            `mapstructure:"system_prompt"`
	SystemPromptFile    string            `mapstructure:"system_prompt_file"`
	DefaultGoal         string            `mapstructure:"default_goal"`
	MasterPlanRetries   int               `mapstructure:"master_plan_retries"`
	MasterPlanFiles     []string          `mapstructure:"master_plan_files"`
	Contract            contract.Contract `mapstructure:"contract"`
}

// EvolutionConfig drives genome mutation
type EvolutionConfig struct {
	TargetMin   float64 `mapstructure:"target_min"`
	TargetMax   float64 `mapstructure:"target_max"`
	Temperature float64 `mapstructure:"temperature"`
	TopP        float64 `mapstructure:"top_p"`
	NumCtx      int     `mapstructure:"num_ctx"`
}

// PathsConfig holds every on-disk location, relative to the workspace
type PathsConfig struct {
	State           string `mapstructure:"state"`
	Logs            string `mapstructure:"logs"`
	Backups         string `mapstructure:"backups"`
	Projects        string `mapstructure:"projects"`
	Templates       string `mapstructure:"templates"`
	Manifest        string `mapstructure:"manifest"`
	Genome          string `mapstructure:"genome"`
	HallOfFame      string `mapstructure:"hall_of_fame"`
	MasterPlan      string `mapstructure:"master_plan"`
	AuditDB         string `mapstructure:"audit_db"`
	MetricsTextfile string `mapstructure:"metrics_textfile"`
	Changes         string `mapstructure:"changes"`
}

// ProjectConfig names the generated project and its build outputs
type ProjectConfig struct {
	Name       string `mapstructure:"name"`
	Executable string `mapstructure:"executable"`
	Metrics    string `mapstructure:"metrics"`
}

// ToolchainConfig describes the external editor CLI
type ToolchainConfig struct {
	EditorGlobs    []string      `mapstructure:"editor_globs"`
	BuildMethod    string        `mapstructure:"build_method"`
	LogPrefix      string        `mapstructure:"log_prefix"`
	CompileMarkers []string      `mapstructure:"compile_markers"`
	CommandTimeout time.Duration `mapstructure:"command_timeout"`
	BuildTimeout   time.Duration `mapstructure:"build_timeout"`
}

// SimulationConfig bounds headless game runs
type SimulationConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// RunConfig drives the multi-mode cycle
type RunConfig struct {
	Modes       []string      `mapstructure:"modes"`
	RunsPerMode int           `mapstructure:"runs_per_mode"`
	Pause       time.Duration `mapstructure:"pause"`
}

// ToolsConfig holds dispatcher policy
type ToolsConfig struct {
	BlockDestructive bool `mapstructure:"block_destructive"`
}

// DefaultSystemPrompt instructs the planner model.
const DefaultSystemPrompt = `You are a build automation planner. You drive a game engine editor through tools.
Return exactly one JSON object describing a plan. Each step lists tool calls with explicit args.
Use find_toolchain before create_project and run_build. Write sources with write_file under Assets/.
Never invent tools that are not listed in allowed_tools.`

// DefaultTools is every tool the dispatcher registers.
var DefaultTools = []string{
	"env_info", "list_dir", "read_file", "write_file", "run_cmd",
	"snapshot_create", "snapshot_restore",
	"find_toolchain", "create_project", "run_build", "run_simulation",
}

// NewConfig creates a new configuration with defaults
func NewConfig() *Config {
	return &Config{
		Ollama: OllamaConfig{
			Host:        "http://localhost:11434",
			Model:       "llama3.1:8b",
			Temperature: 0.2,
			TopP:        0.9,
			NumCtx:      8192,
			Timeout:     180 * time.Second,
		},
		Planner: PlannerConfig{
			MaxReplans:          3,
			PreviousOutputLimit: 4000,
			SystemPrompt:        DefaultSystemPrompt,
			DefaultGoal:         "Create the game project, write its scripts and build it headless.",
			MasterPlanRetries:   5,
			MasterPlanFiles:     []string{"BuildScript.cs", "GameManager.cs", "ChaserAI.cs"},
			Contract: contract.Contract{
				Allowed:   append([]string{}, DefaultTools...),
				Forbidden: []string{"snapshot_restore"},
				Rules: []string{
					"Paths under Assets/ are relative to the project.",
					"Do not copy or move build logs; run_build writes them.",
					"Use run_build with method BuildScript.MakeBuild as the last step.",
				},
			},
		},
		Evolution: EvolutionConfig{
			TargetMin:   0.6,
			TargetMax:   0.8,
			Temperature: 0.3,
			TopP:        0.9,
			NumCtx:      4096,
		},
		Paths: PathsConfig{
			State:           filepath.Join("state", "state.json"),
			Logs:            "logs",
			Backups:         "backups",
			Projects:        "projects",
			Templates:       filepath.Join("templates", "unity"),
			Manifest:        filepath.Join("templates", "manifest.yaml"),
			Genome:          filepath.Join("configs", "game_genome.json"),
			HallOfFame:      "hall_of_fame",
			MasterPlan:      filepath.Join("configs", "master_plan.json"),
			AuditDB:         filepath.Join("logs", "evolution.db"),
			MetricsTextfile: filepath.Join("logs", "director.prom"),
			Changes:         filepath.Join("logs", "overrides.jsonl"),
		},
		Project: ProjectConfig{
			Name:       "game_001",
			Executable: filepath.Join("Builds", "Game001.exe"),
			Metrics:    filepath.Join("Builds", "metrics.json"),
		},
		Toolchain: ToolchainConfig{
			EditorGlobs: []string{
				`C:\Program Files\Unity\Hub\Editor\*\Editor\Unity.exe`,
				`C:\Program Files\Unity Hub\Editor\*\Editor\Unity.exe`,
				`C:\Program Files\Unity\Editor\Unity.exe`,
				`C:\Program Files (x86)\Unity\Hub\Editor\*\Editor\Unity.exe`,
				"/Applications/Unity/Hub/Editor/*/Unity.app/Contents/MacOS/Unity",
				"/opt/unity/editors/*/Editor/Unity",
			},
			BuildMethod:    "BuildScript.MakeBuild",
			LogPrefix:      "unity-build-",
			CompileMarkers: []string{"error CS", "Scripts have compiler errors", "Compilation failed"},
			CommandTimeout: 900 * time.Second,
			BuildTimeout:   3600 * time.Second,
		},
		Simulation: SimulationConfig{Timeout: 120 * time.Second},
		Run: RunConfig{
			Modes:       []string{"PointToPoint", "Collect"},
			RunsPerMode: 5,
			Pause:       3 * time.Second,
		},
	}
}

func setDefaults(v *viper.Viper, c *Config) {
	v.SetDefault("ollama.host", c.Ollama.Host)
	v.SetDefault("ollama.model", c.Ollama.Model)
	v.SetDefault("ollama.temperature", c.Ollama.Temperature)
	v.SetDefault("ollama.top_p", c.Ollama.TopP)
	v.SetDefault("ollama.num_ctx", c.Ollama.NumCtx)
	v.SetDefault("ollama.timeout", c.Ollama.Timeout)

	v.SetDefault("planner.max_replans", c.Planner.MaxReplans)
	v.SetDefault("planner.previous_output_limit", c.Planner.PreviousOutputLimit)
	v.SetDefault("planner.system_prompt", c.Planner.SystemPrompt)
	v.SetDefault("planner.system_prompt_file", c.Planner.SystemPromptFile)
	v.SetDefault("planner.default_goal", c.Planner.DefaultGoal)
	v.SetDefault("planner.master_plan_retries", c.Planner.MasterPlanRetries)
	v.SetDefault("planner.master_plan_files", c.Planner.MasterPlanFiles)
	v.SetDefault("planner.contract.allowed_tools", c.Planner.Contract.Allowed)
	v.SetDefault("planner.contract.forbidden_tools", c.Planner.Contract.Forbidden)
	v.SetDefault("planner.contract.rules", c.Planner.Contract.Rules)

	v.SetDefault("evolution.target_min", c.Evolution.TargetMin)
	v.SetDefault("evolution.target_max", c.Evolution.TargetMax)
	v.SetDefault("evolution.temperature", c.Evolution.Temperature)
	v.SetDefault("evolution.top_p", c.Evolution.TopP)
	v.SetDefault("evolution.num_ctx", c.Evolution.NumCtx)

	v.SetDefault("paths.state", c.Paths.State)
	v.SetDefault("paths.logs", c.Paths.Logs)
	v.SetDefault("paths.backups", c.Paths.Backups)
	v.SetDefault("paths.projects", c.Paths.Projects)
	v.SetDefault("paths.templates", c.Paths.Templates)
	v.SetDefault("paths.manifest", c.Paths.Manifest)
	v.SetDefault("paths.genome", c.Paths.Genome)
	v.SetDefault("paths.hall_of_fame", c.Paths.HallOfFame)
	v.SetDefault("paths.master_plan", c.Paths.MasterPlan)
	v.SetDefault("paths.audit_db", c.Paths.AuditDB)
	v.SetDefault("paths.metrics_textfile", c.Paths.MetricsTextfile)
	v.SetDefault("paths.changes", c.Paths.Changes)

	v.SetDefault("project.name", c.Project.Name)
	v.SetDefault("project.executable", c.Project.Executable)
	v.SetDefault("project.metrics", c.Project.Metrics)

	v.SetDefault("toolchain.editor_globs", c.Toolchain.EditorGlobs)
	v.SetDefault("toolchain.build_method", c.Toolchain.BuildMethod)
	v.SetDefault("toolchain.log_prefix", c.Toolchain.LogPrefix)
	v.SetDefault("toolchain.compile_markers", c.Toolchain.CompileMarkers)
	v.SetDefault("toolchain.command_timeout", c.Toolchain.CommandTimeout)
	v.SetDefault("toolchain.build_timeout", c.Toolchain.BuildTimeout)

	v.SetDefault("simulation.timeout", c.Simulation.Timeout)

	v.SetDefault("run.modes", c.Run.Modes)
	v.SetDefault("run.runs_per_mode", c.Run.RunsPerMode)
	v.SetDefault("run.pause", c.Run.Pause)

	v.SetDefault("tools.block_destructive", c.Tools.BlockDestructive)
}

// Load reads configuration from path, or from the first of director.yaml,
// config.yaml or .director/director.yaml found in the working directory.
// A missing file is not an error; defaults and DIRECTOR_* environment
// variables still apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, NewConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if cfg.Planner.SystemPromptFile != "" {
		data, err := os.ReadFile(cfg.Planner.SystemPromptFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read system prompt: %w", err)
		}
		cfg.Planner.SystemPrompt = string(data)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func findConfigFile() string {
	for _, candidate := range []string{
		ConfigFileName,
		"config.yaml",
		filepath.Join(ConfigDirName, ConfigFileName),
	} {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Ollama.Host) == "" {
		errs = append(errs, fmt.Errorf("ollama.host is required"))
	}
	if strings.TrimSpace(c.Ollama.Model) == "" {
		errs = append(errs, fmt.Errorf("ollama.model is required"))
	}
	if c.Ollama.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("ollama.timeout must be positive"))
	}
	if c.Planner.MaxReplans < 0 {
		errs = append(errs, fmt.Errorf("planner.max_replans must be >= 0"))
	}
	if c.Planner.PreviousOutputLimit <= 0 {
		errs = append(errs, fmt.Errorf("planner.previous_output_limit must be positive"))
	}
	if c.Evolution.TargetMin < 0 || c.Evolution.TargetMax > 1 || c.Evolution.TargetMin > c.Evolution.TargetMax {
		errs = append(errs, fmt.Errorf("evolution target band must satisfy 0 <= target_min <= target_max <= 1"))
	}
	if len(c.Run.Modes) == 0 {
		errs = append(errs, fmt.Errorf("run.modes must not be empty"))
	}
	if c.Run.RunsPerMode < 1 {
		errs = append(errs, fmt.Errorf("run.runs_per_mode must be >= 1"))
	}
	if strings.TrimSpace(c.Project.Name) == "" {
		errs = append(errs, fmt.Errorf("project.name is required"))
	}
	if strings.TrimSpace(c.Toolchain.BuildMethod) == "" {
		errs = append(errs, fmt.Errorf("toolchain.build_method is required"))
	}
	return errors.Join(errs...)
}

// ProjectPath returns the project directory for name under the projects dir.
func (c *Config) ProjectPath(name string) string {
	if name == "" {
		name = c.Project.Name
	}
	return filepath.Join(c.Paths.Projects, name)
}

// ExecutablePath is the built game for the configured project.
func (c *Config) ExecutablePath() string {
	return filepath.Join(c.ProjectPath(""), c.Project.Executable)
}

// MetricsPath is where the simulator writes its results.
func (c *Config) MetricsPath() string {
	return filepath.Join(c.ProjectPath(""), c.Project.Metrics)
}

// RunLogDir holds per-run JSONL event logs.
func (c *Config) RunLogDir() string {
	return filepath.Join(c.Paths.Logs, "runlogs")
}

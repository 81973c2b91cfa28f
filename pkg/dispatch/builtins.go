package dispatch

import "time"

func registerBuiltins(d *Dispatcher) {
	d.RegisterTool(ToolConfig{
		Name:        "env_info",
		Description: "Report OS, architecture, working directory and PATH",
		Handler:     handleEnvInfo,
	})
	d.RegisterTool(ToolConfig{
		Name:        "list_dir",
		Description: "List a directory",
		Parameters: []ParameterConfig{
			{"path", []string{"dir", "directory"}, "Directory to list"},
		},
		Handler: handleListDir,
	})
	d.RegisterTool(ToolConfig{
		Name:        "read_file",
		Description: "Read a text file",
		Parameters: []ParameterConfig{
			{"path", []string{"file_path"}, "File to read"},
			{"max_bytes", nil, "Read limit"},
		},
		Handler: handleReadFile,
	})
	d.RegisterTool(ToolConfig{
		Name:        "write_file",
		Description: "Write a file; Assets/ paths are relative to the project",
		Parameters: []ParameterConfig{
			{"path", []string{"file_path"}, "Destination"},
			{"content", []string{"text", "data"}, "File content"},
		},
		Handler: handleWriteFile,
	})
	d.RegisterTool(ToolConfig{
		Name:        "run_cmd",
		Description: "Run a process without a shell",
		Parameters: []ParameterConfig{
			{"cmd", []string{"command"}, "Command as a string or list"},
			{"cwd", nil, "Working directory"},
			{"timeout_sec", []string{"timeout"}, "Timeout in seconds"},
		},
		Handler: handleRunCmd,
	})
	d.RegisterTool(ToolConfig{
		Name:        "snapshot_create",
		Description: "Copy the workspace into the backups directory",
		Parameters: []ParameterConfig{
			{"label", []string{"name"}, "Snapshot label"},
		},
		Handler: handleSnapshotCreate,
	})
	d.RegisterTool(ToolConfig{
		Name:        "snapshot_restore",
		Description: "Restore the workspace from a snapshot",
		Parameters: []ParameterConfig{
			{"snapshot_id", []string{"id"}, "Snapshot id"},
		},
		Handler: handleSnapshotRestore,
	})
	d.RegisterTool(ToolConfig{
		Name:        "find_toolchain",
		Description: "Locate the editor executable",
		Parameters: []ParameterConfig{
			{"path", []string{"toolchain_path"}, "Known editor path"},
		},
		Handler: handleFindToolchain,
	})
	d.RegisterTool(ToolConfig{
		Name:        "create_project",
		Description: "Create a project headless",
		Parameters: []ParameterConfig{
			{"toolchain_path", []string{"unity_path", "editor_path"}, "Editor executable"},
			{"project_path", nil, "Project directory"},
			{"project_name", []string{"name"}, "Project name under the projects directory"},
		},
		Handler: handleCreateProject,
	})
	d.RegisterTool(ToolConfig{
		Name:        "run_build",
		Description: "Write preflight files and run the build method headless",
		Parameters: []ParameterConfig{
			{"toolchain_path", []string{"unity_path", "editor_path"}, "Editor executable"},
			{"project_path", nil, "Project directory"},
			{"project_name", nil, "Project name"},
			{"method", []string{"method_name"}, "Static build method"},
			{"log_file", []string{"log"}, "Build log destination"},
		},
		Build:   true,
		Handler: handleRunBuild,
	})
	d.RegisterTool(ToolConfig{
		Name:        "run_simulation",
		Description: "Run the built game headless and read its metrics",
		Parameters: []ParameterConfig{
			{"exe_path", nil, "Game executable"},
			{"metrics_path", nil, "Metrics file written by the game"},
			{"timeout_sec", []string{"timeout"}, "Timeout in seconds"},
		},
		Handler: handleRunSimulation,
	})
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

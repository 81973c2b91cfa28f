package dispatch

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	tools "github.com/alantheprice/director/pkg/agent_tools"
)

var copyVerbs = map[string]bool{
	"copy": true, "cp": true, "move": true, "mv": true,
	"copy-item": true, "move-item": true, "xcopy": true, "robocopy": true,
}

func handleRunCmd(ctx context.Context, d *Dispatcher, args map[string]any, ectx *ExecutionContext) ToolResult {
	argv := normalizeCmd(args["cmd"])
	rest := make(map[string]any, len(args))
	for k, v := range args {
		if k != "cmd" {
			rest[k] = v
		}
	}
	var a runCmdArgs
	if err := d.decode("run_cmd", rest, &a); err != nil {
		return failResult("run_cmd: %v", err)
	}

	cwd := ""
	if a.Cwd != "" {
		if expanded, ok := ectx.expand(a.Cwd); ok {
			cwd = expanded
		}
	}

	if len(argv) == 0 {
		return failResult("run_cmd requires a non-empty 'cmd'.")
	}

	if d.isBuildLogCopy(argv) {
		return okResult("log save step ignored (log_file already written by run_build).", nil)
	}

	if strings.EqualFold(argv[0], "mkdir") && len(argv) >= 2 {
		return mkdirIdempotent(argv[1:], cwd)
	}

	cmdline := strings.Join(argv, " ")
	if dc, ok := tools.IsDestructiveCommand(cmdline); ok {
		if d.opts.BlockDestructive {
			return failResult("run_cmd blocked destructive command (%s, risk %s): %s", dc.Description, dc.RiskLevel, cmdline)
		}
		d.logger.Logf("warning: running destructive command (%s): %s", dc.Description, cmdline)
	}

	timeout := d.opts.CommandTimeout
	if a.TimeoutSec > 0 {
		timeout = secondsToDuration(a.TimeoutSec)
	}
	res, err := tools.RunCommand(ctx, argv, cwd, timeout)
	data := map[string]any{"exit_code": res.ExitCode}
	if err != nil {
		return ToolResult{OK: false, Output: joinOutput(err.Error(), res.Output), Data: data}
	}
	return okResult(res.Output, data)
}

// isBuildLogCopy matches commands that copy or move the build log, which
// run_build already writes to its final location.
func (d *Dispatcher) isBuildLogCopy(argv []string) bool {
	marker := strings.ToLower(strings.TrimRight(d.opts.LogPrefix, "-_"))
	if marker == "" {
		return false
	}
	hasVerb := false
	for _, tok := range argv {
		if copyVerbs[strings.ToLower(tok)] {
			hasVerb = true
			break
		}
	}
	return hasVerb && strings.Contains(strings.ToLower(strings.Join(argv, " ")), marker)
}

func mkdirIdempotent(rest []string, cwd string) ToolResult {
	var parts []string
	for _, tok := range rest {
		if strings.HasPrefix(tok, "-") {
			continue
		}
		parts = append(parts, tok)
	}
	dir := strings.Trim(strings.TrimSpace(strings.Join(parts, " ")), `"'`)
	if dir == "" {
		return failResult("mkdir error: no directory given")
	}
	if cwd != "" && !filepath.IsAbs(dir) {
		dir = filepath.Join(cwd, dir)
	}
	if err := tools.EnsureDir(dir); err != nil {
		return failResult("mkdir error: %v", err)
	}
	return okResult(fmt.Sprintf("mkdir ok (idempotent): %s", dir), map[string]any{"dir": dir})
}

func handleSnapshotCreate(ctx context.Context, d *Dispatcher, args map[string]any, ectx *ExecutionContext) ToolResult {
	var a snapshotCreateArgs
	if err := d.decode("snapshot_create", args, &a); err != nil {
		return failResult("snapshot_create: %v", err)
	}
	if a.Label == "" {
		a.Label = "snapshot"
	}
	snap, err := tools.SnapshotCreate(d.opts.WorkspaceDir, d.opts.BackupsDir, a.Label)
	if err != nil {
		return failResult("snapshot error: %v", err)
	}
	ectx.Set("last_snapshot_id", snap.ID)
	return okResult("snapshot ok: "+snap.Path, map[string]any{"snapshot_id": snap.ID, "path": snap.Path})
}

func handleSnapshotRestore(ctx context.Context, d *Dispatcher, args map[string]any, ectx *ExecutionContext) ToolResult {
	var a snapshotRestoreArgs
	if err := d.decode("snapshot_restore", args, &a); err != nil {
		return failResult("snapshot_restore: %v", err)
	}
	if a.SnapshotID == "" {
		return failResult("snapshot_restore requires 'snapshot_id'.")
	}
	from, err := tools.SnapshotRestore(d.opts.BackupsDir, a.SnapshotID, d.opts.WorkspaceDir)
	if err != nil {
		return failResult("restore error: %v", err)
	}
	return okResult("restored from "+from, map[string]any{"snapshot_id": a.SnapshotID})
}

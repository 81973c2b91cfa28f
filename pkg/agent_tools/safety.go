package tools

import (
	"regexp"
	"strings"
)

// DestructiveCommand represents a potentially destructive command
type DestructiveCommand struct {
	Pattern     *regexp.Regexp
	Description string
	RiskLevel   string // "high", "medium", "low"
}

// DestructiveCommands lists patterns matched against a joined run_cmd argv.
var DestructiveCommands = []DestructiveCommand{
	{Pattern: regexp.MustCompile(`^\s*rm\s+-(rf?|fr)\s+`), Description: "Recursive file deletion", RiskLevel: "high"},
	{Pattern: regexp.MustCompile(`^\s*rm\s+.*\*`), Description: "Wildcard file deletion", RiskLevel: "high"},
	{Pattern: regexp.MustCompile(`^\s*(rmdir|rd)\s+(/s\s+)?`), Description: "Directory deletion", RiskLevel: "high"},
	{Pattern: regexp.MustCompile(`^\s*del\s+(/[sfq]\s+)+`), Description: "Forced file deletion", RiskLevel: "high"},
	{Pattern: regexp.MustCompile(`^\s*dd\s+`), Description: "Disk/device manipulation", RiskLevel: "high"},
	{Pattern: regexp.MustCompile(`^\s*git\s+reset\s+--hard`), Description: "Hard git reset", RiskLevel: "medium"},
	{Pattern: regexp.MustCompile(`^\s*git\s+clean\s+-f`), Description: "Git clean with force", RiskLevel: "medium"},
	{Pattern: regexp.MustCompile(`^\s*(kill|pkill|taskkill)\s+`), Description: "Process termination", RiskLevel: "low"},
	{Pattern: regexp.MustCompile(`^\s*(reboot|shutdown)\b`), Description: "System shutdown", RiskLevel: "low"},
}

// IsDestructiveCommand checks if a command is potentially destructive
func IsDestructiveCommand(command string) (*DestructiveCommand, bool) {
	command = strings.TrimSpace(command)
	for i := range DestructiveCommands {
		if DestructiveCommands[i].Pattern.MatchString(command) {
			return &DestructiveCommands[i], true
		}
	}
	return nil, false
}

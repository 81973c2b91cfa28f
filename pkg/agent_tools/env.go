package tools

import (
	"os"
	"runtime"
)

const maxPathChars = 2000

// EnvInfo reports the host facts the planner embeds in its prompt.
func EnvInfo() map[string]any {
	cwd, _ := os.Getwd()
	host, _ := os.Hostname()
	path := os.Getenv("PATH")
	if len(path) > maxPathChars {
		path = path[:maxPathChars]
	}
	return map[string]any{
		"os":       osName(runtime.GOOS),
		"goos":     runtime.GOOS,
		"arch":     runtime.GOARCH,
		"runtime":  runtime.Version(),
		"hostname": host,
		"cwd":      cwd,
		"path":     path,
	}
}

func osName(goos string) string {
	switch goos {
	case "windows":
		return "Windows"
	case "darwin":
		return "Darwin"
	case "linux":
		return "Linux"
	default:
		return goos
	}
}

package cmd

import (
	"os"

	"golang.org/x/term"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	red    = "\x1b[31m"
	green  = "\x1b[32m"
	yellow = "\x1b[33m"
	cyan   = "\x1b[36m"
	reset  = "\x1b[0m"
)

// colorize wraps s in an ANSI color when stdout is a terminal.
func colorize(color, s string) string {
	if os.Getenv("NO_COLOR") != "" || !term.IsTerminal(int(os.Stdout.Fd())) {
		return s
	}
	return color + s + reset
}

// modeTitle renders a mode name such as "collect" or "point_to_point" for
// display.
func modeTitle(mode string) string {
	return cases.Title(language.Und, cases.NoLower).String(mode)
}

func statusColor(ok bool) string {
	if ok {
		return green
	}
	return red
}

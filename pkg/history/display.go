package history

import (
	"fmt"
	"strings"
	"time"
)

// Format renders entries for the terminal.
func Format(entries []Entry) string {
	if len(entries) == 0 {
		return "No runs recorded.\n"
	}
	var b strings.Builder
	for _, e := range entries {
		b.WriteString(strings.Repeat("=", 60) + "\n")
		fmt.Fprintf(&b, "Run ID: %s\n", e.ID)
		fmt.Fprintf(&b, "Time: %s\n", e.Timestamp.Format(time.RFC1123))
		if e.Mode != "" {
			fmt.Fprintf(&b, "Mode: %s\n", e.Mode)
		}
		fmt.Fprintf(&b, "Goal: %s\n", e.Goal)
		fmt.Fprintf(&b, "Result: %s after %d attempt(s)\n", e.Status, len(e.Attempts))
		for _, a := range e.Attempts {
			b.WriteString(strings.Repeat("-", 40) + "\n")
			fmt.Fprintf(&b, "  #%d %s", a.Number, a.Outcome)
			if a.Calls > 0 {
				fmt.Fprintf(&b, " (%d steps, %d calls)", a.Steps, a.Calls)
			}
			b.WriteString("\n")
			if a.Reason != "" {
				b.WriteString(wrapAndIndent(a.Reason, 72, 4) + "\n")
			}
		}
		if e.RunLog != "" {
			fmt.Fprintf(&b, "Run log: %s\n", e.RunLog)
		}
	}
	return b.String()
}

func wrapAndIndent(text string, width, indent int) string {
	pad := strings.Repeat(" ", indent)
	var lines []string
	for _, para := range strings.Split(text, "\n") {
		line := ""
		for _, word := range strings.Fields(para) {
			if line != "" && len(line)+1+len(word) > width {
				lines = append(lines, pad+line)
				line = word
				continue
			}
			if line == "" {
				line = word
			} else {
				line += " " + word
			}
		}
		lines = append(lines, pad+line)
	}
	return strings.Join(lines, "\n")
}

package changetracker

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Color constants for terminal output
const (
	RedColor    = "\x1b[31m"
	GreenColor  = "\x1b[32m"
	YellowColor = "\x1b[33m"
	BoldStyle   = "\x1b[1m"
	ResetColor  = "\x1b[0m"
)

// DiffStats counts changed lines between two texts.
type DiffStats struct {
	Additions int `json:"additions"`
	Deletions int `json:"deletions"`
}

// lineRuneBase is the first private-use code point; each distinct line is
// encoded as one rune from here on.
const lineRuneBase = 0xE000

// LineDiff computes a line-granular diff. Every distinct line becomes a
// single rune so the diff runs over whole lines.
func LineDiff(originalCode, newCode string) []diffmatchpatch.Diff {
	index := map[string]rune{}
	var lines []string
	encode := func(text string) []rune {
		parts := strings.SplitAfter(text, "\n")
		if parts[len(parts)-1] == "" {
			parts = parts[:len(parts)-1]
		}
		out := make([]rune, len(parts))
		for i, line := range parts {
			r, ok := index[line]
			if !ok {
				r = lineRuneBase + rune(len(lines))
				index[line] = r
				lines = append(lines, line)
			}
			out[i] = r
		}
		return out
	}
	a, b := encode(originalCode), encode(newCode)

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMainRunes(a, b, false)
	for i, d := range diffs {
		var text strings.Builder
		for _, r := range d.Text {
			text.WriteString(lines[r-lineRuneBase])
		}
		diffs[i].Text = text.String()
	}
	return diffs
}

// Stats counts added and deleted lines in a line diff.
func Stats(diffs []diffmatchpatch.Diff) DiffStats {
	var s DiffStats
	for _, d := range diffs {
		n := countLines(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			s.Additions += n
		case diffmatchpatch.DiffDelete:
			s.Deletions += n
		}
	}
	return s
}

// GetDiff renders changed lines with +/- markers, at most maxLines of them.
// Colors are added only when color is set.
func GetDiff(filename, originalCode, newCode string, maxLines int, color bool) string {
	diffs := LineDiff(originalCode, newCode)
	stats := Stats(diffs)

	var b strings.Builder
	header := fmt.Sprintf("%s +%d -%d", filename, stats.Additions, stats.Deletions)
	if color {
		header = BoldStyle + YellowColor + header + ResetColor
	}
	b.WriteString(header + "\n")

	written := 0
	for _, d := range diffs {
		var prefix, start string
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			prefix, start = "+ ", GreenColor
		case diffmatchpatch.DiffDelete:
			prefix, start = "- ", RedColor
		default:
			continue
		}
		for _, line := range strings.Split(strings.TrimSuffix(d.Text, "\n"), "\n") {
			if maxLines > 0 && written >= maxLines {
				b.WriteString("...\n")
				return b.String()
			}
			if color {
				b.WriteString(start + prefix + line + ResetColor + "\n")
			} else {
				b.WriteString(prefix + line + "\n")
			}
			written++
		}
	}
	return b.String()
}

func countLines(text string) int {
	if text == "" {
		return 0
	}
	n := strings.Count(text, "\n")
	if !strings.HasSuffix(text, "\n") {
		n++
	}
	return n
}

// Package diff computes line-oriented differences between two text blobs.
//
// The algorithm is positional: both inputs are walked with independent
// cursors and lines are compared at the same index. It never realigns after
// an insertion or deletion, so one line inserted near the top reports every
// later line as a removed/added pair. Displayed and exported diffs depend on
// this exact output; a smarter algorithm has to be added as a separate mode.
package diff

import "strings"

type LineType string

const (
	Added     LineType = "added"
	Removed   LineType = "removed"
	Unchanged LineType = "unchanged"
)

type Line struct {
	Type    LineType `json:"type"`
	Content string   `json:"content"`
}

type Stats struct {
	Added     int `json:"added"`
	Removed   int `json:"removed"`
	Unchanged int `json:"unchanged"`
}

// Calculate diffs oldContent against newContent line by line. An empty
// string has no lines, so Calculate("", "") is empty.
func Calculate(oldContent, newContent string) []Line {
	oldLines := splitLines(oldContent)
	newLines := splitLines(newContent)
	out := make([]Line, 0, max(len(oldLines), len(newLines)))

	oldIndex, newIndex := 0, 0
	for oldIndex < len(oldLines) || newIndex < len(newLines) {
		switch {
		case oldIndex >= len(oldLines):
			out = append(out, Line{Type: Added, Content: newLines[newIndex]})
			newIndex++
		case newIndex >= len(newLines):
			out = append(out, Line{Type: Removed, Content: oldLines[oldIndex]})
			oldIndex++
		case oldLines[oldIndex] == newLines[newIndex]:
			out = append(out, Line{Type: Unchanged, Content: oldLines[oldIndex]})
			oldIndex++
			newIndex++
		default:
			out = append(out,
				Line{Type: Removed, Content: oldLines[oldIndex]},
				Line{Type: Added, Content: newLines[newIndex]},
			)
			oldIndex++
			newIndex++
		}
	}
	return out
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// Summarize counts lines by type.
func Summarize(lines []Line) Stats {
	return Stats{
		Added:     len(Filter(lines, Added)),
		Removed:   len(Filter(lines, Removed)),
		Unchanged: len(Filter(lines, Unchanged)),
	}
}

func Filter(lines []Line, t LineType) []Line {
	var out []Line
	for _, l := range lines {
		if l.Type == t {
			out = append(out, l)
		}
	}
	return out
}

// Render formats lines with "+ ", "- " and "  " prefixes, one per line.
func Render(lines []Line) string {
	var b strings.Builder
	for i, l := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		switch l.Type {
		case Added:
			b.WriteString("+ ")
		case Removed:
			b.WriteString("- ")
		default:
			b.WriteString("  ")
		}
		b.WriteString(l.Content)
	}
	return b.String()
}

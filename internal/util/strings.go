// Package util provides small text and URL helpers shared by the channel,
// the roster client, and the terminal views.
package util

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// Ellipsis marks truncated text.
const Ellipsis = "..."

// TruncateANSI truncates s to maxWidth visual columns, adding an ellipsis if
// truncated. Escape codes and wide characters are measured correctly, so
// styled text keeps its styling.
func TruncateANSI(s string, maxWidth int) string {
	if maxWidth <= len(Ellipsis) {
		return Ellipsis
	}
	if lipgloss.Width(s) <= maxWidth {
		return s
	}
	// ansi.Truncate counts the tail toward maxWidth.
	return ansi.Truncate(s, maxWidth, Ellipsis)
}

// OneLine collapses every run of whitespace, newlines included, into a
// single space and trims the ends. Trace summaries often span lines.
func OneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Summarize renders s as a single line no wider than maxWidth columns.
func Summarize(s string, maxWidth int) string {
	s = OneLine(s)
	if s == "" {
		return ""
	}
	return TruncateANSI(s, maxWidth)
}

// Wrap soft-wraps s at word boundaries to width columns, breaking words
// that are longer than a whole line. A non-positive width returns s as is.
func Wrap(s string, width int) string {
	if width <= 0 {
		return s
	}
	return ansi.Wrap(s, width, "")
}

// Indent prefixes every non-empty line of s with prefix.
func Indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = prefix + line
		}
	}
	return strings.Join(lines, "\n")
}

package styles

import (
	"slices"

	"github.com/charmbracelet/lipgloss"
)

// ThemeName represents a named color theme.
type ThemeName string

// Available theme names.
const (
	ThemeDefault ThemeName = "default" // Purple/green dark theme
	ThemeMonokai ThemeName = "monokai" // Classic Monokai editor colors
	ThemeDracula ThemeName = "dracula" // Dracula theme colors
	ThemeNord    ThemeName = "nord"    // Nord theme - cool blue-gray
)

// BuiltinThemes returns all built-in theme names.
func BuiltinThemes() []string {
	return []string{
		string(ThemeDefault),
		string(ThemeMonokai),
		string(ThemeDracula),
		string(ThemeNord),
	}
}

// IsBuiltinTheme reports whether name is compiled in.
func IsBuiltinTheme(name string) bool {
	return slices.Contains(BuiltinThemes(), name)
}

// ColorPalette defines the color scheme for a theme.
type ColorPalette struct {
	// Primary accent color (used for emphasis, active elements)
	Primary lipgloss.Color
	// Secondary accent color (used for key hints, success states)
	Secondary lipgloss.Color
	// Warning color (used for connecting and busy states)
	Warning lipgloss.Color
	// Error color (used for failed turns and error traces)
	Error lipgloss.Color
	// Muted color (used for de-emphasized text)
	Muted lipgloss.Color
	// Surface color (used for the status bar background)
	Surface lipgloss.Color
	// Text color
	Text lipgloss.Color
	// Border color
	Border lipgloss.Color

	// Agent status colors
	StatusWaiting   lipgloss.Color
	StatusActive    lipgloss.Color
	StatusCompleted lipgloss.Color

	// User message accent
	User lipgloss.Color
}

// PaletteFor returns the built-in palette called name.
func PaletteFor(name string) (*ColorPalette, bool) {
	switch ThemeName(name) {
	case ThemeDefault:
		return DefaultPalette(), true
	case ThemeMonokai:
		return MonokaiPalette(), true
	case ThemeDracula:
		return DraculaPalette(), true
	case ThemeNord:
		return NordPalette(), true
	default:
		return nil, false
	}
}

// DefaultPalette returns the default purple/green palette.
func DefaultPalette() *ColorPalette {
	return &ColorPalette{
		Primary:   lipgloss.Color("#A78BFA"), // Violet
		Secondary: lipgloss.Color("#10B981"), // Green
		Warning:   lipgloss.Color("#F59E0B"), // Amber
		Error:     lipgloss.Color("#F87171"), // Red
		Muted:     lipgloss.Color("#9CA3AF"), // Gray
		Surface:   lipgloss.Color("#1F2937"), // Dark surface
		Text:      lipgloss.Color("#F9FAFB"), // Light text
		Border:    lipgloss.Color("#6B7280"), // Gray

		StatusWaiting:   lipgloss.Color("#9CA3AF"), // Gray
		StatusActive:    lipgloss.Color("#10B981"), // Green
		StatusCompleted: lipgloss.Color("#A78BFA"), // Violet

		User: lipgloss.Color("#60A5FA"), // Blue
	}
}

// MonokaiPalette returns the Monokai palette.
func MonokaiPalette() *ColorPalette {
	return &ColorPalette{
		Primary:   lipgloss.Color("#F92672"), // Pink
		Secondary: lipgloss.Color("#A6E22E"), // Green
		Warning:   lipgloss.Color("#E6DB74"), // Yellow
		Error:     lipgloss.Color("#F92672"), // Pink
		Muted:     lipgloss.Color("#75715E"), // Comment
		Surface:   lipgloss.Color("#272822"), // Background
		Text:      lipgloss.Color("#F8F8F2"), // Foreground
		Border:    lipgloss.Color("#49483E"), // Line highlight

		StatusWaiting:   lipgloss.Color("#75715E"),
		StatusActive:    lipgloss.Color("#A6E22E"),
		StatusCompleted: lipgloss.Color("#AE81FF"),

		User: lipgloss.Color("#66D9EF"), // Cyan
	}
}

// DraculaPalette returns the Dracula palette.
func DraculaPalette() *ColorPalette {
	return &ColorPalette{
		Primary:   lipgloss.Color("#BD93F9"), // Purple
		Secondary: lipgloss.Color("#50FA7B"), // Green
		Warning:   lipgloss.Color("#F1FA8C"), // Yellow
		Error:     lipgloss.Color("#FF5555"), // Red
		Muted:     lipgloss.Color("#6272A4"), // Comment
		Surface:   lipgloss.Color("#282A36"), // Background
		Text:      lipgloss.Color("#F8F8F2"), // Foreground
		Border:    lipgloss.Color("#44475A"), // Selection

		StatusWaiting:   lipgloss.Color("#6272A4"),
		StatusActive:    lipgloss.Color("#50FA7B"),
		StatusCompleted: lipgloss.Color("#BD93F9"),

		User: lipgloss.Color("#8BE9FD"), // Cyan
	}
}

// NordPalette returns the Nord palette.
func NordPalette() *ColorPalette {
	return &ColorPalette{
		Primary:   lipgloss.Color("#88C0D0"), // Frost cyan
		Secondary: lipgloss.Color("#A3BE8C"), // Aurora green
		Warning:   lipgloss.Color("#EBCB8B"), // Aurora yellow
		Error:     lipgloss.Color("#BF616A"), // Aurora red
		Muted:     lipgloss.Color("#4C566A"), // Polar night 3
		Surface:   lipgloss.Color("#2E3440"), // Polar night 0
		Text:      lipgloss.Color("#ECEFF4"), // Snow storm 2
		Border:    lipgloss.Color("#3B4252"), // Polar night 1

		StatusWaiting:   lipgloss.Color("#4C566A"),
		StatusActive:    lipgloss.Color("#A3BE8C"),
		StatusCompleted: lipgloss.Color("#B48EAD"),

		User: lipgloss.Color("#81A1C1"), // Frost blue
	}
}

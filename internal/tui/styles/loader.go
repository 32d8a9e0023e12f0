package styles

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"
)

// ThemeFile represents a custom theme definition loaded from YAML.
type ThemeFile struct {
	// Name is the theme's display name (e.g., "Solarized Dark")
	Name string `yaml:"name"`
	// Author is the theme creator's name (optional)
	Author string `yaml:"author,omitempty"`
	// Version is the theme file format version (currently "1")
	Version string `yaml:"version"`
	// Colors defines the color palette
	Colors ThemeColors `yaml:"colors"`
}

// ThemeColors contains all color definitions for a theme.
// All colors should be hex format (#RRGGBB or #RGB).
type ThemeColors struct {
	Primary   string `yaml:"primary"`
	Secondary string `yaml:"secondary"`
	Warning   string `yaml:"warning"`
	Error     string `yaml:"error"`
	Muted     string `yaml:"muted"`
	Surface   string `yaml:"surface"`
	Text      string `yaml:"text"`
	Border    string `yaml:"border"`

	// User colors the user's messages (optional, defaults to primary)
	User string `yaml:"user,omitempty"`

	// Status colors (optional - default to base colors if not specified)
	Status ThemeStatusColors `yaml:"status,omitempty"`
}

// ThemeStatusColors defines colors for agent statuses on the board.
type ThemeStatusColors struct {
	Waiting   string `yaml:"waiting,omitempty"`
	Active    string `yaml:"active,omitempty"`
	Completed string `yaml:"completed,omitempty"`
}

// hexColorRegex validates hex color format.
var hexColorRegex = regexp.MustCompile(`^#([0-9A-Fa-f]{3}|[0-9A-Fa-f]{6})$`)

// LoadThemeFile loads a theme from a YAML file.
func LoadThemeFile(path string) (*ThemeFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading theme file: %w", err)
	}

	var theme ThemeFile
	if err := yaml.Unmarshal(data, &theme); err != nil {
		return nil, fmt.Errorf("parsing theme file: %w", err)
	}

	if err := theme.Validate(); err != nil {
		return nil, fmt.Errorf("invalid theme: %w", err)
	}

	return &theme, nil
}

// Validate checks that the theme file is well-formed.
func (t *ThemeFile) Validate() error {
	if t.Name == "" {
		return errors.New("theme name is required")
	}
	if t.Version == "" {
		return errors.New("theme version is required")
	}
	if t.Version != "1" {
		return fmt.Errorf("unsupported theme version: %s (supported: 1)", t.Version)
	}

	required := []struct{ name, color string }{
		{"primary", t.Colors.Primary},
		{"secondary", t.Colors.Secondary},
		{"warning", t.Colors.Warning},
		{"error", t.Colors.Error},
		{"muted", t.Colors.Muted},
		{"surface", t.Colors.Surface},
		{"text", t.Colors.Text},
		{"border", t.Colors.Border},
	}
	for _, c := range required {
		if c.color == "" {
			return fmt.Errorf("color '%s' is required", c.name)
		}
		if !isValidHexColor(c.color) {
			return fmt.Errorf("color '%s' has invalid format: %s (expected #RGB or #RRGGBB)", c.name, c.color)
		}
	}

	optional := []struct{ name, color string }{
		{"user", t.Colors.User},
		{"status.waiting", t.Colors.Status.Waiting},
		{"status.active", t.Colors.Status.Active},
		{"status.completed", t.Colors.Status.Completed},
	}
	for _, c := range optional {
		if c.color != "" && !isValidHexColor(c.color) {
			return fmt.Errorf("color '%s' has invalid format: %s (expected #RGB or #RRGGBB)", c.name, c.color)
		}
	}

	return nil
}

// isValidHexColor checks if a string is a valid hex color.
func isValidHexColor(color string) bool {
	return hexColorRegex.MatchString(color)
}

// ToPalette converts the theme file to a ColorPalette.
func (t *ThemeFile) ToPalette() *ColorPalette {
	return &ColorPalette{
		Primary:   lipgloss.Color(t.Colors.Primary),
		Secondary: lipgloss.Color(t.Colors.Secondary),
		Warning:   lipgloss.Color(t.Colors.Warning),
		Error:     lipgloss.Color(t.Colors.Error),
		Muted:     lipgloss.Color(t.Colors.Muted),
		Surface:   lipgloss.Color(t.Colors.Surface),
		Text:      lipgloss.Color(t.Colors.Text),
		Border:    lipgloss.Color(t.Colors.Border),

		StatusWaiting:   colorOrDefault(t.Colors.Status.Waiting, t.Colors.Muted),
		StatusActive:    colorOrDefault(t.Colors.Status.Active, t.Colors.Secondary),
		StatusCompleted: colorOrDefault(t.Colors.Status.Completed, t.Colors.Primary),

		User: colorOrDefault(t.Colors.User, t.Colors.Primary),
	}
}

// colorOrDefault returns the color if non-empty, otherwise returns the default.
func colorOrDefault(color, defaultColor string) lipgloss.Color {
	if color != "" {
		return lipgloss.Color(color)
	}
	return lipgloss.Color(defaultColor)
}

// ResolvePalette finds the palette for a configured theme. Built-in names win;
// a value that looks like a path is loaded directly; any other name is looked
// up as <themesDir>/<name>.yaml.
func ResolvePalette(theme, themesDir string) (*ColorPalette, error) {
	if theme == "" {
		return DefaultPalette(), nil
	}
	if p, ok := PaletteFor(theme); ok {
		return p, nil
	}

	path := theme
	if !strings.ContainsRune(theme, filepath.Separator) && filepath.Ext(theme) == "" {
		path = filepath.Join(themesDir, theme+".yaml")
	}
	file, err := LoadThemeFile(path)
	if err != nil {
		return nil, fmt.Errorf("theme %q: %w", theme, err)
	}
	return file.ToPalette(), nil
}

// ThemeFileFrom converts a palette back into its YAML form.
func ThemeFileFrom(name string, p *ColorPalette) *ThemeFile {
	return &ThemeFile{
		Name:    name,
		Version: "1",
		Colors: ThemeColors{
			Primary:   string(p.Primary),
			Secondary: string(p.Secondary),
			Warning:   string(p.Warning),
			Error:     string(p.Error),
			Muted:     string(p.Muted),
			Surface:   string(p.Surface),
			Text:      string(p.Text),
			Border:    string(p.Border),
			User:      string(p.User),
			Status: ThemeStatusColors{
				Waiting:   string(p.StatusWaiting),
				Active:    string(p.StatusActive),
				Completed: string(p.StatusCompleted),
			},
		},
	}
}

// ExportTheme renders a built-in theme as YAML, as a starting point for a
// custom theme file.
func ExportTheme(name string) ([]byte, error) {
	p, ok := PaletteFor(name)
	if !ok {
		return nil, fmt.Errorf("unknown built-in theme: %s", name)
	}
	return yaml.Marshal(ThemeFileFrom(name, p))
}

package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Iron-Ham/agentboard/internal/config"
	"github.com/Iron-Ham/agentboard/internal/tui/styles"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View agentboard configuration",
	Long: `View agentboard configuration.

Without arguments, displays the current configuration.
Use subcommands to create a config file or manage color themes.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a default config file at ~/.config/agentboard/config.yaml with all available options.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

var themeCmd = &cobra.Command{
	Use:   "theme",
	Short: "Manage color themes",
	Long: `Manage color themes for the terminal view.

Custom themes are YAML files in ~/.config/agentboard/themes/. Select one with
tui.theme set to its file name without the extension, or to a path.`,
}

var themeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all available themes",
	RunE:  runThemeList,
}

var themeExportCmd = &cobra.Command{
	Use:   "export <theme-name> [output-file]",
	Short: "Export a built-in theme to YAML",
	Long: `Export a built-in theme to YAML as a starting point for a custom theme.

If no output file is specified, the YAML is printed to stdout.

Examples:
  agentboard config theme export nord
  agentboard config theme export dracula ~/.config/agentboard/themes/mine.yaml`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runThemeExport,
}

var configInitForce bool

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(themeCmd)
	themeCmd.AddCommand(themeListCmd)
	themeCmd.AddCommand(themeExportCmd)

	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "Overwrite an existing config file")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	// An invalid file is still worth showing; report why it is not in effect.
	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\nShowing defaults instead.\n\n", err)
		cfg = config.Default()
	}

	if used := viper.ConfigFileUsed(); used != "" {
		_, _ = fmt.Fprintf(out, "# Config file: %s\n", used)
	} else {
		_, _ = fmt.Fprintln(out, "# Config file: (none - using defaults)")
	}
	return writeConfigYAML(out, cfg)
}

func writeConfigYAML(w io.Writer, cfg *config.Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("encoding configuration: %w", err)
	}
	return enc.Close()
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	path := viper.ConfigFileUsed()
	if path == "" {
		path = config.ConfigFile()
	}
	_, err := fmt.Fprintln(cmd.OutOrStdout(), path)
	return err
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configFile := config.ConfigFile()
	if err := writeDefaultConfig(configFile, configInitForce); err != nil {
		return err
	}
	_, err := fmt.Fprintf(cmd.OutOrStdout(), "Config file created at %s\n", configFile)
	return err
}

// writeDefaultConfig writes the default configuration to path, creating its
// directory.
func writeDefaultConfig(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config file already exists at %s\nUse --force to overwrite it", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var b strings.Builder
	b.WriteString("# agentboard configuration\n")
	b.WriteString("# Every key can also be set with an AGENTBOARD_ environment variable,\n")
	b.WriteString("# e.g. AGENTBOARD_BACKEND_BASE_URL for backend.base_url.\n\n")
	if err := writeConfigYAML(&b, config.Default()); err != nil {
		return err
	}

	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func runThemeList(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	_, _ = fmt.Fprintln(out, "Built-in themes:")
	for _, name := range styles.BuiltinThemes() {
		_, _ = fmt.Fprintf(out, "  - %s\n", name)
	}

	custom, loadErrs := customThemes(config.ThemesDir())
	if len(custom) > 0 {
		_, _ = fmt.Fprintln(out)
		_, _ = fmt.Fprintln(out, "Custom themes:")
		for _, t := range custom {
			if t.file.Author != "" {
				_, _ = fmt.Fprintf(out, "  - %s (by %s)\n", t.name, t.file.Author)
			} else {
				_, _ = fmt.Fprintf(out, "  - %s\n", t.name)
			}
		}
	}
	if len(loadErrs) > 0 {
		_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Warning: Some themes failed to load:")
		for _, err := range loadErrs {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "  - %v\n", err)
		}
	}

	_, _ = fmt.Fprintln(out)
	_, err := fmt.Fprintf(out, "Custom themes directory: %s\n", config.ThemesDir())
	return err
}

type customTheme struct {
	name string
	file *styles.ThemeFile
}

// customThemes loads every YAML theme in dir, sorted by name. A missing
// directory has no themes.
func customThemes(dir string) ([]customTheme, []error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, []error{err}
	}

	var (
		themes []customTheme
		errs   []error
	)
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		file, err := styles.LoadThemeFile(filepath.Join(dir, e.Name()))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", e.Name(), err))
			continue
		}
		themes = append(themes, customTheme{name: strings.TrimSuffix(e.Name(), ext), file: file})
	}
	sort.Slice(themes, func(i, j int) bool { return themes[i].name < themes[j].name })
	return themes, errs
}

func runThemeExport(cmd *cobra.Command, args []string) error {
	themeName := args[0]
	if !styles.IsBuiltinTheme(themeName) {
		return fmt.Errorf("unknown theme: %s\n\nBuilt-in themes: %s", themeName, strings.Join(styles.BuiltinThemes(), ", "))
	}

	data, err := styles.ExportTheme(themeName)
	if err != nil {
		return fmt.Errorf("exporting theme: %w", err)
	}

	if len(args) > 1 {
		outputPath := args[1]
		if err := os.WriteFile(outputPath, data, 0o644); err != nil {
			return fmt.Errorf("writing to %s: %w", outputPath, err)
		}
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "Theme exported to: %s\n", outputPath)
		return err
	}

	_, err = cmd.OutOrStdout().Write(data)
	return err
}

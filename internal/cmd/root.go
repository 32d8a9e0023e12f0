// Package cmd implements the agentboard command line.
package cmd

import (
	"strings"

	"github.com/Iron-Ham/agentboard/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "agentboard",
	Short: "Terminal monitor for a multi-agent orchestration backend",
	Long: `agentboard joins a session on a multi-agent orchestration backend, sends
your messages to it and shows, as they stream in, the assistant's answer, the
orchestration traces behind it and which agent is currently working.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/agentboard/config.yaml)")
	rootCmd.PersistentFlags().String("backend", "", "backend base URL (overrides backend.base_url)")
	rootCmd.PersistentFlags().StringP("session", "s", "", "session ID to join (default: a new session)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("backend.base_url", rootCmd.PersistentFlags().Lookup("backend"))
	_ = viper.BindPFlag("session.id", rootCmd.PersistentFlags().Lookup("session"))

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(rosterCmd)
	rootCmd.AddCommand(configCmd)
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("AGENTBOARD")
	// e.g., AGENTBOARD_BACKEND_BASE_URL for backend.base_url
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}

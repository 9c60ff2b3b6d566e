package cmd

import (
	"strings"

	"github.com/kestrelhq/kestrel/internal/config"
	"github.com/kestrelhq/kestrel/internal/runtime"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "kestrel",
	Short: "Coordination runtime for multi-agent coding sessions",
	Long: `Kestrel provides the shared coordination state beneath cooperating
coding agents: team membership, a shared task board, inter-agent
mailboxes, API concurrency slots, and conversation snapshots.`,
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
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/kestrel/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
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
		viper.AddConfigPath("$HOME/.config/kestrel")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("KESTREL")
	// Replace dots with underscores for nested keys in env vars
	// e.g., KESTREL_SEMAPHORE_MAX_CONCURRENT for semaphore.max_concurrent
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}

// newRuntime loads the effective configuration and assembles the
// coordination services. CLI commands never authorize tools, so no
// permission prompter is wired.
func newRuntime() (*runtime.Runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return runtime.New(cfg, nil)
}

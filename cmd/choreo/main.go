// choreo runs gameplay levels: phases of triggers and actions over a shared
// reactive state store, with collaborators attached over MQTT.
//
// Usage:
//
//	choreo run <level.yaml>        - Run a level until interrupted
//	choreo validate <level.yaml>   - Check a level file
//	choreo keys                    - List the state vocabulary
//	choreo history                 - Summarize journaled attempts
//	choreo version                 - Print version information
//
// Global flags:
//
//	--config <path>     - engine.yaml path (default: $CHOREO_CONFIG or engine.yaml)
//	--log-level <lvl>   - debug, info, warn or error
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	flagConfig   string
	flagLogLevel string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "choreo",
	Short: "Choreo - gameplay choreography engine",
	Long: `Choreo sequences a level as phases of triggers and actions over a
shared state store. Renderers, spawners and HUDs attach over MQTT.

Examples:
  choreo validate levels/forest.yaml
  choreo run levels/forest.yaml --watch
  choreo history --level forest`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return setupLogging(flagLogLevel)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to engine.yaml (default $CHOREO_CONFIG or engine.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (default $CHOREO_LOG_LEVEL or info)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}

func setupLogging(level string) error {
	if level == "" {
		level = os.Getenv("CHOREO_LOG_LEVEL")
	}
	if level == "" {
		level = "info"
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Level:           lvl,
	})
	log.SetDefault(logger)
	return nil
}

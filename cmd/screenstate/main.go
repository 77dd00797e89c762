// screenstate tracks how long a device spends with the app in front, the
// screen unlocked, or the screen off, and keeps running totals on disk.
//
// Usage:
//
//	screenstate run          - Interactive dashboard driven from the keyboard
//	screenstate serve        - Headless tracker fed by signal lines
//	screenstate stats        - Show accumulated totals
//	screenstate history      - Show recently accumulated intervals
//
// Global flags:
//
//	--config <path>     - Config file (YAML or TOML)
//	--data-dir <path>   - Directory holding the totals file and history
//	--log-level <lvl>   - debug, info, warn or error
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/screenstate/internal/config"
	"github.com/vovakirdan/screenstate/internal/logging"
)

var (
	// Global flags
	flagConfig   string
	flagDataDir  string
	flagLogLevel string
	flagLogFile  string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "screenstate",
	Short: "Screen State - track time per screen state",
	Long: `Screen State records how long the device spends in each of three states:

  AppRunning  - the app is in the foreground
  Unlocked    - the app is in the background and the screen is on
  ScreenOff   - the app is in the background and the screen is off

Totals are written through to monsterXhunter.json in the data directory.

Available commands:
  run      - Interactive dashboard
  serve    - Headless tracker reading signal lines
  stats    - Show accumulated totals
  history  - Show recently accumulated intervals

Examples:
  screenstate run
  screenstate serve --watch /tmp/screen.signal
  screenstate stats
  screenstate history --limit 50`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to config file (YAML or TOML)")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "Data directory (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagLogFile, "log-file", "", "Log file (overrides config)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(historyCmd)
}

// loadConfig loads the config file and applies global flag overrides.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return cfg, err
	}
	if flagDataDir != "" {
		cfg.Data.Dir = flagDataDir
	}
	if flagLogLevel != "" {
		cfg.Logging.Level = flagLogLevel
	}
	if flagLogFile != "" {
		cfg.Logging.File = flagLogFile
	}
	return cfg, cfg.Validate()
}

// openLogger opens the configured log destination. Interactive commands pass
// quiet=true so log lines do not tear the dashboard when no file is set.
func openLogger(cfg config.Config, quiet bool) (*log.Logger, io.Closer, error) {
	if quiet && cfg.Logging.File == "" {
		return logging.Discard(), io.NopCloser(nil), nil
	}
	return logging.Open(cfg.Logging.File, cfg.Logging.Level)
}

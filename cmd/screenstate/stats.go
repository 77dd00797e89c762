package main

import (
	"fmt"
	"os"

	"github.com/bytedance/sonic"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/screenstate/internal/logging"
	"github.com/vovakirdan/screenstate/internal/screen"
	"github.com/vovakirdan/screenstate/internal/storage"
)

var flagStatsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show accumulated totals",
	Long: `Display the totals stored in monsterXhunter.json.

Examples:
  screenstate stats
  screenstate stats --json
  screenstate stats --data-dir ./data`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().BoolVar(&flagStatsJSON, "json", false, "Print the raw totals record")
}

func runStats(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := storage.NewFileStore(cfg.Data.Dir, logging.Discard())
	if err != nil {
		return err
	}
	totals := store.Load()

	if flagStatsJSON {
		data, err := sonic.ConfigStd.MarshalIndent(totals, "", "  ")
		if err != nil {
			return fmt.Errorf("encode totals: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	cyan := color.New(color.FgCyan, color.Bold)
	cyan.Printf("Totals - %s\n", store.Path())
	fmt.Println()

	if totals.IsZero() {
		if _, statErr := os.Stat(store.Path()); statErr != nil {
			fmt.Println("No totals recorded yet.")
			fmt.Println()
			fmt.Println("Run 'screenstate run' or 'screenstate serve' to start tracking.")
			return nil
		}
	}

	sum := totals.Sum()
	fmt.Printf("  %-10s  %12s  %6s\n", "State", "Seconds", "Share")
	fmt.Printf("  %-10s  %12s  %6s\n", "-----", "-------", "-----")
	for _, s := range screen.TrackedStates {
		v := totals.Get(s)
		share := 0.0
		if sum > 0 {
			share = v / sum * 100
		}
		fmt.Print("  ")
		stateColor(s).Printf("%-10s", s)
		fmt.Printf("  %12.1f  %5.1f%%\n", v, share)
	}
	fmt.Println()
	cyan.Print("Total: ")
	fmt.Printf("%.1fs (%s)\n", sum, formatSeconds(sum))
	return nil
}

// stateColor picks the color a state is printed in.
func stateColor(s screen.DeviceState) *color.Color {
	switch s {
	case screen.StateAppRunning:
		return color.New(color.FgGreen, color.Bold)
	case screen.StateUnlocked:
		return color.New(color.FgYellow, color.Bold)
	case screen.StateScreenOff:
		return color.New(color.FgBlue, color.Bold)
	}
	return color.New(color.Reset)
}

// formatSeconds renders seconds as h/m/s.
func formatSeconds(sec float64) string {
	total := int64(sec)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%02ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

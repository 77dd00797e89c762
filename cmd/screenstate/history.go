package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vovakirdan/screenstate/internal/platform/tui"
	"github.com/vovakirdan/screenstate/internal/screen"
	"github.com/vovakirdan/screenstate/internal/storage"
)

var (
	flagHistoryLimit   int
	flagHistorySummary bool
	flagHistoryClear   bool
	flagHistoryBrowse  bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recently accumulated intervals",
	Long: `Display intervals recorded in the history journal, newest first.

Examples:
  screenstate history
  screenstate history --limit 50
  screenstate history --summary
  screenstate history --browse
  screenstate history --clear`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&flagHistoryLimit, "limit", 20, "Number of intervals to show")
	historyCmd.Flags().BoolVar(&flagHistorySummary, "summary", false, "Show per-state summary instead")
	historyCmd.Flags().BoolVar(&flagHistoryClear, "clear", false, "Delete all recorded intervals")
	historyCmd.Flags().BoolVarP(&flagHistoryBrowse, "browse", "b", false, "Browse intervals interactively")
}

func runHistory(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.History.Enabled {
		return errors.New("history is disabled in the config")
	}

	journal, err := storage.OpenJournal(cfg.JournalPath())
	if err != nil {
		return fmt.Errorf("opening history journal: %w", err)
	}
	defer journal.Close()

	switch {
	case flagHistoryClear:
		if err := journal.Clear(); err != nil {
			return fmt.Errorf("clearing history: %w", err)
		}
		fmt.Println("History cleared.")
		return nil

	case flagHistorySummary:
		return printSummary(journal)

	case flagHistoryBrowse:
		width, height := 80, 24
		if w, h, termErr := term.GetSize(int(os.Stdout.Fd())); termErr == nil {
			width = w
			height = h
		}
		return tui.RunHistory(journal, width, height)
	}

	entries, err := journal.Recent(flagHistoryLimit)
	if err != nil {
		return fmt.Errorf("retrieving history: %w", err)
	}

	color.New(color.FgCyan, color.Bold).Println("Recent intervals")
	fmt.Println()

	if len(entries) == 0 {
		fmt.Println("No intervals recorded yet.")
		return nil
	}

	fmt.Printf("  %-16s  %-10s  %10s  %s\n", "Ended", "State", "Seconds", "Source")
	fmt.Printf("  %-16s  %-10s  %10s  %s\n", "-----", "-----", "-------", "------")
	for _, e := range entries {
		fmt.Printf("  %-16s  ", e.EndedAt.Local().Format("2006-01-02 15:04"))
		stateColor(e.State).Printf("%-10s", e.State)
		fmt.Printf("  %10.1f  %s\n", e.Seconds, e.Source)
	}
	return nil
}

func printSummary(journal *storage.Journal) error {
	summary, err := journal.SummaryByState()
	if err != nil {
		return fmt.Errorf("summarizing history: %w", err)
	}

	fmt.Printf("  %-10s  %8s  %12s  %s\n", "State", "Count", "Seconds", "Last seen")
	fmt.Printf("  %-10s  %8s  %12s  %s\n", "-----", "-----", "-------", "---------")
	for _, s := range screen.TrackedStates {
		row, ok := summary[s]
		if !ok {
			fmt.Printf("  %-10s  %8d  %12.1f  %s\n", s, 0, 0.0, "-")
			continue
		}
		fmt.Printf("  %-10s  %8d  %12.1f  %s\n",
			s, row.Count, row.Seconds, row.LastSeen.Local().Format("2006-01-02 15:04"))
	}
	return nil
}

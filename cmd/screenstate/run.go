package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vovakirdan/screenstate/internal/app"
	"github.com/vovakirdan/screenstate/internal/bridge"
	"github.com/vovakirdan/screenstate/internal/metrics"
	"github.com/vovakirdan/screenstate/internal/platform/tui"
)

var (
	flagRunWatch   string
	flagRunMetrics string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the interactive dashboard",
	Long: `Run the tracker with an interactive dashboard.

Keys simulate host lifecycle callbacks and platform screen signals:
  p        pause / resume
  f        lose / gain focus
  o n u    SCREEN_OFF, SCREEN_ON, USER_PRESENT
  1 2 3    force AppRunning, Unlocked, ScreenOff
  q        save and quit

Signal lines appended to the --watch file are applied as well.

Examples:
  screenstate run
  screenstate run --watch /tmp/screen.signal
  screenstate run --metrics :9464`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&flagRunWatch, "watch", "", "Signal file to watch (overrides config)")
	runCmd.Flags().StringVar(&flagRunMetrics, "metrics", "", "Metrics listen address (overrides config)")
}

func runRun(_ *cobra.Command, _ []string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("run needs a terminal; use 'screenstate serve' for headless tracking")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if flagRunWatch != "" {
		cfg.Bridge.WatchFile = flagRunWatch
	}
	if flagRunMetrics != "" {
		cfg.Metrics.Addr = flagRunMetrics
	}

	logger, closer, err := openLogger(cfg, true)
	if err != nil {
		return err
	}
	defer closer.Close()

	var opts []app.Option
	var m *metrics.Metrics
	if cfg.Metrics.Addr != "" {
		m = metrics.New()
		opts = append(opts, app.WithMetrics(m))
	}

	a, err := app.New(cfg, logger, opts...)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runErr := make(chan error, 1)
	go func() {
		runErr <- a.Run(ctx)
	}()

	if m != nil {
		go func() {
			if err := m.Serve(ctx, cfg.Metrics.Addr, logger); err != nil {
				logger.Error("metrics server failed", "error", err)
			}
		}()
	}

	if cfg.Bridge.WatchFile != "" {
		w, err := bridge.NewWatcher(cfg.Bridge.WatchFile, a, logger)
		if err != nil {
			cancel()
			<-a.Done()
			return err
		}
		defer w.Close()
		go func() {
			if err := w.Run(ctx); err != nil {
				logger.Error("signal watcher failed", "error", err)
			}
		}()
	}

	width, height := 80, 24
	if w, h, termErr := term.GetSize(int(os.Stdout.Fd())); termErr == nil {
		width = w
		height = h
	}

	dashOpts := []tui.DashboardOption{
		tui.WithInterval(cfg.UpdateInterval()),
		tui.WithSize(width, height),
	}
	if j := a.Journal(); j != nil {
		dashOpts = append(dashOpts, tui.WithHistory(j))
	}

	uiErr := tui.RunDashboard(a, dashOpts...)

	// The dashboard dispatches QuitEvent on q; cancel covers ctrl+c paths
	// where the program ended some other way.
	cancel()
	if err := <-runErr; err != nil {
		return err
	}
	if uiErr != nil {
		return fmt.Errorf("dashboard: %w", uiErr)
	}

	final := a.Snapshot().Totals
	fmt.Printf("Running: %.1fs  Unlocked: %.1fs  ScreenOff: %.1fs\n",
		final.RunningTime, final.UnlockedTime, final.ScreenOffTime)
	return nil
}

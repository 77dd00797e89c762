package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/screenstate/internal/app"
	"github.com/vovakirdan/screenstate/internal/bridge"
	"github.com/vovakirdan/screenstate/internal/metrics"
	"github.com/vovakirdan/screenstate/internal/platform/tui"
)

var (
	flagServeStdin   bool
	flagServeWatch   string
	flagServeSSH     string
	flagServeNoSSH   bool
	flagServeMetrics string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the tracker headless, fed by signal lines",
	Long: `Run the tracker without a dashboard. Platform helpers report signals as
text lines on stdin or by appending them to a watched file:

  SCREEN_OFF | SCREEN_ON | USER_PRESENT
  PAUSE true|false
  FOCUS true|false
  QUIT

Read-only dashboards are served over SSH unless --no-ssh is set, and
Prometheus metrics are exposed when a metrics address is configured.

Examples:
  helper | screenstate serve
  screenstate serve --stdin=false --watch /tmp/screen.signal
  screenstate serve --ssh :2222 --metrics :9464

Viewers connect with:
  ssh localhost -p 23235`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&flagServeStdin, "stdin", true, "Read signal lines from stdin")
	serveCmd.Flags().StringVar(&flagServeWatch, "watch", "", "Signal file to watch (overrides config)")
	serveCmd.Flags().StringVar(&flagServeSSH, "ssh", "", "SSH viewer address (overrides config)")
	serveCmd.Flags().BoolVar(&flagServeNoSSH, "no-ssh", false, "Disable the SSH viewer")
	serveCmd.Flags().StringVar(&flagServeMetrics, "metrics", "", "Metrics listen address (overrides config)")
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if flagServeWatch != "" {
		cfg.Bridge.WatchFile = flagServeWatch
	}
	if flagServeSSH != "" {
		cfg.SSH.Addr = flagServeSSH
	}
	if flagServeNoSSH {
		cfg.SSH.Addr = ""
	}
	if flagServeMetrics != "" {
		cfg.Metrics.Addr = flagServeMetrics
	}

	logger, closer, err := openLogger(cfg, false)
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErr := make(chan error, 1)
	go func() {
		runErr <- a.Run(ctx)
	}()

	// Helpers stop with the app loop
	helperCtx, cancelHelpers := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer func() {
		cancelHelpers()
		wg.Wait()
	}()

	if m != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := m.Serve(helperCtx, cfg.Metrics.Addr, logger); err != nil {
				logger.Error("metrics server failed", "error", err)
			}
		}()
	}

	if cfg.SSH.Addr != "" {
		srv, err := tui.NewSSHServer(tui.SSHServerConfig{
			Address:         cfg.SSH.Addr,
			HostKeyPath:     cfg.HostKeyPath(),
			IdleTimeout:     cfg.IdleTimeout(),
			RefreshInterval: cfg.UpdateInterval(),
		}, a, a.Journal(), logger)
		if err != nil {
			stop()
			<-a.Done()
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.Serve(helperCtx); err != nil {
				logger.Error("ssh server failed", "error", err)
			}
		}()
		fmt.Fprintf(os.Stderr, "Viewers can connect with: ssh localhost -p %s\n", portOf(cfg.SSH.Addr))
	}

	if cfg.Bridge.WatchFile != "" {
		w, err := bridge.NewWatcher(cfg.Bridge.WatchFile, a, logger)
		if err != nil {
			stop()
			<-a.Done()
			return err
		}
		defer w.Close()
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := w.Run(helperCtx); err != nil {
				logger.Error("signal watcher failed", "error", err)
			}
		}()
	}

	if flagServeStdin {
		// Not tracked by wg: a blocked stdin read cannot be interrupted
		go func() {
			if err := bridge.Feed(helperCtx, os.Stdin, a, logger); err != nil {
				logger.Error("stdin feed failed", "error", err)
			}
		}()
	}

	err = <-runErr
	final := a.Snapshot().Totals
	logger.Info("final totals",
		"running", fmt.Sprintf("%.1fs", final.RunningTime),
		"unlocked", fmt.Sprintf("%.1fs", final.UnlockedTime),
		"screen_off", fmt.Sprintf("%.1fs", final.ScreenOffTime),
	)
	return err
}

// portOf returns the port of a listen address, or addr itself when it has
// no port.
func portOf(addr string) string {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return port
}

package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/bubbletea"

	"github.com/vovakirdan/screenstate/internal/storage"
)

// SSHServerConfig holds configuration for the SSH server.
type SSHServerConfig struct {
	// Address is the host:port to listen on (e.g., ":23235").
	Address string

	// HostKeyPath is the path to the host key file. It is generated on first start.
	HostKeyPath string

	// IdleTimeout is how long to wait before closing idle connections.
	IdleTimeout time.Duration

	// RefreshInterval is the dashboard refresh rate for viewers.
	RefreshInterval time.Duration
}

// SSHServer serves read-only dashboards of a running app over SSH.
type SSHServer struct {
	config  SSHServerConfig
	server  *ssh.Server
	source  Source
	history HistorySource
	logger  *log.Logger
}

// NewSSHServer creates a new SSH server for src. history may be nil.
func NewSSHServer(cfg SSHServerConfig, src Source, history HistorySource, logger *log.Logger) (*SSHServer, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if cfg.HostKeyPath == "" {
		return nil, errors.New("ssh: host key path is required")
	}
	hostKeyPath, err := storage.ExpandHome(cfg.HostKeyPath)
	if err != nil {
		return nil, fmt.Errorf("ssh: %w", err)
	}
	cfg.HostKeyPath = hostKeyPath

	srv := &SSHServer{
		config:  cfg,
		source:  src,
		history: history,
		logger:  logger.WithPrefix("ssh"),
	}

	// Ensure host key directory exists
	if err := os.MkdirAll(filepath.Dir(cfg.HostKeyPath), 0o700); err != nil {
		return nil, fmt.Errorf("ssh: cannot create host key directory: %w", err)
	}

	opts := []ssh.Option{
		wish.WithAddress(cfg.Address),
		wish.WithHostKeyPath(cfg.HostKeyPath),
		wish.WithMiddleware(
			bubbletea.Middleware(srv.teaHandler),
			srv.loggingMiddleware,
		),
	}
	if cfg.IdleTimeout > 0 {
		opts = append(opts, wish.WithIdleTimeout(cfg.IdleTimeout))
	}

	server, err := wish.NewServer(opts...)
	if err != nil {
		return nil, fmt.Errorf("ssh: cannot create server: %w", err)
	}

	srv.server = server
	return srv, nil
}

// teaHandler creates a read-only dashboard for each SSH session.
func (s *SSHServer) teaHandler(sess ssh.Session) (tea.Model, []tea.ProgramOption) {
	pty, _, ok := sess.Pty()
	if !ok {
		s.logger.Warn("no PTY requested", "user", sess.User())
		return nil, nil
	}

	opts := []DashboardOption{
		WithReadOnly(),
		WithInterval(s.config.RefreshInterval),
		WithTitle(fmt.Sprintf("SCREEN STATE - %s", sess.User())),
		WithSize(pty.Window.Width, pty.Window.Height),
	}
	if s.history != nil {
		opts = append(opts, WithHistory(s.history))
	}
	model := NewDashboard(s.source, opts...)

	// Drop the transition subscription once the viewer disconnects
	go func() {
		<-sess.Context().Done()
		model.Close()
	}()

	return model, []tea.ProgramOption{
		tea.WithAltScreen(),
	}
}

// loggingMiddleware logs SSH session events.
func (s *SSHServer) loggingMiddleware(next ssh.Handler) ssh.Handler {
	return func(sess ssh.Session) {
		s.logger.Info("viewer connected",
			"user", sess.User(),
			"remote", sess.RemoteAddr().String(),
		)
		next(sess)
		s.logger.Info("viewer disconnected",
			"user", sess.User(),
			"remote", sess.RemoteAddr().String(),
		)
	}
}

// Serve runs the SSH server until ctx is done.
func (s *SSHServer) Serve(ctx context.Context) error {
	s.logger.Info("starting SSH server", "address", s.config.Address)

	errc := make(chan error, 1)
	go func() {
		err := s.server.ListenAndServe()
		if errors.Is(err, ssh.ErrServerClosed) {
			err = nil
		}
		errc <- err
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down SSH server")
	return s.Shutdown()
}

// Shutdown gracefully stops the server.
func (s *SSHServer) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// Addr returns the server's listen address string.
func (s *SSHServer) Addr() string {
	return s.config.Address
}

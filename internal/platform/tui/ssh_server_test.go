package tui

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/vovakirdan/screenstate/internal/screen"
)

func TestNewSSHServer(t *testing.T) {
	src := newFakeSource(sampleSnapshot(screen.StateAppRunning, 0))
	cfg := SSHServerConfig{
		Address:         "127.0.0.1:0",
		HostKeyPath:     filepath.Join(t.TempDir(), "keys", "host_key"),
		IdleTimeout:     time.Minute,
		RefreshInterval: 200 * time.Millisecond,
	}

	srv, err := NewSSHServer(cfg, src, nil, nil)
	if err != nil {
		t.Fatalf("NewSSHServer() error = %v", err)
	}
	if srv.Addr() != cfg.Address {
		t.Errorf("Addr() = %q, want %q", srv.Addr(), cfg.Address)
	}
}

func TestNewSSHServer_RequiresHostKey(t *testing.T) {
	src := newFakeSource(sampleSnapshot(screen.StateAppRunning, 0))
	if _, err := NewSSHServer(SSHServerConfig{Address: ":0"}, src, nil, nil); err == nil {
		t.Error("NewSSHServer() without host key path should fail")
	}
}

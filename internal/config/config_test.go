package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() failed: %v", err)
	}
	if cfg.UpdateInterval() != 100*time.Millisecond {
		t.Errorf("UpdateInterval() = %v, expected 100ms", cfg.UpdateInterval())
	}
}

func TestEmbeddedDefaultMatchesHardcoded(t *testing.T) {
	cfg, err := decode("default.yaml", defaultYAML)
	if err != nil {
		t.Fatalf("embedded default does not parse: %v", err)
	}
	if cfg != Default() {
		t.Errorf("embedded default %+v differs from Default() %+v", cfg, Default())
	}
}

func TestLoadCustomYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	content := `
data:
  dir: /tmp/screenstate-test
ui:
  update_interval_ms: 250
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Data.Dir != "/tmp/screenstate-test" {
		t.Errorf("Data.Dir = %q", cfg.Data.Dir)
	}
	if cfg.UpdateInterval() != 250*time.Millisecond {
		t.Errorf("UpdateInterval() = %v, expected 250ms", cfg.UpdateInterval())
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, expected debug", cfg.Logging.Level)
	}

	// Omitted sections keep their defaults
	if !cfg.History.Enabled || cfg.SSH.Addr != ":23235" {
		t.Errorf("omitted keys lost defaults: history=%+v ssh=%+v", cfg.History, cfg.SSH)
	}
}

func TestLoadCustomTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.toml")
	content := `
[data]
dir = "/var/lib/screenstate"

[history]
enabled = false

[metrics]
addr = ":9108"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Data.Dir != "/var/lib/screenstate" {
		t.Errorf("Data.Dir = %q", cfg.Data.Dir)
	}
	if cfg.History.Enabled {
		t.Error("History.Enabled should be false")
	}
	if cfg.Metrics.Addr != ":9108" {
		t.Errorf("Metrics.Addr = %q, expected :9108", cfg.Metrics.Addr)
	}
	if cfg.UI.UpdateIntervalMS != 100 {
		t.Errorf("UI.UpdateIntervalMS = %d, expected default 100", cfg.UI.UpdateIntervalMS)
	}
}

func TestLoadCustomMissing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load() with missing custom path should fail")
	}
}

func TestLoadCustomMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("ui: [unclosed"), 0o600); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load() with malformed YAML should fail")
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Data.Dir = ""
	cfg.UI.UpdateIntervalMS = 0
	cfg.Logging.Level = "verbose"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() should fail")
	}
	for _, want := range []string{"data.dir", "update_interval_ms", "logging.level"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Validate() error %q does not mention %s", err, want)
		}
	}
}

func TestDerivedPaths(t *testing.T) {
	cfg := Default()
	cfg.Data.Dir = "/data"

	if cfg.JournalPath() != filepath.Join("/data", "history.db") {
		t.Errorf("JournalPath() = %q", cfg.JournalPath())
	}
	if cfg.HostKeyPath() != filepath.Join("/data", "host_key") {
		t.Errorf("HostKeyPath() = %q", cfg.HostKeyPath())
	}

	cfg.History.Path = "/elsewhere/h.db"
	if cfg.JournalPath() != "/elsewhere/h.db" {
		t.Errorf("JournalPath() override = %q", cfg.JournalPath())
	}
}

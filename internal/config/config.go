// Package config provides YAML/TOML configuration loading for screenstate.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Config is the top-level configuration.
type Config struct {
	Data    DataConfig    `yaml:"data"    toml:"data"`
	UI      UIConfig      `yaml:"ui"      toml:"ui"`
	Logging LoggingConfig `yaml:"logging" toml:"logging"`
	History HistoryConfig `yaml:"history" toml:"history"`
	Metrics MetricsConfig `yaml:"metrics" toml:"metrics"`
	SSH     SSHConfig     `yaml:"ssh"     toml:"ssh"`
	Bridge  BridgeConfig  `yaml:"bridge"  toml:"bridge"`
}

// DataConfig locates persistent data.
type DataConfig struct {
	Dir string `yaml:"dir" toml:"dir"` // Holds the totals file; ~ is expanded
}

// UIConfig controls the dashboard.
type UIConfig struct {
	UpdateIntervalMS int `yaml:"update_interval_ms" toml:"update_interval_ms"` // Poll interval
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `yaml:"level" toml:"level"` // debug, info, warn, error
	File  string `yaml:"file"  toml:"file"`  // Empty = stderr
}

// HistoryConfig controls the SQLite interval journal.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Path    string `yaml:"path"    toml:"path"` // Empty = <data.dir>/history.db
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Addr string `yaml:"addr" toml:"addr"` // Empty disables the endpoint
}

// SSHConfig controls the read-only SSH dashboard served by `serve`.
type SSHConfig struct {
	Addr               string `yaml:"addr"                 toml:"addr"`
	HostKeyPath        string `yaml:"host_key_path"        toml:"host_key_path"` // Empty = <data.dir>/host_key
	IdleTimeoutMinutes int    `yaml:"idle_timeout_minutes" toml:"idle_timeout_minutes"`
}

// BridgeConfig selects the platform signal source.
type BridgeConfig struct {
	WatchFile string `yaml:"watch_file" toml:"watch_file"` // File rewritten by the native bridge
}

// UpdateInterval returns the dashboard poll interval.
func (c Config) UpdateInterval() time.Duration {
	return time.Duration(c.UI.UpdateIntervalMS) * time.Millisecond
}

// IdleTimeout returns the SSH idle timeout.
func (c Config) IdleTimeout() time.Duration {
	return time.Duration(c.SSH.IdleTimeoutMinutes) * time.Minute
}

// JournalPath returns the history database path.
func (c Config) JournalPath() string {
	if c.History.Path != "" {
		return c.History.Path
	}
	return filepath.Join(c.Data.Dir, "history.db")
}

// HostKeyPath returns the SSH host key path.
func (c Config) HostKeyPath() string {
	if c.SSH.HostKeyPath != "" {
		return c.SSH.HostKeyPath
	}
	return filepath.Join(c.Data.Dir, "host_key")
}

// Validate checks the configuration for values the program cannot run with.
func (c Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Data.Dir) == "" {
		errs = append(errs, errors.New("data.dir must not be empty"))
	}
	if c.UI.UpdateIntervalMS <= 0 {
		errs = append(errs, fmt.Errorf("ui.update_interval_ms must be positive, got %d", c.UI.UpdateIntervalMS))
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level))
	}
	if c.SSH.IdleTimeoutMinutes < 0 {
		errs = append(errs, fmt.Errorf("ssh.idle_timeout_minutes must not be negative, got %d", c.SSH.IdleTimeoutMinutes))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

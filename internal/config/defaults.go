package config

import (
	_ "embed"
)

//go:embed defaults/screenstate.yaml
var defaultYAML []byte

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Data: DataConfig{
			Dir: "~/.screenstate",
		},
		UI: UIConfig{
			UpdateIntervalMS: 100,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		History: HistoryConfig{
			Enabled: true,
		},
		SSH: SSHConfig{
			Addr:               ":23235",
			IdleTimeoutMinutes: 30,
		},
	}
}

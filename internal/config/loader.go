package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Load loads the configuration.
// Search order: customPath -> ~/.screenstate/config.{yaml,yml,toml} ->
// ./configs/screenstate.{yaml,toml} -> embedded default.
// Files are decoded over the defaults, so omitted keys keep default values.
func Load(customPath string) (Config, error) {
	// Try custom path first
	if customPath != "" {
		data, err := os.ReadFile(customPath)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config %s: %w", customPath, err)
		}
		cfg, err := decode(customPath, data)
		if err != nil {
			return Config{}, fmt.Errorf("failed to parse config %s: %w", customPath, err)
		}
		return cfg, nil
	}

	// Try user config directory, then local configs directory
	candidates := append(userConfigPaths(),
		filepath.Join("configs", "screenstate.yaml"),
		filepath.Join("configs", "screenstate.toml"),
	)
	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if cfg, err := decode(path, data); err == nil {
			return cfg, nil
		}
	}

	// Use embedded default YAML
	cfg, err := decode("default.yaml", defaultYAML)
	if err != nil {
		return Default(), nil // Fallback to hardcoded if embed fails
	}
	return cfg, nil
}

// decode parses data over the defaults, choosing the format by extension.
func decode(path string, data []byte) (Config, error) {
	cfg := Default()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	}
	return cfg, nil
}

// userConfigPaths returns candidate user config files, or nil if home is unavailable.
func userConfigPaths() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	dir := filepath.Join(home, ".screenstate")
	return []string{
		filepath.Join(dir, "config.yaml"),
		filepath.Join(dir, "config.yml"),
		filepath.Join(dir, "config.toml"),
	}
}

// Package config holds the per-machine settings. Only the data folder path
// and the user identity live here; everything shared between users lives in
// the data folder itself.
package config

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	// DataFolder is the shared folder that holds all records. Typically a
	// OneDrive- or Drive-synced path.
	DataFolder string `toml:"data_folder"`
	// UserID overrides OS-username identification when the two differ.
	UserID string `toml:"user_id"`
	// DefaultExportFormat is used when export is called without --format.
	DefaultExportFormat string `toml:"default_export_format"`
}

func DefaultConfig() Config {
	return Config{
		DefaultExportFormat: "csv",
	}
}

func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".config", "protrack"), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := DefaultConfig()
			applyEnvOverrides(&cfg)
			return &cfg, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PROTRACK_DATA_DIR"); v != "" {
		cfg.DataFolder = v
	}
}

func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// Save persists the config, creating the directory on first run.
func Save(cfg *Config) error {
	if err := EnsureConfigDir(); err != nil {
		return err
	}
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	out, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, out, 0644)
}

// CurrentUser resolves the identity time entries are attributed to: the
// configured override first, then the OS username.
func (c *Config) CurrentUser() (string, error) {
	if c.UserID != "" {
		return c.UserID, nil
	}
	u, err := user.Current()
	if err != nil {
		return "", fmt.Errorf("detecting OS username: %w", err)
	}
	return u.Username, nil
}

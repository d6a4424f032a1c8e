// Package config loads and saves civiledger configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds all civiledger configuration.
type Config struct {
	General      GeneralConfig      `toml:"general"`
	GrievanceAPI GrievanceAPIConfig `toml:"grievance_api"`
	Daemon       DaemonConfig       `toml:"daemon"`
}

// GeneralConfig holds general preferences.
type GeneralConfig struct {
	// FiscalYearStartMonth is 1-12; municipal budgets run April to March.
	FiscalYearStartMonth int    `toml:"fiscal_year_start_month"`
	DBPath               string `toml:"db_path,omitempty"`
}

// GrievanceAPIConfig holds grievance dashboard API settings.
type GrievanceAPIConfig struct {
	BaseURL string `toml:"base_url,omitempty"`
	Token   string `toml:"token,omitempty"`
}

// DaemonConfig holds monitor daemon settings.
type DaemonConfig struct {
	Addr            string `toml:"addr,omitempty"`
	PollIntervalSec int    `toml:"poll_interval_sec,omitempty"`
	EventsBuffer    int    `toml:"events_buffer,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		General: GeneralConfig{
			FiscalYearStartMonth: 4,
		},
		Daemon: DaemonConfig{
			Addr:            "127.0.0.1:8791",
			PollIntervalSec: 15,
			EventsBuffer:    200,
		},
	}
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "civiledger")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "civiledger")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// DefaultDBPath returns the XDG-compliant database path.
func DefaultDBPath() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "civiledger", "ledger.db")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "civiledger", "ledger.db")
}

// DBPath resolves the database path from config, falling back to the default.
func DBPath(cfg Config) string {
	if cfg.General.DBPath != "" {
		return cfg.General.DBPath
	}
	return DefaultDBPath()
}

// Load reads the config file, returning defaults if it doesn't exist.
func Load() (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Save writes the config to disk.
func Save(cfg Config) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(ConfigPath(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// GetGrievanceToken returns the API token from env var or config, in that order.
func GetGrievanceToken(cfg Config) string {
	if tok := os.Getenv("CIVILEDGER_GRIEVANCE_TOKEN"); tok != "" {
		return tok
	}
	return cfg.GrievanceAPI.Token
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(ConfigPath())
	return err == nil
}

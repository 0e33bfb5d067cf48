package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

const (
	// ConfigDir is the default config directory name.
	ConfigDir = ".panelpilot"
	// ConfigFile is the default config file name.
	ConfigFile = "config.json"
)

// ConfigPath returns the path to the config file. PANELPILOT_CONFIG overrides
// the default location; a leading ~ expands to the home directory.
func ConfigPath() (string, error) {
	if explicit := strings.TrimSpace(os.Getenv("PANELPILOT_CONFIG")); explicit != "" {
		if strings.HasPrefix(explicit, "~") {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			return filepath.Join(home, explicit[1:]), nil
		}
		return explicit, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ConfigDir, ConfigFile), nil
}

// Load reads the config file, then overrides each group from the
// environment. A missing file is not an error; defaults apply.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	path, err := ConfigPath()
	if err != nil {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	envconfig.Process("PANELPILOT_PANEL", &cfg.Panel)
	envconfig.Process("PANELPILOT_CHANNELS_TELEGRAM", &cfg.Channels.Telegram)
	envconfig.Process("PANELPILOT_CHANNELS_SLACK", &cfg.Channels.Slack)
	envconfig.Process("PANELPILOT_DISPATCH", &cfg.Dispatch)
	envconfig.Process("PANELPILOT_POLLER", &cfg.Poller)
	envconfig.Process("PANELPILOT_JOURNAL", &cfg.Journal)

	applyDefaults(cfg)
	return cfg, nil
}

// Save writes the config file, creating its directory if needed.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// JournalPath resolves the journal database location, defaulting next to the
// config file.
func (c *Config) JournalPath() (string, error) {
	if p := strings.TrimSpace(c.Journal.Path); p != "" {
		return p, nil
	}
	cfgPath, err := ConfigPath()
	if err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(cfgPath), "journal.db"), nil
}

func applyDefaults(cfg *Config) {
	if cfg.Dispatch.ConfirmWindowSeconds <= 0 {
		cfg.Dispatch.ConfirmWindowSeconds = 5
	}
	if cfg.Poller.IntervalSeconds <= 0 {
		cfg.Poller.IntervalSeconds = 5
	}
	if cfg.Poller.MaxAttempts <= 0 {
		cfg.Poller.MaxAttempts = 120
	}
}

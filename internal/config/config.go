// Package config loads and saves the asleep TOML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds all asleep configuration.
type Config struct {
	General    GeneralConfig    `toml:"general"`
	Asleep     AsleepConfig     `toml:"asleep"`
	Appearance AppearanceConfig `toml:"appearance"`
	Daemon     DaemonConfig     `toml:"daemon"`
	TUI        TUIConfig        `toml:"tui"`
}

// GeneralConfig holds general preferences.
type GeneralConfig struct {
	DefaultDays  int    `toml:"default_days"`
	OutputFormat string `toml:"output_format"`
}

// AsleepConfig holds API credentials. Tokens are secrets; the file is
// written 0600.
type AsleepConfig struct {
	UserID         string `toml:"user_id,omitempty"`
	AccessToken    string `toml:"access_token,omitempty"`
	RefreshToken   string `toml:"refresh_token,omitempty"`
	TokenExpiresAt string `toml:"token_expires_at,omitempty"`
	BaseURL        string `toml:"base_url,omitempty"`
}

// AppearanceConfig holds theme settings.
type AppearanceConfig struct {
	Theme string `toml:"theme"`
}

// DaemonConfig holds background poller settings.
type DaemonConfig struct {
	Addr        string `toml:"addr"`
	IntervalSec int    `toml:"interval_sec"`
}

// TUIConfig holds dashboard settings.
type TUIConfig struct {
	AutoRefresh        bool `toml:"auto_refresh"`
	RefreshIntervalSec int  `toml:"refresh_interval_sec"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		General: GeneralConfig{
			DefaultDays:  7,
			OutputFormat: "json",
		},
		Appearance: AppearanceConfig{
			Theme: "flexoki-dark",
		},
		Daemon: DaemonConfig{
			Addr:        "127.0.0.1:8797",
			IntervalSec: 900,
		},
		TUI: TUIConfig{
			AutoRefresh:        true,
			RefreshIntervalSec: 600,
		},
	}
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "asleep")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "asleep")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// Load reads the config file, returning defaults if it doesn't exist.
// Credentials missing from the file are taken from a legacy user.json
// when one is present.
func Load() (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if !os.IsNotExist(err) {
			return cfg, fmt.Errorf("reading config: %w", err)
		}
	} else if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Asleep.AccessToken == "" {
		if legacy, ok := LoadLegacyUser(ConfigDir()); ok {
			cfg.Asleep = mergeCredentials(cfg.Asleep, legacy)
		}
	}

	return cfg, nil
}

// Save writes the config to disk.
func Save(cfg Config) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0o750); err != nil {
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

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(ConfigPath())
	return err == nil
}

// GetUserID returns the user id from env var or config, in that order.
func GetUserID(cfg Config) string {
	return envOr("ASLEEP_USER_ID", cfg.Asleep.UserID)
}

// GetAccessToken returns the access token from env var or config, in that order.
func GetAccessToken(cfg Config) string {
	return envOr("ASLEEP_ACCESS_TOKEN", cfg.Asleep.AccessToken)
}

// GetRefreshToken returns the refresh token from env var or config, in that order.
func GetRefreshToken(cfg Config) string {
	return envOr("ASLEEP_REFRESH_TOKEN", cfg.Asleep.RefreshToken)
}

// GetBaseURL returns the API base URL from env var or config, in that order.
// Empty means the client default.
func GetBaseURL(cfg Config) string {
	return envOr("ASLEEP_BASE_URL", cfg.Asleep.BaseURL)
}

// HasCredentials reports whether enough is configured to call the API.
func HasCredentials(cfg Config) bool {
	return GetUserID(cfg) != "" && GetAccessToken(cfg) != ""
}

// TokenExpiry parses token_expires_at. RFC 3339 values are used as-is;
// values without an offset are read in local time. A missing or
// unparseable value yields the zero time.
func TokenExpiry(cfg Config) time.Time {
	raw := strings.TrimSpace(cfg.Asleep.TokenExpiresAt)
	if raw == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t
	}
	if t, err := time.ParseInLocation("2006-01-02T15:04:05.999999999", raw, time.Local); err == nil {
		return t
	}
	return time.Time{}
}

// SetTokens stores refreshed tokens in cfg.
func SetTokens(cfg *Config, access, refresh string, expiresAt time.Time) {
	cfg.Asleep.AccessToken = access
	if refresh != "" {
		cfg.Asleep.RefreshToken = refresh
	}
	if expiresAt.IsZero() {
		cfg.Asleep.TokenExpiresAt = ""
	} else {
		cfg.Asleep.TokenExpiresAt = expiresAt.Format(time.RFC3339)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

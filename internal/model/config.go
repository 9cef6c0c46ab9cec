package model

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// SupabaseConfig holds the connection settings for the SevApp backend
// project. The anon key is public by design; the user's session token
// is kept in the system keyring, never in this file.
type SupabaseConfig struct {
	// URL is the project root URL (e.g. https://abc.supabase.co).
	URL string `mapstructure:"url" yaml:"url"`

	// AnonKey is the project's anonymous API key.
	AnonKey string `mapstructure:"anon_key" yaml:"anon_key"`
}

// NotificationsConfig tunes the notification sync subsystem.
type NotificationsConfig struct {
	// PollIntervalSec is how often (in seconds) the unread count is
	// re-fetched as a fallback for the realtime channel.
	PollIntervalSec int `mapstructure:"poll_interval_sec" yaml:"poll_interval_sec"`

	// ListLimit bounds how many notifications a full load fetches.
	ListLimit int `mapstructure:"list_limit" yaml:"list_limit"`

	// Sound controls whether local alerts play an audible sound.
	Sound bool `mapstructure:"sound" yaml:"sound"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Supabase      SupabaseConfig      `mapstructure:"supabase" yaml:"supabase"`
	Notifications NotificationsConfig `mapstructure:"notifications" yaml:"notifications"`
}

// PollInterval returns the configured poll interval as a duration.
func (c *AppConfig) PollInterval() time.Duration {
	return time.Duration(c.Notifications.PollIntervalSec) * time.Second
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/sevapp/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "sevapp", "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		Notifications: NotificationsConfig{
			PollIntervalSec: 10,
			ListLimit:       50,
			Sound:           true,
		},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("notifications.poll_interval_sec", 10)
	v.SetDefault("notifications.list_limit", 50)
	v.SetDefault("notifications.sound", true)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return defaultAppConfig(), nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaultAppConfig(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Notifications.PollIntervalSec <= 0 {
		cfg.Notifications.PollIntervalSec = 10
	}
	if cfg.Notifications.ListLimit <= 0 {
		cfg.Notifications.ListLimit = 50
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("supabase", cfg.Supabase)
	v.Set("notifications", cfg.Notifications)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}

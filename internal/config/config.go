// Package config resolves client settings from defaults, an optional YAML
// file and TADA_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const envPrefix = "TADA"

// Config is the merged client configuration.
type Config struct {
	APIURL         string        `yaml:"api_url" mapstructure:"api_url"`
	PushURL        string        `yaml:"push_url" mapstructure:"push_url"`
	CredentialsDir string        `yaml:"credentials_dir" mapstructure:"credentials_dir"`
	SyncInterval   time.Duration `yaml:"sync_interval" mapstructure:"sync_interval"`
	RequestTimeout time.Duration `yaml:"request_timeout" mapstructure:"request_timeout"`
	RateLimit      float64       `yaml:"rate_limit" mapstructure:"rate_limit"`
	RateBurst      int           `yaml:"rate_burst" mapstructure:"rate_burst"`
	LogLevel       string        `yaml:"log_level" mapstructure:"log_level"`
	Theme          string        `yaml:"theme" mapstructure:"theme"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		APIURL:         "http://localhost:8000/api",
		PushURL:        "ws://localhost:8080",
		CredentialsDir: "~/.tada",
		SyncInterval:   5 * time.Minute,
		RequestTimeout: 15 * time.Second,
		RateLimit:      10,
		RateBurst:      20,
		LogLevel:       "info",
		Theme:          "classic",
	}
}

// Dir is the directory holding config.yaml and the credentials file.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tada"
	}
	return filepath.Join(home, ".tada")
}

// DefaultPath is the config file read when no path is given.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Load merges defaults, the file at path (DefaultPath when empty; a missing
// file is fine) and the environment.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	v := viper.New()
	setDefaults(v, Default())
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.CredentialsDir = expandHome(cfg.CredentialsDir)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("api_url", d.APIURL)
	v.SetDefault("push_url", d.PushURL)
	v.SetDefault("credentials_dir", d.CredentialsDir)
	v.SetDefault("sync_interval", d.SyncInterval)
	v.SetDefault("request_timeout", d.RequestTimeout)
	v.SetDefault("rate_limit", d.RateLimit)
	v.SetDefault("rate_burst", d.RateBurst)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("theme", d.Theme)
}

// Validate rejects settings the client cannot run with.
func (c *Config) Validate() error {
	if c.APIURL == "" {
		return errors.New("api_url must be set")
	}
	if c.SyncInterval < 0 {
		return fmt.Errorf("sync_interval must not be negative, got %s", c.SyncInterval)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// WriteDefault writes the built-in settings to path, creating its directory.
func WriteDefault(path string) error {
	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// YAML renders c for display.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level: %w", err)
	}
	return lvl, nil
}

// NewLogger builds the process logger writing text records to w.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	lvl, _ := ParseLevel(c.LogLevel)
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

// Package config loads server settings from the environment, an optional
// .env file and command line flags.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	AuthModeDemo       = "demo"
	AuthModeRegistered = "registered"
)

type Config struct {
	Addr               string        `mapstructure:"addr"`
	DBURL              string        `mapstructure:"db_url"`
	DataDir            string        `mapstructure:"data_dir"`
	JWTSecret          string        `mapstructure:"jwt_secret"`
	AuthMode           string        `mapstructure:"auth_mode"`
	GoogleClientID     string        `mapstructure:"google_client_id"`
	GoogleClientSecret string        `mapstructure:"google_client_secret"`
	GoogleCallbackURL  string        `mapstructure:"google_callback_url"`
	ProfileURL         string        `mapstructure:"profile_url"`
	ProfileTimeout     time.Duration `mapstructure:"profile_timeout"`
	CookieSecure       bool          `mapstructure:"cookie_secure"`
	LogLevel           string        `mapstructure:"log_level"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("addr", ":8080")
	v.SetDefault("db_url", "")
	v.SetDefault("data_dir", "./data")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("auth_mode", AuthModeDemo)
	v.SetDefault("google_client_id", "")
	v.SetDefault("google_client_secret", "")
	v.SetDefault("google_callback_url", "http://localhost:8080/auth/google/callback")
	v.SetDefault("profile_url", "https://jsonplaceholder.typicode.com/users")
	v.SetDefault("profile_timeout", 5*time.Second)
	v.SetDefault("cookie_secure", false)
	v.SetDefault("log_level", "info")
}

// LoadEnvFile loads path into the process environment. A missing file is
// only an error when the caller asked for it explicitly.
func LoadEnvFile(path string, explicit bool) error {
	err := godotenv.Load(path)
	if err == nil {
		return nil
	}
	if errors.Is(err, os.ErrNotExist) && !explicit {
		slog.Warn("environment_file_missing", "path", path)
		return nil
	}
	return fmt.Errorf("load %s: %w", path, err)
}

// Load reads settings from v, which may already carry bound flags.
// Environment variables use the upper-case key, e.g. DB_URL.
func Load(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.AuthMode = strings.ToLower(strings.TrimSpace(cfg.AuthMode))
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	switch c.AuthMode {
	case AuthModeDemo, AuthModeRegistered:
	default:
		errs = append(errs, fmt.Errorf("AUTH_MODE must be %q or %q, got %q", AuthModeDemo, AuthModeRegistered, c.AuthMode))
	}
	if c.ProfileTimeout <= 0 {
		errs = append(errs, errors.New("PROFILE_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
}

// GoogleEnabled reports whether Google sign-in has credentials.
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

func (c *Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, AuthModeDemo, cfg.AuthMode)
	assert.Equal(t, 5*time.Second, cfg.ProfileTimeout)
	assert.Equal(t, "https://jsonplaceholder.typicode.com/users", cfg.ProfileURL)
	assert.False(t, cfg.GoogleEnabled())
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("ADDR", ":9090")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("AUTH_MODE", " Registered ")
	t.Setenv("PROFILE_TIMEOUT", "250ms")
	t.Setenv("COOKIE_SECURE", "true")

	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "s3cret", cfg.JWTSecret)
	assert.Equal(t, AuthModeRegistered, cfg.AuthMode)
	assert.Equal(t, 250*time.Millisecond, cfg.ProfileTimeout)
	assert.True(t, cfg.CookieSecure)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	cfg := &Config{AuthMode: "open", ProfileTimeout: time.Second}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
	assert.Contains(t, err.Error(), "AUTH_MODE")
}

func TestLoadEnvFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.env")
	assert.NoError(t, LoadEnvFile(missing, false))
	assert.Error(t, LoadEnvFile(missing, true))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("TASKTRACKER_TEST_VAR=from-file\n"), 0o600))
	t.Setenv("TASKTRACKER_TEST_VAR", "")
	os.Unsetenv("TASKTRACKER_TEST_VAR")

	require.NoError(t, LoadEnvFile(path, true))
	assert.Equal(t, "from-file", os.Getenv("TASKTRACKER_TEST_VAR"))
}

func TestSlogLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", (&Config{LogLevel: "debug"}).SlogLevel().String())
	assert.Equal(t, "INFO", (&Config{LogLevel: "loud"}).SlogLevel().String())
}

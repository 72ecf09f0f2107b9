package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// inTempDir runs the test from an empty directory so no stray eva.yaml or
// .env is picked up.
func inTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoadDefaults(t *testing.T) {
	inTempDir(t)
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("EVA_GEMINI_API_KEY", "")

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, ProviderGemini, cfg.Provider)
	assert.Equal(t, ".saves", cfg.SaveDir)
	assert.Equal(t, 30*time.Second, cfg.OracleTimeout)
	assert.Equal(t, "info", cfg.LogLevel)

	assert.Error(t, cfg.Validate(), "gemini without a key")
}

func TestLoadFromEnvironment(t *testing.T) {
	inTempDir(t)
	t.Setenv("GEMINI_API_KEY", "g-key")
	t.Setenv("EVA_PROVIDER", "Anthropic")
	t.Setenv("EVA_ANTHROPIC_API_KEY", "a-key")
	t.Setenv("EVA_ORACLE_TIMEOUT", "5s")
	t.Setenv("EVA_PLAYER_NAME", "Ana")

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, ProviderAnthropic, cfg.Provider)
	assert.Equal(t, "g-key", cfg.GeminiAPIKey)
	assert.Equal(t, "a-key", cfg.AnthropicAPIKey)
	assert.Equal(t, 5*time.Second, cfg.OracleTimeout)
	assert.Equal(t, "Ana", cfg.PlayerName)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigFile(t *testing.T) {
	dir := inTempDir(t)
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("provider: offline\nlog_level: debug\nsave_dir: /tmp/eva\n"), 0o644))

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, ProviderOffline, cfg.Provider)
	assert.Equal(t, "/tmp/eva", cfg.SaveDir)
	require.NoError(t, cfg.Validate())

	level, err := cfg.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	inTempDir(t)
	_, err := Load(viper.New(), "nope.yaml")
	assert.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	dir := inTempDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("EVA_PROVIDER=offline\n"), 0o644))
	// Setenv restores the variable godotenv sets; Unsetenv lets godotenv set it.
	t.Setenv("EVA_PROVIDER", "")
	os.Unsetenv("EVA_PROVIDER")

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, ProviderOffline, cfg.Provider)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"offline", Config{Provider: ProviderOffline, OracleTimeout: time.Second, LogLevel: "info"}, false},
		{"unknown provider", Config{Provider: "gpt", OracleTimeout: time.Second, LogLevel: "info"}, true},
		{"zero timeout", Config{Provider: ProviderOffline, LogLevel: "info"}, true},
		{"bad level", Config{Provider: ProviderOffline, OracleTimeout: time.Second, LogLevel: "loud"}, true},
		{"anthropic needs key", Config{Provider: ProviderAnthropic, OracleTimeout: time.Second, LogLevel: "warn"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

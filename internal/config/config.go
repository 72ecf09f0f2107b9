// Package config loads game settings from an optional eva.yaml, a .env file
// and EVA_* environment variables.
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
	"github.com/tatianab/eva-escape/internal/models"
	"github.com/tatianab/eva-escape/internal/store"
)

const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
	ProviderOffline   = "offline"
)

// Config holds the application configuration.
type Config struct {
	Provider        string
	Model           string
	GeminiAPIKey    string
	AnthropicAPIKey string
	SaveDir         string
	LogDB           string
	LogFile         string
	LogLevel        string
	OracleTimeout   time.Duration
	PolicyFile      string
	PlayerName      string
	MetricsAddr     string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("provider", ProviderGemini)
	v.SetDefault("model", "")
	v.SetDefault("save_dir", models.DefaultSaveDir)
	v.SetDefault("log_db", store.DefaultPath)
	v.SetDefault("log_file", ".saves/eva.log")
	v.SetDefault("log_level", "info")
	v.SetDefault("oracle_timeout", 30*time.Second)
	v.SetDefault("policy_file", "")
	v.SetDefault("player_name", "")
	v.SetDefault("metrics_addr", "")
}

// Load reads the configuration into v. configFile may be empty, in which
// case ./eva.yaml is used if it exists.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if v == nil {
		v = viper.New()
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	setDefaults(v)
	v.SetEnvPrefix("EVA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	// The bare provider variables work too.
	_ = v.BindEnv("gemini_api_key", "EVA_GEMINI_API_KEY", "GEMINI_API_KEY")
	_ = v.BindEnv("anthropic_api_key", "EVA_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY")

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("eva")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{
		Provider:        strings.ToLower(v.GetString("provider")),
		Model:           v.GetString("model"),
		GeminiAPIKey:    v.GetString("gemini_api_key"),
		AnthropicAPIKey: v.GetString("anthropic_api_key"),
		SaveDir:         v.GetString("save_dir"),
		LogDB:           v.GetString("log_db"),
		LogFile:         v.GetString("log_file"),
		LogLevel:        v.GetString("log_level"),
		OracleTimeout:   v.GetDuration("oracle_timeout"),
		PolicyFile:      v.GetString("policy_file"),
		PlayerName:      v.GetString("player_name"),
		MetricsAddr:     v.GetString("metrics_addr"),
	}
	return cfg, nil
}

// Validate checks that the selected provider can be reached.
func (c *Config) Validate() error {
	var errs []error
	switch c.Provider {
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY is not set (use --offline to play without it)"))
		}
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			errs = append(errs, errors.New("ANTHROPIC_API_KEY is not set (use --offline to play without it)"))
		}
	case ProviderOffline:
	default:
		errs = append(errs, fmt.Errorf("unknown provider %q", c.Provider))
	}
	if c.OracleTimeout <= 0 {
		errs = append(errs, errors.New("oracle_timeout must be positive"))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// SlogLevel parses LogLevel.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("bad log_level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

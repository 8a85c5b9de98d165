package utils

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	API         APIConfig         `mapstructure:"api"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Feedback    FeedbackConfig    `mapstructure:"feedback"`
	Log         LogConfig         `mapstructure:"log"`
	Translation TranslationConfig `mapstructure:"translation"`
}

type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type CacheConfig struct {
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

type FeedbackConfig struct {
	ConfirmationDelay time.Duration `mapstructure:"confirmation_delay"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

type TranslationConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	SourceLang string `mapstructure:"source_lang"`
	TargetLang string `mapstructure:"target_lang"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "http://localhost:8000")
	v.SetDefault("api.timeout", 0)
	v.SetDefault("cache.ttl", 30*time.Minute)
	v.SetDefault("cache.cleanup_interval", 10*time.Minute)
	v.SetDefault("feedback.confirmation_delay", 3*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.file", "logs/ringan.log")
	v.SetDefault("translation.enabled", false)
	v.SetDefault("translation.source_lang", "en")
	v.SetDefault("translation.target_lang", "id")
}

// LoadConfig reads config.yaml from path (or the default search locations when
// path is empty) and overlays RINGAN_* environment variables. A missing file is
// not an error.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.ringan")
	}

	v.SetEnvPrefix("RINGAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.API.BaseURL == "" {
		return nil, errors.New("api.base_url must not be empty")
	}

	return &cfg, nil
}

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "FOCUS"

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.shutdown_timeout_seconds", 30)

	v.SetDefault("auth.token_lifetime_minutes", 60)

	v.SetDefault("llm.model_name", "gemini-2.0-flash")
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.retry_delay_seconds", 2)

	v.SetDefault("scheduler.cpu_cap", 100)
	v.SetDefault("scheduler.cpu_ceiling", 100)
	v.SetDefault("scheduler.memory_cap_mb", 8192)
	v.SetDefault("scheduler.memory_ceiling_mb", 4096)
	v.SetDefault("scheduler.gpu_cap", 100)
	v.SetDefault("scheduler.gpu_ceiling", 100)
	v.SetDefault("scheduler.queue_size", 1000)
	v.SetDefault("scheduler.default_timeout_seconds", 300)
	v.SetDefault("scheduler.max_timeout_seconds", 1800)
	v.SetDefault("scheduler.grace_period_seconds", 5)
	v.SetDefault("scheduler.history_size", 1000)
	v.SetDefault("scheduler.history_ttl_minutes", 60)

	v.SetDefault("session.inactivity_minutes", 30)
	v.SetDefault("session.reap_interval_seconds", 60)

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.size", 500)
	v.SetDefault("cache.ttl_minutes", 60)
}

// Keys without a default are invisible to AutomaticEnv during Unmarshal, so
// they are bound explicitly.
var boundKeys = []string{
	"database.url",
	"auth.jwt_secret",
	"llm.gemini_api_key",
}

// Load configuration from environment variables and optionally a config.yaml
// in the working directory. Environment variables take precedence over
// values from the file. Returns a populated Config or an error if
// loading or validation fails.
func Load() (*Config, error) {
	return LoadFromFile("")
}

// LoadFromFile is Load with an explicit config file path. An empty path
// searches the working directory for config.yaml and tolerates its absence.
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, key := range boundKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("error binding environment variable for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"    validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Auth      AuthConfig      `mapstructure:"auth"      validate:"required"`
	LLM       LLMConfig       `mapstructure:"llm"       validate:"required"`
	Scheduler SchedulerConfig `mapstructure:"scheduler" validate:"required"`
	Session   SessionConfig   `mapstructure:"session"   validate:"required"`
	Cache     CacheConfig     `mapstructure:"cache"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port                   int    `mapstructure:"port"                     validate:"required,gt=0,lt=65536"`
	LogLevel               string `mapstructure:"log_level"                validate:"required,oneof=debug info warn error"`
	ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds" validate:"gt=0"`
}

// ShutdownTimeout returns the graceful shutdown budget.
func (s ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(s.ShutdownTimeoutSeconds) * time.Second
}

// DatabaseConfig contains database settings. An empty URL disables the
// persistent task history.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"omitempty,url"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret"             validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"gt=0"`
}

// LLMConfig contains all LLM integration related settings.
type LLMConfig struct {
	GeminiAPIKey      string `mapstructure:"gemini_api_key"      validate:"required"`
	ModelName         string `mapstructure:"model_name"          validate:"required"`
	MaxRetries        int    `mapstructure:"max_retries"         validate:"gte=0,lte=10"`
	RetryDelaySeconds int    `mapstructure:"retry_delay_seconds" validate:"gte=1,lte=60"`
}

// SchedulerConfig holds resource capacity and scheduling settings.
// CPU and GPU are percentage points, memory is in MB.
type SchedulerConfig struct {
	CPUCap     float64 `mapstructure:"cpu_cap"     validate:"gt=0"`
	CPUCeiling float64 `mapstructure:"cpu_ceiling" validate:"gt=0,ltefield=CPUCap"`

	// MemoryCapMB of zero means the cap is read from the host
	MemoryCapMB     float64 `mapstructure:"memory_cap_mb"     validate:"gte=0"`
	MemoryCeilingMB float64 `mapstructure:"memory_ceiling_mb" validate:"gt=0"`

	GPUCap     float64 `mapstructure:"gpu_cap"     validate:"gt=0"`
	GPUCeiling float64 `mapstructure:"gpu_ceiling" validate:"gt=0,ltefield=GPUCap"`

	// QueueSize of zero leaves the queue unbounded
	QueueSize             int `mapstructure:"queue_size"              validate:"gte=0"`
	DefaultTimeoutSeconds int `mapstructure:"default_timeout_seconds" validate:"gt=0"`
	MaxTimeoutSeconds     int `mapstructure:"max_timeout_seconds"     validate:"gtefield=DefaultTimeoutSeconds"`
	GracePeriodSeconds    int `mapstructure:"grace_period_seconds"    validate:"gt=0"`
	HistorySize           int `mapstructure:"history_size"            validate:"gt=0"`
	HistoryTTLMinutes     int `mapstructure:"history_ttl_minutes"     validate:"gt=0"`
}

func (s SchedulerConfig) DefaultTimeout() time.Duration {
	return time.Duration(s.DefaultTimeoutSeconds) * time.Second
}

func (s SchedulerConfig) MaxTimeout() time.Duration {
	return time.Duration(s.MaxTimeoutSeconds) * time.Second
}

func (s SchedulerConfig) GracePeriod() time.Duration {
	return time.Duration(s.GracePeriodSeconds) * time.Second
}

func (s SchedulerConfig) HistoryTTL() time.Duration {
	return time.Duration(s.HistoryTTLMinutes) * time.Minute
}

// SessionConfig controls session reuse and reaping.
type SessionConfig struct {
	InactivityMinutes   int `mapstructure:"inactivity_minutes"    validate:"gt=0"`
	ReapIntervalSeconds int `mapstructure:"reap_interval_seconds" validate:"gt=0"`
}

func (s SessionConfig) InactivityThreshold() time.Duration {
	return time.Duration(s.InactivityMinutes) * time.Minute
}

func (s SessionConfig) ReapInterval() time.Duration {
	return time.Duration(s.ReapIntervalSeconds) * time.Second
}

// CacheConfig controls the result cache.
type CacheConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	Size       int  `mapstructure:"size"        validate:"required_if=Enabled true,gte=0"`
	TTLMinutes int  `mapstructure:"ttl_minutes" validate:"required_if=Enabled true,gte=0"`
}

func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLMinutes) * time.Minute
}

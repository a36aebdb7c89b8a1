package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all server configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Redis     RedisConfig     `yaml:"redis"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Log       LogConfig       `yaml:"log"`
	Tracing   TracingConfig   `yaml:"tracing"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host string `yaml:"host"`
	// Port serves the public API
	Port int `yaml:"port"`
	// OpsPort serves health checks and Prometheus metrics
	OpsPort         int           `yaml:"ops_port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	URL        string `yaml:"url"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	MaxRetries int    `yaml:"max_retries"`
	PoolSize   int    `yaml:"pool_size"`
	ScanCount  int64  `yaml:"scan_count"`
}

// RateLimitConfig holds ingestion rate limit settings
type RateLimitConfig struct {
	Enabled           bool          `yaml:"enabled"`
	RequestsPerWindow int           `yaml:"requests_per_window"`
	WindowDuration    time.Duration `yaml:"window_duration"`
	BurstSize         int           `yaml:"burst_size"`
}

// LogConfig holds logging settings
type LogConfig struct {
	// Level is one of debug, info, warn, error
	Level string `yaml:"level"`
}

// TracingConfig holds OpenTelemetry tracing settings
type TracingConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Endpoint       string `yaml:"endpoint"`
	ServiceName    string `yaml:"service_name"`
	ServiceVersion string `yaml:"service_version"`
	Insecure       bool   `yaml:"insecure"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			OpsPort:         9090,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			AllowedOrigins:  []string{"*"},
		},
		Redis: RedisConfig{
			URL:        "redis://localhost:6379",
			DB:         0,
			MaxRetries: 3,
			PoolSize:   10,
			ScanCount:  100,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerWindow: 100,
			WindowDuration:    time.Second,
			BurstSize:         20,
		},
		Log: LogConfig{
			Level: "info",
		},
		Tracing: TracingConfig{
			Enabled:        false,
			Endpoint:       "localhost:4317",
			ServiceName:    "analytics-server",
			ServiceVersion: "dev",
			Insecure:       true,
		},
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// ANALYTICS_CONFIG_FILE (if set), then environment overrides.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("ANALYTICS_CONFIG_FILE"); path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Server.Host = getEnv("ANALYTICS_HOST", cfg.Server.Host)
	cfg.Server.Port = getEnvInt("ANALYTICS_PORT", cfg.Server.Port)
	cfg.Server.OpsPort = getEnvInt("ANALYTICS_OPS_PORT", cfg.Server.OpsPort)
	cfg.Server.ReadTimeout = getEnvDuration("ANALYTICS_READ_TIMEOUT", cfg.Server.ReadTimeout)
	cfg.Server.WriteTimeout = getEnvDuration("ANALYTICS_WRITE_TIMEOUT", cfg.Server.WriteTimeout)
	cfg.Server.ShutdownTimeout = getEnvDuration("ANALYTICS_SHUTDOWN_TIMEOUT", cfg.Server.ShutdownTimeout)
	if origins := os.Getenv("ANALYTICS_ALLOWED_ORIGINS"); origins != "" {
		cfg.Server.AllowedOrigins = splitAndTrim(origins)
	}

	cfg.Redis.URL = getEnv("ANALYTICS_REDIS_URL", cfg.Redis.URL)
	cfg.Redis.Password = getEnv("ANALYTICS_REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvInt("ANALYTICS_REDIS_DB", cfg.Redis.DB)
	cfg.Redis.MaxRetries = getEnvInt("ANALYTICS_REDIS_MAX_RETRIES", cfg.Redis.MaxRetries)
	cfg.Redis.PoolSize = getEnvInt("ANALYTICS_REDIS_POOL_SIZE", cfg.Redis.PoolSize)
	cfg.Redis.ScanCount = int64(getEnvInt("ANALYTICS_REDIS_SCAN_COUNT", int(cfg.Redis.ScanCount)))

	cfg.RateLimit.Enabled = getEnvBool("ANALYTICS_RATE_LIMIT_ENABLED", cfg.RateLimit.Enabled)
	cfg.RateLimit.RequestsPerWindow = getEnvInt("ANALYTICS_RATE_LIMIT_REQUESTS", cfg.RateLimit.RequestsPerWindow)
	cfg.RateLimit.WindowDuration = getEnvDuration("ANALYTICS_RATE_LIMIT_WINDOW", cfg.RateLimit.WindowDuration)
	cfg.RateLimit.BurstSize = getEnvInt("ANALYTICS_RATE_LIMIT_BURST", cfg.RateLimit.BurstSize)

	cfg.Log.Level = getEnv("ANALYTICS_LOG_LEVEL", cfg.Log.Level)

	cfg.Tracing.Enabled = getEnvBool("ANALYTICS_TRACING_ENABLED", cfg.Tracing.Enabled)
	cfg.Tracing.Endpoint = getEnv("ANALYTICS_TRACING_ENDPOINT", cfg.Tracing.Endpoint)
	cfg.Tracing.ServiceName = getEnv("ANALYTICS_TRACING_SERVICE_NAME", cfg.Tracing.ServiceName)
	cfg.Tracing.ServiceVersion = getEnv("ANALYTICS_TRACING_SERVICE_VERSION", cfg.Tracing.ServiceVersion)
	cfg.Tracing.Insecure = getEnvBool("ANALYTICS_TRACING_INSECURE", cfg.Tracing.Insecure)
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.OpsPort <= 0 || c.Server.OpsPort > 65535 {
		return fmt.Errorf("invalid ops port: %d", c.Server.OpsPort)
	}
	if c.Server.Port == c.Server.OpsPort {
		return fmt.Errorf("server port and ops port must differ: %d", c.Server.Port)
	}
	if c.Redis.URL == "" {
		return fmt.Errorf("redis URL is required")
	}
	if c.RateLimit.Enabled {
		if c.RateLimit.RequestsPerWindow <= 0 {
			return fmt.Errorf("invalid rate limit requests per window: %d", c.RateLimit.RequestsPerWindow)
		}
		if c.RateLimit.WindowDuration <= 0 {
			return fmt.Errorf("invalid rate limit window: %s", c.RateLimit.WindowDuration)
		}
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

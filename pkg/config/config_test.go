package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.OpsPort != 9090 {
		t.Errorf("OpsPort = %d, want 9090", cfg.Server.OpsPort)
	}
	if cfg.Redis.URL != "redis://localhost:6379" {
		t.Errorf("Redis.URL = %q", cfg.Redis.URL)
	}
	if !cfg.RateLimit.Enabled {
		t.Error("rate limiting disabled by default")
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
	if cfg.Tracing.Enabled {
		t.Error("tracing enabled by default")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("ANALYTICS_PORT", "3000")
	t.Setenv("ANALYTICS_REDIS_URL", "redis://redis.internal:6380")
	t.Setenv("ANALYTICS_REDIS_DB", "2")
	t.Setenv("ANALYTICS_RATE_LIMIT_ENABLED", "false")
	t.Setenv("ANALYTICS_LOG_LEVEL", "debug")
	t.Setenv("ANALYTICS_SHUTDOWN_TIMEOUT", "45s")
	t.Setenv("ANALYTICS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 3000 {
		t.Errorf("Port = %d, want 3000", cfg.Server.Port)
	}
	if cfg.Redis.URL != "redis://redis.internal:6380" {
		t.Errorf("Redis.URL = %q", cfg.Redis.URL)
	}
	if cfg.Redis.DB != 2 {
		t.Errorf("Redis.DB = %d, want 2", cfg.Redis.DB)
	}
	if cfg.RateLimit.Enabled {
		t.Error("rate limiting still enabled")
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
	if cfg.Server.ShutdownTimeout != 45*time.Second {
		t.Errorf("ShutdownTimeout = %s, want 45s", cfg.Server.ShutdownTimeout)
	}
	want := []string{"https://a.example.com", "https://b.example.com"}
	if len(cfg.Server.AllowedOrigins) != 2 || cfg.Server.AllowedOrigins[0] != want[0] || cfg.Server.AllowedOrigins[1] != want[1] {
		t.Errorf("AllowedOrigins = %v, want %v", cfg.Server.AllowedOrigins, want)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 4000
redis:
  url: redis://file.example.com:6379
log:
  level: warn
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv("ANALYTICS_CONFIG_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 4000 {
		t.Errorf("Port = %d, want 4000", cfg.Server.Port)
	}
	if cfg.Redis.URL != "redis://file.example.com:6379" {
		t.Errorf("Redis.URL = %q", cfg.Redis.URL)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q, want warn", cfg.Log.Level)
	}
	// Values the file does not set keep their defaults.
	if cfg.Server.OpsPort != 9090 {
		t.Errorf("OpsPort = %d, want 9090", cfg.Server.OpsPort)
	}
}

func TestEnvWinsOverFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 4000\n"), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv("ANALYTICS_CONFIG_FILE", path)
	t.Setenv("ANALYTICS_PORT", "5000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 5000 {
		t.Errorf("Port = %d, want 5000 (env over file)", cfg.Server.Port)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("ANALYTICS_CONFIG_FILE", "/does/not/exist.yaml")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"bad ops port", func(c *Config) { c.Server.OpsPort = 70000 }},
		{"port collision", func(c *Config) { c.Server.OpsPort = c.Server.Port }},
		{"missing redis URL", func(c *Config) { c.Redis.URL = "" }},
		{"bad rate limit", func(c *Config) { c.RateLimit.RequestsPerWindow = 0 }},
		{"bad log level", func(c *Config) { c.Log.Level = "verbose" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

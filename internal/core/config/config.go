package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config represents the top-level application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Report   ReportConfig   `koanf:"report"`
	Rollup   RollupConfig   `koanf:"rollup"`
	Admin    AdminConfig    `koanf:"admin"`
}

type ServerConfig struct {
	Port int    `koanf:"port"`
	Host string `koanf:"host"`
	Mode string `koanf:"mode"` // debug | release
}

type DatabaseConfig struct {
	DSN          string `koanf:"dsn"`
	MaxOpenConns int    `koanf:"max_open_conns"`
	MaxIdleConns int    `koanf:"max_idle_conns"`
	AutoMigrate  bool   `koanf:"auto_migrate"`
}

// ReportConfig tunes the summary report endpoint.
type ReportConfig struct {
	DefaultLimit int  `koanf:"default_limit"`
	MaxLimit     int  `koanf:"max_limit"`
	UseRollup    bool `koanf:"use_rollup"`
}

// RollupConfig controls the background rollup refresher.
type RollupConfig struct {
	Enabled         bool   `koanf:"enabled"`
	RefreshInterval string `koanf:"refresh_interval"` // parsed and validated on startup
}

// AdminConfig holds the shared token guarding the admin endpoints.
// An empty token disables them.
type AdminConfig struct {
	Token string `koanf:"token"`
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d (must be 1-65535)", c.Server.Port)
	}
	if strings.TrimSpace(c.Server.Host) == "" {
		return fmt.Errorf("server.host is required")
	}
	if c.Server.Mode != "debug" && c.Server.Mode != "release" {
		return fmt.Errorf("invalid server.mode %q (must be debug or release)", c.Server.Mode)
	}

	if strings.TrimSpace(c.Database.DSN) == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be > 0")
	}
	if c.Database.MaxIdleConns <= 0 {
		return fmt.Errorf("database.max_idle_conns must be > 0")
	}

	if c.Report.MaxLimit <= 0 || c.Report.MaxLimit > 1000 {
		return fmt.Errorf("invalid report.max_limit %d (must be 1-1000)", c.Report.MaxLimit)
	}
	if c.Report.DefaultLimit <= 0 || c.Report.DefaultLimit > c.Report.MaxLimit {
		return fmt.Errorf("invalid report.default_limit %d (must be 1-%d)", c.Report.DefaultLimit, c.Report.MaxLimit)
	}

	if c.Rollup.Enabled {
		interval, err := time.ParseDuration(c.Rollup.RefreshInterval)
		if err != nil {
			return fmt.Errorf("invalid rollup.refresh_interval %q: %w", c.Rollup.RefreshInterval, err)
		}
		if interval <= 0 {
			return fmt.Errorf("rollup.refresh_interval must be > 0")
		}
	}

	return nil
}

// Load parses config from file + env and validates it.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"server.port":             8080,
		"server.host":             "0.0.0.0",
		"server.mode":             "release",
		"database.dsn":            "",
		"database.max_open_conns": 25,
		"database.max_idle_conns": 25,
		"database.auto_migrate":   true,
		"report.default_limit":    100,
		"report.max_limit":        1000,
		"report.use_rollup":       false,
		"rollup.enabled":          false,
		"rollup.refresh_interval": "15m",
		"admin.token":             "",
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// REPORTENGINE_SERVER__PORT=9090 overrides server.port
	if err := k.Load(env.Provider("REPORTENGINE_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "REPORTENGINE_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

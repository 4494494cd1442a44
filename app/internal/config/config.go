package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	// Server
	Port           string `yaml:"port"`
	DBPath         string `yaml:"db_path"`
	MetricsEnabled bool   `yaml:"metrics_enabled"`
	TrustProxy     bool   `yaml:"trust_proxy"`

	// Ping monitoring
	PingTarget          string `yaml:"ping_target"`
	PingCommand         string `yaml:"ping_command"`
	AutostartMonitoring bool   `yaml:"autostart_monitoring"`

	// Speedtest
	EnableSpeedtest          bool   `yaml:"enable_speedtest"`
	SpeedtestCommand         string `yaml:"speedtest_command"`
	SpeedtestIntervalMinutes int    `yaml:"speedtest_interval_minutes"`
	SpeedtestWarmupSeconds   int    `yaml:"speedtest_warmup_seconds"`
	SpeedtestTimeoutSeconds  int    `yaml:"speedtest_timeout_seconds"`

	// Retention
	PingRetentionDays      int `yaml:"ping_retention_days"`
	SpeedtestRetentionDays int `yaml:"speedtest_retention_days"`

	// Statistics
	StatsCacheSeconds int `yaml:"stats_cache_seconds"`

	// Alerts
	WebhookURL           string `yaml:"webhook_url"`
	WebhookSecret        string `yaml:"webhook_secret"`
	DiscordWebhookURL    string `yaml:"discord_webhook_url"`
	DashboardURL         string `yaml:"dashboard_url"`
	AlertCooldownSeconds int    `yaml:"alert_cooldown_seconds"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Port:                     "4600",
		DBPath:                   "./netwatch.db",
		MetricsEnabled:           true,
		PingTarget:               "8.8.8.8",
		PingCommand:              "ping",
		AutostartMonitoring:      true,
		EnableSpeedtest:          true,
		SpeedtestCommand:         "speedtest-cli",
		SpeedtestIntervalMinutes: 15,
		SpeedtestWarmupSeconds:   10,
		SpeedtestTimeoutSeconds:  120,
		PingRetentionDays:        7,
		SpeedtestRetentionDays:   30,
		StatsCacheSeconds:        2,
		AlertCooldownSeconds:     300,
	}
}

// Load reads .env, the optional YAML file named by CONFIG_FILE and the
// environment, in that order of increasing precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return LoadFile(os.Getenv("CONFIG_FILE"))
}

// LoadFile applies the YAML file at path (if any) and then the environment
// on top of the defaults. A missing file falls back to defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		content, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(content, &cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Port = getenv("PORT", cfg.Port)
	cfg.DBPath = getenv("DB_PATH", cfg.DBPath)
	cfg.MetricsEnabled = envBool("METRICS_ENABLED", cfg.MetricsEnabled)
	cfg.TrustProxy = envBool("TRUST_PROXY", cfg.TrustProxy)

	cfg.PingTarget = strings.TrimSpace(getenv("PING_TARGET", cfg.PingTarget))
	cfg.PingCommand = getenv("PING_COMMAND", cfg.PingCommand)
	cfg.AutostartMonitoring = envBool("AUTOSTART_MONITORING", cfg.AutostartMonitoring)

	cfg.EnableSpeedtest = envBool("ENABLE_SPEEDTEST", cfg.EnableSpeedtest)
	cfg.SpeedtestCommand = getenv("SPEEDTEST_COMMAND", cfg.SpeedtestCommand)
	cfg.SpeedtestIntervalMinutes = envInt("SPEEDTEST_INTERVAL_MINUTES", cfg.SpeedtestIntervalMinutes)
	cfg.SpeedtestWarmupSeconds = envInt("SPEEDTEST_WARMUP_SECONDS", cfg.SpeedtestWarmupSeconds)
	cfg.SpeedtestTimeoutSeconds = envInt("SPEEDTEST_TIMEOUT_SECONDS", cfg.SpeedtestTimeoutSeconds)

	cfg.PingRetentionDays = envInt("PING_RETENTION_DAYS", cfg.PingRetentionDays)
	cfg.SpeedtestRetentionDays = envInt("SPEEDTEST_RETENTION_DAYS", cfg.SpeedtestRetentionDays)

	cfg.StatsCacheSeconds = envInt("STATS_CACHE_SECONDS", cfg.StatsCacheSeconds)

	cfg.WebhookURL = getenv("WEBHOOK_URL", cfg.WebhookURL)
	cfg.WebhookSecret = getenv("WEBHOOK_SECRET", cfg.WebhookSecret)
	cfg.DiscordWebhookURL = getenv("DISCORD_WEBHOOK_URL", cfg.DiscordWebhookURL)
	cfg.DashboardURL = getenv("DASHBOARD_URL", cfg.DashboardURL)
	cfg.AlertCooldownSeconds = envInt("ALERT_COOLDOWN_SECONDS", cfg.AlertCooldownSeconds)
}

// Validate rejects settings the monitor cannot run with.
func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid PORT %q", c.Port)
	}
	if c.DBPath == "" {
		return errors.New("DB_PATH must not be empty")
	}
	if c.PingTarget == "" {
		return errors.New("PING_TARGET must not be empty")
	}
	if c.PingCommand == "" {
		return errors.New("PING_COMMAND must not be empty")
	}
	if c.EnableSpeedtest && c.SpeedtestCommand == "" {
		return errors.New("SPEEDTEST_COMMAND must not be empty when speedtests are enabled")
	}
	if c.SpeedtestIntervalMinutes <= 0 {
		return fmt.Errorf("SPEEDTEST_INTERVAL_MINUTES must be positive, got %d", c.SpeedtestIntervalMinutes)
	}
	if c.SpeedtestWarmupSeconds <= 0 {
		return fmt.Errorf("SPEEDTEST_WARMUP_SECONDS must be positive, got %d", c.SpeedtestWarmupSeconds)
	}
	if c.SpeedtestTimeoutSeconds <= 0 {
		return fmt.Errorf("SPEEDTEST_TIMEOUT_SECONDS must be positive, got %d", c.SpeedtestTimeoutSeconds)
	}
	if c.PingRetentionDays <= 0 {
		return fmt.Errorf("PING_RETENTION_DAYS must be positive, got %d", c.PingRetentionDays)
	}
	if c.SpeedtestRetentionDays <= 0 {
		return fmt.Errorf("SPEEDTEST_RETENTION_DAYS must be positive, got %d", c.SpeedtestRetentionDays)
	}
	if c.StatsCacheSeconds < 0 {
		return fmt.Errorf("STATS_CACHE_SECONDS must not be negative, got %d", c.StatsCacheSeconds)
	}
	if c.AlertCooldownSeconds < 0 {
		return fmt.Errorf("ALERT_COOLDOWN_SECONDS must not be negative, got %d", c.AlertCooldownSeconds)
	}
	return nil
}

func (c *Config) SpeedtestInterval() time.Duration {
	return time.Duration(c.SpeedtestIntervalMinutes) * time.Minute
}

func (c *Config) SpeedtestWarmup() time.Duration {
	return time.Duration(c.SpeedtestWarmupSeconds) * time.Second
}

func (c *Config) SpeedtestTimeout() time.Duration {
	return time.Duration(c.SpeedtestTimeoutSeconds) * time.Second
}

func (c *Config) StatsCacheTTL() time.Duration {
	return time.Duration(c.StatsCacheSeconds) * time.Second
}

func (c *Config) AlertCooldown() time.Duration {
	return time.Duration(c.AlertCooldownSeconds) * time.Second
}

// Helper functions
func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envBool(k string, def bool) bool {
	v := strings.ToLower(getenv(k, ""))
	if v == "" {
		return def
	}
	return v == "1" || v == "true" || v == "yes"
}

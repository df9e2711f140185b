// Package config loads application configuration from a YAML file with
// environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the collector.
type Config struct {
	Glowmarkt GlowmarktConfig `mapstructure:"glowmarkt"`
	Influx    InfluxConfig    `mapstructure:"influx"`
	Timescale TimescaleConfig `mapstructure:"timescale"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Schedule  ScheduleConfig  `mapstructure:"schedule"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// GlowmarktConfig describes the upstream API account and query defaults.
type GlowmarktConfig struct {
	URL            string `mapstructure:"url"`
	ApplicationID  string `mapstructure:"application_id"`
	Username       string `mapstructure:"username"`
	Password       string `mapstructure:"password"`
	TokenCacheFile string `mapstructure:"token_cache_file"`
	Period         string `mapstructure:"period"`
	Function       string `mapstructure:"function"`
	MaxSpanDays    int    `mapstructure:"max_span_days"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type InfluxConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Token   string `mapstructure:"token"`
	Org     string `mapstructure:"org"`
	Bucket  string `mapstructure:"bucket"`
}

type TimescaleConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	ConnStr string `mapstructure:"conn_str"`
}

type PipelineConfig struct {
	Workers        int     `mapstructure:"workers"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
	DedupeSize     int     `mapstructure:"dedupe_size"`
}

type ScheduleConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Spec          string `mapstructure:"spec"`
	WindowMinutes int    `mapstructure:"window_minutes"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from the file at path, applying defaults and
// GLOWPULL_-prefixed environment overrides (GLOWPULL_GLOWMARKT_USERNAME
// overrides glowmarkt.username, and so on).
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	setDefaults(v)

	v.SetEnvPrefix("GLOWPULL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks the loaded configuration for values the pipeline cannot
// run without. Fails before any network activity.
func (c *Config) Validate() error {
	if c.Glowmarkt.Username == "" || c.Glowmarkt.Password == "" {
		return errors.New("config: glowmarkt username and password are required")
	}
	if c.Glowmarkt.MaxSpanDays <= 0 {
		return fmt.Errorf("config: max_span_days must be positive, got %d", c.Glowmarkt.MaxSpanDays)
	}
	if c.Pipeline.Workers <= 0 {
		return fmt.Errorf("config: pipeline workers must be positive, got %d", c.Pipeline.Workers)
	}
	if !c.Influx.Enabled && !c.Timescale.Enabled {
		return errors.New("config: at least one sink must be enabled")
	}
	if c.Influx.Enabled && c.Influx.URL == "" {
		return errors.New("config: influx.url is required when influx is enabled")
	}
	if c.Timescale.Enabled && c.Timescale.ConnStr == "" {
		return errors.New("config: timescale.conn_str is required when timescale is enabled")
	}
	if c.Schedule.Enabled && c.Schedule.Spec == "" {
		return errors.New("config: schedule.spec is required when scheduling is enabled")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("glowmarkt.url", "https://api.glowmarkt.com/api/v0-1")
	v.SetDefault("glowmarkt.application_id", "")
	v.SetDefault("glowmarkt.username", "")
	v.SetDefault("glowmarkt.password", "")
	v.SetDefault("glowmarkt.token_cache_file", "")
	v.SetDefault("glowmarkt.period", "PT30M")
	v.SetDefault("glowmarkt.function", "sum")
	v.SetDefault("glowmarkt.max_span_days", 10)
	v.SetDefault("glowmarkt.timeout_seconds", 30)

	v.SetDefault("influx.enabled", true)
	v.SetDefault("influx.url", "")
	v.SetDefault("influx.token", "")
	v.SetDefault("influx.org", "")
	v.SetDefault("influx.bucket", "energy")

	v.SetDefault("timescale.enabled", false)
	v.SetDefault("timescale.conn_str", "")

	v.SetDefault("pipeline.workers", 4)
	v.SetDefault("pipeline.rate_limit", 5.0)
	v.SetDefault("pipeline.rate_limit_burst", 10)
	v.SetDefault("pipeline.dedupe_size", 1000)

	v.SetDefault("schedule.enabled", false)
	v.SetDefault("schedule.spec", "*/30 * * * *")
	v.SetDefault("schedule.window_minutes", 60)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", ":9090")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the entire application configuration
type Config struct {
	HTTP      HTTPConfig      `mapstructure:"http"`
	Download  DownloadConfig  `mapstructure:"download"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// HTTPConfig contains HTTP server configuration
type HTTPConfig struct {
	BindAddr     string `mapstructure:"bind_addr"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
	IdleTimeout  string `mapstructure:"idle_timeout"`
}

// DownloadConfig contains download session settings
type DownloadConfig struct {
	Dir              string `mapstructure:"dir"`
	HistorySize      int    `mapstructure:"history_size"`
	RetireDelay      string `mapstructure:"retire_delay"`
	ProgressInterval string `mapstructure:"progress_interval"`
}

// ProvidersConfig contains the provider fallback chain settings
type ProvidersConfig struct {
	AttemptTimeout string           `mapstructure:"attempt_timeout"`
	Cookies        string           `mapstructure:"cookies"`
	Native         NativeConfig     `mapstructure:"native"`
	Conversion     ConversionConfig `mapstructure:"conversion"`
	Mirror         MirrorConfig     `mapstructure:"mirror"`
}

// NativeConfig configures the native extraction provider
type NativeConfig struct {
	Identities []string `mapstructure:"identities"`
}

// ConversionConfig configures the external conversion service provider
type ConversionConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	APIKey   string `mapstructure:"api_key"`
}

// MirrorConfig configures the mirror metadata provider
type MirrorConfig struct {
	Instances []string `mapstructure:"instances"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load loads configuration from the specified file path. An empty path loads
// defaults and environment overrides only.
func Load(configPath string) (*Config, error) {
	viper.SetConfigType("yaml")

	viper.SetDefault("http.bind_addr", "0.0.0.0:8080")
	viper.SetDefault("http.read_timeout", "30s")
	viper.SetDefault("http.write_timeout", "0s")
	viper.SetDefault("http.idle_timeout", "60s")
	viper.SetDefault("download.dir", "downloads")
	viper.SetDefault("download.history_size", 50)
	viper.SetDefault("download.retire_delay", "5m")
	viper.SetDefault("download.progress_interval", "500ms")
	viper.SetDefault("providers.attempt_timeout", "2m")
	viper.SetDefault("providers.native.identities", []string{"android", "web", "ios"})
	viper.SetDefault("providers.conversion.endpoint", "")
	viper.SetDefault("providers.conversion.api_key", "")
	viper.SetDefault("providers.mirror.instances", []string{})
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")

	// Account cookies come from the environment rather than the config file,
	// so they never end up in version-controlled configs.
	viper.BindEnv("providers.cookies", "YOUTUBE_COOKIES")

	if configPath != "" {
		viper.SetConfigFile(configPath)
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.HTTP.BindAddr == "" {
		return fmt.Errorf("http.bind_addr is required")
	}
	if c.Download.Dir == "" {
		return fmt.Errorf("download.dir is required")
	}
	if c.Download.HistorySize < 1 {
		return fmt.Errorf("download.history_size must be positive")
	}

	for name, value := range map[string]string{
		"http.read_timeout":          c.HTTP.ReadTimeout,
		"http.write_timeout":         c.HTTP.WriteTimeout,
		"http.idle_timeout":          c.HTTP.IdleTimeout,
		"download.retire_delay":      c.Download.RetireDelay,
		"download.progress_interval": c.Download.ProgressInterval,
		"providers.attempt_timeout":  c.Providers.AttemptTimeout,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level: %s", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("invalid logging.format: %s", c.Logging.Format)
	}

	return nil
}

// GetAttemptTimeout returns the per-provider attempt timeout as time.Duration
func (c *ProvidersConfig) GetAttemptTimeout() time.Duration {
	d, _ := time.ParseDuration(c.AttemptTimeout)
	if d == 0 {
		return 2 * time.Minute
	}
	return d
}

// GetRetireDelay returns the finished-session retention delay as time.Duration
func (c *DownloadConfig) GetRetireDelay() time.Duration {
	d, _ := time.ParseDuration(c.RetireDelay)
	if d == 0 {
		return 5 * time.Minute
	}
	return d
}

// GetProgressInterval returns the progress publish interval as time.Duration
func (c *DownloadConfig) GetProgressInterval() time.Duration {
	d, _ := time.ParseDuration(c.ProgressInterval)
	if d == 0 {
		return 500 * time.Millisecond
	}
	return d
}

// GetReadTimeout returns the read timeout as time.Duration
func (c *HTTPConfig) GetReadTimeout() time.Duration {
	d, _ := time.ParseDuration(c.ReadTimeout)
	if d == 0 {
		return 30 * time.Second
	}
	return d
}

// GetWriteTimeout returns the write timeout as time.Duration. Zero disables
// it, which long-lived progress streams require.
func (c *HTTPConfig) GetWriteTimeout() time.Duration {
	d, _ := time.ParseDuration(c.WriteTimeout)
	return d
}

// GetIdleTimeout returns the idle timeout as time.Duration
func (c *HTTPConfig) GetIdleTimeout() time.Duration {
	d, _ := time.ParseDuration(c.IdleTimeout)
	if d == 0 {
		return 60 * time.Second
	}
	return d
}

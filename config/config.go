package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Catalog CatalogConfig
	Fetch   FetchConfig
	Report  ReportConfig
	Log     LogConfig
}

// CatalogConfig holds local catalog settings
type CatalogConfig struct {
	URL             string        `mapstructure:"url"`
	Path            string        `mapstructure:"path"`
	MaxAge          time.Duration `mapstructure:"max_age"`
	TimestampLayout string        `mapstructure:"timestamp_layout"`
	Location        string        `mapstructure:"location"` // IANA zone of skapad-tid, or "Local"
	AllowStale      bool          `mapstructure:"allow_stale"`
}

// FetchConfig holds catalog download settings
type FetchConfig struct {
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxAttempts       int           `mapstructure:"max_attempts"`
	UserAgent         string        `mapstructure:"user_agent"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
}

// ReportConfig holds listing settings
type ReportConfig struct {
	Count          int    `mapstructure:"count"`
	Precision      int32  `mapstructure:"precision"`
	ProductURLBase string `mapstructure:"product_url_base"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "text" or "json"
}

// TimeLocation resolves the configured catalog time zone
func (c CatalogConfig) TimeLocation() (*time.Location, error) {
	if c.Location == "" || strings.EqualFold(c.Location, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(c.Location)
}

// Load loads configuration from a .env file, environment variables and
// config files
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/apk/")

	v.SetEnvPrefix("APK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadEnvFile loads ./.env into the environment without overriding
// variables that are already set. A missing file is not an error.
func loadEnvFile() error {
	err := godotenv.Load(".env")
	if err != nil && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Catalog defaults
	v.SetDefault("catalog.url", "https://www.systembolaget.se/api/assortment/products/xml")
	v.SetDefault("catalog.path", "products.xml")
	v.SetDefault("catalog.max_age", "24h")
	v.SetDefault("catalog.timestamp_layout", "2006-01-02 15:04")
	v.SetDefault("catalog.location", "Local")
	v.SetDefault("catalog.allow_stale", false)

	// Fetch defaults
	v.SetDefault("fetch.timeout", "60s")
	v.SetDefault("fetch.max_attempts", 3)
	v.SetDefault("fetch.user_agent", "apk/1.0")
	v.SetDefault("fetch.requests_per_second", 0)
	v.SetDefault("fetch.burst", 1)

	// Report defaults
	v.SetDefault("report.count", 20)
	v.SetDefault("report.precision", 4)
	v.SetDefault("report.product_url_base", "https://www.systembolaget.se/")

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Catalog.URL == "" {
		return fmt.Errorf("catalog URL is required (set APK_CATALOG_URL)")
	}

	if config.Catalog.Path == "" {
		return fmt.Errorf("catalog path is required (set APK_CATALOG_PATH)")
	}

	if config.Catalog.MaxAge <= 0 {
		return fmt.Errorf("catalog max age must be positive, got: %s", config.Catalog.MaxAge)
	}

	if _, err := config.Catalog.TimeLocation(); err != nil {
		return fmt.Errorf("unknown catalog location %q: %w", config.Catalog.Location, err)
	}

	if config.Fetch.MaxAttempts < 1 {
		return fmt.Errorf("fetch max attempts must be at least 1, got: %d", config.Fetch.MaxAttempts)
	}

	if config.Fetch.RequestsPerSecond < 0 {
		return fmt.Errorf("fetch requests per second cannot be negative, got: %v", config.Fetch.RequestsPerSecond)
	}

	if config.Report.Count < 1 {
		return fmt.Errorf("report count must be at least 1, got: %d", config.Report.Count)
	}

	if config.Report.Precision < 0 {
		return fmt.Errorf("report precision cannot be negative, got: %d", config.Report.Precision)
	}

	if _, err := logrus.ParseLevel(config.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %s", config.Log.Level)
	}

	if config.Log.Format != "text" && config.Log.Format != "json" {
		return fmt.Errorf("log format must be 'text' or 'json', got: %s", config.Log.Format)
	}

	return nil
}

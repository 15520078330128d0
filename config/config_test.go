package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	// Clean up environment before tests
	cleanupEnv := func() {
		os.Unsetenv("APK_CATALOG_URL")
		os.Unsetenv("APK_CATALOG_PATH")
		os.Unsetenv("APK_CATALOG_MAX_AGE")
		os.Unsetenv("APK_CATALOG_LOCATION")
		os.Unsetenv("APK_CATALOG_ALLOW_STALE")
		os.Unsetenv("APK_FETCH_TIMEOUT")
		os.Unsetenv("APK_FETCH_MAX_ATTEMPTS")
		os.Unsetenv("APK_FETCH_REQUESTS_PER_SECOND")
		os.Unsetenv("APK_REPORT_COUNT")
		os.Unsetenv("APK_REPORT_PRECISION")
		os.Unsetenv("APK_LOG_LEVEL")
		os.Unsetenv("APK_LOG_FORMAT")
	}

	t.Run("loads with defaults when no env vars set", func(t *testing.T) {
		cleanupEnv()
		defer cleanupEnv()

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}

		if cfg.Catalog.URL != "https://www.systembolaget.se/api/assortment/products/xml" {
			t.Errorf("Catalog.URL = %s, want the systembolaget export", cfg.Catalog.URL)
		}
		if cfg.Catalog.Path != "products.xml" {
			t.Errorf("Catalog.Path = %s, want products.xml", cfg.Catalog.Path)
		}
		if cfg.Catalog.MaxAge != 24*time.Hour {
			t.Errorf("Catalog.MaxAge = %v, want 24h", cfg.Catalog.MaxAge)
		}
		if cfg.Catalog.TimestampLayout != "2006-01-02 15:04" {
			t.Errorf("Catalog.TimestampLayout = %s, want 2006-01-02 15:04", cfg.Catalog.TimestampLayout)
		}
		if cfg.Catalog.AllowStale {
			t.Errorf("Catalog.AllowStale = true, want false")
		}
		if cfg.Fetch.Timeout != 60*time.Second {
			t.Errorf("Fetch.Timeout = %v, want 60s", cfg.Fetch.Timeout)
		}
		if cfg.Fetch.MaxAttempts != 3 {
			t.Errorf("Fetch.MaxAttempts = %d, want 3", cfg.Fetch.MaxAttempts)
		}
		if cfg.Fetch.RequestsPerSecond != 0 {
			t.Errorf("Fetch.RequestsPerSecond = %v, want 0", cfg.Fetch.RequestsPerSecond)
		}
		if cfg.Report.Count != 20 {
			t.Errorf("Report.Count = %d, want 20", cfg.Report.Count)
		}
		if cfg.Report.Precision != 4 {
			t.Errorf("Report.Precision = %d, want 4", cfg.Report.Precision)
		}
		if cfg.Log.Level != "info" {
			t.Errorf("Log.Level = %s, want info", cfg.Log.Level)
		}
		if cfg.Log.Format != "text" {
			t.Errorf("Log.Format = %s, want text", cfg.Log.Format)
		}
	})

	t.Run("loads custom values from environment variables", func(t *testing.T) {
		cleanupEnv()
		os.Setenv("APK_CATALOG_URL", "https://mirror.example.com/products.xml")
		os.Setenv("APK_CATALOG_PATH", "/var/lib/apk/products.xml")
		os.Setenv("APK_CATALOG_MAX_AGE", "12h")
		os.Setenv("APK_CATALOG_LOCATION", "UTC")
		os.Setenv("APK_CATALOG_ALLOW_STALE", "true")
		os.Setenv("APK_FETCH_TIMEOUT", "5s")
		os.Setenv("APK_FETCH_MAX_ATTEMPTS", "5")
		os.Setenv("APK_FETCH_REQUESTS_PER_SECOND", "0.5")
		os.Setenv("APK_REPORT_COUNT", "10")
		os.Setenv("APK_REPORT_PRECISION", "2")
		os.Setenv("APK_LOG_LEVEL", "debug")
		os.Setenv("APK_LOG_FORMAT", "json")
		defer cleanupEnv()

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}

		if cfg.Catalog.URL != "https://mirror.example.com/products.xml" {
			t.Errorf("Catalog.URL = %s, want mirror URL", cfg.Catalog.URL)
		}
		if cfg.Catalog.Path != "/var/lib/apk/products.xml" {
			t.Errorf("Catalog.Path = %s, want /var/lib/apk/products.xml", cfg.Catalog.Path)
		}
		if cfg.Catalog.MaxAge != 12*time.Hour {
			t.Errorf("Catalog.MaxAge = %v, want 12h", cfg.Catalog.MaxAge)
		}
		if cfg.Catalog.Location != "UTC" {
			t.Errorf("Catalog.Location = %s, want UTC", cfg.Catalog.Location)
		}
		if !cfg.Catalog.AllowStale {
			t.Errorf("Catalog.AllowStale = false, want true")
		}
		if cfg.Fetch.Timeout != 5*time.Second {
			t.Errorf("Fetch.Timeout = %v, want 5s", cfg.Fetch.Timeout)
		}
		if cfg.Fetch.MaxAttempts != 5 {
			t.Errorf("Fetch.MaxAttempts = %d, want 5", cfg.Fetch.MaxAttempts)
		}
		if cfg.Fetch.RequestsPerSecond != 0.5 {
			t.Errorf("Fetch.RequestsPerSecond = %v, want 0.5", cfg.Fetch.RequestsPerSecond)
		}
		if cfg.Report.Count != 10 {
			t.Errorf("Report.Count = %d, want 10", cfg.Report.Count)
		}
		if cfg.Report.Precision != 2 {
			t.Errorf("Report.Precision = %d, want 2", cfg.Report.Precision)
		}
		if cfg.Log.Level != "debug" {
			t.Errorf("Log.Level = %s, want debug", cfg.Log.Level)
		}
		if cfg.Log.Format != "json" {
			t.Errorf("Log.Format = %s, want json", cfg.Log.Format)
		}
	})

	t.Run("fails validation for zero attempts", func(t *testing.T) {
		cleanupEnv()
		os.Setenv("APK_FETCH_MAX_ATTEMPTS", "0")
		defer cleanupEnv()

		_, err := Load()
		if err == nil {
			t.Error("Load() error = nil, want error for zero attempts")
		}
		if err != nil && err.Error() != "invalid configuration: fetch max attempts must be at least 1, got: 0" {
			t.Errorf("Load() error = %v, want 'fetch max attempts must be at least 1'", err)
		}
	})

	t.Run("fails validation for unknown location", func(t *testing.T) {
		cleanupEnv()
		os.Setenv("APK_CATALOG_LOCATION", "Mars/Olympus_Mons")
		defer cleanupEnv()

		_, err := Load()
		if err == nil {
			t.Error("Load() error = nil, want error for unknown location")
		}
	})

	t.Run("fails validation for invalid log format", func(t *testing.T) {
		cleanupEnv()
		os.Setenv("APK_LOG_FORMAT", "xml")
		defer cleanupEnv()

		_, err := Load()
		if err == nil {
			t.Error("Load() error = nil, want error for invalid log format")
		}
	})
}

func TestLoadEnvFile(t *testing.T) {
	t.Run("returns nil when .env file doesn't exist", func(t *testing.T) {
		originalDir, _ := os.Getwd()
		defer os.Chdir(originalDir)

		tempDir := t.TempDir()
		os.Chdir(tempDir)

		err := loadEnvFile()
		if err != nil {
			t.Errorf("loadEnvFile() error = %v, want nil when file doesn't exist", err)
		}
	})

	t.Run("loads variables from .env file", func(t *testing.T) {
		originalDir, _ := os.Getwd()
		defer os.Chdir(originalDir)

		tempDir := t.TempDir()
		os.Chdir(tempDir)

		envContent := `
# Comment line
TEST_VAR_1=value1
TEST_VAR_2=value2

# Another comment
TEST_VAR_3=value3
`
		err := os.WriteFile(".env", []byte(envContent), 0644)
		if err != nil {
			t.Fatalf("Failed to create test .env file: %v", err)
		}

		os.Unsetenv("TEST_VAR_1")
		os.Unsetenv("TEST_VAR_2")
		os.Unsetenv("TEST_VAR_3")

		err = loadEnvFile()
		if err != nil {
			t.Fatalf("loadEnvFile() error = %v, want nil", err)
		}

		if os.Getenv("TEST_VAR_1") != "value1" {
			t.Errorf("TEST_VAR_1 = %s, want value1", os.Getenv("TEST_VAR_1"))
		}
		if os.Getenv("TEST_VAR_2") != "value2" {
			t.Errorf("TEST_VAR_2 = %s, want value2", os.Getenv("TEST_VAR_2"))
		}
		if os.Getenv("TEST_VAR_3") != "value3" {
			t.Errorf("TEST_VAR_3 = %s, want value3", os.Getenv("TEST_VAR_3"))
		}

		os.Unsetenv("TEST_VAR_1")
		os.Unsetenv("TEST_VAR_2")
		os.Unsetenv("TEST_VAR_3")
	})

	t.Run("feeds configuration from .env file", func(t *testing.T) {
		originalDir, _ := os.Getwd()
		defer os.Chdir(originalDir)

		tempDir := t.TempDir()
		os.Chdir(tempDir)

		err := os.WriteFile(".env", []byte("APK_REPORT_COUNT=7\n"), 0644)
		if err != nil {
			t.Fatalf("Failed to create test .env file: %v", err)
		}
		os.Unsetenv("APK_REPORT_COUNT")
		defer os.Unsetenv("APK_REPORT_COUNT")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}
		if cfg.Report.Count != 7 {
			t.Errorf("Report.Count = %d, want 7", cfg.Report.Count)
		}
	})

	t.Run("doesn't override existing environment variables", func(t *testing.T) {
		originalDir, _ := os.Getwd()
		defer os.Chdir(originalDir)

		tempDir := t.TempDir()
		os.Chdir(tempDir)

		os.Setenv("TEST_OVERRIDE", "existing-value")

		err := os.WriteFile(".env", []byte("TEST_OVERRIDE=new-value"), 0644)
		if err != nil {
			t.Fatalf("Failed to create test .env file: %v", err)
		}

		err = loadEnvFile()
		if err != nil {
			t.Fatalf("loadEnvFile() error = %v, want nil", err)
		}

		if os.Getenv("TEST_OVERRIDE") != "existing-value" {
			t.Errorf("TEST_OVERRIDE = %s, want existing-value (should not override)", os.Getenv("TEST_OVERRIDE"))
		}

		os.Unsetenv("TEST_OVERRIDE")
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Catalog: CatalogConfig{
				URL:      "https://www.systembolaget.se/api/assortment/products/xml",
				Path:     "products.xml",
				MaxAge:   24 * time.Hour,
				Location: "Local",
			},
			Fetch:  FetchConfig{MaxAttempts: 3},
			Report: ReportConfig{Count: 20, Precision: 4},
			Log:    LogConfig{Level: "info", Format: "text"},
		}
	}

	t.Run("validates successfully with all required fields", func(t *testing.T) {
		if err := validate(valid()); err != nil {
			t.Errorf("validate() error = %v, want nil", err)
		}
	})

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"fails when URL is empty", func(c *Config) { c.Catalog.URL = "" }},
		{"fails when path is empty", func(c *Config) { c.Catalog.Path = "" }},
		{"fails for non-positive max age", func(c *Config) { c.Catalog.MaxAge = 0 }},
		{"fails for unknown location", func(c *Config) { c.Catalog.Location = "Nowhere/Special" }},
		{"fails for zero attempts", func(c *Config) { c.Fetch.MaxAttempts = 0 }},
		{"fails for negative rate", func(c *Config) { c.Fetch.RequestsPerSecond = -1 }},
		{"fails for zero report count", func(c *Config) { c.Report.Count = 0 }},
		{"fails for negative precision", func(c *Config) { c.Report.Precision = -1 }},
		{"fails for unknown log level", func(c *Config) { c.Log.Level = "verbose" }},
		{"fails for unknown log format", func(c *Config) { c.Log.Format = "yaml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			if err := validate(cfg); err == nil {
				t.Error("validate() error = nil, want error")
			}
		})
	}
}

func TestTimeLocation(t *testing.T) {
	loc, err := CatalogConfig{Location: "Local"}.TimeLocation()
	if err != nil || loc != time.Local {
		t.Errorf("TimeLocation(Local) = %v, %v, want time.Local", loc, err)
	}

	loc, err = CatalogConfig{}.TimeLocation()
	if err != nil || loc != time.Local {
		t.Errorf("TimeLocation(\"\") = %v, %v, want time.Local", loc, err)
	}

	loc, err = CatalogConfig{Location: "UTC"}.TimeLocation()
	if err != nil || loc.String() != "UTC" {
		t.Errorf("TimeLocation(UTC) = %v, %v, want UTC", loc, err)
	}
}

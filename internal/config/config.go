package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Data   DataConfig
	Output OutputConfig
	Policy PolicyConfig
	Logger LoggerConfig
	Loader LoaderConfig
}

type DataConfig struct {
	Dir              string
	SpendFile        string
	EventsFile       string
	MarketingRevFile string
	FinanceRevFile   string
}

func (d DataConfig) SpendPath() string {
	return filepath.Join(d.Dir, d.SpendFile)
}

func (d DataConfig) EventsPath() string {
	return filepath.Join(d.Dir, d.EventsFile)
}

func (d DataConfig) MarketingRevPath() string {
	return filepath.Join(d.Dir, d.MarketingRevFile)
}

func (d DataConfig) FinanceRevPath() string {
	return filepath.Join(d.Dir, d.FinanceRevFile)
}

type OutputConfig struct {
	Format   string
	File     string
	HTMLFile string
	CSVDir   string
	Charts   bool
}

type PolicyConfig struct {
	File string
}

type LoggerConfig struct {
	Level  string
	Format string
}

type LoaderConfig struct {
	Timeout      time.Duration
	WarnFirst    int
	WarnInterval time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Data: DataConfig{
			Dir:              getEnvString("AUDIT_DATA_DIR", "data"),
			SpendFile:        getEnvString("AUDIT_SPEND_FILE", "marketing_spend.csv"),
			EventsFile:       getEnvString("AUDIT_EVENTS_FILE", "funnel_events.csv"),
			MarketingRevFile: getEnvString("AUDIT_MARKETING_REVENUE_FILE", "revenue_marketing.csv"),
			FinanceRevFile:   getEnvString("AUDIT_FINANCE_REVENUE_FILE", "revenue_finance.csv"),
		},
		Output: OutputConfig{
			Format:   getEnvString("AUDIT_OUTPUT_FORMAT", "text"),
			File:     getEnvString("AUDIT_OUTPUT_FILE", ""),
			HTMLFile: getEnvString("AUDIT_HTML_FILE", ""),
			CSVDir:   getEnvString("AUDIT_CSV_DIR", ""),
			Charts:   getEnvBool("AUDIT_CHARTS", false),
		},
		Policy: PolicyConfig{
			File: getEnvString("AUDIT_POLICY_FILE", ""),
		},
		Logger: LoggerConfig{
			Level:  getEnvString("LOG_LEVEL", "info"),
			Format: getEnvString("LOG_FORMAT", "json"),
		},
		Loader: LoaderConfig{
			Timeout:      getEnvDuration("AUDIT_LOAD_TIMEOUT", 2*time.Minute),
			WarnFirst:    getEnvInt("AUDIT_WARN_FIRST", 5),
			WarnInterval: getEnvDuration("AUDIT_WARN_INTERVAL", 2*time.Second),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate is re-run by the CLI after flag overrides are applied on top of
// the environment values.
func (c *Config) Validate() error {
	if c.Data.Dir == "" {
		return fmt.Errorf("data directory cannot be empty")
	}

	if c.Data.SpendFile == "" || c.Data.EventsFile == "" || c.Data.MarketingRevFile == "" || c.Data.FinanceRevFile == "" {
		return fmt.Errorf("table file names cannot be empty")
	}

	validFormats := []string{"text", "json"}
	if !contains(validFormats, c.Output.Format) {
		return fmt.Errorf("invalid output format %q, must be one of: %s", c.Output.Format, strings.Join(validFormats, ", "))
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, c.Logger.Level) {
		return fmt.Errorf("invalid log level %q, must be one of: %s", c.Logger.Level, strings.Join(validLogLevels, ", "))
	}

	validLogFormats := []string{"json", "text"}
	if !contains(validLogFormats, c.Logger.Format) {
		return fmt.Errorf("invalid log format %q, must be one of: %s", c.Logger.Format, strings.Join(validLogFormats, ", "))
	}

	if c.Loader.Timeout <= 0 {
		return fmt.Errorf("loader timeout must be positive")
	}

	if c.Loader.WarnFirst < 1 {
		return fmt.Errorf("loader warn-first must be at least 1")
	}

	if c.Loader.WarnInterval <= 0 {
		return fmt.Errorf("loader warn interval must be positive")
	}

	return nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

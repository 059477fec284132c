package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Backends accepted by DATA_BACKEND.
var validBackends = []string{"csv", "sqlite", "memory", "sheets"}

// Savings modes accepted by SAVINGS_MODE.
var validSavingsModes = []string{"manual", "derived"}

type Config struct {
	// HTTP Server
	Port         string
	RateLimitRPM int

	// Logging
	LogLevel  string
	LogFormat string

	// Backend selection
	DataBackend   string
	LedgerCSVPath string
	SQLiteDBPath  string

	// Ledger cache
	CacheSize int
	CacheTTL  time.Duration

	// Savings
	SavingsMode string
	SavingsFile string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets
	GoogleSpreadsheetID       string
	GoogleSheetName           string
	GoogleServiceAccountJSON  string
	GoogleServiceAccountFile  string
	GoogleApplicationCredFile string

	// Mirror worker
	MirrorInterval time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8081")
	v.SetDefault("RATE_LIMIT_RPM", 60)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("DATA_BACKEND", "csv")
	v.SetDefault("LEDGER_CSV_PATH", "./data/transactions.csv")
	v.SetDefault("SQLITE_DB_PATH", "./data/budget.db")
	v.SetDefault("CACHE_SIZE", 16)
	v.SetDefault("CACHE_TTL", "10m")
	v.SetDefault("SAVINGS_MODE", "manual")
	v.SetDefault("SAVINGS_FILE", "")
	v.SetDefault("AMQP_URL", "")
	v.SetDefault("AMQP_EXCHANGE", "budget")
	v.SetDefault("AMQP_QUEUE", "ledger_changed")
	v.SetDefault("GOOGLE_SPREADSHEET_ID", "")
	v.SetDefault("GOOGLE_SHEET_NAME", "Transactions")
	v.SetDefault("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	v.SetDefault("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	v.SetDefault("GOOGLE_APPLICATION_CREDENTIALS", "")
	v.SetDefault("MIRROR_INTERVAL", "5m")
}

// Load reads the configuration from the environment. The .env file, if any,
// must already have been loaded by the caller.
func Load() *Config {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	return fromViper(v)
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Port:         strings.TrimSpace(v.GetString("PORT")),
		RateLimitRPM: v.GetInt("RATE_LIMIT_RPM"),

		LogLevel:  strings.ToLower(strings.TrimSpace(v.GetString("LOG_LEVEL"))),
		LogFormat: strings.ToLower(strings.TrimSpace(v.GetString("LOG_FORMAT"))),

		DataBackend:   strings.ToLower(strings.TrimSpace(v.GetString("DATA_BACKEND"))),
		LedgerCSVPath: v.GetString("LEDGER_CSV_PATH"),
		SQLiteDBPath:  v.GetString("SQLITE_DB_PATH"),

		CacheSize: v.GetInt("CACHE_SIZE"),
		CacheTTL:  v.GetDuration("CACHE_TTL"),

		SavingsMode: strings.ToLower(strings.TrimSpace(v.GetString("SAVINGS_MODE"))),
		SavingsFile: v.GetString("SAVINGS_FILE"),

		AMQPURL:      v.GetString("AMQP_URL"),
		AMQPExchange: v.GetString("AMQP_EXCHANGE"),
		AMQPQueue:    v.GetString("AMQP_QUEUE"),

		GoogleSpreadsheetID:       v.GetString("GOOGLE_SPREADSHEET_ID"),
		GoogleSheetName:           v.GetString("GOOGLE_SHEET_NAME"),
		GoogleServiceAccountJSON:  v.GetString("GOOGLE_SERVICE_ACCOUNT_JSON"),
		GoogleServiceAccountFile:  v.GetString("GOOGLE_SERVICE_ACCOUNT_FILE"),
		GoogleApplicationCredFile: v.GetString("GOOGLE_APPLICATION_CREDENTIALS"),

		MirrorInterval: v.GetDuration("MIRROR_INTERVAL"),
	}
}

// HasSheetsCredentials reports whether any service account source is set.
func (c *Config) HasSheetsCredentials() bool {
	return c.GoogleServiceAccountJSON != "" || c.GoogleServiceAccountFile != "" || c.GoogleApplicationCredFile != ""
}

// MirrorEnabled reports whether the Sheets mirror has somewhere to write.
func (c *Config) MirrorEnabled() bool {
	return c.GoogleSpreadsheetID != "" && c.HasSheetsCredentials()
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'json' or 'text'", c.LogFormat))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case "csv":
		if c.LedgerCSVPath == "" {
			errors = append(errors, "ledger CSV path cannot be empty when using csv backend")
		}
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if info, err := os.Stat(dir); err == nil && !info.IsDir() {
				errors = append(errors, fmt.Sprintf("SQLite database directory '%s' is not a directory", dir))
			}
		}
	case "sheets":
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
		}
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when using sheets backend")
		}
		if !c.HasSheetsCredentials() {
			errors = append(errors, "one of GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_APPLICATION_CREDENTIALS must be provided for sheets backend")
		}
	}

	if c.GoogleServiceAccountFile != "" {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}

	if c.CacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid cache size %d: must be at least 1", c.CacheSize))
	}
	if c.CacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must not be negative", c.CacheTTL))
	}
	if c.RateLimitRPM < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitRPM))
	}

	if !slices.Contains(validSavingsModes, c.SavingsMode) {
		errors = append(errors, fmt.Sprintf("invalid savings mode '%s': must be one of %v", c.SavingsMode, validSavingsModes))
	}
	if c.SavingsFile != "" {
		if _, err := os.Stat(c.SavingsFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("savings file does not exist: %s", c.SavingsFile))
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.MirrorInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid mirror interval %v: must be at least 1 second", c.MirrorInterval))
	} else if c.MirrorInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid mirror interval %v: must be at most 24 hours", c.MirrorInterval))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

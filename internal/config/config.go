package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	// HTTP Server
	Port string

	// Database
	SQLiteDBPath string

	// AMQP, disabled when AMQPURL is empty
	AMQPURL         string
	AMQPExchange    string
	AMQPIngestQueue string
	AMQPSyncQueue   string

	// Telegram, disabled when the token is empty
	TelegramBotToken  string
	TelegramProxy     string
	TelegramProxyUser string
	TelegramProxyPass string

	// Google Sheets ledger export
	GoogleSpreadsheetID   string
	GoogleLedgerSheetName string

	// Worker
	SyncBatchSize int
	SyncInterval  time.Duration

	// Sessions
	SessionMax     int
	SessionIdleTTL time.Duration

	// Domain
	AmountThreshold string
	LedgerTimezone  string
	CatalogFile     string

	LogLevel string
}

func Load() *Config {
	cfg := &Config{
		Port:         getEnv("PORT", "8082"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/stripbot.db"),

		AMQPURL:         getEnv("AMQP_URL", ""),
		AMQPExchange:    getEnv("AMQP_EXCHANGE", "stripbot"),
		AMQPIngestQueue: getEnv("AMQP_INGEST_QUEUE", "ingest_messages"),
		AMQPSyncQueue:   getEnv("AMQP_SYNC_QUEUE", "sync_ledger"),

		TelegramBotToken:  getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramProxy:     getEnv("TELEGRAM_PROXY_SOCKS5", ""),
		TelegramProxyUser: getEnv("TELEGRAM_PROXY_USER", ""),
		TelegramProxyPass: getEnv("TELEGRAM_PROXY_PASS", ""),

		GoogleSpreadsheetID:   getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleLedgerSheetName: getEnv("GOOGLE_LEDGER_SHEET_NAME", "Ledger"),

		SyncBatchSize: getEnvInt("SYNC_BATCH_SIZE", 10),
		SyncInterval:  getEnvDuration("SYNC_INTERVAL", 30*time.Second),

		SessionMax:     getEnvInt("SESSION_MAX", 10000),
		SessionIdleTTL: getEnvDuration("SESSION_IDLE_TTL", 7*24*time.Hour),

		AmountThreshold: getEnv("AMOUNT_THRESHOLD", "50"),
		LedgerTimezone:  getEnv("LEDGER_TIMEZONE", "Asia/Kathmandu"),
		CatalogFile:     getEnv("CATALOG_FILE", ""),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	} else {
		// Check if directory exists or can be created
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPIngestQueue == "" || c.AMQPSyncQueue == "" {
			errors = append(errors, "AMQP ingest and sync queue names cannot be empty when AMQP URL is provided")
		} else if c.AMQPIngestQueue == c.AMQPSyncQueue {
			errors = append(errors, fmt.Sprintf("AMQP ingest and sync queues must differ, both are '%s'", c.AMQPSyncQueue))
		}
	}

	if c.TelegramProxy != "" && !strings.Contains(c.TelegramProxy, ":") {
		errors = append(errors, fmt.Sprintf("invalid Telegram proxy '%s': must be host:port", c.TelegramProxy))
	}

	if c.GoogleSpreadsheetID != "" && c.GoogleLedgerSheetName == "" {
		errors = append(errors, "Google ledger sheet name is required when a spreadsheet ID is set")
	}

	// Validate worker configuration
	if c.SyncBatchSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid sync batch size %d: must be at least 1", c.SyncBatchSize))
	} else if c.SyncBatchSize > 1000 {
		errors = append(errors, fmt.Sprintf("invalid sync batch size %d: must be at most 1000", c.SyncBatchSize))
	}

	if c.SessionMax < 1 {
		errors = append(errors, fmt.Sprintf("invalid session max %d: must be at least 1", c.SessionMax))
	}
	if c.SessionIdleTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session idle TTL %v: must be at least 1 minute", c.SessionIdleTTL))
	}

	if c.SyncInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}

	if _, err := decimal.NewFromString(c.AmountThreshold); err != nil {
		errors = append(errors, fmt.Sprintf("invalid amount threshold '%s': must be a decimal number", c.AmountThreshold))
	}

	if _, err := time.LoadLocation(c.LedgerTimezone); err != nil {
		errors = append(errors, fmt.Sprintf("invalid ledger timezone '%s': %v", c.LedgerTimezone, err))
	}

	if c.CatalogFile != "" {
		if _, err := os.Stat(c.CatalogFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("catalog file does not exist: %s", c.CatalogFile))
		}
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// Threshold is the parsed AMOUNT_THRESHOLD. Call after Validate.
func (c *Config) Threshold() decimal.Decimal {
	d, err := decimal.NewFromString(c.AmountThreshold)
	if err != nil {
		return decimal.NewFromInt(50)
	}
	return d
}

// Location is the ledger time zone, UTC when it cannot be loaded.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.LedgerTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	BackendMemory = "memory"
	BackendSheets = "sheets"
	BackendSQLite = "sqlite"
)

// Backends lists the supported values of DATA_BACKEND.
func Backends() []string { return []string{BackendMemory, BackendSheets, BackendSQLite} }

type Config struct {
	// HTTP Server
	Port          string `mapstructure:"port"`
	SecureCookies bool   `mapstructure:"secure_cookies"`

	// Backend selection
	DataBackend string `mapstructure:"data_backend"`
	DataDir     string `mapstructure:"data_dir"`

	// Database
	SQLiteDBPath string `mapstructure:"sqlite_db_path"`

	// AMQP
	AMQPURL      string `mapstructure:"amqp_url"`
	AMQPExchange string `mapstructure:"amqp_exchange"`
	AMQPQueue    string `mapstructure:"amqp_queue"`

	// Google Sheets
	GoogleSpreadsheetID       string `mapstructure:"google_spreadsheet_id"`
	GoogleTransactionsSheet   string `mapstructure:"google_transactions_sheet"`
	GoogleBillsSheet          string `mapstructure:"google_bills_sheet"`
	GoogleServiceAccountFile  string `mapstructure:"google_service_account_file"`
	GoogleServiceAccountJSON  string `mapstructure:"google_service_account_json"`

	// Auth
	AuthUsers  string        `mapstructure:"auth_users"`
	SessionTTL time.Duration `mapstructure:"session_ttl"`

	// Worker
	SyncBatchSize int           `mapstructure:"sync_batch_size"`
	SyncInterval  time.Duration `mapstructure:"sync_interval"`

	LogLevel string `mapstructure:"log_level"`
}

var defaults = map[string]any{
	"port":           "8081",
	"secure_cookies": false,

	"data_backend": BackendMemory,
	"data_dir":     "data",

	"sqlite_db_path": "./data/budget.db",

	"amqp_url":      "",
	"amqp_exchange": "budget",
	"amqp_queue":    "sync_rows",

	"google_spreadsheet_id":       "",
	"google_transactions_sheet":   "Transactions",
	"google_bills_sheet":          "Bills",
	"google_service_account_file": "",
	"google_service_account_json": "",

	"auth_users":  "",
	"session_ttl": 12 * time.Hour,

	"sync_batch_size": 50,
	"sync_interval":   30 * time.Second,

	"log_level": "info",
}

// Load reads the configuration from the environment. Keys are the
// upper-case field names (PORT, DATA_BACKEND, ...). When BUDGET_CONFIG
// names a file (TOML, YAML or JSON) its values sit between the defaults
// and the environment.
func Load() (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if path := os.Getenv("BUDGET_CONFIG"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.DataBackend = strings.ToLower(strings.TrimSpace(cfg.DataBackend))
	return &cfg, nil
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

	// Validate data backend
	isValidBackend := false
	for _, backend := range Backends() {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, Backends()))
	}

	if c.DataBackend == BackendSQLite {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
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

	// Google Sheets is the primary store for the sheets backend and the
	// sync target for sqlite.
	if c.DataBackend == BackendSheets {
		errors = append(errors, c.validateGoogle()...)
	}

	if strings.TrimSpace(c.AuthUsers) == "" {
		errors = append(errors, "AUTH_USERS must list at least one user as name:hash")
	}
	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	}

	// Validate worker configuration
	if c.SyncBatchSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid sync batch size %d: must be at least 1", c.SyncBatchSize))
	} else if c.SyncBatchSize > 1000 {
		errors = append(errors, fmt.Sprintf("invalid sync batch size %d: must be at most 1000", c.SyncBatchSize))
	}

	if c.SyncInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// ValidateWorker checks what the sync worker needs on top of Validate's
// common checks: a SQLite outbox, an AMQP broker and a Sheets target.
func (c *Config) ValidateWorker() error {
	var errors []string
	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLITE_DB_PATH is required by the sync worker")
	}
	if c.AMQPURL == "" {
		errors = append(errors, "AMQP_URL is required by the sync worker")
	}
	errors = append(errors, c.validateGoogle()...)
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func (c *Config) validateGoogle() []string {
	var errors []string
	if c.GoogleSpreadsheetID == "" {
		errors = append(errors, "Google Spreadsheet ID is required when using Google Sheets")
	}
	if c.GoogleTransactionsSheet == "" || c.GoogleBillsSheet == "" {
		errors = append(errors, "Google sheet names for transactions and bills cannot be empty")
	}
	if c.GoogleServiceAccountFile != "" {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}
	return errors
}

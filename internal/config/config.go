package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage drivers accepted by STORAGE_DRIVER.
const (
	DriverMemory  = "memory"
	DriverSQLite  = "sqlite"
	DriverMongoDB = "mongodb"
)

// Config represents the full application configuration surface.
type Config struct {
	Server   ServerConfig
	Log      LogConfig
	Storage  StorageConfig
	Schedule ScheduleConfig
	Catalog  CatalogConfig
	WhatsApp WhatsAppConfig
	Sheets   SheetsConfig
	Export   ExportConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port string
}

// LogConfig selects the zap level.
type LogConfig struct {
	Level string
}

// StorageConfig selects and configures the persistence backend.
type StorageConfig struct {
	Driver     string
	SQLitePath string
	MongoDB    MongoDBConfig
}

// MongoDBConfig holds settings for MongoDB.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// ScheduleConfig holds the cron expressions of the periodic jobs.
type ScheduleConfig struct {
	MonitorCron string
	ReportCron  string
	Timezone    string
}

// Location resolves Timezone.
func (s ScheduleConfig) Location() (*time.Location, error) {
	return time.LoadLocation(s.Timezone)
}

// CatalogConfig toggles first-run seeding.
type CatalogConfig struct {
	SeedOnStart bool
}

// WhatsAppConfig contains credentials and options for the Meta WhatsApp Cloud API.
type WhatsAppConfig struct {
	AccessToken   string
	PhoneNumberID string
	VerifyToken   string
	BaseURL       string
	APIVersion    string
	NotifyTo      string
}

// Enabled reports whether a token was supplied.
func (w WhatsAppConfig) Enabled() bool {
	return w.AccessToken != ""
}

// SheetsConfig contains configuration required to export to Google Sheets.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
	BatchRange      string
}

// Enabled reports whether a spreadsheet was configured.
func (s SheetsConfig) Enabled() bool {
	return s.CredentialsPath != "" || s.SpreadsheetID != ""
}

// ExportConfig configures the S3 archive for exports.
type ExportConfig struct {
	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3PathStyle bool
	S3Prefix    string
}

// ArchiveEnabled reports whether exports are archived to S3.
func (e ExportConfig) ArchiveEnabled() bool {
	return e.S3Bucket != ""
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Missing .env files are fine when configuration comes from the environment.
		_ = godotenv.Load()
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getenvWithDefault("APP_PORT", "8080"),
		},
		Log: LogConfig{
			Level: getenvWithDefault("LOG_LEVEL", "info"),
		},
		Storage: StorageConfig{
			Driver:     strings.ToLower(getenvWithDefault("STORAGE_DRIVER", DriverSQLite)),
			SQLitePath: getenvWithDefault("SQLITE_PATH", "hatchery.db"),
			MongoDB: MongoDBConfig{
				URI:    os.Getenv("MONGODB_URI"),
				DBName: getenvWithDefault("MONGODB_DB_NAME", "hatchery"),
			},
		},
		Schedule: ScheduleConfig{
			MonitorCron: getenvWithDefault("MONITOR_CRON_SCHEDULE", "0 */12 * * *"),
			ReportCron:  getenvWithDefault("REPORT_CRON_SCHEDULE", "0 20 * * 5"),
			Timezone:    getenvWithDefault("TIMEZONE", "UTC"),
		},
		Catalog: CatalogConfig{
			SeedOnStart: getenvBool("CATALOG_SEED_ON_START", true),
		},
		WhatsApp: WhatsAppConfig{
			AccessToken:   os.Getenv("WHATSAPP_TOKEN"),
			PhoneNumberID: os.Getenv("WHATSAPP_PHONE_NUMBER_ID"),
			VerifyToken:   os.Getenv("META_VERIFY_TOKEN"),
			BaseURL:       getenvWithDefault("WHATSAPP_BASE_URL", "https://graph.facebook.com"),
			APIVersion:    getenvWithDefault("WHATSAPP_API_VERSION", "v20.0"),
			NotifyTo:      os.Getenv("WHATSAPP_NOTIFY_TO"),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_DATABASE_ID"),
			BatchRange:      getenvWithDefault("GOOGLE_SHEET_BATCH_RANGE", "Batches!A:F"),
		},
		Export: ExportConfig{
			S3Bucket:    os.Getenv("EXPORT_S3_BUCKET"),
			S3Region:    getenvWithDefault("EXPORT_S3_REGION", "us-east-1"),
			S3Endpoint:  os.Getenv("EXPORT_S3_ENDPOINT"),
			S3PathStyle: getenvBool("EXPORT_S3_PATH_STYLE", false),
			S3Prefix:    getenvWithDefault("EXPORT_S3_PREFIX", "exports/"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated and consistent.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	switch c.Storage.Driver {
	case DriverMemory:
	case DriverSQLite:
		if c.Storage.SQLitePath == "" {
			return errors.New("SQLITE_PATH must be provided for the sqlite driver")
		}
	case DriverMongoDB:
		if c.Storage.MongoDB.URI == "" {
			return errors.New("MONGODB_URI must be provided for the mongodb driver")
		}
		if c.Storage.MongoDB.DBName == "" {
			return errors.New("MONGODB_DB_NAME must not be empty")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage.Driver)
	}

	if c.Schedule.MonitorCron == "" {
		return errors.New("MONITOR_CRON_SCHEDULE must be provided")
	}
	if c.Schedule.ReportCron == "" {
		return errors.New("REPORT_CRON_SCHEDULE must be provided")
	}
	if _, err := c.Schedule.Location(); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Schedule.Timezone, err)
	}

	if c.WhatsApp.Enabled() {
		switch {
		case c.WhatsApp.PhoneNumberID == "":
			return errors.New("WHATSAPP_PHONE_NUMBER_ID must be provided")
		case c.WhatsApp.VerifyToken == "":
			return errors.New("META_VERIFY_TOKEN must be provided")
		case c.WhatsApp.BaseURL == "":
			return errors.New("WHATSAPP_BASE_URL must not be empty")
		case c.WhatsApp.APIVersion == "":
			return errors.New("WHATSAPP_API_VERSION must not be empty")
		}
	}

	if c.Sheets.Enabled() {
		if c.Sheets.CredentialsPath == "" {
			return errors.New("GOOGLE_SHEETS_CREDENTIALS_PATH must be provided")
		}
		if c.Sheets.SpreadsheetID == "" {
			return errors.New("GOOGLE_SHEET_DATABASE_ID must be provided")
		}
	}

	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendSQLite = "sqlite"
	BackendSheets = "sheets"
)

type AppConfig struct {
	Port     string
	LogLevel string

	// Tabular store
	StoreBackend          string
	DatabasePath          string
	SpreadsheetID         string
	GoogleCredentialsPath string
	TransactionSheet      string
	SummarySheet          string
	SalesSheet            string

	// Timestamps are written and interpreted in this location.
	Timezone string

	ReportCacheTTL    time.Duration
	ReconcileInterval time.Duration // 0 disables the periodic reconciliation pass

	AllowedOrigins []string
	RateLimitRPS   float64
	RateLimitBurst int
	MetricsEnabled bool
}

var Cfg *AppConfig

func LoadConfig() {
	errEnv := godotenv.Load()
	if errEnv != nil {
		log.Println("Info: No .env file found or error loading .env file. Relying on OS environment variables and defaults. Error (if any):", errEnv)
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading application configuration...")

	rps, err := strconv.ParseFloat(getEnv("RATE_LIMIT_RPS", "10"), 64)
	if err != nil || rps <= 0 {
		log.Printf("WARNING: Invalid RATE_LIMIT_RPS. Using default 10. Error: %v", err)
		rps = 10
	}

	Cfg = &AppConfig{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		StoreBackend:          strings.ToLower(getEnv("STORE_BACKEND", BackendSQLite)),
		DatabasePath:          getEnv("DATABASE_PATH", "./painthouse.db"),
		SpreadsheetID:         getEnv("SPREADSHEET_ID", ""),
		GoogleCredentialsPath: getEnv("GOOGLE_CREDENTIALS_PATH", "credentials.json"),
		TransactionSheet:      getEnv("TRANSACTION_SHEET", "Transaction History"),
		SummarySheet:          getEnv("SUMMARY_SHEET", "Inventory Summary"),
		SalesSheet:            getEnv("SALES_SHEET", "Sales Summary"),

		Timezone: getEnv("TIMEZONE", "Asia/Kolkata"),

		ReportCacheTTL:    getEnvAsDuration("REPORT_CACHE_TTL", time.Minute),
		ReconcileInterval: getEnvAsDuration("RECONCILE_INTERVAL", 0),

		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000")),
		RateLimitRPS:   rps,
		RateLimitBurst: getEnvAsInt("RATE_LIMIT_BURST", 30),
		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
	}

	log.Printf("Configuration loaded: Port=%s, LogLevel=%s, Store=%s, DBPath=%s",
		Cfg.Port, Cfg.LogLevel, Cfg.StoreBackend, Cfg.DatabasePath)
}

// Validate reports configuration that cannot work at all.
func (c *AppConfig) Validate() error {
	var errs []error
	switch c.StoreBackend {
	case BackendSQLite:
		if c.DatabasePath == "" {
			errs = append(errs, errors.New("DATABASE_PATH is required for the sqlite store"))
		}
	case BackendSheets:
		if c.SpreadsheetID == "" {
			errs = append(errs, errors.New("SPREADSHEET_ID is required when STORE_BACKEND is 'sheets'"))
		}
		if c.GoogleCredentialsPath == "" {
			errs = append(errs, errors.New("GOOGLE_CREDENTIALS_PATH is required when STORE_BACKEND is 'sheets'"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_BACKEND %q (want %q or %q)", c.StoreBackend, BackendSQLite, BackendSheets))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err))
	}
	if c.RateLimitBurst < 1 {
		errs = append(errs, errors.New("RATE_LIMIT_BURST must be at least 1"))
	}
	return errors.Join(errs...)
}

// Location returns the configured timezone, or UTC if it cannot be loaded.
func (c *AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Environment variable %s not set, using default: %s", key, fallback)
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid integer value for %s ('%s'), using default: %d", key, valueStr, fallback)
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid duration value for %s ('%s'), using default: %s", key, valueStr, fallback.String())
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid boolean value for %s ('%s'), using default: %t", key, valueStr, fallback)
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

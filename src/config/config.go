package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	Port               string
	DatabasePath       string
	LogLevel           string
	UserIDHeader       string // set by the authenticating gateway in front of this service
	AllowedOrigin      string
	MaxImportSizeBytes int64
	ReportCacheExpiry  time.Duration
	ReportCacheCleanup time.Duration
}

var Cfg *AppConfig

func LoadConfig() {
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found or error loading .env file. Relying on OS environment variables and defaults. Error (if any):", err)
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading application configuration...")

	maxImportSizeStr := getEnv("MAX_IMPORT_SIZE_BYTES", "5242880")
	maxImportSize, err := strconv.ParseInt(maxImportSizeStr, 10, 64)
	if err != nil {
		log.Printf("WARNING: Invalid MAX_IMPORT_SIZE_BYTES format '%s'. Using default 5MB. Error: %v", maxImportSizeStr, err)
		maxImportSize = 5 * 1024 * 1024
	}

	Cfg = &AppConfig{
		Port:               getEnv("PORT", "8080"),
		DatabasePath:       getEnv("DATABASE_PATH", "./finvault.db"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		UserIDHeader:       getEnv("USER_ID_HEADER", "X-User-Id"),
		AllowedOrigin:      getEnv("ALLOWED_ORIGIN", "http://localhost:3000"),
		MaxImportSizeBytes: maxImportSize,
		ReportCacheExpiry:  getEnvAsDuration("REPORT_CACHE_EXPIRY", 15*time.Minute),
		ReportCacheCleanup: getEnvAsDuration("REPORT_CACHE_CLEANUP", 30*time.Minute),
	}

	log.Printf("Configuration loaded: Port=%s, LogLevel=%s, DBPath=%s",
		Cfg.Port, Cfg.LogLevel, Cfg.DatabasePath)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Environment variable %s not set, using default: %s", key, fallback)
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

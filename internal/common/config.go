package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Storage  StorageConfig
	OCR      OCRConfig
	Auth     AuthConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver          string // "postgres" or "sqlite"
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
	HealthTimeout   time.Duration
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr            string
	MaxUploadBytes  int64
	ShutdownTimeout time.Duration
}

// StorageConfig holds object-store configuration
type StorageConfig struct {
	BaseDir    string
	SignSecret string
	SignTTL    time.Duration
}

// OCRConfig holds OCR backend configuration. Credentials come from the
// environment only; they are never hard-coded and never logged.
type OCRConfig struct {
	VisionAPIKey   string
	VisionEndpoint string
	ClovaURL       string
	ClovaSecret    string
	GeminiAPIKey   string
	GeminiModel    string
	Timeout        time.Duration
}

// AuthConfig holds the caller credential table.
// Format: "key1:userUUID1,key2:userUUID2".
type AuthConfig struct {
	APIKeys string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:          getEnv("DB_DRIVER", "postgres"),
			DSN:             getEnv("DB_URL", ""),
			MaxConns:        getEnvAsInt32("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt32("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:     getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			HealthTimeout:   getEnvAsDuration("DB_HEALTH_TIMEOUT", 3*time.Second),
		},
		Server: ServerConfig{
			Addr:            getEnv("HTTP_ADDR", ":8080"),
			MaxUploadBytes:  getEnvAsInt64("MAX_UPLOAD_BYTES", 20<<20),
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Storage: StorageConfig{
			BaseDir:    getEnv("STORAGE_DIR", "./data/receipts"),
			SignSecret: getEnv("URL_SIGN_SECRET", ""),
			SignTTL:    getEnvAsDuration("URL_SIGN_TTL", 5*time.Minute),
		},
		OCR: OCRConfig{
			VisionAPIKey:   getEnv("GOOGLE_VISION_API_KEY", ""),
			VisionEndpoint: getEnv("GOOGLE_VISION_ENDPOINT", "https://vision.googleapis.com/v1/images:annotate"),
			ClovaURL:       getEnv("CLOVA_OCR_URL", ""),
			ClovaSecret:    getEnv("CLOVA_OCR_SECRET", ""),
			GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
			GeminiModel:    getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
			Timeout:        getEnvAsDuration("OCR_TIMEOUT", 30*time.Second),
		},
		Auth: AuthConfig{
			APIKeys: getEnv("API_KEYS", ""),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	if c.Database.Driver != "postgres" && c.Database.Driver != "sqlite" {
		return NewAppError("CONFIG_ERROR", "DB_DRIVER must be postgres or sqlite", ErrInvalidInput)
	}
	if c.Server.Addr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrInvalidInput)
	}
	if c.Storage.SignSecret == "" {
		return NewAppError("CONFIG_ERROR", "URL_SIGN_SECRET is required", ErrInvalidInput)
	}
	if c.Auth.APIKeys == "" {
		return NewAppError("CONFIG_ERROR", "API_KEYS is required", ErrInvalidInput)
	}
	return nil
}

// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Model store backends.
const (
	ModelStoreFile  = "file"
	ModelStoreRedis = "redis"
	ModelStoreS3    = "s3"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port        string
	Env         string // "development", "staging", "production"
	LogLevel    string
	LogFormat   string // "json" or "text"
	CORSOrigins []string

	// Tables
	DataDir     string
	DatabaseURL string // PostgreSQL connection string (optional, uses CSV files in DataDir if not set)

	// Model artifacts
	ModelStore      string // file, redis or s3
	ModelsDir       string
	RedisURL        string
	S3Bucket        string
	S3Region        string
	S3Endpoint      string
	S3Prefix        string
	MinTrainingRows int

	// Throttling of POST /predict; 0 disables it
	PredictRateLimit int
	PredictBurst     int

	// Tracing
	OTLPEndpoint string

	// MCP client
	APIURL string
}

const (
	DefaultPort            = "8080"
	DefaultEnv             = "development"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "json"
	DefaultDataDir         = "./data"
	DefaultModelsDir       = "./models"
	DefaultS3Region        = "us-east-1"
	DefaultMinTrainingRows = 30
	DefaultAPIURL          = "http://localhost:8080"
	DefaultPredictRate     = 120
	DefaultPredictBurst    = 20
)

// Load reads configuration from environment variables
// It loads .env file if present (for local development)
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Port:             getEnv("PORT", DefaultPort),
		Env:              getEnv("ENV", DefaultEnv),
		LogLevel:         getEnv("LOG_LEVEL", DefaultLogLevel),
		LogFormat:        getEnv("LOG_FORMAT", DefaultLogFormat),
		CORSOrigins:      splitList(getEnv("CORS_ORIGINS", "*")),
		DataDir:          getEnv("DATA_DIR", DefaultDataDir),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		ModelStore:       strings.ToLower(getEnv("MODEL_STORE", ModelStoreFile)),
		ModelsDir:        getEnv("MODELS_DIR", DefaultModelsDir),
		RedisURL:         os.Getenv("REDIS_URL"),
		S3Bucket:         os.Getenv("S3_BUCKET"),
		S3Region:         getEnv("S3_REGION", DefaultS3Region),
		S3Endpoint:       os.Getenv("S3_ENDPOINT"),
		S3Prefix:         os.Getenv("S3_PREFIX"),
		MinTrainingRows:  int(getEnvInt64("MIN_TRAINING_ROWS", DefaultMinTrainingRows)),
		PredictRateLimit: int(getEnvInt64("PREDICT_RATE_LIMIT_RPM", DefaultPredictRate)),
		PredictBurst:     int(getEnvInt64("PREDICT_RATE_BURST", DefaultPredictBurst)),
		OTLPEndpoint:     os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		APIURL:           getEnv("SELLERRISK_API_URL", DefaultAPIURL),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the selected backends have the settings they need
func (c *Config) Validate() error {
	switch c.ModelStore {
	case ModelStoreFile:
		if c.ModelsDir == "" {
			return fmt.Errorf("MODELS_DIR is required for the file model store")
		}
	case ModelStoreRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when MODEL_STORE=redis")
		}
	case ModelStoreS3:
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required when MODEL_STORE=s3")
		}
	default:
		return fmt.Errorf("unknown MODEL_STORE %q (want file, redis or s3)", c.ModelStore)
	}

	if c.DatabaseURL == "" && c.DataDir == "" {
		return fmt.Errorf("DATA_DIR is required when DATABASE_URL is not set")
	}

	if c.PredictRateLimit < 0 || c.PredictBurst < 0 {
		return fmt.Errorf("PREDICT_RATE_LIMIT_RPM and PREDICT_RATE_BURST must not be negative")
	}

	if c.MinTrainingRows < 2 {
		return fmt.Errorf("MIN_TRAINING_ROWS must be at least 2")
	}

	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
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

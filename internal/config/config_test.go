package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helper to set env vars and clean up after
func setEnv(t *testing.T, key, value string) {
	t.Helper()
	old := os.Getenv(key)
	os.Setenv(key, value)
	t.Cleanup(func() {
		if old == "" {
			os.Unsetenv(key)
		} else {
			os.Setenv(key, old)
		}
	})
}

func TestLoad_Defaults(t *testing.T) {
	setEnv(t, "MODEL_STORE", "")
	setEnv(t, "PORT", "9090")
	setEnv(t, "CORS_ORIGINS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, ModelStoreFile, cfg.ModelStore)
	assert.Equal(t, DefaultModelsDir, cfg.ModelsDir)
	assert.Equal(t, DefaultMinTrainingRows, cfg.MinTrainingRows)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, DefaultPredictRate, cfg.PredictRateLimit)
	assert.Equal(t, DefaultPredictBurst, cfg.PredictBurst)
}

func TestLoad_RedisRequiresURL(t *testing.T) {
	setEnv(t, "MODEL_STORE", "Redis")
	setEnv(t, "REDIS_URL", "")

	_, err := Load()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "REDIS_URL is required")
}

func TestLoad_CORSOrigins(t *testing.T) {
	setEnv(t, "MODEL_STORE", "")
	setEnv(t, "CORS_ORIGINS", "https://a.example, https://b.example,,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{ModelStore: ModelStoreFile, ModelsDir: "m", DataDir: "d", MinTrainingRows: 30}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid config", mutate: func(*Config) {}},
		{
			name:    "unknown model store",
			mutate:  func(c *Config) { c.ModelStore = "ftp" },
			wantErr: "unknown MODEL_STORE",
		},
		{
			name:    "s3 without bucket",
			mutate:  func(c *Config) { c.ModelStore = ModelStoreS3 },
			wantErr: "S3_BUCKET is required",
		},
		{
			name:   "s3 with bucket",
			mutate: func(c *Config) { c.ModelStore = ModelStoreS3; c.S3Bucket = "models" },
		},
		{
			name:    "redis without url",
			mutate:  func(c *Config) { c.ModelStore = ModelStoreRedis },
			wantErr: "REDIS_URL is required",
		},
		{
			name:    "no table source",
			mutate:  func(c *Config) { c.DataDir = "" },
			wantErr: "DATA_DIR is required",
		},
		{
			name:   "database without data dir",
			mutate: func(c *Config) { c.DataDir = ""; c.DatabaseURL = "postgres://localhost/risk" },
		},
		{
			name:    "negative rate limit",
			mutate:  func(c *Config) { c.PredictRateLimit = -1 },
			wantErr: "PREDICT_RATE_LIMIT_RPM",
		},
		{
			name:    "training rows too low",
			mutate:  func(c *Config) { c.MinTrainingRows = 1 },
			wantErr: "MIN_TRAINING_ROWS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestConfig_IsDevelopment(t *testing.T) {
	cfg := &Config{Env: "development"}
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())

	cfg.Env = "production"
	assert.False(t, cfg.IsDevelopment())
	assert.True(t, cfg.IsProduction())
}

func TestGetEnv(t *testing.T) {
	setEnv(t, "TEST_VAR", "custom_value")

	assert.Equal(t, "custom_value", getEnv("TEST_VAR", "default"))
	assert.Equal(t, "default", getEnv("NONEXISTENT_VAR", "default"))
}

func TestGetEnvInt64(t *testing.T) {
	setEnv(t, "TEST_INT", "42")
	setEnv(t, "TEST_INVALID", "not_a_number")

	assert.Equal(t, int64(42), getEnvInt64("TEST_INT", 0))
	assert.Equal(t, int64(99), getEnvInt64("NONEXISTENT_VAR", 99))
	assert.Equal(t, int64(99), getEnvInt64("TEST_INVALID", 99)) // Falls back on parse error
}

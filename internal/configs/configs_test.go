package configs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"ENVIRONMENT", "PORT", "ALLOWED_ORIGINS", "JWT_SECRET", "STORE_BACKEND", "DATABASE_URL",
		"REDIS_URL", "DEFAULT_ROUND_MINUTES", "REMINDER_CONCURRENCY",
		"S3_BUCKET_NAME", "S3_ENDPOINT", "S3_REGION", "S3_ACCESS_KEY_ID", "S3_SECRET_ACCESS_KEY",
	} {
		t.Setenv(k, "")
	}
}

func TestDevelopmentDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, BackendMemory, cfg.StoreBackend)
	assert.Equal(t, 15, cfg.DefaultRoundMinutes)
	assert.NotEmpty(t, cfg.JWTSecret)
	assert.Empty(t, cfg.AllowedOrigins)
	assert.False(t, cfg.Storage().Enabled())
}

func TestProductionRequiresSecrets(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENVIRONMENT", "production")

	_, err := LoadConfig()
	assert.ErrorContains(t, err, "JWT_SECRET")

	t.Setenv("JWT_SECRET", "s3cret")
	_, err = LoadConfig()
	assert.ErrorContains(t, err, "DATABASE_URL")

	t.Setenv("STORE_BACKEND", "memory")
	_, err = LoadConfig()
	assert.Error(t, err)

	t.Setenv("STORE_BACKEND", "")
	t.Setenv("DATABASE_URL", "postgres://db/pt")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, BackendPostgres, cfg.StoreBackend)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}

func TestInvalidValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"PORT", "80"},
		{"PORT", "http"},
		{"DEFAULT_ROUND_MINUTES", "7"},
		{"DEFAULT_ROUND_MINUTES", "125"},
		{"STORE_BACKEND", "mongo"},
		{"S3_BUCKET_NAME", "bucket"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestStorageEnabled(t *testing.T) {
	clearEnv(t)
	t.Setenv("S3_BUCKET_NAME", "bucket")
	t.Setenv("S3_ENDPOINT", "https://s3.example")
	t.Setenv("S3_ACCESS_KEY_ID", "id")
	t.Setenv("S3_SECRET_ACCESS_KEY", "key")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.Storage().Enabled())
}

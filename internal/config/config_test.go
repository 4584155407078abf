package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_requiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "secret")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestLoad_requiresJWTSecret(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost/devbhakti")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoad_defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost/devbhakti")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("PORT", "")
	t.Setenv("OTP_DEV_MODE", "")
	t.Setenv("CORS_ORIGINS", "")
	t.Setenv("REDIS_URL", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "5000", cfg.Port)
	assert.False(t, cfg.OTPDevMode)
	assert.Equal(t, "123456", cfg.DefaultInstitutionPassword)
	assert.Equal(t, "uploads", cfg.UploadDir)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, "@every 15m", cfg.OTPSweepSchedule)
	assert.Empty(t, cfg.RedisURL)
}

func TestLoad_overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost/devbhakti")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("PORT", "8081")
	t.Setenv("OTP_DEV_MODE", "true")
	t.Setenv("CORS_ORIGINS", "https://devbhakti.in, http://localhost:3000,")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8081", cfg.Port)
	assert.True(t, cfg.OTPDevMode)
	assert.Equal(t, []string{"https://devbhakti.in", "http://localhost:3000"}, cfg.CORSOrigins)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestMaskedDatabaseURL(t *testing.T) {
	cfg := &Config{DatabaseURL: "postgres://admin:hunter2@db:5432/devbhakti?sslmode=disable"}
	masked := cfg.MaskedDatabaseURL()
	assert.NotContains(t, masked, "hunter2")
	assert.Contains(t, masked, "admin:")
	assert.Contains(t, masked, "db:5432/devbhakti")
}

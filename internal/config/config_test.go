package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"HTTP_PORT", "FMS_SHEET", "REFRESH_INTERVAL", "REDIS_DB", "MINIO_USE_SSL", "REDIS_ADDR"} {
		t.Setenv(k, "")
	}

	cfg := Load()

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "FMS", cfg.FMSSheet)
	assert.Equal(t, "Complaint-Form", cfg.ComplaintSheet)
	assert.Equal(t, 5*time.Minute, cfg.RefreshInterval)
	assert.Equal(t, 0, cfg.RedisDB)
	assert.False(t, cfg.MinIOUseSSL)
	assert.False(t, cfg.RedisEnabled())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("REFRESH_INTERVAL", "90s")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("ORACLE_USER", "scott")
	t.Setenv("ORACLE_CONNECTION_STRING", "db:1521/ORCL")

	cfg := Load()

	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.Equal(t, 90*time.Second, cfg.RefreshInterval)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.True(t, cfg.RedisEnabled())
	assert.True(t, cfg.MinIOUseSSL)
	assert.True(t, cfg.OracleEnabled())
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("REFRESH_INTERVAL", "soon")
	t.Setenv("REDIS_DB", "x")
	t.Setenv("MINIO_USE_SSL", "maybe")

	cfg := Load()

	assert.Equal(t, 5*time.Minute, cfg.RefreshInterval)
	assert.Equal(t, 0, cfg.RedisDB)
	assert.False(t, cfg.MinIOUseSSL)
}

func TestValidateServer(t *testing.T) {
	log := zap.NewNop()

	cfg := &Config{}
	assert.ErrorIs(t, cfg.ValidateServer(log), ErrMissingJWTSecret)

	cfg.JWTSecret = "short"
	assert.ErrorIs(t, cfg.ValidateServer(log), ErrShortJWTSecret)

	cfg.JWTSecret = strings.Repeat("s", 32)
	assert.ErrorIs(t, cfg.ValidateServer(log), ErrMissingScriptURL)

	cfg.ScriptURL = "https://script.google.com/macros/s/x/exec"
	assert.NoError(t, cfg.ValidateServer(log))
}

package common

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("SQLITE_PATH", ":memory:")

	cfg := LoadConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, int64(15<<20), cfg.Extract.MaxPDFBytes)
	assert.Equal(t, 50, cfg.Extract.MinTextChars)
	assert.Equal(t, 200, cfg.Extract.OCRDPI)
	assert.Equal(t, 2*time.Minute, cfg.Extract.CommandTimeout)
	assert.Equal(t, "llama-3.3-70b-versatile", cfg.LLM.Model)
	assert.Equal(t, 2, cfg.Worker.MaxRetries)
	assert.Equal(t, 10*time.Second, cfg.Worker.RetryDelay)
	assert.Equal(t, 384, cfg.Embed.Dimension)
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("DB_URL", "postgres://localhost/resumes")
	t.Setenv("MAX_PDF_MB", "2")
	t.Setenv("TASK_RETRY_DELAY", "1s")
	t.Setenv("EMBED_PROVIDER", "HASH")
	t.Setenv("QDRANT_TLS", "true")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := LoadConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, int64(2<<20), cfg.Extract.MaxPDFBytes)
	assert.Equal(t, time.Second, cfg.Worker.RetryDelay)
	assert.Equal(t, "hash", cfg.Embed.Provider)
	assert.True(t, cfg.Vector.UseTLS)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
}

func TestValidateRejectsMissingStore(t *testing.T) {
	t.Setenv("DB_URL", "")
	t.Setenv("SQLITE_PATH", "")

	err := LoadConfig().Validate()
	require.Error(t, err)
	assert.Equal(t, CodeConfig, ErrorCode(err))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestDriveConfigured(t *testing.T) {
	cfg := &Config{}
	assert.False(t, cfg.DriveConfigured())
	cfg.Drive.ServiceAccountFile = "/secrets/sa.json"
	assert.True(t, cfg.DriveConfigured())
}

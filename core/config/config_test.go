package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"objstore/core/config"
	"objstore/core/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := config.LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 64, cfg.Server.BodyLimitMB)
	assert.Equal(t, storage.ProviderS3, cfg.Storage.Provider)
	assert.Equal(t, "localhost:9000", cfg.Storage.Endpoint)
	assert.Equal(t, "objects", cfg.Storage.Bucket)
	assert.Equal(t, 30, cfg.Storage.TimeoutSeconds)
	assert.True(t, cfg.Storage.ForcePathStyle)
	assert.False(t, cfg.Storage.UseSSL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_Environment(t *testing.T) {
	t.Setenv("STORAGE_PROVIDER", "aws")
	t.Setenv("STORAGE_BUCKET", "media")
	t.Setenv("STORAGE_USE_SSL", "true")
	t.Setenv("STORAGE_PART_SIZE_MB", "32")
	t.Setenv("SERVER_API_KEY", "secret")

	cfg, err := config.LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, storage.ProviderAWS, cfg.Storage.Provider)
	assert.Equal(t, "media", cfg.Storage.Bucket)
	assert.True(t, cfg.Storage.UseSSL)
	assert.Equal(t, 32, cfg.Storage.PartSizeMB)
	assert.Equal(t, "secret", cfg.Server.ApiKey)
}

func TestLoadConfig_DotEnv(t *testing.T) {
	// Registered first so the values written by the .env file are restored.
	t.Setenv("STORAGE_REGION", "")
	t.Setenv("LOG_LEVEL", "")

	dir := t.TempDir()
	content := "STORAGE_REGION=eu-west-1\nLOG_LEVEL=debug\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(content), 0o600))

	cfg, err := config.LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "eu-west-1", cfg.Storage.Region)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestConfig_Validate(t *testing.T) {
	cfg, err := config.LoadConfig(t.TempDir())
	require.NoError(t, err)

	cfg.Server.Port = "abc"
	cfg.Storage.Bucket = ""

	err = cfg.Validate()
	assert.ErrorContains(t, err, "port")
	assert.ErrorContains(t, err, "bucket is required")
}

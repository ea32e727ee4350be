package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/upload"
	"github.com/input-output-hk/catalyst-forge-libs/upload/presign"
	"github.com/input-output-hk/catalyst-forge-libs/upload/transport/cloudinary"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "uploader.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadConfig_Defaults(t *testing.T) {
	v := viper.New()
	require.NoError(t, readConfig(v, writeConfig(t, "")))

	cfg, err := loadConfig(v)
	require.NoError(t, err)

	assert.Equal(t, "s3", cfg.Upload.Backend)
	assert.Equal(t, upload.DefaultConcurrency, cfg.Upload.Concurrency)
	assert.Equal(t, upload.DefaultMaxRetries, cfg.Upload.MaxRetries)
	assert.Equal(t, upload.DefaultBaseDelay, cfg.Upload.BaseDelay)
	assert.Equal(t, presign.DefaultExpires, cfg.S3.Expires)
	assert.Equal(t, "us-east-1", cfg.S3.Region)
	assert.True(t, cfg.MinIO.UseSSL)
	assert.Equal(t, cloudinary.DefaultBaseURL, cfg.Cloudinary.BaseURL)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.True(t, cfg.Server.Metrics)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestReadConfig_File(t *testing.T) {
	path := writeConfig(t, `
upload:
  backend: minio
  folder: avatars
  base_delay: 2s
minio:
  endpoint: localhost:9000
  bucket: media
  use_ssl: false
server:
  cors_origins:
    - https://app.example.com
`)

	v := viper.New()
	require.NoError(t, readConfig(v, path))
	cfg, err := loadConfig(v)
	require.NoError(t, err)

	assert.Equal(t, "minio", cfg.Upload.Backend)
	assert.Equal(t, "avatars", cfg.Upload.Folder)
	assert.Equal(t, 2*time.Second, cfg.Upload.BaseDelay)
	assert.Equal(t, "localhost:9000", cfg.MinIO.Endpoint)
	assert.Equal(t, "media", cfg.MinIO.Bucket)
	assert.False(t, cfg.MinIO.UseSSL)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.Server.CORSOrigins)
}

func TestReadConfig_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "upload:\n  concurrency: 5\n")
	t.Setenv("UPLOADER_UPLOAD_CONCURRENCY", "7")
	t.Setenv("UPLOADER_UPLOAD_BASE_DELAY", "250ms")
	t.Setenv("UPLOADER_S3_BUCKET", "uploads-bucket")

	v := viper.New()
	require.NoError(t, readConfig(v, path))
	cfg, err := loadConfig(v)
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Upload.Concurrency)
	assert.Equal(t, 250*time.Millisecond, cfg.Upload.BaseDelay)
	assert.Equal(t, "uploads-bucket", cfg.S3.Bucket)
}

func TestReadConfig_MissingExplicitFile(t *testing.T) {
	v := viper.New()
	err := readConfig(v, filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config")
}

func TestLoadConfig_InvalidDuration(t *testing.T) {
	path := writeConfig(t, "upload:\n  base_delay: soon\n")

	v := viper.New()
	require.NoError(t, readConfig(v, path))
	_, err := loadConfig(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode config")
}

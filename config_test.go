package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, ".assetcache", cfg.Dir)
	assert.Equal(t, "_AssetCache_CachedAssets", cfg.Prefix)
	assert.Equal(t, "30d", cfg.Lifetime)
	assert.Equal(t, IndexFile, cfg.Index.Driver)
	assert.Equal(t, "index.json", cfg.Index.File)
	assert.Equal(t, 5*time.Second, cfg.Index.QueryTimeout)
	assert.Equal(t, BlobLocal, cfg.Blobs.Driver)
	assert.False(t, cfg.Blobs.Insecure)
}

func TestLoadConfigEnvironment(t *testing.T) {
	t.Setenv("ASSETCACHE_INDEX_DRIVER", IndexSQLite)
	t.Setenv("ASSETCACHE_QUERY_TIMEOUT", "250ms")
	t.Setenv("ASSETCACHE_LIFETIME", "never")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, IndexSQLite, cfg.Index.Driver)
	assert.Equal(t, 250*time.Millisecond, cfg.Index.QueryTimeout)
	assert.Equal(t, "never", cfg.Lifetime)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "assetcache.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
dir: /var/cache/assets
lifetime: 36h
index:
  driver: redis
  redis_addr: cache:6379
blobs:
  driver: minio
  bucket: assets
  endpoint: minio:9000
  insecure: true
`), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/cache/assets", cfg.Dir)
	assert.Equal(t, IndexRedis, cfg.Index.Driver)
	assert.Equal(t, "cache:6379", cfg.Index.RedisAddr)
	assert.Equal(t, BlobMinIO, cfg.Blobs.Driver)
	assert.Equal(t, "assets", cfg.Blobs.Bucket)
	assert.True(t, cfg.Blobs.Insecure)

	t.Setenv("ASSETCACHE_DIR", "/override")
	cfg, err = LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/override", cfg.Dir)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	valid, err := LoadConfig("")
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown index driver", func(c *Config) { c.Index.Driver = "etcd" }},
		{"unknown blob driver", func(c *Config) { c.Blobs.Driver = "ftp" }},
		{"s3 without bucket", func(c *Config) { c.Blobs.Driver = BlobS3 }},
		{"minio without bucket", func(c *Config) { c.Blobs.Driver = BlobMinIO }},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
		{"bad lifetime", func(c *Config) { c.Lifetime = "soon" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestParseLifetime(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"0", 0},
		{"5", 5},
		{"5d", 5},
		{"1w", 7},
		{"36h", 2},
		{"24h", 1},
		{"1h", 1},
		{"never", -1},
		{"NEVER", -1},
		{"-1", -1},
		{"-7", -1},
		{"-2d", -1},
	}
	for _, tt := range tests {
		got, err := ParseLifetime(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLifetime("tomorrow")
	assert.Error(t, err)
}

func TestParseLogLevel(t *testing.T) {
	level, err := ParseLogLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	level, err = ParseLogLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)

	_, err = ParseLogLevel("loud")
	assert.Error(t, err)
}

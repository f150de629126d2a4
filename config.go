package main

import (
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/xhit/go-str2duration/v2"
)

// Index store drivers.
const (
	IndexFile   = "file"
	IndexSQLite = "sqlite"
	IndexRedis  = "redis"
	IndexMemory = "memory"
)

// Blob backend drivers.
const (
	BlobLocal  = "local"
	BlobMemory = "memory"
	BlobS3     = "s3"
	BlobMinIO  = "minio"
)

// Config is read from an optional YAML file and then from ASSETCACHE_*
// environment variables, which take precedence.
type Config struct {
	Dir      string `yaml:"dir" env:"ASSETCACHE_DIR" env-default:".assetcache" env-description:"Directory holding the index file and local blobs"`
	Prefix   string `yaml:"prefix" env:"ASSETCACHE_PREFIX" env-default:"_AssetCache_CachedAssets" env-description:"Prefix of the persisted index slots"`
	Lifetime string `yaml:"lifetime" env:"ASSETCACHE_LIFETIME" env-default:"30d" env-description:"Default asset lifetime, e.g. 5d, 36h or never"`
	LogLevel string `yaml:"log_level" env:"ASSETCACHE_LOG_LEVEL" env-default:"warn" env-description:"debug, info, warn or error"`
	Debug    bool   `yaml:"debug" env:"ASSETCACHE_DEBUG" env-description:"Log every store and backend call"`

	Index IndexConfig `yaml:"index"`
	Blobs BlobConfig  `yaml:"blobs"`
}

type IndexConfig struct {
	Driver       string        `yaml:"driver" env:"ASSETCACHE_INDEX_DRIVER" env-default:"file"`
	File         string        `yaml:"file" env:"ASSETCACHE_INDEX_FILE" env-default:"index.json"`
	SQLitePath   string        `yaml:"sqlite_path" env:"ASSETCACHE_SQLITE_PATH"`
	RedisAddr    string        `yaml:"redis_addr" env:"ASSETCACHE_REDIS_ADDR" env-default:"localhost:6379"`
	RedisPrefix  string        `yaml:"redis_prefix" env:"ASSETCACHE_REDIS_PREFIX" env-default:"assetcache"`
	QueryTimeout time.Duration `yaml:"query_timeout" env:"ASSETCACHE_QUERY_TIMEOUT" env-default:"5s"`
}

type BlobConfig struct {
	Driver    string `yaml:"driver" env:"ASSETCACHE_BLOB_DRIVER" env-default:"local"`
	Bucket    string `yaml:"bucket" env:"ASSETCACHE_BLOB_BUCKET"`
	Prefix    string `yaml:"prefix" env:"ASSETCACHE_BLOB_PREFIX"`
	Region    string `yaml:"region" env:"ASSETCACHE_BLOB_REGION"`
	Endpoint  string `yaml:"endpoint" env:"ASSETCACHE_BLOB_ENDPOINT"`
	AccessKey string `yaml:"access_key" env:"ASSETCACHE_BLOB_ACCESS_KEY"`
	SecretKey string `yaml:"secret_key" env:"ASSETCACHE_BLOB_SECRET_KEY"`

	// Insecure disables TLS to the MinIO endpoint.
	Insecure bool `yaml:"insecure" env:"ASSETCACHE_BLOB_INSECURE"`
}

// LoadConfig reads the configuration. An empty path reads the environment only.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	var err error
	if path != "" {
		err = cleanenv.ReadConfig(path, &cfg)
	} else {
		err = cleanenv.ReadEnv(&cfg)
	}
	if err != nil {
		return Config{}, errors.Wrap(err, "failed to read configuration")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks driver names, the log level and the default lifetime.
func (c Config) Validate() error {
	switch c.Index.Driver {
	case IndexFile, IndexSQLite, IndexRedis, IndexMemory:
	default:
		return errors.Newf("unknown index driver %q", c.Index.Driver)
	}
	switch c.Blobs.Driver {
	case BlobLocal, BlobMemory:
	case BlobS3, BlobMinIO:
		if c.Blobs.Bucket == "" {
			return errors.Newf("blob driver %s requires a bucket", c.Blobs.Driver)
		}
	default:
		return errors.Newf("unknown blob driver %q", c.Blobs.Driver)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	if _, err := ParseLifetime(c.Lifetime); err != nil {
		return err
	}
	return nil
}

// ParseLogLevel maps a level name to a slog level.
func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, errors.Wrapf(err, "invalid log level %q", s)
	}
	return level, nil
}

// ParseLifetime converts a lifetime to whole days. A bare integer is a number
// of days. Durations such as 5d or 36h are rounded up to whole days. "never"
// or any negative value yields -1, the never-expire lifetime.
func ParseLifetime(s string) (int, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "never") {
		return -1, nil
	}
	if days, err := strconv.Atoi(s); err == nil {
		if days < 0 {
			return -1, nil
		}
		return days, nil
	}
	d, err := str2duration.ParseDuration(s)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid lifetime %q", s)
	}
	if d < 0 {
		return -1, nil
	}
	const day = 24 * time.Hour
	days := math.Ceil(float64(d) / float64(day))
	return int(days), nil
}

package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"

	"github.com/richardartoul/assetcache/backends"
	"github.com/richardartoul/assetcache/pkg/kvstore"
)

// openIndex opens the key/value store the index and text payloads live in.
// The returned close func also releases driver resources the store does not
// own, such as the Redis client.
func openIndex(ctx context.Context, cfg Config, logger *slog.Logger) (kvstore.Store, func() error, error) {
	opts := []kvstore.Option{kvstore.WithQueryTimeout(cfg.Index.QueryTimeout)}

	var (
		store   kvstore.Store
		closeFn func() error
	)
	switch cfg.Index.Driver {
	case IndexFile:
		f, err := kvstore.OpenFile(cfg.Dir, cfg.Index.File, logger)
		if err != nil {
			return nil, nil, errors.Wrap(err, "failed to open index file")
		}
		store, closeFn = f, f.Close
	case IndexSQLite:
		path := cfg.Index.SQLitePath
		if path == "" {
			if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
				return nil, nil, errors.Wrap(err, "failed to create cache directory")
			}
			path = filepath.Join(cfg.Dir, "index.db")
		}
		s, err := kvstore.NewSQLite(ctx, path, opts...)
		if err != nil {
			return nil, nil, errors.Wrap(err, "failed to open sqlite index")
		}
		store, closeFn = s, s.Close
	case IndexRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.Index.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, errors.Wrapf(err, "failed to connect to redis at %s", cfg.Index.RedisAddr)
		}
		opts = append(opts, kvstore.WithPrefix(cfg.Index.RedisPrefix))
		r := kvstore.NewRedis(ctx, client, opts...)
		store = r
		closeFn = func() error {
			return errors.CombineErrors(r.Close(), client.Close())
		}
	case IndexMemory:
		m := kvstore.NewMemory()
		store, closeFn = m, m.Close
	default:
		return nil, nil, errors.Newf("unknown index driver %q", cfg.Index.Driver)
	}

	if cfg.Debug {
		store = kvstore.NewDebug(store, logger)
	}
	return store, closeFn, nil
}

// openBlobs opens the backend image and blob payloads live in.
func openBlobs(ctx context.Context, cfg Config, logger *slog.Logger) (backends.Backend, error) {
	var (
		backend backends.Backend
		err     error
	)
	switch cfg.Blobs.Driver {
	case BlobLocal:
		backend, err = backends.NewLocal(filepath.Join(cfg.Dir, "blobs"), logger)
	case BlobMemory:
		backend = backends.NewMemory()
	case BlobS3:
		backend, err = backends.NewS3FromEnv(ctx, cfg.Blobs.Bucket, cfg.Blobs.Prefix, cfg.Blobs.Region)
	case BlobMinIO:
		backend, err = backends.NewMinIO(ctx, backends.MinIOConfig{
			Endpoint:  cfg.Blobs.Endpoint,
			AccessKey: cfg.Blobs.AccessKey,
			SecretKey: cfg.Blobs.SecretKey,
			Bucket:    cfg.Blobs.Bucket,
			Prefix:    cfg.Blobs.Prefix,
			UseSSL:    !cfg.Blobs.Insecure,
		})
	default:
		err = errors.Newf("unknown blob driver %q", cfg.Blobs.Driver)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s blob backend", cfg.Blobs.Driver)
	}

	if cfg.Debug {
		backend = backends.NewDebug(backend, logger)
	}
	return backend, nil
}

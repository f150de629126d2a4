package backends

import (
	"bytes"
	"context"
	"io"
	"path"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOConfig configures a MinIO backend.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	UseSSL    bool
	// Client is used instead of building one from the fields above.
	Client *minio.Client
}

func (c MinIOConfig) validate() error {
	if c.Bucket == "" {
		return errors.New("bucket is required")
	}
	if c.Client == nil && c.Endpoint == "" {
		return errors.New("endpoint is required when no client is provided")
	}
	return nil
}

// MinIO stores blobs in a MinIO (or other S3-compatible) bucket.
type MinIO struct {
	ctx     context.Context
	client  *minio.Client
	bucket  string
	prefix  string
	timeout time.Duration
}

var _ Backend = (*MinIO)(nil)

// NewMinIO creates a MinIO backend.
func NewMinIO(ctx context.Context, cfg MinIOConfig) (*MinIO, error) {
	if err := cfg.validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	client := cfg.Client
	if client == nil {
		var err error
		client, err = minio.New(cfg.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
			Secure: cfg.UseSSL,
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to create minio client")
		}
	}

	return &MinIO{
		ctx:     ctx,
		client:  client,
		bucket:  cfg.Bucket,
		prefix:  cfg.Prefix,
		timeout: DefaultRequestTimeout,
	}, nil
}

func (b *MinIO) objectKey(p string) string {
	if b.prefix == "" {
		return p
	}
	return path.Join(b.prefix, p)
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}

func (b *MinIO) Read(p string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(b.ctx, b.timeout)
	defer cancel()

	obj, err := b.client.GetObject(ctx, b.bucket, b.objectKey(p), minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.Wrapf(err, "minio get %s", p)
	}
	defer obj.Close()

	// GetObject is lazy; errors such as a missing key surface on read.
	data, err := io.ReadAll(obj)
	if err != nil {
		if isNoSuchKey(err) {
			return nil, notExist(err, p)
		}
		return nil, errors.Wrapf(err, "minio read %s", p)
	}
	return data, nil
}

func (b *MinIO) Write(p string, data []byte) error {
	ctx, cancel := context.WithTimeout(b.ctx, b.timeout)
	defer cancel()

	_, err := b.client.PutObject(ctx, b.bucket, b.objectKey(p),
		bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{})
	if err != nil {
		return errors.Wrapf(err, "minio put %s", p)
	}
	return nil
}

// Delete removes the object, reporting ErrNotExist for missing keys.
func (b *MinIO) Delete(p string) error {
	ctx, cancel := context.WithTimeout(b.ctx, b.timeout)
	defer cancel()

	key := b.objectKey(p)
	if _, err := b.client.StatObject(ctx, b.bucket, key, minio.StatObjectOptions{}); err != nil {
		if isNoSuchKey(err) {
			return notExist(err, p)
		}
		return errors.Wrapf(err, "minio stat %s", p)
	}
	if err := b.client.RemoveObject(ctx, b.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return errors.Wrapf(err, "minio remove %s", p)
	}
	return nil
}

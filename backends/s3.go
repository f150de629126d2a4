package backends

import (
	"bytes"
	"context"
	"io"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/cockroachdb/errors"
)

// DefaultRequestTimeout bounds each request made by the object store backends.
const DefaultRequestTimeout = 30 * time.Second

// S3API is the subset of the S3 client used by the S3 backend.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3 stores blobs as objects in an S3 bucket under an optional prefix.
type S3 struct {
	ctx     context.Context
	client  S3API
	bucket  string
	prefix  string
	timeout time.Duration
}

var _ Backend = (*S3)(nil)

// NewS3 creates a backend using an existing client.
func NewS3(ctx context.Context, client S3API, bucket, prefix string) *S3 {
	return &S3{
		ctx:     ctx,
		client:  client,
		bucket:  bucket,
		prefix:  prefix,
		timeout: DefaultRequestTimeout,
	}
}

// NewS3FromEnv creates a backend with a client configured from the default
// AWS credential chain. region may be empty to use the environment's.
func NewS3FromEnv(ctx context.Context, bucket, prefix, region string) (*S3, error) {
	if bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load AWS config")
	}
	return NewS3(ctx, s3.NewFromConfig(cfg), bucket, prefix), nil
}

func (b *S3) objectKey(p string) string {
	if b.prefix == "" {
		return p
	}
	return path.Join(b.prefix, p)
}

func (b *S3) Read(p string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(b.ctx, b.timeout)
	defer cancel()

	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.objectKey(p)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, notExist(err, p)
		}
		return nil, errors.Wrapf(err, "s3 get %s", p)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "s3 read %s", p)
	}
	return data, nil
}

func (b *S3) Write(p string, data []byte) error {
	ctx, cancel := context.WithTimeout(b.ctx, b.timeout)
	defer cancel()

	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(b.bucket),
		Key:           aws.String(b.objectKey(p)),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return errors.Wrapf(err, "s3 put %s", p)
	}
	return nil
}

// Delete removes the object. S3 deletes succeed for missing keys, so the
// object is checked first to report ErrNotExist.
func (b *S3) Delete(p string) error {
	ctx, cancel := context.WithTimeout(b.ctx, b.timeout)
	defer cancel()

	key := b.objectKey(p)
	_, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nf *types.NotFound
		if errors.As(err, &nf) {
			return notExist(err, p)
		}
		return errors.Wrapf(err, "s3 head %s", p)
	}

	if _, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return errors.Wrapf(err, "s3 delete %s", p)
	}
	return nil
}

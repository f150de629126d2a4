package kvstore

import (
	"context"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
)

// Redis is a Store backed by plain Redis string keys. Writes are applied
// immediately, so Flush is a no-op.
type Redis struct {
	client *redis.Client
	ctx    context.Context
	cfg    config
}

var _ Store = (*Redis)(nil)

// NewRedis returns a Store backed by Redis.
// The caller owns the redis.Client lifecycle; Close does not close it.
func NewRedis(ctx context.Context, client *redis.Client, opts ...Option) *Redis {
	return &Redis{
		client: client,
		ctx:    ctx,
		cfg:    applyOptions(opts),
	}
}

func (r *Redis) queryCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.ctx, r.cfg.queryTimeout)
}

func (r *Redis) prefixKey(key string) string {
	if r.cfg.prefix == "" {
		return key
	}
	return r.cfg.prefix + ":" + key
}

func (r *Redis) GetInt(key string) (int, bool, error) {
	qctx, cancel := r.queryCtx()
	defer cancel()
	v, err := r.client.Get(qctx, r.prefixKey(key)).Int()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) {
			return 0, false, errors.Wrapf(ErrWrongType, "key %s is not an integer", key)
		}
		return 0, false, errors.Wrapf(err, "redis get %s", key)
	}
	return v, true, nil
}

func (r *Redis) SetInt(key string, value int) error {
	qctx, cancel := r.queryCtx()
	defer cancel()
	if err := r.client.Set(qctx, r.prefixKey(key), value, 0).Err(); err != nil {
		return errors.Wrapf(err, "redis set %s", key)
	}
	return nil
}

func (r *Redis) GetString(key string) (string, bool, error) {
	qctx, cancel := r.queryCtx()
	defer cancel()
	v, err := r.client.Get(qctx, r.prefixKey(key)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "redis get %s", key)
	}
	return v, true, nil
}

func (r *Redis) SetString(key string, value string) error {
	qctx, cancel := r.queryCtx()
	defer cancel()
	if err := r.client.Set(qctx, r.prefixKey(key), value, 0).Err(); err != nil {
		return errors.Wrapf(err, "redis set %s", key)
	}
	return nil
}

func (r *Redis) Delete(key string) error {
	qctx, cancel := r.queryCtx()
	defer cancel()
	if err := r.client.Del(qctx, r.prefixKey(key)).Err(); err != nil {
		return errors.Wrapf(err, "redis del %s", key)
	}
	return nil
}

// Flush is a no-op; Redis owns durability.
func (r *Redis) Flush() error {
	return nil
}

// Close is a no-op; the caller owns the redis.Client lifecycle.
func (r *Redis) Close() error {
	return nil
}

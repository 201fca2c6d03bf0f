package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/erenyeger719-jpg/YBuilt-sub002/internal/config"
	"github.com/erenyeger719-jpg/YBuilt-sub002/internal/logging"

	"github.com/redis/go-redis/v9"
)

// maxMergeRetries bounds optimistic WATCH retries under contention.
const maxMergeRetries = 16

// RedisStore shares state across processes. Merge uses WATCH/MULTI so a
// concurrent writer on the same key forces a retry instead of a lost update.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

// DialRedis connects using cfg and verifies the server answers PING.
func DialRedis(ctx context.Context, cfg config.RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	logging.Store("redis store connected to %s (db=%d)", cfg.Addr, cfg.DB)
	return NewRedisStore(client, cfg.KeyPrefix), nil
}

func (r *RedisStore) k(key string) string {
	return r.prefix + key
}

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, r.k(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrapErr("get", key, err)
	}
	return val, nil
}

func (r *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, r.k(key), value, 0).Err(); err != nil {
		return wrapErr("set", key, err)
	}
	return nil
}

func (r *RedisStore) Merge(ctx context.Context, key string, fn MergeFunc) ([]byte, error) {
	rk := r.k(key)
	var next []byte
	var fnErr error

	txf := func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, rk).Bytes()
		exists := true
		if errors.Is(err, redis.Nil) {
			exists, err = false, nil
		}
		if err != nil {
			return err
		}
		next, fnErr = fn(cur, exists)
		if fnErr != nil {
			return fnErr
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, rk, next, 0)
			return nil
		})
		return err
	}

	for i := 0; i < maxMergeRetries; i++ {
		fnErr = nil
		err := r.client.Watch(ctx, txf, rk)
		if err == nil {
			return next, nil
		}
		if fnErr != nil {
			return nil, fnErr
		}
		if errors.Is(err, redis.TxFailedErr) {
			logging.StoreDebug("redis merge on %s lost a race, retry %d", key, i+1)
			continue
		}
		return nil, wrapErr("merge", key, err)
	}
	return nil, wrapErr("merge", key, fmt.Errorf("gave up after %d optimistic retries", maxMergeRetries))
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

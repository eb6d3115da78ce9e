package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/and161185/shopverse/internal/errs"
)

type cmdable interface {
	Ping(context.Context) *redis.StatusCmd
	Get(context.Context, string) *redis.StringCmd
	Set(context.Context, string, any, time.Duration) *redis.StatusCmd
	Del(context.Context, ...string) *redis.IntCmd
}

// Redis keeps entries in Redis under "<prefix>:<namespace>:<key>", letting several
// devices (kiosks, test rigs) share one profile.
type Redis struct {
	store  cmdable
	raw    *redis.Client
	prefix string
}

// NewRedis connects using a redis:// URL and verifies connectivity.
func NewRedis(ctx context.Context, url, prefix, namespace string) (*Redis, error) {
	if url == "" {
		return nil, errors.New("redis url is required")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	raw := redis.NewClient(opts)
	if err := raw.Ping(ctx).Err(); err != nil {
		_ = raw.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Redis{store: raw, raw: raw, prefix: buildPrefix(prefix, namespace)}, nil
}

func buildPrefix(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.Trim(p, ":"); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ":")
}

func (r *Redis) key(k string) string {
	if r.prefix == "" {
		return k
	}
	return r.prefix + ":" + k
}

// Get returns the value under key.
func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	v, err := r.store.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", errs.ErrNotFound
	}
	return v, err
}

// Set stores value under key without expiry.
func (r *Redis) Set(ctx context.Context, key, value string) error {
	return r.store.Set(ctx, r.key(key), value, 0).Err()
}

// Remove deletes key.
func (r *Redis) Remove(ctx context.Context, key string) error {
	return r.store.Del(ctx, r.key(key)).Err()
}

// Close releases the connection pool.
func (r *Redis) Close() error {
	if r.raw == nil {
		return nil
	}
	return r.raw.Close()
}

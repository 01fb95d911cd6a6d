// Package redistier stores identity keys in Redis with a one-year expiry,
// the redundant tier that outlives a cleared local database.
package redistier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"attendance/pkg/platform/sentinel"
)

const (
	DefaultTTL       = 365 * 24 * time.Hour
	defaultKeyPrefix = "attendance:device:"
)

type Tier struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

type Option func(*Tier)

func WithTTL(ttl time.Duration) Option {
	return func(t *Tier) {
		if ttl > 0 {
			t.ttl = ttl
		}
	}
}

func WithKeyPrefix(prefix string) Option {
	return func(t *Tier) {
		t.prefix = prefix
	}
}

func New(client redis.UniversalClient, opts ...Option) *Tier {
	t := &Tier{
		client: client,
		prefix: defaultKeyPrefix,
		ttl:    DefaultTTL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	return t
}

func (t *Tier) Get(ctx context.Context, key string) (string, error) {
	v, err := t.client.Get(ctx, t.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", sentinel.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis get %s: %w: %w", key, sentinel.ErrUnavailable, err)
	}
	return v, nil
}

// Set writes value and restarts the expiry window.
func (t *Tier) Set(ctx context.Context, key, value string) error {
	if err := t.client.Set(ctx, t.prefix+key, value, t.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w: %w", key, sentinel.ErrUnavailable, err)
	}
	return nil
}

func (t *Tier) Delete(ctx context.Context, key string) error {
	if err := t.client.Del(ctx, t.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w: %w", key, sentinel.ErrUnavailable, err)
	}
	return nil
}

// TTL returns the remaining lifetime of key.
func (t *Tier) TTL(ctx context.Context, key string) (time.Duration, error) {
	d, err := t.client.TTL(ctx, t.prefix+key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis ttl %s: %w", key, err)
	}
	return d, nil
}

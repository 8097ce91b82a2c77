// Package redis implements the KeyValueStore port on Redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ahaarwise/internal/domain"

	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "ahaar:"

// Store is a KeyValueStore backed by plain Redis string keys.
type Store struct {
	client *goredis.Client
}

var _ domain.KeyValueStore = (*Store)(nil)

// Connect creates a client from a redis:// URL or a bare host:port and pings it.
func Connect(ctx context.Context, redisURL string) (*goredis.Client, error) {
	var client *goredis.Client
	if strings.HasPrefix(redisURL, "redis://") || strings.HasPrefix(redisURL, "rediss://") {
		opt, err := goredis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		client = goredis.NewClient(opt)
	} else {
		client = goredis.NewClient(&goredis.Options{Addr: redisURL})
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// New wraps an existing client.
func New(client *goredis.Client) *Store {
	return &Store{client: client}
}

// Get returns the value for key or domain.ErrKeyNotFound.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, keyPrefix+key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", domain.ErrKeyNotFound
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

// Set stores value under key; a zero ttl never expires.
func (s *Store) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, keyPrefix+key, value, ttl).Err()
}

// Delete removes keys; missing keys are ignored.
func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = keyPrefix + k
	}
	return s.client.Del(ctx, full...).Err()
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

package app

import (
	"context"
	"time"

	"ahaarwise/internal/domain"
)

// prefixStore namespaces every key of an underlying store.
type prefixStore struct {
	kv     domain.KeyValueStore
	prefix string
}

func newClientStore(kv domain.KeyValueStore, clientID string) *prefixStore {
	return &prefixStore{kv: kv, prefix: "client:" + clientID + ":"}
}

func (p *prefixStore) Get(ctx context.Context, key string) (string, error) {
	return p.kv.Get(ctx, p.prefix+key)
}

func (p *prefixStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return p.kv.Set(ctx, p.prefix+key, value, ttl)
}

func (p *prefixStore) Delete(ctx context.Context, keys ...string) error {
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = p.prefix + k
	}
	return p.kv.Delete(ctx, full...)
}

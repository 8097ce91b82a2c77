package domain

import (
	"context"
	"errors"
	"time"
)

// ErrKeyNotFound is returned by KeyValueStore.Get for absent or expired keys.
var ErrKeyNotFound = errors.New("key not found")

// KeyValueStore is a small persisted string store. It backs lockout counters,
// client preferences and session revocation markers.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, error)
	// Set stores value under key. A ttl of zero means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// SessionCookie persists the encoded session token for one client.
type SessionCookie interface {
	Get() (string, bool)
	Set(token string, expiresAt time.Time)
	Delete()
}

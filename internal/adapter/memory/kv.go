package memory

import (
	"context"
	"sync"
	"time"

	"ahaarwise/internal/domain"
)

type kvEntry struct {
	value     string
	expiresAt time.Time
}

// Store is an in-memory KeyValueStore with lazy expiry.
type Store struct {
	mu   sync.Mutex
	data map[string]kvEntry
	now  func() time.Time
}

var _ domain.KeyValueStore = (*Store)(nil)

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{data: make(map[string]kvEntry), now: time.Now}
}

// WithClock replaces the clock used for expiry.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Get returns the value for key or domain.ErrKeyNotFound.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.data[key]
	if !ok {
		return "", domain.ErrKeyNotFound
	}
	if !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt) {
		delete(s.data, key)
		return "", domain.ErrKeyNotFound
	}
	return e.value, nil
}

// Set stores value under key; a zero ttl never expires.
func (s *Store) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := kvEntry{value: value}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	s.data[key] = e
	return nil
}

// Delete removes keys; missing keys are ignored.
func (s *Store) Delete(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, k := range keys {
		delete(s.data, k)
	}
	return nil
}

// Len reports the number of stored keys, including expired ones not yet evicted.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

// CookieJar is a SessionCookie held in memory, standing in for a browser.
type CookieJar struct {
	mu        sync.Mutex
	value     string
	expiresAt time.Time
	set       bool
}

var _ domain.SessionCookie = (*CookieJar)(nil)

// Get returns the stored token.
func (j *CookieJar) Get() (string, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.value, j.set
}

// Set stores the token.
func (j *CookieJar) Set(token string, expiresAt time.Time) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.value, j.expiresAt, j.set = token, expiresAt, true
}

// Delete clears the token.
func (j *CookieJar) Delete() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.value, j.expiresAt, j.set = "", time.Time{}, false
}

// ExpiresAt reports when the stored token expires.
func (j *CookieJar) ExpiresAt() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.expiresAt
}

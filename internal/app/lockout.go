package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"ahaarwise/internal/domain"
)

const (
	// MaxLoginAttempts is the number of consecutive failures that installs a block.
	MaxLoginAttempts = 5
	// LockoutDuration is how long a block lasts.
	LockoutDuration = 15 * time.Minute

	attemptsKey     = "lockout:attempts"
	blockedUntilKey = "lockout:blocked_until"

	// lockoutStateTTL bounds how long an idle failure counter is kept.
	lockoutStateTTL = 24 * time.Hour
)

// LockoutStatus is a snapshot of a client's login gate.
type LockoutStatus struct {
	Blocked           bool `json:"blocked"`
	SecondsRemaining  int  `json:"secondsRemaining"`
	AttemptsRemaining int  `json:"attemptsRemaining"`
}

// LockoutTracker counts consecutive failed logins for one client and blocks
// further attempts for LockoutDuration once MaxLoginAttempts is reached.
//
// State lives in the injected store, so two trackers over the same store see
// the same counter. Updates are read-modify-write without locking: concurrent
// failures from one client may be under-counted (last write wins).
type LockoutTracker struct {
	kv  domain.KeyValueStore
	now func() time.Time
}

// NewLockoutTracker creates a tracker over kv, which must already be scoped to
// a single client.
func NewLockoutTracker(kv domain.KeyValueStore) *LockoutTracker {
	return &LockoutTracker{kv: kv, now: time.Now}
}

// CheckStatus reports whether attempts are blocked. An expired block is
// cleared as a side effect, resetting the counter.
func (t *LockoutTracker) CheckStatus(ctx context.Context) (LockoutStatus, error) {
	now := t.now()
	until, blocked, err := t.blockedUntil(ctx)
	if err != nil {
		return LockoutStatus{}, err
	}
	if blocked {
		if now.UnixMilli() < until {
			return LockoutStatus{Blocked: true, SecondsRemaining: secondsUntil(until, now)}, nil
		}
		if err := t.kv.Delete(ctx, attemptsKey, blockedUntilKey); err != nil {
			return LockoutStatus{}, fmt.Errorf("clear expired lockout: %w", err)
		}
		return LockoutStatus{AttemptsRemaining: MaxLoginAttempts}, nil
	}

	count, err := t.attempts(ctx)
	if err != nil {
		return LockoutStatus{}, err
	}
	return LockoutStatus{AttemptsRemaining: remainingAttempts(count)}, nil
}

// RecordFailedAttempt increments the counter. Call it only after the
// credential store rejected the credentials.
func (t *LockoutTracker) RecordFailedAttempt(ctx context.Context) (LockoutStatus, error) {
	count, err := t.attempts(ctx)
	if err != nil {
		return LockoutStatus{}, err
	}
	count++

	if err := t.kv.Set(ctx, attemptsKey, strconv.Itoa(count), lockoutStateTTL); err != nil {
		return LockoutStatus{}, fmt.Errorf("store failed attempts: %w", err)
	}
	if count < MaxLoginAttempts {
		return LockoutStatus{AttemptsRemaining: remainingAttempts(count)}, nil
	}

	now := t.now()
	until := now.Add(LockoutDuration).UnixMilli()
	if err := t.kv.Set(ctx, blockedUntilKey, strconv.FormatInt(until, 10), lockoutStateTTL); err != nil {
		return LockoutStatus{}, fmt.Errorf("store lockout: %w", err)
	}
	return LockoutStatus{Blocked: true, SecondsRemaining: secondsUntil(until, now)}, nil
}

// RecordSuccess clears all lockout state.
func (t *LockoutTracker) RecordSuccess(ctx context.Context) error {
	if err := t.kv.Delete(ctx, attemptsKey, blockedUntilKey); err != nil {
		return fmt.Errorf("reset lockout: %w", err)
	}
	return nil
}

func (t *LockoutTracker) attempts(ctx context.Context) (int, error) {
	v, err := t.kv.Get(ctx, attemptsKey)
	if errors.Is(err, domain.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load failed attempts: %w", err)
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, nil
	}
	return n, nil
}

func (t *LockoutTracker) blockedUntil(ctx context.Context) (int64, bool, error) {
	v, err := t.kv.Get(ctx, blockedUntilKey)
	if errors.Is(err, domain.ErrKeyNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("load lockout: %w", err)
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		// Unreadable expiry: treat as already expired so the next check resets it.
		return 0, true, nil
	}
	return ms, true, nil
}

func remainingAttempts(count int) int {
	if count >= MaxLoginAttempts {
		return 0
	}
	return MaxLoginAttempts - count
}

// secondsUntil is ceil((untilMillis - now) / 1000), never negative.
func secondsUntil(untilMillis int64, now time.Time) int {
	ms := untilMillis - now.UnixMilli()
	if ms <= 0 {
		return 0
	}
	return int((ms + 999) / 1000)
}

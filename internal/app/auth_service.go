// Package app holds the application services and business logic.
package app

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"ahaarwise/internal/domain"

	"go.uber.org/zap"
)

const (
	rememberUsernameKey = "prefs:remember_username"
	revokedKeyPrefix    = "session:revoked:"
)

// Client identifies the browser an auth operation acts for. ID scopes the
// lockout counter and preferences; Cookie holds the session token.
type Client struct {
	ID     string
	Cookie domain.SessionCookie
}

// AuthService is the single entry point for login, logout, session checks and
// profile updates. It is the only writer of session cookies and lockout state.
type AuthService struct {
	creds domain.CredentialStore
	codec *SessionCodec
	kv    domain.KeyValueStore
	log   *zap.Logger
	now   func() time.Time
}

// NewAuthService creates a new authentication service.
func NewAuthService(creds domain.CredentialStore, codec *SessionCodec, kv domain.KeyValueStore, log *zap.Logger) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{
		creds: creds,
		codec: codec,
		kv:    kv,
		log:   log.Named("auth"),
		now:   time.Now,
	}
}

func (s *AuthService) lockout(c Client) *LockoutTracker {
	t := NewLockoutTracker(newClientStore(s.kv, c.ID))
	t.now = s.now
	return t
}

// Login checks the lockout gate, verifies the credentials and starts a session.
//
// A blocked client gets *domain.LockedOutError without the credential store
// being contacted. A rejection yields *domain.InvalidCredentialsError, or
// *domain.LockedOutError when it was the failure that installed the block.
// Credential store transport errors are returned wrapped and are not counted.
func (s *AuthService) Login(ctx context.Context, c Client, username, password string) (*domain.UserIdentity, error) {
	tracker := s.lockout(c)
	status, err := tracker.CheckStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("check lockout: %w", err)
	}
	if status.Blocked {
		return nil, &domain.LockedOutError{SecondsRemaining: status.SecondsRemaining}
	}

	user, err := s.creds.VerifyCredentials(ctx, username, password)
	if errors.Is(err, domain.ErrCredentialsRejected) {
		status, err := tracker.RecordFailedAttempt(ctx)
		if err != nil {
			return nil, fmt.Errorf("record failed attempt: %w", err)
		}
		if status.Blocked {
			s.log.Warn("login lockout triggered",
				zap.String("client", c.ID),
				zap.Int("seconds", status.SecondsRemaining))
			return nil, &domain.LockedOutError{SecondsRemaining: status.SecondsRemaining}
		}
		return nil, &domain.InvalidCredentialsError{AttemptsRemaining: status.AttemptsRemaining}
	}
	if err != nil {
		s.log.Error("credential store unavailable", zap.Error(err))
		return nil, fmt.Errorf("verify credentials: %w", err)
	}

	return s.StartSession(ctx, c, user)
}

// StartSession resets the lockout counter and issues a session cookie for an
// already authenticated user (password login or SSO).
func (s *AuthService) StartSession(ctx context.Context, c Client, user *domain.UserRecord) (*domain.UserIdentity, error) {
	if err := s.lockout(c).RecordSuccess(ctx); err != nil {
		return nil, err
	}
	id := domain.IdentityFromRecord(user)
	if _, err := s.persist(ctx, c, id); err != nil {
		return nil, err
	}
	s.log.Info("session started", zap.String("user_id", id.UserID), zap.String("role", string(id.Role)))
	return id, nil
}

func (s *AuthService) persist(ctx context.Context, c Client, id *domain.UserIdentity) (string, error) {
	token, expiresAt, err := s.codec.Issue(id)
	if err != nil {
		return "", err
	}
	// Tokens are deterministic, so a fresh login within the same second can
	// reproduce a token revoked by an earlier logout.
	if err := s.kv.Delete(ctx, revokedKey(token)); err != nil {
		return "", fmt.Errorf("clear revocation: %w", err)
	}
	c.Cookie.Set(token, expiresAt)
	return token, nil
}

// Logout deletes the session cookie. Revoking the token server-side is best
// effort; failures are logged and never reach the caller.
func (s *AuthService) Logout(ctx context.Context, c Client) {
	token, ok := c.Cookie.Get()
	c.Cookie.Delete()
	if !ok || token == "" {
		return
	}
	if err := s.revoke(ctx, token); err != nil {
		s.log.Warn("session revocation failed", zap.Error(err))
	}
}

// CurrentUser returns the signed-in identity, or nil when the cookie is
// missing, undecodable, revoked, or refers to a user that no longer exists.
func (s *AuthService) CurrentUser(ctx context.Context, c Client) *domain.UserIdentity {
	token, ok := c.Cookie.Get()
	if !ok || token == "" {
		return nil
	}
	id, err := s.codec.Decode(token)
	if err != nil {
		s.log.Debug("discarding session cookie", zap.Error(err))
		return nil
	}

	revoked, err := s.isRevoked(ctx, token)
	if err != nil {
		s.log.Warn("session revocation lookup failed", zap.Error(err))
		return nil
	}
	if revoked {
		return nil
	}

	user, err := s.creds.GetUserByID(ctx, id.UserID)
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			s.log.Warn("session user lookup failed", zap.String("user_id", id.UserID), zap.Error(err))
		}
		return nil
	}
	// Profile fields come from the stored record; the token may predate an
	// update made from another browser.
	id.FullName = user.FullName
	id.Email = user.Email
	id.Phone = user.Phone
	id.Bio = user.Bio
	return id
}

// UpdateProfile merges p into the current identity, stores it and re-issues
// the session cookie. It fails with domain.ErrNotAuthenticated when nobody is
// signed in.
func (s *AuthService) UpdateProfile(ctx context.Context, c Client, p domain.ProfileUpdate) (*domain.UserIdentity, error) {
	current := s.CurrentUser(ctx, c)
	if current == nil {
		return nil, domain.ErrNotAuthenticated
	}
	if p.FullName != nil && strings.TrimSpace(*p.FullName) == "" {
		return nil, fmt.Errorf("%w: full name must not be empty", domain.ErrInvalidInput)
	}

	if _, err := s.creds.UpdateProfile(ctx, current.UserID, p); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	p.Apply(current)

	old, _ := c.Cookie.Get()
	token, err := s.persist(ctx, c, current)
	if err != nil {
		return nil, err
	}
	if old != token {
		if err := s.revoke(ctx, old); err != nil {
			s.log.Warn("revoking replaced session failed", zap.Error(err))
		}
	}
	return current, nil
}

// LockoutStatus is a read-only view of the client's login gate for display.
func (s *AuthService) LockoutStatus(ctx context.Context, c Client) (LockoutStatus, error) {
	return s.lockout(c).CheckStatus(ctx)
}

// RememberUsername stores or clears the username pre-filled on the login form.
func (s *AuthService) RememberUsername(ctx context.Context, c Client, username string, remember bool) error {
	store := newClientStore(s.kv, c.ID)
	if !remember || username == "" {
		return store.Delete(ctx, rememberUsernameKey)
	}
	return store.Set(ctx, rememberUsernameKey, username, 0)
}

// RememberedUsername returns the remembered username, or "" if none.
func (s *AuthService) RememberedUsername(ctx context.Context, c Client) string {
	v, err := newClientStore(s.kv, c.ID).Get(ctx, rememberUsernameKey)
	if err != nil {
		return ""
	}
	return v
}

func (s *AuthService) revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	_, expiresAt, err := s.codec.decode(token)
	if err != nil {
		// Nothing would accept this token anyway.
		return nil
	}
	ttl := expiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	return s.kv.Set(ctx, revokedKey(token), "1", ttl)
}

func (s *AuthService) isRevoked(ctx context.Context, token string) (bool, error) {
	_, err := s.kv.Get(ctx, revokedKey(token))
	if errors.Is(err, domain.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func revokedKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return revokedKeyPrefix + hex.EncodeToString(sum[:])
}

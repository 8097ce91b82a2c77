package app

import (
	"errors"
	"fmt"
	"time"

	"ahaarwise/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

// MinSessionSecretLen is the shortest HMAC key accepted for signing sessions.
const MinSessionSecretLen = 32

var errIncompleteIdentity = errors.New("token does not carry a complete identity")

// sessionClaims is the wire form of the identity subset kept in the cookie.
type sessionClaims struct {
	Username string `json:"usr"`
	Role     string `json:"role"`
	FullName string `json:"name"`
	Email    string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// SessionCodec turns a UserIdentity into a signed, expiring cookie value and back.
type SessionCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionCodec creates a codec signing with secret. Tokens expire after ttl.
func NewSessionCodec(secret []byte, ttl time.Duration) (*SessionCodec, error) {
	if len(secret) < MinSessionSecretLen {
		return nil, fmt.Errorf("%w: session secret must be at least %d bytes", domain.ErrInvalidInput, MinSessionSecretLen)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("%w: session ttl must be positive", domain.ErrInvalidInput)
	}
	return &SessionCodec{secret: secret, ttl: ttl, now: time.Now}, nil
}

// Encode serializes the identity subset {userId, username, role, fullName, email}.
func (c *SessionCodec) Encode(id *domain.UserIdentity) (string, error) {
	token, _, err := c.Issue(id)
	return token, err
}

// Issue encodes id and also reports when the token stops being accepted.
func (c *SessionCodec) Issue(id *domain.UserIdentity) (string, time.Time, error) {
	if id == nil || id.UserID == "" || id.Username == "" || !id.Role.Valid() {
		return "", time.Time{}, fmt.Errorf("%w: cannot encode incomplete identity", domain.ErrInvalidInput)
	}
	now := c.now().Truncate(time.Second)
	expiresAt := now.Add(c.ttl)
	claims := sessionClaims{
		Username: id.Username,
		Role:     string(id.Role),
		FullName: id.FullName,
		Email:    id.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}
	return token, expiresAt, nil
}

// Decode parses a token produced by Encode. Every failure, including a
// missing, truncated, tampered or expired token, is a *domain.DecodeError.
func (c *SessionCodec) Decode(token string) (*domain.UserIdentity, error) {
	id, _, err := c.decode(token)
	return id, err
}

func (c *SessionCodec) decode(token string) (id *domain.UserIdentity, expiresAt time.Time, err error) {
	defer func() {
		if r := recover(); r != nil {
			id, expiresAt, err = nil, time.Time{}, &domain.DecodeError{Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	if token == "" {
		return nil, time.Time{}, &domain.DecodeError{Err: errors.New("empty token")}
	}

	var claims sessionClaims
	_, err = jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return nil, time.Time{}, &domain.DecodeError{Err: err}
	}

	role, err := domain.ParseRole(claims.Role)
	if err != nil {
		return nil, time.Time{}, &domain.DecodeError{Err: err}
	}
	if claims.Subject == "" || claims.Username == "" {
		return nil, time.Time{}, &domain.DecodeError{Err: errIncompleteIdentity}
	}

	return &domain.UserIdentity{
		UserID:   claims.Subject,
		Username: claims.Username,
		Role:     role,
		FullName: claims.FullName,
		Email:    claims.Email,
	}, claims.ExpiresAt.Time, nil
}

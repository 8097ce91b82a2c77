package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ahaarwise/internal/domain"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLen is the shortest password accepted for new accounts.
const MinPasswordLen = 8

// CredentialService verifies passwords against stored users and manages
// accounts. It is the CredentialStore the AuthService talks to.
type CredentialService struct {
	users domain.UserRepository
	cost  int
}

var _ domain.CredentialStore = (*CredentialService)(nil)

// NewCredentialService creates a credential service backed by users.
func NewCredentialService(users domain.UserRepository) *CredentialService {
	return &CredentialService{users: users, cost: bcrypt.DefaultCost}
}

// WithCost sets the bcrypt cost used for new password hashes.
func (s *CredentialService) WithCost(cost int) *CredentialService {
	s.cost = cost
	return s
}

// VerifyCredentials returns the user when password matches. Unknown users and
// wrong passwords both yield domain.ErrCredentialsRejected.
func (s *CredentialService) VerifyCredentials(ctx context.Context, username, password string) (*domain.UserRecord, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, domain.ErrCredentialsRejected
	}
	if err != nil {
		return nil, err
	}
	// SSO-provisioned accounts have no password.
	if user.PasswordHash == "" {
		return nil, domain.ErrCredentialsRejected
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrCredentialsRejected
	}
	return user, nil
}

// GetUserByID retrieves a user, or domain.ErrUserNotFound.
func (s *CredentialService) GetUserByID(ctx context.Context, id string) (*domain.UserRecord, error) {
	return s.users.GetByID(ctx, id)
}

// UpdateProfile stores profile changes for the user.
func (s *CredentialService) UpdateProfile(ctx context.Context, id string, p domain.ProfileUpdate) (*domain.UserRecord, error) {
	return s.users.UpdateProfile(ctx, id, p)
}

// CreateUser hashes password and stores a new account.
func (s *CredentialService) CreateUser(ctx context.Context, username, password string, role domain.Role, fullName, email string) (*domain.UserRecord, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", domain.ErrInvalidInput)
	}
	if len(password) < MinPasswordLen {
		return nil, fmt.Errorf("%w: password must be at least %d characters", domain.ErrInvalidInput, MinPasswordLen)
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidRole, role)
	}
	if fullName == "" {
		fullName = username
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, err
	}

	return s.users.Create(ctx, domain.NewUser{
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
		FullName:     fullName,
		Email:        email,
	})
}

// CreateInitialUser creates the first admin if no users exist.
func (s *CredentialService) CreateInitialUser(ctx context.Context, username, password, fullName string) (*domain.UserRecord, error) {
	count, err := s.users.Count(ctx)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, domain.ErrUsersExist
	}
	return s.CreateUser(ctx, username, password, domain.RoleAdmin, fullName, "")
}

// EnsureUser returns the SSO account named username, provisioning a
// password-less practitioner if it does not exist yet. A password account
// with the same name is never reused; that yields domain.ErrUserExists.
func (s *CredentialService) EnsureUser(ctx context.Context, username, fullName, email string) (*domain.UserRecord, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err == nil {
		return ssoAccount(user)
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	if fullName == "" {
		fullName = username
	}
	user, err = s.users.Create(ctx, domain.NewUser{
		Username: username,
		Role:     domain.RolePractitioner,
		FullName: fullName,
		Email:    email,
	})
	if errors.Is(err, domain.ErrUserExists) {
		// Lost a race with a concurrent first login.
		if user, err = s.users.GetByUsername(ctx, username); err != nil {
			return nil, err
		}
		return ssoAccount(user)
	}
	return user, err
}

func ssoAccount(user *domain.UserRecord) (*domain.UserRecord, error) {
	if user.PasswordHash != "" {
		return nil, fmt.Errorf("%w: %q is a password account", domain.ErrUserExists, user.Username)
	}
	return user, nil
}

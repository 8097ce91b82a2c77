// Package domain contains the core business entities and interfaces.
package domain

import (
	"context"
	"fmt"
	"time"
)

// Role is the closed set of account roles.
type Role string

const (
	RoleAdmin        Role = "admin"
	RolePractitioner Role = "practitioner"
	RoleAssistant    Role = "assistant"
)

// ParseRole converts s to a Role, rejecting anything outside the three known values.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleAdmin, RolePractitioner, RoleAssistant:
		return r, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

// UserRecord is a stored account, including password material.
type UserRecord struct {
	ID           string
	Username     string
	PasswordHash string
	Role         Role
	FullName     string
	Email        string
	Phone        string
	Bio          string
	CreatedAt    time.Time
}

// UserIdentity is the authenticated principal handed to the rest of the
// application. It never carries password material.
type UserIdentity struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
	FullName string `json:"fullName"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Bio      string `json:"bio,omitempty"`
}

// IdentityFromRecord builds the identity exposed for a stored user.
func IdentityFromRecord(u *UserRecord) *UserIdentity {
	return &UserIdentity{
		UserID:   u.ID,
		Username: u.Username,
		Role:     u.Role,
		FullName: u.FullName,
		Email:    u.Email,
		Phone:    u.Phone,
		Bio:      u.Bio,
	}
}

// ProfileUpdate holds the profile fields a user may change about themselves.
// Nil fields are left untouched.
type ProfileUpdate struct {
	FullName *string `json:"fullName,omitempty"`
	Email    *string `json:"email,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	Bio      *string `json:"bio,omitempty"`
}

// Apply merges the set fields of p into id.
func (p ProfileUpdate) Apply(id *UserIdentity) {
	if p.FullName != nil {
		id.FullName = *p.FullName
	}
	if p.Email != nil {
		id.Email = *p.Email
	}
	if p.Phone != nil {
		id.Phone = *p.Phone
	}
	if p.Bio != nil {
		id.Bio = *p.Bio
	}
}

// NewUser describes an account to be created.
type NewUser struct {
	Username     string
	PasswordHash string
	Role         Role
	FullName     string
	Email        string
}

// UserRepository defines the port for user persistence operations.
// Lookups return ErrUserNotFound when no row matches.
type UserRepository interface {
	GetByUsername(ctx context.Context, username string) (*UserRecord, error)
	GetByID(ctx context.Context, id string) (*UserRecord, error)
	Create(ctx context.Context, u NewUser) (*UserRecord, error)
	UpdateProfile(ctx context.Context, id string, p ProfileUpdate) (*UserRecord, error)
	Count(ctx context.Context) (int, error)
}

// CredentialStore is the service of record for usernames, passwords and roles.
//
// VerifyCredentials returns ErrCredentialsRejected when the username or
// password is wrong. Any other error is a transport failure.
type CredentialStore interface {
	VerifyCredentials(ctx context.Context, username, password string) (*UserRecord, error)
	GetUserByID(ctx context.Context, id string) (*UserRecord, error)
	UpdateProfile(ctx context.Context, id string, p ProfileUpdate) (*UserRecord, error)
}

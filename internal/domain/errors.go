package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrCredentialsRejected is returned by a CredentialStore when the username
	// or password is wrong. It is the only error that counts as a failed attempt.
	ErrCredentialsRejected = errors.New("credentials rejected")
	// ErrNotAuthenticated indicates that an operation needs a signed-in user.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrUserNotFound indicates that the user does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists indicates a username is already taken.
	ErrUserExists = errors.New("user already exists")
	// ErrUsersExist is returned when initial setup runs against a populated store.
	ErrUsersExist      = errors.New("users already exist")
	ErrInvalidRole     = errors.New("invalid role")
	ErrInvalidInput    = errors.New("invalid input")
	ErrForbidden       = errors.New("forbidden")
	ErrPatientNotFound = errors.New("patient not found")
)

// InvalidCredentialsError reports a rejected login that did not trigger a block.
type InvalidCredentialsError struct {
	AttemptsRemaining int
}

func (e *InvalidCredentialsError) Error() string {
	return fmt.Sprintf("invalid username or password (%d attempts remaining)", e.AttemptsRemaining)
}

// Unwrap lets callers match the rejection with errors.Is(err, ErrCredentialsRejected).
func (e *InvalidCredentialsError) Unwrap() error { return ErrCredentialsRejected }

// LockedOutError reports that login attempts are blocked for this client.
type LockedOutError struct {
	SecondsRemaining int
}

func (e *LockedOutError) Error() string {
	return fmt.Sprintf("too many failed login attempts, try again in %d seconds", e.SecondsRemaining)
}

// DecodeError is returned when a session token cannot be turned back into an
// identity. It always means "not authenticated".
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	if e.Err == nil {
		return "decode session token"
	}
	return "decode session token: " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error { return e.Err }

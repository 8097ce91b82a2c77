// Package postgres implements the domain repositories using PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"ahaarwise/internal/domain"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const userColumns = "id, username, password_hash, role, full_name, email, phone, bio, created_at"

// uniqueViolation is the PostgreSQL error code for unique_violation.
const uniqueViolation = "23505"

var _ domain.UserRepository = (*DB)(nil)

func scanUser(row interface{ Scan(...any) error }) (*domain.UserRecord, error) {
	var u domain.UserRecord
	var role string
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &role, &u.FullName, &u.Email, &u.Phone, &u.Bio, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	u.Role = domain.Role(role)
	return &u, nil
}

// GetByUsername retrieves a user by username.
func (d *DB) GetByUsername(ctx context.Context, username string) (*domain.UserRecord, error) {
	return scanUser(d.sql.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE username = $1",
		username,
	))
}

// GetByID retrieves a user by ID.
func (d *DB) GetByID(ctx context.Context, id string) (*domain.UserRecord, error) {
	return scanUser(d.sql.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = $1",
		id,
	))
}

// Create creates a new user.
func (d *DB) Create(ctx context.Context, nu domain.NewUser) (*domain.UserRecord, error) {
	u, err := scanUser(d.sql.QueryRowContext(ctx,
		"INSERT INTO users (id, username, password_hash, role, full_name, email, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING "+userColumns,
		uuid.NewString(), nu.Username, nu.PasswordHash, string(nu.Role), nu.FullName, nu.Email, time.Now().UTC(),
	))
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return nil, domain.ErrUserExists
	}
	return u, err
}

// UpdateProfile applies profile changes; unset fields keep their value.
func (d *DB) UpdateProfile(ctx context.Context, id string, p domain.ProfileUpdate) (*domain.UserRecord, error) {
	return scanUser(d.sql.QueryRowContext(ctx,
		`UPDATE users SET
			full_name = COALESCE($2, full_name),
			email = COALESCE($3, email),
			phone = COALESCE($4, phone),
			bio = COALESCE($5, bio)
		WHERE id = $1 RETURNING `+userColumns,
		id, nullString(p.FullName), nullString(p.Email), nullString(p.Phone), nullString(p.Bio),
	))
}

// Count returns the total number of users.
func (d *DB) Count(ctx context.Context) (int, error) {
	var count int
	err := d.sql.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count)
	return count, err
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

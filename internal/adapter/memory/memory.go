// Package memory implements in-memory adapters for development and testing.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"ahaarwise/internal/domain"

	"github.com/google/uuid"
)

// DB implements an in-memory database storage.
type DB struct {
	mu       sync.Mutex
	users    []*domain.UserRecord
	patients map[string]domain.Patient
}

// New creates a new in-memory database.
func New() *DB {
	return &DB{
		patients: make(map[string]domain.Patient),
	}
}

// Ensure interfaces are met.
var _ domain.UserRepository = (*DB)(nil)
var _ domain.PatientRepository = (*DB)(nil)

// --- UserRepository ---

// GetByUsername retrieves a user by username.
func (db *DB) GetByUsername(ctx context.Context, username string) (*domain.UserRecord, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

// GetByID retrieves a user by ID.
func (db *DB) GetByID(ctx context.Context, id string) (*domain.UserRecord, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if u := db.findUser(id); u != nil {
		cp := *u
		return &cp, nil
	}
	return nil, domain.ErrUserNotFound
}

// Create creates a new user.
func (db *DB) Create(ctx context.Context, nu domain.NewUser) (*domain.UserRecord, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.Username == nu.Username {
			return nil, domain.ErrUserExists
		}
	}

	u := &domain.UserRecord{
		ID:           uuid.NewString(),
		Username:     nu.Username,
		PasswordHash: nu.PasswordHash,
		Role:         nu.Role,
		FullName:     nu.FullName,
		Email:        nu.Email,
		CreatedAt:    time.Now().UTC(),
	}
	db.users = append(db.users, u)
	cp := *u
	return &cp, nil
}

// UpdateProfile applies profile changes to a user.
func (db *DB) UpdateProfile(ctx context.Context, id string, p domain.ProfileUpdate) (*domain.UserRecord, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	u := db.findUser(id)
	if u == nil {
		return nil, domain.ErrUserNotFound
	}
	if p.FullName != nil {
		u.FullName = *p.FullName
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Phone != nil {
		u.Phone = *p.Phone
	}
	if p.Bio != nil {
		u.Bio = *p.Bio
	}
	cp := *u
	return &cp, nil
}

// DeleteUser removes a user. Sessions referring to it stop resolving.
func (db *DB) DeleteUser(ctx context.Context, id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	for i, u := range db.users {
		if u.ID == id {
			db.users = append(db.users[:i], db.users[i+1:]...)
			return nil
		}
	}
	return domain.ErrUserNotFound
}

// Count returns the total number of users.
func (db *DB) Count(ctx context.Context) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.users), nil
}

func (db *DB) findUser(id string) *domain.UserRecord {
	for _, u := range db.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

// --- PatientRepository ---

// CreatePatient stores a new patient.
func (db *DB) CreatePatient(ctx context.Context, p *domain.Patient) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.patients[p.ID] = clonePatient(*p)
	return nil
}

// GetPatient returns a copy of the patient if it belongs to practitionerID.
func (db *DB) GetPatient(ctx context.Context, practitionerID, id string) (*domain.Patient, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	p, ok := db.patients[id]
	if !ok || p.PractitionerID != practitionerID {
		return nil, domain.ErrPatientNotFound
	}
	cp := clonePatient(p)
	return &cp, nil
}

// ListPatients lists a practitioner's patients, most recently updated first.
func (db *DB) ListPatients(ctx context.Context, practitionerID string, limit int) ([]domain.Patient, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	result := make([]domain.Patient, 0)
	for _, p := range db.patients {
		if p.PractitionerID == practitionerID {
			result = append(result, clonePatient(p))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// UpdatePatient replaces a stored patient.
func (db *DB) UpdatePatient(ctx context.Context, p *domain.Patient) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	old, ok := db.patients[p.ID]
	if !ok || old.PractitionerID != p.PractitionerID {
		return domain.ErrPatientNotFound
	}
	db.patients[p.ID] = clonePatient(*p)
	return nil
}

// DeletePatient removes a patient.
func (db *DB) DeletePatient(ctx context.Context, practitionerID, id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	p, ok := db.patients[id]
	if !ok || p.PractitionerID != practitionerID {
		return domain.ErrPatientNotFound
	}
	delete(db.patients, id)
	return nil
}

func clonePatient(p domain.Patient) domain.Patient {
	p.Conditions = append([]string(nil), p.Conditions...)
	return p
}

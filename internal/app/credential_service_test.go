package app

import (
	"context"
	"errors"
	"testing"

	"ahaarwise/internal/adapter/memory"
	"ahaarwise/internal/domain"

	"golang.org/x/crypto/bcrypt"
)

type mockUserRepo struct {
	getByUsernameFn func(ctx context.Context, username string) (*domain.UserRecord, error)
	createFn        func(ctx context.Context, nu domain.NewUser) (*domain.UserRecord, error)
	countFn         func(ctx context.Context) (int, error)
}

func (m *mockUserRepo) GetByUsername(ctx context.Context, username string) (*domain.UserRecord, error) {
	if m.getByUsernameFn != nil {
		return m.getByUsernameFn(ctx, username)
	}
	return nil, domain.ErrUserNotFound
}

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*domain.UserRecord, error) {
	return nil, domain.ErrUserNotFound
}

func (m *mockUserRepo) Create(ctx context.Context, nu domain.NewUser) (*domain.UserRecord, error) {
	if m.createFn != nil {
		return m.createFn(ctx, nu)
	}
	return &domain.UserRecord{ID: "u1", Username: nu.Username, PasswordHash: nu.PasswordHash, Role: nu.Role}, nil
}

func (m *mockUserRepo) UpdateProfile(ctx context.Context, id string, p domain.ProfileUpdate) (*domain.UserRecord, error) {
	return nil, domain.ErrUserNotFound
}

func (m *mockUserRepo) Count(ctx context.Context) (int, error) {
	if m.countFn != nil {
		return m.countFn(ctx)
	}
	return 0, nil
}

func TestCredentialService_VerifyCredentials(t *testing.T) {
	ctx := context.Background()
	creds, db := seededCreds(t)
	if _, err := db.Create(ctx, domain.NewUser{Username: "sso-user", Role: domain.RolePractitioner}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	tests := []struct {
		name     string
		username string
		password string
		wantErr  error
	}{
		{"valid", "admin", "admin123", nil},
		{"wrong password", "admin", "admin124", domain.ErrCredentialsRejected},
		{"unknown user", "nobody", "admin123", domain.ErrCredentialsRejected},
		{"empty password", "admin", "", domain.ErrCredentialsRejected},
		{"passwordless account", "sso-user", "", domain.ErrCredentialsRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := creds.VerifyCredentials(ctx, tt.username, tt.password)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if tt.wantErr == nil && u.Username != tt.username {
				t.Errorf("expected %s, got %s", tt.username, u.Username)
			}
		})
	}
}

func TestCredentialService_VerifyCredentials_RepositoryError(t *testing.T) {
	down := errors.New("db down")
	creds := NewCredentialService(&mockUserRepo{
		getByUsernameFn: func(ctx context.Context, username string) (*domain.UserRecord, error) {
			return nil, down
		},
	})

	_, err := creds.VerifyCredentials(context.Background(), "admin", "admin123")
	if !errors.Is(err, down) {
		t.Fatalf("expected repository error, got %v", err)
	}
	if errors.Is(err, domain.ErrCredentialsRejected) {
		t.Error("repository error must not be reported as a rejection")
	}
}

func TestCredentialService_CreateUser(t *testing.T) {
	ctx := context.Background()

	var created domain.NewUser
	creds := NewCredentialService(&mockUserRepo{
		createFn: func(ctx context.Context, nu domain.NewUser) (*domain.UserRecord, error) {
			created = nu
			return &domain.UserRecord{ID: "u1", Username: nu.Username, Role: nu.Role, FullName: nu.FullName}, nil
		},
	})
	creds.cost = bcrypt.MinCost

	u, err := creds.CreateUser(ctx, "  asha  ", "password1", domain.RoleAssistant, "", "")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.Username != "asha" || created.FullName != "asha" {
		t.Errorf("unexpected user %+v", created)
	}
	if bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte("password1")) != nil {
		t.Error("stored hash does not match password")
	}

	tests := []struct {
		name     string
		username string
		password string
		role     domain.Role
		wantErr  error
	}{
		{"empty username", " ", "password1", domain.RoleAdmin, domain.ErrInvalidInput},
		{"short password", "bob", "short", domain.RoleAdmin, domain.ErrInvalidInput},
		{"unknown role", "bob", "password1", "owner", domain.ErrInvalidRole},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := creds.CreateUser(ctx, tt.username, tt.password, tt.role, "", ""); !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestCredentialService_CreateInitialUser(t *testing.T) {
	ctx := context.Background()
	db := memory.New()
	creds := NewCredentialService(db)
	creds.cost = bcrypt.MinCost

	u, err := creds.CreateInitialUser(ctx, "admin", "admin123", "Administrator")
	if err != nil {
		t.Fatalf("CreateInitialUser: %v", err)
	}
	if u.Role != domain.RoleAdmin {
		t.Errorf("expected admin role, got %s", u.Role)
	}

	if _, err := creds.CreateInitialUser(ctx, "other", "password1", ""); !errors.Is(err, domain.ErrUsersExist) {
		t.Errorf("expected ErrUsersExist, got %v", err)
	}
}

func TestCredentialService_EnsureUser(t *testing.T) {
	ctx := context.Background()
	creds, _ := seededCreds(t)

	// A password account is never handed to an SSO identity.
	if u, err := creds.EnsureUser(ctx, "admin", "Mallory", "mallory@evil.test"); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists for password account, got %+v, %v", u, err)
	}

	created, err := creds.EnsureUser(ctx, "meera@example.com", "Meera Iyer", "meera@example.com")
	if err != nil {
		t.Fatalf("EnsureUser new: %v", err)
	}
	if created.Role != domain.RolePractitioner || created.PasswordHash != "" || created.FullName != "Meera Iyer" {
		t.Errorf("unexpected provisioned user %+v", created)
	}

	// The provisioned account cannot sign in with a password.
	if _, err := creds.VerifyCredentials(ctx, "meera@example.com", ""); !errors.Is(err, domain.ErrCredentialsRejected) {
		t.Errorf("expected ErrCredentialsRejected, got %v", err)
	}

	again, err := creds.EnsureUser(ctx, "meera@example.com", "", "")
	if err != nil {
		t.Fatalf("EnsureUser returning: %v", err)
	}
	if again.ID != created.ID {
		t.Errorf("expected the provisioned account to be reused, got %+v", again)
	}
}

func TestCredentialService_EnsureUser_Race(t *testing.T) {
	calls := 0
	creds := NewCredentialService(&mockUserRepo{
		getByUsernameFn: func(ctx context.Context, username string) (*domain.UserRecord, error) {
			calls++
			if calls == 1 {
				return nil, domain.ErrUserNotFound
			}
			return &domain.UserRecord{ID: "u9", Username: username, Role: domain.RolePractitioner}, nil
		},
		createFn: func(ctx context.Context, nu domain.NewUser) (*domain.UserRecord, error) {
			return nil, domain.ErrUserExists
		},
	})

	u, err := creds.EnsureUser(context.Background(), "late", "", "")
	if err != nil {
		t.Fatalf("EnsureUser: %v", err)
	}
	if u.ID != "u9" {
		t.Errorf("expected the concurrently created user, got %+v", u)
	}
}

func TestCredentialService_EnsureUser_RaceWithPasswordAccount(t *testing.T) {
	calls := 0
	creds := NewCredentialService(&mockUserRepo{
		getByUsernameFn: func(ctx context.Context, username string) (*domain.UserRecord, error) {
			calls++
			if calls == 1 {
				return nil, domain.ErrUserNotFound
			}
			return &domain.UserRecord{ID: "u9", Username: username, PasswordHash: "hash", Role: domain.RoleAdmin}, nil
		},
		createFn: func(ctx context.Context, nu domain.NewUser) (*domain.UserRecord, error) {
			return nil, domain.ErrUserExists
		},
	})

	if _, err := creds.EnsureUser(context.Background(), "late", "", ""); !errors.Is(err, domain.ErrUserExists) {
		t.Errorf("expected ErrUserExists, got %v", err)
	}
}

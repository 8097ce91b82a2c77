package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"ahaarwise/internal/domain"
)

func TestUserRepository(t *testing.T) {
	db := New()
	ctx := context.Background()

	u, err := db.Create(ctx, domain.NewUser{Username: "bob", PasswordHash: "hash", Role: domain.RolePractitioner, FullName: "Bob"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if u.Username != "bob" || u.ID == "" {
		t.Errorf("unexpected user %+v", u)
	}

	if _, err := db.Create(ctx, domain.NewUser{Username: "bob"}); !errors.Is(err, domain.ErrUserExists) {
		t.Errorf("expected ErrUserExists, got %v", err)
	}

	got, err := db.GetByUsername(ctx, "bob")
	if err != nil {
		t.Fatalf("GetByUsername: %v", err)
	}
	if got.ID != u.ID {
		t.Errorf("expected id %s, got %s", u.ID, got.ID)
	}

	if _, err := db.GetByUsername(ctx, "alice"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}

	phone := "555-0100"
	updated, err := db.UpdateProfile(ctx, u.ID, domain.ProfileUpdate{Phone: &phone})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if updated.Phone != phone || updated.FullName != "Bob" {
		t.Errorf("unexpected profile %+v", updated)
	}

	// Returned records are copies.
	got.FullName = "mutated"
	again, _ := db.GetByID(ctx, u.ID)
	if again.FullName != "Bob" {
		t.Errorf("repository state leaked through returned pointer")
	}

	count, _ := db.Count(ctx)
	if count != 1 {
		t.Errorf("expected 1 user, got %d", count)
	}

	if err := db.DeleteUser(ctx, u.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if _, err := db.GetByID(ctx, u.ID); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound after delete, got %v", err)
	}
}

func TestPatientRepository(t *testing.T) {
	db := New()
	ctx := context.Background()
	now := time.Now()

	p1 := &domain.Patient{ID: "p1", PractitionerID: "doc", Name: "Asha", Conditions: []string{"acidity"}, UpdatedAt: now}
	p2 := &domain.Patient{ID: "p2", PractitionerID: "doc", Name: "Ravi", UpdatedAt: now.Add(time.Minute)}
	p3 := &domain.Patient{ID: "p3", PractitionerID: "other", Name: "Mina", UpdatedAt: now}
	for _, p := range []*domain.Patient{p1, p2, p3} {
		if err := db.CreatePatient(ctx, p); err != nil {
			t.Fatalf("CreatePatient: %v", err)
		}
	}

	list, err := db.ListPatients(ctx, "doc", 10)
	if err != nil {
		t.Fatalf("ListPatients: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 patients, got %d", len(list))
	}
	if list[0].ID != "p2" {
		t.Errorf("expected most recently updated first, got %s", list[0].ID)
	}

	limited, _ := db.ListPatients(ctx, "doc", 1)
	if len(limited) != 1 {
		t.Errorf("expected limit to apply, got %d", len(limited))
	}

	// Other practitioner cannot see or touch p1.
	if _, err := db.GetPatient(ctx, "other", "p1"); !errors.Is(err, domain.ErrPatientNotFound) {
		t.Errorf("expected ErrPatientNotFound, got %v", err)
	}
	if err := db.DeletePatient(ctx, "other", "p1"); !errors.Is(err, domain.ErrPatientNotFound) {
		t.Errorf("expected ErrPatientNotFound, got %v", err)
	}

	got, _ := db.GetPatient(ctx, "doc", "p1")
	got.Conditions[0] = "mutated"
	again, _ := db.GetPatient(ctx, "doc", "p1")
	if again.Conditions[0] != "acidity" {
		t.Error("repository state leaked through returned slice")
	}

	again.Name = "Asha K"
	if err := db.UpdatePatient(ctx, again); err != nil {
		t.Fatalf("UpdatePatient: %v", err)
	}
	updated, _ := db.GetPatient(ctx, "doc", "p1")
	if updated.Name != "Asha K" {
		t.Errorf("expected updated name, got %s", updated.Name)
	}

	if err := db.DeletePatient(ctx, "doc", "p1"); err != nil {
		t.Fatalf("DeletePatient: %v", err)
	}
	if _, err := db.GetPatient(ctx, "doc", "p1"); !errors.Is(err, domain.ErrPatientNotFound) {
		t.Errorf("expected ErrPatientNotFound after delete, got %v", err)
	}
}

func TestStoreExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewStore().WithClock(func() time.Time { return now })

	_ = s.Set(ctx, "a", "1", time.Minute)
	_ = s.Set(ctx, "b", "2", 0)

	if v, err := s.Get(ctx, "a"); err != nil || v != "1" {
		t.Fatalf("Get a = %q, %v", v, err)
	}

	now = now.Add(time.Minute)
	if _, err := s.Get(ctx, "a"); !errors.Is(err, domain.ErrKeyNotFound) {
		t.Errorf("expected a to expire, got %v", err)
	}
	if v, err := s.Get(ctx, "b"); err != nil || v != "2" {
		t.Errorf("expected b to persist, got %q, %v", v, err)
	}

	if err := s.Delete(ctx, "b", "missing"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("expected empty store, got %d keys", s.Len())
	}
}

func TestCookieJar(t *testing.T) {
	var j CookieJar
	if _, ok := j.Get(); ok {
		t.Fatal("new jar should be empty")
	}
	exp := time.Now().Add(time.Hour)
	j.Set("tok", exp)
	if v, ok := j.Get(); !ok || v != "tok" {
		t.Errorf("Get = %q, %v", v, ok)
	}
	if !j.ExpiresAt().Equal(exp) {
		t.Errorf("unexpected expiry %v", j.ExpiresAt())
	}
	j.Delete()
	if _, ok := j.Get(); ok {
		t.Error("jar should be empty after Delete")
	}
}

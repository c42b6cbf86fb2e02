package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/medtalks/medtalks-api/internal/models"
)

func TestMemory_CreateDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if err := m.Create(ctx, &models.Account{Email: "a@x.com"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := m.Create(ctx, &models.Account{Email: "a@x.com"}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("Create() duplicate error = %v, want ErrDuplicate", err)
	}
}

func TestMemory_FindByResetToken(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	acc := &models.Account{Email: "a@x.com"}
	if err := m.Create(ctx, acc); err != nil {
		t.Fatal(err)
	}
	if err := m.IssueResetToken(ctx, acc.ID.Hex(), "tok", now.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		token   string
		at      time.Time
		wantErr bool
	}{
		{"live", "tok", now, false},
		{"wrong token", "tok2", now, true},
		{"empty token", "", now, true},
		{"exactly at expiry", "tok", now.Add(time.Hour), true},
		{"after expiry", "tok", now.Add(2 * time.Hour), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.FindByResetToken(ctx, tt.token, tt.at)
			if (err != nil) != tt.wantErr {
				t.Errorf("FindByResetToken() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMemory_RedeemResetTokenIsSingleUse(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Now()
	acc := &models.Account{Email: "a@x.com", PasswordState: models.PasswordUnset}
	if err := m.Create(ctx, acc); err != nil {
		t.Fatal(err)
	}
	if err := m.IssueResetToken(ctx, acc.ID.Hex(), "tok", now.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}

	got, err := m.RedeemResetToken(ctx, "tok", now, "hash")
	if err != nil {
		t.Fatalf("RedeemResetToken() error = %v", err)
	}
	if got.Password != "hash" || got.PasswordState != models.PasswordSet || got.ResetToken != "" || got.ResetTokenExpiry != nil {
		t.Errorf("RedeemResetToken() = %+v", got)
	}
	if _, err := m.RedeemResetToken(ctx, "tok", now, "hash2"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second RedeemResetToken() error = %v, want ErrNotFound", err)
	}
}

func TestMemory_EnsureProfileOnce(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	owner := primitive.NewObjectID()

	first, created, err := m.Ensure(ctx, models.DoctorProfile, &models.Profile{User: owner, Name: "Dr. A"})
	if err != nil || !created {
		t.Fatalf("Ensure() = %v, %v, %v", first, created, err)
	}
	second, created, err := m.Ensure(ctx, models.DoctorProfile, &models.Profile{User: owner, Name: "Dr. B"})
	if err != nil || created {
		t.Fatalf("second Ensure() created = %v, err = %v", created, err)
	}
	if second.ID != first.ID || second.Name != "Dr. A" {
		t.Errorf("second Ensure() = %+v, want original profile", second)
	}
	if n := m.CountProfiles(models.DoctorProfile, owner); n != 1 {
		t.Errorf("CountProfiles() = %d, want 1", n)
	}
}

func TestMemory_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	a := &models.Account{Email: "a@x.com", Name: "A"}
	b := &models.Account{Email: "b@x.com", Name: "B"}
	_ = m.Create(ctx, a)
	_ = m.Create(ctx, b)

	taken := "b@x.com"
	if _, err := m.Update(ctx, a.ID.Hex(), AccountUpdate{Email: &taken}); !errors.Is(err, ErrDuplicate) {
		t.Errorf("Update() error = %v, want ErrDuplicate", err)
	}
	name := "Alice"
	got, err := m.Update(ctx, a.ID.Hex(), AccountUpdate{Name: &name})
	if err != nil || got.Name != "Alice" || got.Email != "a@x.com" {
		t.Errorf("Update() = %+v, %v", got, err)
	}

	if err := m.Delete(ctx, a.ID.Hex()); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := m.FindByID(ctx, a.ID.Hex()); !errors.Is(err, ErrNotFound) {
		t.Errorf("FindByID() after delete error = %v", err)
	}
	if err := m.Delete(ctx, "not-an-id"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete(malformed) error = %v", err)
	}
}

func TestMemory_PurgeExpiredResetTokens(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Now()
	stale := &models.Account{Email: "old@x.com"}
	fresh := &models.Account{Email: "new@x.com"}
	_ = m.Create(ctx, stale)
	_ = m.Create(ctx, fresh)
	_ = m.IssueResetToken(ctx, stale.ID.Hex(), "old", now.Add(-time.Minute))
	_ = m.IssueResetToken(ctx, fresh.ID.Hex(), "new", now.Add(time.Hour))

	n, err := m.PurgeExpiredResetTokens(ctx, now)
	if err != nil || n != 1 {
		t.Fatalf("PurgeExpiredResetTokens() = %d, %v; want 1", n, err)
	}
	if _, err := m.FindByResetToken(ctx, "new", now); err != nil {
		t.Errorf("live token purged: %v", err)
	}
}

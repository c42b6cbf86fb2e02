package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/medtalks/medtalks-api/internal/models"
)

// newTestDB connects to MONGO_TEST_URI and returns a throwaway database with
// indexes applied. Tests are skipped when the variable is unset.
func newTestDB(t *testing.T) *mongo.Database {
	t.Helper()
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}
	ctx := context.Background()
	name := fmt.Sprintf("medtalks_test_%d", time.Now().UnixNano())
	client, db, err := Connect(ctx, uri, name)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})
	if err := EnsureIndexes(ctx, db); err != nil {
		t.Fatalf("EnsureIndexes() error = %v", err)
	}
	return db
}

// mongo keeps millisecond precision
func testNow() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func TestMongoAccounts_CreateDuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	s := NewMongoAccounts(db)

	if err := s.Create(ctx, &models.Account{Email: "a@x.com"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := s.Create(ctx, &models.Account{Email: "a@x.com"}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("Create() duplicate error = %v, want ErrDuplicate", err)
	}
}

func TestMongoAccounts_TokenInsertedWithAccount(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	s := NewMongoAccounts(db)
	now := testNow()
	expiry := now.Add(time.Hour)

	acc := &models.Account{Email: "a@x.com", ResetToken: "tok", ResetTokenExpiry: &expiry}
	if err := s.Create(ctx, acc); err != nil {
		t.Fatal(err)
	}
	got, err := s.FindByResetToken(ctx, "tok", now)
	if err != nil || got.ID != acc.ID {
		t.Fatalf("FindByResetToken() = %+v, %v", got, err)
	}
}

func TestMongoAccounts_RedeemResetToken(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	s := NewMongoAccounts(db)
	now := testNow()

	acc := &models.Account{Email: "a@x.com", PasswordState: models.PasswordUnset}
	if err := s.Create(ctx, acc); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Approve(ctx, acc.ID.Hex(), "tok", now.Add(time.Hour)); err != nil {
		t.Fatalf("Approve() error = %v", err)
	}

	if _, err := s.RedeemResetToken(ctx, "tok", now.Add(time.Hour), "hash"); !errors.Is(err, ErrNotFound) {
		t.Errorf("RedeemResetToken(at expiry) error = %v, want ErrNotFound", err)
	}

	got, err := s.RedeemResetToken(ctx, "tok", now, "hash")
	if err != nil {
		t.Fatalf("RedeemResetToken() error = %v", err)
	}
	if got.Password != "hash" || got.PasswordState != models.PasswordSet || got.ResetToken != "" || got.ResetTokenExpiry != nil {
		t.Errorf("redeemed account = %+v", got)
	}
	if !got.IsApproved {
		t.Error("redeem cleared approval")
	}

	if _, err := s.RedeemResetToken(ctx, "tok", now, "other"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second RedeemResetToken() error = %v, want ErrNotFound", err)
	}
}

func TestMongoAccounts_RedeemResetTokenConcurrent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	s := NewMongoAccounts(db)
	now := testNow()

	acc := &models.Account{Email: "a@x.com"}
	if err := s.Create(ctx, acc); err != nil {
		t.Fatal(err)
	}
	if err := s.IssueResetToken(ctx, acc.ID.Hex(), "tok", now.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}

	const n = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := s.RedeemResetToken(ctx, "tok", now, fmt.Sprintf("hash-%d", i)); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	if wins != 1 {
		t.Errorf("successful redeems = %d, want 1", wins)
	}
}

func TestMongoAccounts_PurgeExpiredResetTokens(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	s := NewMongoAccounts(db)
	now := testNow()

	stale := &models.Account{Email: "stale@x.com"}
	fresh := &models.Account{Email: "fresh@x.com"}
	for _, a := range []*models.Account{stale, fresh} {
		if err := s.Create(ctx, a); err != nil {
			t.Fatal(err)
		}
	}
	_ = s.IssueResetToken(ctx, stale.ID.Hex(), "old", now.Add(-time.Minute))
	_ = s.IssueResetToken(ctx, fresh.ID.Hex(), "new", now.Add(time.Hour))

	n, err := s.PurgeExpiredResetTokens(ctx, now)
	if err != nil || n != 1 {
		t.Fatalf("PurgeExpiredResetTokens() = %d, %v, want 1", n, err)
	}
	got, _ := s.FindByID(ctx, stale.ID.Hex())
	if got.ResetToken != "" || got.ResetTokenExpiry != nil {
		t.Errorf("stale account kept token %q", got.ResetToken)
	}
	if _, err := s.FindByResetToken(ctx, "new", now); err != nil {
		t.Errorf("fresh token purged: %v", err)
	}
}

func TestMongoProfiles_EnsureIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	accounts, profiles := NewMongoAccounts(db), NewMongoProfiles(db)

	acc := &models.Account{Email: "a@x.com", Role: models.RoleDoctor}
	if err := accounts.Create(ctx, acc); err != nil {
		t.Fatal(err)
	}

	first, created, err := profiles.Ensure(ctx, models.DoctorProfile, &models.Profile{User: acc.ID, Name: "Dr. A", Email: "a@x.com"})
	if err != nil || !created {
		t.Fatalf("Ensure() = %v, %v, want created", created, err)
	}
	second, created, err := profiles.Ensure(ctx, models.DoctorProfile, &models.Profile{User: acc.ID, Name: "Renamed", Email: "a@x.com"})
	if err != nil || created {
		t.Fatalf("second Ensure() = %v, %v, want existing", created, err)
	}
	if second.ID != first.ID || second.Name != "Dr. A" {
		t.Errorf("second Ensure() = %+v, want untouched %+v", second, first)
	}
	count, err := db.Collection(string(models.DoctorProfile)).CountDocuments(ctx, bson.M{"user": acc.ID})
	if err != nil || count != 1 {
		t.Errorf("profiles = %d, %v, want 1", count, err)
	}
}

func TestMongoProfiles_EnsureConcurrent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	accounts, profiles := NewMongoAccounts(db), NewMongoProfiles(db)

	acc := &models.Account{Email: "t@x.com", Role: models.RoleTrainer}
	if err := accounts.Create(ctx, acc); err != nil {
		t.Fatal(err)
	}

	const n = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		errs    []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := profiles.Ensure(ctx, models.TrainerProfile, &models.Profile{User: acc.ID, Email: "t@x.com"})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
			}
			if ok {
				created++
			}
		}()
	}
	wg.Wait()
	if len(errs) > 0 {
		t.Fatalf("Ensure() errors = %v", errs)
	}
	if created != 1 {
		t.Errorf("created = %d, want 1", created)
	}
	count, _ := db.Collection(string(models.TrainerProfile)).CountDocuments(ctx, bson.M{"user": acc.ID})
	if count != 1 {
		t.Errorf("profiles = %d, want 1", count)
	}
}

func TestMongoProfiles_EnsureEmailConflict(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	accounts, profiles := NewMongoAccounts(db), NewMongoProfiles(db)

	a := &models.Account{Email: "a@x.com"}
	b := &models.Account{Email: "b@x.com"}
	for _, acc := range []*models.Account{a, b} {
		if err := accounts.Create(ctx, acc); err != nil {
			t.Fatal(err)
		}
	}
	if _, _, err := profiles.Ensure(ctx, models.DoctorProfile, &models.Profile{User: a.ID, Email: "shared@x.com"}); err != nil {
		t.Fatal(err)
	}
	if _, _, err := profiles.Ensure(ctx, models.DoctorProfile, &models.Profile{User: b.ID, Email: "shared@x.com"}); !errors.Is(err, ErrDuplicate) {
		t.Errorf("Ensure() error = %v, want ErrDuplicate", err)
	}
	if _, err := profiles.FindByAccount(ctx, models.DoctorProfile, b.ID.Hex()); !errors.Is(err, ErrNotFound) {
		t.Errorf("FindByAccount() error = %v, want ErrNotFound", err)
	}
}

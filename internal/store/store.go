// Package store persists accounts and role profiles.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/medtalks/medtalks-api/internal/models"
)

var (
	ErrNotFound  = errors.New("document not found")
	ErrDuplicate = errors.New("duplicate key")
)

const (
	AccountsCollection = "users"
)

// AccountUpdate carries the fields an administrator may edit. Nil fields are left unchanged.
type AccountUpdate struct {
	Name  *string
	Email *string
}

type AccountStore interface {
	Create(ctx context.Context, acc *models.Account) error
	FindByID(ctx context.Context, id string) (*models.Account, error)
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	// FindByResetToken returns the account holding token when its expiry is strictly after now.
	FindByResetToken(ctx context.Context, token string, now time.Time) (*models.Account, error)
	ListPending(ctx context.Context) ([]models.Account, error)
	ListAll(ctx context.Context) ([]models.Account, error)
	// Approve marks the account approved and stores a fresh reset token, replacing any previous one.
	Approve(ctx context.Context, id string, token string, expiry time.Time) (*models.Account, error)
	// IssueResetToken stores a fresh reset token without touching approval state.
	IssueResetToken(ctx context.Context, id string, token string, expiry time.Time) error
	// RedeemResetToken atomically swaps a live token for a password hash and clears the token.
	RedeemResetToken(ctx context.Context, token string, now time.Time, passwordHash string) (*models.Account, error)
	Update(ctx context.Context, id string, upd AccountUpdate) (*models.Account, error)
	Delete(ctx context.Context, id string) error
	// PurgeExpiredResetTokens removes tokens whose expiry is at or before now.
	PurgeExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
}

type ProfileStore interface {
	// Ensure creates p under kind unless a profile already references p.User.
	// It returns the stored profile and whether this call created it.
	Ensure(ctx context.Context, kind models.ProfileKind, p *models.Profile) (*models.Profile, bool, error)
	FindByAccount(ctx context.Context, kind models.ProfileKind, accountID string) (*models.Profile, error)
}

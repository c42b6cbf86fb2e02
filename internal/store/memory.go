package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/medtalks/medtalks-api/internal/models"
)

// Memory is an in-process driver implementing both AccountStore and
// ProfileStore with the same uniqueness rules as the MongoDB indexes.
// Used for local development (STORE_DRIVER=memory) and tests.
type Memory struct {
	mu       sync.Mutex
	accounts map[primitive.ObjectID]models.Account
	profiles map[models.ProfileKind]map[primitive.ObjectID]models.Profile
}

func NewMemory() *Memory {
	return &Memory{
		accounts: make(map[primitive.ObjectID]models.Account),
		profiles: map[models.ProfileKind]map[primitive.ObjectID]models.Profile{
			models.DoctorProfile:  {},
			models.TrainerProfile: {},
		},
	}
}

func (m *Memory) Create(_ context.Context, acc *models.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.Email == acc.Email {
			return ErrDuplicate
		}
	}
	if acc.ID.IsZero() {
		acc.ID = primitive.NewObjectID()
	}
	m.accounts[acc.ID] = *acc
	return nil
}

func (m *Memory) FindByID(_ context.Context, id string) (*models.Account, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[oid]
	if !ok {
		return nil, ErrNotFound
	}
	return &acc, nil
}

func (m *Memory) FindByEmail(_ context.Context, email string) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.Email == email {
			acc := a
			return &acc, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) FindByResetToken(_ context.Context, token string, now time.Time) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.liveToken(token, now)
	if !ok {
		return nil, ErrNotFound
	}
	return &acc, nil
}

func (m *Memory) liveToken(token string, now time.Time) (models.Account, bool) {
	if token == "" {
		return models.Account{}, false
	}
	for _, a := range m.accounts {
		if a.ResetToken == token && a.ResetTokenExpiry != nil && a.ResetTokenExpiry.After(now) {
			return a, true
		}
	}
	return models.Account{}, false
}

func (m *Memory) ListPending(_ context.Context) ([]models.Account, error) {
	return m.list(func(a models.Account) bool { return !a.IsApproved }), nil
}

func (m *Memory) ListAll(_ context.Context) ([]models.Account, error) {
	return m.list(func(models.Account) bool { return true }), nil
}

func (m *Memory) list(keep func(models.Account) bool) []models.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		if keep(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *Memory) Approve(_ context.Context, id string, token string, expiry time.Time) (*models.Account, error) {
	return m.mutate(id, func(a *models.Account) error {
		a.IsApproved = true
		a.ResetToken = token
		a.ResetTokenExpiry = &expiry
		return nil
	})
}

func (m *Memory) IssueResetToken(_ context.Context, id string, token string, expiry time.Time) error {
	_, err := m.mutate(id, func(a *models.Account) error {
		a.ResetToken = token
		a.ResetTokenExpiry = &expiry
		return nil
	})
	return err
}

func (m *Memory) RedeemResetToken(_ context.Context, token string, now time.Time, passwordHash string) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.liveToken(token, now)
	if !ok {
		return nil, ErrNotFound
	}
	acc.Password = passwordHash
	acc.PasswordState = models.PasswordSet
	acc.ResetToken = ""
	acc.ResetTokenExpiry = nil
	m.accounts[acc.ID] = acc
	return &acc, nil
}

func (m *Memory) Update(_ context.Context, id string, upd AccountUpdate) (*models.Account, error) {
	return m.mutate(id, func(a *models.Account) error {
		if upd.Email != nil && *upd.Email != a.Email {
			for _, other := range m.accounts {
				if other.Email == *upd.Email {
					return ErrDuplicate
				}
			}
			a.Email = *upd.Email
		}
		if upd.Name != nil {
			a.Name = *upd.Name
		}
		return nil
	})
}

// mutate applies fn to a copy of the account and stores it only when fn succeeds.
func (m *Memory) mutate(id string, fn func(*models.Account) error) (*models.Account, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[oid]
	if !ok {
		return nil, ErrNotFound
	}
	if err := fn(&acc); err != nil {
		return nil, err
	}
	m.accounts[oid] = acc
	return &acc, nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[oid]; !ok {
		return ErrNotFound
	}
	delete(m.accounts, oid)
	return nil
}

func (m *Memory) PurgeExpiredResetTokens(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, a := range m.accounts {
		if a.ResetTokenExpiry != nil && !a.ResetTokenExpiry.After(now) {
			a.ResetToken = ""
			a.ResetTokenExpiry = nil
			m.accounts[id] = a
			n++
		}
	}
	return n, nil
}

func (m *Memory) Ensure(_ context.Context, kind models.ProfileKind, p *models.Profile) (*models.Profile, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	coll, ok := m.profiles[kind]
	if !ok {
		coll = make(map[primitive.ObjectID]models.Profile)
		m.profiles[kind] = coll
	}
	for _, existing := range coll {
		if existing.User == p.User {
			stored := existing
			return &stored, false, nil
		}
	}
	if p.Email != "" {
		for _, existing := range coll {
			if existing.Email == p.Email {
				return nil, false, ErrDuplicate
			}
		}
	}
	stored := *p
	stored.ID = primitive.NewObjectID()
	coll[stored.ID] = stored
	return &stored, true, nil
}

func (m *Memory) FindByAccount(_ context.Context, kind models.ProfileKind, accountID string) (*models.Profile, error) {
	oid, err := primitive.ObjectIDFromHex(accountID)
	if err != nil {
		return nil, ErrNotFound
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.profiles[kind] {
		if p.User == oid {
			stored := p
			return &stored, nil
		}
	}
	return nil, ErrNotFound
}

// CountProfiles returns how many profiles of kind reference accountID.
func (m *Memory) CountProfiles(kind models.ProfileKind, accountID primitive.ObjectID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, p := range m.profiles[kind] {
		if p.User == accountID {
			n++
		}
	}
	return n
}

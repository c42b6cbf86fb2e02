package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/medtalks/medtalks-api/internal/models"
	"github.com/medtalks/medtalks-api/internal/store"
	"github.com/medtalks/medtalks-api/internal/utils"
	"github.com/medtalks/medtalks-api/internal/validation"
)

type PasswordHasher interface {
	Hash(password string) (string, error)
	Check(password, hash string) bool
}

type SessionIssuer interface {
	Generate(accountID, role string) (string, time.Time, error)
	Validate(token string) (*utils.Claims, error)
}

type Notifier interface {
	SendWelcomeEmail(ctx context.Context, acc *models.Account, token string, ttl time.Duration) Delivery
}

// AuthService owns the account lifecycle: registration, approval, password
// reset and session issuance.
type AuthService struct {
	accounts store.AccountStore
	profiles store.ProfileStore
	hasher   PasswordHasher
	sessions SessionIssuer
	notifier Notifier
	logger   *logrus.Logger
	resetTTL time.Duration
	now      func() time.Time
}

func NewAuthService(
	accounts store.AccountStore,
	profiles store.ProfileStore,
	hasher PasswordHasher,
	sessions SessionIssuer,
	notifier Notifier,
	logger *logrus.Logger,
	resetTTL time.Duration,
) *AuthService {
	return &AuthService{
		accounts: accounts,
		profiles: profiles,
		hasher:   hasher,
		sessions: sessions,
		notifier: notifier,
		logger:   logger,
		resetTTL: resetTTL,
		now:      time.Now,
	}
}

// RegistrationRequest is a doctor/trainer asking to join. The staging fields
// are copied into the role profile on approval.
type RegistrationRequest struct {
	Name           string `json:"name" form:"name" validate:"required"`
	Email          string `json:"email" form:"email" validate:"required,email"`
	Role           string `json:"role" form:"role" validate:"required,oneof=doctor trainer"`
	Specialization string `json:"specialization" form:"specialization"`
	City           string `json:"city" form:"city"`
	Phone          string `json:"phone" form:"phone"`
	Experience     string `json:"experience" form:"experience"`
	Hospital       string `json:"hospital" form:"hospital"`
	Bio            string `json:"bio" form:"bio"`
	ProfileImg     string `json:"profileImg" form:"profileImg"`
}

// SelfRegistration is the public sign-up of a plain user.
type SelfRegistration struct {
	Name            string `json:"name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,pwd"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}

// AdminAccountRequest creates an already-approved account. Without a password
// the account starts unset and receives a reset link.
type AdminAccountRequest struct {
	Name           string `json:"name" validate:"required"`
	Email          string `json:"email" validate:"required,email"`
	Role           string `json:"role" validate:"required,oneof=user admin doctor trainer"`
	Password       string `json:"password" validate:"omitempty,pwd"`
	Specialization string `json:"specialization"`
	City           string `json:"city"`
	Phone          string `json:"phone"`
	Experience     string `json:"experience"`
	Hospital       string `json:"hospital"`
	Bio            string `json:"bio"`
	ProfileImg     string `json:"profileImg"`
}

type AccountUpdateRequest struct {
	Name  *string `json:"name" validate:"omitempty,min=1"`
	Email *string `json:"email" validate:"omitempty,email"`
}

type LoginResult struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expiresAt"`
	User      models.Identity `json:"user"`
}

// ProvisionResult describes a freshly approved or admin-created account.
type ProvisionResult struct {
	Account        *models.Account
	Profile        *models.Profile
	ProfileCreated bool
	ResetToken     string
	Delivery       *Delivery
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) storeError(op string, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return notFoundError("User not found")
	case errors.Is(err, store.ErrDuplicate):
		return conflictError("User already exists")
	default:
		return dependencyError("Database error", fmt.Errorf("%s: %w", op, err))
	}
}

// create inserts acc after an email pre-check; the unique index still decides races.
func (s *AuthService) create(ctx context.Context, acc *models.Account) error {
	if _, err := s.accounts.FindByEmail(ctx, acc.Email); err == nil {
		return conflictError("User already exists")
	} else if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("lookup email: %w", err)
	}
	if err := s.accounts.Create(ctx, acc); err != nil {
		return s.storeError("create account", err)
	}
	return nil
}

// SubmitRegistration stores a pending doctor/trainer account with no usable password.
func (s *AuthService) SubmitRegistration(ctx context.Context, req RegistrationRequest) (*models.Account, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = normalizeEmail(req.Email)
	req.Role = strings.TrimSpace(req.Role)
	if details := validation.Struct(req); details != nil {
		return nil, validationError("Name, email and role (doctor or trainer) are required", details)
	}

	acc := &models.Account{
		Name:           req.Name,
		Email:          req.Email,
		PasswordState:  models.PasswordUnset,
		Role:           req.Role,
		IsApproved:     false,
		Specialization: req.Specialization,
		City:           req.City,
		Phone:          req.Phone,
		Experience:     req.Experience,
		Hospital:       req.Hospital,
		Bio:            req.Bio,
		ProfileImg:     req.ProfileImg,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.create(ctx, acc); err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{"account_id": acc.ID.Hex(), "email": acc.Email, "role": acc.Role}).
		Info("registration request submitted")
	return acc, nil
}

// Register signs up a plain user. The role is always "user".
func (s *AuthService) Register(ctx context.Context, req SelfRegistration) (*models.Account, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = normalizeEmail(req.Email)
	if details := validation.Struct(req); details != nil {
		return nil, validationError("Fields with * are required", details)
	}
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	acc := &models.Account{
		Name:          req.Name,
		Email:         req.Email,
		Password:      hash,
		PasswordState: models.PasswordSet,
		Role:          models.RoleUser,
		IsApproved:    true,
		CreatedAt:     s.now().UTC(),
	}
	if err := s.create(ctx, acc); err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{"account_id": acc.ID.Hex(), "email": acc.Email}).Info("user registered")
	return acc, nil
}

// CreateAccount is the admin-direct path: the account is approved immediately
// and doctor/trainer roles are provisioned like an approval.
func (s *AuthService) CreateAccount(ctx context.Context, req AdminAccountRequest) (*ProvisionResult, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = normalizeEmail(req.Email)
	if details := validation.Struct(req); details != nil {
		return nil, validationError("Name, email and a valid role are required", details)
	}

	acc := &models.Account{
		Name:           req.Name,
		Email:          req.Email,
		PasswordState:  models.PasswordUnset,
		Role:           req.Role,
		IsApproved:     true,
		CreatedByAdmin: true,
		Specialization: req.Specialization,
		City:           req.City,
		Phone:          req.Phone,
		Experience:     req.Experience,
		Hospital:       req.Hospital,
		Bio:            req.Bio,
		ProfileImg:     req.ProfileImg,
		CreatedAt:      s.now().UTC(),
	}
	var token string
	if req.Password != "" {
		hash, err := s.hasher.Hash(req.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		acc.Password = hash
		acc.PasswordState = models.PasswordSet
	} else {
		// the reset token is written with the account in a single insert
		tok, expiry, err := s.newResetToken()
		if err != nil {
			return nil, err
		}
		token = tok
		acc.ResetToken, acc.ResetTokenExpiry = tok, &expiry
	}
	if err := s.create(ctx, acc); err != nil {
		return nil, err
	}

	res := &ProvisionResult{Account: acc, ResetToken: token}
	profile, created, err := s.provisionProfile(ctx, acc)
	if err != nil {
		// undo the insert so the admin can retry with the same email
		if derr := s.accounts.Delete(ctx, acc.ID.Hex()); derr != nil {
			s.logger.WithError(derr).WithField("account_id", acc.ID.Hex()).Error("rollback of admin-created account failed")
		}
		return nil, err
	}
	res.Profile, res.ProfileCreated = profile, created

	if token != "" {
		delivery := s.notifier.SendWelcomeEmail(ctx, acc, token, s.resetTTL)
		res.Delivery = &delivery
	}

	s.logger.WithFields(logrus.Fields{"account_id": acc.ID.Hex(), "email": acc.Email, "role": acc.Role}).
		Info("account created by admin")
	return res, nil
}

func (s *AuthService) ListPending(ctx context.Context) ([]models.Account, error) {
	accounts, err := s.accounts.ListPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}
	return accounts, nil
}

func (s *AuthService) ListAccounts(ctx context.Context) ([]models.Account, error) {
	accounts, err := s.accounts.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accounts, nil
}

func (s *AuthService) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	acc, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		return nil, s.storeError("get account", err)
	}
	return acc, nil
}

func (s *AuthService) UpdateAccount(ctx context.Context, id string, req AccountUpdateRequest) (*models.Account, error) {
	upd := store.AccountUpdate{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		req.Name, upd.Name = &name, &name
	}
	if req.Email != nil {
		email := normalizeEmail(*req.Email)
		req.Email, upd.Email = &email, &email
	}
	if details := validation.Struct(req); details != nil {
		return nil, validationError("Invalid update", details)
	}
	if upd.Name == nil && upd.Email == nil {
		return nil, validationError("No update fields provided", nil)
	}
	acc, err := s.accounts.Update(ctx, id, upd)
	if err != nil {
		return nil, s.storeError("update account", err)
	}
	return acc, nil
}

// Authenticate checks credentials and issues a session token. A correct
// password on an unapproved account is Forbidden rather than an auth failure.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*LoginResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, validationError("Email and password are required", nil)
	}
	acc, err := s.accounts.FindByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, authError("Invalid credentials")
	}
	if err != nil {
		return nil, fmt.Errorf("lookup email: %w", err)
	}
	if !acc.HasUsablePassword() || !s.hasher.Check(password, acc.Password) {
		return nil, authError("Invalid credentials")
	}
	if !acc.IsApproved {
		return nil, forbiddenError("Account pending approval")
	}

	token, exp, err := s.sessions.Generate(acc.ID.Hex(), acc.Role)
	if err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}
	s.logger.WithFields(logrus.Fields{"account_id": acc.ID.Hex(), "role": acc.Role}).Info("login succeeded")
	return &LoginResult{Token: token, ExpiresAt: exp, User: acc.Identity()}, nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/medtalks/medtalks-api/internal/models"
	"github.com/medtalks/medtalks-api/internal/store"
	"github.com/medtalks/medtalks-api/internal/utils"
)

// Fallbacks for staging fields a registrant left empty.
const (
	DefaultSpecialization = "General"
	DefaultExperience     = "Not specified"
	DefaultCity           = "Not specified"
	DefaultBio            = "Profile created upon approval"
)

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func (s *AuthService) newResetToken() (string, time.Time, error) {
	token, err := utils.NewResetToken()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate reset token: %w", err)
	}
	return token, s.now().Add(s.resetTTL).UTC(), nil
}

// Approve provisions the role profile, then moves the account to approved
// with a fresh reset token and sends the welcome email. A profile conflict
// leaves the account pending. The email is best effort: its outcome is
// reported in the result and never undoes the approval.
func (s *AuthService) Approve(ctx context.Context, id string) (*ProvisionResult, error) {
	pending, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		return nil, s.storeError("find account", err)
	}

	profile, created, err := s.provisionProfile(ctx, pending)
	if err != nil {
		return nil, err
	}

	token, expiry, err := s.newResetToken()
	if err != nil {
		return nil, err
	}
	acc, err := s.accounts.Approve(ctx, id, token, expiry)
	if err != nil {
		return nil, s.storeError("approve account", err)
	}

	delivery := s.notifier.SendWelcomeEmail(ctx, acc, token, s.resetTTL)

	s.logger.WithFields(logrus.Fields{
		"account_id":      acc.ID.Hex(),
		"role":            acc.Role,
		"profile_created": created,
		"email_sent":      delivery.Sent,
	}).Info("account approved")

	return &ProvisionResult{
		Account:        acc,
		Profile:        profile,
		ProfileCreated: created,
		ResetToken:     token,
		Delivery:       &delivery,
	}, nil
}

// provisionProfile creates the doctor/trainer profile for acc unless one
// already references it. Other roles get no profile.
func (s *AuthService) provisionProfile(ctx context.Context, acc *models.Account) (*models.Profile, bool, error) {
	kind, ok := models.ProfileKindForRole(acc.Role)
	if !ok {
		return nil, false, nil
	}

	now := s.now().UTC()
	p := &models.Profile{
		User:           acc.ID,
		Name:           acc.Name,
		Specialization: orDefault(acc.Specialization, DefaultSpecialization),
		Experience:     orDefault(acc.Experience, DefaultExperience),
		City:           orDefault(acc.City, DefaultCity),
		Phone:          acc.Phone,
		Email:          acc.Email,
		ProfileImg:     acc.ProfileImg,
		Bio:            orDefault(acc.Bio, DefaultBio),
		Status:         models.ProfileApproved,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if kind == models.DoctorProfile {
		p.Hospital = acc.Hospital
	}

	stored, created, err := s.profiles.Ensure(ctx, kind, p)
	if errors.Is(err, store.ErrDuplicate) {
		return nil, false, conflictError("A profile with this email already exists")
	}
	if err != nil {
		return nil, false, dependencyError("Database error", fmt.Errorf("provision %s profile: %w", kind, err))
	}
	return stored, created, nil
}

// Reject deletes a pending account. Approved accounts cannot be rejected.
func (s *AuthService) Reject(ctx context.Context, id string) error {
	acc, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		return s.storeError("find account", err)
	}
	if acc.IsApproved {
		return conflictError("Account is already approved")
	}
	if err := s.accounts.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFoundError("User not found")
		}
		return fmt.Errorf("delete account: %w", err)
	}
	s.logger.WithFields(logrus.Fields{"account_id": id, "email": acc.Email}).Info("registration rejected")
	return nil
}

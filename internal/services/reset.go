package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/medtalks/medtalks-api/internal/models"
	"github.com/medtalks/medtalks-api/internal/store"
	"github.com/medtalks/medtalks-api/internal/validation"
)

type ResetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,pwd"`
}

// ResetPassword redeems a live reset token exactly once and sets the password.
func (s *AuthService) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	if details := validation.Struct(req); details != nil {
		return validationError("Token and a password of at least 6 characters are required", details)
	}

	now := s.now()
	if _, err := s.accounts.FindByResetToken(ctx, req.Token, now); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return validationError("Invalid or expired token", nil)
		}
		return fmt.Errorf("lookup reset token: %w", err)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	// A concurrent redemption of the same token loses here.
	acc, err := s.accounts.RedeemResetToken(ctx, req.Token, now, hash)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return validationError("Invalid or expired token", nil)
		}
		return fmt.Errorf("redeem reset token: %w", err)
	}
	s.logger.WithFields(logrus.Fields{"account_id": acc.ID.Hex()}).Info("password reset")
	return nil
}

// VerifySession resolves a session token to its account.
func (s *AuthService) VerifySession(ctx context.Context, token string) (*models.Account, error) {
	if token == "" {
		return nil, authError("Not authenticated")
	}
	claims, err := s.sessions.Validate(token)
	if err != nil {
		return nil, authError("Invalid or expired token")
	}
	acc, err := s.accounts.FindByID(ctx, claims.AccountID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, authError("Not authenticated")
	}
	if err != nil {
		return nil, fmt.Errorf("lookup session account: %w", err)
	}
	return acc, nil
}

// PurgeExpiredResetTokens clears reset tokens that can no longer be redeemed.
func (s *AuthService) PurgeExpiredResetTokens(ctx context.Context) (int64, error) {
	return s.accounts.PurgeExpiredResetTokens(ctx, s.now())
}

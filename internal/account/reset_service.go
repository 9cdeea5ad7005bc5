// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SafeChain Contributors

package account

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"
)

// PasswordResetService handles the forgot-password / reset-password flow.
type PasswordResetService struct {
	accounts AccountRepository
	resets   PasswordResetRepository
	hasher   PasswordHasher
	logger   *slog.Logger

	// now is swappable for expiry tests.
	now func() time.Time
}

// NewPasswordResetService creates a new PasswordResetService.
func NewPasswordResetService(
	accounts AccountRepository,
	resets PasswordResetRepository,
	hasher PasswordHasher,
	logger *slog.Logger,
) (*PasswordResetService, error) {
	if accounts == nil {
		return nil, oops.Code("RESET_SERVICE_INVALID").Errorf("accounts repository is required")
	}
	if resets == nil {
		return nil, oops.Code("RESET_SERVICE_INVALID").Errorf("resets repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("RESET_SERVICE_INVALID").Errorf("password hasher is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PasswordResetService{
		accounts: accounts,
		resets:   resets,
		hasher:   hasher,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// RequestReset requests a password reset for the live account with the given
// email. Existing tokens for the email are removed first, so at most one
// token is live per email; under concurrent requests the last writer wins.
//
// Returns the plaintext token for dispatching via email (sending is NOT this
// service's job). If no live account has the email, returns an empty token
// and no error so callers can answer uniformly and prevent email enumeration.
func (s *PasswordResetService) RequestReset(ctx context.Context, email string) (string, error) {
	if email == "" {
		return "", oops.Code("ACCOUNT_INVALID_INPUT").Errorf("email is required")
	}

	_, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Uniform success with empty token to prevent email enumeration
			return "", nil
		}
		return "", oops.Code("RESET_REQUEST_FAILED").
			With("operation", "get account by email").
			Wrap(err)
	}

	token, hash, err := GenerateResetToken()
	if err != nil {
		return "", oops.Code("RESET_REQUEST_FAILED").
			With("operation", "generate reset token").
			Wrap(err)
	}

	reset, err := NewPasswordReset(email, hash, s.now().Add(ResetTokenExpiry))
	if err != nil {
		return "", oops.Code("RESET_REQUEST_FAILED").
			With("operation", "build password reset").
			Wrap(err)
	}

	// One live token per email: clear older tokens before inserting.
	if err := s.resets.DeleteByEmail(ctx, email); err != nil {
		return "", oops.Code("RESET_REQUEST_FAILED").
			With("operation", "delete existing tokens").
			Wrap(err)
	}

	if err := s.resets.Create(ctx, reset); err != nil {
		return "", oops.Code("RESET_REQUEST_FAILED").
			With("operation", "insert token").
			Wrap(err)
	}

	return token, nil
}

// ValidateToken validates a reset token and returns the associated email.
// Unknown and expired tokens produce indistinguishable errors to the caller.
func (s *PasswordResetService) ValidateToken(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", oops.Code("RESET_TOKEN_INVALID").Errorf("reset token cannot be empty")
	}

	reset, err := s.resets.GetByTokenHash(ctx, HashResetToken(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", oops.Code("RESET_TOKEN_INVALID").Errorf("invalid or expired token")
		}
		return "", oops.Code("RESET_VALIDATE_FAILED").
			With("operation", "get token by hash").
			Wrap(err)
	}

	if s.now().After(reset.ExpiresAt) {
		return "", oops.Code("RESET_TOKEN_EXPIRED").Errorf("invalid or expired token")
	}

	return reset.Email, nil
}

// ResetPassword resets a password using a valid reset token. A token whose
// email no longer matches a live account is rejected the same way as an
// unknown token. On success all tokens for the email are consumed, so a
// token cannot be replayed.
func (s *PasswordResetService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if newPassword == "" {
		return oops.Code("ACCOUNT_INVALID_INPUT").Errorf("new password cannot be empty")
	}

	email, err := s.ValidateToken(ctx, token)
	if err != nil {
		return err // Already has appropriate error code
	}

	// Archived or deleted accounts do not honor outstanding tokens.
	if _, err := s.accounts.GetByEmail(ctx, email); err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code("RESET_TOKEN_INVALID").Errorf("invalid or expired token")
		}
		return oops.Code("RESET_PASSWORD_FAILED").
			With("operation", "get account by email").
			Wrap(err)
	}

	hashedPassword, err := s.hasher.Hash(newPassword)
	if err != nil {
		return oops.Code("RESET_PASSWORD_FAILED").
			With("operation", "hash new password").
			Wrap(err)
	}

	if err := s.accounts.UpdatePasswordByEmail(ctx, email, hashedPassword); err != nil {
		return oops.Code("RESET_PASSWORD_FAILED").
			With("operation", "update password").
			Wrap(err)
	}

	// Consume every token for the email. The password was already updated,
	// so a cleanup failure is logged rather than surfaced.
	if err := s.resets.DeleteByEmail(ctx, email); err != nil {
		s.logger.Error("failed to consume reset tokens",
			"email", email,
			"error", err,
		)
	}

	return nil
}

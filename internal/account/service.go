// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SafeChain Contributors

package account

import (
	"context"
	"errors"

	"github.com/samber/oops"
)

// Service provides account lifecycle operations: registration, login, and
// change-password. Every operation is stateless and atomic at the single
// request level; the only shared resource is the backing store.
type Service struct {
	accounts AccountRepository
	hasher   PasswordHasher
}

// NewService creates a new Service.
func NewService(accounts AccountRepository, hasher PasswordHasher) (*Service, error) {
	if accounts == nil {
		return nil, oops.Code("ACCOUNT_SERVICE_INVALID").Errorf("accounts repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("ACCOUNT_SERVICE_INVALID").Errorf("password hasher is required")
	}
	return &Service{accounts: accounts, hasher: hasher}, nil
}

// dummyPasswordHash is used when an account doesn't exist to prevent timing attacks.
// We still run password verification to make response time consistent.
// This is NOT a real credential - it's a fake hash that will never match any password.
//
//nolint:gosec // G101: This is an intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// RegisterInput carries the fields accepted at registration.
// Address and Contact are optional.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Address  string
	Contact  string
}

// Register creates a new account with a hashed password and generated ID.
// Duplicate live emails surface as ACCOUNT_DUPLICATE_EMAIL; the storage
// layer's unique constraint is authoritative, so concurrent registrations
// for the same email cannot both succeed.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Account, error) {
	if in.Name == "" || in.Email == "" || in.Password == "" {
		return nil, oops.Code("ACCOUNT_INVALID_INPUT").
			Errorf("name, email, and password are required")
	}
	if err := ValidateEmail(in.Email); err != nil {
		return nil, err
	}

	passwordHash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, oops.Code("ACCOUNT_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	acct, err := NewAccount(in.Name, in.Email, passwordHash, in.Address, in.Contact)
	if err != nil {
		return nil, err
	}

	if err := s.accounts.Create(ctx, acct); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return nil, oops.Code("ACCOUNT_DUPLICATE_EMAIL").
				Errorf("an account with this email already exists")
		}
		return nil, oops.Code("ACCOUNT_REGISTER_FAILED").
			With("operation", "insert account").
			Wrap(err)
	}

	return acct, nil
}

// Login verifies credentials against the live account for the email.
// Unknown email and wrong password produce the same error, and a dummy hash
// is verified when the account is missing to keep response time flat.
func (s *Service) Login(ctx context.Context, email, password string) (*Account, error) {
	if email == "" || password == "" {
		return nil, oops.Code("ACCOUNT_INVALID_INPUT").
			Errorf("email and password are required")
	}

	acct, lookupErr := s.accounts.GetByEmail(ctx, email)

	// Determine which hash to verify against (real or dummy for timing attack prevention)
	targetHash := dummyPasswordHash
	exists := false
	if lookupErr != nil {
		if !errors.Is(lookupErr, ErrNotFound) {
			return nil, oops.Code("ACCOUNT_LOGIN_FAILED").
				With("operation", "get account by email").
				Wrap(lookupErr)
		}
	} else {
		targetHash = acct.PasswordHash
		exists = true
	}

	valid, verifyErr := s.hasher.Verify(password, targetHash)
	if verifyErr != nil {
		if !exists {
			return nil, oops.Code("ACCOUNT_INVALID_CREDENTIALS").Errorf("invalid email or password")
		}
		return nil, oops.Code("ACCOUNT_LOGIN_FAILED").
			With("operation", "verify password").
			Wrap(verifyErr)
	}

	if !exists || !valid {
		return nil, oops.Code("ACCOUNT_INVALID_CREDENTIALS").Errorf("invalid email or password")
	}

	return acct, nil
}

// ChangePassword verifies the current password and persists a hash of the
// new one. A wrong current password leaves the stored hash unchanged.
func (s *Service) ChangePassword(ctx context.Context, accountID, currentPassword, newPassword string) error {
	if accountID == "" || currentPassword == "" || newPassword == "" {
		return oops.Code("ACCOUNT_INVALID_INPUT").
			Errorf("account ID, current password, and new password are required")
	}

	acct, err := s.accounts.GetByAccountID(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code("ACCOUNT_NOT_FOUND").Errorf("account not found")
		}
		return oops.Code("ACCOUNT_CHANGE_PASSWORD_FAILED").
			With("operation", "get account by id").
			Wrap(err)
	}

	valid, err := s.hasher.Verify(currentPassword, acct.PasswordHash)
	if err != nil {
		return oops.Code("ACCOUNT_CHANGE_PASSWORD_FAILED").
			With("operation", "verify current password").
			Wrap(err)
	}
	if !valid {
		return oops.Code("ACCOUNT_WRONG_PASSWORD").Errorf("incorrect current password")
	}

	newHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return oops.Code("ACCOUNT_CHANGE_PASSWORD_FAILED").
			With("operation", "hash new password").
			Wrap(err)
	}

	if err := s.accounts.UpdatePassword(ctx, accountID, newHash); err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code("ACCOUNT_NOT_FOUND").Errorf("account not found")
		}
		return oops.Code("ACCOUNT_CHANGE_PASSWORD_FAILED").
			With("operation", "update password").
			Wrap(err)
	}

	return nil
}

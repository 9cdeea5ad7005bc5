// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SafeChain Contributors

package account

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// AccountIDPrefix is prepended to the ULID that forms an account ID.
// The mobile clients treat the ID as an opaque string; the prefix only
// keeps it recognizable in logs and support tickets.
const AccountIDPrefix = "USR-"

// emailRegex is a deliberately loose check: presence of a local part,
// an @, and a dotted domain. Full RFC 5322 validation is not the goal.
var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Account represents a resident's login and profile record.
//
// Accounts are never physically deleted; archival flips Archived and frees
// the email for re-registration (the storage layer enforces uniqueness only
// among non-archived rows).
type Account struct {
	AccountID    string
	Name         string
	Email        string
	PasswordHash string
	Address      string
	Contact      string
	Archived     bool
	RegisteredAt time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewAccount creates a validated Account with a freshly generated ID.
// The caller supplies an already-hashed password.
func NewAccount(name, email, passwordHash, address, contact string) (*Account, error) {
	if name == "" {
		return nil, oops.Code("ACCOUNT_INVALID_INPUT").Errorf("name cannot be empty")
	}
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, oops.Code("ACCOUNT_INVALID_INPUT").Errorf("password hash cannot be empty")
	}

	now := time.Now()
	return &Account{
		AccountID:    NewAccountID(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Address:      address,
		Contact:      contact,
		Archived:     false,
		RegisteredAt: now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// NewAccountID generates a collision-resistant account identifier.
// IDs are stable once assigned and sortable by creation time.
func NewAccountID() string {
	return AccountIDPrefix + ulid.Make().String()
}

// ValidateEmail checks that the address has a plausible shape.
// Addresses are stored and compared exactly as given.
func ValidateEmail(email string) error {
	if email == "" {
		return oops.Code("ACCOUNT_INVALID_INPUT").Errorf("email cannot be empty")
	}
	if strings.ContainsAny(email, " \t\r\n") || !emailRegex.MatchString(email) {
		return oops.Code("ACCOUNT_INVALID_INPUT").
			With("email", email).
			Errorf("invalid email format")
	}
	return nil
}

// AccountRepository manages account persistence.
type AccountRepository interface {
	// Create stores a new account. Returns ErrDuplicateEmail (wrapped) when a
	// live account with the same email already exists.
	Create(ctx context.Context, acct *Account) error

	// GetByAccountID retrieves an account by its public ID, archived or not.
	GetByAccountID(ctx context.Context, accountID string) (*Account, error)

	// GetByEmail retrieves the live (non-archived) account for an email.
	// Returns ErrNotFound if no live account has the given email.
	GetByEmail(ctx context.Context, email string) (*Account, error)

	// UpdatePassword updates only the password hash for an account.
	UpdatePassword(ctx context.Context, accountID, passwordHash string) error

	// UpdatePasswordByEmail updates the password hash of the live account
	// with the given email.
	UpdatePasswordByEmail(ctx context.Context, email, passwordHash string) error
}

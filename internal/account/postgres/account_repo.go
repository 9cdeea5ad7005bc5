// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SafeChain Contributors

// Package postgres provides PostgreSQL implementations of account repositories.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/safechain/safechain/internal/account"
)

// DB is the subset of pgxpool.Pool the repositories need. Narrowing the
// dependency lets tests substitute a pgxmock pool.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// AccountRepository implements account.AccountRepository using PostgreSQL.
type AccountRepository struct {
	db DB
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(db DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create stores a new account. The partial unique index on live emails is
// what serializes concurrent registrations; a unique violation surfaces as
// account.ErrDuplicateEmail.
func (r *AccountRepository) Create(ctx context.Context, acct *account.Account) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO accounts (
			account_id, name, email, password_hash, address, contact,
			archived, registered_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		acct.AccountID,
		acct.Name,
		acct.Email,
		acct.PasswordHash,
		acct.Address,
		acct.Contact,
		acct.Archived,
		acct.RegisteredAt,
		acct.CreatedAt,
		acct.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return oops.Code("ACCOUNT_DUPLICATE_EMAIL").
				With("email", acct.Email).
				Wrap(account.ErrDuplicateEmail)
		}
		return oops.Code("ACCOUNT_CREATE_FAILED").
			With("operation", "insert account").
			With("account_id", acct.AccountID).
			Wrap(err)
	}
	return nil
}

// GetByAccountID retrieves an account by its public ID, archived or not.
func (r *AccountRepository) GetByAccountID(ctx context.Context, accountID string) (*account.Account, error) {
	row := r.db.QueryRow(ctx, `
		SELECT account_id, name, email, password_hash, address, contact,
		       archived, registered_at, created_at, updated_at
		FROM accounts
		WHERE account_id = $1
	`, accountID)

	acct, err := r.scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").
			With("account_id", accountID).
			Wrap(account.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_BY_ID_FAILED").
			With("operation", "get account by id").
			With("account_id", accountID).
			Wrap(err)
	}
	return acct, nil
}

// GetByEmail retrieves the live (non-archived) account for an email.
// Emails are compared exactly as stored.
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*account.Account, error) {
	row := r.db.QueryRow(ctx, `
		SELECT account_id, name, email, password_hash, address, contact,
		       archived, registered_at, created_at, updated_at
		FROM accounts
		WHERE email = $1 AND NOT archived
	`, email)

	acct, err := r.scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").
			With("email", email).
			Wrap(account.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_BY_EMAIL_FAILED").
			With("operation", "get account by email").
			With("email", email).
			Wrap(err)
	}
	return acct, nil
}

// UpdatePassword updates only the password hash for an account.
func (r *AccountRepository) UpdatePassword(ctx context.Context, accountID, passwordHash string) error {
	result, err := r.db.Exec(ctx, `
		UPDATE accounts SET password_hash = $2, updated_at = $3
		WHERE account_id = $1
	`, accountID, passwordHash, time.Now())
	if err != nil {
		return oops.Code("ACCOUNT_UPDATE_PASSWORD_FAILED").
			With("operation", "update password").
			With("account_id", accountID).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("ACCOUNT_NOT_FOUND").
			With("account_id", accountID).
			Wrap(account.ErrNotFound)
	}
	return nil
}

// UpdatePasswordByEmail updates the password hash of the live account with
// the given email.
func (r *AccountRepository) UpdatePasswordByEmail(ctx context.Context, email, passwordHash string) error {
	result, err := r.db.Exec(ctx, `
		UPDATE accounts SET password_hash = $2, updated_at = $3
		WHERE email = $1 AND NOT archived
	`, email, passwordHash, time.Now())
	if err != nil {
		return oops.Code("ACCOUNT_UPDATE_PASSWORD_FAILED").
			With("operation", "update password by email").
			With("email", email).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("ACCOUNT_NOT_FOUND").
			With("email", email).
			Wrap(account.ErrNotFound)
	}
	return nil
}

// scanAccount scans a single row into an Account.
// Callers are responsible for handling pgx.ErrNoRows.
func (r *AccountRepository) scanAccount(row pgx.Row) (*account.Account, error) {
	var acct account.Account
	err := row.Scan(
		&acct.AccountID,
		&acct.Name,
		&acct.Email,
		&acct.PasswordHash,
		&acct.Address,
		&acct.Contact,
		&acct.Archived,
		&acct.RegisteredAt,
		&acct.CreatedAt,
		&acct.UpdatedAt,
	)
	if err != nil {
		// Propagate pgx.ErrNoRows unchanged for callers to handle with context.
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // Callers wrap with context-specific info
		}
		return nil, oops.Code("ACCOUNT_SCAN_FAILED").
			With("operation", "scan account").
			Wrap(err)
	}
	return &acct, nil
}

// Compile-time interface check.
var _ account.AccountRepository = (*AccountRepository)(nil)

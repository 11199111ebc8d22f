// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sport Tournaments Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/sport-tournaments/auth-service/internal/auth"
)

const accountColumns = `id, email, password_hash, name, role, active, verified,
	verify_token_hash, reset_token_hash, reset_expires_at, created_at, updated_at`

// AccountRepository implements auth.AccountRepository using PostgreSQL.
type AccountRepository struct {
	db DB
}

var _ auth.AccountRepository = (*AccountRepository)(nil)

// NewAccountRepository creates a new PostgreSQL account repository.
func NewAccountRepository(db DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create stores a new account. A unique violation on the email index maps to
// auth.ErrDuplicateEmail.
func (r *AccountRepository) Create(ctx context.Context, account *auth.Account) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO accounts (id, email, password_hash, name, role, active, verified,
		 verify_token_hash, reset_token_hash, reset_expires_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		account.ID.String(),
		account.Email,
		account.PasswordHash,
		account.Name,
		string(account.Role),
		account.Active,
		account.Verified,
		account.VerifyTokenHash,
		account.ResetTokenHash,
		account.ResetExpiresAt,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return auth.ErrDuplicateEmail
		}
		return oops.With("operation", "create account").Wrap(err)
	}
	return nil
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.Account, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`,
		id.String())
	return scanAccount(row, "get account by id")
}

// GetByEmail retrieves an account by email. Matching is case-insensitive.
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*auth.Account, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE lower(email) = lower($1)`,
		email)
	return scanAccount(row, "get account by email")
}

// GetByVerifyTokenHash retrieves the account holding the given verification
// token hash.
func (r *AccountRepository) GetByVerifyTokenHash(ctx context.Context, tokenHash string) (*auth.Account, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE verify_token_hash = $1`,
		tokenHash)
	return scanAccount(row, "get account by verify token")
}

// GetByResetTokenHash retrieves the account holding the given reset token
// hash, regardless of expiry.
func (r *AccountRepository) GetByResetTokenHash(ctx context.Context, tokenHash string) (*auth.Account, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE reset_token_hash = $1`,
		tokenHash)
	return scanAccount(row, "get account by reset token")
}

// Update updates an existing account.
func (r *AccountRepository) Update(ctx context.Context, account *auth.Account) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE accounts SET email = $2, password_hash = $3, name = $4, role = $5,
		 active = $6, verified = $7, verify_token_hash = $8, reset_token_hash = $9,
		 reset_expires_at = $10, updated_at = now()
		 WHERE id = $1`,
		account.ID.String(),
		account.Email,
		account.PasswordHash,
		account.Name,
		string(account.Role),
		account.Active,
		account.Verified,
		account.VerifyTokenHash,
		account.ResetTokenHash,
		account.ResetExpiresAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return auth.ErrDuplicateEmail
		}
		return oops.With("operation", "update account").Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return auth.ErrNotFound
	}
	return nil
}

// UpdatePassword updates only the password hash for an account.
func (r *AccountRepository) UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE accounts SET password_hash = $2, updated_at = now() WHERE id = $1`,
		id.String(), passwordHash)
	if err != nil {
		return oops.With("operation", "update account password").Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return auth.ErrNotFound
	}
	return nil
}

// SetVerified marks the account verified and clears its verification token
// hash in one step.
func (r *AccountRepository) SetVerified(ctx context.Context, id ulid.ULID) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE accounts SET verified = TRUE, verify_token_hash = NULL, updated_at = now()
		 WHERE id = $1`,
		id.String())
	if err != nil {
		return oops.With("operation", "set account verified").Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return auth.ErrNotFound
	}
	return nil
}

// SetResetToken stores a reset token hash and its expiry, replacing any prior
// unconsumed token.
func (r *AccountRepository) SetResetToken(ctx context.Context, id ulid.ULID, tokenHash string, expiresAt time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE accounts SET reset_token_hash = $2, reset_expires_at = $3, updated_at = now()
		 WHERE id = $1`,
		id.String(), tokenHash, expiresAt)
	if err != nil {
		return oops.With("operation", "set reset token").Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return auth.ErrNotFound
	}
	return nil
}

// ClearResetToken removes the reset token hash and expiry.
func (r *AccountRepository) ClearResetToken(ctx context.Context, id ulid.ULID) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE accounts SET reset_token_hash = NULL, reset_expires_at = NULL, updated_at = now()
		 WHERE id = $1`,
		id.String())
	if err != nil {
		return oops.With("operation", "clear reset token").Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return auth.ErrNotFound
	}
	return nil
}

// scanAccount scans a single account row. pgx.ErrNoRows maps to
// auth.ErrNotFound.
func scanAccount(row pgx.Row, operation string) (*auth.Account, error) {
	var (
		a       auth.Account
		idStr   string
		roleStr string
	)
	err := row.Scan(
		&idStr,
		&a.Email,
		&a.PasswordHash,
		&a.Name,
		&roleStr,
		&a.Active,
		&a.Verified,
		&a.VerifyTokenHash,
		&a.ResetTokenHash,
		&a.ResetExpiresAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, oops.With("operation", operation).Wrap(err)
	}
	a.ID, err = ulid.Parse(idStr)
	if err != nil {
		return nil, oops.With("operation", operation).With("id", idStr).
			Wrapf(err, "corrupt account ID in database")
	}
	a.Role = auth.Role(roleStr)
	return &a, nil
}

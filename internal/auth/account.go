// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sport Tournaments Contributors

package auth

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Profile name constraints.
const (
	MinNameLength = 1
	MaxNameLength = 100
)

// emailRegex is a pragmatic shape check; deliverability is the mail
// collaborator's problem, not ours.
var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Account represents a registered account.
//
// VerifyTokenHash and ResetTokenHash hold SHA-256 hashes of single-use
// tokens; the plaintext values exist only in the out-of-band delivery path.
// A reset token whose ResetExpiresAt has elapsed is treated identically to
// an absent one.
type Account struct {
	ID              ulid.ULID
	Email           string
	PasswordHash    string
	Name            string
	Role            Role
	Active          bool
	Verified        bool
	VerifyTokenHash *string
	ResetTokenHash  *string
	ResetExpiresAt  *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewAccount creates a validated Account. The email is lowercase-normalized.
// Accounts start active, unverified, with RoleUser.
func NewAccount(email, passwordHash, name string) (*Account, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, oops.Code("ACCOUNT_INVALID_HASH").Errorf("password hash cannot be empty")
	}
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	now := time.Now()
	return &Account{
		ID:           ulid.Make(),
		Email:        email,
		PasswordHash: passwordHash,
		Name:         name,
		Role:         RoleUser,
		Active:       true,
		Verified:     false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// HasValidResetToken reports whether the account holds a reset token that
// has not yet expired at time now.
func (a *Account) HasValidResetToken(now time.Time) bool {
	return a.ResetTokenHash != nil && a.ResetExpiresAt != nil && now.Before(*a.ResetExpiresAt)
}

// NormalizeEmail lowercases and validates an email address.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", oops.Code("ACCOUNT_INVALID_EMAIL").Errorf("email cannot be empty")
	}
	if !emailRegex.MatchString(email) {
		return "", oops.Code("ACCOUNT_INVALID_EMAIL").
			With("email", email).
			Errorf("email address is malformed")
	}
	return email, nil
}

// ValidateName validates a profile display name.
func ValidateName(name string) error {
	if len(name) < MinNameLength {
		return oops.Code("ACCOUNT_INVALID_NAME").Errorf("name cannot be empty")
	}
	if len(name) > MaxNameLength {
		return oops.Code("ACCOUNT_INVALID_NAME").
			With("max", MaxNameLength).
			Errorf("name must be at most %d characters", MaxNameLength)
	}
	return nil
}

// AccountRepository manages account persistence.
type AccountRepository interface {
	// Create stores a new account. Returns ErrDuplicateEmail (wrapped) when
	// the email is already taken, in any casing.
	Create(ctx context.Context, account *Account) error

	// GetByID retrieves an account by ID.
	GetByID(ctx context.Context, id ulid.ULID) (*Account, error)

	// GetByEmail retrieves an account by email (case-insensitive).
	GetByEmail(ctx context.Context, email string) (*Account, error)

	// GetByVerifyTokenHash retrieves the account holding the given
	// verification token hash. Returns ErrNotFound when no account does.
	GetByVerifyTokenHash(ctx context.Context, tokenHash string) (*Account, error)

	// GetByResetTokenHash retrieves the account holding the given reset
	// token hash, regardless of expiry. Returns ErrNotFound when no account
	// does.
	GetByResetTokenHash(ctx context.Context, tokenHash string) (*Account, error)

	// Update updates an existing account.
	Update(ctx context.Context, account *Account) error

	// UpdatePassword updates only the password hash for an account.
	UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error

	// SetVerified marks the account verified and clears its verification
	// token hash in one step.
	SetVerified(ctx context.Context, id ulid.ULID) error

	// SetResetToken stores a reset token hash and its expiry, replacing any
	// prior unconsumed token.
	SetResetToken(ctx context.Context, id ulid.ULID, tokenHash string, expiresAt time.Time) error

	// ClearResetToken removes the reset token hash and expiry.
	ClearResetToken(ctx context.Context, id ulid.ULID) error
}

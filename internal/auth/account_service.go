// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sport Tournaments Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/sport-tournaments/auth-service/pkg/errutil"
)

// ResetTokenTTL is the fixed validity window of a password reset token.
const ResetTokenTTL = time.Hour

// AccountService orchestrates registration, email verification, and password
// reset/change against the account store. Session revocation on password
// change goes through the session store so a credential rotation forces
// re-authentication everywhere.
type AccountService struct {
	accounts AccountRepository
	sessions SessionRepository
	hasher   PasswordHasher
	logger   *slog.Logger
}

// NewAccountService creates an AccountService with the default logger.
func NewAccountService(accounts AccountRepository, sessions SessionRepository, hasher PasswordHasher) (*AccountService, error) {
	return NewAccountServiceWithLogger(accounts, sessions, hasher, slog.Default())
}

// NewAccountServiceWithLogger creates an AccountService with an explicit logger.
func NewAccountServiceWithLogger(accounts AccountRepository, sessions SessionRepository, hasher PasswordHasher, logger *slog.Logger) (*AccountService, error) {
	if accounts == nil {
		return nil, oops.Errorf("accounts repository is required")
	}
	if sessions == nil {
		return nil, oops.Errorf("sessions repository is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	return &AccountService{
		accounts: accounts,
		sessions: sessions,
		hasher:   hasher,
		logger:   logger,
	}, nil
}

// Register creates an unverified, active account and returns it together
// with the plaintext verification token for out-of-band delivery. Token
// delivery itself is an external collaborator's job.
func (s *AccountService) Register(ctx context.Context, email, password, name string) (*Account, string, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, "", oops.Code("ACCOUNT_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	account, err := NewAccount(email, hash, name)
	if err != nil {
		return nil, "", err
	}

	verifyToken, verifyHash, err := GenerateOpaqueToken()
	if err != nil {
		return nil, "", oops.Code("ACCOUNT_REGISTER_FAILED").
			With("operation", "generate verification token").
			Wrap(err)
	}
	account.VerifyTokenHash = &verifyHash

	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return nil, "", oops.Code("ACCOUNT_EMAIL_CONFLICT").
				Wrap(err)
		}
		return nil, "", oops.Code("ACCOUNT_REGISTER_FAILED").
			With("operation", "create account").
			Wrap(err)
	}

	return account, verifyToken, nil
}

// VerifyEmail consumes a verification token. The token is single-use: the
// stored hash is cleared on success, so a replay finds no match and fails.
func (s *AccountService) VerifyEmail(ctx context.Context, token string) (*Account, error) {
	if token == "" {
		return nil, oops.Code("VERIFY_TOKEN_INVALID").Errorf("verification token cannot be empty")
	}

	account, err := s.accounts.GetByVerifyTokenHash(ctx, HashToken(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("VERIFY_TOKEN_INVALID").Errorf("verification token not found")
		}
		return nil, oops.Code("VERIFY_EMAIL_FAILED").
			With("operation", "get account by verification token").
			Wrap(err)
	}

	if err := s.accounts.SetVerified(ctx, account.ID); err != nil {
		return nil, oops.Code("VERIFY_EMAIL_FAILED").
			With("operation", "set verified").
			With("account_id", account.ID.String()).
			Wrap(err)
	}

	account.Verified = true
	account.VerifyTokenHash = nil
	return account, nil
}

// ForgotPassword requests a password reset by email. If the account exists,
// a reset token with a fixed expiry window is stored, replacing any prior
// unconsumed token, and the plaintext token is returned for out-of-band
// delivery. Unknown emails return ("", nil) so callers cannot distinguish
// them - the one place an internal condition is deliberately swallowed, to
// prevent account enumeration.
func (s *AccountService) ForgotPassword(ctx context.Context, email string) (string, error) {
	normalized, err := NormalizeEmail(email)
	if err != nil {
		// A malformed address cannot belong to an account; same uniform answer.
		return "", nil
	}

	account, err := s.accounts.GetByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", nil
		}
		return "", oops.Code("RESET_REQUEST_FAILED").
			With("operation", "get account by email").
			Wrap(err)
	}

	token, hash, err := GenerateOpaqueToken()
	if err != nil {
		return "", oops.Code("RESET_REQUEST_FAILED").
			With("operation", "generate reset token").
			Wrap(err)
	}

	if err := s.accounts.SetResetToken(ctx, account.ID, hash, time.Now().Add(ResetTokenTTL)); err != nil {
		return "", oops.Code("RESET_REQUEST_FAILED").
			With("operation", "store reset token").
			With("account_id", account.ID.String()).
			Wrap(err)
	}

	return token, nil
}

// ResetPassword consumes a reset token and installs a new password. The
// token is cleared after one use attempt, success or expiry, so it can
// never be replayed. All sessions for the account are revoked, forcing
// re-login everywhere.
func (s *AccountService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if newPassword == "" {
		return oops.Code("RESET_PASSWORD_EMPTY").Errorf("new password cannot be empty")
	}
	if token == "" {
		return oops.Code("RESET_TOKEN_INVALID").Errorf("reset token cannot be empty")
	}

	account, err := s.accounts.GetByResetTokenHash(ctx, HashToken(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code("RESET_TOKEN_INVALID").Errorf("reset token not found")
		}
		return oops.Code("RESET_PASSWORD_FAILED").
			With("operation", "get account by reset token").
			Wrap(err)
	}

	if !account.HasValidResetToken(time.Now()) {
		// One attempt consumed the token even though it had expired.
		if clearErr := s.accounts.ClearResetToken(ctx, account.ID); clearErr != nil {
			errutil.LogError(s.logger, "failed to clear expired reset token", clearErr)
		}
		return oops.Code("RESET_TOKEN_INVALID").Errorf("reset token has expired")
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return oops.Code("RESET_PASSWORD_FAILED").
			With("operation", "hash new password").
			Wrap(err)
	}

	if err := s.accounts.UpdatePassword(ctx, account.ID, hash); err != nil {
		return oops.Code("RESET_PASSWORD_FAILED").
			With("operation", "update password").
			With("account_id", account.ID.String()).
			Wrap(err)
	}

	if err := s.accounts.ClearResetToken(ctx, account.ID); err != nil {
		// Password is already rotated; the stale hash no longer matches any
		// stored digest but must not linger.
		errutil.LogError(s.logger, "failed to clear consumed reset token", err)
	}

	if err := s.revokeAllSessions(ctx, account.ID, "password_reset"); err != nil {
		return err
	}

	return nil
}

// ChangePassword rotates the password of an authenticated account. A wrong
// current password leaves every session untouched; a successful change
// revokes them all to bound exposure from a potentially compromised session.
func (s *AccountService) ChangePassword(ctx context.Context, accountID ulid.ULID, currentPassword, newPassword string) error {
	if newPassword == "" {
		return oops.Code("CHANGE_PASSWORD_EMPTY").Errorf("new password cannot be empty")
	}

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code("AUTH_INVALID_CREDENTIALS").Errorf("invalid credentials")
		}
		return oops.Code("CHANGE_PASSWORD_FAILED").
			With("operation", "get account").
			With("account_id", accountID.String()).
			Wrap(err)
	}

	valid, err := s.hasher.Verify(currentPassword, account.PasswordHash)
	if err != nil {
		return oops.Code("CHANGE_PASSWORD_FAILED").
			With("operation", "verify current password").
			Wrap(err)
	}
	if !valid {
		return oops.Code("AUTH_INVALID_CREDENTIALS").Errorf("invalid credentials")
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return oops.Code("CHANGE_PASSWORD_FAILED").
			With("operation", "hash new password").
			Wrap(err)
	}

	if err := s.accounts.UpdatePassword(ctx, account.ID, hash); err != nil {
		return oops.Code("CHANGE_PASSWORD_FAILED").
			With("operation", "update password").
			With("account_id", account.ID.String()).
			Wrap(err)
	}

	return s.revokeAllSessions(ctx, account.ID, "password_change")
}

func (s *AccountService) revokeAllSessions(ctx context.Context, accountID ulid.ULID, cause string) error {
	revoked, err := s.sessions.RevokeAllForAccount(ctx, accountID)
	if err != nil {
		return oops.Code("SESSION_REVOKE_ALL_FAILED").
			With("operation", "revoke all sessions").
			With("account_id", accountID.String()).
			With("cause", cause).
			Wrap(err)
	}
	SessionsRevoked.WithLabelValues(cause).Add(float64(revoked))
	return nil
}

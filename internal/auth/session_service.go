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

// dummyPasswordHash is used when an account doesn't exist to prevent timing
// attacks. We still run password verification to make response time
// consistent. This is NOT a real credential - it's a fake hash that will
// never match any password.
//
//nolint:gosec // G101: This is an intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// TokenPair is the credential pair returned by login and refresh. The raw
// session ID is never part of it; the opaque refresh token is the only
// handle a client ever holds.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// SessionService orchestrates login, refresh rotation, and revocation
// against the session store and token issuer.
type SessionService struct {
	accounts AccountRepository
	sessions SessionRepository
	hasher   PasswordHasher
	issuer   *TokenIssuer
	logger   *slog.Logger
}

// NewSessionService creates a SessionService with the default logger.
func NewSessionService(accounts AccountRepository, sessions SessionRepository, hasher PasswordHasher, issuer *TokenIssuer) (*SessionService, error) {
	return NewSessionServiceWithLogger(accounts, sessions, hasher, issuer, slog.Default())
}

// NewSessionServiceWithLogger creates a SessionService with an explicit logger.
func NewSessionServiceWithLogger(accounts AccountRepository, sessions SessionRepository, hasher PasswordHasher, issuer *TokenIssuer, logger *slog.Logger) (*SessionService, error) {
	if accounts == nil {
		return nil, oops.Errorf("accounts repository is required")
	}
	if sessions == nil {
		return nil, oops.Errorf("sessions repository is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if issuer == nil {
		return nil, oops.Errorf("token issuer is required")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	return &SessionService{
		accounts: accounts,
		sessions: sessions,
		hasher:   hasher,
		issuer:   issuer,
		logger:   logger,
	}, nil
}

// Login authenticates an account and creates one session holding the new
// refresh token. Absent account, wrong password, and disabled account all
// collapse into the same error so callers cannot tell which precondition
// failed. Uses constant-time operations to prevent timing-based email
// enumeration.
func (s *SessionService) Login(ctx context.Context, email, password, ipAddress, userAgent string) (*TokenPair, *Account, error) {
	normalized, normErr := NormalizeEmail(email)

	var account *Account
	targetHash := dummyPasswordHash
	if normErr == nil {
		found, lookupErr := s.accounts.GetByEmail(ctx, normalized)
		switch {
		case lookupErr == nil:
			account = found
			targetHash = found.PasswordHash
		case errors.Is(lookupErr, ErrNotFound):
			// Keep the dummy hash; verification still runs below.
		default:
			Logins.WithLabelValues(ResultFailure).Inc()
			return nil, nil, oops.Code("AUTH_LOGIN_FAILED").
				With("operation", "get account by email").
				Wrap(lookupErr)
		}
	}

	// Always verify the password so the response time does not depend on
	// whether the account exists.
	valid, verifyErr := s.hasher.Verify(password, targetHash)
	if verifyErr != nil && account != nil {
		Logins.WithLabelValues(ResultFailure).Inc()
		return nil, nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			Wrap(verifyErr)
	}

	if account == nil || !valid {
		Logins.WithLabelValues(ResultFailure).Inc()
		return nil, nil, invalidCredentials()
	}

	// Activity is checked AFTER password verification to maintain constant
	// time, and maps to the same external error.
	if !account.Active {
		Logins.WithLabelValues(ResultFailure).Inc()
		return nil, nil, invalidCredentials()
	}

	pair, _, err := s.openSession(ctx, account, ipAddress, userAgent)
	if err != nil {
		Logins.WithLabelValues(ResultFailure).Inc()
		return nil, nil, err
	}

	Logins.WithLabelValues(ResultSuccess).Inc()
	return pair, account, nil
}

// Refresh rotates a refresh token: the presented session is revoked and a
// successor session for the same account is created, together with a fresh
// access token. Rotation limits the blast radius of a leaked refresh token
// to a single use. Two concurrent calls with the same token race on a
// conditional revoke; exactly one wins and the loser observes the same
// error as any invalid token.
func (s *SessionService) Refresh(ctx context.Context, refreshToken, ipAddress, userAgent string) (*TokenPair, error) {
	if refreshToken == "" {
		RefreshRotations.WithLabelValues(ResultFailure).Inc()
		return nil, invalidRefreshToken()
	}

	session, err := s.sessions.GetByTokenHash(ctx, HashToken(refreshToken))
	if err != nil {
		RefreshRotations.WithLabelValues(ResultFailure).Inc()
		if errors.Is(err, ErrNotFound) {
			return nil, invalidRefreshToken()
		}
		return nil, oops.Code("AUTH_REFRESH_FAILED").
			With("operation", "get session by token hash").
			Wrap(err)
	}

	if session.Revoked {
		// A rotated token came back. Reported as a plain invalid token to
		// the caller; the metric and log are the theft-detection hook.
		RefreshRotations.WithLabelValues(ResultFailure).Inc()
		RefreshReuseDetected.Inc()
		s.logger.Warn("replay of rotated refresh token",
			"session_id", session.ID.String(),
			"account_id", session.AccountID.String(),
			"ip_address", ipAddress,
		)
		return nil, invalidRefreshToken()
	}
	if session.IsExpired() {
		RefreshRotations.WithLabelValues(ResultFailure).Inc()
		return nil, invalidRefreshToken()
	}

	account, err := s.accounts.GetByID(ctx, session.AccountID)
	if err != nil {
		RefreshRotations.WithLabelValues(ResultFailure).Inc()
		if errors.Is(err, ErrNotFound) {
			return nil, invalidRefreshToken()
		}
		return nil, oops.Code("AUTH_REFRESH_FAILED").
			With("operation", "get session account").
			Wrap(err)
	}
	if !account.Active {
		RefreshRotations.WithLabelValues(ResultFailure).Inc()
		return nil, invalidRefreshToken()
	}

	token, tokenHash, err := GenerateOpaqueToken()
	if err != nil {
		RefreshRotations.WithLabelValues(ResultFailure).Inc()
		return nil, oops.Code("AUTH_REFRESH_FAILED").
			With("operation", "generate refresh token").
			Wrap(err)
	}

	successor, err := NewSession(account.ID, tokenHash, ipAddress, userAgent, time.Now().Add(s.issuer.RefreshTokenTTL()))
	if err != nil {
		RefreshRotations.WithLabelValues(ResultFailure).Inc()
		return nil, oops.Code("AUTH_REFRESH_FAILED").
			With("operation", "create successor session").
			Wrap(err)
	}

	// The conditional revoke is the linearization point of the rotation:
	// only the caller that flips revoked=false -> true creates a successor.
	won, err := s.sessions.RevokeIfActive(ctx, session.ID, &successor.ID)
	if err != nil {
		RefreshRotations.WithLabelValues(ResultFailure).Inc()
		return nil, oops.Code("AUTH_REFRESH_FAILED").
			With("operation", "revoke presented session").
			With("session_id", session.ID.String()).
			Wrap(err)
	}
	if !won {
		RefreshRotations.WithLabelValues(ResultFailure).Inc()
		RefreshReuseDetected.Inc()
		return nil, invalidRefreshToken()
	}

	if err := s.sessions.Create(ctx, successor); err != nil {
		RefreshRotations.WithLabelValues(ResultFailure).Inc()
		return nil, oops.Code("AUTH_REFRESH_FAILED").
			With("operation", "persist successor session").
			With("session_id", successor.ID.String()).
			Wrap(err)
	}

	access, err := s.issuer.IssueAccessToken(account)
	if err != nil {
		RefreshRotations.WithLabelValues(ResultFailure).Inc()
		return nil, oops.Code("AUTH_REFRESH_FAILED").
			With("operation", "issue access token").
			Wrap(err)
	}

	RefreshRotations.WithLabelValues(ResultSuccess).Inc()
	SessionsRevoked.WithLabelValues("rotation").Inc()
	return &TokenPair{AccessToken: access, RefreshToken: token}, nil
}

// Logout revokes sessions for an account. With a refresh token it revokes
// only the matching session, and only when that session belongs to the
// account; without one it revokes every active session. Logout is
// idempotent: unknown, already-revoked, and foreign tokens all succeed
// without effect.
func (s *SessionService) Logout(ctx context.Context, accountID ulid.ULID, refreshToken string) error {
	if refreshToken == "" {
		revoked, err := s.sessions.RevokeAllForAccount(ctx, accountID)
		if err != nil {
			return oops.Code("AUTH_LOGOUT_FAILED").
				With("operation", "revoke all sessions").
				With("account_id", accountID.String()).
				Wrap(err)
		}
		SessionsRevoked.WithLabelValues("logout").Add(float64(revoked))
		return nil
	}

	session, err := s.sessions.GetByTokenHash(ctx, HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return oops.Code("AUTH_LOGOUT_FAILED").
			With("operation", "get session by token hash").
			Wrap(err)
	}
	if session.AccountID.Compare(accountID) != 0 {
		// Someone else's token; do nothing rather than leak its existence.
		return nil
	}

	won, err := s.sessions.RevokeIfActive(ctx, session.ID, nil)
	if err != nil {
		return oops.Code("AUTH_LOGOUT_FAILED").
			With("operation", "revoke session").
			With("session_id", session.ID.String()).
			Wrap(err)
	}
	if won {
		SessionsRevoked.WithLabelValues("logout").Inc()
	}
	return nil
}

// openSession issues an access token and persists one new session row for
// the account. Shared by login; refresh builds its successor inline because
// the CAS ordering differs.
func (s *SessionService) openSession(ctx context.Context, account *Account, ipAddress, userAgent string) (*TokenPair, *Session, error) {
	token, tokenHash, err := GenerateOpaqueToken()
	if err != nil {
		return nil, nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "generate refresh token").
			Wrap(err)
	}

	session, err := NewSession(account.ID, tokenHash, ipAddress, userAgent, time.Now().Add(s.issuer.RefreshTokenTTL()))
	if err != nil {
		return nil, nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "create session").
			Wrap(err)
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, nil, oops.Code("AUTH_SESSION_CREATE_FAILED").
			With("operation", "persist session").
			Wrap(err)
	}

	access, err := s.issuer.IssueAccessToken(account)
	if err != nil {
		// The orphaned session row expires on its own; best effort to drop it now.
		if _, revokeErr := s.sessions.RevokeIfActive(ctx, session.ID, nil); revokeErr != nil {
			errutil.LogError(s.logger, "failed to revoke session after token issue failure", revokeErr)
		}
		return nil, nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "issue access token").
			Wrap(err)
	}

	return &TokenPair{AccessToken: access, RefreshToken: token}, session, nil
}

func invalidCredentials() error {
	return oops.Code("AUTH_INVALID_CREDENTIALS").Errorf("invalid email or password")
}

func invalidRefreshToken() error {
	return oops.Code("REFRESH_TOKEN_INVALID").Errorf("refresh token is invalid, revoked, or expired")
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sport Tournaments Contributors

package auth

import (
	"context"
	"log/slog"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/sport-tournaments/auth-service/pkg/errutil"
)

// AccountSummary is the externally visible shape of an account. It never
// carries the password digest or any stored token hash.
type AccountSummary struct {
	ID       ulid.ULID `json:"id"`
	Email    string    `json:"email"`
	Name     string    `json:"name"`
	Role     Role      `json:"role"`
	Verified bool      `json:"verified"`
}

// summarize strips an Account down to its public fields.
func summarize(a *Account) AccountSummary {
	return AccountSummary{
		ID:       a.ID,
		Email:    a.Email,
		Name:     a.Name,
		Role:     a.Role,
		Verified: a.Verified,
	}
}

// RegisterResult is the register response. VerificationToken is present for
// out-of-band delivery only and must not be echoed back to the registrant by
// the transport layer.
type RegisterResult struct {
	Account           AccountSummary
	VerificationToken string
	Message           string
}

// LoginResult is the login response.
type LoginResult struct {
	Tokens  TokenPair
	Account AccountSummary
}

// Notifier delivers verification and reset tokens out of band. Delivery is
// an external collaborator; failures are logged, never surfaced, so a mail
// outage cannot be used to probe account existence.
type Notifier interface {
	SendVerification(ctx context.Context, email, token string) error
	SendPasswordReset(ctx context.Context, email, token string) error
}

// Auth is the facade over the account and session services: the single
// entry point exposed to callers. It routes calls and shapes responses; it
// holds no business logic of its own.
type Auth struct {
	accounts *AccountService
	sessions *SessionService
	issuer   *TokenIssuer
	notifier Notifier
	logger   *slog.Logger
}

// NewAuth composes the facade. notifier may be nil when no out-of-band
// channel is wired; tokens are then only returned to the caller.
func NewAuth(accounts *AccountService, sessions *SessionService, issuer *TokenIssuer, notifier Notifier, logger *slog.Logger) (*Auth, error) {
	if accounts == nil {
		return nil, oops.Errorf("account service is required")
	}
	if sessions == nil {
		return nil, oops.Errorf("session service is required")
	}
	if issuer == nil {
		return nil, oops.Errorf("token issuer is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Auth{
		accounts: accounts,
		sessions: sessions,
		issuer:   issuer,
		notifier: notifier,
		logger:   logger,
	}, nil
}

// Register creates an account and hands the verification token to the
// notifier when one is configured.
func (a *Auth) Register(ctx context.Context, email, password, name string) (*RegisterResult, error) {
	account, verifyToken, err := a.accounts.Register(ctx, email, password, name)
	if err != nil {
		return nil, err
	}

	if a.notifier != nil {
		if sendErr := a.notifier.SendVerification(ctx, account.Email, verifyToken); sendErr != nil {
			errutil.LogError(a.logger, "verification delivery failed", sendErr)
		}
	}

	return &RegisterResult{
		Account:           summarize(account),
		VerificationToken: verifyToken,
		Message:           "registration successful, please verify your email",
	}, nil
}

// Login authenticates and returns a token pair plus the account summary.
func (a *Auth) Login(ctx context.Context, email, password, ipAddress, userAgent string) (*LoginResult, error) {
	pair, account, err := a.sessions.Login(ctx, email, password, ipAddress, userAgent)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Tokens: *pair, Account: summarize(account)}, nil
}

// Refresh exchanges a refresh token for a new token pair, rotating the
// underlying session.
func (a *Auth) Refresh(ctx context.Context, refreshToken, ipAddress, userAgent string) (*TokenPair, error) {
	return a.sessions.Refresh(ctx, refreshToken, ipAddress, userAgent)
}

// VerifyEmail consumes a verification token.
func (a *Auth) VerifyEmail(ctx context.Context, token string) (*AccountSummary, error) {
	account, err := a.accounts.VerifyEmail(ctx, token)
	if err != nil {
		return nil, err
	}
	summary := summarize(account)
	return &summary, nil
}

// ForgotPassword requests a password reset. The response is identical
// whether or not the email belongs to an account.
func (a *Auth) ForgotPassword(ctx context.Context, email string) error {
	token, err := a.accounts.ForgotPassword(ctx, email)
	if err != nil {
		return err
	}

	if token != "" && a.notifier != nil {
		if sendErr := a.notifier.SendPasswordReset(ctx, email, token); sendErr != nil {
			errutil.LogError(a.logger, "reset delivery failed", sendErr)
		}
	}
	return nil
}

// ResetPassword consumes a reset token and installs the new password.
func (a *Auth) ResetPassword(ctx context.Context, token, newPassword string) error {
	return a.accounts.ResetPassword(ctx, token, newPassword)
}

// ChangePassword rotates the password of the authenticated account.
// accountID comes from a verified access token, never from request input.
func (a *Auth) ChangePassword(ctx context.Context, accountID ulid.ULID, currentPassword, newPassword string) error {
	return a.accounts.ChangePassword(ctx, accountID, currentPassword, newPassword)
}

// Logout revokes the matching session, or every session when refreshToken
// is empty. Idempotent.
func (a *Auth) Logout(ctx context.Context, accountID ulid.ULID, refreshToken string) error {
	return a.sessions.Logout(ctx, accountID, refreshToken)
}

// VerifyAccessToken is the verification primitive handed to the routing
// layer's guard. Stateless.
func (a *Auth) VerifyAccessToken(raw string) (*AccessClaims, error) {
	return a.issuer.VerifyAccessToken(raw)
}

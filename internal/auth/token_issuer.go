// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sport Tournaments Contributors

package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Token lifetime defaults.
const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// TokenConfig carries the issuer's secrets and lifetimes. It is passed
// explicitly at construction; the issuer never reads ambient configuration.
type TokenConfig struct {
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	SigningKey      []byte
	Issuer          string
}

// withDefaults fills zero-valued lifetimes.
func (c TokenConfig) withDefaults() TokenConfig {
	if c.AccessTokenTTL <= 0 {
		c.AccessTokenTTL = DefaultAccessTokenTTL
	}
	if c.RefreshTokenTTL <= 0 {
		c.RefreshTokenTTL = DefaultRefreshTokenTTL
	}
	return c
}

// AccessClaims are the claims carried by an access token.
type AccessClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// AccountID returns the subject as a ULID.
func (c *AccessClaims) AccountID() (ulid.ULID, error) {
	id, err := ulid.Parse(c.Subject)
	if err != nil {
		return ulid.ULID{}, oops.Code("AUTH_UNAUTHORIZED").
			With("operation", "parse subject").
			Wrap(err)
	}
	return id, nil
}

// TokenIssuer mints signed access tokens and verifies them without any
// store lookup. It is stateless and safe for concurrent use.
type TokenIssuer struct {
	cfg TokenConfig
}

// NewTokenIssuer creates a TokenIssuer from an explicit configuration.
func NewTokenIssuer(cfg TokenConfig) (*TokenIssuer, error) {
	if len(cfg.SigningKey) == 0 {
		return nil, oops.Code("TOKEN_CONFIG_INVALID").Errorf("signing key is required")
	}
	return &TokenIssuer{cfg: cfg.withDefaults()}, nil
}

// AccessTokenTTL returns the configured access token lifetime.
func (i *TokenIssuer) AccessTokenTTL() time.Duration {
	return i.cfg.AccessTokenTTL
}

// RefreshTokenTTL returns the configured refresh token lifetime.
func (i *TokenIssuer) RefreshTokenTTL() time.Duration {
	return i.cfg.RefreshTokenTTL
}

// IssueAccessToken mints a short-lived signed token asserting the account's
// identity and role.
func (i *TokenIssuer) IssueAccessToken(account *Account) (string, error) {
	if account == nil {
		return "", oops.Code("TOKEN_ISSUE_FAILED").Errorf("account cannot be nil")
	}

	now := time.Now()
	claims := &AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.cfg.Issuer,
			Subject:   account.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.cfg.AccessTokenTTL)),
		},
		Role: account.Role.String(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.cfg.SigningKey)
	if err != nil {
		return "", oops.Code("TOKEN_ISSUE_FAILED").
			With("operation", "sign access token").
			Wrap(err)
	}
	return signed, nil
}

// VerifyAccessToken validates signature and expiry and returns the claims.
// Verification is purely cryptographic; no store round-trip happens here.
func (i *TokenIssuer) VerifyAccessToken(raw string) (*AccessClaims, error) {
	if raw == "" {
		return nil, oops.Code("AUTH_UNAUTHORIZED").Errorf("access token cannot be empty")
	}

	claims := &AccessClaims{}
	token, err := jwt.ParseWithClaims(raw, claims,
		func(t *jwt.Token) (any, error) {
			return i.cfg.SigningKey, nil
		},
		// Pinning the algorithm rejects alg-confusion tokens outright.
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, oops.Code("AUTH_UNAUTHORIZED").Errorf("access token has expired")
		}
		return nil, oops.Code("AUTH_UNAUTHORIZED").
			With("operation", "parse access token").
			Wrap(err)
	}
	if !token.Valid {
		return nil, oops.Code("AUTH_UNAUTHORIZED").Errorf("access token is invalid")
	}

	return claims, nil
}

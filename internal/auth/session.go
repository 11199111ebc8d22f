// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sport Tournaments Contributors

package auth

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Session is a persisted refresh-token record. One active row exists per
// issued, not-yet-rotated refresh token. Revocation is monotonic: once
// Revoked is true the row never becomes active again, and a row past its
// ExpiresAt is inactive regardless of the flag.
type Session struct {
	ID        ulid.ULID
	AccountID ulid.ULID
	TokenHash string
	IPAddress string
	UserAgent string
	ExpiresAt time.Time
	Revoked   bool
	// RotatedTo links a rotated session to its successor. Nil for sessions
	// revoked by logout or still active.
	RotatedTo  *ulid.ULID
	CreatedAt  time.Time
	LastSeenAt time.Time
}

// NewSession creates a validated Session. IPAddress and UserAgent are
// advisory issuance metadata and may be empty.
func NewSession(accountID ulid.ULID, tokenHash, ipAddress, userAgent string, expiresAt time.Time) (*Session, error) {
	if accountID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("SESSION_INVALID_ACCOUNT").Errorf("account ID cannot be zero")
	}
	if tokenHash == "" {
		return nil, oops.Code("SESSION_INVALID_HASH").Errorf("token hash cannot be empty")
	}
	if expiresAt.IsZero() {
		return nil, oops.Code("SESSION_INVALID_EXPIRY").Errorf("expiry time cannot be zero")
	}

	now := time.Now()
	return &Session{
		ID:         ulid.Make(),
		AccountID:  accountID,
		TokenHash:  tokenHash,
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		ExpiresAt:  expiresAt,
		CreatedAt:  now,
		LastSeenAt: now,
	}, nil
}

// IsExpired returns true if the session is past its expiry.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// IsExpiredAt returns true if the session would be expired at the given time.
// Useful for testing with deterministic time values.
func (s *Session) IsExpiredAt(t time.Time) bool {
	return t.After(s.ExpiresAt)
}

// IsActive reports whether the session can still redeem a refresh token.
func (s *Session) IsActive() bool {
	return !s.Revoked && !s.IsExpired()
}

// SessionRepository manages refresh-session persistence.
type SessionRepository interface {
	// Create stores a new session.
	Create(ctx context.Context, session *Session) error

	// GetByID retrieves a session by its ID.
	GetByID(ctx context.Context, id ulid.ULID) (*Session, error)

	// GetByTokenHash retrieves a session by its refresh-token hash.
	GetByTokenHash(ctx context.Context, tokenHash string) (*Session, error)

	// GetByAccount retrieves all sessions for an account, newest first.
	GetByAccount(ctx context.Context, accountID ulid.ULID) ([]*Session, error)

	// RevokeIfActive atomically revokes the session only if it is currently
	// active (not revoked, not expired). Returns (true, nil) when this
	// caller performed the revocation and (false, nil) when the session was
	// already inactive or absent. This compare-and-swap is the guard that
	// makes refresh rotation race-safe: of two concurrent callers presenting
	// the same token, exactly one observes true.
	// rotatedTo, when non-nil, records the successor session ID.
	RevokeIfActive(ctx context.Context, id ulid.ULID, rotatedTo *ulid.ULID) (bool, error)

	// RevokeAllForAccount revokes every active session owned by the account
	// and returns the number of sessions revoked. Revoking zero sessions is
	// a valid outcome, not an error.
	RevokeAllForAccount(ctx context.Context, accountID ulid.ULID) (int64, error)

	// UpdateLastSeen updates the LastSeenAt timestamp for a session.
	UpdateLastSeen(ctx context.Context, id ulid.ULID, lastSeen time.Time) error

	// DeleteExpired removes sessions past their expiry and returns the count
	// of deleted rows. Advisory cleanup; expiry is enforced at read time.
	DeleteExpired(ctx context.Context) (int64, error)
}

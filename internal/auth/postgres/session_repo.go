// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sport Tournaments Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/sport-tournaments/auth-service/internal/auth"
)

const sessionColumns = `id, account_id, token_hash, ip_address, user_agent,
	expires_at, revoked, rotated_to, created_at, last_seen_at`

// SessionRepository implements auth.SessionRepository using PostgreSQL.
type SessionRepository struct {
	db DB
}

var _ auth.SessionRepository = (*SessionRepository)(nil)

// NewSessionRepository creates a new PostgreSQL session repository.
func NewSessionRepository(db DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create stores a new session.
func (r *SessionRepository) Create(ctx context.Context, session *auth.Session) error {
	var rotatedTo *string
	if session.RotatedTo != nil {
		s := session.RotatedTo.String()
		rotatedTo = &s
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO sessions (id, account_id, token_hash, ip_address, user_agent,
		 expires_at, revoked, rotated_to, created_at, last_seen_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		session.ID.String(),
		session.AccountID.String(),
		session.TokenHash,
		session.IPAddress,
		session.UserAgent,
		session.ExpiresAt,
		session.Revoked,
		rotatedTo,
		session.CreatedAt,
		session.LastSeenAt,
	)
	if err != nil {
		return oops.With("operation", "create session").Wrap(err)
	}
	return nil
}

// GetByID retrieves a session by its ID.
func (r *SessionRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.Session, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = $1`,
		id.String())
	return scanSession(row, "get session by id")
}

// GetByTokenHash retrieves a session by its refresh-token hash.
func (r *SessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*auth.Session, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE token_hash = $1`,
		tokenHash)
	return scanSession(row, "get session by token hash")
}

// GetByAccount retrieves all sessions for an account, newest first.
func (r *SessionRepository) GetByAccount(ctx context.Context, accountID ulid.ULID) ([]*auth.Session, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE account_id = $1 ORDER BY id DESC`,
		accountID.String())
	if err != nil {
		return nil, oops.With("operation", "get sessions by account").Wrap(err)
	}
	defer rows.Close()

	var sessions []*auth.Session
	for rows.Next() {
		s, scanErr := scanSessionValues(rows)
		if scanErr != nil {
			return nil, oops.With("operation", "scan session row").Wrap(scanErr)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.With("operation", "iterate sessions").Wrap(err)
	}
	return sessions, nil
}

// RevokeIfActive atomically revokes the session only if it is currently
// active. The conditional UPDATE is the linearization point for refresh
// rotation: of two concurrent callers revoking the same session, exactly one
// observes RowsAffected == 1.
func (r *SessionRepository) RevokeIfActive(ctx context.Context, id ulid.ULID, rotatedTo *ulid.ULID) (bool, error) {
	var rotatedToStr *string
	if rotatedTo != nil {
		s := rotatedTo.String()
		rotatedToStr = &s
	}
	tag, err := r.db.Exec(ctx,
		`UPDATE sessions SET revoked = TRUE, rotated_to = $2
		 WHERE id = $1 AND NOT revoked AND expires_at > now()`,
		id.String(), rotatedToStr)
	if err != nil {
		return false, oops.With("operation", "revoke session").Wrap(err)
	}
	return tag.RowsAffected() == 1, nil
}

// RevokeAllForAccount revokes every active session owned by the account.
func (r *SessionRepository) RevokeAllForAccount(ctx context.Context, accountID ulid.ULID) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE sessions SET revoked = TRUE WHERE account_id = $1 AND NOT revoked`,
		accountID.String())
	if err != nil {
		return 0, oops.With("operation", "revoke account sessions").Wrap(err)
	}
	return tag.RowsAffected(), nil
}

// UpdateLastSeen updates the LastSeenAt timestamp for a session.
func (r *SessionRepository) UpdateLastSeen(ctx context.Context, id ulid.ULID, lastSeen time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE sessions SET last_seen_at = $2 WHERE id = $1`,
		id.String(), lastSeen)
	if err != nil {
		return oops.With("operation", "update session last seen").Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return auth.ErrNotFound
	}
	return nil
}

// DeleteExpired removes sessions past their expiry.
func (r *SessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= now()`)
	if err != nil {
		return 0, oops.With("operation", "delete expired sessions").Wrap(err)
	}
	return tag.RowsAffected(), nil
}

// scanSession scans a single session row. pgx.ErrNoRows maps to
// auth.ErrNotFound.
func scanSession(row pgx.Row, operation string) (*auth.Session, error) {
	s, err := scanSessionValues(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, oops.With("operation", operation).Wrap(err)
	}
	return s, nil
}

func scanSessionValues(row pgx.Row) (*auth.Session, error) {
	var (
		s            auth.Session
		idStr        string
		accountIDStr string
		rotatedToStr *string
	)
	err := row.Scan(
		&idStr,
		&accountIDStr,
		&s.TokenHash,
		&s.IPAddress,
		&s.UserAgent,
		&s.ExpiresAt,
		&s.Revoked,
		&rotatedToStr,
		&s.CreatedAt,
		&s.LastSeenAt,
	)
	if err != nil {
		return nil, err
	}
	s.ID, err = ulid.Parse(idStr)
	if err != nil {
		return nil, oops.With("id", idStr).Wrapf(err, "corrupt session ID in database")
	}
	s.AccountID, err = ulid.Parse(accountIDStr)
	if err != nil {
		return nil, oops.With("account_id", accountIDStr).Wrapf(err, "corrupt account ID in database")
	}
	if rotatedToStr != nil {
		rotatedTo, parseErr := ulid.Parse(*rotatedToStr)
		if parseErr != nil {
			return nil, oops.With("rotated_to", *rotatedToStr).Wrapf(parseErr, "corrupt successor ID in database")
		}
		s.RotatedTo = &rotatedTo
	}
	return &s, nil
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sport Tournaments Contributors

package auth_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/sport-tournaments/auth-service/internal/auth"
)

// memAccountRepo is a mutex-guarded in-memory AccountRepository for tests
// that exercise real service flows rather than per-call expectations.
type memAccountRepo struct {
	mu       sync.Mutex
	accounts map[ulid.ULID]*auth.Account
}

func newMemAccountRepo() *memAccountRepo {
	return &memAccountRepo{accounts: make(map[ulid.ULID]*auth.Account)}
}

func cloneAccount(a *auth.Account) *auth.Account {
	c := *a
	return &c
}

func (r *memAccountRepo) Create(_ context.Context, account *auth.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.accounts {
		if existing.Email == account.Email {
			return auth.ErrDuplicateEmail
		}
	}
	r.accounts[account.ID] = cloneAccount(account)
	return nil
}

func (r *memAccountRepo) GetByID(_ context.Context, id ulid.ULID) (*auth.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return cloneAccount(account), nil
}

func (r *memAccountRepo) GetByEmail(_ context.Context, email string) (*auth.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, account := range r.accounts {
		if account.Email == email {
			return cloneAccount(account), nil
		}
	}
	return nil, auth.ErrNotFound
}

func (r *memAccountRepo) GetByVerifyTokenHash(_ context.Context, tokenHash string) (*auth.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, account := range r.accounts {
		if account.VerifyTokenHash != nil && *account.VerifyTokenHash == tokenHash {
			return cloneAccount(account), nil
		}
	}
	return nil, auth.ErrNotFound
}

func (r *memAccountRepo) GetByResetTokenHash(_ context.Context, tokenHash string) (*auth.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, account := range r.accounts {
		if account.ResetTokenHash != nil && *account.ResetTokenHash == tokenHash {
			return cloneAccount(account), nil
		}
	}
	return nil, auth.ErrNotFound
}

func (r *memAccountRepo) Update(_ context.Context, account *auth.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[account.ID]; !ok {
		return auth.ErrNotFound
	}
	r.accounts[account.ID] = cloneAccount(account)
	return nil
}

func (r *memAccountRepo) UpdatePassword(_ context.Context, id ulid.ULID, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[id]
	if !ok {
		return auth.ErrNotFound
	}
	account.PasswordHash = passwordHash
	return nil
}

func (r *memAccountRepo) SetVerified(_ context.Context, id ulid.ULID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[id]
	if !ok {
		return auth.ErrNotFound
	}
	account.Verified = true
	account.VerifyTokenHash = nil
	return nil
}

func (r *memAccountRepo) SetResetToken(_ context.Context, id ulid.ULID, tokenHash string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[id]
	if !ok {
		return auth.ErrNotFound
	}
	account.ResetTokenHash = &tokenHash
	account.ResetExpiresAt = &expiresAt
	return nil
}

func (r *memAccountRepo) ClearResetToken(_ context.Context, id ulid.ULID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[id]
	if !ok {
		return auth.ErrNotFound
	}
	account.ResetTokenHash = nil
	account.ResetExpiresAt = nil
	return nil
}

var _ auth.AccountRepository = (*memAccountRepo)(nil)

// memSessionRepo is a mutex-guarded in-memory SessionRepository. Its
// RevokeIfActive holds the same compare-and-swap contract as the Postgres
// implementation, which is what the concurrent rotation test leans on.
type memSessionRepo struct {
	mu       sync.Mutex
	sessions map[ulid.ULID]*auth.Session
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{sessions: make(map[ulid.ULID]*auth.Session)}
}

func cloneSession(s *auth.Session) *auth.Session {
	c := *s
	return &c
}

func (r *memSessionRepo) Create(_ context.Context, session *auth.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID] = cloneSession(session)
	return nil
}

func (r *memSessionRepo) GetByID(_ context.Context, id ulid.ULID) (*auth.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return cloneSession(session), nil
}

func (r *memSessionRepo) GetByTokenHash(_ context.Context, tokenHash string) (*auth.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, session := range r.sessions {
		if session.TokenHash == tokenHash {
			return cloneSession(session), nil
		}
	}
	return nil, auth.ErrNotFound
}

func (r *memSessionRepo) GetByAccount(_ context.Context, accountID ulid.ULID) ([]*auth.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*auth.Session
	for _, session := range r.sessions {
		if session.AccountID.Compare(accountID) == 0 {
			out = append(out, cloneSession(session))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID.Compare(out[j].ID) > 0
	})
	return out, nil
}

func (r *memSessionRepo) RevokeIfActive(_ context.Context, id ulid.ULID, rotatedTo *ulid.ULID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	if !ok || session.Revoked || time.Now().After(session.ExpiresAt) {
		return false, nil
	}
	session.Revoked = true
	session.RotatedTo = rotatedTo
	return true, nil
}

func (r *memSessionRepo) RevokeAllForAccount(_ context.Context, accountID ulid.ULID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var revoked int64
	for _, session := range r.sessions {
		if session.AccountID.Compare(accountID) == 0 && !session.Revoked && time.Now().Before(session.ExpiresAt) {
			session.Revoked = true
			revoked++
		}
	}
	return revoked, nil
}

func (r *memSessionRepo) UpdateLastSeen(_ context.Context, id ulid.ULID, lastSeen time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	if !ok {
		return auth.ErrNotFound
	}
	session.LastSeenAt = lastSeen
	return nil
}

func (r *memSessionRepo) DeleteExpired(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var deleted int64
	for id, session := range r.sessions {
		if time.Now().After(session.ExpiresAt) {
			delete(r.sessions, id)
			deleted++
		}
	}
	return deleted, nil
}

var _ auth.SessionRepository = (*memSessionRepo)(nil)

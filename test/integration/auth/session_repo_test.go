// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sport Tournaments Contributors

//go:build integration

package auth_test

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/sport-tournaments/auth-service/internal/auth"
)

var _ = Describe("SessionRepository", func() {
	var ctx context.Context
	var account *auth.Account

	BeforeEach(func() {
		ctx = context.Background()
		truncateAll(ctx)

		var err error
		account, err = auth.NewAccount("owner@example.com", "$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA", "Owner")
		Expect(err).NotTo(HaveOccurred())
		Expect(env.Accounts.Create(ctx, account)).To(Succeed())
	})

	newSession := func(expiresAt time.Time) *auth.Session {
		_, hash, err := auth.GenerateOpaqueToken()
		Expect(err).NotTo(HaveOccurred())
		session, err := auth.NewSession(account.ID, hash, "203.0.113.7", "curl/8.0", expiresAt)
		Expect(err).NotTo(HaveOccurred())
		return session
	}

	Describe("Create and lookups", func() {
		It("round-trips a session by ID and token hash", func() {
			session := newSession(time.Now().Add(time.Hour))
			Expect(env.Sessions.Create(ctx, session)).To(Succeed())

			got, err := env.Sessions.GetByID(ctx, session.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.AccountID).To(Equal(account.ID))
			Expect(got.IPAddress).To(Equal("203.0.113.7"))
			Expect(got.Revoked).To(BeFalse())
			Expect(got.RotatedTo).To(BeNil())

			got, err = env.Sessions.GetByTokenHash(ctx, session.TokenHash)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ID).To(Equal(session.ID))
		})

		It("lists an account's sessions newest first", func() {
			first := newSession(time.Now().Add(time.Hour))
			Expect(env.Sessions.Create(ctx, first)).To(Succeed())
			second := newSession(time.Now().Add(time.Hour))
			Expect(env.Sessions.Create(ctx, second)).To(Succeed())

			sessions, err := env.Sessions.GetByAccount(ctx, account.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(sessions).To(HaveLen(2))
			Expect(sessions[0].ID.Compare(sessions[1].ID)).To(BeNumerically(">", 0))
		})
	})

	Describe("RevokeIfActive", func() {
		It("revokes an active session exactly once", func() {
			session := newSession(time.Now().Add(time.Hour))
			Expect(env.Sessions.Create(ctx, session)).To(Succeed())
			successorID := ulid.Make()

			won, err := env.Sessions.RevokeIfActive(ctx, session.ID, &successorID)
			Expect(err).NotTo(HaveOccurred())
			Expect(won).To(BeTrue())

			won, err = env.Sessions.RevokeIfActive(ctx, session.ID, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(won).To(BeFalse(), "a revoked session cannot be revoked again")

			got, err := env.Sessions.GetByID(ctx, session.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Revoked).To(BeTrue())
			Expect(got.RotatedTo).NotTo(BeNil())
			Expect(*got.RotatedTo).To(Equal(successorID))
		})

		It("does not revoke an expired session", func() {
			session := newSession(time.Now().Add(-time.Minute))
			Expect(env.Sessions.Create(ctx, session)).To(Succeed())

			won, err := env.Sessions.RevokeIfActive(ctx, session.ID, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(won).To(BeFalse())
		})

		It("admits exactly one winner under concurrency", func() {
			session := newSession(time.Now().Add(time.Hour))
			Expect(env.Sessions.Create(ctx, session)).To(Succeed())

			const contenders = 8
			var wg sync.WaitGroup
			wins := make(chan bool, contenders)

			for range contenders {
				wg.Add(1)
				go func() {
					defer wg.Done()
					defer GinkgoRecover()
					won, err := env.Sessions.RevokeIfActive(ctx, session.ID, nil)
					Expect(err).NotTo(HaveOccurred())
					wins <- won
				}()
			}
			wg.Wait()
			close(wins)

			var winners int
			for won := range wins {
				if won {
					winners++
				}
			}
			Expect(winners).To(Equal(1))
		})
	})

	Describe("RevokeAllForAccount", func() {
		It("revokes only this account's active sessions and reports the count", func() {
			active1 := newSession(time.Now().Add(time.Hour))
			active2 := newSession(time.Now().Add(time.Hour))
			expired := newSession(time.Now().Add(-time.Minute))
			Expect(env.Sessions.Create(ctx, active1)).To(Succeed())
			Expect(env.Sessions.Create(ctx, active2)).To(Succeed())
			Expect(env.Sessions.Create(ctx, expired)).To(Succeed())

			other, err := auth.NewAccount("other@example.com", "$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA", "Other")
			Expect(err).NotTo(HaveOccurred())
			Expect(env.Accounts.Create(ctx, other)).To(Succeed())
			_, hash, err := auth.GenerateOpaqueToken()
			Expect(err).NotTo(HaveOccurred())
			foreign, err := auth.NewSession(other.ID, hash, "", "", time.Now().Add(time.Hour))
			Expect(err).NotTo(HaveOccurred())
			Expect(env.Sessions.Create(ctx, foreign)).To(Succeed())

			revoked, err := env.Sessions.RevokeAllForAccount(ctx, account.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(revoked).To(Equal(int64(2)))

			got, err := env.Sessions.GetByID(ctx, foreign.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Revoked).To(BeFalse())
		})
	})

	Describe("UpdateLastSeen", func() {
		It("moves the last-seen timestamp", func() {
			session := newSession(time.Now().Add(time.Hour))
			Expect(env.Sessions.Create(ctx, session)).To(Succeed())

			seen := time.Now().Add(10 * time.Minute)
			Expect(env.Sessions.UpdateLastSeen(ctx, session.ID, seen)).To(Succeed())

			got, err := env.Sessions.GetByID(ctx, session.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.LastSeenAt.Unix()).To(BeNumerically("~", seen.Unix(), 2))
		})
	})

	Describe("DeleteExpired", func() {
		It("removes only expired rows", func() {
			live := newSession(time.Now().Add(time.Hour))
			dead := newSession(time.Now().Add(-time.Minute))
			Expect(env.Sessions.Create(ctx, live)).To(Succeed())
			Expect(env.Sessions.Create(ctx, dead)).To(Succeed())

			deleted, err := env.Sessions.DeleteExpired(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(deleted).To(Equal(int64(1)))

			_, err = env.Sessions.GetByID(ctx, dead.ID)
			Expect(err).To(MatchError(auth.ErrNotFound))
			_, err = env.Sessions.GetByID(ctx, live.ID)
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("cascade delete", func() {
		It("removes sessions when the owning account is deleted", func() {
			session := newSession(time.Now().Add(time.Hour))
			Expect(env.Sessions.Create(ctx, session)).To(Succeed())

			_, err := env.pool.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, account.ID.String())
			Expect(err).NotTo(HaveOccurred())

			_, err = env.Sessions.GetByID(ctx, session.ID)
			Expect(err).To(MatchError(auth.ErrNotFound))
		})
	})
})

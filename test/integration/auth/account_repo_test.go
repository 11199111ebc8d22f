// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sport Tournaments Contributors

//go:build integration

package auth_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/sport-tournaments/auth-service/internal/auth"
)

var _ = Describe("AccountRepository", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
		truncateAll(ctx)
	})

	newAccount := func(email string) *auth.Account {
		account, err := auth.NewAccount(email, "$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA", "Test Account")
		Expect(err).NotTo(HaveOccurred())
		return account
	}

	Describe("Create", func() {
		It("persists and round-trips an account", func() {
			account := newAccount("alice@example.com")
			Expect(env.Accounts.Create(ctx, account)).To(Succeed())

			got, err := env.Accounts.GetByID(ctx, account.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Email).To(Equal("alice@example.com"))
			Expect(got.Role).To(Equal(auth.RoleUser))
			Expect(got.Active).To(BeTrue())
			Expect(got.Verified).To(BeFalse())
		})

		It("rejects a duplicate email in a different casing", func() {
			Expect(env.Accounts.Create(ctx, newAccount("bob@example.com"))).To(Succeed())

			dup := newAccount("bob@example.com")
			// Bypass NewAccount's normalization to hit the database index.
			dup.Email = "Bob@Example.com"
			err := env.Accounts.Create(ctx, dup)
			Expect(err).To(MatchError(auth.ErrDuplicateEmail))
		})
	})

	Describe("GetByEmail", func() {
		It("matches case-insensitively", func() {
			account := newAccount("carol@example.com")
			Expect(env.Accounts.Create(ctx, account)).To(Succeed())

			got, err := env.Accounts.GetByEmail(ctx, "Carol@Example.COM")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ID).To(Equal(account.ID))
		})

		It("returns ErrNotFound for an unknown email", func() {
			_, err := env.Accounts.GetByEmail(ctx, "ghost@example.com")
			Expect(err).To(MatchError(auth.ErrNotFound))
		})
	})

	Describe("verification tokens", func() {
		It("finds the holder of a token hash and clears it on SetVerified", func() {
			_, hash, err := auth.GenerateOpaqueToken()
			Expect(err).NotTo(HaveOccurred())

			account := newAccount("dave@example.com")
			account.VerifyTokenHash = &hash
			Expect(env.Accounts.Create(ctx, account)).To(Succeed())

			got, err := env.Accounts.GetByVerifyTokenHash(ctx, hash)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ID).To(Equal(account.ID))

			Expect(env.Accounts.SetVerified(ctx, account.ID)).To(Succeed())

			got, err = env.Accounts.GetByID(ctx, account.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Verified).To(BeTrue())
			Expect(got.VerifyTokenHash).To(BeNil())

			_, err = env.Accounts.GetByVerifyTokenHash(ctx, hash)
			Expect(err).To(MatchError(auth.ErrNotFound))
		})
	})

	Describe("reset tokens", func() {
		It("stores, finds, and clears a reset token", func() {
			account := newAccount("erin@example.com")
			Expect(env.Accounts.Create(ctx, account)).To(Succeed())

			_, hash, err := auth.GenerateOpaqueToken()
			Expect(err).NotTo(HaveOccurred())
			expiresAt := time.Now().Add(time.Hour)

			Expect(env.Accounts.SetResetToken(ctx, account.ID, hash, expiresAt)).To(Succeed())

			got, err := env.Accounts.GetByResetTokenHash(ctx, hash)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ID).To(Equal(account.ID))
			Expect(got.ResetExpiresAt).NotTo(BeNil())
			Expect(got.ResetExpiresAt.Unix()).To(BeNumerically("~", expiresAt.Unix(), 2))

			Expect(env.Accounts.ClearResetToken(ctx, account.ID)).To(Succeed())

			_, err = env.Accounts.GetByResetTokenHash(ctx, hash)
			Expect(err).To(MatchError(auth.ErrNotFound))
		})

		It("replaces a prior unconsumed token", func() {
			account := newAccount("frank@example.com")
			Expect(env.Accounts.Create(ctx, account)).To(Succeed())

			_, first, err := auth.GenerateOpaqueToken()
			Expect(err).NotTo(HaveOccurred())
			_, second, err := auth.GenerateOpaqueToken()
			Expect(err).NotTo(HaveOccurred())

			Expect(env.Accounts.SetResetToken(ctx, account.ID, first, time.Now().Add(time.Hour))).To(Succeed())
			Expect(env.Accounts.SetResetToken(ctx, account.ID, second, time.Now().Add(time.Hour))).To(Succeed())

			_, err = env.Accounts.GetByResetTokenHash(ctx, first)
			Expect(err).To(MatchError(auth.ErrNotFound))
			_, err = env.Accounts.GetByResetTokenHash(ctx, second)
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("UpdatePassword", func() {
		It("rotates only the password hash", func() {
			account := newAccount("grace@example.com")
			Expect(env.Accounts.Create(ctx, account)).To(Succeed())

			Expect(env.Accounts.UpdatePassword(ctx, account.ID, "$argon2id$v=19$m=65536,t=1,p=4$bmV3$bmV3")).To(Succeed())

			got, err := env.Accounts.GetByID(ctx, account.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.PasswordHash).To(Equal("$argon2id$v=19$m=65536,t=1,p=4$bmV3$bmV3"))
			Expect(got.Email).To(Equal("grace@example.com"))
		})
	})
})

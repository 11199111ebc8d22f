// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sport Tournaments Contributors

//go:build integration

package auth_test

import (
	"context"
	"log/slog"
	"sync"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/samber/oops"

	"github.com/sport-tournaments/auth-service/internal/auth"
)

// expectCode asserts an error carries the given application error code.
func expectCode(err error, code string) {
	GinkgoHelper()
	Expect(err).To(HaveOccurred())
	oopsErr, ok := oops.AsOops(err)
	Expect(ok).To(BeTrue())
	Expect(oopsErr.Code()).To(Equal(code))
}

var _ = Describe("Auth lifecycle", func() {
	var ctx context.Context
	var facade *auth.Auth

	BeforeEach(func() {
		ctx = context.Background()
		truncateAll(ctx)

		issuer, err := auth.NewTokenIssuer(auth.TokenConfig{
			SigningKey: []byte("integration-test-signing-key!!!!"),
			Issuer:     "authd-test",
		})
		Expect(err).NotTo(HaveOccurred())

		hasher := auth.NewArgon2idHasher()
		accounts, err := auth.NewAccountService(env.Accounts, env.Sessions, hasher)
		Expect(err).NotTo(HaveOccurred())
		sessions, err := auth.NewSessionService(env.Accounts, env.Sessions, hasher, issuer)
		Expect(err).NotTo(HaveOccurred())
		facade, err = auth.NewAuth(accounts, sessions, issuer, nil, slog.Default())
		Expect(err).NotTo(HaveOccurred())
	})

	It("carries an account from registration through logout", func() {
		reg, err := facade.Register(ctx, "alice@example.com", "initial-password", "Alice")
		Expect(err).NotTo(HaveOccurred())
		Expect(reg.Account.Verified).To(BeFalse())

		verified, err := facade.VerifyEmail(ctx, reg.VerificationToken)
		Expect(err).NotTo(HaveOccurred())
		Expect(verified.Verified).To(BeTrue())

		_, err = facade.VerifyEmail(ctx, reg.VerificationToken)
		expectCode(err, "VERIFY_TOKEN_INVALID")

		login, err := facade.Login(ctx, "Alice@Example.com", "initial-password", "203.0.113.7", "curl/8.0")
		Expect(err).NotTo(HaveOccurred())

		claims, err := facade.VerifyAccessToken(login.Tokens.AccessToken)
		Expect(err).NotTo(HaveOccurred())
		accountID, err := claims.AccountID()
		Expect(err).NotTo(HaveOccurred())
		Expect(accountID).To(Equal(reg.Account.ID))

		rotated, err := facade.Refresh(ctx, login.Tokens.RefreshToken, "203.0.113.7", "curl/8.0")
		Expect(err).NotTo(HaveOccurred())
		Expect(rotated.RefreshToken).NotTo(Equal(login.Tokens.RefreshToken))

		_, err = facade.Refresh(ctx, login.Tokens.RefreshToken, "203.0.113.7", "curl/8.0")
		expectCode(err, "REFRESH_TOKEN_INVALID")

		Expect(facade.Logout(ctx, accountID, rotated.RefreshToken)).To(Succeed())
		Expect(facade.Logout(ctx, accountID, rotated.RefreshToken)).To(Succeed())

		_, err = facade.Refresh(ctx, rotated.RefreshToken, "", "")
		expectCode(err, "REFRESH_TOKEN_INVALID")
	})

	It("revokes every session when a password reset completes", func() {
		reg, err := facade.Register(ctx, "bob@example.com", "initial-password", "Bob")
		Expect(err).NotTo(HaveOccurred())

		first, err := facade.Login(ctx, "bob@example.com", "initial-password", "", "laptop")
		Expect(err).NotTo(HaveOccurred())
		second, err := facade.Login(ctx, "bob@example.com", "initial-password", "", "phone")
		Expect(err).NotTo(HaveOccurred())

		Expect(facade.ForgotPassword(ctx, "bob@example.com")).To(Succeed())

		// Without a notifier the token only lands in the store; fish out the
		// account's reset state through the repository to drive the flow.
		account, err := env.Accounts.GetByID(ctx, reg.Account.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(account.ResetTokenHash).NotTo(BeNil())

		// ForgotPassword hands the plaintext token to the notifier only, so
		// repeat the request against the service to capture it directly.
		accounts, err := auth.NewAccountService(env.Accounts, env.Sessions, auth.NewArgon2idHasher())
		Expect(err).NotTo(HaveOccurred())
		resetToken, err := accounts.ForgotPassword(ctx, "bob@example.com")
		Expect(err).NotTo(HaveOccurred())
		Expect(resetToken).NotTo(BeEmpty())

		Expect(facade.ResetPassword(ctx, resetToken, "reset-password")).To(Succeed())

		_, err = facade.Refresh(ctx, first.Tokens.RefreshToken, "", "")
		expectCode(err, "REFRESH_TOKEN_INVALID")
		_, err = facade.Refresh(ctx, second.Tokens.RefreshToken, "", "")
		expectCode(err, "REFRESH_TOKEN_INVALID")

		_, err = facade.Login(ctx, "bob@example.com", "initial-password", "", "")
		expectCode(err, "AUTH_INVALID_CREDENTIALS")

		_, err = facade.Login(ctx, "bob@example.com", "reset-password", "", "")
		Expect(err).NotTo(HaveOccurred())
	})

	It("lets exactly one concurrent refresher win against the real store", func() {
		_, err := facade.Register(ctx, "carol@example.com", "password123", "Carol")
		Expect(err).NotTo(HaveOccurred())
		login, err := facade.Login(ctx, "carol@example.com", "password123", "", "")
		Expect(err).NotTo(HaveOccurred())

		const refreshers = 8
		var wg sync.WaitGroup
		results := make(chan error, refreshers)

		for range refreshers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer GinkgoRecover()
				_, refreshErr := facade.Refresh(ctx, login.Tokens.RefreshToken, "", "")
				results <- refreshErr
			}()
		}
		wg.Wait()
		close(results)

		var wins int
		for refreshErr := range results {
			if refreshErr == nil {
				wins++
			} else {
				expectCode(refreshErr, "REFRESH_TOKEN_INVALID")
			}
		}
		Expect(wins).To(Equal(1))
	})
})

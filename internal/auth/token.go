// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sport Tournaments Contributors

package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"github.com/samber/oops"
)

// OpaqueTokenBytes is the entropy of every opaque token this package
// generates (refresh, verification, reset). 32 bytes = 64 hex chars.
const OpaqueTokenBytes = 32

// GenerateOpaqueToken creates a secure random token and its hash.
// Returns (plaintext_token, sha256_hash, error). The plaintext token is
// handed to the caller exactly once; only the hash is ever persisted.
func GenerateOpaqueToken() (token, hash string, err error) {
	buf := make([]byte, OpaqueTokenBytes)
	if _, err = rand.Read(buf); err != nil {
		return "", "", oops.Code("TOKEN_GENERATE_FAILED").
			With("operation", "crypto/rand.Read").
			With("requested_bytes", OpaqueTokenBytes).
			Wrap(err)
	}

	token = hex.EncodeToString(buf)
	hash = HashToken(token)

	return token, hash, nil
}

// HashToken computes the SHA-256 hash of an opaque token. Tokens are stored
// hashed so a leaked table does not yield usable credentials.
func HashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// VerifyTokenHash checks a plaintext token against a stored hash using a
// constant-time comparison.
func VerifyTokenHash(token, hash string) bool {
	if token == "" || hash == "" {
		return false
	}
	computed := HashToken(token)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(hash)) == 1
}

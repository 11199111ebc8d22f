// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sport Tournaments Contributors

// Package auth implements the authentication and session lifecycle subsystem:
// account registration, credential verification, access/refresh token
// issuance, refresh-token rotation, revocation, email verification, and
// password reset/change.
//
// # Domain Types
//
// Domain types (Account, Session) should be created through their
// constructors:
//   - NewAccount - creates an Account with normalized email and validated state
//   - NewSession - creates a Session with validated owner and expiry
//
// Direct struct initialization bypasses validation and may create invalid
// state. Repository implementations receive pre-validated types from these
// constructors.
//
// # Services
//
// Service types coordinate domain operations:
//   - AccountService - registration, email verification, password reset/change
//   - SessionService - login, refresh rotation, logout
//   - Auth - the facade composing both; the only externally reachable surface
//
// Services are created with New*Service constructors that validate
// dependencies.
//
// # Token duality
//
// Access tokens are signed JWTs verified without any store lookup. Refresh
// tokens are opaque random values whose only authority is the Session row
// that stores their hash; possession alone proves nothing. The two are
// deliberately distinct types and must never be unified.
package auth

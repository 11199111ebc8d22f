// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sport Tournaments Contributors

package auth

import "github.com/samber/oops"

// Role is a fixed enumeration of account roles.
type Role string

// Account roles.
const (
	RoleUser      Role = "user"
	RoleOrganizer Role = "organizer"
	RoleAdmin     Role = "admin"
)

// ParseRole converts a string into a Role.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser, RoleOrganizer, RoleAdmin:
		return Role(s), nil
	default:
		return "", oops.Code("AUTH_INVALID_ROLE").
			With("role", s).
			Errorf("unknown role: %q", s)
	}
}

// String returns the role name.
func (r Role) String() string {
	return string(r)
}

// IsValid reports whether the role is one of the known roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleOrganizer, RoleAdmin:
		return true
	}
	return false
}

// IsAuthorized reports whether role satisfies the required role set.
// An empty required set allows any valid role. Called by the routing layer
// before dispatching into this subsystem; no dynamic dispatch is involved.
func IsAuthorized(role Role, required ...Role) bool {
	if !role.IsValid() {
		return false
	}
	if len(required) == 0 {
		return true
	}
	for _, want := range required {
		if role == want {
			return true
		}
	}
	return false
}

package models

import (
	"strconv"

	"github.com/golang-jwt/jwt/v5"
)

// Role distinguishes the two principal kinds in the system.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
)

// Valid reports whether the role is one of the known variants.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleTeacher
}

// Principal is the authenticated identity resolved from a token.
type Principal struct {
	ID   int64
	Role Role
}

// Claims represents the JWT payload for access tokens. The subject is
// the principal id encoded as a decimal string.
type Claims struct {
	Role Role `json:"role"`
	jwt.RegisteredClaims
}

// Principal parses the claims back into a typed identity. A subject
// that does not parse to an integer yields ok=false; callers must
// treat that as an authentication failure, never a fallback identity.
func (c *Claims) Principal() (Principal, bool) {
	if c == nil || !c.Role.Valid() {
		return Principal{}, false
	}
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return Principal{}, false
	}
	return Principal{ID: id, Role: c.Role}, true
}

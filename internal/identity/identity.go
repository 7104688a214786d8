// Package identity is the thin surface of the external identity service:
// bearer tokens carry {user_id, role} and the core only consumes them.
// Password management and session issuance live outside this system.
package identity

import "github.com/google/uuid"

// Role is the caller's platform-wide role as asserted by the identity gate.
type Role string

const (
	RoleStudent Role = "student"
	RoleFaculty Role = "faculty"
)

// Valid reports whether the role is one the platform knows.
func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleFaculty
}

// Principal identifies an authenticated caller.
type Principal struct {
	ID   uuid.UUID
	Role Role
}

// IsFaculty reports whether the caller holds the faculty role. This is the
// loose check; coordinator-gated mutations go through the policy package.
func (p Principal) IsFaculty() bool {
	return p.Role == RoleFaculty
}

// Package auth holds the role model and the access policy consumed by the
// sync coordinator. The credential check is a verbatim port of the
// original hard-coded pairs: it is a placeholder for a login screen on a
// single-profile local tool, NOT a security boundary. Do not reuse it
// anywhere credentials matter.
package auth

import "errors"

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
	RoleNone  Role = ""
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// Fixed literal credential pairs, as in every variant of the source app.
var credentials = map[string]struct {
	password string
	role     Role
}{
	"admin": {password: "admin123", role: RoleAdmin},
	"user":  {password: "user123", role: RoleUser},
}

// Login resolves a username/password pair to a role. No hashing, no
// session expiry, no rate limiting.
func Login(username, password string) (Role, error) {
	cred, ok := credentials[username]
	if !ok || cred.password != password {
		return RoleNone, ErrInvalidCredentials
	}
	return cred.role, nil
}

// Policy answers the access questions the UI used to scatter as inline
// role comparisons. Consumers never compare roles directly.
type Policy interface {
	CanEdit(Role) bool
	CanDelete(Role) bool
}

// AdminOnly restricts edits and deletes of shared data to admins.
type AdminOnly struct{}

func (AdminOnly) CanEdit(r Role) bool   { return r == RoleAdmin }
func (AdminOnly) CanDelete(r Role) bool { return r == RoleAdmin }

// Permissive lets any authenticated role mutate; used by the variants
// without role gating.
type Permissive struct{}

func (Permissive) CanEdit(Role) bool   { return true }
func (Permissive) CanDelete(Role) bool { return true }

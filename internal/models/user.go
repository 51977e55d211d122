// Package models defines the data shapes passed between the storage kernel
// and its shell.
package models

import "time"

// Role distinguishes administrators from standard accounts.
type Role string

const (
	RoleStandard Role = "standard"
	RoleAdmin    Role = "admin"
)

// User is a registered account. The name is the stable identifier; the
// password itself is never kept, only a salt and an argon2id-derived verifier.
type User struct {
	Name      string
	Salt      []byte
	Verifier  []byte
	Role      Role
	CreatedAt time.Time
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

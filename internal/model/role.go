package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidValue is returned when a role, status or owner status
// string does not name one of the known enumeration members.  Values
// are rejected at decode time so unknown strings never reach the
// lifecycle or view logic.
var ErrInvalidValue = errors.New("invalid enum value")

// Role identifies which dashboard and which operations an account
// has.  The wire values are lower case.
type Role string

const (
	RoleOwner   Role = "owner"
	RoleManager Role = "manager"
	RoleWorker  Role = "worker"
)

// Roles lists every valid role in display order.
var Roles = []Role{RoleOwner, RoleManager, RoleWorker}

// ParseRole normalizes s (trim + lower case) and returns the matching
// Role.  Unknown values yield an error wrapping ErrInvalidValue.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	switch r {
	case RoleOwner, RoleManager, RoleWorker:
		return r, nil
	}
	return "", fmt.Errorf("role %q: %w", s, ErrInvalidValue)
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

// Label returns the human facing name of the role.  Managers are
// presented as supervisors and workers as employees.
func (r Role) Label() string {
	switch r {
	case RoleOwner:
		return "Owner"
	case RoleManager:
		return "Supervisor"
	case RoleWorker:
		return "Employee"
	}
	return string(r)
}

func (r Role) String() string { return string(r) }

// UnmarshalText implements encoding.TextUnmarshaler and rejects unknown roles.
func (r *Role) UnmarshalText(b []byte) error {
	v, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (r Role) MarshalText() ([]byte, error) { return []byte(r), nil }

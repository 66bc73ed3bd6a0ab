package core

import (
	"fmt"
	"strings"
)

// Role is the position an agent holds inside a session. The set is closed;
// the zero value is not a valid role.
type Role int

const (
	// RolePrimary is the only role allowed to request privileged capabilities.
	RolePrimary Role = iota + 1
	// RoleReviewer checks the work of the primary agent.
	RoleReviewer
	// RoleAdversary probes the session for weaknesses.
	RoleAdversary
	// RoleObserver watches without acting.
	RoleObserver
)

// Roles lists every valid role in declaration order.
var Roles = []Role{RolePrimary, RoleReviewer, RoleAdversary, RoleObserver}

// String returns the lower-case wire name of the role.
func (r Role) String() string {
	switch r {
	case RolePrimary:
		return "primary"
	case RoleReviewer:
		return "reviewer"
	case RoleAdversary:
		return "adversary"
	case RoleObserver:
		return "observer"
	default:
		return "unknown"
	}
}

// Valid reports whether r is a member of the closed role set.
func (r Role) Valid() bool {
	switch r {
	case RolePrimary, RoleReviewer, RoleAdversary, RoleObserver:
		return true
	default:
		return false
	}
}

// ParseRole maps a role name (case-insensitive) to its Role.
func ParseRole(name string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "primary":
		return RolePrimary, nil
	case "reviewer":
		return RoleReviewer, nil
	case "adversary":
		return RoleAdversary, nil
	case "observer":
		return RoleObserver, nil
	default:
		return 0, fmt.Errorf("unknown role %q", name)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid role %d", int(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler so roles can be written
// by name in YAML task specs and TOML configs.
func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

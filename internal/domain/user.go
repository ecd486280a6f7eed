package domain

import "time"

// Role enumerates the three account tiers. The ordering admin > tutor >
// bolsista is expressed through Rank, never through string comparison.
type Role string

const (
	RoleBolsista Role = "bolsista"
	RoleTutor    Role = "tutor"
	RoleAdmin    Role = "admin"
)

// Rank returns the position of the role in the total order. Unknown roles
// rank below every valid role.
func (r Role) Rank() int {
	switch r {
	case RoleAdmin:
		return 3
	case RoleTutor:
		return 2
	case RoleBolsista:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether the role ranks at or above min.
func (r Role) AtLeast(min Role) bool {
	return r.Rank() >= min.Rank()
}

// Valid reports whether the role is one of the three known tiers.
func (r Role) Valid() bool {
	return r.Rank() > 0
}

// User is the domain model for every account in the system. At most one
// record may hold RoleAdmin; the user service enforces that invariant and
// the schema backs it with a partial unique index.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	Campus       string
	Avatar       string
	CohortID     *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

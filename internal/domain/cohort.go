package domain

import "time"

// Cohort models a scholarship group ("bolsa") led by a tutor. MemberIDs
// holds the bolsistas currently attached; it is maintained by the user
// service whenever a bolsista is created, reassigned or removed.
type Cohort struct {
	ID        string
	Name      string
	MemberIDs []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

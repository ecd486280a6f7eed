package events

import (
	"time"

	"github.com/spec-kit/activity-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserCreated     EventType = "user_created"
	EventUserUpdated     EventType = "user_updated"
	EventUserDeleted     EventType = "user_deleted"
	EventActivityCreated EventType = "activity_created"
)

// Actor encapsulates actor metadata for an event. Both fields are empty for
// the bootstrap creation of the first account.
type Actor struct {
	SubjectID string      `json:"subject_id,omitempty"`
	Role      domain.Role `json:"role,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	EntityID  string      `json:"entity_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// UserChangedPayload payload for user lifecycle events.
type UserChangedPayload struct {
	Email    string      `json:"email"`
	Role     domain.Role `json:"role"`
	CohortID *string     `json:"cohort_id,omitempty"`
}

// ActivityCreatedPayload payload.
type ActivityCreatedPayload struct {
	Name     string                  `json:"name"`
	Campus   string                  `json:"campus"`
	Category domain.ActivityCategory `json:"category"`
	AuthorID string                  `json:"author_id"`
}

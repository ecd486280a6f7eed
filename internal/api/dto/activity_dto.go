package dto

import (
	"time"

	"github.com/spec-kit/activity-service/internal/domain"
)

// ActivityRequest payload for creating or updating activities. The author
// is never part of the payload; it is stamped from the caller's identity.
type ActivityRequest struct {
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	Campus       string     `json:"campus"`
	Category     string     `json:"category"`
	Visibility   bool       `json:"visibility"`
	StartDate    *time.Time `json:"start_date"`
	StudentCount *int       `json:"student_count"`
}

// ActivityResponse wire representation of an activity.
type ActivityResponse struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	Campus       string     `json:"campus"`
	Category     string     `json:"category"`
	Visibility   bool       `json:"visibility"`
	AuthorID     string     `json:"author_id"`
	StartDate    *time.Time `json:"start_date,omitempty"`
	StudentCount *int       `json:"student_count,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// FromActivity maps a domain activity to its response form.
func FromActivity(activity *domain.Activity) ActivityResponse {
	return ActivityResponse{
		ID:           activity.ID,
		Name:         activity.Name,
		Description:  activity.Description,
		Campus:       activity.Campus,
		Category:     string(activity.Category),
		Visibility:   activity.Visibility,
		AuthorID:     activity.AuthorID,
		StartDate:    activity.StartDate,
		StudentCount: activity.StudentCount,
		CreatedAt:    activity.CreatedAt,
		UpdatedAt:    activity.UpdatedAt,
	}
}

// FromActivities maps a slice of domain activities.
func FromActivities(activities []domain.Activity) []ActivityResponse {
	result := make([]ActivityResponse, 0, len(activities))
	for i := range activities {
		result = append(result, FromActivity(&activities[i]))
	}
	return result
}

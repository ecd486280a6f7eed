package dto

import (
	"time"

	"github.com/spec-kit/activity-service/internal/domain"
)

// CreateCohortRequest payload.
type CreateCohortRequest struct {
	Name string `json:"name"`
}

// CohortResponse wire representation of a cohort.
type CohortResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	MemberIDs []string  `json:"member_ids,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FromCohort maps a domain cohort to its response form.
func FromCohort(cohort *domain.Cohort) CohortResponse {
	return CohortResponse{
		ID:        cohort.ID,
		Name:      cohort.Name,
		MemberIDs: cohort.MemberIDs,
		CreatedAt: cohort.CreatedAt,
		UpdatedAt: cohort.UpdatedAt,
	}
}

// FromCohorts maps a slice of domain cohorts.
func FromCohorts(cohorts []domain.Cohort) []CohortResponse {
	result := make([]CohortResponse, 0, len(cohorts))
	for i := range cohorts {
		result = append(result, FromCohort(&cohorts[i]))
	}
	return result
}

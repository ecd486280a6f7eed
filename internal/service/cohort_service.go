package service

import (
	"context"

	"github.com/spec-kit/activity-service/internal/auth"
	"github.com/spec-kit/activity-service/internal/domain"
	"github.com/spec-kit/activity-service/internal/repository"
	apperrors "github.com/spec-kit/activity-service/pkg/util"
)

// CohortService manages scholarship groups. Member lists are written only
// by the user service's policy rules; this service reads them.
type CohortService struct {
	cohorts repository.CohortRepository
}

// NewCohortService builds the service.
func NewCohortService(cohorts repository.CohortRepository) *CohortService {
	return &CohortService{cohorts: cohorts}
}

// Create adds a new cohort. Only the administrator may do this.
func (s *CohortService) Create(ctx context.Context, actor *auth.Claims, name string) (*domain.Cohort, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthenticated("authentication required")
	}
	if actor.Role != domain.RoleAdmin {
		return nil, apperrors.NewInsufficientPermission("only the administrator may create cohorts")
	}
	if name == "" {
		return nil, apperrors.NewValidationError("cohort name is required", nil)
	}

	cohort := &domain.Cohort{Name: name}
	if err := s.cohorts.Create(ctx, cohort); err != nil {
		return nil, err
	}
	return cohort, nil
}

// List returns cohorts visible to the actor. Anonymous callers and
// bolsistas see names only (member lists cleared), tutors see their own
// cohort with members, the admin sees everything.
func (s *CohortService) List(ctx context.Context, actor *auth.Claims) ([]domain.Cohort, error) {
	cohorts, err := s.cohorts.List(ctx)
	if err != nil {
		return nil, err
	}

	if actor != nil && actor.Role == domain.RoleAdmin {
		return cohorts, nil
	}

	if actor != nil && actor.Role == domain.RoleTutor && actor.CohortID != nil {
		var own []domain.Cohort
		for _, cohort := range cohorts {
			if cohort.ID == *actor.CohortID {
				own = append(own, cohort)
			}
		}
		return own, nil
	}

	for i := range cohorts {
		cohorts[i].MemberIDs = nil
	}
	return cohorts, nil
}

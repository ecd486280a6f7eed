package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/activity-service/internal/auth"
	"github.com/spec-kit/activity-service/internal/domain"
	"github.com/spec-kit/activity-service/internal/events"
	"github.com/spec-kit/activity-service/internal/persistence"
	"github.com/spec-kit/activity-service/internal/repository"
	apperrors "github.com/spec-kit/activity-service/pkg/util"
)

const (
	activityFeedCacheKey = "activities:feed"
	activityFeedCacheTTL = time.Minute
)

// ActivityInput carries activity create/update payloads.
type ActivityInput struct {
	Name         string
	Description  string
	Campus       string
	Category     domain.ActivityCategory
	Visibility   bool
	StartDate    *time.Time
	StudentCount *int
}

// ActivityService implements activity CRUD. Its only authorization duty is
// stamping the author from the resolved claim on create; everything else is
// plain persistence glue. The unfiltered public feed is served through a
// short-lived Redis cache.
type ActivityService struct {
	activities repository.ActivityRepository
	cache      *persistence.Redis
	dispatcher events.Dispatcher
}

// NewActivityService builds the service. cache may be nil.
func NewActivityService(activities repository.ActivityRepository, cache *persistence.Redis, dispatcher events.Dispatcher) *ActivityService {
	return &ActivityService{activities: activities, cache: cache, dispatcher: dispatcher}
}

// Create stores a new activity authored by the actor.
func (s *ActivityService) Create(ctx context.Context, actor *auth.Claims, in ActivityInput) (*domain.Activity, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthenticated("authentication required")
	}
	if !auth.CanPerform(actor.Role, auth.ActionCreateActivity) {
		return nil, apperrors.NewInsufficientPermission("insufficient role")
	}
	if in.Name == "" || in.Description == "" || in.Campus == "" {
		return nil, apperrors.NewValidationError("name, description and campus are required", nil)
	}
	if in.Category == "" {
		in.Category = domain.CategoryOutros
	}
	if !in.Category.Valid() {
		return nil, apperrors.NewValidationError("unknown category", map[string]any{"category": string(in.Category)})
	}

	activity := &domain.Activity{
		Name:         in.Name,
		Description:  in.Description,
		Campus:       in.Campus,
		Category:     in.Category,
		Visibility:   in.Visibility,
		AuthorID:     actor.SubjectID(),
		StartDate:    in.StartDate,
		StudentCount: in.StudentCount,
	}
	if err := s.activities.Create(ctx, activity); err != nil {
		return nil, err
	}

	s.invalidateFeed(ctx)

	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventActivityCreated,
			EntityID:  activity.ID,
			Actor:     events.Actor{SubjectID: actor.SubjectID(), Role: actor.Role},
			Timestamp: time.Now(),
			Payload: events.ActivityCreatedPayload{
				Name:     activity.Name,
				Campus:   activity.Campus,
				Category: activity.Category,
				AuthorID: activity.AuthorID,
			},
		})
	}
	return activity, nil
}

// List returns activities matching the filter. The consultation is public.
func (s *ActivityService) List(ctx context.Context, filter repository.ActivityFilter) ([]domain.Activity, error) {
	if filter.Empty() {
		if cached := s.feedFromCache(ctx); cached != nil {
			return cached, nil
		}
	}

	result, err := s.activities.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, err
	}

	if filter.Empty() {
		s.feedToCache(ctx, result)
	}
	return result, nil
}

// Get returns a single activity.
func (s *ActivityService) Get(ctx context.Context, id string) (*domain.Activity, error) {
	activity, err := s.activities.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("activity", map[string]any{"id": id})
		}
		return nil, err
	}
	return activity, nil
}

// Update rewrites an activity's mutable fields. The author never changes.
func (s *ActivityService) Update(ctx context.Context, actor *auth.Claims, id string, in ActivityInput) (*domain.Activity, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthenticated("authentication required")
	}

	activity, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Category != "" && !in.Category.Valid() {
		return nil, apperrors.NewValidationError("unknown category", map[string]any{"category": string(in.Category)})
	}

	if in.Name != "" {
		activity.Name = in.Name
	}
	if in.Description != "" {
		activity.Description = in.Description
	}
	if in.Campus != "" {
		activity.Campus = in.Campus
	}
	if in.Category != "" {
		activity.Category = in.Category
	}
	activity.Visibility = in.Visibility
	if in.StartDate != nil {
		activity.StartDate = in.StartDate
	}
	if in.StudentCount != nil {
		activity.StudentCount = in.StudentCount
	}

	if err := s.activities.Update(ctx, activity); err != nil {
		return nil, err
	}
	s.invalidateFeed(ctx)
	return activity, nil
}

// Delete removes an activity.
func (s *ActivityService) Delete(ctx context.Context, actor *auth.Claims, id string) error {
	if actor == nil {
		return apperrors.NewUnauthenticated("authentication required")
	}
	if err := s.activities.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("activity", map[string]any{"id": id})
		}
		return err
	}
	s.invalidateFeed(ctx)
	return nil
}

func (s *ActivityService) feedFromCache(ctx context.Context) []domain.Activity {
	if s.cache == nil || s.cache.Client == nil {
		return nil
	}
	raw, err := s.cache.Client.Get(ctx, activityFeedCacheKey).Bytes()
	if err != nil {
		return nil
	}
	var result []domain.Activity
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil
	}
	return result
}

func (s *ActivityService) feedToCache(ctx context.Context, activities []domain.Activity) {
	if s.cache == nil || s.cache.Client == nil {
		return
	}
	raw, err := json.Marshal(activities)
	if err != nil {
		return
	}
	_ = s.cache.Client.Set(ctx, activityFeedCacheKey, raw, activityFeedCacheTTL).Err()
}

func (s *ActivityService) invalidateFeed(ctx context.Context) {
	if s.cache == nil || s.cache.Client == nil {
		return
	}
	_ = s.cache.Client.Del(ctx, activityFeedCacheKey).Err()
}

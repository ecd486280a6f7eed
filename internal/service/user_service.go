package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/activity-service/internal/auth"
	"github.com/spec-kit/activity-service/internal/domain"
	"github.com/spec-kit/activity-service/internal/events"
	"github.com/spec-kit/activity-service/internal/repository"
	apperrors "github.com/spec-kit/activity-service/pkg/util"
)

const minPasswordLen = 6

// CreateUserInput carries the create payload. CohortID is normalized so an
// empty string means "no cohort".
type CreateUserInput struct {
	Name     string
	Email    string
	Password string
	Role     domain.Role
	Campus   string
	Avatar   string
	CohortID *string
}

// UpdateUserInput carries the update payload. Nil fields are absent from
// the payload and left untouched. A non-nil empty CohortID detaches the
// user from any cohort.
type UpdateUserInput struct {
	Name     *string
	Email    *string
	Password *string
	Role     *domain.Role
	Campus   *string
	Avatar   *string
	CohortID *string
}

// UserService applies the record-level policy rules on every user mutation.
// The read-check-write sequences are serialized per target record (and
// globally for creation, which guards the single-admin invariant), closing
// the check-then-act race within one process. Deployments running several
// instances rely on the partial unique index on users(role='admin') and on
// the idempotent membership sync to stay consistent.
type UserService struct {
	users      repository.UserRepository
	cohorts    repository.CohortRepository
	dispatcher events.Dispatcher
	bcryptCost int

	createMu sync.Mutex
	records  recordLocks
}

// NewUserService builds the service.
func NewUserService(users repository.UserRepository, cohorts repository.CohortRepository, dispatcher events.Dispatcher, bcryptCost int) *UserService {
	return &UserService{
		users:      users,
		cohorts:    cohorts,
		dispatcher: dispatcher,
		bcryptCost: bcryptCost,
	}
}

// Create applies the creation policy. actor is nil for unauthenticated
// callers; that is only permitted while no administrator exists yet (the
// bootstrap case, the single moment where authorization is skipped).
func (s *UserService) Create(ctx context.Context, actor *auth.Claims, in CreateUserInput) (*domain.User, error) {
	if in.Name == "" || in.Email == "" || in.Password == "" || in.Campus == "" {
		return nil, apperrors.NewValidationError("name, email, password and campus are required", nil)
	}
	if !in.Role.Valid() {
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": string(in.Role)})
	}
	if len(in.Password) < minPasswordLen {
		return nil, apperrors.NewValidationError("password must have at least 6 characters", nil)
	}
	cohortID := normalizeCohort(in.CohortID)

	s.createMu.Lock()
	defer s.createMu.Unlock()

	admin, err := s.users.FindAdmin(ctx)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	adminExists := admin != nil

	if in.Role == domain.RoleAdmin && adminExists {
		return nil, apperrors.NewAdminAlreadyExists()
	}

	if adminExists {
		if actor == nil {
			return nil, apperrors.NewUnauthenticated("authentication required")
		}
		if !actor.Role.AtLeast(domain.RoleTutor) {
			return nil, apperrors.NewInsufficientPermission("insufficient role")
		}
		if actor.Role == domain.RoleTutor {
			if cohortID == nil || actor.CohortID == nil || *cohortID != *actor.CohortID {
				return nil, apperrors.NewInsufficientPermission("tutors may only create users in their own cohort")
			}
			if in.Role != domain.RoleBolsista {
				return nil, apperrors.NewInsufficientPermission("tutors may only create bolsistas")
			}
		}
	}

	if _, err := s.users.GetByEmail(ctx, in.Email); err == nil {
		return nil, apperrors.NewDuplicateEmail(in.Email)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         in.Role,
		Campus:       in.Campus,
		Avatar:       in.Avatar,
		CohortID:     cohortID,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	if user.Role == domain.RoleBolsista && user.CohortID != nil {
		if err := s.cohorts.AddMember(ctx, *user.CohortID, user.ID); err != nil {
			return nil, err
		}
	}

	s.publish(ctx, events.EventUserCreated, user, actor)
	return user, nil
}

// Update applies the update policy and keeps cohort member lists in sync
// with the resulting role/cohort assignment.
func (s *UserService) Update(ctx context.Context, actor *auth.Claims, id string, in UpdateUserInput) (*domain.User, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthenticated("authentication required")
	}

	unlock := s.records.lock(id)
	defer unlock()

	target, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"id": id})
		}
		return nil, err
	}

	isSelf := actor.SubjectID() == target.ID
	isAdmin := actor.Role == domain.RoleAdmin

	if !isSelf {
		if !isAdmin && actor.Role != domain.RoleTutor {
			return nil, apperrors.NewInsufficientPermission("insufficient role")
		}
		if !isAdmin {
			if target.Role == domain.RoleAdmin {
				return nil, apperrors.NewInsufficientPermission("insufficient role")
			}
			if actor.CohortID == nil || target.CohortID == nil || *target.CohortID != *actor.CohortID {
				return nil, apperrors.NewInsufficientPermission("tutors may only manage users in their own cohort")
			}
			if target.Role != domain.RoleBolsista {
				return nil, apperrors.NewInsufficientPermission("tutors may only edit bolsistas")
			}
			if in.Role != nil && *in.Role != domain.RoleBolsista {
				return nil, apperrors.NewInsufficientPermission("tutors may not change the user role")
			}
			if in.CohortID != nil {
				next := normalizeCohort(in.CohortID)
				if next == nil || *next != *actor.CohortID {
					return nil, apperrors.NewInsufficientPermission("tutors may only assign their own cohort")
				}
			}
		}
	}

	if isSelf && !isAdmin {
		// Disallowed self-edit fields are dropped, not rejected, so the
		// remaining fields in the same payload still apply.
		in.Role = nil
		in.CohortID = nil
	}

	if in.Email != nil && *in.Email != target.Email {
		taken, err := s.users.ExistsByEmailExcluding(ctx, *in.Email, target.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, apperrors.NewDuplicateEmail(*in.Email)
		}
	}

	if in.Role != nil {
		if !in.Role.Valid() {
			return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": string(*in.Role)})
		}
		if *in.Role == domain.RoleAdmin && !isAdmin {
			return nil, apperrors.NewInsufficientPermission("only the administrator may grant the admin role")
		}
		if target.Role == domain.RoleAdmin && *in.Role != domain.RoleAdmin {
			return nil, apperrors.NewInvalidTransition("the admin role cannot be removed")
		}
		if *in.Role == domain.RoleAdmin {
			existing, err := s.users.FindAdmin(ctx)
			if err != nil && !errors.Is(err, pgx.ErrNoRows) {
				return nil, err
			}
			if existing != nil && existing.ID != target.ID {
				return nil, apperrors.NewAdminAlreadyExists()
			}
		}
	}

	prevRole := target.Role
	prevCohort := target.CohortID

	if in.Name != nil {
		target.Name = *in.Name
	}
	if in.Email != nil {
		target.Email = *in.Email
	}
	if in.Campus != nil {
		target.Campus = *in.Campus
	}
	if in.Avatar != nil {
		target.Avatar = *in.Avatar
	}
	if in.Role != nil {
		target.Role = *in.Role
	}
	if in.CohortID != nil {
		target.CohortID = normalizeCohort(in.CohortID)
	}
	if in.Password != nil {
		if len(*in.Password) < minPasswordLen {
			return nil, apperrors.NewValidationError("password must have at least 6 characters", nil)
		}
		hash, err := auth.HashPassword(*in.Password, s.bcryptCost)
		if err != nil {
			return nil, err
		}
		target.PasswordHash = hash
	}

	if err := s.users.Update(ctx, target); err != nil {
		return nil, err
	}

	if err := s.syncMembership(ctx, target, prevRole, prevCohort); err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventUserUpdated, target, actor)
	return target, nil
}

// Delete applies the deletion policy. The administrator record can never be
// removed through this path, regardless of who asks.
func (s *UserService) Delete(ctx context.Context, actor *auth.Claims, id string) error {
	if actor == nil {
		return apperrors.NewUnauthenticated("authentication required")
	}
	if !actor.Role.AtLeast(domain.RoleTutor) {
		return apperrors.NewInsufficientPermission("insufficient role")
	}

	unlock := s.records.lock(id)
	defer unlock()

	target, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("user", map[string]any{"id": id})
		}
		return err
	}

	if target.Role == domain.RoleAdmin {
		return apperrors.NewCannotDeleteAdmin()
	}

	if actor.Role != domain.RoleAdmin {
		if target.Role != domain.RoleBolsista {
			return apperrors.NewInsufficientPermission("tutors may only remove bolsistas")
		}
		if actor.CohortID == nil || target.CohortID == nil || *target.CohortID != *actor.CohortID {
			return apperrors.NewInsufficientPermission("tutors may only remove bolsistas from their own cohort")
		}
	}

	if err := s.users.Delete(ctx, target.ID); err != nil {
		return err
	}
	if target.CohortID != nil {
		if err := s.cohorts.RemoveMember(ctx, *target.CohortID, target.ID); err != nil {
			return err
		}
	}

	s.publish(ctx, events.EventUserDeleted, target, actor)
	return nil
}

// List returns the records visible to the actor: admins see everyone,
// tutors their own cohort, bolsistas only themselves.
func (s *UserService) List(ctx context.Context, actor *auth.Claims) ([]domain.User, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthenticated("authentication required")
	}

	switch actor.Role {
	case domain.RoleAdmin:
		return s.users.List(ctx)
	case domain.RoleTutor:
		if actor.CohortID == nil {
			return nil, nil
		}
		return s.users.ListByCohort(ctx, *actor.CohortID)
	default:
		self, err := s.users.GetByID(ctx, actor.SubjectID())
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, nil
			}
			return nil, err
		}
		return []domain.User{*self}, nil
	}
}

// syncMembership reconciles cohort member lists after an update. Both store
// operations are idempotent, so a crash between the user write and this step
// is repaired by re-running the same mutation.
func (s *UserService) syncMembership(ctx context.Context, user *domain.User, prevRole domain.Role, prevCohort *string) error {
	currCohort := user.CohortID

	if prevRole == domain.RoleBolsista && prevCohort != nil {
		moved := user.Role != domain.RoleBolsista || currCohort == nil || *currCohort != *prevCohort
		if moved {
			if err := s.cohorts.RemoveMember(ctx, *prevCohort, user.ID); err != nil {
				return err
			}
		}
	}
	if user.Role == domain.RoleBolsista && currCohort != nil {
		if err := s.cohorts.AddMember(ctx, *currCohort, user.ID); err != nil {
			return err
		}
	}
	return nil
}

func (s *UserService) publish(ctx context.Context, eventType events.EventType, user *domain.User, actor *auth.Claims) {
	if s.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		EntityID:  user.ID,
		Timestamp: time.Now(),
		Payload: events.UserChangedPayload{
			Email:    user.Email,
			Role:     user.Role,
			CohortID: user.CohortID,
		},
	}
	if actor != nil {
		event.Actor = events.Actor{SubjectID: actor.SubjectID(), Role: actor.Role}
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func normalizeCohort(id *string) *string {
	if id == nil || *id == "" {
		return nil
	}
	return id
}

// recordLocks hands out one mutex per record id. Entries are kept for the
// process lifetime; the set is bounded by the number of user records.
type recordLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (l *recordLocks) lock(id string) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*sync.Mutex)
	}
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}

package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/activity-service/internal/auth"
	"github.com/spec-kit/activity-service/internal/domain"
	apperrors "github.com/spec-kit/activity-service/pkg/util"
)

const testBcryptCost = 4

type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[string]*domain.User{}}
}

func (f *fakeUserStore) Create(_ context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	clone := *user
	f.users[user.ID] = &clone
	return nil
}

func (f *fakeUserStore) Update(_ context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	clone := *user
	f.users[user.ID] = &clone
	return nil
}

func (f *fakeUserStore) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.users, id)
	return nil
}

func (f *fakeUserStore) GetByID(_ context.Context, id string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if user, ok := f.users[id]; ok {
		clone := *user
		return &clone, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUserStore) ExistsByEmailExcluding(_ context.Context, email, excludeID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.Email == email && user.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUserStore) FindAdmin(_ context.Context) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.Role == domain.RoleAdmin {
			clone := *user
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUserStore) List(_ context.Context) ([]domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.User, 0, len(f.users))
	for _, user := range f.users {
		out = append(out, *user)
	}
	return out, nil
}

func (f *fakeUserStore) ListByCohort(_ context.Context, cohortID string) ([]domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.User
	for _, user := range f.users {
		if user.CohortID != nil && *user.CohortID == cohortID {
			out = append(out, *user)
		}
	}
	return out, nil
}

type fakeCohortStore struct {
	mu      sync.Mutex
	members map[string]map[string]bool
}

func newFakeCohortStore() *fakeCohortStore {
	return &fakeCohortStore{members: map[string]map[string]bool{}}
}

func (f *fakeCohortStore) Create(_ context.Context, cohort *domain.Cohort) error {
	if cohort.ID == "" {
		cohort.ID = uuid.NewString()
	}
	return nil
}

func (f *fakeCohortStore) GetByID(_ context.Context, id string) (*domain.Cohort, error) {
	return nil, pgx.ErrNoRows
}

func (f *fakeCohortStore) List(_ context.Context) ([]domain.Cohort, error) {
	return nil, nil
}

func (f *fakeCohortStore) AddMember(_ context.Context, cohortID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.members[cohortID] == nil {
		f.members[cohortID] = map[string]bool{}
	}
	f.members[cohortID][userID] = true
	return nil
}

func (f *fakeCohortStore) RemoveMember(_ context.Context, cohortID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.members[cohortID], userID)
	return nil
}

func (f *fakeCohortStore) isMember(cohortID, userID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.members[cohortID][userID]
}

func claimsFor(user *domain.User) *auth.Claims {
	claims := &auth.Claims{
		Email:    user.Email,
		Role:     user.Role,
		CohortID: user.CohortID,
	}
	claims.Subject = user.ID
	return claims
}

func newTestUserService() (*UserService, *fakeUserStore, *fakeCohortStore) {
	users := newFakeUserStore()
	cohorts := newFakeCohortStore()
	return NewUserService(users, cohorts, nil, testBcryptCost), users, cohorts
}

func seedUser(t *testing.T, store *fakeUserStore, role domain.Role, email string, cohortID *string) *domain.User {
	t.Helper()
	user := &domain.User{
		Name:         "Seed " + email,
		Email:        email,
		PasswordHash: "x",
		Role:         role,
		Campus:       "Natal",
		CohortID:     cohortID,
	}
	require.NoError(t, store.Create(context.Background(), user))
	return user
}

func strptr(s string) *string { return &s }

func roleptr(r domain.Role) *domain.Role { return &r }

func validCreate(role domain.Role, email string, cohortID *string) CreateUserInput {
	return CreateUserInput{
		Name:     "User " + email,
		Email:    email,
		Password: "secret1",
		Role:     role,
		Campus:   "Natal",
		CohortID: cohortID,
	}
}

func TestCreateBootstrapAdmin(t *testing.T) {
	svc, _, _ := newTestUserService()
	ctx := context.Background()

	admin, err := svc.Create(ctx, nil, validCreate(domain.RoleAdmin, "admin@example.com", nil))
	require.NoError(t, err)
	require.Equal(t, domain.RoleAdmin, admin.Role)
	require.NotEmpty(t, admin.ID)
	require.NotEqual(t, "secret1", admin.PasswordHash)

	_, err = svc.Create(ctx, nil, validCreate(domain.RoleAdmin, "admin2@example.com", nil))
	require.True(t, apperrors.HasCode(err, apperrors.CodeAdminAlreadyExists))
}

func TestCreateBootstrapNonAdminUnauthenticated(t *testing.T) {
	svc, _, _ := newTestUserService()

	user, err := svc.Create(context.Background(), nil, validCreate(domain.RoleTutor, "tutor@example.com", nil))
	require.NoError(t, err)
	require.Equal(t, domain.RoleTutor, user.Role)
}

func TestCreateConcurrentAdminBootstrap(t *testing.T) {
	svc, _, _ := newTestUserService()
	ctx := context.Background()

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			in := validCreate(domain.RoleAdmin, fmt.Sprintf("admin%d@example.com", i), nil)
			_, errs[i] = svc.Create(ctx, nil, in)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			require.True(t, apperrors.HasCode(err, apperrors.CodeAdminAlreadyExists))
		}
	}
	require.Equal(t, 1, succeeded)
}

func TestCreateRequiresAuthOnceAdminExists(t *testing.T) {
	svc, users, _ := newTestUserService()
	ctx := context.Background()
	seedUser(t, users, domain.RoleAdmin, "admin@example.com", nil)

	_, err := svc.Create(ctx, nil, validCreate(domain.RoleBolsista, "b@example.com", nil))
	require.True(t, apperrors.HasCode(err, apperrors.CodeUnauthenticated))

	bolsista := seedUser(t, users, domain.RoleBolsista, "existing@example.com", nil)
	_, err = svc.Create(ctx, claimsFor(bolsista), validCreate(domain.RoleBolsista, "b2@example.com", nil))
	require.True(t, apperrors.HasCode(err, apperrors.CodeInsufficientPermission))
}

func TestCreateTutorScoping(t *testing.T) {
	svc, users, cohorts := newTestUserService()
	ctx := context.Background()
	seedUser(t, users, domain.RoleAdmin, "admin@example.com", nil)
	tutor := seedUser(t, users, domain.RoleTutor, "tutor@example.com", strptr("c1"))

	// Tutors cannot create other tutors, even in their own cohort.
	_, err := svc.Create(ctx, claimsFor(tutor), validCreate(domain.RoleTutor, "t2@example.com", strptr("c1")))
	require.True(t, apperrors.HasCode(err, apperrors.CodeInsufficientPermission))

	// Nor bolsistas in somebody else's cohort.
	_, err = svc.Create(ctx, claimsFor(tutor), validCreate(domain.RoleBolsista, "b@example.com", strptr("c2")))
	require.True(t, apperrors.HasCode(err, apperrors.CodeInsufficientPermission))

	bolsista, err := svc.Create(ctx, claimsFor(tutor), validCreate(domain.RoleBolsista, "b@example.com", strptr("c1")))
	require.NoError(t, err)
	require.True(t, cohorts.isMember("c1", bolsista.ID))
}

func TestCreateDuplicateEmail(t *testing.T) {
	svc, users, _ := newTestUserService()
	ctx := context.Background()
	admin := seedUser(t, users, domain.RoleAdmin, "admin@example.com", nil)

	_, err := svc.Create(ctx, claimsFor(admin), validCreate(domain.RoleBolsista, "admin@example.com", nil))
	require.True(t, apperrors.HasCode(err, apperrors.CodeDuplicateEmail))
}

func TestCreateValidation(t *testing.T) {
	svc, _, _ := newTestUserService()
	ctx := context.Background()

	in := validCreate(domain.RoleBolsista, "b@example.com", nil)
	in.Password = "short"
	_, err := svc.Create(ctx, nil, in)
	require.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))

	in = validCreate(domain.Role("manager"), "b@example.com", nil)
	_, err = svc.Create(ctx, nil, in)
	require.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))

	in = validCreate(domain.RoleBolsista, "", nil)
	_, err = svc.Create(ctx, nil, in)
	require.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
}

func TestUpdateSelfEditStripsRoleAndCohort(t *testing.T) {
	svc, users, cohorts := newTestUserService()
	ctx := context.Background()
	seedUser(t, users, domain.RoleAdmin, "admin@example.com", nil)
	bolsista := seedUser(t, users, domain.RoleBolsista, "b@example.com", strptr("c1"))
	require.NoError(t, cohorts.AddMember(ctx, "c1", bolsista.ID))

	updated, err := svc.Update(ctx, claimsFor(bolsista), bolsista.ID, UpdateUserInput{
		Name:     strptr("New Name"),
		Role:     roleptr(domain.RoleTutor),
		CohortID: strptr("c2"),
	})
	require.NoError(t, err)
	require.Equal(t, "New Name", updated.Name)
	require.Equal(t, domain.RoleBolsista, updated.Role)
	require.NotNil(t, updated.CohortID)
	require.Equal(t, "c1", *updated.CohortID)
	require.True(t, cohorts.isMember("c1", bolsista.ID))
}

func TestUpdateTutorScoping(t *testing.T) {
	svc, users, _ := newTestUserService()
	ctx := context.Background()
	seedUser(t, users, domain.RoleAdmin, "admin@example.com", nil)
	tutor := seedUser(t, users, domain.RoleTutor, "tutor@example.com", strptr("c1"))
	inCohort := seedUser(t, users, domain.RoleBolsista, "b1@example.com", strptr("c1"))
	outCohort := seedUser(t, users, domain.RoleBolsista, "b2@example.com", strptr("c2"))
	peer := seedUser(t, users, domain.RoleTutor, "t2@example.com", strptr("c1"))

	_, err := svc.Update(ctx, claimsFor(tutor), outCohort.ID, UpdateUserInput{Name: strptr("x")})
	require.True(t, apperrors.HasCode(err, apperrors.CodeInsufficientPermission))

	_, err = svc.Update(ctx, claimsFor(tutor), peer.ID, UpdateUserInput{Name: strptr("x")})
	require.True(t, apperrors.HasCode(err, apperrors.CodeInsufficientPermission))

	// Tutors cannot move a bolsista into a different cohort.
	_, err = svc.Update(ctx, claimsFor(tutor), inCohort.ID, UpdateUserInput{CohortID: strptr("c2")})
	require.True(t, apperrors.HasCode(err, apperrors.CodeInsufficientPermission))

	updated, err := svc.Update(ctx, claimsFor(tutor), inCohort.ID, UpdateUserInput{Name: strptr("Renamed")})
	require.NoError(t, err)
	require.Equal(t, "Renamed", updated.Name)
}

func TestUpdateAdminRoleTransitions(t *testing.T) {
	svc, users, _ := newTestUserService()
	ctx := context.Background()
	admin := seedUser(t, users, domain.RoleAdmin, "admin@example.com", nil)
	tutor := seedUser(t, users, domain.RoleTutor, "tutor@example.com", nil)

	// The admin role is one-way.
	_, err := svc.Update(ctx, claimsFor(admin), admin.ID, UpdateUserInput{Role: roleptr(domain.RoleTutor)})
	require.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition))

	// Only the admin may grant it.
	_, err = svc.Update(ctx, claimsFor(tutor), tutor.ID, UpdateUserInput{Role: roleptr(domain.RoleAdmin)})
	require.True(t, apperrors.HasCode(err, apperrors.CodeInsufficientPermission))

	// And never while another admin exists.
	_, err = svc.Update(ctx, claimsFor(admin), tutor.ID, UpdateUserInput{Role: roleptr(domain.RoleAdmin)})
	require.True(t, apperrors.HasCode(err, apperrors.CodeAdminAlreadyExists))
}

func TestUpdateEmailUniqueness(t *testing.T) {
	svc, users, _ := newTestUserService()
	ctx := context.Background()
	admin := seedUser(t, users, domain.RoleAdmin, "admin@example.com", nil)
	seedUser(t, users, domain.RoleBolsista, "taken@example.com", nil)

	bolsista := seedUser(t, users, domain.RoleBolsista, "b@example.com", nil)
	_, err := svc.Update(ctx, claimsFor(admin), bolsista.ID, UpdateUserInput{Email: strptr("taken@example.com")})
	require.True(t, apperrors.HasCode(err, apperrors.CodeDuplicateEmail))
}

func TestUpdateMembershipSync(t *testing.T) {
	svc, users, cohorts := newTestUserService()
	ctx := context.Background()
	admin := seedUser(t, users, domain.RoleAdmin, "admin@example.com", nil)
	bolsista := seedUser(t, users, domain.RoleBolsista, "b@example.com", strptr("c1"))
	require.NoError(t, cohorts.AddMember(ctx, "c1", bolsista.ID))

	_, err := svc.Update(ctx, claimsFor(admin), bolsista.ID, UpdateUserInput{CohortID: strptr("c2")})
	require.NoError(t, err)
	require.False(t, cohorts.isMember("c1", bolsista.ID))
	require.True(t, cohorts.isMember("c2", bolsista.ID))

	// Detaching clears the membership as well.
	_, err = svc.Update(ctx, claimsFor(admin), bolsista.ID, UpdateUserInput{CohortID: strptr("")})
	require.NoError(t, err)
	require.False(t, cohorts.isMember("c2", bolsista.ID))
}

func TestUpdateNotFound(t *testing.T) {
	svc, users, _ := newTestUserService()
	admin := seedUser(t, users, domain.RoleAdmin, "admin@example.com", nil)

	_, err := svc.Update(context.Background(), claimsFor(admin), "missing", UpdateUserInput{Name: strptr("x")})
	require.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestDeleteAdminAlwaysDenied(t *testing.T) {
	svc, users, _ := newTestUserService()
	admin := seedUser(t, users, domain.RoleAdmin, "admin@example.com", nil)

	err := svc.Delete(context.Background(), claimsFor(admin), admin.ID)
	require.True(t, apperrors.HasCode(err, apperrors.CodeCannotDeleteAdmin))
}

func TestDeleteTutorScoping(t *testing.T) {
	svc, users, cohorts := newTestUserService()
	ctx := context.Background()
	seedUser(t, users, domain.RoleAdmin, "admin@example.com", nil)
	tutor := seedUser(t, users, domain.RoleTutor, "tutor@example.com", strptr("c1"))
	inCohort := seedUser(t, users, domain.RoleBolsista, "b1@example.com", strptr("c1"))
	outCohort := seedUser(t, users, domain.RoleBolsista, "b2@example.com", strptr("c2"))
	require.NoError(t, cohorts.AddMember(ctx, "c1", inCohort.ID))

	err := svc.Delete(ctx, claimsFor(tutor), outCohort.ID)
	require.True(t, apperrors.HasCode(err, apperrors.CodeInsufficientPermission))

	require.NoError(t, svc.Delete(ctx, claimsFor(tutor), inCohort.ID))
	require.False(t, cohorts.isMember("c1", inCohort.ID))

	_, getErr := users.GetByID(ctx, inCohort.ID)
	require.ErrorIs(t, getErr, pgx.ErrNoRows)
}

func TestDeleteRequiresTutorRank(t *testing.T) {
	svc, users, _ := newTestUserService()
	ctx := context.Background()
	seedUser(t, users, domain.RoleAdmin, "admin@example.com", nil)
	bolsista := seedUser(t, users, domain.RoleBolsista, "b@example.com", nil)
	victim := seedUser(t, users, domain.RoleBolsista, "v@example.com", nil)

	err := svc.Delete(ctx, claimsFor(bolsista), victim.ID)
	require.True(t, apperrors.HasCode(err, apperrors.CodeInsufficientPermission))

	err = svc.Delete(ctx, nil, victim.ID)
	require.True(t, apperrors.HasCode(err, apperrors.CodeUnauthenticated))
}

func TestListTiers(t *testing.T) {
	svc, users, _ := newTestUserService()
	ctx := context.Background()
	admin := seedUser(t, users, domain.RoleAdmin, "admin@example.com", nil)
	tutor := seedUser(t, users, domain.RoleTutor, "tutor@example.com", strptr("c1"))
	seedUser(t, users, domain.RoleBolsista, "b1@example.com", strptr("c1"))
	bolsista := seedUser(t, users, domain.RoleBolsista, "b2@example.com", strptr("c2"))

	all, err := svc.List(ctx, claimsFor(admin))
	require.NoError(t, err)
	require.Len(t, all, 4)

	scoped, err := svc.List(ctx, claimsFor(tutor))
	require.NoError(t, err)
	require.Len(t, scoped, 2)
	for _, u := range scoped {
		require.Equal(t, "c1", *u.CohortID)
	}

	self, err := svc.List(ctx, claimsFor(bolsista))
	require.NoError(t, err)
	require.Len(t, self, 1)
	require.Equal(t, bolsista.ID, self[0].ID)

	_, err = svc.List(ctx, nil)
	require.True(t, apperrors.HasCode(err, apperrors.CodeUnauthenticated))
}

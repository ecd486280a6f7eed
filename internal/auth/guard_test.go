package auth

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/activity-service/internal/domain"
	apperrors "github.com/spec-kit/activity-service/pkg/util"
)

type fakeUserRepo struct {
	users map[string]*domain.User
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	if user, ok := f.users[id]; ok {
		return user, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, user := range f.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUserRepo) Create(_ context.Context, user *domain.User) error { return nil }
func (f *fakeUserRepo) Update(_ context.Context, user *domain.User) error { return nil }
func (f *fakeUserRepo) Delete(_ context.Context, id string) error         { return nil }
func (f *fakeUserRepo) ExistsByEmailExcluding(_ context.Context, _, _ string) (bool, error) {
	return false, nil
}
func (f *fakeUserRepo) FindAdmin(_ context.Context) (*domain.User, error) {
	return nil, pgx.ErrNoRows
}
func (f *fakeUserRepo) List(_ context.Context) ([]domain.User, error) { return nil, nil }
func (f *fakeUserRepo) ListByCohort(_ context.Context, _ string) ([]domain.User, error) {
	return nil, nil
}

func newGuardApp(t *testing.T, min domain.Role) (*fiber.App, *TokenManager, *fakeUserRepo) {
	t.Helper()

	repo := &fakeUserRepo{users: map[string]*domain.User{}}
	tokens := NewTokenManager("test-secret", time.Hour)
	guard := NewGuard(NewResolver(tokens, repo, "auth-token"))

	app := fiber.New()
	app.Get("/protected", func(c *fiber.Ctx) error {
		claims, err := guard.RequireRole(c, min)
		if err != nil {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).SendString(de.Code)
		}
		return c.SendString(claims.SubjectID())
	})
	return app, tokens, repo
}

func issueFor(t *testing.T, tokens *TokenManager, user *domain.User) string {
	t.Helper()
	token, _, err := tokens.Issue(user)
	require.NoError(t, err)
	return token
}

func TestGuardBearerHeader(t *testing.T) {
	app, tokens, repo := newGuardApp(t, domain.RoleBolsista)
	user := &domain.User{ID: "u1", Email: "b@example.com", Role: domain.RoleBolsista}
	repo.users[user.ID] = user

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+issueFor(t, tokens, user))

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	require.Equal(t, "u1", string(body))
}

func TestGuardCookieFallback(t *testing.T) {
	app, tokens, repo := newGuardApp(t, domain.RoleBolsista)
	user := &domain.User{ID: "u2", Email: "c@example.com", Role: domain.RoleTutor}
	repo.users[user.ID] = user

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: "auth-token", Value: issueFor(t, tokens, user)})

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGuardMissingToken(t *testing.T) {
	app, _, _ := newGuardApp(t, domain.RoleBolsista)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/protected", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	require.Equal(t, apperrors.CodeUnauthenticated, string(body))
}

func TestGuardDeletedSubject(t *testing.T) {
	app, tokens, _ := newGuardApp(t, domain.RoleBolsista)
	ghost := &domain.User{ID: "gone", Email: "gone@example.com", Role: domain.RoleBolsista}

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+issueFor(t, tokens, ghost))

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestGuardInsufficientRole(t *testing.T) {
	app, tokens, repo := newGuardApp(t, domain.RoleTutor)
	user := &domain.User{ID: "u3", Email: "b2@example.com", Role: domain.RoleBolsista}
	repo.users[user.ID] = user

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+issueFor(t, tokens, user))

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	require.Equal(t, apperrors.CodeInsufficientPermission, string(body))
}

func TestGuardIdempotent(t *testing.T) {
	app, tokens, repo := newGuardApp(t, domain.RoleTutor)
	user := &domain.User{ID: "u4", Email: "t@example.com", Role: domain.RoleTutor}
	repo.users[user.ID] = user
	token := issueFor(t, tokens, user)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
}

func TestGuardMiddlewareStoresClaims(t *testing.T) {
	repo := &fakeUserRepo{users: map[string]*domain.User{}}
	tokens := NewTokenManager("test-secret", time.Hour)
	guard := NewGuard(NewResolver(tokens, repo, "auth-token"))

	user := &domain.User{ID: "u5", Email: "a@example.com", Role: domain.RoleAdmin}
	repo.users[user.ID] = user

	app := fiber.New()
	app.Use(guard.Middleware(domain.RoleTutor))
	app.Get("/admin", func(c *fiber.Ctx) error {
		claims, ok := ClaimsFromContext(c)
		require.True(t, ok)
		return c.SendString(claims.SubjectID())
	})

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+issueFor(t, tokens, user))

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	require.Equal(t, "u5", string(body))
}

func TestGuardMalformedAuthorizationHeader(t *testing.T) {
	app, _, _ := newGuardApp(t, domain.RoleBolsista)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Token abc")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

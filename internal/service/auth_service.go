package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/activity-service/internal/auth"
	"github.com/spec-kit/activity-service/internal/config"
	"github.com/spec-kit/activity-service/internal/domain"
	"github.com/spec-kit/activity-service/internal/repository"
	apperrors "github.com/spec-kit/activity-service/pkg/util"
)

// AuthService coordinates the login flow and current-identity lookups.
type AuthService struct {
	users    repository.UserRepository
	tokenMgr *auth.TokenManager
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, users repository.UserRepository) *AuthService {
	return &AuthService{
		users:    users,
		tokenMgr: auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL()),
	}
}

// Login authenticates by email and password and issues a session token.
// Failure reasons are never distinguished to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, string, time.Time, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", time.Time{}, apperrors.NewUnauthenticated("invalid credentials")
		}
		return nil, "", time.Time{}, err
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthenticated("invalid credentials")
	}

	token, exp, err := s.tokenMgr.Issue(user)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return user, token, exp, nil
}

// CurrentUser re-loads the full record behind a resolved claim.
func (s *AuthService) CurrentUser(ctx context.Context, claims *auth.Claims) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, claims.SubjectID())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthenticated("authentication required")
		}
		return nil, err
	}
	return user, nil
}

// TokenManager exposes the underlying token manager for resolver wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

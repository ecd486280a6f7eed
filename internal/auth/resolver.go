package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/activity-service/internal/repository"
)

// Resolver extracts an identity claim from a request. It prefers a bearer
// token in the Authorization header and falls back to the session cookie,
// then re-confirms the subject still exists so tokens for deleted accounts
// stop working without a revocation list.
type Resolver struct {
	tokens     *TokenManager
	users      repository.UserRepository
	cookieName string
}

// NewResolver constructs a resolver.
func NewResolver(tokens *TokenManager, users repository.UserRepository, cookieName string) *Resolver {
	if cookieName == "" {
		cookieName = "auth-token"
	}
	return &Resolver{tokens: tokens, users: users, cookieName: cookieName}
}

// CookieName returns the session cookie name the resolver reads.
func (r *Resolver) CookieName() string {
	return r.cookieName
}

// Resolve returns the verified claim for the request, or nil when no valid
// identity is presented. A claim implies the subject existed in the store at
// the moment of the call. A non-nil error means the store itself failed and
// the request cannot be judged either way.
func (r *Resolver) Resolve(c *fiber.Ctx) (*Claims, error) {
	token := bearerToken(c)
	if token == "" {
		token = c.Cookies(r.cookieName)
	}
	if token == "" {
		return nil, nil
	}

	claims := r.tokens.Verify(token)
	if claims == nil {
		return nil, nil
	}

	if _, err := r.users.GetByID(c.Context(), claims.SubjectID()); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return claims, nil
}

func bearerToken(c *fiber.Ctx) string {
	header := c.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/activity-service/internal/domain"
	apperrors "github.com/spec-kit/activity-service/pkg/util"
)

const claimsKey = "auth_claims"

// Guard is the enforcement entry point for every mutating route. A caller
// either gets a claim back or a typed failure; there is no partial outcome.
type Guard struct {
	resolver *Resolver
}

// NewGuard constructs a guard over the resolver.
func NewGuard(resolver *Resolver) *Guard {
	return &Guard{resolver: resolver}
}

// Resolver exposes the underlying resolver for routes that allow anonymous
// callers (the bootstrap create path, public listings).
func (g *Guard) Resolver() *Resolver {
	return g.resolver
}

// RequireAuthenticated resolves the request identity and fails with an
// UNAUTHENTICATED error when none is present.
func (g *Guard) RequireAuthenticated(c *fiber.Ctx) (*Claims, error) {
	claims, err := g.resolver.Resolve(c)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if claims == nil {
		return nil, apperrors.NewUnauthenticated("authentication required")
	}
	return claims, nil
}

// RequireRole authenticates and then checks the claim's role against the
// minimum in the total order admin > tutor > bolsista.
func (g *Guard) RequireRole(c *fiber.Ctx, min domain.Role) (*Claims, error) {
	claims, err := g.RequireAuthenticated(c)
	if err != nil {
		return nil, err
	}
	if !claims.Role.AtLeast(min) {
		return nil, apperrors.NewInsufficientPermission("insufficient role")
	}
	return claims, nil
}

// Middleware enforces authentication for a route group and stores the claim
// in request locals for handlers that need it.
func (g *Guard) Middleware(min ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var (
			claims *Claims
			err    error
		)
		if len(min) > 0 {
			claims, err = g.RequireRole(c, min[0])
		} else {
			claims, err = g.RequireAuthenticated(c)
		}
		if err != nil {
			return err
		}
		c.Locals(claimsKey, claims)
		return c.Next()
	}
}

// ClaimsFromContext retrieves the claim stored by Middleware.
func ClaimsFromContext(c *fiber.Ctx) (*Claims, bool) {
	val := c.Locals(claimsKey)
	if val == nil {
		return nil, false
	}
	claims, ok := val.(*Claims)
	return claims, ok
}

package handlers

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/activity-service/internal/api/dto"
	"github.com/spec-kit/activity-service/internal/auth"
	"github.com/spec-kit/activity-service/internal/service"
	apperrors "github.com/spec-kit/activity-service/pkg/util"
)

// AuthHandler exposes login, logout and current-identity endpoints.
type AuthHandler struct {
	authService   *service.AuthService
	guard         *auth.Guard
	cookieName    string
	secureCookies bool
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService, guard *auth.Guard, cookieName string, secureCookies bool) *AuthHandler {
	return &AuthHandler{
		authService:   authService,
		guard:         guard,
		cookieName:    cookieName,
		secureCookies: secureCookies,
	}
}

// Login handles POST /auth/login. On success the session token is returned
// in the body and also set as an httpOnly cookie.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}

	user, token, exp, err := h.authService.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	c.Cookie(&fiber.Cookie{
		Name:     h.cookieName,
		Value:    token,
		Expires:  exp,
		MaxAge:   int(time.Until(exp).Seconds()),
		HTTPOnly: true,
		Secure:   h.secureCookies,
		SameSite: fiber.CookieSameSiteStrictMode,
	})

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"user": dto.FromUser(user),
			"auth": dto.AuthResponse{Token: token, ExpiresAt: exp},
		},
	})
}

// Logout handles POST /auth/logout. The token stays valid until expiry;
// logout only clears the client-held cookie.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   h.secureCookies,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
	return c.JSON(fiber.Map{"data": fiber.Map{"status": "logged_out"}})
}

// Me handles GET /auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	claims, err := h.guard.RequireAuthenticated(c)
	if err != nil {
		return err
	}

	user, err := h.authService.CurrentUser(c.Context(), claims)
	if err != nil {
		return err
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"data": fiber.Map{
			"authenticated": true,
			"user":          dto.FromUser(user),
		},
	})
}

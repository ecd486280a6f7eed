package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/activity-service/internal/api/dto"
	"github.com/spec-kit/activity-service/internal/auth"
	"github.com/spec-kit/activity-service/internal/domain"
	"github.com/spec-kit/activity-service/internal/service"
	apperrors "github.com/spec-kit/activity-service/pkg/util"
)

// UsersHandler exposes user CRUD endpoints. Authorization decisions live in
// the user service; this handler only resolves the caller identity and maps
// payloads.
type UsersHandler struct {
	users *service.UserService
	guard *auth.Guard
}

// NewUsersHandler constructs handler.
func NewUsersHandler(users *service.UserService, guard *auth.Guard) *UsersHandler {
	return &UsersHandler{users: users, guard: guard}
}

// Create handles POST /users. The route is deliberately not behind the auth
// middleware: while no administrator exists the very first account may be
// created anonymously, and the service decides when that applies.
func (h *UsersHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	claims, err := h.guard.Resolver().Resolve(c)
	if err != nil {
		return apperrors.MapError(err)
	}

	user, err := h.users.Create(c.Context(), claims, service.CreateUserInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     domain.Role(req.Role),
		Campus:   req.Campus,
		Avatar:   req.Avatar,
		CohortID: req.CohortID,
	})
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.FromUser(user)})
}

// List handles GET /users.
func (h *UsersHandler) List(c *fiber.Ctx) error {
	claims, err := h.guard.RequireAuthenticated(c)
	if err != nil {
		return err
	}

	users, err := h.users.List(c.Context(), claims)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromUsers(users)})
}

// Update handles PUT /users/:id.
func (h *UsersHandler) Update(c *fiber.Ctx) error {
	claims, err := h.guard.RequireAuthenticated(c)
	if err != nil {
		return err
	}

	var req dto.UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	input := service.UpdateUserInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Campus:   req.Campus,
		Avatar:   req.Avatar,
		CohortID: req.CohortID,
	}
	if req.Role != nil {
		role := domain.Role(*req.Role)
		input.Role = &role
	}

	user, err := h.users.Update(c.Context(), claims, c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromUser(user)})
}

// Delete handles DELETE /users/:id.
func (h *UsersHandler) Delete(c *fiber.Ctx) error {
	claims, err := h.guard.RequireRole(c, domain.RoleTutor)
	if err != nil {
		return err
	}

	if err := h.users.Delete(c.Context(), claims, c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"status": "deleted"}})
}

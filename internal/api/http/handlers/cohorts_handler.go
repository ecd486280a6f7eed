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

// CohortsHandler exposes cohort endpoints.
type CohortsHandler struct {
	cohorts *service.CohortService
	guard   *auth.Guard
}

// NewCohortsHandler constructs handler.
func NewCohortsHandler(cohorts *service.CohortService, guard *auth.Guard) *CohortsHandler {
	return &CohortsHandler{cohorts: cohorts, guard: guard}
}

// Create handles POST /cohorts. Admin only.
func (h *CohortsHandler) Create(c *fiber.Ctx) error {
	claims, err := h.guard.RequireRole(c, domain.RoleAdmin)
	if err != nil {
		return err
	}

	var req dto.CreateCohortRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	cohort, err := h.cohorts.Create(c.Context(), claims, req.Name)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.FromCohort(cohort)})
}

// List handles GET /cohorts. Anonymous callers get names only; the service
// tiers visibility by role.
func (h *CohortsHandler) List(c *fiber.Ctx) error {
	claims, err := h.guard.Resolver().Resolve(c)
	if err != nil {
		return apperrors.MapError(err)
	}

	cohorts, err := h.cohorts.List(c.Context(), claims)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromCohorts(cohorts)})
}

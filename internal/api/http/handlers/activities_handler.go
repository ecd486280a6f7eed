package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/activity-service/internal/api/dto"
	"github.com/spec-kit/activity-service/internal/auth"
	"github.com/spec-kit/activity-service/internal/domain"
	"github.com/spec-kit/activity-service/internal/repository"
	"github.com/spec-kit/activity-service/internal/service"
	apperrors "github.com/spec-kit/activity-service/pkg/util"
)

// ActivitiesHandler exposes activity CRUD endpoints.
type ActivitiesHandler struct {
	activities *service.ActivityService
	guard      *auth.Guard
}

// NewActivitiesHandler constructs handler.
func NewActivitiesHandler(activities *service.ActivityService, guard *auth.Guard) *ActivitiesHandler {
	return &ActivitiesHandler{activities: activities, guard: guard}
}

// List handles GET /activities. Consultation is public.
func (h *ActivitiesHandler) List(c *fiber.Ctx) error {
	filter := repository.ActivityFilter{}

	if name := c.Query("name"); name != "" {
		filter.Name = &name
	}
	if campus := c.Query("campus"); campus != "" {
		filter.Campus = &campus
	}
	if category := c.Query("category"); category != "" {
		cat := domain.ActivityCategory(category)
		filter.Category = &cat
	}
	if visibility := c.Query("visibility"); visibility != "" {
		parsed := visibility == "true"
		filter.Visibility = &parsed
	}
	if author := c.Query("author"); author != "" {
		filter.AuthorID = &author
	}
	if startDate := c.Query("start_date"); startDate != "" {
		parsed, err := time.Parse("2006-01-02", startDate)
		if err != nil {
			return apperrors.NewValidationError("invalid start_date, expected YYYY-MM-DD", nil)
		}
		filter.StartDate = &parsed
	}
	if limit := c.Query("limit"); limit != "" {
		if parsed, err := strconv.Atoi(limit); err == nil {
			filter.Limit = parsed
		}
	}
	if offset := c.Query("offset"); offset != "" {
		if parsed, err := strconv.Atoi(offset); err == nil {
			filter.Offset = parsed
		}
	}

	activities, err := h.activities.List(c.Context(), filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromActivities(activities)})
}

// Get handles GET /activities/:id.
func (h *ActivitiesHandler) Get(c *fiber.Ctx) error {
	activity, err := h.activities.Get(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromActivity(activity)})
}

// Create handles POST /activities. Requires authentication; the author is
// stamped from the caller.
func (h *ActivitiesHandler) Create(c *fiber.Ctx) error {
	claims, err := h.guard.RequireAuthenticated(c)
	if err != nil {
		return err
	}

	var req dto.ActivityRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	activity, err := h.activities.Create(c.Context(), claims, activityInput(req))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.FromActivity(activity)})
}

// Update handles PUT /activities/:id.
func (h *ActivitiesHandler) Update(c *fiber.Ctx) error {
	claims, err := h.guard.RequireAuthenticated(c)
	if err != nil {
		return err
	}

	var req dto.ActivityRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	activity, err := h.activities.Update(c.Context(), claims, c.Params("id"), activityInput(req))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromActivity(activity)})
}

// Delete handles DELETE /activities/:id.
func (h *ActivitiesHandler) Delete(c *fiber.Ctx) error {
	claims, err := h.guard.RequireAuthenticated(c)
	if err != nil {
		return err
	}

	if err := h.activities.Delete(c.Context(), claims, c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"status": "deleted"}})
}

func activityInput(req dto.ActivityRequest) service.ActivityInput {
	return service.ActivityInput{
		Name:         req.Name,
		Description:  req.Description,
		Campus:       req.Campus,
		Category:     domain.ActivityCategory(req.Category),
		Visibility:   req.Visibility,
		StartDate:    req.StartDate,
		StudentCount: req.StudentCount,
	}
}

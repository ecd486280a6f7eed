package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/activity-service/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health     *handlers.HealthHandler
	Auth       *handlers.AuthHandler
	Users      *handlers.UsersHandler
	Cohorts    *handlers.CohortsHandler
	Activities *handlers.ActivitiesHandler
}

// RegisterRoutes wires HTTP routes. Guarding happens inside handlers so the
// user-create route can serve the anonymous bootstrap case and listings can
// tier their visibility by the optional caller identity.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/logout", cfg.Auth.Logout)
	authGroup.Get("/me", cfg.Auth.Me)

	users := app.Group("/users")
	users.Post("", cfg.Users.Create)
	users.Get("", cfg.Users.List)
	users.Put("/:id", cfg.Users.Update)
	users.Delete("/:id", cfg.Users.Delete)

	cohorts := app.Group("/cohorts")
	cohorts.Post("", cfg.Cohorts.Create)
	cohorts.Get("", cfg.Cohorts.List)

	activities := app.Group("/activities")
	activities.Get("", cfg.Activities.List)
	activities.Get("/:id", cfg.Activities.Get)
	activities.Post("", cfg.Activities.Create)
	activities.Put("/:id", cfg.Activities.Update)
	activities.Delete("/:id", cfg.Activities.Delete)
}

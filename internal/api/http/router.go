package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/civicdesk/complaints-service/internal/api/http/handlers"
	"github.com/civicdesk/complaints-service/internal/auth"
	"github.com/civicdesk/complaints-service/internal/domain"
	"github.com/civicdesk/complaints-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Complaints     *handlers.ComplaintsHandler
	Admin          *handlers.AdminHandler
	Meta           *handlers.MetaHandler
	Metrics        *observability.Metrics
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))

	api := app.Group("/api")
	authenticated := cfg.AuthMiddleware.Handle

	authGroup := api.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/token", cfg.Auth.Login)
	authGroup.Get("/me", authenticated, cfg.Auth.Me)
	authGroup.Post("/logout", authenticated, cfg.Auth.Logout)

	meta := api.Group("/meta")
	meta.Get("/categories", cfg.Meta.Categories)
	meta.Get("/locations", cfg.Meta.Locations)

	complaints := api.Group("/complaints", authenticated)
	complaints.Post("/", cfg.Complaints.Create)
	complaints.Get("/", cfg.Complaints.List)
	complaints.Get("/:id", cfg.Complaints.Get)
	complaints.Put("/:id", cfg.Complaints.Update)
	complaints.Put("/:id/status", cfg.Complaints.UpdateStatus)
	complaints.Put("/:id/agency", cfg.Complaints.Assign)
	complaints.Get("/:id/history", cfg.Complaints.History)
	complaints.Get("/:id/responses", cfg.Complaints.ListResponses)
	complaints.Post("/:id/responses", cfg.Complaints.AddResponse)
	complaints.Get("/:id/attachments/*", cfg.Complaints.Attachment)

	api.Get("/agencies", authenticated, cfg.Admin.ListAgencies)

	admin := api.Group("/admin", authenticated, auth.RequireRole(domain.RoleSystemAdmin))
	admin.Get("/users", cfg.Admin.ListUsers)
	admin.Post("/users", cfg.Admin.CreateUser)
	admin.Put("/users/:id/toggle-status", cfg.Admin.ToggleStatus)
	admin.Put("/users/:id/role", cfg.Admin.AssignRole)
	admin.Get("/agencies", cfg.Admin.ListAgencies)
	admin.Post("/agencies", cfg.Admin.CreateAgency)
	admin.Get("/agencies/:id", cfg.Admin.GetAgency)
	admin.Put("/agencies/:id", cfg.Admin.UpdateAgency)
}

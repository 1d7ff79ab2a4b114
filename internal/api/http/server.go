package http

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/civicdesk/complaints-service/internal/api/http/handlers"
	"github.com/civicdesk/complaints-service/internal/auth"
	"github.com/civicdesk/complaints-service/internal/config"
	"github.com/civicdesk/complaints-service/internal/location"
	"github.com/civicdesk/complaints-service/internal/observability"
	"github.com/civicdesk/complaints-service/internal/service"
)

// Services are the application services served over HTTP.
type Services struct {
	Auth        *service.AuthService
	Admin       *service.AdminService
	Complaints  *service.ComplaintService
	Assignment  *service.AssignmentService
	Attachments *service.AttachmentService
	Locations   *location.Hierarchy
	Metrics     *observability.Metrics
	Logger      *zap.Logger
	// Dependencies are probed by /health/ready.
	Dependencies []handlers.Dependency
}

// multipartOverhead leaves room for form fields next to the attachment bytes.
const multipartOverhead = 1 << 20

// NewServer builds the fiber application with middlewares and routes.
func NewServer(cfg config.Config, svc Services) *fiber.App {
	maxFiles := cfg.Upload.MaxFiles
	if maxFiles <= 0 {
		maxFiles = 1
	}
	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		BodyLimit:             int(cfg.Upload.MaxBytes)*maxFiles + multipartOverhead,
		DisableStartupMessage: true,
	})

	RegisterMiddlewares(app, MiddlewareConfig{
		Logger:      svc.Logger,
		Metrics:     svc.Metrics,
		Timeout:     cfg.App.RequestTimeout(),
		CORSOrigins: cfg.App.CORSOrigins,
	})

	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, svc.Dependencies...),
		Auth:           handlers.NewAuthHandler(svc.Auth),
		Complaints:     handlers.NewComplaintsHandler(svc.Complaints, svc.Assignment, svc.Attachments),
		Admin:          handlers.NewAdminHandler(svc.Admin),
		Meta:           handlers.NewMetaHandler(svc.Locations),
		Metrics:        svc.Metrics,
		AuthMiddleware: auth.NewAuthMiddleware(svc.Auth),
	})
	return app
}

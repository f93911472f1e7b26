package adminHandler

import (
	adminService "VideoPresence/internal/api/admin/service"
	"VideoPresence/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type AdminHandler struct {
	log          *logrus.Logger
	middleware   middleware.Middleware
	adminService adminService.AdminService
}

func New(log *logrus.Logger, middleware middleware.Middleware, as adminService.AdminService) *AdminHandler {
	return &AdminHandler{
		log:          log,
		middleware:   middleware,
		adminService: as,
	}
}

func (h *AdminHandler) Start(srv fiber.Router) {
	admin := srv.Group("/admin")
	admin.Get("/generate-api-key", h.middleware.NewRateLimiter, h.HandleGenerateAPIKey)
	admin.Get("/all-users", h.middleware.NewAPIKeyMiddleware, h.HandleAllUsers)
	admin.Get("/all-responses", h.middleware.NewAPIKeyMiddleware, h.HandleAllResponses)
	admin.Get("/get-response-by-api-key", h.middleware.NewAPIKeyMiddleware, h.HandleResponsesByAPIKey)
}

package authHandler

import (
	authService "VideoPresence/internal/api/auth/service"
	"VideoPresence/internal/middleware"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type AuthHandler struct {
	log          *logrus.Logger
	authService  authService.AuthService
	validator    *validator.Validate
	middleware   middleware.Middleware
	secureCookie bool
}

func New(
	log *logrus.Logger,
	as authService.AuthService,
	validate *validator.Validate,
	middleware middleware.Middleware,
	secureCookie bool) *AuthHandler {
	return &AuthHandler{
		log:          log,
		authService:  as,
		validator:    validate,
		middleware:   middleware,
		secureCookie: secureCookie,
	}
}

func (h *AuthHandler) Start(srv fiber.Router) {
	auth := srv.Group("/auth")
	auth.Post("/register", h.middleware.NewRateLimiter, h.HandleRegister)
	auth.Get("/verify-email", h.HandleVerifyEmail)
	auth.Post("/verify-email", h.HandleVerifyEmail)
	auth.Post("/login", h.middleware.NewRateLimiter, h.HandleLogin)
	auth.Get("/refresh", h.HandleRefresh)
	auth.Get("/logout", h.middleware.NewTokenMiddleware, h.HandleLogout)

	users := srv.Group("/users", h.middleware.NewTokenMiddleware)
	users.Get("/me", h.HandleGetMe)
	users.Put("/me/update", h.HandleUpdateUser)
	users.Put("/me/change-password", h.HandleChangePassword)
	users.Delete("/me/delete", h.HandleDeleteUser)
}

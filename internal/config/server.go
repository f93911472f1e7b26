package config

import (
	"VideoPresence/database/postgres"
	adminHandler "VideoPresence/internal/api/admin/handler"
	adminRepository "VideoPresence/internal/api/admin/repository"
	adminService "VideoPresence/internal/api/admin/service"
	authHandler "VideoPresence/internal/api/auth/handler"
	authRepository "VideoPresence/internal/api/auth/repository"
	authService "VideoPresence/internal/api/auth/service"
	presenceHandler "VideoPresence/internal/api/presence/handler"
	presenceRepository "VideoPresence/internal/api/presence/repository"
	presenceService "VideoPresence/internal/api/presence/service"
	"VideoPresence/internal/middleware"
	"VideoPresence/pkg/bcrypt"
	"VideoPresence/pkg/redis"
	"VideoPresence/pkg/s3"
	"VideoPresence/pkg/smtp"
	"VideoPresence/pkg/utils"
	websocketPkg "VideoPresence/pkg/websocket"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

type ServerOption func(*Server) error

type Server struct {
	engine      *fiber.App
	db          *sqlx.DB
	log         *logrus.Logger
	middleware  middleware.Middleware
	validator   *validator.Validate
	utils       utils.IUtils
	bcryptUtils bcrypt.IBcrypt
	handlers    []handler
	redisServer redis.IRedis
	smtpMailer  smtp.ItfSmtp
	detector    websocketPkg.IWebsocket
	s3Client    s3.ItfS3
	presenceCfg presenceService.Config
}

type handler interface {
	Start(srv fiber.Router)
}

func NewServer(options ...ServerOption) (*Server, error) {
	server := &Server{
		presenceCfg: presenceService.ConfigFromEnv(),
	}

	for _, option := range options {
		if err := option(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.engine == nil {
		return nil, fmt.Errorf("fiber app is required")
	}
	if server.log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if server.db == nil {
		return nil, fmt.Errorf("database is required")
	}
	if server.detector == nil {
		return nil, fmt.Errorf("detector is required")
	}
	if server.middleware == nil {
		return nil, fmt.Errorf("middleware is required")
	}
	if server.validator == nil {
		server.validator = NewValidator()
	}
	if server.utils == nil {
		server.utils = utils.New()
	}
	if server.bcryptUtils == nil {
		server.bcryptUtils = bcrypt.New()
	}

	return server, nil
}

func WithFiber(fiberApp *fiber.App) ServerOption {
	return func(s *Server) error {
		s.engine = fiberApp
		return nil
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.log = logger
		return nil
	}
}

func WithValidator(validator *validator.Validate) ServerOption {
	return func(s *Server) error {
		s.validator = validator
		return nil
	}
}

func WithDatabase() ServerOption {
	return func(s *Server) error {
		db, err := postgres.New()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to connect to database: %v", err)
			}
			return fmt.Errorf("failed to create database connection: %w", err)
		}
		s.db = db
		return nil
	}
}

func WithRedisServer(redisServer redis.IRedis) ServerOption {
	return func(s *Server) error {
		s.redisServer = redisServer
		return nil
	}
}

func WithSMTPMailer(smtpMailer smtp.ItfSmtp) ServerOption {
	return func(s *Server) error {
		s.smtpMailer = smtpMailer
		return nil
	}
}

func WithDetector(detector websocketPkg.IWebsocket) ServerOption {
	return func(s *Server) error {
		s.detector = detector
		return nil
	}
}

func WithPresenceConfig(cfg presenceService.Config) ServerOption {
	return func(s *Server) error {
		s.presenceCfg = cfg
		return nil
	}
}

// WithMiddleware checks API keys against the api_keys table, so the database
// option must come first.
func WithMiddleware() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before middleware")
		}
		if s.db == nil {
			return fmt.Errorf("database must be initialized before middleware")
		}
		verifier := adminService.NewAPIKeyVerifier(adminRepository.New(s.db, s.log))
		s.middleware = middleware.New(s.log, verifier)
		return nil
	}
}

func WithS3Client() ServerOption {
	return func(s *Server) error {
		client, err := s3.New()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to initialize S3 client: %v", err)
			}
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		s.s3Client = client
		return nil
	}
}

func WithUtils() ServerOption {
	return func(s *Server) error {
		s.utils = utils.New()
		return nil
	}
}

func WithBcryptUtils() ServerOption {
	return func(s *Server) error {
		s.bcryptUtils = bcrypt.New()
		return nil
	}
}

func (s *Server) RegisterHandler() {
	secureCookie := os.Getenv("APP_ENV") == "production"

	// Auth Domain
	authRepo := authRepository.New(s.db, s.log)
	authServices := authService.New(s.log, authRepo, s.smtpMailer, s.redisServer, s.bcryptUtils, s.utils)
	authHandlers := authHandler.New(s.log, authServices, s.validator, s.middleware, secureCookie)

	// Presence Domain
	presenceRepo := presenceRepository.New(s.db, s.log)
	presenceServices := presenceService.New(
		s.log,
		presenceRepo,
		s.detector,
		authService.NewMetadataLookup(authRepo),
		s.s3Client,
		s.utils,
		s.presenceCfg,
	)
	presenceHandlers := presenceHandler.New(s.log, s.validator, s.middleware, presenceServices, s.utils, s.presenceCfg.UploadDir)

	// Admin Domain
	adminRepo := adminRepository.New(s.db, s.log)
	adminServices := adminService.New(s.log, adminRepo, authServices.User(), presenceServices, s.utils)
	adminHandlers := adminHandler.New(s.log, s.middleware, adminServices)

	s.setupHealthCheck()
	s.handlers = append(s.handlers, authHandlers, presenceHandlers, adminHandlers)
}

func (s *Server) Run() error {
	s.engine.Use(s.middleware.NewRequestIDMiddleware())
	s.engine.Use(s.middleware.NewLoggingMiddleware())
	s.engine.Use(NewCORS())

	router := s.engine.Group("/api/v1")
	for _, h := range s.handlers {
		h.Start(router)
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "3000"
	}

	return s.engine.Listen(fmt.Sprintf(":%s", port))
}

func (s *Server) Shutdown() error {
	s.detector.CloseConnections()

	err := s.engine.ShutdownWithTimeout(30 * time.Second)
	if dbErr := s.db.Close(); dbErr != nil && err == nil {
		err = dbErr
	}
	return err
}

func (s *Server) setupHealthCheck() {
	s.engine.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.JSON(fiber.Map{
			"message":  "Server is Healthy!",
			"detector": s.detector.IsConnected(),
		})
	})
}

package middleware

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

const (
	APIKeyHeader = "X-API-Key"
	APIKeyLocal  = "api_key"
)

// APIKeyVerifier returns an error when key is not an issued API key.
type APIKeyVerifier interface {
	VerifyAPIKey(ctx context.Context, key string) error
}

func (m *middleware) NewAPIKeyMiddleware(ctx *fiber.Ctx) error {
	key := ctx.Get(APIKeyHeader)
	if key == "" {
		key = ctx.Query("api_key")
	}

	if key == "" || m.apiKeys == nil {
		return m.rejectAPIKey(ctx, "API key missing")
	}

	if err := m.apiKeys.VerifyAPIKey(ctx.UserContext(), key); err != nil {
		m.log.WithFields(logrus.Fields{
			"request_id": m.GetRequestID(ctx),
			"error":      err.Error(),
		}).Warn("API key verification failed")
		return m.rejectAPIKey(ctx, "API key rejected")
	}

	ctx.Locals(APIKeyLocal, key)
	return ctx.Next()
}

func (m *middleware) rejectAPIKey(ctx *fiber.Ctx, reason string) error {
	m.log.WithFields(logrus.Fields{
		"request_id": m.GetRequestID(ctx),
		"path":       ctx.Path(),
	}).Warn(reason)

	return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": "Invalid or missing API Key",
		"code":  "INVALID_API_KEY",
	})
}

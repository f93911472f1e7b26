package adminHandler

import (
	"VideoPresence/internal/middleware"
	contextPkg "VideoPresence/pkg/context"
	"VideoPresence/pkg/handlerUtil"
	"VideoPresence/pkg/log"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/net/context"
)

func (h *AdminHandler) HandleGenerateAPIKey(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"ip":         ctx.IP(),
	}).Debug("Processing api key request")

	res, err := h.adminService.GenerateAPIKey(c)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "generate_api_key")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusCreated, res)
	}
}

func (h *AdminHandler) HandleAllUsers(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	res, err := h.adminService.AllUsers(c)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "all_users")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, res)
	}
}

func (h *AdminHandler) HandleAllResponses(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	res, err := h.adminService.AllResponses(c)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "all_responses")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, res)
	}
}

// HandleResponsesByAPIKey lists the sessions recorded under the caller's own key.
func (h *AdminHandler) HandleResponsesByAPIKey(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	apiKey, _ := ctx.Locals(middleware.APIKeyLocal).(string)

	res, err := h.adminService.ResponsesByAPIKey(c, apiKey)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "responses_by_api_key")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, res)
	}
}

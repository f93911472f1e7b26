package presenceHandler

import (
	"VideoPresence/internal/api/presence"
	presenceService "VideoPresence/internal/api/presence/service"
	"VideoPresence/internal/middleware"
	"VideoPresence/pkg/handlerUtil"
	"VideoPresence/pkg/utils"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

const fpsLocal = "stream_fps"

type PresenceHandler struct {
	log             *logrus.Logger
	validator       *validator.Validate
	middleware      middleware.Middleware
	presenceService presenceService.PresenceService
	utils           utils.IUtils
	uploadDir       string
}

func New(
	log *logrus.Logger,
	validator *validator.Validate,
	middleware middleware.Middleware,
	ps presenceService.PresenceService,
	utils utils.IUtils,
	uploadDir string,
) *PresenceHandler {
	return &PresenceHandler{
		presenceService: ps,
		log:             log,
		validator:       validator,
		middleware:      middleware,
		utils:           utils,
		uploadDir:       uploadDir,
	}
}

func (h *PresenceHandler) Start(srv fiber.Router) {
	video := srv.Group("/presence", h.middleware.NewAPIKeyMiddleware)
	video.Post("/process_video", h.HandleProcessVideo)
	video.Use("/ws", h.wsMiddleware)
	video.Get("/ws", websocket.New(h.handleStream))

	image := srv.Group("/image-presence", h.middleware.NewTokenMiddleware)
	image.Post("/process_image", h.HandleProcessImage)
	image.Get("/get-json_file", h.HandleLatestJSONFile)
	image.Get("/get-image_file", h.HandleLatestImageFile)
}

// wsMiddleware rejects plain HTTP and validates the stream parameters before
// the upgrade, while a JSON error can still be returned.
func (h *PresenceHandler) wsMiddleware(ctx *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(ctx) {
		return fiber.ErrUpgradeRequired
	}

	requestID := h.middleware.GetRequestID(ctx)
	errHandler := handlerUtil.New(h.log)

	var q presence.StreamQuery
	if err := ctx.QueryParser(&q); err != nil {
		return errHandler.Handle(ctx, requestID, presence.ErrInvalidFrameRate, ctx.Path(), "parse_query")
	}
	if err := h.validator.Struct(q); err != nil {
		return errHandler.Handle(ctx, requestID, presence.ErrInvalidFrameRate, ctx.Path(), "validate_query")
	}

	ctx.Locals(fpsLocal, q.FPS)
	return ctx.Next()
}

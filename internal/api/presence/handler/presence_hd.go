package presenceHandler

import (
	"VideoPresence/internal/api/presence"
	"VideoPresence/internal/middleware"
	contextPkg "VideoPresence/pkg/context"
	"VideoPresence/pkg/handlerUtil"
	jwtPkg "VideoPresence/pkg/jwt"
	"VideoPresence/pkg/log"
	"VideoPresence/pkg/utils"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/net/context"
)

const videoProcessTimeout = 15 * time.Minute

func (h *PresenceHandler) HandleProcessVideo(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), videoProcessTimeout)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	file, err := ctx.FormFile("video_file")
	if err != nil {
		return errHandler.Handle(ctx, requestID, utils.ErrNoFile, ctx.Path(), "read_form_file")
	}

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
		"file_name":  file.Filename,
		"file_size":  file.Size,
	}).Debug("Processing video upload")

	if err := h.utils.ValidateVideoFile(file); err != nil {
		if errors.Is(err, utils.ErrNotAVideo) {
			err = fmt.Errorf("%w: %v", presence.ErrInvalidVideoFile, err)
		}
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "validate_video_file")
	}

	id, err := h.utils.NewULIDFromTimestamp(time.Now())
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "generate_upload_name")
	}

	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		return errHandler.Handle(ctx, requestID, fmt.Errorf("%w: %v", presence.ErrFailedToSaveUpload, err), ctx.Path(), "prepare_upload_dir")
	}

	path := filepath.Join(h.uploadDir, id+strings.ToLower(filepath.Ext(file.Filename)))
	if err := ctx.SaveFile(file, path); err != nil {
		return errHandler.Handle(ctx, requestID, fmt.Errorf("%w: %v", presence.ErrFailedToSaveUpload, err), ctx.Path(), "save_upload")
	}
	defer func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			h.log.WithFields(log.Fields{
				"request_id": requestID,
				"path":       path,
				"error":      err.Error(),
			}).Warn("Failed to remove uploaded video")
		}
	}()

	apiKey, _ := ctx.Locals(middleware.APIKeyLocal).(string)

	res, err := h.presenceService.ProcessVideo(c, apiKey, path, file.Filename)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "process_video")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		h.log.WithFields(log.Fields{
			"request_id": requestID,
			"path":       ctx.Path(),
			"session_id": res.ID,
			"present":    res.PresentCount,
		}).Info("Video processed")
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, res)
	}
}

func (h *PresenceHandler) HandleProcessImage(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 60*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	user, err := jwtPkg.GetUserLoginData(ctx)
	if err != nil {
		return errHandler.HandleUnauthorized(ctx, requestID, "User not logged in")
	}

	file, err := ctx.FormFile("file")
	if err != nil {
		return errHandler.Handle(ctx, requestID, utils.ErrNoFile, ctx.Path(), "read_form_file")
	}

	res, err := h.presenceService.ProcessImage(c, user.ID, file)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "process_image")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, res)
	}
}

func (h *PresenceHandler) HandleLatestJSONFile(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	user, err := jwtPkg.GetUserLoginData(ctx)
	if err != nil {
		return errHandler.HandleUnauthorized(ctx, requestID, "User not logged in")
	}

	res, err := h.presenceService.LatestJSONFile(c, user.ID)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "latest_json_file")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, res)
	}
}

func (h *PresenceHandler) HandleLatestImageFile(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	user, err := jwtPkg.GetUserLoginData(ctx)
	if err != nil {
		return errHandler.HandleUnauthorized(ctx, requestID, "User not logged in")
	}

	res, err := h.presenceService.LatestImageFile(c, user.ID)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "latest_image_file")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, res)
	}
}

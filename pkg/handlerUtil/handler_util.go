package handlerUtil

import (
	"VideoPresence/internal/api/admin"
	"VideoPresence/internal/api/auth"
	"VideoPresence/internal/api/presence"
	"VideoPresence/internal/attendance"
	"VideoPresence/pkg/log"
	"VideoPresence/pkg/response"
	"VideoPresence/pkg/utils"
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	fiberUtils "github.com/gofiber/fiber/v2/utils"
	"github.com/sirupsen/logrus"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

type knownError struct {
	err     error
	status  int
	code    string
	message string
}

// knownErrors is checked in order with errors.Is. An empty message keeps the
// error's own text.
var knownErrors = []knownError{
	// auth
	{auth.ErrUsernameAlreadyExists, fiber.StatusConflict, "USERNAME_ALREADY_EXISTS", ""},
	{auth.ErrEmailAlreadyExists, fiber.StatusConflict, "EMAIL_ALREADY_EXISTS", ""},
	{auth.ErrPhoneNumberAlreadyExists, fiber.StatusConflict, "PHONE_NUMBER_ALREADY_EXISTS", ""},
	{auth.ErrInvalidEmail, fiber.StatusBadRequest, "INVALID_EMAIL", ""},
	{auth.ErrInvalidPhoneNumber, fiber.StatusBadRequest, "INVALID_PHONE", ""},
	{auth.ErrUserNotFound, fiber.StatusNotFound, "USER_NOT_FOUND", ""},
	{auth.ErrInvalidVerificationCode, fiber.StatusNotFound, "INVALID_VERIFICATION_CODE", ""},
	{auth.ErrEmailNotVerified, fiber.StatusForbidden, "EMAIL_NOT_VERIFIED", ""},
	{auth.ErrIncorrectPassword, fiber.StatusBadRequest, "INCORRECT_PASSWORD", ""},
	{auth.ErrIncorrectOldPassword, fiber.StatusUnauthorized, "INCORRECT_OLD_PASSWORD", ""},
	{auth.ErrMissingRefreshToken, fiber.StatusBadRequest, "MISSING_REFRESH_TOKEN", ""},
	{auth.ErrInvalidRefreshToken, fiber.StatusUnauthorized, "INVALID_REFRESH_TOKEN", ""},

	// admin
	{admin.ErrInvalidAPIKey, fiber.StatusUnauthorized, "INVALID_API_KEY", ""},
	{admin.ErrAPIKeyCollision, fiber.StatusConflict, "API_KEY_COLLISION", ""},

	// presence
	{presence.ErrInvalidVideoFile, fiber.StatusBadRequest, "INVALID_VIDEO_FILE", ""},
	{presence.ErrInvalidImageFile, fiber.StatusBadRequest, "INVALID_IMAGE_FILE", ""},
	{presence.ErrResponseNotFound, fiber.StatusNotFound, "RESPONSE_NOT_FOUND", ""},
	{presence.ErrArtifactNotFound, fiber.StatusNotFound, "JSON_FILE_NOT_FOUND", ""},
	{presence.ErrAnnotatedNotFound, fiber.StatusNotFound, "IMAGE_FILE_NOT_FOUND", ""},
	{presence.ErrInvalidFrameRate, fiber.StatusBadRequest, "INVALID_FPS", ""},
	{presence.ErrStreamMessage, fiber.StatusBadRequest, "UNSUPPORTED_STREAM_MESSAGE", ""},
	{presence.ErrFailedToSaveUpload, fiber.StatusInternalServerError, "UPLOAD_FAILED", "Failed to save uploaded file"},
	{presence.ErrStreamClosed, fiber.StatusConflict, "STREAM_CLOSED", ""},

	// attendance engine
	{attendance.ErrRosterNotFound, fiber.StatusNotFound, "ROSTER_NOT_FOUND", ""},
	{attendance.ErrRosterMalformed, fiber.StatusUnprocessableEntity, "ROSTER_MALFORMED", ""},
	{attendance.ErrDetectionFailed, fiber.StatusBadGateway, "DETECTION_FAILED", ""},
	{attendance.ErrInvalidFrameRate, fiber.StatusUnprocessableEntity, "INVALID_FRAME_RATE", ""},
	{attendance.ErrSourceUnavailable, fiber.StatusBadRequest, "SOURCE_UNAVAILABLE", ""},
	{attendance.ErrAccumulatorSealed, fiber.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"},

	// uploads
	{utils.ErrNoFile, fiber.StatusBadRequest, "NO_FILE", "No file uploaded"},
	{utils.ErrFileTooLarge, fiber.StatusBadRequest, "FILE_TOO_LARGE", "File too large"},
	{utils.ErrNotAnImage, fiber.StatusBadRequest, "INVALID_FILE_TYPE", "Invalid file type. Only images are allowed."},
	{utils.ErrNotAVideo, fiber.StatusBadRequest, "INVALID_FILE_TYPE", "Invalid file type. Only videos are allowed."},
}

type ErrorHandler struct {
	logger *logrus.Logger
}

func New(logger *logrus.Logger) *ErrorHandler {
	return &ErrorHandler{
		logger: logger,
	}
}

func (h *ErrorHandler) Handle(c *fiber.Ctx, requestID string, err error, path string, operation string) error {
	fields := log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"path":       path,
		"operation":  operation,
	}

	if errors.Is(err, context.DeadlineExceeded) {
		h.logger.WithFields(fields).Warn("Operation timed out")
		return h.HandleRequestTimeout(c)
	}

	for _, known := range knownErrors {
		if !errors.Is(err, known.err) {
			continue
		}

		message := known.message
		if message == "" {
			message = known.err.Error()
		}

		fields["code"] = known.code
		if known.status >= fiber.StatusInternalServerError {
			h.logger.WithFields(fields).Error("Operation failed")
		} else {
			h.logger.WithFields(fields).Warn("Operation failed with error response")
		}

		return c.Status(known.status).JSON(ErrorResponse{
			Error: message,
			Code:  known.code,
		})
	}

	var respErr *response.Error
	if errors.As(err, &respErr) {
		fields["code"] = respErr.Code
		h.logger.WithFields(fields).Warn("Operation failed with error response")
		return c.Status(respErr.Code).JSON(ErrorResponse{Error: respErr.Error()})
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		h.logger.WithFields(fields).Warn("Operation failed with fiber error")
		return c.Status(fiberErr.Code).JSON(ErrorResponse{Error: fiberErr.Message})
	}

	traceID := log.ErrorWithTraceID(fields, "Unexpected error")

	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
		Error:   "An unexpected error occurred",
		Code:    "INTERNAL_ERROR",
		Details: "trace_id: " + traceID,
	})
}

func (h *ErrorHandler) HandleValidationError(c *fiber.Ctx, requestID string, err error, path string) error {
	h.logger.WithFields(log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"path":       path,
	}).Warn("Validation failed")

	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Error: "Validation failed: " + err.Error(),
		Code:  "VALIDATION_ERROR",
	})
}

func (h *ErrorHandler) HandleRequestTimeout(c *fiber.Ctx) error {
	return c.Status(fiber.StatusRequestTimeout).JSON(fiberUtils.StatusMessage(fiber.StatusRequestTimeout))
}

func (h *ErrorHandler) HandleUnauthorized(c *fiber.Ctx, requestID string, message string) error {
	h.logger.WithFields(log.Fields{
		"request_id": requestID,
		"path":       c.Path(),
		"message":    message,
	}).Warn("Unauthorized access")

	return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
		Error: message,
		Code:  "UNAUTHORIZED",
	})
}

func (h *ErrorHandler) HandleSuccess(c *fiber.Ctx, statusCode int, data interface{}) error {
	if data == nil {
		return c.SendStatus(statusCode)
	}
	return c.Status(statusCode).JSON(data)
}

// Describe reports the status, code and message Handle answers err with. It
// serves transports that cannot go through a fiber response, such as
// websocket frames.
func Describe(err error) (int, string, string) {
	if errors.Is(err, context.DeadlineExceeded) {
		return fiber.StatusRequestTimeout, "TIMEOUT", "request timed out"
	}

	for _, known := range knownErrors {
		if errors.Is(err, known.err) {
			message := known.message
			if message == "" {
				message = known.err.Error()
			}
			return known.status, known.code, message
		}
	}

	var respErr *response.Error
	if errors.As(err, &respErr) {
		return respErr.Code, "", respErr.Error()
	}

	return fiber.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"
}

package presence

import (
	"VideoPresence/pkg/response"
	"net/http"
)

var (
	ErrInvalidVideoFile   = response.NewError(http.StatusBadRequest, "invalid video file")
	ErrInvalidImageFile   = response.NewError(http.StatusBadRequest, "invalid image file")
	ErrResponseNotFound   = response.NewError(http.StatusNotFound, "no attendance response found")
	ErrArtifactNotFound   = response.NewError(http.StatusNotFound, "no json file stored for this response")
	ErrAnnotatedNotFound  = response.NewError(http.StatusNotFound, "no annotated image stored for this response")
	ErrInvalidFrameRate   = response.NewError(http.StatusBadRequest, "fps must be a positive number")
	ErrStreamMessage      = response.NewError(http.StatusBadRequest, "unsupported stream message")
	ErrFailedToSaveUpload = response.NewError(http.StatusInternalServerError, "failed to save uploaded file")
	ErrStreamClosed       = response.NewError(http.StatusConflict, "stream already closed")
)

package attendance

import (
	"VideoPresence/pkg/response"
	"net/http"
)

var (
	ErrRosterNotFound    = response.NewError(http.StatusNotFound, "roster not found")
	ErrRosterMalformed   = response.NewError(http.StatusUnprocessableEntity, "roster malformed")
	ErrDetectionFailed   = response.NewError(http.StatusBadGateway, "detection failed")
	ErrInvalidFrameRate  = response.NewError(http.StatusUnprocessableEntity, "invalid frame rate")
	ErrSourceUnavailable = response.NewError(http.StatusBadRequest, "source unavailable")
	ErrAccumulatorSealed = response.NewError(http.StatusInternalServerError, "accumulator already sealed")
)

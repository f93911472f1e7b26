package admin

import (
	"VideoPresence/pkg/response"
	"net/http"
)

var (
	ErrInvalidAPIKey   = response.NewError(http.StatusUnauthorized, "invalid or missing API key")
	ErrAPIKeyCollision = response.NewError(http.StatusConflict, "api key already exists")
)

package auth

import (
	"VideoPresence/pkg/response"
	"net/http"
)

var (
	ErrUsernameAlreadyExists    = response.NewError(http.StatusConflict, "username already exists")
	ErrEmailAlreadyExists       = response.NewError(http.StatusConflict, "email already exists")
	ErrPhoneNumberAlreadyExists = response.NewError(http.StatusConflict, "phone number already exists")
	ErrInvalidEmail             = response.NewError(http.StatusBadRequest, "invalid email")
	ErrInvalidPhoneNumber       = response.NewError(http.StatusBadRequest, "invalid phone number")
	ErrUserNotFound             = response.NewError(http.StatusNotFound, "user not found")
	ErrInvalidVerificationCode  = response.NewError(http.StatusNotFound, "user not found or invalid code")
	ErrEmailNotVerified         = response.NewError(http.StatusForbidden, "email not verified")
	ErrIncorrectPassword        = response.NewError(http.StatusBadRequest, "incorrect password")
	ErrIncorrectOldPassword     = response.NewError(http.StatusUnauthorized, "incorrect old password")
	ErrMissingRefreshToken      = response.NewError(http.StatusBadRequest, "please provide refresh token")
	ErrInvalidRefreshToken      = response.NewError(http.StatusUnauthorized, "could not refresh access token")
)

package authService

import (
	"VideoPresence/internal/api/auth"
	"VideoPresence/internal/entity"
	"strings"
)

func MakeUserData(user entity.User) map[string]interface{} {
	return map[string]interface{}{
		"id":       user.ID,
		"email":    user.Email,
		"username": user.Username,
	}
}

func MakeUserResponse(user entity.User) auth.UserResponse {
	res := auth.UserResponse{
		Username:    user.Username,
		Email:       user.Email,
		PhoneNumber: user.PhoneNumber,
		Department:  user.Department,
		Role:        user.Role,
		IsVerified:  user.IsVerified,
	}
	if !user.CreatedAt.IsZero() {
		createdAt := user.CreatedAt
		res.CreatedAt = &createdAt
	}
	return res
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

package admin

import (
	"VideoPresence/internal/api/auth"
	"VideoPresence/internal/entity"
)

type APIKeyResponse struct {
	APIKey string `json:"api_key"`
	Status string `json:"status"`
}

type UsersResponse struct {
	Users []auth.UserResponse `json:"users"`
	Total int                 `json:"total"`
}

type ResponsesResponse struct {
	Responses []entity.VideoResponse `json:"responses"`
	Total     int                    `json:"total"`
}

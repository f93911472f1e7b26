package auth

import "time"

type RegisterRequest struct {
	Username    string `json:"username" validate:"required,min=3,max=255"`
	Email       string `json:"email" validate:"required,email"`
	PhoneNumber string `json:"phone_number" validate:"required,len=8,numeric"`
	Password    string `json:"password" validate:"required,min=8,max=72"`
	Department  string `json:"department" validate:"required,max=255"`
	Role        string `json:"role" validate:"required,max=255"`
}

type VerifyEmailRequest struct {
	Email            string `json:"email" query:"email" validate:"required,email"`
	VerificationCode string `json:"verification_code" query:"verification_code" validate:"required"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Status       string `json:"status"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresAt    int64  `json:"expires_at"`
}

type RefreshResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresAt   int64  `json:"expires_at"`
}

type UserResponse struct {
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	PhoneNumber string     `json:"phone_number"`
	Department  string     `json:"department"`
	Role        string     `json:"role"`
	IsVerified  bool       `json:"is_verified"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	Message     string     `json:"message,omitempty"`
}

type UpdateUserRequest struct {
	Username    string `json:"username" validate:"required,min=3,max=255"`
	Email       string `json:"email" validate:"required,email"`
	PhoneNumber string `json:"phone_number" validate:"required,len=8,numeric"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=72"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

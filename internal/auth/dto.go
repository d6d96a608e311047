package auth

import (
	"github.com/petfinder-app/petfinder-backend/internal/users"
)

// RegisterRequest is the sign-up payload.
type RegisterRequest struct {
	Name     string  `json:"name" validate:"required,min=1,max=120"`
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=8"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,max=40"`
	City     *string `json:"city,omitempty" validate:"omitempty,max=120"`
}

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest exchanges a refresh token. The access token may be expired.
type RefreshRequest struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// TokenResponse is returned by register, login and refresh.
type TokenResponse struct {
	Token        string         `json:"token"`
	RefreshToken string         `json:"refresh_token"`
	User         *users.UserDTO `json:"user"`
}

package auth

import (
	"errors"

	"github.com/qworpa/qworpa/internal/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInactiveUser       = errors.New("user is inactive")
)

// LoginRequest represents a sign-in request. Username may also be the
// account's email address.
type LoginRequest struct {
	Username     string `json:"username" binding:"required"`
	Password     string `json:"password" binding:"required"`
	CaptchaToken string `json:"captcha_token"`
}

// LoginResponse represents a sign-in response
type LoginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

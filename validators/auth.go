package validators

import (
	"github.com/gin-gonic/gin"
)

type LoginRequest struct {
	CSRFToken string `json:"csrf_token" validate:"required" binding:"required"`
	Username  string `json:"username" validate:"required" binding:"required"`
	Password  string `json:"password" validate:"required" binding:"required"`
}

type ChangePasswordRequest struct {
	CSRFToken       string `json:"csrf_token" validate:"required" binding:"required"`
	CurrentPassword string `json:"current_password" validate:"required" binding:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8" binding:"required,min=8"`
	ConfirmPassword string `json:"confirm_password" validate:"required" binding:"required"`
}

// ForgotPasswordRequest carries only the username; the reset mail goes
// to the username itself, which doubles as the account's address.
type ForgotPasswordRequest struct {
	CSRFToken string `json:"csrf_token" validate:"required" binding:"required"`
	Username  string `json:"username" validate:"required" binding:"required"`
}

type ResetPasswordRequest struct {
	CSRFToken       string `json:"csrf_token" validate:"required" binding:"required"`
	Username        string `json:"username" validate:"required" binding:"required"`
	Token           string `json:"token" validate:"required" binding:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8" binding:"required,min=8"`
	ConfirmPassword string `json:"confirm_password" validate:"required" binding:"required"`
}

func ValidateLoginRequest(c *gin.Context) (*LoginRequest, bool) {
	var req LoginRequest
	if !bind(c, &req) {
		return nil, false
	}
	return &req, true
}

func ValidateChangePasswordRequest(c *gin.Context) (*ChangePasswordRequest, bool) {
	var req ChangePasswordRequest
	if !bind(c, &req) {
		return nil, false
	}
	return &req, true
}

func ValidateForgotPasswordRequest(c *gin.Context) (*ForgotPasswordRequest, bool) {
	var req ForgotPasswordRequest
	if !bind(c, &req) {
		return nil, false
	}
	return &req, true
}

func ValidateResetPasswordRequest(c *gin.Context) (*ResetPasswordRequest, bool) {
	var req ResetPasswordRequest
	if !bind(c, &req) {
		return nil, false
	}
	return &req, true
}

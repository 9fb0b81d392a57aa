package validators

import (
	"github.com/gin-gonic/gin"
)

type CreateUserRequest struct {
	CSRFToken       string `json:"csrf_token" validate:"required" binding:"required"`
	Username        string `json:"username" validate:"required,min=3,max=50" binding:"required,min=3,max=50"`
	Password        string `json:"password" validate:"required" binding:"required"`
	ConfirmPassword string `json:"confirm_password" validate:"required" binding:"required"`
	MaxInstances    int    `json:"max_instances" validate:"required,min=1,max=100" binding:"required,min=1,max=100"`
	Role            string `json:"role" validate:"required,oneof=standard admin" binding:"required,oneof=standard admin"`
	FirstName       string `json:"first_name" validate:"required,min=2,max=50" binding:"required,min=2,max=50"`
	LastName        string `json:"last_name" validate:"required,min=2,max=50" binding:"required,min=2,max=50"`
}

type UpdateUserRequest struct {
	CSRFToken    string  `json:"csrf_token" validate:"required" binding:"required"`
	MaxInstances *int    `json:"max_instances" validate:"omitempty,min=1,max=100" binding:"omitempty,min=1,max=100"`
	Role         *string `json:"role" validate:"omitempty,oneof=standard admin" binding:"omitempty,oneof=standard admin"`
	FirstName    *string `json:"first_name" validate:"omitempty,min=2,max=50" binding:"omitempty,min=2,max=50"`
	LastName     *string `json:"last_name" validate:"omitempty,min=2,max=50" binding:"omitempty,min=2,max=50"`
	Active       *bool   `json:"active"`
	Password     *string `json:"password"`
}

func ValidateCreateUserRequest(c *gin.Context) (*CreateUserRequest, bool) {
	var req CreateUserRequest
	if !bind(c, &req) {
		return nil, false
	}
	return &req, true
}

func ValidateUpdateUserRequest(c *gin.Context) (*UpdateUserRequest, bool) {
	var req UpdateUserRequest
	if !bind(c, &req) {
		return nil, false
	}
	return &req, true
}

package validators

import (
	"github.com/gin-gonic/gin"
)

type TutorialRequest struct {
	CSRFToken   string `json:"csrf_token" validate:"required" binding:"required"`
	Title       string `json:"title" validate:"required,min=3,max=100" binding:"required,min=3,max=100"`
	URL         string `json:"url" validate:"required,url" binding:"required,url"`
	Description string `json:"description" validate:"max=500" binding:"max=500"`
}

func ValidateTutorialRequest(c *gin.Context) (*TutorialRequest, bool) {
	var req TutorialRequest
	if !bind(c, &req) {
		return nil, false
	}
	return &req, true
}

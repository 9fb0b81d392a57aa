package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response is the envelope every page-level handler answers with.
type Response struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   interface{} `json:"error,omitempty"`
}

func sendResponse(c *gin.Context, status int, message string, data interface{}, err interface{}) {
	c.JSON(status, Response{
		Status:  status,
		Message: message,
		Data:    data,
		Error:   err,
	})
}

// sendAjax answers the lean {success, message, ...} envelope the
// polling endpoints use.
func sendAjax(c *gin.Context, success bool, message string, extra gin.H) {
	body := gin.H{
		"success": success,
		"message": message,
	}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

package validators

import (
	"github.com/gin-gonic/gin"
)

type WebhookConfigRequest struct {
	CSRFToken       string   `json:"csrf_token" validate:"required" binding:"required"`
	InstanceName    string   `json:"instance_name" validate:"required" binding:"required"`
	URL             string   `json:"url" validate:"required,url" binding:"required,url"`
	Enabled         bool     `json:"enabled"`
	WebhookByEvents bool     `json:"webhook_by_events"`
	Base64          bool     `json:"base64"`
	Events          []string `json:"events"`
}

type ChatwootConfigRequest struct {
	CSRFToken           string `json:"csrf_token" validate:"required" binding:"required"`
	InstanceName        string `json:"instance_name" validate:"required" binding:"required"`
	Enabled             bool   `json:"enabled"`
	AccountID           string `json:"account_id" validate:"required_if=Enabled true" binding:"required_if=Enabled true"`
	Token               string `json:"token" validate:"required_if=Enabled true" binding:"required_if=Enabled true"`
	URL                 string `json:"url" validate:"required_if=Enabled true,omitempty,url" binding:"required_if=Enabled true,omitempty,url"`
	SignMsg             bool   `json:"sign_msg"`
	ReopenConversation  bool   `json:"reopen_conversation"`
	ConversationPending bool   `json:"conversation_pending"`
}

func ValidateWebhookConfigRequest(c *gin.Context) (*WebhookConfigRequest, bool) {
	var req WebhookConfigRequest
	if !bind(c, &req) {
		return nil, false
	}
	return &req, true
}

func ValidateChatwootConfigRequest(c *gin.Context) (*ChatwootConfigRequest, bool) {
	var req ChatwootConfigRequest
	if !bind(c, &req) {
		return nil, false
	}
	return &req, true
}

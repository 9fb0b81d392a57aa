package validators

import (
	"github.com/gin-gonic/gin"
)

type CreateInstanceRequest struct {
	CSRFToken    string `json:"csrf_token" validate:"required" binding:"required"`
	InstanceName string `json:"instance_name" validate:"required,min=3,max=50,alphanum" binding:"required,min=3,max=50,alphanum"`
	QRCode       bool   `json:"qrcode"`
	Integration  string `json:"integration"`
	Number       string `json:"number" validate:"omitempty,numeric" binding:"omitempty,numeric"`

	RejectCall      bool   `json:"reject_call"`
	MsgCall         string `json:"msg_call"`
	GroupsIgnore    bool   `json:"groups_ignore"`
	AlwaysOnline    bool   `json:"always_online"`
	ReadMessages    bool   `json:"read_messages"`
	ReadStatus      bool   `json:"read_status"`
	SyncFullHistory bool   `json:"sync_full_history"`
}

// InstanceActionRequest covers the AJAX endpoints that act on one
// instance by name (and optionally external id).
type InstanceActionRequest struct {
	CSRFToken    string `json:"csrf_token" validate:"required" binding:"required"`
	InstanceName string `json:"instance_name" validate:"required" binding:"required"`
	InstanceID   string `json:"instance_id"`
}

type SendTextRequest struct {
	CSRFToken    string `json:"csrf_token" validate:"required" binding:"required"`
	InstanceName string `json:"instance_name" validate:"required" binding:"required"`
	Number       string `json:"number" validate:"required" binding:"required"`
	Text         string `json:"text" validate:"required" binding:"required"`
}

type SettingsRequest struct {
	CSRFToken    string `json:"csrf_token" validate:"required" binding:"required"`
	InstanceName string `json:"instance_name" validate:"required" binding:"required"`

	RejectCall      bool   `json:"reject_call"`
	MsgCall         string `json:"msg_call"`
	GroupsIgnore    bool   `json:"groups_ignore"`
	AlwaysOnline    bool   `json:"always_online"`
	ReadMessages    bool   `json:"read_messages"`
	ReadStatus      bool   `json:"read_status"`
	SyncFullHistory bool   `json:"sync_full_history"`
}

func ValidateCreateInstanceRequest(c *gin.Context) (*CreateInstanceRequest, bool) {
	var req CreateInstanceRequest
	if !bind(c, &req) {
		return nil, false
	}
	return &req, true
}

func ValidateInstanceActionRequest(c *gin.Context) (*InstanceActionRequest, bool) {
	var req InstanceActionRequest
	if !bind(c, &req) {
		return nil, false
	}
	return &req, true
}

func ValidateSendTextRequest(c *gin.Context) (*SendTextRequest, bool) {
	var req SendTextRequest
	if !bind(c, &req) {
		return nil, false
	}
	return &req, true
}

func ValidateSettingsRequest(c *gin.Context) (*SettingsRequest, bool) {
	var req SettingsRequest
	if !bind(c, &req) {
		return nil, false
	}
	return &req, true
}

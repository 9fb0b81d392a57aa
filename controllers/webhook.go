package controllers

import (
	"errors"
	"net/http"

	"github.com/evopanel/evopanel/gateway"
	"github.com/evopanel/evopanel/logger"
	"github.com/evopanel/evopanel/models"
	"github.com/evopanel/evopanel/security"
	"github.com/evopanel/evopanel/session"
	"github.com/evopanel/evopanel/validators"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// WebhookController configures per-instance webhook and Chatwoot
// integrations. The gateway holds the configuration; the panel only
// relays it after the ownership check.
type WebhookController struct {
	db       *gorm.DB
	security *security.Service
	api      *gateway.Client
	log      *logger.Logger
}

func NewWebhookController(db *gorm.DB, sec *security.Service, api *gateway.Client, log *logger.Logger) *WebhookController {
	return &WebhookController{
		db:       db,
		security: sec,
		api:      api,
		log:      log,
	}
}

func (wc *WebhookController) ownedInstance(sess *session.Session, instanceName string) (*models.Instance, error) {
	var instance models.Instance
	err := wc.db.Where("instance_name = ? AND user_id = ?", instanceName, sess.UserID()).
		First(&instance).Error
	if err != nil {
		return nil, err
	}
	return &instance, nil
}

func (wc *WebhookController) GetWebhook(c *gin.Context) {
	sess := session.FromContext(c)
	instance, err := wc.ownedInstance(sess, c.Param("name"))
	if err != nil {
		sendResponse(c, http.StatusNotFound, "Instance not found", nil, "Instance not found or no permission")
		return
	}

	cfg, err := wc.api.FindWebhook(c.Request.Context(), instance.InstanceName)
	if err != nil {
		wc.log.Error("webhook lookup failed for %s: %v", instance.InstanceName, err)
		sendResponse(c, http.StatusBadGateway, "Failed to load webhook config", nil, "Gateway communication error")
		return
	}

	token, err := wc.security.GenerateCSRFToken(sess)
	if err != nil {
		sendResponse(c, http.StatusInternalServerError, "Internal server error", nil, "Security token unavailable")
		return
	}
	sendResponse(c, http.StatusOK, "Webhook config", gin.H{"webhook": cfg, "csrf_token": token}, nil)
}

func (wc *WebhookController) SetWebhook(c *gin.Context) {
	req, ok := validators.ValidateWebhookConfigRequest(c)
	if !ok {
		return
	}

	sess := session.FromContext(c)
	if !wc.security.ValidateCSRFToken(sess, req.CSRFToken) {
		sendResponse(c, http.StatusForbidden, "Security error. Please try again.", nil, "Invalid CSRF token")
		return
	}

	instance, err := wc.ownedInstance(sess, req.InstanceName)
	if err != nil {
		sendResponse(c, http.StatusNotFound, "Update failed", nil, "Instance not found or no permission")
		return
	}

	payload := map[string]interface{}{
		"url":               req.URL,
		"enabled":           req.Enabled,
		"webhook_by_events": req.WebhookByEvents,
		"webhook_base64":    req.Base64,
		"events":            req.Events,
	}
	if _, err := wc.api.SetWebhook(c.Request.Context(), instance.InstanceName, payload); err != nil {
		var apiErr *gateway.APIError
		if errors.As(err, &apiErr) {
			sendResponse(c, http.StatusBadGateway, "Update failed", nil, apiErr.Message)
			return
		}
		sendResponse(c, http.StatusBadGateway, "Update failed", nil, "Gateway communication error")
		return
	}

	sess.SetFlash("success", "Webhook configuration saved.")
	sendResponse(c, http.StatusOK, "Webhook configuration saved", nil, nil)
}

func (wc *WebhookController) GetChatwoot(c *gin.Context) {
	sess := session.FromContext(c)
	instance, err := wc.ownedInstance(sess, c.Param("name"))
	if err != nil {
		sendResponse(c, http.StatusNotFound, "Instance not found", nil, "Instance not found or no permission")
		return
	}

	cfg, err := wc.api.FindChatwoot(c.Request.Context(), instance.InstanceName)
	if err != nil {
		wc.log.Error("chatwoot lookup failed for %s: %v", instance.InstanceName, err)
		sendResponse(c, http.StatusBadGateway, "Failed to load chatwoot config", nil, "Gateway communication error")
		return
	}

	token, err := wc.security.GenerateCSRFToken(sess)
	if err != nil {
		sendResponse(c, http.StatusInternalServerError, "Internal server error", nil, "Security token unavailable")
		return
	}
	sendResponse(c, http.StatusOK, "Chatwoot config", gin.H{"chatwoot": cfg, "csrf_token": token}, nil)
}

func (wc *WebhookController) SetChatwoot(c *gin.Context) {
	req, ok := validators.ValidateChatwootConfigRequest(c)
	if !ok {
		return
	}

	sess := session.FromContext(c)
	if !wc.security.ValidateCSRFToken(sess, req.CSRFToken) {
		sendResponse(c, http.StatusForbidden, "Security error. Please try again.", nil, "Invalid CSRF token")
		return
	}

	instance, err := wc.ownedInstance(sess, req.InstanceName)
	if err != nil {
		sendResponse(c, http.StatusNotFound, "Update failed", nil, "Instance not found or no permission")
		return
	}

	payload := map[string]interface{}{
		"enabled":             req.Enabled,
		"accountId":           req.AccountID,
		"token":               req.Token,
		"url":                 req.URL,
		"signMsg":             req.SignMsg,
		"reopenConversation":  req.ReopenConversation,
		"conversationPending": req.ConversationPending,
	}
	if _, err := wc.api.SetChatwoot(c.Request.Context(), instance.InstanceName, payload); err != nil {
		var apiErr *gateway.APIError
		if errors.As(err, &apiErr) {
			sendResponse(c, http.StatusBadGateway, "Update failed", nil, apiErr.Message)
			return
		}
		sendResponse(c, http.StatusBadGateway, "Update failed", nil, "Gateway communication error")
		return
	}

	sess.SetFlash("success", "Chatwoot configuration saved.")
	sendResponse(c, http.StatusOK, "Chatwoot configuration saved", nil, nil)
}

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

type InstanceController struct {
	db       *gorm.DB
	sessions *session.Manager
	security *security.Service
	api      *gateway.Client
	log      *logger.Logger
}

func NewInstanceController(db *gorm.DB, sessions *session.Manager, sec *security.Service, api *gateway.Client, log *logger.Logger) *InstanceController {
	return &InstanceController{
		db:       db,
		sessions: sessions,
		security: sec,
		api:      api,
		log:      log,
	}
}

// ownedInstance loads the instance by name and enforces ownership.
func (ic *InstanceController) ownedInstance(sess *session.Session, instanceName string) (*models.Instance, error) {
	var instance models.Instance
	err := ic.db.Where("instance_name = ? AND user_id = ?", instanceName, sess.UserID()).
		First(&instance).Error
	if err != nil {
		return nil, err
	}
	return &instance, nil
}

// flagForReconcile marks a row whose remote and local writes diverged;
// the next successful connection-state poll clears it. Best effort,
// the divergence is already in the log.
func (ic *InstanceController) flagForReconcile(instanceID uint, instanceName string) {
	if err := ic.db.Model(&models.Instance{}).Where("id = ?", instanceID).
		Update("reconcile_needed", true).Error; err != nil {
		ic.log.Error("failed to flag %s for reconciliation: %v", instanceName, err)
	}
}

// Dashboard lists the caller's instances together with quota usage and
// any pending flash banners.
func (ic *InstanceController) Dashboard(c *gin.Context) {
	sess := session.FromContext(c)

	var user models.User
	if err := ic.db.Where("id = ? AND is_active = ?", sess.UserID(), true).First(&user).Error; err != nil {
		_ = ic.sessions.Destroy(c, sess)
		sendResponse(c, http.StatusUnauthorized, "Invalid or inactive account", gin.H{"redirect": "/login"}, nil)
		return
	}

	var instances []models.Instance
	if err := ic.db.Where("user_id = ?", user.ID).Order("created_at DESC").Find(&instances).Error; err != nil {
		ic.log.Error("dashboard instance query failed: %v", err)
		sendResponse(c, http.StatusInternalServerError, "Failed to load instances", nil, "Please try again later")
		return
	}

	token, err := ic.security.GenerateCSRFToken(sess)
	if err != nil {
		ic.log.Error("csrf generation failed: %v", err)
		sendResponse(c, http.StatusInternalServerError, "Internal server error", nil, "Security token unavailable")
		return
	}

	data := gin.H{
		"csrf_token":    token,
		"instances":     instances,
		"instance_used": len(instances),
		"instance_max":  user.MaxInstances,
	}
	for _, kind := range []string{"success", "error", "warning", "info"} {
		if msg, ok := sess.GetFlash(kind); ok {
			data["flash_"+kind] = msg
		}
	}
	sendResponse(c, http.StatusOK, "Dashboard", data, nil)
}

// Create provisions the instance remotely first and records it locally
// after. The two writes are independent by design; a divergence is
// logged for the polling cycle to reconcile.
func (ic *InstanceController) Create(c *gin.Context) {
	req, ok := validators.ValidateCreateInstanceRequest(c)
	if !ok {
		return
	}

	sess := session.FromContext(c)
	if !ic.security.ValidateCSRFToken(sess, req.CSRFToken) {
		sendResponse(c, http.StatusForbidden, "Security error. Please try again.", nil, "Invalid CSRF token")
		return
	}

	var user models.User
	if err := ic.db.Where("id = ? AND is_active = ?", sess.UserID(), true).First(&user).Error; err != nil {
		_ = ic.sessions.Destroy(c, sess)
		sendResponse(c, http.StatusUnauthorized, "Invalid or inactive account", gin.H{"redirect": "/login"}, nil)
		return
	}

	var count int64
	if err := ic.db.Model(&models.Instance{}).Where("user_id = ?", user.ID).Count(&count).Error; err != nil {
		ic.log.Error("instance count failed: %v", err)
		sendResponse(c, http.StatusInternalServerError, "Creation failed", nil, "Please try again later")
		return
	}
	if count >= int64(user.MaxInstances) {
		sendResponse(c, http.StatusForbidden, "Creation failed", nil,
			"You reached the maximum number of instances allowed.")
		return
	}

	var existing int64
	if err := ic.db.Model(&models.Instance{}).Where("instance_name = ?", req.InstanceName).Count(&existing).Error; err != nil {
		ic.log.Error("instance lookup failed: %v", err)
		sendResponse(c, http.StatusInternalServerError, "Creation failed", nil, "Please try again later")
		return
	}
	if existing > 0 {
		sendResponse(c, http.StatusConflict, "Creation failed", nil, "An instance with this name already exists.")
		return
	}

	msgCall := ""
	if req.RejectCall {
		msgCall = security.SanitizeInput(req.MsgCall)
	}

	apiReq := gateway.CreateInstanceRequest{
		InstanceName:    req.InstanceName,
		QRCode:          req.QRCode,
		Integration:     req.Integration,
		Number:          req.Number,
		RejectCall:      req.RejectCall,
		MsgCall:         msgCall,
		GroupsIgnore:    req.GroupsIgnore,
		AlwaysOnline:    req.AlwaysOnline,
		ReadMessages:    req.ReadMessages,
		ReadStatus:      req.ReadStatus,
		SyncFullHistory: req.SyncFullHistory,
	}

	resp, err := ic.api.CreateInstance(c.Request.Context(), apiReq)
	if err != nil {
		var apiErr *gateway.APIError
		if errors.As(err, &apiErr) {
			sendResponse(c, http.StatusBadGateway, "Creation failed", nil, apiErr.Message)
			return
		}
		sendResponse(c, http.StatusBadGateway, "Creation failed", nil, "Gateway communication error")
		return
	}

	instanceData, _ := resp["instance"].(map[string]interface{})
	instanceID, _ := instanceData["instanceId"].(string)
	status, _ := instanceData["status"].(string)
	if instanceID == "" {
		sendResponse(c, http.StatusBadGateway, "Creation failed", nil,
			"Could not create the instance. Check the name or try again.")
		return
	}
	token, _ := resp["hash"].(string)
	if status == "" {
		status = models.StatusConnecting
	}

	instance := models.Instance{
		UserID:          user.ID,
		InstanceName:    req.InstanceName,
		InstanceID:      instanceID,
		Integration:     apiReq.Integration,
		Status:          status,
		RejectCall:      req.RejectCall,
		MsgCall:         msgCall,
		GroupsIgnore:    req.GroupsIgnore,
		AlwaysOnline:    req.AlwaysOnline,
		ReadMessages:    req.ReadMessages,
		ReadStatus:      req.ReadStatus,
		SyncFullHistory: req.SyncFullHistory,
		Token:           token,
	}
	if err := ic.db.Create(&instance).Error; err != nil {
		// Remote side exists, local side does not: flag the drift for
		// manual or poll-driven cleanup.
		ic.log.Error("reconcile needed: remote instance %s (%s) created but local insert failed: %v",
			req.InstanceName, instanceID, err)
		sendResponse(c, http.StatusInternalServerError, "Creation failed", nil,
			"The instance was created remotely but could not be saved. Contact support.")
		return
	}

	data := gin.H{
		"instance": instance,
		"redirect": "/instances/" + instance.InstanceName,
	}
	if qr, ok := resp["qrcode"].(map[string]interface{}); ok {
		if b64, ok := qr["base64"].(string); ok {
			data["qrcode"] = b64
		}
	}
	sendResponse(c, http.StatusCreated, "Instance created successfully", data, nil)
}

// Show returns one owned instance.
func (ic *InstanceController) Show(c *gin.Context) {
	sess := session.FromContext(c)
	instance, err := ic.ownedInstance(sess, c.Param("name"))
	if err != nil {
		sendResponse(c, http.StatusNotFound, "Instance not found", nil, "Instance not found or no permission")
		return
	}

	token, err := ic.security.GenerateCSRFToken(sess)
	if err != nil {
		sendResponse(c, http.StatusInternalServerError, "Internal server error", nil, "Security token unavailable")
		return
	}
	sendResponse(c, http.StatusOK, "Instance", gin.H{"instance": instance, "csrf_token": token}, nil)
}

// UpdateSettings pushes new behavior flags to the gateway and mirrors
// them locally once the remote accepted them.
func (ic *InstanceController) UpdateSettings(c *gin.Context) {
	req, ok := validators.ValidateSettingsRequest(c)
	if !ok {
		return
	}

	sess := session.FromContext(c)
	if !ic.security.ValidateCSRFToken(sess, req.CSRFToken) {
		sendResponse(c, http.StatusForbidden, "Security error. Please try again.", nil, "Invalid CSRF token")
		return
	}

	instance, err := ic.ownedInstance(sess, req.InstanceName)
	if err != nil {
		sendResponse(c, http.StatusNotFound, "Update failed", nil, "Instance not found or no permission")
		return
	}

	msgCall := ""
	if req.RejectCall {
		msgCall = security.SanitizeInput(req.MsgCall)
	}

	settings := gateway.InstanceSettings{
		RejectCall:      req.RejectCall,
		MsgCall:         msgCall,
		GroupsIgnore:    req.GroupsIgnore,
		AlwaysOnline:    req.AlwaysOnline,
		ReadMessages:    req.ReadMessages,
		ReadStatus:      req.ReadStatus,
		SyncFullHistory: req.SyncFullHistory,
	}
	if _, err := ic.api.SetSettings(c.Request.Context(), instance.InstanceName, settings); err != nil {
		var apiErr *gateway.APIError
		if errors.As(err, &apiErr) {
			sendResponse(c, http.StatusBadGateway, "Update failed", nil, apiErr.Message)
			return
		}
		sendResponse(c, http.StatusBadGateway, "Update failed", nil, "Gateway communication error")
		return
	}

	if err := ic.db.Model(&models.Instance{}).Where("id = ?", instance.ID).
		Updates(map[string]interface{}{
			"reject_call":       req.RejectCall,
			"msg_call":          msgCall,
			"groups_ignore":     req.GroupsIgnore,
			"always_online":     req.AlwaysOnline,
			"read_messages":     req.ReadMessages,
			"read_status":       req.ReadStatus,
			"sync_full_history": req.SyncFullHistory,
		}).Error; err != nil {
		ic.log.Error("reconcile needed: settings applied remotely for %s but local persist failed: %v",
			instance.InstanceName, err)
		ic.flagForReconcile(instance.ID, instance.InstanceName)
		sendResponse(c, http.StatusInternalServerError, "Update failed", nil,
			"Settings applied remotely but could not be stored")
		return
	}

	sess.SetFlash("success", "Settings updated successfully.")
	sendResponse(c, http.StatusOK, "Settings updated successfully", nil, nil)
}

// Delete removes the instance remotely and locally as two independent
// best-effort steps: the local row goes away even when the gateway is
// unreachable so the panel stays usable.
func (ic *InstanceController) Delete(c *gin.Context) {
	req, ok := validators.ValidateInstanceActionRequest(c)
	if !ok {
		return
	}

	sess := session.FromContext(c)
	if !ic.security.ValidateCSRFToken(sess, req.CSRFToken) {
		sendResponse(c, http.StatusForbidden, "Security error. Please try again.", nil, "Invalid CSRF token")
		return
	}

	instance, err := ic.ownedInstance(sess, req.InstanceName)
	if err != nil {
		sendResponse(c, http.StatusNotFound, "Deletion failed", nil, "Instance not found or no permission")
		return
	}

	remoteOK := true
	if _, err := ic.api.DeleteInstance(c.Request.Context(), instance.InstanceName); err != nil {
		remoteOK = false
		ic.log.Warning("remote delete failed for %s: %v", instance.InstanceName, err)
	}

	if err := ic.db.Delete(&models.Instance{}, instance.ID).Error; err != nil {
		ic.log.Error("local delete failed for %s: %v", instance.InstanceName, err)
		if remoteOK {
			// Remote side is gone but the local row survived.
			ic.flagForReconcile(instance.ID, instance.InstanceName)
		}
		sendResponse(c, http.StatusInternalServerError, "Deletion failed", nil, "Failed to remove the instance")
		return
	}

	if remoteOK {
		sess.SetFlash("success", "Instance removed successfully.")
		sendResponse(c, http.StatusOK, "Instance removed successfully", gin.H{"redirect": "/dashboard"}, nil)
		return
	}
	ic.log.Error("reconcile needed: local row for %s removed, remote delete unconfirmed", instance.InstanceName)
	sess.SetFlash("warning", "Instance removed locally, but the gateway may still hold it.")
	sendResponse(c, http.StatusOK, "Instance removed locally", gin.H{"redirect": "/dashboard"}, nil)
}

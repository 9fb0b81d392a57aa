package controllers

import (
	"github.com/evopanel/evopanel/models"
	"github.com/evopanel/evopanel/session"
	"github.com/evopanel/evopanel/validators"
	"github.com/gin-gonic/gin"
)

// The AJAX endpoints poll and mutate single instances from the
// dashboard. They answer the {success, message, ...} envelope and
// never fail the page: a degraded gateway degrades the answer, not the
// request.

// CheckConnection polls the remote connection state and mirrors it
// into the local row. This poll doubles as the reconciliation loop: a
// successful round-trip clears the drift flag.
func (ic *InstanceController) CheckConnection(c *gin.Context) {
	req, ok := validators.ValidateInstanceActionRequest(c)
	if !ok {
		return
	}

	sess := session.FromContext(c)
	if !ic.security.ValidateCSRFToken(sess, req.CSRFToken) {
		sendAjax(c, false, "Invalid token", nil)
		return
	}

	instance, err := ic.ownedInstance(sess, req.InstanceName)
	if err != nil {
		sendAjax(c, false, "Instance not found or no permission", nil)
		return
	}

	state, err := ic.api.ConnectionState(c.Request.Context(), instance.InstanceName)
	if err != nil {
		ic.log.Error("connection state check failed for %s: %v", instance.InstanceName, err)
		sendAjax(c, false, "Failed to check connection state", gin.H{"status": instance.Status})
		return
	}

	newStatus := instance.Status
	if inner, ok := state["instance"].(map[string]interface{}); ok {
		switch inner["state"] {
		case "open":
			newStatus = models.StatusConnected
		case "connecting":
			newStatus = models.StatusConnecting
		default:
			newStatus = models.StatusDisconnected
		}
	}

	if newStatus != instance.Status || instance.ReconcileNeeded {
		updates := map[string]interface{}{
			"status":           newStatus,
			"reconcile_needed": false,
		}
		if err := ic.db.Model(&models.Instance{}).Where("id = ?", instance.ID).Updates(updates).Error; err != nil {
			ic.log.Error("status update failed for %s: %v", instance.InstanceName, err)
		}
	}

	sendAjax(c, true, "", gin.H{"status": newStatus})
}

// Disconnect logs the instance out remotely; the local status becomes
// disconnected no matter what the gateway said.
func (ic *InstanceController) Disconnect(c *gin.Context) {
	req, ok := validators.ValidateInstanceActionRequest(c)
	if !ok {
		return
	}

	sess := session.FromContext(c)
	if !ic.security.ValidateCSRFToken(sess, req.CSRFToken) {
		sendAjax(c, false, "Invalid token", nil)
		return
	}

	instance, err := ic.ownedInstance(sess, req.InstanceName)
	if err != nil {
		sendAjax(c, false, "Instance not found or no permission", nil)
		return
	}

	message := "Instance disconnected successfully"
	updates := map[string]interface{}{"status": models.StatusDisconnected}
	if _, err := ic.api.LogoutInstance(c.Request.Context(), instance.InstanceName); err != nil {
		ic.log.Warning("remote logout failed for %s: %v", instance.InstanceName, err)
		message = "The instance was marked as disconnected in the panel"
		// Remote side may still be connected; flag the row for the
		// next connection-state poll.
		updates["reconcile_needed"] = true
	}

	if err := ic.db.Model(&models.Instance{}).Where("id = ?", instance.ID).
		Updates(updates).Error; err != nil {
		ic.log.Error("status update failed for %s: %v", instance.InstanceName, err)
	}

	sendAjax(c, true, message, nil)
}

// GetQRCode requests a fresh pairing QR code and moves the instance to
// connecting.
func (ic *InstanceController) GetQRCode(c *gin.Context) {
	req, ok := validators.ValidateInstanceActionRequest(c)
	if !ok {
		return
	}

	sess := session.FromContext(c)
	if !ic.security.ValidateCSRFToken(sess, req.CSRFToken) {
		sendAjax(c, false, "Invalid token", nil)
		return
	}

	instance, err := ic.ownedInstance(sess, req.InstanceName)
	if err != nil {
		sendAjax(c, false, "Instance not found or no permission", nil)
		return
	}

	resp, err := ic.api.ConnectInstance(c.Request.Context(), instance.InstanceName)
	if err != nil {
		ic.log.Error("qr code request failed for %s: %v", instance.InstanceName, err)
		sendAjax(c, false, "Failed to fetch QR code", nil)
		return
	}

	b64, ok2 := resp["base64"].(string)
	if !ok2 || b64 == "" {
		sendAjax(c, false, "QR code not available yet. Try again in a moment.", nil)
		return
	}

	if err := ic.db.Model(&models.Instance{}).Where("id = ?", instance.ID).
		Update("status", models.StatusConnecting).Error; err != nil {
		ic.log.Error("status update failed for %s: %v", instance.InstanceName, err)
	}

	sendAjax(c, true, "QR code generated successfully", gin.H{"qrcode": b64})
}

// SyncSettings pulls the remote behavior flags and mirrors any changes
// into the local row; the remote API is the source of truth.
func (ic *InstanceController) SyncSettings(c *gin.Context) {
	req, ok := validators.ValidateInstanceActionRequest(c)
	if !ok {
		return
	}

	sess := session.FromContext(c)
	if !ic.security.ValidateCSRFToken(sess, req.CSRFToken) {
		sendAjax(c, false, "Invalid token", nil)
		return
	}

	instance, err := ic.ownedInstance(sess, req.InstanceName)
	if err != nil {
		sendAjax(c, false, "Instance not found or no permission", nil)
		return
	}

	remote, err := ic.api.GetSettings(c.Request.Context(), instance.InstanceName)
	if err != nil {
		ic.log.Error("settings sync failed for %s: %v", instance.InstanceName, err)
		sendAjax(c, false, "Failed to fetch settings from the gateway", nil)
		return
	}

	boolAt := func(key string) bool {
		v, _ := remote[key].(bool)
		return v
	}
	msgCall, _ := remote["msgCall"].(string)

	synced := gin.H{
		"reject_call":       boolAt("rejectCall"),
		"msg_call":          msgCall,
		"groups_ignore":     boolAt("groupsIgnore"),
		"always_online":     boolAt("alwaysOnline"),
		"read_messages":     boolAt("readMessages"),
		"read_status":       boolAt("readStatus"),
		"sync_full_history": boolAt("syncFullHistory"),
	}

	changed := boolAt("rejectCall") != instance.RejectCall ||
		msgCall != instance.MsgCall ||
		boolAt("groupsIgnore") != instance.GroupsIgnore ||
		boolAt("alwaysOnline") != instance.AlwaysOnline ||
		boolAt("readMessages") != instance.ReadMessages ||
		boolAt("readStatus") != instance.ReadStatus ||
		boolAt("syncFullHistory") != instance.SyncFullHistory

	if !changed {
		sendAjax(c, true, "Settings already in sync", gin.H{"changed": false})
		return
	}

	if err := ic.db.Model(&models.Instance{}).Where("id = ?", instance.ID).
		Updates(map[string]interface{}{
			"reject_call":       boolAt("rejectCall"),
			"msg_call":          msgCall,
			"groups_ignore":     boolAt("groupsIgnore"),
			"always_online":     boolAt("alwaysOnline"),
			"read_messages":     boolAt("readMessages"),
			"read_status":       boolAt("readStatus"),
			"sync_full_history": boolAt("syncFullHistory"),
		}).Error; err != nil {
		ic.log.Error("settings update failed for %s: %v", instance.InstanceName, err)
		sendAjax(c, false, "Failed to store synchronized settings", nil)
		return
	}

	sendAjax(c, true, "Settings synchronized successfully", gin.H{"changed": true, "settings": synced})
}

// SendTest relays a text message through the instance, used by the
// dashboard's connectivity test.
func (ic *InstanceController) SendTest(c *gin.Context) {
	req, ok := validators.ValidateSendTextRequest(c)
	if !ok {
		return
	}

	sess := session.FromContext(c)
	if !ic.security.ValidateCSRFToken(sess, req.CSRFToken) {
		sendAjax(c, false, "Invalid token", nil)
		return
	}

	instance, err := ic.ownedInstance(sess, req.InstanceName)
	if err != nil {
		sendAjax(c, false, "Instance not found or no permission", nil)
		return
	}

	if _, err := ic.api.SendText(c.Request.Context(), instance.InstanceName, req.Number, req.Text); err != nil {
		ic.log.Error("test message failed for %s: %v", instance.InstanceName, err)
		sendAjax(c, false, "Failed to send the message", nil)
		return
	}

	sendAjax(c, true, "Message sent successfully", nil)
}

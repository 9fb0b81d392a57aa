package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/evopanel/evopanel/gateway"
	"github.com/evopanel/evopanel/logger"
	"github.com/evopanel/evopanel/models"
	"github.com/evopanel/evopanel/security"
	"github.com/evopanel/evopanel/session"
	"github.com/evopanel/evopanel/validators"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// AdminController backs the user-management console. Every route is
// behind the live admin check.
type AdminController struct {
	db       *gorm.DB
	sessions *session.Manager
	security *security.Service
	api      *gateway.Client
	log      *logger.Logger
}

func NewAdminController(db *gorm.DB, sessions *session.Manager, sec *security.Service, api *gateway.Client, log *logger.Logger) *AdminController {
	return &AdminController{
		db:       db,
		sessions: sessions,
		security: sec,
		api:      api,
		log:      log,
	}
}

type userSummary struct {
	ID            uint   `json:"id"`
	Username      string `json:"username"`
	Role          string `json:"role"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	MaxInstances  int    `json:"max_instances"`
	IsActive      bool   `json:"is_active"`
	InstanceCount int64  `json:"instance_count"`
}

func (adc *AdminController) ListUsers(c *gin.Context) {
	sess := session.FromContext(c)

	var users []models.User
	if err := adc.db.Order("username ASC").Find(&users).Error; err != nil {
		adc.log.Error("user list query failed: %v", err)
		sendResponse(c, http.StatusInternalServerError, "Failed to load users", nil, "Please try again later")
		return
	}

	summaries := make([]userSummary, 0, len(users))
	for _, u := range users {
		var count int64
		adc.db.Model(&models.Instance{}).Where("user_id = ?", u.ID).Count(&count)
		summaries = append(summaries, userSummary{
			ID:            u.ID,
			Username:      u.Username,
			Role:          u.Role,
			FirstName:     u.FirstName,
			LastName:      u.LastName,
			MaxInstances:  u.MaxInstances,
			IsActive:      u.IsActive,
			InstanceCount: count,
		})
	}

	token, err := adc.security.GenerateCSRFToken(sess)
	if err != nil {
		sendResponse(c, http.StatusInternalServerError, "Internal server error", nil, "Security token unavailable")
		return
	}

	data := gin.H{"users": summaries, "csrf_token": token}
	for _, kind := range []string{"success", "error", "warning"} {
		if msg, ok := sess.GetFlash(kind); ok {
			data["flash_"+kind] = msg
		}
	}
	sendResponse(c, http.StatusOK, "Users", data, nil)
}

func (adc *AdminController) CreateUser(c *gin.Context) {
	req, ok := validators.ValidateCreateUserRequest(c)
	if !ok {
		return
	}

	sess := session.FromContext(c)
	if !adc.security.ValidateCSRFToken(sess, req.CSRFToken) {
		sendResponse(c, http.StatusForbidden, "Security error. Please try again.", nil, "Invalid CSRF token")
		return
	}

	username := strings.TrimSpace(req.Username)
	// Underscores are allowed in usernames, everything else must be
	// alphanumeric.
	if !security.IsAlphanumeric(strings.ReplaceAll(username, "_", "")) {
		sendResponse(c, http.StatusBadRequest, "Creation failed", nil,
			"Username may only contain letters, digits and underscore.")
		return
	}
	if req.Password != req.ConfirmPassword {
		sendResponse(c, http.StatusBadRequest, "Creation failed", nil, "Passwords do not match")
		return
	}
	if check := security.CheckPasswordStrength(req.Password); !check.Valid {
		sendResponse(c, http.StatusBadRequest, "Creation failed", nil, check.Message)
		return
	}

	var existing int64
	if err := adc.db.Model(&models.User{}).Where("username = ?", username).Count(&existing).Error; err != nil {
		adc.log.Error("user lookup failed: %v", err)
		sendResponse(c, http.StatusInternalServerError, "Creation failed", nil, "Please try again later")
		return
	}
	if existing > 0 {
		sendResponse(c, http.StatusConflict, "Creation failed", nil, "This username is already taken.")
		return
	}

	hash, err := security.HashPassword(req.Password)
	if err != nil {
		adc.log.Error("password hash failed: %v", err)
		sendResponse(c, http.StatusInternalServerError, "Creation failed", nil, "Please try again later")
		return
	}

	user := models.User{
		Username:     username,
		Password:     hash,
		Role:         req.Role,
		MaxInstances: req.MaxInstances,
		FirstName:    security.SanitizeInput(req.FirstName),
		LastName:     security.SanitizeInput(req.LastName),
		IsActive:     true,
	}
	if err := adc.db.Create(&user).Error; err != nil {
		adc.log.Error("user creation failed: %v", err)
		sendResponse(c, http.StatusInternalServerError, "Creation failed", nil, "Please try again later")
		return
	}

	adc.log.Info("user %q created by administrator %s", username, sess.Get("username"))
	sess.SetFlash("success", "User "+username+" created successfully.")
	sendResponse(c, http.StatusCreated, "User created successfully", gin.H{
		"id":       user.ID,
		"username": user.Username,
	}, nil)
}

func (adc *AdminController) UpdateUser(c *gin.Context) {
	req, ok := validators.ValidateUpdateUserRequest(c)
	if !ok {
		return
	}

	sess := session.FromContext(c)
	if !adc.security.ValidateCSRFToken(sess, req.CSRFToken) {
		sendResponse(c, http.StatusForbidden, "Security error. Please try again.", nil, "Invalid CSRF token")
		return
	}

	userID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || userID == 0 {
		sendResponse(c, http.StatusBadRequest, "Update failed", nil, "Invalid user id")
		return
	}

	var user models.User
	if err := adc.db.First(&user, uint(userID)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			sendResponse(c, http.StatusNotFound, "Update failed", nil, "User not found")
			return
		}
		adc.log.Error("user lookup failed: %v", err)
		sendResponse(c, http.StatusInternalServerError, "Update failed", nil, "Please try again later")
		return
	}

	updates := map[string]interface{}{}
	if req.MaxInstances != nil {
		updates["max_instances"] = *req.MaxInstances
	}
	if req.Role != nil {
		updates["role"] = *req.Role
	}
	if req.FirstName != nil {
		updates["first_name"] = security.SanitizeInput(*req.FirstName)
	}
	if req.LastName != nil {
		updates["last_name"] = security.SanitizeInput(*req.LastName)
	}
	if req.Active != nil {
		if !*req.Active && user.ID == sess.UserID() {
			sendResponse(c, http.StatusBadRequest, "Update failed", nil, "You cannot deactivate your own account")
			return
		}
		updates["is_active"] = *req.Active
	}
	if req.Password != nil && *req.Password != "" {
		if check := security.CheckPasswordStrength(*req.Password); !check.Valid {
			sendResponse(c, http.StatusBadRequest, "Update failed", nil, check.Message)
			return
		}
		hash, hashErr := security.HashPassword(*req.Password)
		if hashErr != nil {
			sendResponse(c, http.StatusInternalServerError, "Update failed", nil, "Please try again later")
			return
		}
		updates["password"] = hash
	}

	if len(updates) == 0 {
		sendResponse(c, http.StatusBadRequest, "Update failed", nil, "Nothing to update")
		return
	}

	if err := adc.db.Model(&user).Updates(updates).Error; err != nil {
		adc.log.Error("user update failed: %v", err)
		sendResponse(c, http.StatusInternalServerError, "Update failed", nil, "Please try again later")
		return
	}

	adc.log.Info("user %q updated by administrator %s", user.Username, sess.Get("username"))
	sendResponse(c, http.StatusOK, "User updated successfully", nil, nil)
}

// DeactivateUser soft-deletes: the row stays, the account stops
// working. Instances are left for the admin to clean up explicitly.
func (adc *AdminController) DeactivateUser(c *gin.Context) {
	req, ok := validators.ValidateCSRFRequest(c)
	if !ok {
		return
	}

	sess := session.FromContext(c)
	if !adc.security.ValidateCSRFToken(sess, req.CSRFToken) {
		sendResponse(c, http.StatusForbidden, "Security error. Please try again.", nil, "Invalid CSRF token")
		return
	}

	userID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || userID == 0 {
		sendResponse(c, http.StatusBadRequest, "Deactivation failed", nil, "Invalid user id")
		return
	}
	if uint(userID) == sess.UserID() {
		sendResponse(c, http.StatusBadRequest, "Deactivation failed", nil, "You cannot deactivate your own account")
		return
	}

	result := adc.db.Model(&models.User{}).Where("id = ?", uint(userID)).Update("is_active", false)
	if result.Error != nil {
		adc.log.Error("user deactivation failed: %v", result.Error)
		sendResponse(c, http.StatusInternalServerError, "Deactivation failed", nil, "Please try again later")
		return
	}
	if result.RowsAffected == 0 {
		sendResponse(c, http.StatusNotFound, "Deactivation failed", nil, "User not found")
		return
	}

	adc.log.Info("user id %d deactivated by administrator %s", userID, sess.Get("username"))
	sess.SetFlash("success", "User deactivated.")
	sendResponse(c, http.StatusOK, "User deactivated", nil, nil)
}

// DeleteInstance is the admin variant of instance removal: no
// ownership restriction, same best-effort dual delete.
func (adc *AdminController) DeleteInstance(c *gin.Context) {
	req, ok := validators.ValidateInstanceActionRequest(c)
	if !ok {
		return
	}

	sess := session.FromContext(c)
	if !adc.security.ValidateCSRFToken(sess, req.CSRFToken) {
		sendResponse(c, http.StatusForbidden, "Security error. Please try again.", nil, "Invalid CSRF token")
		return
	}

	var instance models.Instance
	if err := adc.db.Where("instance_name = ?", req.InstanceName).First(&instance).Error; err != nil {
		sendResponse(c, http.StatusNotFound, "Deletion failed", nil, "Instance not found")
		return
	}

	remoteOK := true
	if _, err := adc.api.DeleteInstance(c.Request.Context(), instance.InstanceName); err != nil {
		remoteOK = false
		adc.log.Warning("remote delete failed for %s: %v", instance.InstanceName, err)
	}

	if err := adc.db.Delete(&models.Instance{}, instance.ID).Error; err != nil {
		adc.log.Error("local delete failed for %s: %v", instance.InstanceName, err)
		if remoteOK {
			if flagErr := adc.db.Model(&models.Instance{}).Where("id = ?", instance.ID).
				Update("reconcile_needed", true).Error; flagErr != nil {
				adc.log.Error("failed to flag %s for reconciliation: %v", instance.InstanceName, flagErr)
			}
		}
		sendResponse(c, http.StatusInternalServerError, "Deletion failed", nil, "Failed to remove the instance")
		return
	}

	if !remoteOK {
		adc.log.Error("reconcile needed: local row for %s removed, remote delete unconfirmed", instance.InstanceName)
		sendResponse(c, http.StatusOK, "Instance removed locally", nil, nil)
		return
	}
	sendResponse(c, http.StatusOK, "Instance removed successfully", nil, nil)
}

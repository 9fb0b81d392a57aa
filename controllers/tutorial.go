package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/evopanel/evopanel/logger"
	"github.com/evopanel/evopanel/models"
	"github.com/evopanel/evopanel/security"
	"github.com/evopanel/evopanel/session"
	"github.com/evopanel/evopanel/validators"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type TutorialController struct {
	db       *gorm.DB
	security *security.Service
	log      *logger.Logger
}

func NewTutorialController(db *gorm.DB, sec *security.Service, log *logger.Logger) *TutorialController {
	return &TutorialController{
		db:       db,
		security: sec,
		log:      log,
	}
}

func (tc *TutorialController) List(c *gin.Context) {
	sess := session.FromContext(c)

	var tutorials []models.Tutorial
	if err := tc.db.Order("created_at DESC").Find(&tutorials).Error; err != nil {
		tc.log.Error("tutorial list query failed: %v", err)
		sendResponse(c, http.StatusInternalServerError, "Failed to load tutorials", nil, "Please try again later")
		return
	}

	token, err := tc.security.GenerateCSRFToken(sess)
	if err != nil {
		sendResponse(c, http.StatusInternalServerError, "Internal server error", nil, "Security token unavailable")
		return
	}
	sendResponse(c, http.StatusOK, "Tutorials", gin.H{"tutorials": tutorials, "csrf_token": token}, nil)
}

func (tc *TutorialController) Create(c *gin.Context) {
	req, ok := validators.ValidateTutorialRequest(c)
	if !ok {
		return
	}

	sess := session.FromContext(c)
	if !tc.security.ValidateCSRFToken(sess, req.CSRFToken) {
		sendResponse(c, http.StatusForbidden, "Security error. Please try again.", nil, "Invalid CSRF token")
		return
	}

	tutorial := models.Tutorial{
		Title:       security.SanitizeInput(req.Title),
		URL:         req.URL,
		Description: security.SanitizeInput(req.Description),
	}
	if err := tc.db.Create(&tutorial).Error; err != nil {
		tc.log.Error("tutorial creation failed: %v", err)
		sendResponse(c, http.StatusInternalServerError, "Creation failed", nil, "Please try again later")
		return
	}

	sendResponse(c, http.StatusCreated, "Tutorial created successfully", gin.H{"id": tutorial.ID}, nil)
}

func (tc *TutorialController) Update(c *gin.Context) {
	req, ok := validators.ValidateTutorialRequest(c)
	if !ok {
		return
	}

	sess := session.FromContext(c)
	if !tc.security.ValidateCSRFToken(sess, req.CSRFToken) {
		sendResponse(c, http.StatusForbidden, "Security error. Please try again.", nil, "Invalid CSRF token")
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		sendResponse(c, http.StatusBadRequest, "Update failed", nil, "Invalid tutorial id")
		return
	}

	var tutorial models.Tutorial
	if err := tc.db.First(&tutorial, uint(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			sendResponse(c, http.StatusNotFound, "Update failed", nil, "Tutorial not found")
			return
		}
		sendResponse(c, http.StatusInternalServerError, "Update failed", nil, "Please try again later")
		return
	}

	updates := map[string]interface{}{
		"title":       security.SanitizeInput(req.Title),
		"url":         req.URL,
		"description": security.SanitizeInput(req.Description),
	}
	if err := tc.db.Model(&tutorial).Updates(updates).Error; err != nil {
		tc.log.Error("tutorial update failed: %v", err)
		sendResponse(c, http.StatusInternalServerError, "Update failed", nil, "Please try again later")
		return
	}

	sendResponse(c, http.StatusOK, "Tutorial updated successfully", nil, nil)
}

func (tc *TutorialController) Delete(c *gin.Context) {
	req, ok := validators.ValidateCSRFRequest(c)
	if !ok {
		return
	}

	sess := session.FromContext(c)
	if !tc.security.ValidateCSRFToken(sess, req.CSRFToken) {
		sendResponse(c, http.StatusForbidden, "Security error. Please try again.", nil, "Invalid CSRF token")
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		sendResponse(c, http.StatusBadRequest, "Deletion failed", nil, "Invalid tutorial id")
		return
	}

	result := tc.db.Delete(&models.Tutorial{}, uint(id))
	if result.Error != nil {
		tc.log.Error("tutorial deletion failed: %v", result.Error)
		sendResponse(c, http.StatusInternalServerError, "Deletion failed", nil, "Please try again later")
		return
	}
	if result.RowsAffected == 0 {
		sendResponse(c, http.StatusNotFound, "Deletion failed", nil, "Tutorial not found")
		return
	}

	sendResponse(c, http.StatusOK, "Tutorial removed successfully", nil, nil)
}

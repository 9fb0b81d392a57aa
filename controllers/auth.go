package controllers

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/evopanel/evopanel/logger"
	"github.com/evopanel/evopanel/mailer"
	"github.com/evopanel/evopanel/models"
	"github.com/evopanel/evopanel/security"
	"github.com/evopanel/evopanel/session"
	"github.com/evopanel/evopanel/validators"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const resetTokenLifetime = time.Hour

// loginFailedMessage is intentionally identical for unknown usernames
// and wrong passwords.
const loginFailedMessage = "Invalid username or password"

type AuthController struct {
	db       *gorm.DB
	sessions *session.Manager
	security *security.Service
	mail     mailer.Mailer
	log      *logger.Logger
	appURL   string
}

func NewAuthController(db *gorm.DB, sessions *session.Manager, sec *security.Service, mail mailer.Mailer, log *logger.Logger, appURL string) *AuthController {
	return &AuthController{
		db:       db,
		sessions: sessions,
		security: sec,
		mail:     mail,
		log:      log,
		appURL:   appURL,
	}
}

// LoginPage hands the client a CSRF token for the login form along
// with any flash or expiry indicator.
func (ac *AuthController) LoginPage(c *gin.Context) {
	sess := session.FromContext(c)
	if sess.IsAuthenticated() {
		sendResponse(c, http.StatusOK, "Already authenticated", gin.H{"redirect": "/dashboard"}, nil)
		return
	}

	token, err := ac.security.GenerateCSRFToken(sess)
	if err != nil {
		ac.log.Error("csrf generation failed: %v", err)
		sendResponse(c, http.StatusInternalServerError, "Internal server error", nil, "Security token unavailable")
		return
	}

	data := gin.H{"csrf_token": token}
	if c.Query("expired") == "1" {
		data["expired"] = true
		data["error"] = "Your session expired due to inactivity. Please sign in again."
	}
	sendResponse(c, http.StatusOK, "Login", data, nil)
}

// Login runs the full authentication flow: CSRF, lockout, credential
// check, conditional rehash, session regeneration.
func (ac *AuthController) Login(c *gin.Context) {
	req, ok := validators.ValidateLoginRequest(c)
	if !ok {
		return
	}

	sess := session.FromContext(c)
	if !ac.security.ValidateCSRFToken(sess, req.CSRFToken) {
		sendResponse(c, http.StatusForbidden, "Security error. Please try again.", nil, "Invalid CSRF token")
		return
	}

	clientIP := c.ClientIP()

	if ac.security.IsUserLocked(req.Username) {
		sendResponse(c, http.StatusTooManyRequests, "Login failed", nil,
			"Account temporarily locked after too many attempts. Try again later.")
		return
	}

	var user models.User
	err := ac.db.Where("username = ? AND is_active = ?", req.Username, true).First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		ac.log.Error("login query failed: %v", err)
		sendResponse(c, http.StatusInternalServerError, "Login failed", nil, "Please try again later")
		return
	}

	if err != nil || !security.VerifyPassword(req.Password, user.Password) {
		if logErr := ac.security.LogLoginAttempt(req.Username, clientIP, false); logErr != nil {
			ac.log.Error("failed to record login attempt: %v", logErr)
		}
		sendResponse(c, http.StatusUnauthorized, "Login failed", nil, loginFailedMessage)
		return
	}

	if err := ac.security.ClearLoginAttempts(req.Username); err != nil {
		ac.log.Error("failed to clear login attempts for %s: %v", req.Username, err)
	}
	if err := ac.security.LogLoginAttempt(req.Username, clientIP, true); err != nil {
		ac.log.Error("failed to record login attempt: %v", err)
	}

	// Transparent hash upgrade for pre-cost-12 accounts.
	if security.PasswordNeedsRehash(user.Password) {
		if newHash, hashErr := security.HashPassword(req.Password); hashErr == nil {
			if upErr := ac.db.Model(&user).Update("password", newHash).Error; upErr != nil {
				ac.log.Error("failed to persist rehashed password for %s: %v", user.Username, upErr)
			}
		}
	}

	if err := ac.sessions.Regenerate(c, sess); err != nil {
		ac.log.Error("session regeneration failed: %v", err)
		sendResponse(c, http.StatusInternalServerError, "Login failed", nil, "Please try again later")
		return
	}
	sess.SetUser(&user)
	sess.Set("last_login_ip", clientIP)

	ac.log.Info("user %s logged in from %s", user.Username, clientIP)
	sendResponse(c, http.StatusOK, "Login successful", gin.H{
		"redirect": "/dashboard",
		"user": gin.H{
			"id":         user.ID,
			"username":   user.Username,
			"first_name": user.FirstName,
			"last_name":  user.LastName,
			"role":       user.Role,
		},
	}, nil)
}

func (ac *AuthController) Logout(c *gin.Context) {
	sess := session.FromContext(c)
	if err := ac.sessions.Destroy(c, sess); err != nil {
		ac.log.Error("session destroy failed: %v", err)
	}
	sendResponse(c, http.StatusOK, "Logged out", gin.H{"redirect": "/login"}, nil)
}

func (ac *AuthController) ChangePassword(c *gin.Context) {
	req, ok := validators.ValidateChangePasswordRequest(c)
	if !ok {
		return
	}

	sess := session.FromContext(c)
	if !ac.security.ValidateCSRFToken(sess, req.CSRFToken) {
		sendResponse(c, http.StatusForbidden, "Security error. Please try again.", nil, "Invalid CSRF token")
		return
	}

	if req.NewPassword != req.ConfirmPassword {
		sendResponse(c, http.StatusBadRequest, "Change failed", nil, "Passwords do not match")
		return
	}
	if check := security.CheckPasswordStrength(req.NewPassword); !check.Valid {
		sendResponse(c, http.StatusBadRequest, "Change failed", nil, check.Message)
		return
	}

	var user models.User
	if err := ac.db.Where("id = ? AND is_active = ?", sess.UserID(), true).First(&user).Error; err != nil {
		sendResponse(c, http.StatusUnauthorized, "Change failed", nil, "Invalid account")
		return
	}
	if !security.VerifyPassword(req.CurrentPassword, user.Password) {
		sendResponse(c, http.StatusUnauthorized, "Change failed", nil, "Current password is incorrect")
		return
	}

	hash, err := security.HashPassword(req.NewPassword)
	if err != nil {
		ac.log.Error("password hash failed: %v", err)
		sendResponse(c, http.StatusInternalServerError, "Change failed", nil, "Please try again later")
		return
	}
	if err := ac.db.Model(&user).Update("password", hash).Error; err != nil {
		ac.log.Error("password update failed: %v", err)
		sendResponse(c, http.StatusInternalServerError, "Change failed", nil, "Please try again later")
		return
	}

	sess.SetFlash("success", "Password changed successfully.")
	sendResponse(c, http.StatusOK, "Password changed", nil, nil)
}

// ForgotPassword answers identically whether or not the account
// exists; only the log knows the difference.
func (ac *AuthController) ForgotPassword(c *gin.Context) {
	req, ok := validators.ValidateForgotPasswordRequest(c)
	if !ok {
		return
	}

	sess := session.FromContext(c)
	if !ac.security.ValidateCSRFToken(sess, req.CSRFToken) {
		sendResponse(c, http.StatusForbidden, "Security error. Please try again.", nil, "Invalid CSRF token")
		return
	}

	genericMsg := "If your account exists, we sent instructions to reset your password."

	var user models.User
	err := ac.db.Where("username = ? AND is_active = ?", req.Username, true).First(&user).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			ac.log.Error("forgot-password lookup failed: %v", err)
		}
		sendResponse(c, http.StatusOK, genericMsg, nil, nil)
		return
	}

	token, err := ac.security.GenerateResetToken()
	if err != nil {
		ac.log.Error("reset token generation failed: %v", err)
		sendResponse(c, http.StatusOK, genericMsg, nil, nil)
		return
	}

	expires := time.Now().Add(resetTokenLifetime)
	updates := map[string]interface{}{
		"reset_token":         token,
		"reset_token_expires": expires,
	}
	if err := ac.db.Model(&user).Updates(updates).Error; err != nil {
		ac.log.Error("failed to store reset token: %v", err)
		sendResponse(c, http.StatusOK, genericMsg, nil, nil)
		return
	}

	resetURL := fmt.Sprintf("%s/reset-password?token=%s&username=%s",
		ac.appURL, token, url.QueryEscape(user.Username))
	if err := ac.mail.SendPasswordReset(user.Username, resetURL); err != nil {
		ac.log.Error("failed to send reset mail to %s: %v", user.Username, err)
	} else {
		ac.log.Info("password reset mail sent for user id %d", user.ID)
	}

	sendResponse(c, http.StatusOK, genericMsg, nil, nil)
}

func (ac *AuthController) ResetPassword(c *gin.Context) {
	req, ok := validators.ValidateResetPasswordRequest(c)
	if !ok {
		return
	}

	sess := session.FromContext(c)
	if !ac.security.ValidateCSRFToken(sess, req.CSRFToken) {
		sendResponse(c, http.StatusForbidden, "Security error. Please try again.", nil, "Invalid CSRF token")
		return
	}

	if req.NewPassword != req.ConfirmPassword {
		sendResponse(c, http.StatusBadRequest, "Reset failed", nil, "Passwords do not match")
		return
	}
	if check := security.CheckPasswordStrength(req.NewPassword); !check.Valid {
		sendResponse(c, http.StatusBadRequest, "Reset failed", nil, check.Message)
		return
	}

	var user models.User
	err := ac.db.Where("username = ? AND is_active = ?", req.Username, true).First(&user).Error
	if err != nil || user.ResetToken == nil ||
		subtle.ConstantTimeCompare([]byte(*user.ResetToken), []byte(req.Token)) != 1 {
		sendResponse(c, http.StatusBadRequest, "Reset failed", nil, "Invalid or expired reset link")
		return
	}
	if user.ResetTokenExpires == nil || user.ResetTokenExpires.Before(time.Now()) {
		sendResponse(c, http.StatusBadRequest, "Reset failed", nil, "Invalid or expired reset link")
		return
	}

	hash, err := security.HashPassword(req.NewPassword)
	if err != nil {
		ac.log.Error("password hash failed: %v", err)
		sendResponse(c, http.StatusInternalServerError, "Reset failed", nil, "Please try again later")
		return
	}

	updates := map[string]interface{}{
		"password":            hash,
		"reset_token":         nil,
		"reset_token_expires": nil,
	}
	if err := ac.db.Model(&user).Updates(updates).Error; err != nil {
		ac.log.Error("password reset update failed: %v", err)
		sendResponse(c, http.StatusInternalServerError, "Reset failed", nil, "Please try again later")
		return
	}

	ac.log.Info("password reset completed for user id %d", user.ID)
	sendResponse(c, http.StatusOK, "Password reset successfully", gin.H{"redirect": "/login"}, nil)
}

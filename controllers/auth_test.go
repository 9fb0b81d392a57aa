package controllers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/evopanel/evopanel/logger"
	"github.com/evopanel/evopanel/models"
	"github.com/evopanel/evopanel/security"
	"github.com/evopanel/evopanel/session"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeMailer struct {
	to   []string
	urls []string
}

func (f *fakeMailer) SendPasswordReset(to, resetURL string) error {
	f.to = append(f.to, to)
	f.urls = append(f.urls, resetURL)
	return nil
}

type authHarness struct {
	router   *gin.Engine
	db       *gorm.DB
	security *security.Service
	mail     *fakeMailer
}

func newAuthHarness(t *testing.T) *authHarness {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.LoginAttempt{}))

	store := session.NewMemoryStore()
	sessions := session.NewManager(store, db, time.Hour)
	sec := security.NewService(db, 5, 15*time.Minute)
	log := logger.New(filepath.Join(t.TempDir(), "app.log"))
	t.Cleanup(func() { _ = log.Close() })
	mail := &fakeMailer{}

	auth := NewAuthController(db, sessions, sec, mail, log, "http://panel.local")

	router := gin.New()
	router.Use(sessions.Middleware())
	router.GET("/login", auth.LoginPage)
	router.POST("/login", auth.Login)
	router.POST("/logout", sessions.RequireAuth(), auth.Logout)
	router.POST("/forgot-password", auth.ForgotPassword)
	router.POST("/reset-password", auth.ResetPassword)
	router.POST("/change-password", sessions.RequireAuth(), auth.ChangePassword)

	return &authHarness{router: router, db: db, security: sec, mail: mail}
}

func (h *authHarness) createUser(t *testing.T, username, password string) *models.User {
	t.Helper()
	hash, err := security.HashPassword(password)
	require.NoError(t, err)
	user := models.User{
		Username:  username,
		Password:  hash,
		Role:      models.RoleStandard,
		FirstName: "Test",
		LastName:  "User",
		IsActive:  true,
	}
	require.NoError(t, h.db.Create(&user).Error)
	return &user
}

// loginForm fetches the login page and returns the CSRF token with the
// session cookie that anchors it.
func (h *authHarness) loginForm(t *testing.T) (string, *http.Cookie) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data struct {
			CSRFToken string `json:"csrf_token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Data.CSRFToken)

	for _, ck := range w.Result().Cookies() {
		if ck.Name == session.CookieName {
			return resp.Data.CSRFToken, ck
		}
	}
	t.Fatal("login page set no session cookie")
	return "", nil
}

func (h *authHarness) postJSON(t *testing.T, path string, body gin.H, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func (h *authHarness) failedAttempts(t *testing.T, username string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, h.db.Model(&models.LoginAttempt{}).
		Where("username = ? AND success = ?", username, false).Count(&n).Error)
	return n
}

func TestLoginSuccess(t *testing.T) {
	h := newAuthHarness(t)
	h.createUser(t, "alice@example.com", "ValidPass1")

	csrf, cookie := h.loginForm(t)
	w := h.postJSON(t, "/login", gin.H{
		"csrf_token": csrf,
		"username":   "alice@example.com",
		"password":   "ValidPass1",
	}, cookie)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "/dashboard", data["redirect"])
	user := data["user"].(map[string]interface{})
	assert.Equal(t, "alice@example.com", user["username"])

	// The session identifier rotates on authentication.
	var rotated string
	for _, ck := range w.Result().Cookies() {
		if ck.Name == session.CookieName {
			rotated = ck.Value
		}
	}
	require.NotEmpty(t, rotated)
	assert.NotEqual(t, cookie.Value, rotated)

	assert.Zero(t, h.failedAttempts(t, "alice@example.com"))
}

func TestLoginWrongPasswordIsGenericAndRecorded(t *testing.T) {
	h := newAuthHarness(t)
	h.createUser(t, "alice@example.com", "ValidPass1")

	csrf, cookie := h.loginForm(t)
	w := h.postJSON(t, "/login", gin.H{
		"csrf_token": csrf,
		"username":   "alice@example.com",
		"password":   "WrongPass1",
	}, cookie)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, "Invalid username or password", resp["error"])
	assert.Equal(t, int64(1), h.failedAttempts(t, "alice@example.com"))
}

func TestLoginUnknownUserAnswersSameMessage(t *testing.T) {
	h := newAuthHarness(t)

	csrf, cookie := h.loginForm(t)
	w := h.postJSON(t, "/login", gin.H{
		"csrf_token": csrf,
		"username":   "nobody@example.com",
		"password":   "ValidPass1",
	}, cookie)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, "Invalid username or password", resp["error"])
}

func TestLoginRejectsBadCSRFToken(t *testing.T) {
	h := newAuthHarness(t)
	h.createUser(t, "alice@example.com", "ValidPass1")

	_, cookie := h.loginForm(t)
	w := h.postJSON(t, "/login", gin.H{
		"csrf_token": "not-the-issued-token",
		"username":   "alice@example.com",
		"password":   "ValidPass1",
	}, cookie)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Zero(t, h.failedAttempts(t, "alice@example.com"))
}

func TestLoginLockoutBlocksCorrectPassword(t *testing.T) {
	h := newAuthHarness(t)
	h.createUser(t, "alice@example.com", "ValidPass1")

	for i := 0; i < 5; i++ {
		require.NoError(t, h.security.LogLoginAttempt("alice@example.com", "10.0.0.1", false))
	}

	csrf, cookie := h.loginForm(t)
	w := h.postJSON(t, "/login", gin.H{
		"csrf_token": csrf,
		"username":   "alice@example.com",
		"password":   "ValidPass1",
	}, cookie)

	require.Equal(t, http.StatusTooManyRequests, w.Code)
	resp := decodeResponse(t, w)
	assert.Contains(t, resp["error"], "temporarily locked")
}

func TestLoginSuccessClearsEarlierFailures(t *testing.T) {
	h := newAuthHarness(t)
	h.createUser(t, "alice@example.com", "ValidPass1")

	for i := 0; i < 3; i++ {
		require.NoError(t, h.security.LogLoginAttempt("alice@example.com", "10.0.0.1", false))
	}

	csrf, cookie := h.loginForm(t)
	w := h.postJSON(t, "/login", gin.H{
		"csrf_token": csrf,
		"username":   "alice@example.com",
		"password":   "ValidPass1",
	}, cookie)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, h.failedAttempts(t, "alice@example.com"))
}

func TestLoginUpgradesLegacyHashCost(t *testing.T) {
	h := newAuthHarness(t)

	legacy, err := bcrypt.GenerateFromPassword([]byte("ValidPass1"), 10)
	require.NoError(t, err)
	user := models.User{Username: "alice@example.com", Password: string(legacy), IsActive: true}
	require.NoError(t, h.db.Create(&user).Error)

	csrf, cookie := h.loginForm(t)
	w := h.postJSON(t, "/login", gin.H{
		"csrf_token": csrf,
		"username":   "alice@example.com",
		"password":   "ValidPass1",
	}, cookie)
	require.Equal(t, http.StatusOK, w.Code)

	var updated models.User
	require.NoError(t, h.db.First(&updated, user.ID).Error)
	cost, err := bcrypt.Cost([]byte(updated.Password))
	require.NoError(t, err)
	assert.Equal(t, security.BcryptCost, cost)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(updated.Password), []byte("ValidPass1")))
}

func TestLoginPageReportsExpiredSession(t *testing.T) {
	h := newAuthHarness(t)

	req := httptest.NewRequest(http.MethodGet, "/login?expired=1", nil)
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, true, data["expired"])
}

func TestForgotPasswordAnswersIdenticallyForUnknownUser(t *testing.T) {
	h := newAuthHarness(t)
	h.createUser(t, "alice@example.com", "ValidPass1")

	csrf, cookie := h.loginForm(t)
	known := h.postJSON(t, "/forgot-password", gin.H{
		"csrf_token": csrf,
		"username":   "alice@example.com",
	}, cookie)

	csrf2, cookie2 := h.loginForm(t)
	unknown := h.postJSON(t, "/forgot-password", gin.H{
		"csrf_token": csrf2,
		"username":   "nobody@example.com",
	}, cookie2)

	require.Equal(t, http.StatusOK, known.Code)
	require.Equal(t, http.StatusOK, unknown.Code)
	assert.Equal(t, decodeResponse(t, known)["message"], decodeResponse(t, unknown)["message"])

	// Only the real account got mail, addressed to the username.
	require.Len(t, h.mail.to, 1)
	assert.Equal(t, "alice@example.com", h.mail.to[0])

	var user models.User
	require.NoError(t, h.db.Where("username = ?", "alice@example.com").First(&user).Error)
	require.NotNil(t, user.ResetToken)
	assert.Contains(t, h.mail.urls[0], *user.ResetToken)
	assert.Contains(t, h.mail.urls[0], "http://panel.local/reset-password?token=")
}

func TestResetPasswordFlow(t *testing.T) {
	h := newAuthHarness(t)
	user := h.createUser(t, "alice@example.com", "ValidPass1")

	token := strings.Repeat("ab", 32)
	expires := time.Now().Add(time.Hour)
	require.NoError(t, h.db.Model(user).Updates(map[string]interface{}{
		"reset_token":         token,
		"reset_token_expires": expires,
	}).Error)

	csrf, cookie := h.loginForm(t)
	w := h.postJSON(t, "/reset-password", gin.H{
		"csrf_token":       csrf,
		"username":         "alice@example.com",
		"token":            token,
		"new_password":     "BrandNew1",
		"confirm_password": "BrandNew1",
	}, cookie)
	require.Equal(t, http.StatusOK, w.Code)

	var updated models.User
	require.NoError(t, h.db.First(&updated, user.ID).Error)
	assert.True(t, security.VerifyPassword("BrandNew1", updated.Password))
	assert.Nil(t, updated.ResetToken)
	assert.Nil(t, updated.ResetTokenExpires)
}

func TestResetPasswordRejectsExpiredToken(t *testing.T) {
	h := newAuthHarness(t)
	user := h.createUser(t, "alice@example.com", "ValidPass1")

	token := strings.Repeat("cd", 32)
	require.NoError(t, h.db.Model(user).Updates(map[string]interface{}{
		"reset_token":         token,
		"reset_token_expires": time.Now().Add(-time.Minute),
	}).Error)

	csrf, cookie := h.loginForm(t)
	w := h.postJSON(t, "/reset-password", gin.H{
		"csrf_token":       csrf,
		"username":         "alice@example.com",
		"token":            token,
		"new_password":     "BrandNew1",
		"confirm_password": "BrandNew1",
	}, cookie)

	require.Equal(t, http.StatusBadRequest, w.Code)
	var updated models.User
	require.NoError(t, h.db.First(&updated, user.ID).Error)
	assert.True(t, security.VerifyPassword("ValidPass1", updated.Password))
}

func TestChangePasswordRequiresCurrentPassword(t *testing.T) {
	h := newAuthHarness(t)
	h.createUser(t, "alice@example.com", "ValidPass1")

	csrf, cookie := h.loginForm(t)
	login := h.postJSON(t, "/login", gin.H{
		"csrf_token": csrf,
		"username":   "alice@example.com",
		"password":   "ValidPass1",
	}, cookie)
	require.Equal(t, http.StatusOK, login.Code)

	var authed *http.Cookie
	for _, ck := range login.Result().Cookies() {
		if ck.Name == session.CookieName {
			authed = ck
		}
	}
	require.NotNil(t, authed)

	w := h.postJSON(t, "/change-password", gin.H{
		"csrf_token":       csrf,
		"current_password": "WrongPass1",
		"new_password":     "BrandNew1",
		"confirm_password": "BrandNew1",
	}, authed)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = h.postJSON(t, "/change-password", gin.H{
		"csrf_token":       csrf,
		"current_password": "ValidPass1",
		"new_password":     "BrandNew1",
		"confirm_password": "BrandNew1",
	}, authed)
	require.Equal(t, http.StatusOK, w.Code)

	var updated models.User
	require.NoError(t, h.db.Where("username = ?", "alice@example.com").First(&updated).Error)
	assert.True(t, security.VerifyPassword("BrandNew1", updated.Password))
}

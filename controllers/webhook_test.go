package controllers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/evopanel/evopanel/models"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetWebhookRejectsNonOwner(t *testing.T) {
	h := newInstanceHarness(t)
	owner := h.createUser(t, "owner@example.com", 3)
	intruder := h.createUser(t, "intruder@example.com", 3)
	h.seedInstance(t, owner.ID, "private")
	cookie := h.authedCookie(t, intruder.ID)

	w := h.getJSON(t, "/instances/private/webhook", cookie)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Zero(t, h.hits)
}

func TestSetWebhookRejectsNonOwner(t *testing.T) {
	h := newInstanceHarness(t)
	owner := h.createUser(t, "owner@example.com", 3)
	intruder := h.createUser(t, "intruder@example.com", 3)
	h.seedInstance(t, owner.ID, "private")
	cookie := h.authedCookie(t, intruder.ID)

	w := h.postJSON(t, "/instances/webhook", gin.H{
		"csrf_token":    testCSRF,
		"instance_name": "private",
		"url":           "https://evil.example.com/hook",
	}, cookie)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Zero(t, h.hits)
}

func TestGetWebhookReturnsGatewayConfig(t *testing.T) {
	h := newInstanceHarness(t)
	user := h.createUser(t, "alice@example.com", 3)
	h.seedInstance(t, user.ID, "hooked")
	cookie := h.authedCookie(t, user.ID)

	h.gateway = func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/webhook/find/hooked", r.URL.Path)
		w.Write([]byte(`{"url":"https://example.com/hook","enabled":true}`))
	}

	w := h.getJSON(t, "/instances/hooked/webhook", cookie)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	data := resp["data"].(map[string]interface{})
	webhook := data["webhook"].(map[string]interface{})
	assert.Equal(t, "https://example.com/hook", webhook["url"])
	assert.Equal(t, true, webhook["enabled"])
	assert.NotEmpty(t, data["csrf_token"])
}

func TestSetWebhookRelaysPayload(t *testing.T) {
	h := newInstanceHarness(t)
	user := h.createUser(t, "alice@example.com", 3)
	h.seedInstance(t, user.ID, "hooked")
	cookie := h.authedCookie(t, user.ID)

	var gotPath string
	var gotBody map[string]interface{}
	h.gateway = func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{}`))
	}

	w := h.postJSON(t, "/instances/webhook", gin.H{
		"csrf_token":        testCSRF,
		"instance_name":     "hooked",
		"url":               "https://example.com/hook",
		"enabled":           true,
		"webhook_by_events": true,
		"events":            []string{"MESSAGES_UPSERT"},
	}, cookie)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/webhook/set/hooked", gotPath)
	assert.Equal(t, "https://example.com/hook", gotBody["url"])
	assert.Equal(t, true, gotBody["enabled"])
	assert.Equal(t, true, gotBody["webhook_by_events"])
	assert.Equal(t, false, gotBody["webhook_base64"])
	events, ok := gotBody["events"].([]interface{})
	require.True(t, ok)
	assert.Equal(t, []interface{}{"MESSAGES_UPSERT"}, events)
}

func TestSetWebhookRequiresValidURL(t *testing.T) {
	h := newInstanceHarness(t)
	user := h.createUser(t, "alice@example.com", 3)
	h.seedInstance(t, user.ID, "hooked")
	cookie := h.authedCookie(t, user.ID)

	w := h.postJSON(t, "/instances/webhook", gin.H{
		"csrf_token":    testCSRF,
		"instance_name": "hooked",
		"url":           "not a url",
	}, cookie)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, h.hits)
}

func TestSetChatwootRequiresCredentialsWhenEnabled(t *testing.T) {
	h := newInstanceHarness(t)
	user := h.createUser(t, "alice@example.com", 3)
	h.seedInstance(t, user.ID, "hooked")
	cookie := h.authedCookie(t, user.ID)

	w := h.postJSON(t, "/instances/chatwoot", gin.H{
		"csrf_token":    testCSRF,
		"instance_name": "hooked",
		"enabled":       true,
	}, cookie)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, h.hits)
}

func TestSetChatwootRelaysPayload(t *testing.T) {
	h := newInstanceHarness(t)
	user := h.createUser(t, "alice@example.com", 3)
	h.seedInstance(t, user.ID, "hooked")
	cookie := h.authedCookie(t, user.ID)

	var gotPath string
	var gotBody map[string]interface{}
	h.gateway = func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{}`))
	}

	w := h.postJSON(t, "/instances/chatwoot", gin.H{
		"csrf_token":    testCSRF,
		"instance_name": "hooked",
		"enabled":       true,
		"account_id":    "7",
		"token":         "cw-token",
		"url":           "https://chatwoot.example.com",
	}, cookie)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/chatwoot/set/hooked", gotPath)
	assert.Equal(t, true, gotBody["enabled"])
	assert.Equal(t, "7", gotBody["accountId"])
	assert.Equal(t, "cw-token", gotBody["token"])
	assert.Equal(t, "https://chatwoot.example.com", gotBody["url"])
}

func TestGetChatwootRejectsNonOwner(t *testing.T) {
	h := newInstanceHarness(t)
	owner := h.createUser(t, "owner@example.com", 3)
	intruder := h.createUser(t, "intruder@example.com", 3)
	h.seedInstance(t, owner.ID, "private")
	cookie := h.authedCookie(t, intruder.ID)

	w := h.getJSON(t, "/instances/private/chatwoot", cookie)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Zero(t, h.hits)
}

func TestSetWebhookSurfacesGatewayError(t *testing.T) {
	h := newInstanceHarness(t)
	user := h.createUser(t, "alice@example.com", 3)
	h.seedInstance(t, user.ID, "hooked")
	cookie := h.authedCookie(t, user.ID)

	h.gateway = gatewayJSON(http.StatusBadRequest, `{"message":"invalid webhook url"}`)

	w := h.postJSON(t, "/instances/webhook", gin.H{
		"csrf_token":    testCSRF,
		"instance_name": "hooked",
		"url":           "https://example.com/hook",
	}, cookie)

	require.Equal(t, http.StatusBadGateway, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, "invalid webhook url", resp["error"])

	// No instance row is touched by webhook configuration.
	var stored models.Instance
	require.NoError(t, h.db.Where("instance_name = ?", "hooked").First(&stored).Error)
	assert.False(t, stored.ReconcileNeeded)
}

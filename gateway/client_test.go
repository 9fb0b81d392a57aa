package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/evopanel/evopanel/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l := logger.New(filepath.Join(t.TempDir(), "test.log"))
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestNewClientRequiresBaseURLAndKey(t *testing.T) {
	log := testLogger(t)

	_, err := NewClient("", "key", log)
	assert.Error(t, err)
	_, err = NewClient("http://gw.local", "", log)
	assert.Error(t, err)

	c, err := NewClient("http://gw.local/", "key", log)
	require.NoError(t, err)
	assert.Equal(t, "http://gw.local/instance/create", c.buildURL("/instance/create"))
}

func TestCreateInstanceSendsExpectedPayload(t *testing.T) {
	var gotPath, gotKey, gotContentType string
	var gotBody map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("apikey")
		gotContentType = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"instance":{"instanceId":"abc-123","status":"connecting"},"hash":"tok"}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, "secret", testLogger(t))
	require.NoError(t, err)

	resp, err := c.CreateInstance(context.Background(), CreateInstanceRequest{
		InstanceName: "myinstance",
		QRCode:       true,
	})
	require.NoError(t, err)

	assert.Equal(t, "/instance/create", gotPath)
	assert.Equal(t, "secret", gotKey)
	assert.Equal(t, "application/json", gotContentType)

	assert.Equal(t, "myinstance", gotBody["instanceName"])
	assert.Equal(t, true, gotBody["qrcode"])
	assert.Equal(t, "WHATSAPP-BAILEYS", gotBody["integration"])
	assert.Equal(t, true, gotBody["code"])
	// omitempty keeps unset optional fields off the wire.
	assert.NotContains(t, gotBody, "number")
	assert.NotContains(t, gotBody, "msgCall")

	assert.Equal(t, "tok", resp["hash"])
	inst, ok := resp["instance"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "abc-123", inst["instanceId"])
}

func TestRequestReturnsAPIErrorWithServerMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"message":"Instance already exists"}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, "secret", testLogger(t))
	require.NoError(t, err)

	_, err = c.Post(context.Background(), "instance/create", map[string]string{"instanceName": "dup"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	assert.Equal(t, "Instance already exists", apiErr.Message)
}

func TestRequestJoinsMessageList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":["name is required","name must be unique"]}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, "secret", testLogger(t))
	require.NoError(t, err)

	_, err = c.Get(context.Background(), "instance/connect/x")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "name is required; name must be unique", apiErr.Message)
}

func TestRequestFallsBackToGenericErrorMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"detail":"boom"}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, "secret", testLogger(t))
	require.NoError(t, err)

	_, err = c.Get(context.Background(), "settings/find/x")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "unknown gateway error", apiErr.Message)
}

func TestRequestRejectsInvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>not json</html>`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, "secret", testLogger(t))
	require.NoError(t, err)

	_, err = c.Get(context.Background(), "instance/connectionState/x")
	assert.ErrorIs(t, err, ErrDecode)
}

func TestRequestAllowsEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, "secret", testLogger(t))
	require.NoError(t, err)

	resp, err := c.Delete(context.Background(), "instance/logout/x")
	require.NoError(t, err)
	assert.Nil(t, resp)
}

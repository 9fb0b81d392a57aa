package gateway

import (
	"context"
	"fmt"
)

// CreateInstanceRequest mirrors the gateway's instance/create payload.
// Code asks for the pairing code alongside the QR image.
type CreateInstanceRequest struct {
	InstanceName    string `json:"instanceName"`
	QRCode          bool   `json:"qrcode"`
	Integration     string `json:"integration"`
	Code            bool   `json:"code"`
	Number          string `json:"number,omitempty"`
	RejectCall      bool   `json:"rejectCall"`
	MsgCall         string `json:"msgCall,omitempty"`
	GroupsIgnore    bool   `json:"groupsIgnore"`
	AlwaysOnline    bool   `json:"alwaysOnline"`
	ReadMessages    bool   `json:"readMessages"`
	ReadStatus      bool   `json:"readStatus"`
	SyncFullHistory bool   `json:"syncFullHistory"`
}

// InstanceSettings mirrors the settings/set payload.
type InstanceSettings struct {
	RejectCall      bool   `json:"rejectCall"`
	MsgCall         string `json:"msgCall"`
	GroupsIgnore    bool   `json:"groupsIgnore"`
	AlwaysOnline    bool   `json:"alwaysOnline"`
	ReadMessages    bool   `json:"readMessages"`
	ReadStatus      bool   `json:"readStatus"`
	SyncFullHistory bool   `json:"syncFullHistory"`
}

func (c *Client) CreateInstance(ctx context.Context, req CreateInstanceRequest) (map[string]interface{}, error) {
	if req.Integration == "" {
		req.Integration = "WHATSAPP-BAILEYS"
	}
	req.Code = true
	return c.Post(ctx, "instance/create", req)
}

func (c *Client) ConnectInstance(ctx context.Context, instanceName string) (map[string]interface{}, error) {
	return c.Get(ctx, fmt.Sprintf("instance/connect/%s", instanceName))
}

func (c *Client) ConnectionState(ctx context.Context, instanceName string) (map[string]interface{}, error) {
	return c.Get(ctx, fmt.Sprintf("instance/connectionState/%s", instanceName))
}

func (c *Client) LogoutInstance(ctx context.Context, instanceName string) (map[string]interface{}, error) {
	return c.Delete(ctx, fmt.Sprintf("instance/logout/%s", instanceName))
}

func (c *Client) DeleteInstance(ctx context.Context, instanceName string) (map[string]interface{}, error) {
	return c.Delete(ctx, fmt.Sprintf("instance/delete/%s", instanceName))
}

func (c *Client) SendText(ctx context.Context, instanceName, number, text string) (map[string]interface{}, error) {
	payload := map[string]string{
		"number": number,
		"text":   text,
	}
	return c.Post(ctx, fmt.Sprintf("message/sendText/%s", instanceName), payload)
}

func (c *Client) SetSettings(ctx context.Context, instanceName string, settings InstanceSettings) (map[string]interface{}, error) {
	return c.Post(ctx, fmt.Sprintf("settings/set/%s", instanceName), settings)
}

func (c *Client) GetSettings(ctx context.Context, instanceName string) (map[string]interface{}, error) {
	return c.Get(ctx, fmt.Sprintf("settings/find/%s", instanceName))
}

func (c *Client) SetWebhook(ctx context.Context, instanceName string, webhook map[string]interface{}) (map[string]interface{}, error) {
	return c.Post(ctx, fmt.Sprintf("webhook/set/%s", instanceName), webhook)
}

func (c *Client) FindWebhook(ctx context.Context, instanceName string) (map[string]interface{}, error) {
	return c.Get(ctx, fmt.Sprintf("webhook/find/%s", instanceName))
}

func (c *Client) SetChatwoot(ctx context.Context, instanceName string, chatwoot map[string]interface{}) (map[string]interface{}, error) {
	return c.Post(ctx, fmt.Sprintf("chatwoot/set/%s", instanceName), chatwoot)
}

func (c *Client) FindChatwoot(ctx context.Context, instanceName string) (map[string]interface{}, error) {
	return c.Get(ctx, fmt.Sprintf("chatwoot/find/%s", instanceName))
}

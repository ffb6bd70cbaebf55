// Package unipile is the client for the Unipile messaging API.
package unipile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"chatwoot-unipile-bridge/backend/pkg/config"

	"github.com/hashicorp/go-retryablehttp"
)

// Client sends messages into Unipile chats.
type Client struct {
	client  *retryablehttp.Client
	baseURL string
	apiKey  string
}

func NewClient() *Client {
	cfg := config.Get()
	client := retryablehttp.NewClient()
	client.RetryMax = cfg.Outbound.Retries
	client.HTTPClient.Timeout = cfg.Outbound.Timeout
	client.Logger = nil
	return &Client{
		client:  client,
		baseURL: cfg.Unipile.BaseURL,
		apiKey:  cfg.Unipile.APIKey,
	}
}

// SendMessage posts text into the chat. Unipile expects the body as a
// multipart form with a single "text" field.
func (c *Client) SendMessage(ctx context.Context, chatID, text string) (map[string]any, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	if err := form.WriteField("text", text); err != nil {
		return nil, err
	}
	if err := form.Close(); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/chats/%s/messages", c.baseURL, url.PathEscape(chatID))
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, endpoint, body.Bytes())
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unipile send failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("unipile send failed: status %d: %s", resp.StatusCode, data)
	}

	var result map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil && err != io.EOF {
		return nil, fmt.Errorf("unipile response decode failed: %w", err)
	}
	if result == nil {
		result = map[string]any{}
	}
	return result, nil
}

// Healthy reports whether the client has enough configuration to be useful.
func (c *Client) Healthy() error {
	if c.baseURL == "" || c.apiKey == "" {
		return fmt.Errorf("unipile client not configured")
	}
	return nil
}

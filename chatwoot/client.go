// Package chatwoot is the client for the Chatwoot application API: contact
// lookup/creation, conversation management and message creation.
package chatwoot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"chatwoot-unipile-bridge/backend/pkg/config"

	"github.com/hashicorp/go-retryablehttp"
)

// Contact is a Chatwoot contact. Responses wrap contacts in several envelope
// shapes, so the client decodes loosely and extracts.
type Contact map[string]any

// Conversation is a Chatwoot conversation.
type Conversation map[string]any

type Client struct {
	client    *retryablehttp.Client
	baseURL   string
	accountID string
	inboxID   string
	apiToken  string
}

func NewClient() *Client {
	cfg := config.Get()
	client := retryablehttp.NewClient()
	client.RetryMax = cfg.Outbound.Retries
	client.HTTPClient.Timeout = cfg.Outbound.Timeout
	client.Logger = nil
	return &Client{
		client:    client,
		baseURL:   cfg.Chatwoot.BaseURL,
		accountID: cfg.Chatwoot.AccountID,
		inboxID:   cfg.Chatwoot.InboxID,
		apiToken:  cfg.Chatwoot.APIToken,
	}
}

func (c *Client) request(ctx context.Context, method, path string, payload any) (map[string]any, error) {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return nil, err
		}
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("api_access_token", c.apiToken)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chatwoot request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("chatwoot request failed: status %d: %s", resp.StatusCode, data)
	}

	var result map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil && err != io.EOF {
		return nil, fmt.Errorf("chatwoot response decode failed: %w", err)
	}
	return result, nil
}

// extractContact unwraps the various envelopes Chatwoot uses around contact
// objects: {payload:{contact:...}}, {payload:[...]}, {contact:...}, or the
// contact itself.
func extractContact(data map[string]any) Contact {
	if data == nil {
		return nil
	}
	switch payload := data["payload"].(type) {
	case map[string]any:
		if contact, ok := payload["contact"].(map[string]any); ok {
			return contact
		}
	case []any:
		if len(payload) > 0 {
			if first, ok := payload[0].(map[string]any); ok {
				return first
			}
			return nil
		}
		return nil
	}
	if contact, ok := data["contact"].(map[string]any); ok {
		return contact
	}
	return data
}

// FilterContactByEmail looks up a contact; nil when none exists.
func (c *Client) FilterContactByEmail(ctx context.Context, email string) (Contact, error) {
	payload := map[string]any{
		"payload": []map[string]any{{
			"attribute_key":   "email",
			"filter_operator": "equal_to",
			"values":          []string{email},
		}},
	}
	data, err := c.request(ctx, http.MethodPost,
		fmt.Sprintf("/api/v1/accounts/%s/contacts/filter", c.accountID), payload)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}
	if contacts, ok := data["payload"].([]any); ok {
		if len(contacts) == 0 {
			return nil, nil
		}
		first, _ := contacts[0].(map[string]any)
		return first, nil
	}
	return extractContact(data), nil
}

// CreateContact creates a contact bound to the configured inbox with the
// Unipile chat id stored as a custom attribute.
func (c *Client) CreateContact(ctx context.Context, name, email, chatID string) (Contact, error) {
	payload := map[string]any{
		"inbox_id":          c.inboxID,
		"name":              name,
		"email":             email,
		"custom_attributes": map[string]string{"chat_id": chatID},
	}
	data, err := c.request(ctx, http.MethodPost,
		fmt.Sprintf("/api/v1/accounts/%s/contacts", c.accountID), payload)
	if err != nil {
		return nil, err
	}
	contact := extractContact(data)
	if contact == nil {
		return nil, fmt.Errorf("chatwoot contact creation returned empty payload")
	}
	return contact, nil
}

// ContactConversations lists the conversations of a contact.
func (c *Client) ContactConversations(ctx context.Context, contactID string) ([]Conversation, error) {
	data, err := c.request(ctx, http.MethodGet,
		fmt.Sprintf("/api/v1/accounts/%s/contacts/%s/conversations", c.accountID, url.PathEscape(contactID)), nil)
	if err != nil {
		return nil, err
	}
	raw, _ := data["payload"].([]any)
	conversations := make([]Conversation, 0, len(raw))
	for _, item := range raw {
		if convo, ok := item.(map[string]any); ok {
			conversations = append(conversations, convo)
		}
	}
	return conversations, nil
}

// CreateConversation opens a conversation for the contact in the configured
// inbox.
func (c *Client) CreateConversation(ctx context.Context, contactID, sourceID string) (Conversation, error) {
	payload := map[string]any{
		"source_id":  sourceID,
		"inbox_id":   c.inboxID,
		"contact_id": contactID,
		"status":     "open",
	}
	data, err := c.request(ctx, http.MethodPost,
		fmt.Sprintf("/api/v1/accounts/%s/conversations", c.accountID), payload)
	if err != nil {
		return nil, err
	}
	return Conversation(data), nil
}

// CreateMessage appends a message to a conversation. messageType is
// "incoming" or "outgoing".
func (c *Client) CreateMessage(ctx context.Context, conversationID, messageType, content string) (map[string]any, error) {
	payload := map[string]any{
		"content":      content,
		"message_type": messageType,
	}
	return c.request(ctx, http.MethodPost,
		fmt.Sprintf("/api/v1/accounts/%s/conversations/%s/messages", c.accountID, url.PathEscape(conversationID)), payload)
}

// pickSourceID finds the source_id of the contact inbox matching the
// configured inbox, falling back to the first contact inbox.
func (c *Client) pickSourceID(contact Contact) string {
	raw, ok := contact["contact_inboxes"].([]any)
	if !ok {
		return ""
	}
	var fallback string
	for _, item := range raw {
		inbox, ok := item.(map[string]any)
		if !ok {
			continue
		}
		sourceID, _ := inbox["source_id"].(string)
		if fallback == "" {
			fallback = sourceID
		}
		if stringify(inbox["inbox_id"]) == c.inboxID {
			return sourceID
		}
	}
	return fallback
}

// pickConversation prefers a conversation in the configured inbox, falling
// back to the first one.
func (c *Client) pickConversation(conversations []Conversation) Conversation {
	for _, convo := range conversations {
		if stringify(convo["inbox_id"]) == c.inboxID {
			return convo
		}
	}
	if len(conversations) > 0 {
		return conversations[0]
	}
	return nil
}

// GetOrCreateContact returns the contact with the given email, creating it
// when absent.
func (c *Client) GetOrCreateContact(ctx context.Context, name, email, chatID string) (Contact, error) {
	contact, err := c.FilterContactByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if contact != nil {
		return contact, nil
	}
	if name == "" {
		name = email
	}
	return c.CreateContact(ctx, name, email, chatID)
}

// GetOrCreateConversation returns an existing conversation for the contact
// or opens a new one.
func (c *Client) GetOrCreateConversation(ctx context.Context, contact Contact) (Conversation, error) {
	contactID := stringify(contact["id"])
	conversations, err := c.ContactConversations(ctx, contactID)
	if err != nil {
		return nil, err
	}
	if convo := c.pickConversation(conversations); convo != nil {
		return convo, nil
	}
	sourceID := c.pickSourceID(contact)
	if sourceID == "" {
		return nil, fmt.Errorf("missing source_id for contact %s", contactID)
	}
	return c.CreateConversation(ctx, contactID, sourceID)
}

// ConversationID extracts the conversation id as a string.
func ConversationID(convo Conversation) string {
	return stringify(convo["id"])
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return jsonNumber(v)
	case json.Number:
		return v.String()
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

func jsonNumber(v float64) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	if err := enc.Encode(v); err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(bytes.TrimSpace(buf.Bytes()))
}

package normalize

import (
	"net/url"
	"testing"

	"chatwoot-unipile-bridge/backend/relay/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const unipileJSON = `{
	"event": "message_received",
	"chat_id": "chat-9",
	"message": "hello from linkedin",
	"message_id": "m-1",
	"provider_message_id": "pm-1",
	"is_sender": false,
	"attendees": [{"attendee_id": "att-1", "attendee_name": "Ada"}]
}`

func TestUnipilePlainJSON(t *testing.T) {
	out, err := Unipile([]byte(unipileJSON))
	require.NoError(t, err)
	require.NotNil(t, out.Event)

	ev := out.Event
	assert.Equal(t, models.SourceUnipile, ev.Source)
	assert.Equal(t, "chat-9", ev.ChatID)
	assert.Equal(t, "hello from linkedin", ev.Text)
	assert.False(t, ev.IsSender)
	assert.Equal(t, "att-1", ev.AttendeeID)
	assert.Equal(t, "Ada", ev.AttendeeName)
	assert.Equal(t, "m-1", ev.MessageID)
	assert.Equal(t, "pm-1", ev.ProviderMessageID)
	assert.Equal(t, "json", ev.ParseMode)
}

func TestUnipileDataEnvelope(t *testing.T) {
	body := `{"event":"message_received","data":{"chat_id":"chat-9","message":"nested","is_sender":true}}`
	out, err := Unipile([]byte(body))
	require.NoError(t, err)
	require.NotNil(t, out.Event)
	assert.Equal(t, "chat-9", out.Event.ChatID)
	assert.Equal(t, "nested", out.Event.Text)
	assert.True(t, out.Event.IsSender)
}

func TestUnipileFormEncodedBody(t *testing.T) {
	form := url.QueryEscape(unipileJSON) + "="
	out, err := Unipile([]byte(form))
	require.NoError(t, err)
	require.NotNil(t, out.Event)
	assert.Equal(t, "chat-9", out.Event.ChatID)
	assert.Equal(t, "hello from linkedin", out.Event.Text)
}

func TestUnipileQuotedStringBody(t *testing.T) {
	body := `"{\"event\":\"message_received\",\"chat_id\":\"chat-9\",\"message\":\"quoted\"}"`
	out, err := Unipile([]byte(body))
	require.NoError(t, err)
	require.NotNil(t, out.Event)
	assert.Equal(t, "quoted", out.Event.Text)
}

func TestUnipileRepairsBrokenProviderChatID(t *testing.T) {
	body := `{"event":"message_received","chat_id":"chat-9","provider_chat_id":"abc":"def","message":"fixed"}`
	out, err := Unipile([]byte(body))
	require.NoError(t, err)
	require.NotNil(t, out.Event)
	assert.Equal(t, "fixed", out.Event.Text)
	assert.Equal(t, "json_fixed", out.Event.ParseMode)
}

func TestUnipileRegexFallback(t *testing.T) {
	// Deliberately unparseable as JSON but still carrying the fields.
	body := `garbage "event":"message_received" noise "chat_id":"chat-9" "message":"rescued" "is_sender":true tail`
	out, err := Unipile([]byte(body))
	require.NoError(t, err)
	require.NotNil(t, out.Event)
	assert.Equal(t, "chat-9", out.Event.ChatID)
	assert.Equal(t, "rescued", out.Event.Text)
	assert.True(t, out.Event.IsSender)
	assert.Equal(t, "regex_fallback", out.Event.ParseMode)
}

func TestUnipileIgnoresOtherEvents(t *testing.T) {
	body := `{"event":"message_read","chat_id":"chat-9","message":"hi"}`
	out, err := Unipile([]byte(body))
	require.NoError(t, err)
	assert.True(t, out.Ignored)
	assert.Equal(t, "event", out.Reason)
}

func TestUnipileIsSenderDefaultsFalse(t *testing.T) {
	body := `{"event":"message_received","chat_id":"chat-9","message":"hi"}`
	out, err := Unipile([]byte(body))
	require.NoError(t, err)
	require.NotNil(t, out.Event)
	assert.False(t, out.Event.IsSender)
}

func TestUnipileRejectsUnparseableBody(t *testing.T) {
	_, err := Unipile([]byte("   "))
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestUnipileRejectsMissingChatID(t *testing.T) {
	_, err := Unipile([]byte(`{"event":"message_received","message":"hi"}`))
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

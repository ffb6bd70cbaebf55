package normalize

import (
	"fmt"
	"testing"

	"chatwoot-unipile-bridge/backend/relay/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatwootBody(event, messageType, content, chatID string) []byte {
	return []byte(fmt.Sprintf(`{
		"event": %q,
		"message_type": %q,
		"content": %q,
		"id": 42,
		"conversation": {"meta": {"sender": {"custom_attributes": {"chat_id": %q}}}}
	}`, event, messageType, content, chatID))
}

func TestChatwootOutgoingMessage(t *testing.T) {
	out, err := Chatwoot(chatwootBody("message_created", "outgoing", "Hello there", "chat-1"))
	require.NoError(t, err)
	require.NotNil(t, out.Event)

	assert.Equal(t, models.SourceChatwoot, out.Event.Source)
	assert.Equal(t, "chat-1", out.Event.ChatID)
	assert.Equal(t, "Hello there", out.Event.Text)
	assert.True(t, out.Event.IsSender)
	assert.Equal(t, "42", out.Event.MessageID)
}

func TestChatwootWhitespaceNormalization(t *testing.T) {
	a, err := Chatwoot(chatwootBody("message_created", "outgoing", "Hello   there\n", "chat-1"))
	require.NoError(t, err)
	b, err := Chatwoot(chatwootBody("message_created", "outgoing", "  Hello there", "chat-1"))
	require.NoError(t, err)

	assert.Equal(t, a.Event.Text, b.Event.Text)
}

func TestChatwootIgnoresNonActionableEvents(t *testing.T) {
	cases := []struct {
		name        string
		event       string
		messageType string
	}{
		{"conversation event", "conversation_created", "outgoing"},
		{"incoming message", "message_created", "incoming"},
		{"template message", "message_created", "template"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := Chatwoot(chatwootBody(tc.event, tc.messageType, "hi", "chat-1"))
			require.NoError(t, err)
			assert.True(t, out.Ignored)
			assert.Equal(t, "event", out.Reason)
		})
	}
}

func TestChatwootIgnoresMarkedContent(t *testing.T) {
	out, err := Chatwoot(chatwootBody("message_created", "outgoing", Marker+"own echo", "chat-1"))
	require.NoError(t, err)
	assert.True(t, out.Ignored)
	assert.Equal(t, "marker", out.Reason)
}

func TestChatwootIgnoresLegacyMarkedContent(t *testing.T) {
	out, err := Chatwoot(chatwootBody("message_created", "outgoing", legacyMarker+"own echo", "chat-1"))
	require.NoError(t, err)
	assert.True(t, out.Ignored)
}

func TestChatwootRejectsMissingChatID(t *testing.T) {
	body := []byte(`{"event":"message_created","message_type":"outgoing","content":"hi","conversation":{"meta":{"sender":{"custom_attributes":{}}}}}`)
	_, err := Chatwoot(body)
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestChatwootRejectsEmptyContent(t *testing.T) {
	_, err := Chatwoot(chatwootBody("message_created", "outgoing", "   ", "chat-1"))
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestChatwootRejectsMalformedJSON(t *testing.T) {
	_, err := Chatwoot([]byte(`{"event":`))
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

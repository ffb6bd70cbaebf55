package service

import (
	"context"
	"testing"

	"chatwoot-unipile-bridge/backend/chatwoot"
	"chatwoot-unipile-bridge/backend/pkg/logger"
	"chatwoot-unipile-bridge/backend/relay/models"
	"chatwoot-unipile-bridge/backend/relay/normalize"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChatwoot struct {
	messages []struct {
		conversationID string
		messageType    string
		content        string
	}
	contacts []string
}

func (f *fakeChatwoot) GetOrCreateContact(ctx context.Context, name, email, chatID string) (chatwoot.Contact, error) {
	f.contacts = append(f.contacts, email)
	return chatwoot.Contact{"id": float64(5)}, nil
}

func (f *fakeChatwoot) GetOrCreateConversation(ctx context.Context, contact chatwoot.Contact) (chatwoot.Conversation, error) {
	return chatwoot.Conversation{"id": float64(11)}, nil
}

func (f *fakeChatwoot) CreateMessage(ctx context.Context, conversationID, messageType, content string) (map[string]any, error) {
	f.messages = append(f.messages, struct {
		conversationID string
		messageType    string
		content        string
	}{conversationID, messageType, content})
	return map[string]any{"id": "cw-1"}, nil
}

type fakeUnipile struct {
	sent []struct{ chatID, text string }
}

func (f *fakeUnipile) SendMessage(ctx context.Context, chatID, text string) (map[string]any, error) {
	f.sent = append(f.sent, struct{ chatID, text string }{chatID, text})
	return map[string]any{"id": "uni-1"}, nil
}

func newTestForwarder() (*Forwarder, *fakeChatwoot, *fakeUnipile) {
	cw := &fakeChatwoot{}
	uni := &fakeUnipile{}
	log := logger.New(logger.DefaultConfig())
	return NewForwarder(cw, uni, log), cw, uni
}

func TestForwarderChatwootToUnipile(t *testing.T) {
	f, cw, uni := newTestForwarder()

	resp, err := f.Forward(context.Background(), &models.Event{
		Source: models.SourceChatwoot,
		ChatID: "chat-1",
		Body:   "operator reply",
	})
	require.NoError(t, err)
	assert.Equal(t, "uni-1", resp["id"])

	require.Len(t, uni.sent, 1)
	assert.Equal(t, "chat-1", uni.sent[0].chatID)
	assert.Equal(t, "operator reply", uni.sent[0].text)
	assert.Empty(t, cw.messages)
}

func TestForwarderIncomingUnipileToChatwoot(t *testing.T) {
	f, cw, _ := newTestForwarder()

	_, err := f.Forward(context.Background(), &models.Event{
		Source:       models.SourceUnipile,
		ChatID:       "chat-1",
		Body:         "prospect message",
		AttendeeID:   "att-7",
		AttendeeName: "Ada",
	})
	require.NoError(t, err)

	require.Len(t, cw.messages, 1)
	assert.Equal(t, "11", cw.messages[0].conversationID)
	assert.Equal(t, "incoming", cw.messages[0].messageType)
	assert.Equal(t, "prospect message", cw.messages[0].content)
	require.Len(t, cw.contacts, 1)
	assert.Equal(t, "att-7@gmail.com", cw.contacts[0])
}

func TestForwarderSenderMessageCarriesMarker(t *testing.T) {
	f, cw, _ := newTestForwarder()

	_, err := f.Forward(context.Background(), &models.Event{
		Source:   models.SourceUnipile,
		ChatID:   "chat-1",
		Body:     "typed in provider ui",
		IsSender: true,
	})
	require.NoError(t, err)

	require.Len(t, cw.messages, 1)
	assert.Equal(t, "outgoing", cw.messages[0].messageType)
	assert.Equal(t, normalize.Marker+"typed in provider ui", cw.messages[0].content)
}

func TestForwarderFallsBackToChatIDForContact(t *testing.T) {
	f, cw, _ := newTestForwarder()

	_, err := f.Forward(context.Background(), &models.Event{
		Source: models.SourceUnipile,
		ChatID: "chat-1",
		Body:   "anonymous",
	})
	require.NoError(t, err)
	require.Len(t, cw.contacts, 1)
	assert.Equal(t, "chat-1@gmail.com", cw.contacts[0])
}

func TestForwarderUnknownSource(t *testing.T) {
	f, _, _ := newTestForwarder()
	_, err := f.Forward(context.Background(), &models.Event{Source: "smoke"})
	assert.Error(t, err)
}

package normalize

import (
	"encoding/json"
	"fmt"

	"chatwoot-unipile-bridge/backend/relay/models"
)

// chatwootPayload mirrors the fields of a Chatwoot message_created webhook
// that the relay cares about.
type chatwootPayload struct {
	Event        string      `json:"event"`
	MessageType  string      `json:"message_type"`
	Content      string      `json:"content"`
	ID           json.Number `json:"id"`
	Conversation struct {
		Meta struct {
			Sender struct {
				CustomAttributes map[string]any `json:"custom_attributes"`
			} `json:"sender"`
		} `json:"meta"`
	} `json:"conversation"`
}

// Chatwoot normalizes a Chatwoot webhook body. Only outgoing message_created
// events are actionable; marker-bearing content is the relay's own echo and
// is ignored rather than re-forwarded.
func Chatwoot(body []byte) (Outcome, error) {
	var payload chatwootPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return Outcome{}, fmt.Errorf("%w: invalid json: %v", ErrInvalidPayload, err)
	}

	if payload.Event != "message_created" || payload.MessageType != "outgoing" {
		return Outcome{Ignored: true, Reason: "event"}, nil
	}

	if HasMarker(payload.Content) {
		return Outcome{Ignored: true, Reason: "marker"}, nil
	}

	chatID, _ := payload.Conversation.Meta.Sender.CustomAttributes["chat_id"].(string)
	if chatID == "" {
		return Outcome{}, fmt.Errorf("%w: missing chat_id", ErrInvalidPayload)
	}

	text := Text(payload.Content)
	if text == "" {
		return Outcome{}, fmt.Errorf("%w: empty content", ErrInvalidPayload)
	}

	return Outcome{Event: &models.Event{
		Source:    models.SourceChatwoot,
		ChatID:    chatID,
		Text:      text,
		Body:      StripMarker(payload.Content),
		IsSender:  true,
		MessageID: payload.ID.String(),
		ParseMode: "json",
	}}, nil
}

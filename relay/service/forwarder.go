package service

import (
	"context"
	"fmt"

	"chatwoot-unipile-bridge/backend/chatwoot"
	"chatwoot-unipile-bridge/backend/pkg/logger"
	"chatwoot-unipile-bridge/backend/pkg/resilience"
	"chatwoot-unipile-bridge/backend/relay/models"
	"chatwoot-unipile-bridge/backend/relay/normalize"
)

// ChatwootAPI is the subset of the Chatwoot client the forwarder needs.
type ChatwootAPI interface {
	GetOrCreateContact(ctx context.Context, name, email, chatID string) (chatwoot.Contact, error)
	GetOrCreateConversation(ctx context.Context, contact chatwoot.Contact) (chatwoot.Conversation, error)
	CreateMessage(ctx context.Context, conversationID, messageType, content string) (map[string]any, error)
}

// UnipileAPI is the subset of the Unipile client the forwarder needs.
type UnipileAPI interface {
	SendMessage(ctx context.Context, chatID, text string) (map[string]any, error)
}

// Forwarder delivers an admitted event to the opposite platform. Calls to
// each provider run through a dedicated circuit breaker so a flapping
// upstream does not stall webhook handling for the other direction.
type Forwarder struct {
	chatwoot   ChatwootAPI
	unipile    UnipileAPI
	cwBreaker  *resilience.CircuitBreaker
	uniBreaker *resilience.CircuitBreaker
	log        *logger.Logger
}

func NewForwarder(cw ChatwootAPI, uni UnipileAPI, log *logger.Logger) *Forwarder {
	return &Forwarder{
		chatwoot:   cw,
		unipile:    uni,
		cwBreaker:  resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("chatwoot"), log),
		uniBreaker: resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("unipile"), log),
		log:        log,
	}
}

// Forward routes the event to the platform it did not originate from.
// Agent replies picked up from the Unipile side are re-posted to Chatwoot as
// outgoing messages carrying the invisible marker, so the resulting Chatwoot
// webhook is recognized as our own echo and dropped.
func (f *Forwarder) Forward(ctx context.Context, ev *models.Event) (map[string]any, error) {
	switch ev.Source {
	case models.SourceChatwoot:
		return f.toUnipile(ctx, ev)
	case models.SourceUnipile:
		if ev.IsSender {
			return f.toChatwoot(ctx, ev, "outgoing", normalize.Marker+ev.Body)
		}
		return f.toChatwoot(ctx, ev, "incoming", ev.Body)
	default:
		return nil, fmt.Errorf("no outbound route for source %q", ev.Source)
	}
}

func (f *Forwarder) toUnipile(ctx context.Context, ev *models.Event) (map[string]any, error) {
	var resp map[string]any
	err := f.uniBreaker.Execute(func() error {
		var sendErr error
		resp, sendErr = f.unipile.SendMessage(ctx, ev.ChatID, ev.Body)
		return sendErr
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (f *Forwarder) toChatwoot(ctx context.Context, ev *models.Event, messageType, content string) (map[string]any, error) {
	// Contacts are keyed by a synthetic email derived from the provider
	// attendee so repeated messages land in the same conversation.
	attendeeID := ev.AttendeeID
	if attendeeID == "" {
		attendeeID = ev.ChatID
	}
	name := ev.AttendeeName
	if name == "" {
		name = attendeeID
	}
	email := attendeeID + "@gmail.com"

	var resp map[string]any
	err := f.cwBreaker.Execute(func() error {
		contact, err := f.chatwoot.GetOrCreateContact(ctx, name, email, ev.ChatID)
		if err != nil {
			return fmt.Errorf("resolve contact: %w", err)
		}
		convo, err := f.chatwoot.GetOrCreateConversation(ctx, contact)
		if err != nil {
			return fmt.Errorf("resolve conversation: %w", err)
		}
		convoID := chatwoot.ConversationID(convo)
		if convoID == "" {
			return fmt.Errorf("conversation has no id")
		}
		resp, err = f.chatwoot.CreateMessage(ctx, convoID, messageType, content)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

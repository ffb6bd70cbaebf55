package models

// Source identifies the platform that delivered a webhook.
type Source string

const (
	SourceChatwoot Source = "chatwoot"
	SourceUnipile  Source = "unipile"
)

// Decision is the terminal outcome of processing one webhook delivery.
// Every branch of the pipeline produces exactly one decision and exactly
// one event-log row.
type Decision string

const (
	// DecisionForward means the message was admitted and handed to the
	// outbound client for the opposite platform.
	DecisionForward Decision = "forward"
	// DecisionSuppressedDuplicate means an identical message was already
	// admitted within the dedupe window.
	DecisionSuppressedDuplicate Decision = "suppressed_duplicate"
	// DecisionSuppressedEcho means the provider echoed back a message the
	// relay itself sent into it.
	DecisionSuppressedEcho Decision = "suppressed_echo"
	// DecisionIgnored means the event type is not actionable (non-outgoing
	// Chatwoot message, non message_received Unipile event, marker content).
	DecisionIgnored Decision = "ignored"
	// DecisionRejectedInvalid means normalization failed.
	DecisionRejectedInvalid Decision = "rejected_invalid"
	// DecisionRejectedUnauthorized means the webhook secret did not match.
	DecisionRejectedUnauthorized Decision = "rejected_unauthorized"
	// DecisionForwardFailed means the outbound send errored.
	DecisionForwardFailed Decision = "forward_failed"
	// DecisionError covers storage and other unexpected failures.
	DecisionError Decision = "error"
)

// Event is the canonical, provider-agnostic form of a single chat message
// occurrence. It is built per request and consumed immediately; it is never
// persisted as-is.
type Event struct {
	Source Source `json:"source"`
	ChatID string `json:"chat_id"`
	// Text is the normalized body: markers stripped, trimmed, internal
	// whitespace collapsed. Fingerprints are computed over Text.
	Text string `json:"text"`
	// Body is the verbatim content with markers stripped. Outbound sends
	// deliver Body so real whitespace survives the trip.
	Body string `json:"-"`
	// IsSender is true when the message originated from the monitored
	// account, false when it came from the remote party.
	IsSender bool `json:"is_sender"`

	// Upstream identifiers, carried for log correlation only.
	MessageID         string `json:"message_id,omitempty"`
	ProviderMessageID string `json:"provider_message_id,omitempty"`

	// Attendee details from Unipile payloads, used when a Chatwoot contact
	// has to be created.
	AttendeeID   string `json:"attendee_id,omitempty"`
	AttendeeName string `json:"attendee_name,omitempty"`

	// ParseMode records how the raw payload was decoded (json, json_fixed,
	// regex_fallback).
	ParseMode string `json:"parse_mode,omitempty"`
}

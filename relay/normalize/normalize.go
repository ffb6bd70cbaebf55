// Package normalize converts each provider's webhook payload shape into the
// canonical Event consumed by the decision engine.
package normalize

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"chatwoot-unipile-bridge/backend/relay/models"
)

// Marker is an invisible sequence prepended to messages the relay writes into
// Chatwoot, so its own webhook echoes can be told apart from operator input.
const Marker = "⁣⁣⁣"

// legacyMarker was used by earlier deployments; still recognized on read.
const legacyMarker = "​LI_ECHO​"

var markers = []string{legacyMarker, Marker}

// ErrInvalidPayload marks payloads that are malformed or miss required
// fields. Handlers map it to HTTP 400.
var ErrInvalidPayload = errors.New("invalid payload")

var spaceRE = regexp.MustCompile(`\s+`)

// Outcome is the result of normalizing one raw payload. Exactly one of Event
// or Ignored is meaningful; errors are returned separately.
type Outcome struct {
	Event *models.Event
	// Ignored is set for recognized but non-actionable payloads.
	Ignored bool
	// Reason names why the payload was ignored ("event", "marker").
	Reason string
}

// For dispatches to the normalizer registered for the source.
func For(source models.Source, body []byte) (Outcome, error) {
	switch source {
	case models.SourceChatwoot:
		return Chatwoot(body)
	case models.SourceUnipile:
		return Unipile(body)
	default:
		return Outcome{}, fmt.Errorf("%w: unknown source %q", ErrInvalidPayload, source)
	}
}

// StripMarker removes all known echo markers from text.
func StripMarker(text string) string {
	if text == "" {
		return ""
	}
	for _, m := range markers {
		text = strings.ReplaceAll(text, m, "")
	}
	return text
}

// HasMarker reports whether text carries any known echo marker.
func HasMarker(text string) bool {
	for _, m := range markers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}

// Text normalizes message content for fingerprinting: markers stripped,
// leading/trailing whitespace trimmed, internal runs collapsed to single
// spaces. Two payloads differing only in whitespace normalize identically.
func Text(text string) string {
	if text == "" {
		return ""
	}
	cleaned := StripMarker(text)
	return spaceRE.ReplaceAllString(strings.TrimSpace(cleaned), " ")
}

// Package dedupe defines the fingerprint derivation and the cache contract
// that enforces at-most-once forwarding within a time window.
package dedupe

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"chatwoot-unipile-bridge/backend/relay/models"
)

// Fingerprint derives the stable dedupe key for an event. The digest covers
// (source, chat_id, normalized_text, is_sender); timestamps and provider
// message IDs are deliberately excluded so redelivered webhooks for the same
// logical message collapse to one key. Fields are length-prefixed before
// hashing so adjacent fields cannot collide by concatenation.
func Fingerprint(ev *models.Event) string {
	h := sha256.New()
	writeField(h, string(ev.Source))
	writeField(h, ev.ChatID)
	writeField(h, ev.Text)
	if ev.IsSender {
		writeField(h, "1")
	} else {
		writeField(h, "0")
	}
	return hex.EncodeToString(h.Sum(nil))
}

// EchoKey derives the source-free key used for cross-platform echo
// suppression: it is admitted when the relay forwards a message into a
// platform and checked when that platform later reports a message authored
// by the monitored account. The chat id and text are digested so the key
// stays at a fixed length no matter how long the provider's chat ids are.
func EchoKey(chatID, normalizedText string) string {
	h := sha256.New()
	writeField(h, chatID)
	writeField(h, normalizedText)
	return "echo:" + hex.EncodeToString(h.Sum(nil))
}

func writeField(h interface{ Write([]byte) (int, error) }, field string) {
	fmt.Fprintf(h, "%d:%s", len(field), field)
}

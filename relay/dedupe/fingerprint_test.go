package dedupe

import (
	"strings"
	"testing"

	"chatwoot-unipile-bridge/backend/relay/models"

	"github.com/stretchr/testify/assert"
)

func event(source models.Source, chatID, text string, isSender bool) *models.Event {
	return &models.Event{Source: source, ChatID: chatID, Text: text, IsSender: isSender}
}

func TestFingerprintStable(t *testing.T) {
	a := Fingerprint(event(models.SourceChatwoot, "chat-1", "hello", true))
	b := Fingerprint(event(models.SourceChatwoot, "chat-1", "hello", true))
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestFingerprintIgnoresMessageIDs(t *testing.T) {
	a := event(models.SourceUnipile, "chat-1", "hello", false)
	a.MessageID = "m-1"
	a.ProviderMessageID = "pm-1"
	b := event(models.SourceUnipile, "chat-1", "hello", false)
	b.MessageID = "m-2"
	b.ProviderMessageID = "pm-2"

	assert.Equal(t, Fingerprint(a), Fingerprint(b))
}

func TestFingerprintDistinguishesFields(t *testing.T) {
	base := Fingerprint(event(models.SourceChatwoot, "chat-1", "hello", true))

	assert.NotEqual(t, base, Fingerprint(event(models.SourceUnipile, "chat-1", "hello", true)))
	assert.NotEqual(t, base, Fingerprint(event(models.SourceChatwoot, "chat-2", "hello", true)))
	assert.NotEqual(t, base, Fingerprint(event(models.SourceChatwoot, "chat-1", "goodbye", true)))
	assert.NotEqual(t, base, Fingerprint(event(models.SourceChatwoot, "chat-1", "hello", false)))
}

func TestFingerprintFieldBoundaries(t *testing.T) {
	// "ab"+"c" and "a"+"bc" must not hash identically.
	a := Fingerprint(event(models.SourceChatwoot, "ab", "c", false))
	b := Fingerprint(event(models.SourceChatwoot, "a", "bc", false))
	assert.NotEqual(t, a, b)
}

func TestEchoKeyIsSourceFree(t *testing.T) {
	key := EchoKey("chat-1", "hello")
	assert.True(t, strings.HasPrefix(key, "echo:"))
	assert.Equal(t, key, EchoKey("chat-1", "hello"))
	assert.NotEqual(t, key, EchoKey("chat-2", "hello"))
	assert.NotEqual(t, key, EchoKey("chat-1", "goodbye"))
}

func TestEchoKeyFixedLength(t *testing.T) {
	short := EchoKey("c", "hi")
	long := EchoKey(strings.Repeat("x", 512), strings.Repeat("y", 4096))
	assert.Equal(t, len(short), len(long))
	// Must always fit the dedupe_key column.
	assert.LessOrEqual(t, len(long), 128)
}

func TestEchoKeyFieldBoundaries(t *testing.T) {
	assert.NotEqual(t, EchoKey("ab", "c"), EchoKey("a", "bc"))
}

func TestEchoKeyDiffersFromFingerprint(t *testing.T) {
	ev := event(models.SourceChatwoot, "chat-1", "hello", true)
	assert.NotEqual(t, Fingerprint(ev), EchoKey(ev.ChatID, ev.Text))
}

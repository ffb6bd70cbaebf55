package normalize

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"chatwoot-unipile-bridge/backend/relay/models"
)

// Unipile delivers the same logical payload in several wire shapes: a plain
// JSON object, a JSON document wrapped in a quoted string, or the whole
// document stuffed into a form-urlencoded key or value. Some deliveries also
// carry broken JSON the provider is known to emit. The parser tries each
// candidate in order and falls back to regex field extraction.

var (
	wrapHeadRE    = regexp.MustCompile(`^\s*\{\s*"\{`)
	wrapTailRE    = regexp.MustCompile(`\}"\s*\}\s*$`)
	brokenChatRE  = regexp.MustCompile(`"provider_chat_id"\s*:\s*"([^"]+)"\s*:\s*"([^"]*)"\s*,`)
	brokenOccupRE = regexp.MustCompile(`"occupation"\s*:\s*"([^"]*?)"\s*:\s*""\s*,\s*"([^"]*?)"\s*,`)
)

type unipileFields struct {
	chatID            string
	message           string
	isSender          bool
	attendeeID        string
	attendeeName      string
	messageID         string
	providerMessageID string
	event             string
	parseMode         string
}

// Unipile normalizes a Unipile webhook body into the canonical Event. Events
// other than message_received are recognized but not actionable. A missing
// is_sender defaults to false (incoming).
func Unipile(body []byte) (Outcome, error) {
	fields, ok := parseUnipile(body)
	if !ok {
		return Outcome{}, fmt.Errorf("%w: unparseable body", ErrInvalidPayload)
	}

	if fields.event != "message_received" {
		return Outcome{Ignored: true, Reason: "event"}, nil
	}

	if fields.chatID == "" {
		return Outcome{}, fmt.Errorf("%w: missing chat_id", ErrInvalidPayload)
	}

	text := Text(fields.message)
	if text == "" {
		return Outcome{}, fmt.Errorf("%w: empty message", ErrInvalidPayload)
	}

	return Outcome{Event: &models.Event{
		Source:            models.SourceUnipile,
		ChatID:            fields.chatID,
		Text:              text,
		Body:              StripMarker(fields.message),
		IsSender:          fields.isSender,
		MessageID:         fields.messageID,
		ProviderMessageID: fields.providerMessageID,
		AttendeeID:        fields.attendeeID,
		AttendeeName:      fields.attendeeName,
		ParseMode:         fields.parseMode,
	}}, nil
}

func parseUnipile(body []byte) (unipileFields, bool) {
	raw := strings.TrimSpace(string(body))
	if raw == "" {
		return unipileFields{}, false
	}

	candidates := []string{raw}
	for _, pair := range strings.Split(raw, "&") {
		key, value, _ := strings.Cut(pair, "=")
		if k, err := url.QueryUnescape(key); err == nil {
			if k = strings.TrimSpace(k); strings.HasPrefix(k, "{") {
				candidates = append(candidates, k)
			}
		}
		if v, err := url.QueryUnescape(value); err == nil {
			if v = strings.TrimSpace(v); strings.HasPrefix(v, "{") {
				candidates = append(candidates, v)
			}
		}
	}

	seen := make(map[string]bool, len(candidates))
	for _, candidate := range candidates {
		if seen[candidate] {
			continue
		}
		seen[candidate] = true

		unwrapped := unwrapBodyString(candidate)
		parseMode := "json"
		parsed := safeJSONParse(unwrapped)
		if parsed == nil {
			parsed = safeJSONParse(fixKnownBreaks(unwrapped))
			parseMode = "json_fixed"
		}
		if parsed == nil {
			continue
		}

		payload := parsed
		if data, ok := parsed["data"].(map[string]any); ok {
			payload = data
		}
		return extractFields(payload, parsed, parseMode), true
	}

	return fallbackExtract(raw)
}

// unwrapBodyString peels one level of string quoting off a JSON document that
// was delivered as a JSON-encoded string.
func unwrapBodyString(raw string) string {
	out := strings.TrimSpace(raw)
	if strings.HasPrefix(out, `"`) && strings.HasSuffix(out, `"`) && len(out) >= 2 {
		out = out[1 : len(out)-1]
	}
	out = wrapHeadRE.ReplaceAllString(out, "{")
	out = wrapTailRE.ReplaceAllString(out, "}")
	out = strings.ReplaceAll(out, `\"`, `"`)
	return strings.TrimSpace(out)
}

// fixKnownBreaks repairs JSON corruption the provider is known to produce:
// stray `":"` insertions inside provider_chat_id and occupation values.
func fixKnownBreaks(raw string) string {
	s := brokenChatRE.ReplaceAllString(raw, `"provider_chat_id":"${1}${2}",`)
	s = brokenOccupRE.ReplaceAllString(s, `"occupation":"${1}${2}",`)
	return s
}

func safeJSONParse(raw string) map[string]any {
	var parsed map[string]any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil
	}
	return parsed
}

func extractFields(payload, parsed map[string]any, parseMode string) unipileFields {
	fields := unipileFields{parseMode: parseMode}

	fields.chatID, _ = payload["chat_id"].(string)
	if msg, ok := payload["message"].(string); ok {
		fields.message = unescapeMessage(msg)
	}
	if v, ok := coerceBool(payload["is_sender"]); ok {
		fields.isSender = v
	}
	fields.messageID, _ = payload["message_id"].(string)
	fields.providerMessageID, _ = payload["provider_message_id"].(string)
	fields.event, _ = parsed["event"].(string)

	if attendees, ok := payload["attendees"].([]any); ok && len(attendees) > 0 {
		if attendee, ok := attendees[0].(map[string]any); ok {
			fields.attendeeName, _ = attendee["attendee_name"].(string)
			fields.attendeeID, _ = attendee["attendee_id"].(string)
		}
	}

	return fields
}

func fallbackExtract(raw string) (unipileFields, bool) {
	fields := unipileFields{parseMode: "regex_fallback"}
	fields.chatID = regexPick(raw, "chat_id")
	fields.message = unescapeMessage(regexPick(raw, "message"))
	if v, ok := regexPickBool(raw, "is_sender"); ok {
		fields.isSender = v
	}
	fields.attendeeName = regexPick(raw, "attendee_name")
	fields.attendeeID = regexPick(raw, "attendee_id")
	fields.messageID = regexPick(raw, "message_id")
	fields.providerMessageID = regexPick(raw, "provider_message_id")
	fields.event = regexPick(raw, "event")

	if fields.chatID == "" && fields.message == "" && fields.event == "" {
		return unipileFields{}, false
	}
	return fields, true
}

func regexPick(raw, key string) string {
	re, err := regexp.Compile(`(?i)"` + regexp.QuoteMeta(key) + `"\s*:\s*"([^"]*)"`)
	if err != nil {
		return ""
	}
	match := re.FindStringSubmatch(raw)
	if match == nil {
		return ""
	}
	return match[1]
}

func regexPickBool(raw, key string) (bool, bool) {
	re, err := regexp.Compile(`(?i)"` + regexp.QuoteMeta(key) + `"\s*:\s*(true|false|1|0)`)
	if err != nil {
		return false, false
	}
	match := re.FindStringSubmatch(raw)
	if match == nil {
		return false, false
	}
	v := strings.ToLower(match[1])
	return v == "true" || v == "1", true
}

func unescapeMessage(value string) string {
	value = strings.ReplaceAll(value, `\n`, "\n")
	return strings.ReplaceAll(value, `\"`, `"`)
}

func coerceBool(value any) (bool, bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case float64:
		return v != 0, true
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "yes":
			return true, true
		case "false", "0", "no":
			return false, true
		}
	}
	return false, false
}

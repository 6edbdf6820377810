package scenario

import (
	"bytes"
	"encoding/json"
	"path"
	"regexp"
	"strings"
	"time"
)

// roleByRawType maps the raw message-type vocabulary onto the three
// canonical roles.
var roleByRawType = map[string]string{
	"subscriber": "customer",
	"customer":   "customer",
	"user":       "customer",
	"agent":      "agent",
	"system":     "system",
	"template":   "system",
	"escalation": "system",
}

// isSystemEvent reports whether a message type marks a system event that is
// allowed to carry empty content (template insertions and escalations).
func isSystemEvent(messageType string) bool {
	return messageType == "template" || messageType == "escalation"
}

// normalizeMessage coerces one raw conversation entry into a Message. It
// returns nil when the entry has no resolvable role, or when its content is
// blank and it is not a system event; callers drop nil results.
func normalizeMessage(item any) *Message {
	obj, ok := item.(map[string]any)
	if !ok {
		return nil
	}

	rawType := strings.ToLower(firstString(obj, "message_type", "messageType", "type"))
	role := roleByRawType[strings.ToLower(firstString(obj, "role"))]
	if role == "" {
		role = roleByRawType[rawType]
	}
	if role == "" {
		return nil
	}

	messageType := rawType
	if messageType == "" {
		messageType = role
	}

	content := strings.TrimSpace(firstString(obj, "content", "message_text", "text"))
	if content == "" && !isSystemEvent(messageType) {
		return nil
	}

	return &Message{
		Role:        role,
		Content:     content,
		MessageType: messageType,
		Media:       normalizeMedia(firstValue(obj, "media", "message_media")),
		DateTime:    formatDateTime(firstString(obj, "dateTime", "date_time", "timestamp")),
		ID:          firstString(obj, "id", "message_id"),
	}
}

var mediaTypeByExt = map[string]string{
	".jpg": "image", ".jpeg": "image", ".png": "image", ".gif": "image", ".webp": "image",
	".mp4": "video", ".mov": "video", ".webm": "video",
	".mp3": "audio", ".wav": "audio", ".ogg": "audio",
}

func normalizeMedia(value any) []Media {
	var items []any
	switch v := value.(type) {
	case nil:
		return nil
	case []any:
		items = v
	default:
		items = []any{value}
	}

	var out []Media
	for _, item := range items {
		switch m := item.(type) {
		case string:
			url := strings.TrimSpace(m)
			if url == "" {
				continue
			}
			out = append(out, Media{URL: url, Type: inferMediaType(url, "")})
		case map[string]any:
			url := firstString(m, "url", "src", "href")
			if url == "" {
				continue
			}
			explicit := firstString(m, "type", "mime", "mimeType")
			out = append(out, Media{URL: url, Type: inferMediaType(url, explicit)})
		}
	}
	return out
}

// inferMediaType prefers an explicit MIME-like field (the part before any
// slash) and otherwise falls back to the URL extension.
func inferMediaType(url, explicit string) string {
	if explicit != "" {
		if idx := strings.IndexByte(explicit, '/'); idx > 0 {
			return strings.ToLower(explicit[:idx])
		}
		return strings.ToLower(explicit)
	}
	ext := strings.ToLower(path.Ext(strings.SplitN(url, "?", 2)[0]))
	if t, ok := mediaTypeByExt[ext]; ok {
		return t
	}
	return "file"
}

const displayTimeLayout = "Jan 2, 2006 3:04 PM"

var dateTimeLayouts = []string{
	displayTimeLayout,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"01/02/2006 15:04",
}

// formatDateTime display-formats a timestamp when one of the known layouts
// parses it, and otherwise passes the trimmed original through. The display
// layout itself is in the accepted list, which keeps re-normalization stable.
func formatDateTime(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format(displayTimeLayout)
		}
	}
	return value
}

var legacyFieldPatterns = []struct {
	re   *regexp.Regexp
	kind string
}{
	{regexp.MustCompile(`^SystemMessage\d+$`), "system"},
	{regexp.MustCompile(`^customerMessage\d*$`), "customer"},
	{regexp.MustCompile(`^AgentMessage\d+$`), "agent"},
}

func legacyFieldKind(key string) string {
	for _, p := range legacyFieldPatterns {
		if p.re.MatchString(key) {
			return p.kind
		}
	}
	return ""
}

func hasLegacyMessageFields(m map[string]any) bool {
	for key := range m {
		if legacyFieldKind(key) != "" {
			return true
		}
	}
	return false
}

// legacyConversation extracts the flat SystemMessageN / customerMessageN /
// AgentMessageN fields in source key order. Go maps do not preserve order,
// so the scenario's raw object is re-scanned token by token.
func legacyConversation(raw []byte) []Message {
	var conversation []Message
	for _, field := range orderedFields(raw) {
		kind := legacyFieldKind(field.key)
		if kind == "" {
			continue
		}
		var text string
		if err := json.Unmarshal(field.value, &text); err != nil {
			continue
		}
		if msg := normalizeMessage(map[string]any{"message_type": kind, "message_text": text}); msg != nil {
			conversation = append(conversation, *msg)
		}
	}
	return conversation
}

type rawField struct {
	key   string
	value json.RawMessage
}

func orderedFields(raw []byte) []rawField {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	if _, err := dec.Token(); err != nil {
		return nil
	}
	var fields []rawField
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fields
		}
		key, ok := tok.(string)
		if !ok {
			return fields
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return fields
		}
		fields = append(fields, rawField{key: key, value: value})
	}
	return fields
}

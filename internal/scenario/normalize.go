package scenario

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// Normalize coerces a raw scenarios payload into the canonical scenario map.
// Malformed input yields an empty map; this boundary never returns an error.
// Normalization is idempotent: feeding the marshaled output back in is a
// no-op, so the empty-message filter in message normalization is applied
// exactly once.
func Normalize(raw []byte) map[string]Scenario {
	out := make(map[string]Scenario)
	c := classify(raw)

	switch c.shape {
	case shapeKeyedObject:
		for key, item := range c.keyed {
			obj := decodeObject(item)
			if obj == nil {
				continue
			}
			out[key] = buildScenario(key, obj, item, c.defaults)
		}
	case shapeScenarioArray:
		for i, item := range c.list {
			obj := decodeObject(item)
			if obj == nil {
				continue
			}
			key := strconv.Itoa(i + 1)
			out[key] = buildScenario(key, obj, item, c.defaults)
		}
	case shapeMessageArray:
		var conversation []any
		for _, item := range c.list {
			if obj := decodeObject(item); obj != nil {
				conversation = append(conversation, obj)
			}
		}
		obj := map[string]any{"conversation": conversation}
		out["1"] = buildScenario("1", obj, nil, c.defaults)
	case shapeSingleScenario:
		obj := decodeObject(c.single)
		if obj == nil {
			return out
		}
		delete(obj, "defaults")
		out["1"] = buildScenario("1", obj, c.single, c.defaults)
	}
	return out
}

// SortedKeys returns scenario keys in ascending numeric order; keys that do
// not parse as numbers sort after the numeric ones, alphabetically. This is
// the ordering the scenario-list navigation path walks.
func SortedKeys(scenarios map[string]Scenario) []string {
	keys := make([]string, 0, len(scenarios))
	for key := range scenarios {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, errA := strconv.Atoi(keys[i])
		b, errB := strconv.Atoi(keys[j])
		switch {
		case errA == nil && errB == nil:
			return a < b
		case errA == nil:
			return true
		case errB == nil:
			return false
		default:
			return keys[i] < keys[j]
		}
	})
	return keys
}

func buildScenario(key string, specific map[string]any, specificRaw []byte, defaults map[string]any) Scenario {
	merged := mergeWithDefaults(specific, defaults)

	s := Scenario{
		Key:            key,
		ID:             firstString(merged, "id", "send_id", "sendId"),
		CompanyName:    firstString(merged, "companyName", "company_name", "company"),
		CompanyWebsite: firstString(merged, "companyWebsite", "company_website", "website"),
		AgentName:      firstString(merged, "agentName", "agent_name", "persona"),
		MessageTone:    firstString(merged, "messageTone", "message_tone", "tone"),
		CustomerPhone:  firstString(merged, "customerPhone", "customer_phone", "phone"),
	}
	if s.ID == "" {
		s.ID = key
	}
	if s.CompanyName == "" {
		s.CompanyName = "Scenario " + key
	}
	s.AgentInitial = initialOf(s.AgentName, s.CompanyName)

	s.Conversation = extractConversation(merged, specificRaw)
	s.Notes = normalizeNotes(merged["notes"])
	s.RightPanel = normalizeRightPanel(merged)
	s.BlocklistedWords = dedupedStringList(firstValue(merged, "blocklisted_words", "blocklistedWords"))
	s.EscalationPreferences = dedupedStringList(firstValue(merged, "escalation_preferences", "escalationPreferences"))
	return s
}

// mergeWithDefaults overlays a specific scenario onto the payload's defaults
// object: scalars from the specific scenario win, while the notes/guidelines
// and rightPanel mappings are merged key-by-key. The guidelines and
// right_panel spellings are folded into their canonical keys here so only
// one spelling survives the merge.
func mergeWithDefaults(specific, defaults map[string]any) map[string]any {
	merged := make(map[string]any, len(defaults)+len(specific))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range specific {
		merged[k] = v
	}

	if notes := overlayMaps(notesOf(defaults), notesOf(specific)); notes != nil {
		merged["notes"] = notes
	}
	delete(merged, "guidelines")

	if panel := overlayMaps(panelOf(defaults), panelOf(specific)); panel != nil {
		merged["rightPanel"] = panel
	}
	delete(merged, "right_panel")

	return merged
}

// notesOf combines a record's notes and legacy guidelines mappings, notes
// winning per key.
func notesOf(m map[string]any) map[string]any {
	guidelines, _ := m["guidelines"].(map[string]any)
	notes, _ := m["notes"].(map[string]any)
	return overlayMaps(guidelines, notes)
}

func panelOf(m map[string]any) map[string]any {
	legacy, _ := m["right_panel"].(map[string]any)
	panel, _ := m["rightPanel"].(map[string]any)
	return overlayMaps(legacy, panel)
}

// overlayMaps merges over onto base key-by-key; nil when both are empty.
func overlayMaps(base, over map[string]any) map[string]any {
	if base == nil && over == nil {
		return nil
	}
	out := make(map[string]any, len(base)+len(over))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}

// extractConversation applies the conversation precedence: an explicit
// conversation array, then a messages array, then the legacy flat
// SystemMessageN / customerMessageN / AgentMessageN fields in the order they
// appear in the source object.
func extractConversation(merged map[string]any, specificRaw []byte) []Message {
	var items []any
	if list, ok := merged["conversation"].([]any); ok && len(list) > 0 {
		items = list
	} else if list, ok := merged["messages"].([]any); ok && len(list) > 0 {
		items = list
	}

	if items == nil && specificRaw != nil {
		return legacyConversation(specificRaw)
	}

	conversation := make([]Message, 0, len(items))
	for _, item := range items {
		if msg := normalizeMessage(item); msg != nil {
			conversation = append(conversation, *msg)
		}
	}
	return conversation
}

func normalizeNotes(value any) map[string][]string {
	obj, ok := value.(map[string]any)
	if !ok || len(obj) == 0 {
		return nil
	}
	notes := make(map[string][]string, len(obj))
	for key, raw := range obj {
		list := toStringList(raw)
		if len(list) > 0 {
			notes[key] = list
		}
	}
	if len(notes) == 0 {
		return nil
	}
	return notes
}

// rightPanelAliases maps each canonical right-panel block to the top-level
// legacy spellings folded into it when the block itself is absent.
var rightPanelAliases = map[string][]string{
	"source":          {"source"},
	"browsingHistory": {"browsingHistory", "browsing_history", "last5Products"},
	"orders":          {"orders"},
	"promotions":      {"promotions", "promos"},
	"templates":       {"templates", "templatesUsed"},
}

func normalizeRightPanel(merged map[string]any) map[string]any {
	panel := make(map[string]any)
	if existing, ok := firstValue(merged, "rightPanel", "right_panel").(map[string]any); ok {
		for k, v := range existing {
			panel[k] = v
		}
	}
	for block, aliases := range rightPanelAliases {
		if _, ok := panel[block]; ok {
			continue
		}
		for _, alias := range aliases {
			if v, ok := merged[alias]; ok && v != nil {
				panel[block] = v
				break
			}
		}
	}
	if len(panel) == 0 {
		return nil
	}
	return panel
}

// dedupedStringList coerces a value into a trimmed string list, deduplicated
// case-insensitively while preserving first-seen order.
func dedupedStringList(value any) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, item := range toStringList(value) {
		key := strings.ToLower(item)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, item)
	}
	return out
}

func toStringList(value any) []string {
	var items []any
	switch v := value.(type) {
	case nil:
		return nil
	case []any:
		items = v
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			items = append(items, v[k])
		}
	default:
		items = []any{value}
	}
	var out []string
	for _, item := range items {
		text := strings.TrimSpace(coerceString(item))
		if text != "" {
			out = append(out, text)
		}
	}
	return out
}

func firstValue(m map[string]any, aliases ...string) any {
	for _, alias := range aliases {
		if v, ok := m[alias]; ok && v != nil {
			return v
		}
	}
	return nil
}

func firstString(m map[string]any, aliases ...string) string {
	for _, alias := range aliases {
		if v, ok := m[alias]; ok {
			if s := strings.TrimSpace(coerceString(v)); s != "" {
				return s
			}
		}
	}
	return ""
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case json.Number:
		return val.String()
	default:
		return ""
	}
}

func initialOf(names ...string) string {
	for _, name := range names {
		for _, r := range strings.TrimSpace(name) {
			return string(unicode.ToUpper(r))
		}
	}
	return ""
}

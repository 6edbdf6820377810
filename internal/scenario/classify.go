package scenario

import (
	"bytes"
	"encoding/json"
)

// inputShape is the recognized top-level shape of a raw payload. The
// classifier is the single place the shape-sniffing heuristics live; each
// shape maps to exactly one construction path in Normalize.
type inputShape int

const (
	shapeUnknown inputShape = iota
	// {"scenarios": {...}} or a bare object keyed by scenario key.
	shapeKeyedObject
	// {"scenarios": [...]} or a bare array of scenario objects,
	// positionally keyed "1"-based.
	shapeScenarioArray
	// An array where every element looks like a single message: one
	// scenario whose conversation is the array.
	shapeMessageArray
	// An object that is itself one scenario.
	shapeSingleScenario
)

type classified struct {
	shape    inputShape
	keyed    map[string]json.RawMessage
	list     []json.RawMessage
	single   json.RawMessage
	defaults map[string]any
}

var messageLikeKeys = []string{"message_text", "message_type", "content", "role"}

var scenarioLikeKeys = []string{
	"conversation", "messages",
	"companyName", "company_name",
	"agentName", "persona",
}

func isMessageLike(m map[string]any) bool {
	for _, key := range messageLikeKeys {
		if _, ok := m[key]; ok {
			return true
		}
	}
	return false
}

func isScenarioLike(m map[string]any) bool {
	for _, key := range scenarioLikeKeys {
		if _, ok := m[key]; ok {
			return true
		}
	}
	return hasLegacyMessageFields(m)
}

// classify decides which construction path a raw payload takes. It never
// fails: anything unrecognizable comes back as shapeUnknown.
func classify(raw []byte) classified {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return classified{shape: shapeUnknown}
	}

	switch raw[0] {
	case '[':
		var list []json.RawMessage
		if err := json.Unmarshal(raw, &list); err != nil || len(list) == 0 {
			return classified{shape: shapeUnknown}
		}
		return classifyList(list, nil)
	case '{':
		var keyed map[string]json.RawMessage
		if err := json.Unmarshal(raw, &keyed); err != nil {
			return classified{shape: shapeUnknown}
		}
		defaults := decodeObject(keyed["defaults"])

		if inner, ok := keyed["scenarios"]; ok {
			return classifyScenariosValue(inner, defaults)
		}

		if top := decodeObject(raw); top != nil && isScenarioLike(top) {
			return classified{shape: shapeSingleScenario, single: raw, defaults: defaults}
		}

		delete(keyed, "defaults")
		if len(keyed) == 0 {
			return classified{shape: shapeUnknown}
		}
		for _, v := range keyed {
			if decodeObject(v) == nil {
				return classified{shape: shapeUnknown}
			}
		}
		return classified{shape: shapeKeyedObject, keyed: keyed, defaults: defaults}
	}
	return classified{shape: shapeUnknown}
}

func classifyScenariosValue(inner json.RawMessage, defaults map[string]any) classified {
	trimmed := bytes.TrimSpace(inner)
	if len(trimmed) == 0 {
		return classified{shape: shapeUnknown}
	}
	switch trimmed[0] {
	case '{':
		var keyed map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &keyed); err != nil || len(keyed) == 0 {
			return classified{shape: shapeUnknown}
		}
		return classified{shape: shapeKeyedObject, keyed: keyed, defaults: defaults}
	case '[':
		var list []json.RawMessage
		if err := json.Unmarshal(trimmed, &list); err != nil || len(list) == 0 {
			return classified{shape: shapeUnknown}
		}
		return classifyList(list, defaults)
	}
	return classified{shape: shapeUnknown}
}

// classifyList disambiguates a scenario array from a single-message-array:
// if every element looks like a message the whole array is ONE scenario's
// conversation, never N single-message scenarios.
func classifyList(list []json.RawMessage, defaults map[string]any) classified {
	allMessages := true
	for _, item := range list {
		obj := decodeObject(item)
		if obj == nil || !isMessageLike(obj) {
			allMessages = false
			break
		}
	}
	if allMessages {
		return classified{shape: shapeMessageArray, list: list, defaults: defaults}
	}
	return classified{shape: shapeScenarioArray, list: list, defaults: defaults}
}

func decodeObject(raw json.RawMessage) map[string]any {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil
	}
	return obj
}

package editor

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// NormalizeRecordForStorage puts one scenario record into the canonical
// on-disk form: legacy top-level display fields fold into rightPanel, the
// word lists are deduped under their snake_case keys, and notes are
// canonicalized. The input is never mutated.
func NormalizeRecordForStorage(record map[string]any) map[string]any {
	if record == nil {
		return map[string]any{}
	}
	out := cloneValue(record).(map[string]any)

	rightPanel := map[string]any{}
	if existing, ok := out["rightPanel"].(map[string]any); ok {
		for k, v := range existing {
			rightPanel[k] = v
		}
	}
	foldIntoPanel(out, rightPanel, "source", "source")
	foldIntoPanel(out, rightPanel, "browsingHistory", "browsingHistory")
	foldIntoPanel(out, rightPanel, "browsing_history", "browsingHistory")
	foldIntoPanel(out, rightPanel, "orders", "orders")
	foldIntoPanel(out, rightPanel, "templatesUsed", "templates")
	if len(rightPanel) > 0 {
		out["rightPanel"] = rightPanel
	}

	blocklisted := out["blocklisted_words"]
	if blocklisted == nil {
		blocklisted = out["blocklistedWords"]
	}
	out["blocklisted_words"] = UniqueTrimmedStringArray(blocklisted)
	delete(out, "blocklistedWords")

	escalation := out["escalation_preferences"]
	if escalation == nil {
		escalation = out["escalationPreferences"]
	}
	out["escalation_preferences"] = UniqueTrimmedStringArray(escalation)
	delete(out, "escalationPreferences")

	notesValue := out["notes"]
	if notesValue == nil {
		notesValue = out["guidelines"]
	}
	out["notes"] = NormalizeScenarioNotes(notesValue)
	delete(out, "guidelines")

	return out
}

func foldIntoPanel(record, panel map[string]any, field, block string) {
	value, ok := record[field]
	if !ok {
		return
	}
	if _, taken := panel[block]; !taken {
		panel[block] = value
	}
	delete(record, field)
}

// ContainerToList flattens a scenarios document into a record list,
// accepting the bare array form and both container forms.
func ContainerToList(container any) []any {
	switch v := container.(type) {
	case []any:
		return append([]any(nil), v...)
	case map[string]any:
		switch inner := v["scenarios"].(type) {
		case []any:
			return append([]any(nil), inner...)
		case map[string]any:
			out := make([]any, 0, len(inner))
			for _, item := range ConvertMapValuesInKeyOrder(inner) {
				out = append(out, item)
			}
			return out
		}
	}
	return nil
}

// ConvertMapValuesInKeyOrder returns a map's values with keys sorted, so
// keyed containers flatten deterministically.
func ConvertMapValuesInKeyOrder(m map[string]any) []any {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sortNumericAware(keys)
	out := make([]any, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}

// MergeResult reports what a merge did.
type MergeResult struct {
	Scenarios []map[string]any
	Updated   int
	Added     int
}

// MergeByID merges incoming records over existing ones, matching on the
// trimmed id field. Matched records shallow-merge with the incoming fields
// winning, except rightPanel which merges key-by-key. Records without an
// id always append.
func MergeByID(existing, incoming []any) MergeResult {
	result := MergeResult{}
	idToIndex := map[string]int{}

	for _, item := range existing {
		record, _ := item.(map[string]any)
		normalized := NormalizeRecordForStorage(record)
		result.Scenarios = append(result.Scenarios, normalized)
		id := strings.TrimSpace(NormalizeText(normalized["id"]))
		if id != "" {
			if _, taken := idToIndex[id]; !taken {
				idToIndex[id] = len(result.Scenarios) - 1
			}
		}
	}

	for _, item := range incoming {
		record, _ := item.(map[string]any)
		normalized := NormalizeRecordForStorage(record)
		id := strings.TrimSpace(NormalizeText(normalized["id"]))

		if idx, ok := idToIndex[id]; id != "" && ok {
			base := result.Scenarios[idx]
			merged := map[string]any{}
			for k, v := range base {
				merged[k] = v
			}
			for k, v := range normalized {
				merged[k] = v
			}
			basePanel, _ := base["rightPanel"].(map[string]any)
			incomingPanel, _ := normalized["rightPanel"].(map[string]any)
			if len(basePanel) > 0 || len(incomingPanel) > 0 {
				panel := map[string]any{}
				for k, v := range basePanel {
					panel[k] = v
				}
				for k, v := range incomingPanel {
					panel[k] = v
				}
				merged["rightPanel"] = panel
			}
			result.Scenarios[idx] = NormalizeRecordForStorage(merged)
			result.Updated++
			continue
		}

		result.Scenarios = append(result.Scenarios, normalized)
		result.Added++
		if id != "" {
			idToIndex[id] = len(result.Scenarios) - 1
		}
	}
	return result
}

// sortNumericAware keeps "2" before "10" so keyed scenario containers
// flatten in their display order.
func sortNumericAware(keys []string) {
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
}

// cloneValue deep-copies a decoded JSON value via re-marshaling; records
// being merged must never alias their sources.
func cloneValue(value any) any {
	raw, err := json.Marshal(value)
	if err != nil {
		return map[string]any{}
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]any{}
	}
	return out
}

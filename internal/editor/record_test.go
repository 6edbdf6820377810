package editor

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNormalizeRecordFoldsPanelBlocks(t *testing.T) {
	record := map[string]any{
		"id":              "101",
		"browsingHistory": []any{map[string]any{"item": "Mug"}},
		"orders":          []any{map[string]any{"orderNumber": "A1"}},
		"templatesUsed":   []any{"greeting"},
	}

	got := NormalizeRecordForStorage(record)

	panel, ok := got["rightPanel"].(map[string]any)
	if !ok {
		t.Fatalf("expected rightPanel, got %v", got)
	}
	for _, block := range []string{"browsingHistory", "orders", "templates"} {
		if _, ok := panel[block]; !ok {
			t.Errorf("missing panel block %q", block)
		}
	}
	for _, legacy := range []string{"browsingHistory", "orders", "templatesUsed"} {
		if _, ok := got[legacy]; ok {
			t.Errorf("legacy top-level field %q survived", legacy)
		}
	}
	if _, ok := record["browsingHistory"]; !ok {
		t.Fatal("input record was mutated")
	}
}

func TestNormalizeRecordDedupesWordLists(t *testing.T) {
	record := map[string]any{
		"blocklistedWords":      []any{"cheap", "Cheap", "refund"},
		"escalationPreferences": []any{"legal", "Legal"},
	}

	got := NormalizeRecordForStorage(record)

	if diff := cmp.Diff([]string{"cheap", "refund"}, got["blocklisted_words"]); diff != "" {
		t.Errorf("blocklisted_words (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"legal"}, got["escalation_preferences"]); diff != "" {
		t.Errorf("escalation_preferences (-want +got):\n%s", diff)
	}
	if _, ok := got["blocklistedWords"]; ok {
		t.Error("camelCase blocklistedWords survived")
	}
}

func TestNormalizeRecordCanonicalizesGuidelines(t *testing.T) {
	record := map[string]any{
		"guidelines": map[string]any{
			"Tone": []any{"Keep it casual"},
		},
	}

	got := NormalizeRecordForStorage(record)

	notes, ok := got["notes"].(map[string][]string)
	if !ok {
		t.Fatalf("expected canonical notes, got %T", got["notes"])
	}
	if diff := cmp.Diff([]string{"Keep it casual"}, notes["tone"]); diff != "" {
		t.Errorf("tone notes (-want +got):\n%s", diff)
	}
	if _, ok := got["guidelines"]; ok {
		t.Error("guidelines alias survived")
	}
}

func TestContainerToList(t *testing.T) {
	list := []any{map[string]any{"id": "1"}}

	if got := ContainerToList(list); len(got) != 1 {
		t.Errorf("bare array: got %d records", len(got))
	}
	if got := ContainerToList(map[string]any{"scenarios": list}); len(got) != 1 {
		t.Errorf("array container: got %d records", len(got))
	}
	keyed := map[string]any{"scenarios": map[string]any{
		"10": map[string]any{"id": "ten"},
		"2":  map[string]any{"id": "two"},
	}}
	got := ContainerToList(keyed)
	if len(got) != 2 {
		t.Fatalf("keyed container: got %d records", len(got))
	}
	first, _ := got[0].(map[string]any)
	if first["id"] != "two" {
		t.Errorf("keyed container must flatten in numeric key order, first id = %v", first["id"])
	}
	if got := ContainerToList("garbage"); got != nil {
		t.Errorf("non-container input: got %v", got)
	}
}

func TestMergeByIDUpdatesAndAppends(t *testing.T) {
	existing := []any{
		map[string]any{"id": "101", "companyName": "Old Co", "agentName": "Sam"},
		map[string]any{"id": "102", "companyName": "Keep Co"},
	}
	incoming := []any{
		map[string]any{"id": " 101 ", "companyName": "New Co"},
		map[string]any{"id": "103", "companyName": "Added Co"},
	}

	got := MergeByID(existing, incoming)

	if got.Updated != 1 || got.Added != 1 {
		t.Fatalf("Updated=%d Added=%d, want 1 and 1", got.Updated, got.Added)
	}
	if len(got.Scenarios) != 3 {
		t.Fatalf("got %d scenarios, want 3", len(got.Scenarios))
	}
	merged := got.Scenarios[0]
	if merged["companyName"] != "New Co" {
		t.Errorf("incoming field must win, companyName = %v", merged["companyName"])
	}
	if merged["agentName"] != "Sam" {
		t.Errorf("untouched fields must survive, agentName = %v", merged["agentName"])
	}
}

func TestMergeByIDMergesRightPanel(t *testing.T) {
	existing := []any{map[string]any{
		"id": "101",
		"rightPanel": map[string]any{
			"orders":    []any{map[string]any{"orderNumber": "A1"}},
			"templates": []any{"greeting"},
		},
	}}
	incoming := []any{map[string]any{
		"id": "101",
		"rightPanel": map[string]any{
			"orders": []any{map[string]any{"orderNumber": "B2"}},
		},
	}}

	got := MergeByID(existing, incoming)

	panel, _ := got.Scenarios[0]["rightPanel"].(map[string]any)
	if _, ok := panel["templates"]; !ok {
		t.Error("rightPanel merge dropped the existing templates block")
	}
	orders, _ := panel["orders"].([]any)
	if len(orders) != 1 {
		t.Fatalf("got %d orders", len(orders))
	}
	order, _ := orders[0].(map[string]any)
	if order["orderNumber"] != "B2" {
		t.Errorf("incoming panel block must win, orderNumber = %v", order["orderNumber"])
	}
}

func TestMergeByIDRecordsWithoutIDAppend(t *testing.T) {
	existing := []any{map[string]any{"companyName": "No ID"}}
	incoming := []any{map[string]any{"companyName": "Also no ID"}}

	got := MergeByID(existing, incoming)

	if got.Updated != 0 || got.Added != 1 || len(got.Scenarios) != 2 {
		t.Fatalf("Updated=%d Added=%d len=%d", got.Updated, got.Added, len(got.Scenarios))
	}
}

package evalform

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func sampleControls() []Control {
	return []Control{
		{Name: "sales_effectiveness", Kind: KindCheckbox, Value: "upsell", Checked: true},
		{Name: "sales_effectiveness", Kind: KindCheckbox, Value: "general_recommendation", Checked: false},
		{Name: "zero_tolerance", Kind: KindSelect, Value: "none"},
		{Name: "notes", Kind: KindTextarea, Value: "solid tone throughout"},
		{ID: "reviewer-alias", Kind: KindText, Value: "RB"},
	}
}

func TestCollectKeysControls(t *testing.T) {
	state := Collect(sampleControls())

	want := FormState{
		"sales_effectiveness::upsell":                 true,
		"sales_effectiveness::general_recommendation": false,
		"zero_tolerance": "none",
		"notes":          "solid tone throughout",
		"reviewer-alias": "RB",
	}
	if diff := cmp.Diff(want, state); diff != "" {
		t.Fatalf("Collect (-want +got):\n%s", diff)
	}
}

func TestApplyIsInverseOfCollect(t *testing.T) {
	controls := sampleControls()
	state := Collect(controls)

	blank := ResetToDefaults(controls)
	restored := Apply(blank, state)

	if diff := cmp.Diff(controls, restored); diff != "" {
		t.Fatalf("Apply(Collect(x)) should restore x (-want +got):\n%s", diff)
	}
}

func TestApplyIgnoresUnknownKeys(t *testing.T) {
	controls := []Control{{Name: "notes", Kind: KindTextarea}}
	state := FormState{"notes": "kept", "removed_field": "ignored", "old_cat::slug": true}

	restored := Apply(controls, state)
	if restored[0].Value != "kept" {
		t.Fatalf("expected notes applied, got %q", restored[0].Value)
	}
}

func TestResetToDefaults(t *testing.T) {
	controls := []Control{
		{Name: "accuracy", Kind: KindCheckbox, Value: "pricing", Checked: false},
		{Name: "notes", Kind: KindTextarea, Value: "leftover"},
		{Name: "zero_tolerance", Kind: KindSelect, Value: "none"},
	}

	reset := ResetToDefaults(controls)
	if !reset[0].Checked {
		t.Error("checkboxes default to checked")
	}
	if reset[1].Value != "" {
		t.Error("textareas default to empty")
	}
	if reset[2].Value != "none" {
		t.Error("selects keep their current value")
	}
}

func TestFormStateSurvivesJSONRoundTrip(t *testing.T) {
	state := Collect(sampleControls())
	raw, err := json.Marshal(state)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var restored FormState
	if err := json.Unmarshal(raw, &restored); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !restored.Checked("sales_effectiveness", "upsell") {
		t.Error("checkbox state lost in round trip")
	}
	if restored.Text("notes") != "solid tone throughout" {
		t.Error("text state lost in round trip")
	}
}

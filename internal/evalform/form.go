// Package evalform collects and applies evaluation form state, builds the
// submission payload, and coalesces draft autosaves. The renderer hands it
// a flat list of controls; this package owns everything between the
// controls and the wire.
package evalform

// Control kinds the evaluation form uses.
const (
	KindCheckbox = "checkbox"
	KindSelect   = "select"
	KindText     = "text"
	KindTextarea = "textarea"
)

// Control is the renderer's view of one form control.
type Control struct {
	Name    string
	ID      string
	Kind    string
	Value   string
	Checked bool
}

// FormState maps control keys to their captured values. Checkboxes are
// keyed "name::value" with a boolean; every other control is keyed by its
// name (or id when unnamed) with its string value.
type FormState map[string]any

// Collect captures the current value of every control.
func Collect(controls []Control) FormState {
	state := make(FormState, len(controls))
	for _, c := range controls {
		switch c.Kind {
		case KindCheckbox:
			state[checkboxKey(c.Name, c.Value)] = c.Checked
		default:
			state[controlKey(c)] = c.Value
		}
	}
	return state
}

// Apply is the inverse of Collect: it restores a captured state onto the
// controls. Keys with no matching control are ignored, so drafts saved
// against an older form layout still apply.
func Apply(controls []Control, state FormState) []Control {
	out := make([]Control, len(controls))
	copy(out, controls)
	for i, c := range out {
		switch c.Kind {
		case KindCheckbox:
			if checked, ok := state[checkboxKey(c.Name, c.Value)].(bool); ok {
				out[i].Checked = checked
			}
		default:
			if value, ok := state[controlKey(c)].(string); ok {
				out[i].Value = value
			}
		}
	}
	return out
}

// ResetToDefaults returns the form's post-submission state: every checkbox
// checked, every free-text control cleared.
func ResetToDefaults(controls []Control) []Control {
	out := make([]Control, len(controls))
	copy(out, controls)
	for i, c := range out {
		switch c.Kind {
		case KindCheckbox:
			out[i].Checked = true
		case KindText, KindTextarea:
			out[i].Value = ""
		}
	}
	return out
}

func checkboxKey(name, value string) string {
	return name + "::" + value
}

func controlKey(c Control) string {
	if c.Name != "" {
		return c.Name
	}
	return c.ID
}

// Checked reports a checkbox's captured state.
func (s FormState) Checked(name, value string) bool {
	checked, _ := s[checkboxKey(name, value)].(bool)
	return checked
}

// Text returns a non-checkbox control's captured value.
func (s FormState) Text(name string) string {
	text, _ := s[name].(string)
	return text
}

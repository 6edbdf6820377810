// Package assignment wraps the remote spreadsheet-backed endpoint that
// tracks evaluation assignments. The endpoint is a single URL discriminated
// by an action parameter; this package owns the request contract and the
// in-memory queue the console navigates.
package assignment

// Roles an assignment can grant the evaluator.
const (
	RoleEditor = "editor"
	RoleViewer = "viewer"
)

// Assignment binds an evaluator to a scenario via a capability token.
// SendID correlates to the scenario's id. The client never deletes an
// assignment; it only saves drafts and marks completion.
type Assignment struct {
	AssignmentID  string `json:"assignment_id"`
	SendID        string `json:"send_id"`
	Role          string `json:"role"`
	Status        string `json:"status"`
	Token         string `json:"token"`
	FormStateJSON string `json:"form_state_json"`
	InternalNote  string `json:"internal_note"`
}

// Editable reports whether the assignment permits submitting changes.
func (a Assignment) Editable() bool {
	return a.Role != RoleViewer
}

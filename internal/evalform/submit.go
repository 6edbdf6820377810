package evalform

import (
	"errors"
	"fmt"
	"strings"
)

// Control names the submission contract depends on.
const (
	NotesField         = "notes"
	ZeroToleranceField = "zero_tolerance"
)

// ErrViewOnly rejects a submission attempt from a viewer-role assignment or
// a view-mode page. This is a hard gate applied before any validation or
// network activity, not a UI affordance.
var ErrViewOnly = errors.New("evaluation form is read-only for this session")

// ValidationError blocks a submission locally, before any network call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s", e.Message)
}

// SubmitContext identifies who is submitting what.
type SubmitContext struct {
	Role       string // assignment role; empty outside assignment mode
	Mode       string // page mode: "view" or "edit"
	Email      string
	ScenarioID string
	Assignment string
}

// BuildSubmission validates the captured form state and converts it into
// the flat evaluation payload the remote endpoint expects: one
// comma-joined label cell per category, plus notes, the zero-tolerance
// selection and the submitter's identifiers.
func BuildSubmission(state FormState, ctx SubmitContext) (map[string]string, error) {
	if ctx.Role == "viewer" || ctx.Mode == "view" {
		return nil, ErrViewOnly
	}

	notes := strings.TrimSpace(state.Text(NotesField))
	if notes == "" {
		return nil, &ValidationError{Field: NotesField, Message: "notes are required"}
	}
	zeroTolerance := strings.TrimSpace(state.Text(ZeroToleranceField))
	if zeroTolerance == "" {
		return nil, &ValidationError{Field: ZeroToleranceField, Message: "zero tolerance selection is required"}
	}

	payload := map[string]string{
		"email":          ctx.Email,
		"scenario_id":    ctx.ScenarioID,
		"notes":          notes,
		"zero_tolerance": zeroTolerance,
	}
	if ctx.Assignment != "" {
		payload["assignment_id"] = ctx.Assignment
	}
	for _, category := range Categories {
		payload[category.Key] = CategoryCell(state, category)
	}
	return payload, nil
}

// Package state provides the console's persisted key-value store: unlock
// progression, draft snapshots, session timers, identity and the
// failed-submission queue. There is exactly one writer (the console
// service), so backends need no cross-process coordination.
package state

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a key has no stored value.
var ErrNotFound = errors.New("state: key not found")

// Store is a string-keyed store of JSON- or plain-text-valued entries.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Well-known keys. Per-assignment and per-scenario snapshots derive their
// keys from these prefixes.
const (
	KeyUnlockedScenario = "unlocked_scenario"
	KeyCurrentScenario  = "current_scenario"
	KeyFailedQueue      = "failed_submissions"
	KeyIdentityEmail    = "identity_email"
	KeyIdentityAdmin    = "identity_admin"
)

func AssignmentFormKey(assignmentID string) string { return "assignment_form:" + assignmentID }

func AssignmentNotesKey(assignmentID string) string { return "assignment_notes:" + assignmentID }

func ScenarioFormKey(scenarioKey string) string { return "scenario_form:" + scenarioKey }

func ScenarioNotesKey(scenarioKey string) string { return "scenario_notes:" + scenarioKey }

func SessionTimerKey(scenarioKey string) string { return "session_timer:" + scenarioKey }

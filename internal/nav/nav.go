// Package nav decides where next/previous takes the evaluator: through the
// remote assignment queue when one is loaded, and through the local
// scenario list otherwise. Navigation always produces a full page URL; the
// console never swaps content in place.
package nav

import (
	"net/url"
	"strconv"

	"traindeck/internal/assignment"
)

// Direction of a navigation request.
type Direction int

const (
	Forward Direction = iota + 1
	Backward
)

// Session is the explicit per-page-load state the navigation and form
// operations work against. It is constructed once when the page context is
// resolved and replaced wholesale on every navigation.
type Session struct {
	Email    string
	IsAdmin  bool
	Mode     string // "view" or "edit"
	ViewOnly bool

	// CurrentKey addresses the scenario in the local list; CurrentID is
	// the scenario record id used to correlate queue entries.
	CurrentKey string
	CurrentID  string

	// UnlockedScenario is the single scenario number the evaluator may
	// visit outside assignment mode.
	UnlockedScenario int

	// Assignment is set when the page was addressed by aid+token.
	Assignment *assignment.Assignment

	// Queue is the evaluator's assignment queue, replaced wholesale on
	// every fetch.
	Queue []assignment.Assignment
}

// AssignmentMode reports whether assignment-based access is active, which
// bypasses unlock gating entirely.
func (s Session) AssignmentMode() bool {
	return s.Assignment != nil
}

// CanAccess reports whether the session may open the given scenario key.
func CanAccess(s Session, key string) bool {
	if s.AssignmentMode() || s.IsAdmin {
		return true
	}
	return key == strconv.Itoa(s.UnlockedScenario)
}

// Navigate resolves a next/previous request to a target URL. ok is false
// when the request is silently dropped (locked scenario, or nothing to
// navigate to).
func Navigate(s Session, keys []string, appBase string, dir Direction) (string, bool) {
	if target, ok := navigateQueue(s, appBase, dir); ok {
		return target, true
	}
	return navigateScenarioList(s, keys, appBase, dir)
}

// navigateQueue advances or retreats within the assignment queue, wrapping
// circularly. A missing current-item match falls back to the first item
// going forward and the last going backward.
func navigateQueue(s Session, appBase string, dir Direction) (string, bool) {
	if len(s.Queue) == 0 {
		return "", false
	}

	current := -1
	for i, item := range s.Queue {
		if s.Assignment != nil && item.AssignmentID == s.Assignment.AssignmentID {
			current = i
			break
		}
		if s.Assignment == nil && s.CurrentID != "" && item.SendID == s.CurrentID {
			current = i
			break
		}
	}

	target := fallbackIndex(len(s.Queue), dir)
	if current >= 0 {
		target = wrap(current, len(s.Queue), dir)
	}

	targetURL := AssignmentURL(s.Queue[target], appBase)
	if targetURL == "" {
		return "", false
	}
	return targetURL, true
}

// navigateScenarioList walks the ascending numeric ordering of scenario
// keys with the same circular-wrap rule. Moving to a scenario the session
// cannot access is a no-op.
func navigateScenarioList(s Session, keys []string, appBase string, dir Direction) (string, bool) {
	if len(keys) == 0 {
		return "", false
	}

	current := -1
	for i, key := range keys {
		if key == s.CurrentKey {
			current = i
			break
		}
	}

	target := fallbackIndex(len(keys), dir)
	if current >= 0 {
		target = wrap(current, len(keys), dir)
	}

	targetKey := keys[target]
	if !CanAccess(s, targetKey) {
		return "", false
	}
	return ScenarioURL(targetKey, appBase), true
}

func wrap(current, n int, dir Direction) int {
	if dir == Backward {
		return (current - 1 + n) % n
	}
	return (current + 1) % n
}

func fallbackIndex(n int, dir Direction) int {
	if dir == Backward {
		return n - 1
	}
	return 0
}

// AssignmentURL builds the page URL addressing an assignment; empty when
// the entry is not navigable (no scenario correlation).
func AssignmentURL(a assignment.Assignment, appBase string) string {
	if a.SendID == "" || a.AssignmentID == "" {
		return ""
	}
	query := url.Values{}
	query.Set("sid", a.SendID)
	query.Set("aid", a.AssignmentID)
	if a.Token != "" {
		query.Set("token", a.Token)
	}
	return appBase + "?" + query.Encode()
}

// ScenarioURL builds the page URL addressing a local scenario key.
func ScenarioURL(key, appBase string) string {
	query := url.Values{}
	query.Set("scenario", key)
	return appBase + "?" + query.Encode()
}

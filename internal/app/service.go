package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"traindeck/internal/assignment"
	"traindeck/internal/catalog"
	"traindeck/internal/config"
	"traindeck/internal/evalform"
	"traindeck/internal/nav"
	"traindeck/internal/scenario"
	"traindeck/internal/state"
)

// DomainError is a console failure that maps directly onto an HTTP
// response: the unlock gate, a missing scenario, an admin login denial.
// Everything else surfaces as a plain error and maps to a 500.
type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{Status: status, Code: code, Message: message, Details: details}
}

type catalogSource interface {
	Snapshot() catalog.Snapshot
}

type remoteClient interface {
	Queue(ctx context.Context, email, appBase string) ([]assignment.Assignment, error)
	Get(ctx context.Context, assignmentID, token string) (assignment.Assignment, error)
	SaveDraft(ctx context.Context, assignmentID, token, formStateJSON, internalNote string) error
	Done(ctx context.Context, assignmentID, token, appBase string) ([]assignment.Assignment, error)
	SubmitEvaluation(ctx context.Context, payload map[string]string) error
	LogoutBeacon(ctx context.Context, payload map[string]string)
}

// SessionParams are the URL query parameters that address a page.
type SessionParams struct {
	Scenario     string
	AssignmentID string
	Token        string
	Mode         string
}

// PageContext is everything the front end needs to render one page.
type PageContext struct {
	Email            string                 `json:"email"`
	IsAdmin          bool                   `json:"isAdmin"`
	Mode             string                 `json:"mode"`
	ViewOnly         bool                   `json:"viewOnly"`
	ScenarioKey      string                 `json:"scenarioKey"`
	Scenario         *scenario.Scenario     `json:"scenario,omitempty"`
	Templates        []catalog.Template     `json:"templates"`
	Assignment       *assignment.Assignment `json:"assignment,omitempty"`
	UnlockedScenario int                    `json:"unlockedScenario"`
}

type Identity struct {
	Email   string `json:"email"`
	IsAdmin bool   `json:"isAdmin"`
}

type Service struct {
	cfg     config.Config
	catalog catalogSource
	states  state.Store
	remote  remoteClient
	log     *zap.Logger

	quiet      time.Duration
	autosaveMu sync.Mutex
	autosave   map[string]*evalform.Debouncer
}

func NewService(cfg config.Config, cat catalogSource, states state.Store, remote remoteClient, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	quiet := cfg.AutosaveQuiet
	if quiet <= 0 {
		quiet = evalform.QuietPeriod
	}
	return &Service{
		cfg:      cfg,
		catalog:  cat,
		states:   states,
		remote:   remote,
		log:      log,
		quiet:    quiet,
		autosave: make(map[string]*evalform.Debouncer),
	}
}

// Scenarios lists the loaded scenarios in display order.
func (s *Service) Scenarios(ctx context.Context) ([]scenario.Scenario, error) {
	snap := s.catalog.Snapshot()
	out := make([]scenario.Scenario, 0, len(snap.Keys))
	for _, key := range snap.Keys {
		out = append(out, snap.Scenarios[key])
	}
	return out, nil
}

func (s *Service) Scenario(ctx context.Context, key string) (scenario.Scenario, error) {
	snap := s.catalog.Snapshot()
	sc, ok := snap.Scenarios[key]
	if !ok {
		return scenario.Scenario{}, domainError(http.StatusNotFound, "SCENARIO_NOT_FOUND", "Scenario not found", nil)
	}
	return sc, nil
}

func (s *Service) Templates(ctx context.Context) ([]catalog.Template, error) {
	return s.catalog.Snapshot().Templates, nil
}

// ResolveSession builds the navigation session for a request: stored
// identity plus whatever the query parameters address. An assignment id
// switches the session into assignment mode and fetches the queue.
func (s *Service) ResolveSession(ctx context.Context, params SessionParams) (nav.Session, error) {
	sess := nav.Session{
		Mode:             "edit",
		UnlockedScenario: 1,
	}
	if params.Mode == "view" {
		sess.Mode = "view"
	}

	if email, err := s.states.Get(ctx, state.KeyIdentityEmail); err == nil {
		sess.Email = email
	} else if !errors.Is(err, state.ErrNotFound) {
		return nav.Session{}, err
	}
	if admin, err := s.states.Get(ctx, state.KeyIdentityAdmin); err == nil {
		sess.IsAdmin = admin == "true"
	} else if !errors.Is(err, state.ErrNotFound) {
		return nav.Session{}, err
	}
	if raw, err := s.states.Get(ctx, state.KeyUnlockedScenario); err == nil {
		if unlocked, convErr := strconv.Atoi(strings.TrimSpace(raw)); convErr == nil && unlocked > 0 {
			sess.UnlockedScenario = unlocked
		}
	} else if !errors.Is(err, state.ErrNotFound) {
		return nav.Session{}, err
	}

	if params.AssignmentID != "" {
		a, err := s.remote.Get(ctx, params.AssignmentID, params.Token)
		if err != nil {
			return nav.Session{}, err
		}
		a.Token = params.Token
		sess.Assignment = &a
		sess.CurrentID = a.SendID
		if sess.Email != "" {
			queue, err := s.remote.Queue(ctx, sess.Email, s.cfg.AppBase)
			if err == nil {
				sess.Queue = queue
			} else {
				s.log.Warn("assignment queue fetch failed", zap.Error(err))
			}
		}
	}

	sess.CurrentKey = params.Scenario
	if sess.CurrentKey == "" && sess.Assignment == nil {
		sess.CurrentKey = strconv.Itoa(sess.UnlockedScenario)
	}
	sess.ViewOnly = sess.Mode == "view" || (sess.Assignment != nil && !sess.Assignment.Editable())
	return sess, nil
}

// Page resolves the full page context, enforcing the unlock gate for
// scenario-list pages.
func (s *Service) Page(ctx context.Context, params SessionParams) (PageContext, error) {
	sess, err := s.ResolveSession(ctx, params)
	if err != nil {
		return PageContext{}, err
	}

	page := PageContext{
		Email:            sess.Email,
		IsAdmin:          sess.IsAdmin,
		Mode:             sess.Mode,
		ViewOnly:         sess.ViewOnly,
		ScenarioKey:      sess.CurrentKey,
		Assignment:       sess.Assignment,
		UnlockedScenario: sess.UnlockedScenario,
	}

	snap := s.catalog.Snapshot()
	page.Templates = snap.Templates

	if sess.Assignment == nil {
		if !nav.CanAccess(sess, sess.CurrentKey) {
			return PageContext{}, domainError(http.StatusForbidden, "SCENARIO_LOCKED", "Scenario is not unlocked yet", nil)
		}
	}
	if sc, ok := snap.Scenarios[sess.CurrentKey]; ok {
		page.Scenario = &sc
	}
	return page, nil
}

// Navigate resolves the next or previous page URL. A false second return
// means the session stays where it is.
func (s *Service) Navigate(ctx context.Context, params SessionParams, dir nav.Direction) (string, bool, error) {
	sess, err := s.ResolveSession(ctx, params)
	if err != nil {
		return "", false, err
	}
	url, moved := nav.Navigate(sess, s.catalog.Snapshot().Keys, s.cfg.AppBase, dir)
	return url, moved, nil
}

// AssignmentQueue fetches the signed-in evaluator's queue.
func (s *Service) AssignmentQueue(ctx context.Context) ([]assignment.Assignment, error) {
	email, err := s.states.Get(ctx, state.KeyIdentityEmail)
	if err != nil {
		if errors.Is(err, state.ErrNotFound) {
			return nil, domainError(http.StatusUnauthorized, "NOT_SIGNED_IN", "Sign in first", nil)
		}
		return nil, err
	}
	return s.remote.Queue(ctx, email, s.cfg.AppBase)
}

// SaveDraft persists a draft locally first, then forwards it. The local
// copy survives a remote failure so nothing typed is lost.
func (s *Service) SaveDraft(ctx context.Context, assignmentID, token, formStateJSON, internalNote string) error {
	if assignmentID == "" {
		return domainError(http.StatusBadRequest, "MISSING_ASSIGNMENT", "Assignment id is required", nil)
	}
	if err := s.states.Set(ctx, state.AssignmentFormKey(assignmentID), formStateJSON); err != nil {
		return err
	}
	if internalNote != "" {
		if err := s.states.Set(ctx, state.AssignmentNotesKey(assignmentID), internalNote); err != nil {
			return err
		}
	}
	if err := s.remote.SaveDraft(ctx, assignmentID, token, formStateJSON, internalNote); err != nil {
		s.log.Warn("remote draft save failed, local copy kept", zap.String("assignment_id", assignmentID), zap.Error(err))
		return err
	}
	return nil
}

// AutosaveDraft writes the draft locally right away and coalesces the
// remote forward: edits arriving within the quiet period replace the
// pending save, so a burst produces one remote write with the latest state.
func (s *Service) AutosaveDraft(ctx context.Context, assignmentID, token, formStateJSON, internalNote string) error {
	if assignmentID == "" {
		return domainError(http.StatusBadRequest, "MISSING_ASSIGNMENT", "Assignment id is required", nil)
	}
	if err := s.states.Set(ctx, state.AssignmentFormKey(assignmentID), formStateJSON); err != nil {
		return err
	}
	if internalNote != "" {
		if err := s.states.Set(ctx, state.AssignmentNotesKey(assignmentID), internalNote); err != nil {
			return err
		}
	}
	s.debouncerFor(assignmentID).Arm(func() {
		if err := s.remote.SaveDraft(context.Background(), assignmentID, token, formStateJSON, internalNote); err != nil {
			s.log.Warn("debounced draft save failed, local copy kept",
				zap.String("assignment_id", assignmentID), zap.Error(err))
		}
	})
	return nil
}

func (s *Service) debouncerFor(assignmentID string) *evalform.Debouncer {
	s.autosaveMu.Lock()
	defer s.autosaveMu.Unlock()
	d, ok := s.autosave[assignmentID]
	if !ok {
		d = evalform.NewDebouncer(s.quiet)
		s.autosave[assignmentID] = d
	}
	return d
}

// CompleteAssignment marks an assignment done and returns the refreshed
// queue. Local draft state for the assignment is cleaned up.
func (s *Service) CompleteAssignment(ctx context.Context, assignmentID, token string) ([]assignment.Assignment, error) {
	if assignmentID == "" {
		return nil, domainError(http.StatusBadRequest, "MISSING_ASSIGNMENT", "Assignment id is required", nil)
	}
	queue, err := s.remote.Done(ctx, assignmentID, token, s.cfg.AppBase)
	if err != nil {
		return nil, err
	}
	_ = s.states.Delete(ctx, state.AssignmentFormKey(assignmentID))
	_ = s.states.Delete(ctx, state.AssignmentNotesKey(assignmentID))
	return queue, nil
}

// SubmitResult reports a confirmed submission. NextURL is set when an
// editable assignment completed and the refreshed queue has somewhere to
// go next.
type SubmitResult struct {
	Payload map[string]string `json:"payload"`
	NextURL string            `json:"nextUrl,omitempty"`
}

// SubmitEvaluation validates and forwards one evaluation. Gate and
// validation failures return before any network call. A remote failure
// queues the payload locally so it can be retried. A confirmed submission
// on an editable assignment also persists the final draft and marks the
// assignment done.
func (s *Service) SubmitEvaluation(ctx context.Context, params SessionParams, form evalform.FormState) (SubmitResult, error) {
	sess, err := s.ResolveSession(ctx, params)
	if err != nil {
		return SubmitResult{}, err
	}

	submitCtx := evalform.SubmitContext{
		Mode:  sess.Mode,
		Email: sess.Email,
	}
	if sess.Assignment != nil {
		submitCtx.Role = sess.Assignment.Role
		submitCtx.Assignment = sess.Assignment.AssignmentID
		submitCtx.ScenarioID = sess.Assignment.SendID
	} else {
		if sc, ok := s.catalog.Snapshot().Scenarios[sess.CurrentKey]; ok {
			submitCtx.ScenarioID = sc.ID
		} else {
			submitCtx.ScenarioID = sess.CurrentKey
		}
	}

	payload, err := evalform.BuildSubmission(form, submitCtx)
	if err != nil {
		return SubmitResult{}, err
	}

	if err := s.remote.SubmitEvaluation(ctx, payload); err != nil {
		if queueErr := s.appendFailedSubmission(ctx, payload); queueErr != nil {
			s.log.Error("failed submission could not be queued", zap.Error(queueErr))
		} else {
			s.log.Warn("evaluation queued after remote failure", zap.Error(err))
		}
		return SubmitResult{}, err
	}

	result := SubmitResult{Payload: payload}
	if sess.Assignment != nil && sess.Assignment.Editable() {
		if raw, marshalErr := json.Marshal(form); marshalErr == nil {
			if err := s.remote.SaveDraft(ctx, sess.Assignment.AssignmentID, sess.Assignment.Token, string(raw), ""); err != nil {
				s.log.Warn("final draft save failed", zap.Error(err))
			}
		}
		queue, doneErr := s.remote.Done(ctx, sess.Assignment.AssignmentID, sess.Assignment.Token, s.cfg.AppBase)
		if doneErr != nil {
			s.log.Warn("assignment completion failed", zap.Error(doneErr))
		} else {
			for _, a := range queue {
				if url := nav.AssignmentURL(a, s.cfg.AppBase); url != "" {
					result.NextURL = url
					break
				}
			}
		}
	}

	s.afterSubmit(ctx, sess)
	return result, nil
}

// afterSubmit advances the unlock gate and clears the page's saved form
// state. Assignment pages clear their draft instead of moving the gate.
func (s *Service) afterSubmit(ctx context.Context, sess nav.Session) {
	if sess.Assignment != nil {
		_ = s.states.Delete(ctx, state.AssignmentFormKey(sess.Assignment.AssignmentID))
		_ = s.states.Delete(ctx, state.AssignmentNotesKey(sess.Assignment.AssignmentID))
		return
	}
	_ = s.states.Delete(ctx, state.ScenarioFormKey(sess.CurrentKey))
	_ = s.states.Delete(ctx, state.ScenarioNotesKey(sess.CurrentKey))
	_ = s.states.Delete(ctx, state.SessionTimerKey(sess.CurrentKey))
	if current, err := strconv.Atoi(sess.CurrentKey); err == nil && current >= sess.UnlockedScenario {
		if err := s.states.Set(ctx, state.KeyUnlockedScenario, strconv.Itoa(current+1)); err != nil {
			s.log.Error("unlock advance failed", zap.Error(err))
		}
	}
}

// FailedSubmissions returns the locally queued evaluation payloads.
func (s *Service) FailedSubmissions(ctx context.Context) ([]map[string]string, error) {
	raw, err := s.states.Get(ctx, state.KeyFailedQueue)
	if err != nil {
		if errors.Is(err, state.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var queue []map[string]string
	if err := json.Unmarshal([]byte(raw), &queue); err != nil {
		return nil, err
	}
	return queue, nil
}

// appendFailedSubmission adds one payload to the retry queue. A stored
// queue that no longer parses is left untouched rather than overwritten,
// since overwriting would discard every submission already queued.
func (s *Service) appendFailedSubmission(ctx context.Context, payload map[string]string) error {
	var queue []map[string]string
	raw, err := s.states.Get(ctx, state.KeyFailedQueue)
	switch {
	case errors.Is(err, state.ErrNotFound):
	case err != nil:
		return err
	default:
		if err := json.Unmarshal([]byte(raw), &queue); err != nil {
			s.log.Error("failed submission queue corrupted", zap.Error(err))
			return fmt.Errorf("failed submission queue corrupted, keeping stored value: %w", err)
		}
	}
	queue = append(queue, payload)
	out, err := json.Marshal(queue)
	if err != nil {
		return err
	}
	return s.states.Set(ctx, state.KeyFailedQueue, string(out))
}

// StateValue reads one persisted key.
func (s *Service) StateValue(ctx context.Context, key string) (string, error) {
	value, err := s.states.Get(ctx, key)
	if errors.Is(err, state.ErrNotFound) {
		return "", domainError(http.StatusNotFound, "STATE_NOT_FOUND", "No value for key", nil)
	}
	return value, err
}

func (s *Service) SetStateValue(ctx context.Context, key, value string) error {
	return s.states.Set(ctx, key, value)
}

func (s *Service) DeleteStateValue(ctx context.Context, key string) error {
	return s.states.Delete(ctx, key)
}

// Login stores the evaluator identity. An admin passcode, when supplied,
// is checked against the configured bcrypt hash; a wrong passcode fails
// the login rather than silently granting a plain session.
func (s *Service) Login(ctx context.Context, email, passcode string) (Identity, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return Identity{}, domainError(http.StatusBadRequest, "INVALID_EMAIL", "A valid email is required", nil)
	}

	isAdmin := false
	if passcode != "" {
		if s.cfg.AdminPasscodeHash == "" || !strings.EqualFold(email, s.cfg.AdminEmail) {
			return Identity{}, domainError(http.StatusForbidden, "ADMIN_DENIED", "Admin access denied", nil)
		}
		if err := bcrypt.CompareHashAndPassword([]byte(s.cfg.AdminPasscodeHash), []byte(passcode)); err != nil {
			return Identity{}, domainError(http.StatusForbidden, "ADMIN_DENIED", "Admin access denied", nil)
		}
		isAdmin = true
	}

	if err := s.states.Set(ctx, state.KeyIdentityEmail, email); err != nil {
		return Identity{}, err
	}
	if err := s.states.Set(ctx, state.KeyIdentityAdmin, strconv.FormatBool(isAdmin)); err != nil {
		return Identity{}, err
	}
	return Identity{Email: email, IsAdmin: isAdmin}, nil
}

// Logout clears the stored identity and fires the best-effort beacon.
func (s *Service) Logout(ctx context.Context) error {
	if email, err := s.states.Get(ctx, state.KeyIdentityEmail); err == nil && email != "" {
		s.remote.LogoutBeacon(ctx, map[string]string{"action": "logout", "email": email})
	}
	if err := s.states.Delete(ctx, state.KeyIdentityEmail); err != nil {
		return err
	}
	return s.states.Delete(ctx, state.KeyIdentityAdmin)
}

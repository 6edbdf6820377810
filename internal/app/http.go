package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"traindeck/internal/assignment"
	"traindeck/internal/evalform"
	"traindeck/internal/nav"
)

type HTTPServer struct {
	service *Service
	log     *zap.Logger
}

func NewHTTPServer(service *Service, log *zap.Logger) *HTTPServer {
	if log == nil {
		log = zap.NewNop()
	}
	return &HTTPServer{service: service, log: log}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/scenarios" {
		scenarios, err := s.service.Scenarios(r.Context())
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"scenarios": scenarios})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/templates" {
		templates, err := s.service.Templates(r.Context())
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"templates": templates})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/page" {
		page, err := s.service.Page(r.Context(), sessionParams(r))
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, page)
		return
	}

	if r.Method == http.MethodPost && (r.URL.Path == "/api/nav/next" || r.URL.Path == "/api/nav/prev") {
		dir := nav.Forward
		if strings.HasSuffix(r.URL.Path, "/prev") {
			dir = nav.Backward
		}
		url, moved, err := s.service.Navigate(r.Context(), sessionParams(r), dir)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"url": url, "moved": moved})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/assignments" {
		queue, err := s.service.AssignmentQueue(r.Context())
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"assignments": queue})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/evaluation/failed" {
		queue, err := s.service.FailedSubmissions(r.Context())
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"failed": queue})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/evaluation" {
		var body struct {
			Scenario     string             `json:"scenario"`
			AssignmentID string             `json:"aid"`
			Token        string             `json:"token"`
			Mode         string             `json:"mode"`
			Form         evalform.FormState `json:"form"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		params := SessionParams{Scenario: body.Scenario, AssignmentID: body.AssignmentID, Token: body.Token, Mode: body.Mode}
		result, err := s.service.SubmitEvaluation(r.Context(), params, body.Form)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"submitted": true, "payload": result.Payload, "nextUrl": result.NextURL})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/session/login" {
		var body struct {
			Email    string `json:"email"`
			Passcode string `json:"passcode"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		identity, err := s.service.Login(r.Context(), body.Email, body.Passcode)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, identity)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/session/logout" {
		if err := s.service.Logout(r.Context()); err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	parts := splitPath(r.URL.Path)

	if len(parts) == 3 && parts[0] == "api" && parts[1] == "scenarios" && r.Method == http.MethodGet {
		sc, err := s.service.Scenario(r.Context(), parts[2])
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sc)
		return
	}

	if len(parts) == 3 && parts[0] == "api" && parts[1] == "state" {
		key := parts[2]
		switch r.Method {
		case http.MethodGet:
			value, err := s.service.StateValue(r.Context(), key)
			if err != nil {
				writeMappedError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"key": key, "value": value})
			return
		case http.MethodPut:
			var body struct {
				Value string `json:"value"`
			}
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			if err := s.service.SetStateValue(r.Context(), key, body.Value); err != nil {
				writeMappedError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
			return
		case http.MethodDelete:
			if err := s.service.DeleteStateValue(r.Context(), key); err != nil {
				writeMappedError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
			return
		}
	}

	if len(parts) == 4 && parts[0] == "api" && parts[1] == "assignments" && r.Method == http.MethodPost {
		assignmentID := parts[2]
		switch parts[3] {
		case "draft":
			var body struct {
				Token        string `json:"token"`
				FormState    string `json:"form_state_json"`
				InternalNote string `json:"internal_note"`
			}
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			if err := s.service.SaveDraft(r.Context(), assignmentID, body.Token, body.FormState, body.InternalNote); err != nil {
				writeMappedError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
			return
		case "autosave":
			var body struct {
				Token        string `json:"token"`
				FormState    string `json:"form_state_json"`
				InternalNote string `json:"internal_note"`
			}
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			if err := s.service.AutosaveDraft(r.Context(), assignmentID, body.Token, body.FormState, body.InternalNote); err != nil {
				writeMappedError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
			return
		case "done":
			var body struct {
				Token string `json:"token"`
			}
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			queue, err := s.service.CompleteAssignment(r.Context(), assignmentID, body.Token)
			if err != nil {
				writeMappedError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"assignments": queue})
			return
		}
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func sessionParams(r *http.Request) SessionParams {
	q := r.URL.Query()
	scenarioKey := q.Get("scenario")
	if scenarioKey == "" {
		scenarioKey = q.Get("sid")
	}
	return SessionParams{
		Scenario:     scenarioKey,
		AssignmentID: q.Get("aid"),
		Token:        q.Get("token"),
		Mode:         q.Get("mode"),
	}
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		writer.Header().Set("X-Request-ID", requestID)
		writer.Header().Set("Content-Type", "application/json")

		next.ServeHTTP(writer, r)

		s.log.Info("request",
			zap.String("request_id", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", writer.status),
			zap.Int64("duration_ms", time.Since(started).Milliseconds()),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func writeMappedError(w http.ResponseWriter, err error) {
	status, code, message, details := mapError(err)
	writeError(w, status, code, message, details)
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	var validationErr *evalform.ValidationError
	if errors.As(err, &validationErr) {
		return http.StatusUnprocessableEntity, "VALIDATION_FAILED", validationErr.Message, map[string]any{"field": validationErr.Field}
	}
	if errors.Is(err, evalform.ErrViewOnly) {
		return http.StatusForbidden, "VIEW_ONLY", "This page is read-only", nil
	}
	var requestErr *assignment.RequestError
	if errors.As(err, &requestErr) {
		return http.StatusBadGateway, "REMOTE_FAILED", requestErr.Message, nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

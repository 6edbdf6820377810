package assignment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// RequestError is the single failure kind every remote operation surfaces:
// a non-2xx status and an error-carrying response body are not
// distinguished past this boundary.
type RequestError struct {
	Status  int
	Message string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("assignment request failed: %s", e.Message)
}

// Client talks to the remote endpoint. It is safe for concurrent use,
// though the console drives it from a single goroutine.
type Client struct {
	endpoint string
	http     *http.Client
}

// DefaultTimeout bounds every remote request when no timeout is configured.
const DefaultTimeout = 20 * time.Second

// NewClient creates a client for the fixed remote endpoint URL. A
// non-positive timeout falls back to DefaultTimeout.
func NewClient(endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
	}
}

// Queue fetches the evaluator's assignment queue. The returned slice
// replaces any previously held queue wholesale.
func (c *Client) Queue(ctx context.Context, email, appBase string) ([]Assignment, error) {
	body, err := c.get(ctx, map[string]string{
		"action":   "queue",
		"email":    email,
		"app_base": appBase,
	})
	if err != nil {
		return nil, err
	}
	return decodeAssignments(body)
}

// Get fetches one assignment by id and capability token.
func (c *Client) Get(ctx context.Context, assignmentID, token string) (Assignment, error) {
	body, err := c.get(ctx, map[string]string{
		"action":        "getAssignment",
		"assignment_id": assignmentID,
		"token":         token,
	})
	if err != nil {
		return Assignment{}, err
	}
	var resp struct {
		Assignment Assignment `json:"assignment"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return Assignment{}, &RequestError{Message: "unreadable assignment response"}
	}
	return resp.Assignment, nil
}

// SaveDraft persists a partial form-state snapshot and internal note.
func (c *Client) SaveDraft(ctx context.Context, assignmentID, token, formStateJSON, internalNote string) error {
	_, err := c.post(ctx, map[string]string{
		"action":          "saveDraft",
		"assignment_id":   assignmentID,
		"token":           token,
		"form_state_json": formStateJSON,
		"internal_note":   internalNote,
	})
	return err
}

// Done marks the assignment complete and returns the updated queue, with
// the completed item removed or advanced.
func (c *Client) Done(ctx context.Context, assignmentID, token, appBase string) ([]Assignment, error) {
	body, err := c.post(ctx, map[string]string{
		"action":        "done",
		"assignment_id": assignmentID,
		"token":         token,
		"app_base":      appBase,
	})
	if err != nil {
		return nil, err
	}
	return decodeAssignments(body)
}

// SubmitEvaluation posts the full evaluation payload (category cells, notes,
// zero-tolerance selection and scenario/assignment identifiers).
func (c *Client) SubmitEvaluation(ctx context.Context, payload map[string]string) error {
	_, err := c.post(ctx, payload)
	return err
}

// LogoutBeacon posts a session-end event. Delivery is best-effort: failures
// are swallowed, matching the page-unload beacon it replaces.
func (c *Client) LogoutBeacon(ctx context.Context, payload map[string]string) {
	_, _ = c.post(ctx, payload)
}

func (c *Client) get(ctx context.Context, params map[string]string) ([]byte, error) {
	query := url.Values{}
	for key, value := range params {
		query.Set(key, value)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, &RequestError{Message: err.Error()}
	}
	return c.do(req)
}

func (c *Client) post(ctx context.Context, params map[string]string) ([]byte, error) {
	body, err := json.Marshal(params)
	if err != nil {
		return nil, &RequestError{Message: err.Error()}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &RequestError{Message: err.Error()}
	}
	// The endpoint expects a text body; it rejects preflighted content types.
	req.Header.Set("Content-Type", "text/plain;charset=utf-8")
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &RequestError{Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RequestError{Status: resp.StatusCode, Message: err.Error()}
	}

	// The backend reports failures both ways: via HTTP status and via an
	// error field in an otherwise 200 response. Read the body tolerantly;
	// it is not always valid JSON on error paths.
	if msg := gjson.GetBytes(body, "error").String(); msg != "" {
		return nil, &RequestError{Status: resp.StatusCode, Message: msg}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RequestError{
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("server returned status %d", resp.StatusCode),
		}
	}
	return body, nil
}

func decodeAssignments(body []byte) ([]Assignment, error) {
	var resp struct {
		Assignments []Assignment `json:"assignments"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &RequestError{Message: "unreadable queue response"}
	}
	return resp.Assignments, nil
}

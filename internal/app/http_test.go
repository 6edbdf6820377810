package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"traindeck/internal/assignment"
	"traindeck/internal/state"
)

func newTestServer(t *testing.T, remote *fakeRemote) (*httptest.Server, state.Store) {
	t.Helper()
	svc, states := newTestService(t, remote)
	server := httptest.NewServer(NewHTTPServer(svc, nil).Handler())
	t.Cleanup(server.Close)
	return server, states
}

func getJSON(t *testing.T, url string, target any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if target != nil {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			t.Fatal(err)
		}
	}
	return resp
}

func postJSON(t *testing.T, url, body string, target any) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if target != nil {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			t.Fatal(err)
		}
	}
	return resp
}

func TestHealthEndpoint(t *testing.T) {
	server, _ := newTestServer(t, &fakeRemote{})

	var body map[string]any
	resp := getJSON(t, server.URL+"/api/health", &body)
	if resp.StatusCode != http.StatusOK || body["ok"] != true {
		t.Fatalf("status %d body %v", resp.StatusCode, body)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatal("missing X-Request-ID header")
	}
}

func TestScenarioRoutes(t *testing.T) {
	server, _ := newTestServer(t, &fakeRemote{})

	var list struct {
		Scenarios []map[string]any `json:"scenarios"`
	}
	if resp := getJSON(t, server.URL+"/api/scenarios", &list); resp.StatusCode != http.StatusOK {
		t.Fatalf("list status %d", resp.StatusCode)
	}
	if len(list.Scenarios) != 2 {
		t.Fatalf("got %d scenarios", len(list.Scenarios))
	}

	var sc map[string]any
	if resp := getJSON(t, server.URL+"/api/scenarios/1", &sc); resp.StatusCode != http.StatusOK {
		t.Fatalf("get status %d", resp.StatusCode)
	}
	if sc["id"] != "send-1" {
		t.Fatalf("scenario body: %v", sc)
	}

	var errBody map[string]any
	resp := getJSON(t, server.URL+"/api/scenarios/99", &errBody)
	if resp.StatusCode != http.StatusNotFound || errBody["code"] != "SCENARIO_NOT_FOUND" {
		t.Fatalf("status %d body %v", resp.StatusCode, errBody)
	}
}

func TestPageRouteLockedScenario(t *testing.T) {
	server, _ := newTestServer(t, &fakeRemote{})

	var body map[string]any
	resp := getJSON(t, server.URL+"/api/page?scenario=2", &body)
	if resp.StatusCode != http.StatusForbidden || body["code"] != "SCENARIO_LOCKED" {
		t.Fatalf("status %d body %v", resp.StatusCode, body)
	}
}

func TestStateRoutes(t *testing.T) {
	server, _ := newTestServer(t, &fakeRemote{})
	client := server.Client()

	req, err := http.NewRequest(http.MethodPut, server.URL+"/api/state/session_timer:1", strings.NewReader(`{"value":"00:14:09"}`))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("put status %d", resp.StatusCode)
	}

	var body map[string]any
	if resp := getJSON(t, server.URL+"/api/state/session_timer:1", &body); resp.StatusCode != http.StatusOK {
		t.Fatalf("get status %d", resp.StatusCode)
	}
	if body["value"] != "00:14:09" {
		t.Fatalf("value = %v", body["value"])
	}

	req, err = http.NewRequest(http.MethodDelete, server.URL+"/api/state/session_timer:1", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err = client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete status %d", resp.StatusCode)
	}

	if resp := getJSON(t, server.URL+"/api/state/session_timer:1", nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get after delete status %d", resp.StatusCode)
	}
}

func TestEvaluationRouteValidation(t *testing.T) {
	remote := &fakeRemote{}
	server, _ := newTestServer(t, remote)

	var body map[string]any
	resp := postJSON(t, server.URL+"/api/evaluation", `{"scenario":"1","form":{"notes":"","zero_tolerance":"no"}}`, &body)
	if resp.StatusCode != http.StatusUnprocessableEntity || body["code"] != "VALIDATION_FAILED" {
		t.Fatalf("status %d body %v", resp.StatusCode, body)
	}
	if remote.calls != 0 {
		t.Fatalf("validation failure must not reach the remote, %d calls", remote.calls)
	}
}

func TestEvaluationRouteRemoteFailure(t *testing.T) {
	remote := &fakeRemote{
		submitFn: func(context.Context, map[string]string) error {
			return &assignment.RequestError{Status: 503, Message: "service unavailable"}
		},
	}
	server, states := newTestServer(t, remote)

	var body map[string]any
	resp := postJSON(t, server.URL+"/api/evaluation", `{"scenario":"1","form":{"notes":"fine","zero_tolerance":"no"}}`, &body)
	if resp.StatusCode != http.StatusBadGateway || body["code"] != "REMOTE_FAILED" {
		t.Fatalf("status %d body %v", resp.StatusCode, body)
	}

	raw, err := states.Get(context.Background(), state.KeyFailedQueue)
	if err != nil {
		t.Fatalf("failed queue not persisted: %v", err)
	}
	if !strings.Contains(raw, `"notes":"fine"`) {
		t.Fatalf("queued payload: %s", raw)
	}
}

func TestSessionRoutes(t *testing.T) {
	remote := &fakeRemote{}
	server, _ := newTestServer(t, remote)

	var identity Identity
	resp := postJSON(t, server.URL+"/api/session/login", `{"email":"eva@example.com"}`, &identity)
	if resp.StatusCode != http.StatusOK || identity.Email != "eva@example.com" || identity.IsAdmin {
		t.Fatalf("status %d identity %+v", resp.StatusCode, identity)
	}

	if resp := postJSON(t, server.URL+"/api/session/logout", `{}`, nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("logout status %d", resp.StatusCode)
	}
	if len(remote.beaconPayloads) != 1 {
		t.Fatalf("beacon payloads: %v", remote.beaconPayloads)
	}
}

func TestAssignmentRoutes(t *testing.T) {
	remote := &fakeRemote{
		queueFn: func(context.Context, string, string) ([]assignment.Assignment, error) {
			return []assignment.Assignment{{AssignmentID: "a-1", SendID: "send-1"}}, nil
		},
		doneFn: func(context.Context, string, string, string) ([]assignment.Assignment, error) {
			return []assignment.Assignment{}, nil
		},
	}
	server, _ := newTestServer(t, remote)

	if resp := getJSON(t, server.URL+"/api/assignments", nil); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("queue without identity: status %d", resp.StatusCode)
	}

	postJSON(t, server.URL+"/api/session/login", `{"email":"eva@example.com"}`, nil)

	var queue struct {
		Assignments []assignment.Assignment `json:"assignments"`
	}
	if resp := getJSON(t, server.URL+"/api/assignments", &queue); resp.StatusCode != http.StatusOK {
		t.Fatalf("queue status %d", resp.StatusCode)
	}
	if len(queue.Assignments) != 1 || queue.Assignments[0].AssignmentID != "a-1" {
		t.Fatalf("queue: %+v", queue.Assignments)
	}

	if resp := postJSON(t, server.URL+"/api/assignments/a-1/draft", `{"token":"tok","form_state_json":"{}"}`, nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("draft status %d", resp.StatusCode)
	}
	if resp := postJSON(t, server.URL+"/api/assignments/a-1/done", `{"token":"tok"}`, nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("done status %d", resp.StatusCode)
	}
}

func TestNavRoute(t *testing.T) {
	server, states := newTestServer(t, &fakeRemote{})
	if err := states.Set(context.Background(), state.KeyIdentityAdmin, "true"); err != nil {
		t.Fatal(err)
	}

	var body struct {
		URL   string `json:"url"`
		Moved bool   `json:"moved"`
	}
	resp := postJSON(t, server.URL+"/api/nav/next?scenario=1", ``, &body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if !body.Moved || !strings.Contains(body.URL, "scenario=2") {
		t.Fatalf("nav body: %+v", body)
	}
}

func TestUnknownRoute(t *testing.T) {
	server, _ := newTestServer(t, &fakeRemote{})

	var body map[string]any
	resp := getJSON(t, server.URL+"/api/nope", &body)
	if resp.StatusCode != http.StatusNotFound || body["code"] != "NOT_FOUND" {
		t.Fatalf("status %d body %v", resp.StatusCode, body)
	}
}

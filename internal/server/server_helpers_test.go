package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

type requestOption func(*http.Request)

func doRequest(t *testing.T, ts *httptest.Server, method, path string, payload any, opts ...requestOption) *http.Response {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, ts.URL+path, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, opt := range opts {
		opt(req)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	t.Cleanup(func() {
		_ = resp.Body.Close()
	})
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

// expectStatus decodes the body after checking the status code.
func expectStatus(t *testing.T, resp *http.Response, status int) map[string]any {
	t.Helper()
	if resp.StatusCode != status {
		t.Fatalf("expected status %d, got %d", status, resp.StatusCode)
	}
	return decodeBody(t, resp)
}

// createRoom creates a room as owner and returns its id and join code.
func createRoom(t *testing.T, a *testApp, owner string) (string, string) {
	t.Helper()
	resp := doRequest(t, a.ts, http.MethodPost, "/api/rooms", map[string]any{
		"name":      "周五晚上",
		"nickname":  owner,
		"is_public": true,
	}, a.user(t, owner))
	body := expectStatus(t, resp, http.StatusCreated)
	room := body["room"].(map[string]any)
	return room["id"].(string), room["code"].(string)
}

// joinRoom joins and marks the player ready.
func joinRoom(t *testing.T, a *testApp, roomID, code, userID string) {
	t.Helper()
	resp := doRequest(t, a.ts, http.MethodPost, "/api/rooms/join", map[string]any{
		"code":     code,
		"nickname": userID,
	}, a.user(t, userID))
	expectStatus(t, resp, http.StatusOK)
	resp = doRequest(t, a.ts, http.MethodPost, "/api/rooms/"+roomID+"/ready", map[string]any{"ready": true}, a.user(t, userID))
	expectStatus(t, resp, http.StatusOK)
}

// startGuessing starts the game as owner and selects the first offered word.
// It returns the selected round as the picker sees it.
func startGuessing(t *testing.T, a *testApp, roomID, owner string) map[string]any {
	t.Helper()
	resp := doRequest(t, a.ts, http.MethodPost, "/api/rooms/"+roomID+"/start", nil, a.user(t, owner))
	expectStatus(t, resp, http.StatusOK)

	resp = doRequest(t, a.ts, http.MethodGet, "/api/rooms/"+roomID+"/choices", nil, a.user(t, owner))
	words := expectStatus(t, resp, http.StatusOK)["words"].([]any)
	if len(words) == 0 {
		t.Fatalf("expected word choices for the picker")
	}
	wordID := words[0].(map[string]any)["id"].(string)

	resp = doRequest(t, a.ts, http.MethodPost, "/api/rooms/"+roomID+"/words", map[string]any{"word_id": wordID}, a.user(t, owner))
	body := expectStatus(t, resp, http.StatusOK)
	return body["round"].(map[string]any)
}

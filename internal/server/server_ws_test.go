package server

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wsURL(a *testApp, path string, query url.Values) string {
	u := "ws" + strings.TrimPrefix(a.ts.URL, "http") + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func dialWS(t *testing.T, target string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(target, nil)
	if err != nil {
		t.Skipf("skipping test; websocket dial unavailable: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readWSMessage(t *testing.T, conn *websocket.Conn, timeout time.Duration) map[string]any {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read websocket message: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("decode websocket message: %v", err)
	}
	return decoded
}

// waitForWSMessage reads until match accepts a message or the timeout passes.
func waitForWSMessage(t *testing.T, conn *websocket.Conn, timeout time.Duration, match func(map[string]any) bool) map[string]any {
	t.Helper()
	deadline := time.Now().Add(timeout)
	seen := make([]string, 0)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			t.Fatalf("timed out waiting for websocket message; seen=%v", seen)
		}
		msg := readWSMessage(t, conn, remaining)
		if match(msg) {
			return msg
		}
		typ, _ := msg["type"].(string)
		seen = append(seen, typ)
	}
}

func roundStatus(msg map[string]any) string {
	view, ok := msg["view"].(map[string]any)
	if !ok {
		return ""
	}
	round, ok := view["round"].(map[string]any)
	if !ok {
		return ""
	}
	status, _ := round["status"].(string)
	return status
}

func TestRoomWebsocketStreamsView(t *testing.T) {
	a := newTestApp(t)
	roomID, code := createRoom(t, a, "u0")
	joinRoom(t, a, roomID, code, "u1")

	conn := dialWS(t, wsURL(a, "/ws/rooms/"+roomID, url.Values{"token": {a.token(t, "u1")}}))
	first := readWSMessage(t, conn, 5*time.Second)
	require.Equal(t, "snapshot", first["type"])
	view := first["view"].(map[string]any)
	assert.Equal(t, roomID, view["room"].(map[string]any)["id"])

	resp := doRequest(t, a.ts, http.MethodPost, "/api/rooms/"+roomID+"/start", nil, a.user(t, "u0"))
	expectStatus(t, resp, http.StatusOK)

	msg := waitForWSMessage(t, conn, 5*time.Second, func(m map[string]any) bool {
		return roundStatus(m) == "selecting"
	})
	assert.Nil(t, msg["view"].(map[string]any)["word_choices"])

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "ping"}))
	waitForWSMessage(t, conn, 5*time.Second, func(m map[string]any) bool {
		return m["type"] == "pong"
	})
}

func TestRoomWebsocketGivesPickerTheirChoices(t *testing.T) {
	a := newTestApp(t)
	roomID, code := createRoom(t, a, "u0")
	joinRoom(t, a, roomID, code, "u1")

	conn := dialWS(t, wsURL(a, "/ws/rooms/"+roomID, url.Values{"token": {a.token(t, "u0")}}))
	readWSMessage(t, conn, 5*time.Second)

	resp := doRequest(t, a.ts, http.MethodPost, "/api/rooms/"+roomID+"/start", nil, a.user(t, "u0"))
	expectStatus(t, resp, http.StatusOK)

	msg := waitForWSMessage(t, conn, 5*time.Second, func(m map[string]any) bool {
		view, ok := m["view"].(map[string]any)
		return ok && view["word_choices"] != nil
	})
	assert.Len(t, msg["view"].(map[string]any)["word_choices"], 3)
}

func TestGuestWebsocketRefreshesOnDemand(t *testing.T) {
	a := newTestApp(t)
	roomID, code := createRoom(t, a, "u0")
	resp := doRequest(t, a.ts, http.MethodPost, "/api/rooms/join", map[string]any{"code": code, "nickname": "路人"}, guest("g-1"))
	expectStatus(t, resp, http.StatusOK)

	conn := dialWS(t, wsURL(a, "/ws/rooms/"+roomID, url.Values{"guest_id": {"g-1"}}))
	first := readWSMessage(t, conn, 5*time.Second)
	assert.Len(t, first["view"].(map[string]any)["players"], 2)

	joinRoom(t, a, roomID, code, "u2")
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "refresh"}))
	waitForWSMessage(t, conn, 5*time.Second, func(m map[string]any) bool {
		view, ok := m["view"].(map[string]any)
		if !ok {
			return false
		}
		players, _ := view["players"].([]any)
		return len(players) == 3
	})
}

func TestRoomWebsocketRejectsOutsiders(t *testing.T) {
	a := newTestApp(t)
	roomID, _ := createRoom(t, a, "u0")

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(a, "/ws/rooms/"+roomID, url.Values{"token": {a.token(t, "stranger")}}), nil)
	require.Error(t, err)
	if resp == nil {
		t.Skipf("skipping test; websocket dial unavailable: %v", err)
	}
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(wsURL(a, "/ws/rooms/"+roomID, nil), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLobbyWebsocketRelaysRoomEvents(t *testing.T) {
	a := newTestApp(t)

	conn := dialWS(t, wsURL(a, "/ws/lobby", nil))
	first := readWSMessage(t, conn, 5*time.Second)
	assert.Equal(t, "rooms", first["type"])

	roomID, _ := createRoom(t, a, "u0")
	msg := waitForWSMessage(t, conn, 5*time.Second, func(m map[string]any) bool {
		return m["type"] == "lobby" && m["event"] == "room_created"
	})
	payload := msg["payload"].(map[string]any)
	assert.Equal(t, roomID, payload["id"])
	assert.EqualValues(t, 1, payload["player_count"])
}

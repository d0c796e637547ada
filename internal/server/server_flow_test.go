package server

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthAndMetrics(t *testing.T) {
	a := newTestApp(t)

	resp := doRequest(t, a.ts, http.MethodGet, "/health", nil)
	body := expectStatus(t, resp, http.StatusOK)
	assert.Equal(t, "ok", body["status"])

	resp = doRequest(t, a.ts, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRoomActionsRequireIdentity(t *testing.T) {
	a := newTestApp(t)

	resp := doRequest(t, a.ts, http.MethodPost, "/api/rooms", map[string]any{"name": "x", "nickname": "y"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doRequest(t, a.ts, http.MethodPost, "/api/rooms", map[string]any{"name": "x", "nickname": "y"},
		func(req *http.Request) { req.Header.Set("Authorization", "Bearer not-a-token") })
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doRequest(t, a.ts, http.MethodGet, "/api/rooms", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCreateRoomValidation(t *testing.T) {
	a := newTestApp(t)

	tests := []struct {
		name    string
		payload map[string]any
		message string
	}{
		{"missing name", map[string]any{"nickname": "ada"}, "room name is required"},
		{"long nickname", map[string]any{"name": "room", "nickname": strings.Repeat("长", 21)}, "nickname must be at most 20 letters, digits or punctuation"},
		{"control characters", map[string]any{"name": "room\x00", "nickname": "ada"}, "room name must be at most 32 letters, digits or punctuation"},
		{"too many seats", map[string]any{"name": "room", "nickname": "ada", "max_players": 20}, "a room holds at most 12 players"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doRequest(t, a.ts, http.MethodPost, "/api/rooms", tt.payload, a.user(t, "u0"))
			body := expectStatus(t, resp, http.StatusBadRequest)
			assert.Equal(t, tt.message, body["error"])
		})
	}
}

func TestJoinRoomByCode(t *testing.T) {
	a := newTestApp(t)
	roomID, code := createRoom(t, a, "u0")

	resp := doRequest(t, a.ts, http.MethodPost, "/api/rooms/join", map[string]any{
		"code":     " " + strings.ToLower(code) + " ",
		"nickname": "小明",
	}, a.user(t, "u1"))
	body := expectStatus(t, resp, http.StatusOK)
	player := body["player"].(map[string]any)
	assert.Equal(t, "小明", player["nickname"])
	assert.Equal(t, roomID, player["room_id"])

	resp = doRequest(t, a.ts, http.MethodPost, "/api/rooms/join", map[string]any{"code": "AB", "nickname": "x"}, a.user(t, "u2"))
	body = expectStatus(t, resp, http.StatusBadRequest)
	assert.Equal(t, "join code must be 6 letters or digits", body["error"])

	resp = doRequest(t, a.ts, http.MethodPost, "/api/rooms/join", map[string]any{"code": "ZZZZZZ", "nickname": "x"}, a.user(t, "u2"))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestJoinStartedRoomConflicts(t *testing.T) {
	a := newTestApp(t)
	roomID, code := createRoom(t, a, "u0")
	joinRoom(t, a, roomID, code, "u1")
	startGuessing(t, a, roomID, "u0")

	resp := doRequest(t, a.ts, http.MethodPost, "/api/rooms/join", map[string]any{"code": code, "nickname": "late"}, a.user(t, "u9"))
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestPublicRoomsAndRejoin(t *testing.T) {
	a := newTestApp(t)
	roomID, code := createRoom(t, a, "u0")
	joinRoom(t, a, roomID, code, "u1")

	resp := doRequest(t, a.ts, http.MethodGet, "/api/rooms?limit=5", nil)
	rooms := expectStatus(t, resp, http.StatusOK)["rooms"].([]any)
	require.Len(t, rooms, 1)
	summary := rooms[0].(map[string]any)
	assert.Equal(t, roomID, summary["id"])
	assert.EqualValues(t, 2, summary["player_count"])

	resp = doRequest(t, a.ts, http.MethodPost, "/api/rooms/rejoin", nil, a.user(t, "u1"))
	body := expectStatus(t, resp, http.StatusOK)
	assert.Equal(t, roomID, body["room"].(map[string]any)["id"])

	resp = doRequest(t, a.ts, http.MethodPost, "/api/rooms/rejoin", nil, a.user(t, "stranger"))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRejectedActionIsIgnored(t *testing.T) {
	a := newTestApp(t)
	roomID, code := createRoom(t, a, "u0")
	joinRoom(t, a, roomID, code, "u1")

	resp := doRequest(t, a.ts, http.MethodPost, "/api/rooms/"+roomID+"/start", nil, a.user(t, "u1"))
	body := expectStatus(t, resp, http.StatusAccepted)
	assert.Equal(t, false, body["applied"])

	resp = doRequest(t, a.ts, http.MethodGet, "/api/rooms/"+roomID, nil, a.user(t, "u1"))
	view := expectStatus(t, resp, http.StatusOK)
	assert.Equal(t, "waiting", view["room"].(map[string]any)["status"])
}

func TestSnapshotIsRedactedPerViewer(t *testing.T) {
	a := newTestApp(t)
	roomID, code := createRoom(t, a, "u0")
	joinRoom(t, a, roomID, code, "u1")
	joinRoom(t, a, roomID, code, "u2")

	resp := doRequest(t, a.ts, http.MethodPost, "/api/rooms/"+roomID+"/start", nil, a.user(t, "u0"))
	expectStatus(t, resp, http.StatusOK)

	resp = doRequest(t, a.ts, http.MethodGet, "/api/rooms/"+roomID+"/choices", nil, a.user(t, "u1"))
	assert.Empty(t, expectStatus(t, resp, http.StatusOK)["words"])

	resp = doRequest(t, a.ts, http.MethodGet, "/api/rooms/"+roomID, nil, a.user(t, "u0"))
	picker := expectStatus(t, resp, http.StatusOK)
	assert.Len(t, picker["word_choices"], 3)

	resp = doRequest(t, a.ts, http.MethodGet, "/api/rooms/"+roomID, nil, a.user(t, "u1"))
	guesser := expectStatus(t, resp, http.StatusOK)
	assert.Nil(t, guesser["word_choices"])

	resp = doRequest(t, a.ts, http.MethodGet, "/api/rooms/"+roomID+"/choices", nil, a.user(t, "u0"))
	words := expectStatus(t, resp, http.StatusOK)["words"].([]any)
	wordID := words[0].(map[string]any)["id"].(string)
	resp = doRequest(t, a.ts, http.MethodPost, "/api/rooms/"+roomID+"/words", map[string]any{"word_id": wordID}, a.user(t, "u0"))
	expectStatus(t, resp, http.StatusOK)

	resp = doRequest(t, a.ts, http.MethodGet, "/api/rooms/"+roomID, nil, a.user(t, "u0"))
	round := expectStatus(t, resp, http.StatusOK)["round"].(map[string]any)
	assert.NotEmpty(t, round["word"])

	resp = doRequest(t, a.ts, http.MethodGet, "/api/rooms/"+roomID, nil, a.user(t, "u1"))
	view := expectStatus(t, resp, http.StatusOK)
	round = view["round"].(map[string]any)
	assert.Nil(t, round["word"])
	assert.NotNil(t, round["word_length"])
	assert.EqualValues(t, 120, view["remaining_seconds"])

	word := words[0].(map[string]any)["word"]
	resp = doRequest(t, a.ts, http.MethodPost, "/api/rooms/"+roomID+"/guesses", map[string]any{"text": word}, a.user(t, "u1"))
	require.Equal(t, true, expectStatus(t, resp, http.StatusOK)["guess"].(map[string]any)["is_correct"])

	resp = doRequest(t, a.ts, http.MethodGet, "/api/rooms/"+roomID, nil, a.user(t, "u2"))
	guesses := expectStatus(t, resp, http.StatusOK)["guesses"].([]any)
	require.Len(t, guesses, 1)
	assert.Equal(t, true, guesses[0].(map[string]any)["is_correct"])
	assert.Empty(t, guesses[0].(map[string]any)["text"])

	resp = doRequest(t, a.ts, http.MethodGet, "/api/rooms/"+roomID, nil, a.user(t, "u1"))
	guesses = expectStatus(t, resp, http.StatusOK)["guesses"].([]any)
	assert.Equal(t, word, guesses[0].(map[string]any)["text"])

	resp = doRequest(t, a.ts, http.MethodGet, "/api/rooms/"+roomID+"/events", nil, a.user(t, "u2"))
	events := expectStatus(t, resp, http.StatusOK)["events"].([]any)
	seen := 0
	for _, raw := range events {
		ev := raw.(map[string]any)
		if ev["type"] != "new_guess" {
			continue
		}
		seen++
		assert.Empty(t, ev["payload"].(map[string]any)["text"])
	}
	assert.Equal(t, 1, seen)
}

func TestHintsOverHTTP(t *testing.T) {
	a := newTestApp(t)
	roomID, code := createRoom(t, a, "u0")
	joinRoom(t, a, roomID, code, "u1")
	startGuessing(t, a, roomID, "u0")

	resp := doRequest(t, a.ts, http.MethodGet, "/api/hints", nil)
	types := expectStatus(t, resp, http.StatusOK)["hint_types"].([]any)
	require.Len(t, types, 2)

	hint := map[string]any{"slot": 1, "hint_type_id": "t-color", "hint_option_id": "o-red"}
	resp = doRequest(t, a.ts, http.MethodPost, "/api/rooms/"+roomID+"/hints", hint, a.user(t, "u1"))
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp = doRequest(t, a.ts, http.MethodPost, "/api/rooms/"+roomID+"/hints", hint, a.user(t, "u0"))
	expectStatus(t, resp, http.StatusOK)

	resp = doRequest(t, a.ts, http.MethodPost, "/api/rooms/"+roomID+"/hints", map[string]any{
		"slot": 6, "hint_type_id": "t-size", "hint_option_id": "o-small",
	}, a.user(t, "u0"))
	body := expectStatus(t, resp, http.StatusBadRequest)
	assert.Equal(t, "slot must be between 1 and 5", body["error"])

	resp = doRequest(t, a.ts, http.MethodPut, "/api/rooms/"+roomID+"/hints/1", map[string]any{"hint_option_id": "o-green"}, a.user(t, "u0"))
	updated := expectStatus(t, resp, http.StatusOK)["hint"].(map[string]any)
	assert.Equal(t, "o-green", updated["hint_option_id"])

	resp = doRequest(t, a.ts, http.MethodGet, "/api/rooms/"+roomID, nil, a.user(t, "u1"))
	hints := expectStatus(t, resp, http.StatusOK)["hints"].([]any)
	require.Len(t, hints, 1)
	assert.Equal(t, "o-green", hints[0].(map[string]any)["hint_option_id"])
}

func TestFullGameOverHTTP(t *testing.T) {
	a := newTestApp(t)
	roomID, code := createRoom(t, a, "u0")
	joinRoom(t, a, roomID, code, "u1")

	first := startGuessing(t, a, roomID, "u0")
	resp := doRequest(t, a.ts, http.MethodPost, "/api/rooms/"+roomID+"/guesses", map[string]any{"text": "nope"}, a.user(t, "u1"))
	guess := expectStatus(t, resp, http.StatusOK)["guess"].(map[string]any)
	assert.Equal(t, false, guess["is_correct"])

	resp = doRequest(t, a.ts, http.MethodPost, "/api/rooms/"+roomID+"/guesses", map[string]any{"text": first["word"]}, a.user(t, "u1"))
	guess = expectStatus(t, resp, http.StatusOK)["guess"].(map[string]any)
	assert.Equal(t, true, guess["is_correct"])
	assert.EqualValues(t, 100, guess["points"])

	resp = doRequest(t, a.ts, http.MethodGet, "/api/rooms/"+roomID, nil, a.user(t, "u1"))
	round := expectStatus(t, resp, http.StatusOK)["round"].(map[string]any)
	assert.Equal(t, "ended", round["status"])
	assert.Equal(t, first["word"], round["word"])

	resp = doRequest(t, a.ts, http.MethodPost, "/api/rooms/"+roomID+"/ratings", map[string]any{
		"round_id": first["id"], "rating": "heart",
	}, a.user(t, "u1"))
	expectStatus(t, resp, http.StatusOK)

	resp = doRequest(t, a.ts, http.MethodPost, "/api/rooms/"+roomID+"/ratings", map[string]any{
		"round_id": first["id"], "rating": "meh",
	}, a.user(t, "u1"))
	body := expectStatus(t, resp, http.StatusBadRequest)
	assert.Equal(t, "rating must be heart or poop", body["error"])

	resp = doRequest(t, a.ts, http.MethodGet, "/api/rooms/"+roomID+"/ratings/"+first["id"].(string), nil, a.user(t, "u1"))
	rating := expectStatus(t, resp, http.StatusOK)["rating"].(map[string]any)
	assert.Equal(t, "heart", rating["rating"])

	resp = doRequest(t, a.ts, http.MethodGet, "/api/rooms/"+roomID+"/stats", nil, a.user(t, "u1"))
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp = doRequest(t, a.ts, http.MethodPost, "/api/rooms/"+roomID+"/next", nil, a.user(t, "u0"))
	next := expectStatus(t, resp, http.StatusOK)["round"].(map[string]any)
	assert.Equal(t, "u1", next["picker_id"])

	second := startPickerRound(t, a, roomID, "u1")
	resp = doRequest(t, a.ts, http.MethodPost, "/api/rooms/"+roomID+"/guesses", map[string]any{"text": second["word_en"]}, a.user(t, "u0"))
	assert.Equal(t, true, expectStatus(t, resp, http.StatusOK)["guess"].(map[string]any)["is_correct"])

	resp = doRequest(t, a.ts, http.MethodPost, "/api/rooms/"+roomID+"/ratings", map[string]any{
		"round_id": second["id"], "rating": "poop",
	}, a.user(t, "u0"))
	expectStatus(t, resp, http.StatusOK)

	resp = doRequest(t, a.ts, http.MethodPost, "/api/rooms/"+roomID+"/next", nil, a.user(t, "u0"))
	assert.Nil(t, expectStatus(t, resp, http.StatusOK)["round"])

	resp = doRequest(t, a.ts, http.MethodGet, "/api/rooms/"+roomID+"/stats", nil, a.user(t, "u1"))
	stats := expectStatus(t, resp, http.StatusOK)
	require.Len(t, stats["stats"], 2)
	assert.Equal(t, "u0", stats["best"].(map[string]any)["picker_id"])
	assert.Equal(t, "u1", stats["worst"].(map[string]any)["picker_id"])

	resp = doRequest(t, a.ts, http.MethodGet, "/api/rooms/"+roomID, nil, a.user(t, "u0"))
	view := expectStatus(t, resp, http.StatusOK)
	assert.Equal(t, "finished", view["room"].(map[string]any)["status"])

	user, err := a.store.GetUser(context.Background(), "u0")
	require.NoError(t, err)
	assert.Equal(t, 1, user.GamesPlayed)

	resp = doRequest(t, a.ts, http.MethodGet, "/api/rooms/"+roomID+"/events?limit=3", nil, a.user(t, "u0"))
	events := expectStatus(t, resp, http.StatusOK)["events"].([]any)
	assert.Len(t, events, 3)
}

func TestGuestPlaysWithoutAccount(t *testing.T) {
	a := newTestApp(t)
	roomID, code := createRoom(t, a, "u0")

	resp := doRequest(t, a.ts, http.MethodPost, "/api/rooms/join", map[string]any{"code": code, "nickname": "路人"}, guest("g-1"))
	player := expectStatus(t, resp, http.StatusOK)["player"].(map[string]any)
	assert.Equal(t, true, player["guest"])
	assert.Equal(t, "guest:g-1", player["user_id"])

	resp = doRequest(t, a.ts, http.MethodPost, "/api/rooms/"+roomID+"/leave", nil, guest("g-1"))
	assert.Equal(t, true, expectStatus(t, resp, http.StatusOK)["applied"])

	resp = doRequest(t, a.ts, http.MethodPost, "/api/rooms/join", map[string]any{"code": code, "nickname": "x"}, guest(strings.Repeat("g", 49)))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

// startPickerRound selects the first offered word for the current picker.
func startPickerRound(t *testing.T, a *testApp, roomID, picker string) map[string]any {
	t.Helper()
	resp := doRequest(t, a.ts, http.MethodGet, "/api/rooms/"+roomID+"/choices", nil, a.user(t, picker))
	words := expectStatus(t, resp, http.StatusOK)["words"].([]any)
	require.NotEmpty(t, words)
	wordID := words[0].(map[string]any)["id"].(string)
	resp = doRequest(t, a.ts, http.MethodPost, "/api/rooms/"+roomID+"/words", map[string]any{"word_id": wordID}, a.user(t, picker))
	return expectStatus(t, resp, http.StatusOK)["round"].(map[string]any)
}

package server

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hintparty/internal/bus"
	"hintparty/internal/config"
	"hintparty/internal/db"
	"hintparty/internal/game"
	"hintparty/internal/identity"
	"hintparty/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

var testWords = []db.Word{
	{ID: "w-1", Word: "苹果", WordEn: "Apple", Category: "水果", CategoryEn: "Fruit", Length: 2},
	{ID: "w-2", Word: "长颈鹿", WordEn: "Giraffe", Category: "动物", CategoryEn: "Animal", Length: 3},
	{ID: "w-3", Word: "火车", WordEn: "Train", Category: "交通", CategoryEn: "Transport", Length: 2},
}

func testCatalog() []db.HintType {
	return []db.HintType{
		{ID: "t-color", Name: "颜色", NameEn: "Color", SortOrder: 1, Options: []db.HintOption{
			{ID: "o-red", Value: "红", ValueEn: "Red", SortOrder: 1},
			{ID: "o-green", Value: "绿", ValueEn: "Green", SortOrder: 2},
		}},
		{ID: "t-size", Name: "大小", NameEn: "Size", SortOrder: 2, Options: []db.HintOption{
			{ID: "o-small", Value: "小", ValueEn: "Small", SortOrder: 1},
		}},
	}
}

type testApp struct {
	srv    *Server
	ts     *httptest.Server
	engine *game.Engine
	store  *store.Memory
	issuer *identity.Issuer
}

func newTestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("skipping test; listen unavailable: %v", err)
	}
	ts := &httptest.Server{
		Listener: listener,
		Config:   &http.Server{Handler: handler},
	}
	ts.Start()
	return ts
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	st := store.NewMemory()
	words := append([]db.Word(nil), testWords...)
	require.NoError(t, store.Seed(ctx, st, words, testCatalog()))

	b := bus.NewLocal()
	engine := game.NewEngine(st, b, game.Options{
		RoundDuration:     120 * time.Second,
		PollInterval:      time.Hour,
		HeartbeatInterval: time.Hour,
		WordChoices:       3,
		MaxPlayers:        8,
		Shuffle:           func(int, func(i, j int)) {},
	})

	cfg := config.Default()
	cfg.Env = "test"
	cfg.RateLimitPerSecond = 1000
	cfg.RateLimitBurst = 1000
	issuer := identity.NewIssuer(cfg.JWTSecret, time.Hour)

	srv := New(engine, b, issuer, cfg)
	require.NoError(t, srv.Start(ctx))
	ts := newTestServer(t, srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.Close()
		engine.Close()
	})
	return &testApp{srv: srv, ts: ts, engine: engine, store: st, issuer: issuer}
}

// user returns a request option that signs the request in as userID.
func (a *testApp) user(t *testing.T, userID string) requestOption {
	t.Helper()
	token := a.token(t, userID)
	return func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func guest(id string) requestOption {
	return func(req *http.Request) {
		req.Header.Set(guestHeader, id)
	}
}

func (a *testApp) token(t *testing.T, userID string) string {
	t.Helper()
	token, err := a.issuer.Sign(userID)
	require.NoError(t, err)
	return token
}

package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"hintparty/internal/bus"
	"hintparty/internal/game"
	"hintparty/internal/log"
	"hintparty/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 30 * time.Second
	wsReadLimit  = 4096
	wsReplyQueue = 4
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsCommand is what a room client may send: visibility changes, a forced
// refresh, or an application-level ping.
type wsCommand struct {
	Type    string `json:"type"`
	Visible *bool  `json:"visible,omitempty"`
}

type wsMessage struct {
	Type    string             `json:"type"`
	View    *game.View         `json:"view,omitempty"`
	Rooms   []game.RoomSummary `json:"rooms,omitempty"`
	Event   string             `json:"event,omitempty"`
	Payload json.RawMessage    `json:"payload,omitempty"`
}

// handleRoomWebsocket streams the caller's view of a room. Each connection
// owns one game session; the handler blocks until either side goes away.
func (s *Server) handleRoomWebsocket(c *gin.Context) {
	var uri roomURI
	if !bindURI(c, &uri) {
		return
	}
	who := callerIdentity(c)
	ctx, cancel := context.WithCancel(context.WithoutCancel(c.Request.Context()))
	defer cancel()

	session, err := s.engine.OpenSession(ctx, who, uri.ID)
	if err != nil {
		if errors.Is(err, game.ErrRejected) {
			c.JSON(http.StatusForbidden, gin.H{"error": "not a member of this room"})
			return
		}
		s.respondError(c, err)
		return
	}
	defer session.Close()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Debug().Err(err).Str("room_id", uri.ID).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()
	metrics.WsConnections.Inc()
	defer metrics.WsConnections.Dec()
	s.log.Info().Str("room_id", uri.ID).Str("user_id", who.UserID).Str("remote", c.Request.RemoteAddr).Msg("ws connected")

	replies := make(chan wsMessage, wsReplyQueue)
	readDone := make(chan struct{})
	go s.readRoomWS(ctx, conn, session, replies, readDone)
	s.writeRoomWS(conn, session, replies, readDone)
	s.log.Info().Str("room_id", uri.ID).Str("user_id", who.UserID).Msg("ws disconnected")
}

func (s *Server) readRoomWS(ctx context.Context, conn *websocket.Conn, session *game.Session, replies chan<- wsMessage, readDone chan<- struct{}) {
	defer close(readDone)
	conn.SetReadLimit(wsReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		var cmd wsCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			continue
		}
		switch cmd.Type {
		case "visibility":
			if cmd.Visible != nil {
				session.SetVisible(ctx, *cmd.Visible)
			}
		case "refresh":
			session.Refresh()
		case "ping":
			select {
			case replies <- wsMessage{Type: "pong"}:
			default:
			}
		}
	}
}

// writeRoomWS is the only writer on conn.
func (s *Server) writeRoomWS(conn *websocket.Conn, session *game.Session, replies <-chan wsMessage, readDone <-chan struct{}) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	viewer := session.Identity().UserID

	send := func(msg wsMessage) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteJSON(msg) == nil
	}
	pushView := func() bool {
		view := session.View().Redact(viewer)
		return send(wsMessage{Type: "snapshot", View: &view})
	}

	if !pushView() {
		return
	}
	for {
		select {
		case <-session.Updates():
			if !pushView() {
				return
			}
		case msg := <-replies:
			if !send(msg) {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-session.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended"),
				time.Now().Add(wsWriteWait))
			return
		case <-readDone:
			return
		}
	}
}

// lobbyHub relays lobby bus events to everyone browsing public rooms.
type lobbyHub struct {
	engine *game.Engine
	log    zerolog.Logger

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}

	sub  *bus.Subscription
	done chan struct{}
}

func newLobbyHub(engine *game.Engine) *lobbyHub {
	return &lobbyHub{
		engine: engine,
		log:    log.Component("lobby_ws"),
		conns:  make(map[*websocket.Conn]struct{}),
		done:   make(chan struct{}),
	}
}

func (h *lobbyHub) Start(ctx context.Context, b bus.Bus) error {
	sub, err := b.Subscribe(ctx, bus.LobbyChannel)
	if err != nil {
		return err
	}
	h.sub = sub
	go h.run(sub)
	return nil
}

func (h *lobbyHub) run(sub *bus.Subscription) {
	defer close(h.done)
	for msg := range sub.C() {
		h.Broadcast(wsMessage{Type: "lobby", Event: msg.Event, Payload: msg.Payload})
	}
}

func (h *lobbyHub) Close() {
	if h.sub == nil {
		return
	}
	_ = h.sub.Close()
	<-h.done
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		_ = conn.Close()
		delete(h.conns, conn)
	}
}

// Add registers conn and sends it the current room list. Writes happen under
// mu so a connection never has two writers.
func (h *lobbyHub) Add(conn *websocket.Conn, rooms []game.RoomSummary) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn] = struct{}{}
	if !h.write(conn, wsMessage{Type: "rooms", Rooms: rooms}) {
		h.remove(conn)
	}
}

func (h *lobbyHub) Remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.remove(conn)
}

func (h *lobbyHub) Broadcast(msg wsMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		if !h.write(conn, msg) {
			h.remove(conn)
		}
	}
}

func (h *lobbyHub) remove(conn *websocket.Conn) {
	if _, ok := h.conns[conn]; !ok {
		return
	}
	delete(h.conns, conn)
	_ = conn.Close()
}

func (h *lobbyHub) write(conn *websocket.Conn, msg wsMessage) bool {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := conn.WriteJSON(msg); err != nil {
		h.log.Debug().Err(err).Msg("lobby write failed")
		return false
	}
	return true
}

func (s *Server) handleLobbyWebsocket(c *gin.Context) {
	rooms, err := s.engine.PublicRooms(c.Request.Context(), defaultRoomsLimit)
	if err != nil {
		s.respondError(c, err)
		return
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	metrics.WsConnections.Inc()
	defer metrics.WsConnections.Dec()
	s.lobby.Add(conn, rooms)
	defer s.lobby.Remove(conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

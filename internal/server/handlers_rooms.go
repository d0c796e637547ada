package server

import (
	"context"
	"net/http"

	"hintparty/internal/game"
	"hintparty/internal/identity"

	"github.com/gin-gonic/gin"
)

type createRoomRequest struct {
	Name       string `json:"name" binding:"required,roomname"`
	Nickname   string `json:"nickname" binding:"required,nickname"`
	Public     bool   `json:"is_public"`
	MaxPlayers int    `json:"max_players" binding:"omitempty,min=2,max=12"`
}

type joinRoomRequest struct {
	Code     string `json:"code" binding:"required,joincode"`
	Nickname string `json:"nickname" binding:"required,nickname"`
}

type readyRequest struct {
	Ready *bool `json:"ready" binding:"required"`
}

var roomMessages = bindMessages{
	"Name": {
		"required": "room name is required",
		"roomname": "room name must be at most 32 letters, digits or punctuation",
	},
	"Nickname": {
		"required": "nickname is required",
		"nickname": "nickname must be at most 20 letters, digits or punctuation",
	},
	"MaxPlayers": {
		"min": "a room needs space for at least 2 players",
		"max": "a room holds at most 12 players",
	},
	"Code": {
		"required": "join code is required",
		"joincode": "join code must be 6 letters or digits",
	},
}

func (s *Server) handleListRooms(c *gin.Context) {
	rooms, err := s.engine.PublicRooms(c.Request.Context(), parseLimit(c, defaultRoomsLimit, defaultRoomsLimit))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

func (s *Server) handleCreateRoom(c *gin.Context) {
	var req createRoomRequest
	if !bindJSON(c, &req, roomMessages, "invalid room") {
		return
	}
	room, player, err := s.engine.CreateRoom(c.Request.Context(), callerIdentity(c), game.CreateRoomInput{
		Name:       normalizeText(req.Name),
		Nickname:   normalizeText(req.Nickname),
		Public:     req.Public,
		MaxPlayers: req.MaxPlayers,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"room": room, "player": player})
}

func (s *Server) handleJoinRoom(c *gin.Context) {
	var req joinRoomRequest
	if !bindJSON(c, &req, roomMessages, "invalid join request") {
		return
	}
	room, player, err := s.engine.JoinRoom(c.Request.Context(), callerIdentity(c), req.Code, normalizeText(req.Nickname))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"room": room, "player": player})
}

func (s *Server) handleRejoin(c *gin.Context) {
	room, player, err := s.engine.Rejoin(c.Request.Context(), callerIdentity(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"room": room, "player": player})
}

func (s *Server) handleGetRoom(c *gin.Context) {
	var uri roomURI
	if !bindURI(c, &uri) {
		return
	}
	view, err := s.viewFor(c.Request.Context(), callerIdentity(c), uri.ID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) handleLeaveRoom(c *gin.Context) {
	var uri roomURI
	if !bindURI(c, &uri) {
		return
	}
	if err := s.engine.LeaveRoom(c.Request.Context(), callerIdentity(c), uri.ID); err != nil {
		s.respondError(c, err)
		return
	}
	applied(c, nil)
}

func (s *Server) handleSetReady(c *gin.Context) {
	var uri roomURI
	if !bindURI(c, &uri) {
		return
	}
	var req readyRequest
	if !bindJSON(c, &req, nil, "ready flag is required") {
		return
	}
	player, err := s.engine.SetReady(c.Request.Context(), callerIdentity(c), uri.ID, *req.Ready)
	if err != nil {
		s.respondError(c, err)
		return
	}
	applied(c, gin.H{"player": player})
}

// viewFor builds the caller's redacted view of a room, the same shape the
// websocket pushes.
func (s *Server) viewFor(ctx context.Context, who identity.Identity, roomID string) (game.View, error) {
	snap, err := s.engine.Snapshot(ctx, roomID)
	if err != nil {
		return game.View{}, err
	}
	view := game.View{Snapshot: *snap}
	if snap.Round != nil {
		opts := s.engine.Options()
		view.RemainingSeconds = game.Remaining(snap.Round, opts.Now(), opts.RoundDuration)
		view.WordChoices = s.engine.PendingWordChoices(snap.Round.ID, who.UserID)
		view.ChoicesRoundID = snap.Round.ID
	}
	return view.Redact(who.UserID), nil
}

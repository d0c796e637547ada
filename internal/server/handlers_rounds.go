package server

import (
	"net/http"

	"hintparty/internal/db"

	"github.com/gin-gonic/gin"
)

type selectWordRequest struct {
	WordID string `json:"word_id" binding:"required,max=36"`
}

type guessRequest struct {
	Text string `json:"text" binding:"required,guess"`
}

type addHintRequest struct {
	Slot         int    `json:"slot" binding:"required,min=1,max=5"`
	HintTypeID   string `json:"hint_type_id" binding:"required,max=36"`
	HintOptionID string `json:"hint_option_id" binding:"required,max=36"`
}

type updateHintRequest struct {
	HintOptionID string `json:"hint_option_id" binding:"required,max=36"`
}

var roundMessages = bindMessages{
	"WordID": {"required": "word_id is required"},
	"Text": {
		"required": "guess is required",
		"guess":    "guess must be 120 characters or fewer",
	},
	"Slot": {
		"required": "slot is required",
		"min":      "slot must be between 1 and 5",
		"max":      "slot must be between 1 and 5",
	},
	"HintTypeID":   {"required": "hint_type_id is required"},
	"HintOptionID": {"required": "hint_option_id is required"},
}

func (s *Server) handleStartGame(c *gin.Context) {
	var uri roomURI
	if !bindURI(c, &uri) {
		return
	}
	round, err := s.engine.StartGame(c.Request.Context(), callerIdentity(c), uri.ID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	applied(c, gin.H{"round": round})
}

func (s *Server) handleWordChoices(c *gin.Context) {
	var uri roomURI
	if !bindURI(c, &uri) {
		return
	}
	who := callerIdentity(c)
	snap, err := s.engine.Snapshot(c.Request.Context(), uri.ID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	words := []db.Word{}
	if snap.Round != nil && snap.Round.Status == db.RoundSelecting {
		if offered := s.engine.PendingWordChoices(snap.Round.ID, who.UserID); offered != nil {
			words = offered
		}
	}
	c.JSON(http.StatusOK, gin.H{"words": words})
}

func (s *Server) handleSelectWord(c *gin.Context) {
	var uri roomURI
	if !bindURI(c, &uri) {
		return
	}
	var req selectWordRequest
	if !bindJSON(c, &req, roundMessages, "invalid word") {
		return
	}
	round, err := s.engine.SelectWord(c.Request.Context(), callerIdentity(c), uri.ID, req.WordID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	applied(c, gin.H{"round": round})
}

func (s *Server) handleSubmitGuess(c *gin.Context) {
	var uri roomURI
	if !bindURI(c, &uri) {
		return
	}
	var req guessRequest
	if !bindJSON(c, &req, roundMessages, "invalid guess") {
		return
	}
	guess, err := s.engine.SubmitGuess(c.Request.Context(), callerIdentity(c), uri.ID, normalizeText(req.Text))
	if err != nil {
		s.respondError(c, err)
		return
	}
	applied(c, gin.H{"guess": guess})
}

func (s *Server) handleAddHint(c *gin.Context) {
	var uri roomURI
	if !bindURI(c, &uri) {
		return
	}
	var req addHintRequest
	if !bindJSON(c, &req, roundMessages, "invalid hint") {
		return
	}
	hint, err := s.engine.AddHint(c.Request.Context(), callerIdentity(c), uri.ID, req.Slot, req.HintTypeID, req.HintOptionID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	applied(c, gin.H{"hint": hint})
}

func (s *Server) handleUpdateHint(c *gin.Context) {
	var uri hintSlotURI
	if !bindURI(c, &uri) {
		return
	}
	var req updateHintRequest
	if !bindJSON(c, &req, roundMessages, "invalid hint") {
		return
	}
	hint, err := s.engine.UpdateHint(c.Request.Context(), callerIdentity(c), uri.ID, uri.Slot, req.HintOptionID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	applied(c, gin.H{"hint": hint})
}

func (s *Server) handleNextRound(c *gin.Context) {
	var uri roomURI
	if !bindURI(c, &uri) {
		return
	}
	round, err := s.engine.NextRound(c.Request.Context(), callerIdentity(c), uri.ID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	applied(c, gin.H{"round": round})
}

func (s *Server) handleTimeout(c *gin.Context) {
	var uri roomURI
	if !bindURI(c, &uri) {
		return
	}
	if err := s.engine.EndRoundOnTimeout(c.Request.Context(), callerIdentity(c), uri.ID); err != nil {
		s.respondError(c, err)
		return
	}
	applied(c, nil)
}

func (s *Server) handleHintCatalog(c *gin.Context) {
	types, err := s.engine.HintCatalog(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"hint_types": types})
}

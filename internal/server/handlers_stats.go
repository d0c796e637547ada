package server

import (
	"errors"
	"net/http"

	"hintparty/internal/db"
	"hintparty/internal/game"

	"github.com/gin-gonic/gin"
)

type rateRoundRequest struct {
	RoundID string `json:"round_id" binding:"required,max=36"`
	Rating  string `json:"rating" binding:"required,oneof=heart poop"`
}

var ratingMessages = bindMessages{
	"RoundID": {"required": "round_id is required"},
	"Rating": {
		"required": "rating is required",
		"oneof":    "rating must be heart or poop",
	},
}

func (s *Server) handleRateRound(c *gin.Context) {
	var uri roomURI
	if !bindURI(c, &uri) {
		return
	}
	var req rateRoundRequest
	if !bindJSON(c, &req, ratingMessages, "invalid rating") {
		return
	}
	rating, err := s.engine.RateRound(c.Request.Context(), callerIdentity(c), uri.ID, req.RoundID, req.Rating)
	if err != nil {
		s.respondError(c, err)
		return
	}
	applied(c, gin.H{"rating": rating})
}

func (s *Server) handleMyRating(c *gin.Context) {
	var uri ratingURI
	if !bindURI(c, &uri) {
		return
	}
	rating, err := s.engine.MyRating(c.Request.Context(), callerIdentity(c), uri.RoundID)
	if err != nil {
		if errors.Is(err, game.ErrNotFound) {
			c.JSON(http.StatusOK, gin.H{"rating": nil})
			return
		}
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rating": rating})
}

func (s *Server) handlePickerStats(c *gin.Context) {
	var uri roomURI
	if !bindURI(c, &uri) {
		return
	}
	stats, err := s.engine.PickerStats(c.Request.Context(), uri.ID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if stats == nil {
		stats = []db.PickerStat{}
	}
	best, worst := game.BestWorst(stats)
	c.JSON(http.StatusOK, gin.H{"stats": stats, "best": best, "worst": worst})
}

func (s *Server) handleEvents(c *gin.Context) {
	var uri roomURI
	if !bindURI(c, &uri) {
		return
	}
	events, err := s.engine.Events(c.Request.Context(), uri.ID, callerIdentity(c).UserID, parseLimit(c, defaultEventsLimit, maxEventsLimit))
	if err != nil {
		s.respondError(c, err)
		return
	}
	if events == nil {
		events = []db.Event{}
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

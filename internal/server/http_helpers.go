package server

import (
	"errors"
	"net/http"

	"hintparty/internal/game"
	"hintparty/internal/identity"

	"github.com/gin-gonic/gin"
)

// respondError maps engine errors onto status codes. Role and state
// mismatches are not failures: the action is ignored and the caller is told
// nothing was applied.
func (s *Server) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, game.ErrRejected):
		c.JSON(http.StatusAccepted, gin.H{"applied": false, "reason": err.Error()})
	case errors.Is(err, game.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, game.ErrRoomFull):
		c.JSON(http.StatusConflict, gin.H{"error": "room is full"})
	case errors.Is(err, game.ErrRoomClosed):
		c.JSON(http.StatusConflict, gin.H{"error": "room is not accepting new players"})
	case errors.Is(err, identity.ErrMissing):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
	default:
		s.log.Error().Err(err).Str("method", c.Request.Method).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func applied(c *gin.Context, payload gin.H) {
	if payload == nil {
		payload = gin.H{}
	}
	payload["applied"] = true
	c.JSON(http.StatusOK, payload)
}

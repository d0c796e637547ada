package server

import (
	"errors"
	"net/http"

	"hintparty/internal/identity"

	"github.com/gin-gonic/gin"
)

const (
	identityKey    = "identity"
	guestHeader    = "X-Guest-ID"
	maxGuestLength = 48
)

// resolveIdentity reads a bearer token or guest id from the headers. Browsers
// cannot set headers on websocket upgrades, so token and guest_id query
// parameters are accepted as well.
func (s *Server) resolveIdentity(c *gin.Context) (identity.Identity, error) {
	authz := c.GetHeader("Authorization")
	guest := c.GetHeader(guestHeader)
	if authz == "" && guest == "" {
		if token := c.Query("token"); token != "" {
			authz = "Bearer " + token
		}
		guest = c.Query("guest_id")
	}
	if len(guest) > maxGuestLength {
		return identity.Identity{}, errors.New("guest id too long")
	}
	return s.issuer.Resolve(authz, guest)
}

func (s *Server) requireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		who, err := s.resolveIdentity(c)
		if err != nil {
			s.log.Debug().Err(err).Str("path", c.FullPath()).Msg("identity rejected")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Set(identityKey, who)
		c.Next()
	}
}

func callerIdentity(c *gin.Context) identity.Identity {
	if v, ok := c.Get(identityKey); ok {
		if who, ok := v.(identity.Identity); ok {
			return who
		}
	}
	return identity.Identity{}
}

package server

import (
	"context"
	"net/http"
	"time"

	"hintparty/internal/bus"
	"hintparty/internal/config"
	"hintparty/internal/game"
	"hintparty/internal/identity"
	"hintparty/internal/log"
	"hintparty/internal/metrics"
	"hintparty/internal/mw"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

type Server struct {
	engine  *game.Engine
	bus     bus.Bus
	issuer  *identity.Issuer
	cfg     config.Config
	limiter *mw.Limiter
	lobby   *lobbyHub
	log     zerolog.Logger
}

func New(engine *game.Engine, b bus.Bus, issuer *identity.Issuer, cfg config.Config) *Server {
	registerValidators()
	limit := rate.Limit(cfg.RateLimitPerSecond)
	if cfg.RateLimitPerSecond <= 0 {
		limit = rate.Inf
	}
	return &Server{
		engine:  engine,
		bus:     b,
		issuer:  issuer,
		cfg:     cfg,
		limiter: mw.NewLimiter(limit, cfg.RateLimitBurst, 10*time.Minute),
		lobby:   newLobbyHub(engine),
		log:     log.Component("server"),
	}
}

// Start subscribes the lobby feed. It returns once the subscription exists.
func (s *Server) Start(ctx context.Context) error {
	return s.lobby.Start(ctx, s.bus)
}

func (s *Server) Close() {
	s.lobby.Close()
	s.limiter.Stop()
}

func (s *Server) Handler() http.Handler {
	if s.cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(metrics.GinMiddleware())
	r.Use(mw.CORS(s.cfg.Env))

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api", mw.RateLimit(s.limiter))
	api.GET("/rooms", s.handleListRooms)
	api.GET("/hints", s.handleHintCatalog)

	authed := api.Group("", s.requireIdentity())
	authed.POST("/rooms", s.handleCreateRoom)
	authed.POST("/rooms/join", s.handleJoinRoom)
	authed.POST("/rooms/rejoin", s.handleRejoin)
	authed.GET("/rooms/:id", s.handleGetRoom)
	authed.POST("/rooms/:id/leave", s.handleLeaveRoom)
	authed.POST("/rooms/:id/ready", s.handleSetReady)
	authed.POST("/rooms/:id/start", s.handleStartGame)
	authed.POST("/rooms/:id/words", s.handleSelectWord)
	authed.GET("/rooms/:id/choices", s.handleWordChoices)
	authed.POST("/rooms/:id/guesses", s.handleSubmitGuess)
	authed.POST("/rooms/:id/hints", s.handleAddHint)
	authed.PUT("/rooms/:id/hints/:slot", s.handleUpdateHint)
	authed.POST("/rooms/:id/next", s.handleNextRound)
	authed.POST("/rooms/:id/timeout", s.handleTimeout)
	authed.POST("/rooms/:id/ratings", s.handleRateRound)
	authed.GET("/rooms/:id/ratings/:round_id", s.handleMyRating)
	authed.GET("/rooms/:id/stats", s.handlePickerStats)
	authed.GET("/rooms/:id/events", s.handleEvents)

	r.GET("/ws/lobby", s.handleLobbyWebsocket)
	r.GET("/ws/rooms/:id", s.requireIdentity(), s.handleRoomWebsocket)
	return r
}

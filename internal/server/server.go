package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	goredis "github.com/redis/go-redis/v9"

	"github.com/intisor/AnnounceHub/internal/announce"
	"github.com/intisor/AnnounceHub/internal/config"
	"github.com/intisor/AnnounceHub/internal/domain"
	apperrors "github.com/intisor/AnnounceHub/internal/errors"
)

const sessionMaxAgeSeconds = 86400 // 1 day, matching the original cookie lifetime

// postgresPinger is a minimal interface for PostgreSQL health checks.
type postgresPinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	echo           *echo.Echo
	config         *config.Config
	hub            *announce.Hub
	users          domain.UserRepository
	sessionStore   *sessions.CookieStore
	upgrader       websocket.Upgrader
	clock          clockwork.Clock
	db             postgresPinger
	redisClient    *goredis.Client
	publishLimiter *identityRateLimiter
	startTime      time.Time
}

func NewServer(cfg *config.Config, hub *announce.Hub, users domain.UserRepository, db postgresPinger, redisClient *goredis.Client, clock clockwork.Clock) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(apperrors.Middleware())

	sessionStore := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	sessionStore.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   sessionMaxAgeSeconds,
		HttpOnly: true,
		Secure:   cfg.AppEnv == "production",
		SameSite: http.SameSiteLaxMode,
	}

	srv := &Server{
		echo:         e,
		config:       cfg,
		hub:          hub,
		users:        users,
		sessionStore: sessionStore,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     newCheckOrigin(cfg.AppURL, cfg.AppEnv != "production"),
		},
		clock:          clock,
		db:             db,
		redisClient:    redisClient,
		publishLimiter: newIdentityRateLimiter(cfg.PublishRate, cfg.PublishBurst),
		startTime:      clock.Now(),
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

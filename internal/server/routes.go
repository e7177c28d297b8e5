package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	// Observability endpoints (no auth required)
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Auth routes
	s.echo.POST("/auth/register", s.handleRegister)
	s.echo.POST("/auth/login", s.handleLogin)
	s.echo.POST("/auth/logout", s.handleLogout, s.requireAuth)

	// History is public (the original landing page listed announcements
	// to anonymous visitors); publishing is authenticated and rate limited.
	s.echo.GET("/announcements", s.handleListAnnouncements)
	s.echo.POST("/announcements", s.handlePublish, s.requireAuth, s.publishRateLimit)

	// Live feed - anonymous viewers allowed, like the original hub
	s.echo.GET("/ws", s.handleWebSocket)
}

package server

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/intisor/AnnounceHub/internal/domain"
	ws "github.com/intisor/AnnounceHub/internal/websocket"
)

type publishRequest struct {
	Message string `json:"message" form:"message"`
}

func (s *Server) handleListAnnouncements(c echo.Context) error {
	records, err := s.hub.List(c.Request().Context())
	if err != nil {
		return err
	}
	if records == nil {
		records = []domain.Announcement{}
	}
	return c.JSON(http.StatusOK, records)
}

func (s *Server) handlePublish(c echo.Context) error {
	var req publishRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	identity := identityFromContext(c)

	announcement, err := s.hub.Publish(c.Request().Context(), identity, req.Message)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, announcement)
}

func (s *Server) handleWebSocket(c echo.Context) error {
	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return nil // Upgrade already wrote the error response
	}

	sender := ws.NewConnSender(conn, s.clock)
	registry := s.hub.Registry()
	id := registry.Connect(sender)
	slog.Debug("Subscriber connected", "subscriber", id)

	defer func() {
		registry.Disconnect(id)
		slog.Debug("Subscriber disconnected", "subscriber", id)
	}()

	// Read loop: we never expect inbound messages, but reading is how the
	// transport reports closure (and how pongs refresh the read deadline).
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return nil
		}
	}
}

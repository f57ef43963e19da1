package api

import (
	"context"
	"net/http"
	"time"

	"AstroTransit/internal/domain/models"
	"AstroTransit/internal/usecase"
	xlogger "AstroTransit/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const wsWriteWait = 10 * time.Second

// ReportStreamer pushes report days over a websocket as they are scanned.
type ReportStreamer struct {
	logger    *xlogger.Logger
	generator *usecase.ReportGenerator
	upgrader  websocket.Upgrader
}

func NewReportStreamer(logger *xlogger.Logger, generator *usecase.ReportGenerator) *ReportStreamer {
	return &ReportStreamer{
		logger:    logger,
		generator: generator,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

type streamEnd struct {
	Done  bool   `json:"done"`
	Error string `json:"error,omitempty"`
}

// Weekly streams the weekly report for ?start=&end= one day per message,
// then a final {"done":true}.
func (s *ReportStreamer) Weekly(c echo.Context) error {
	start, err := s.generator.ParseDate(c.QueryParam("start"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{"status": http.StatusBadRequest, "message": err.Error()})
	}
	end, err := s.generator.ParseDate(c.QueryParam("end"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{"status": http.StatusBadRequest, "message": err.Error()})
	}

	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", xlogger.Error(err))
		return nil
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()
	// the client never sends; a read error means it went away
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	days := 0
	err = s.generator.Stream(ctx, usecase.ReportParams{Mode: models.ModeWeekly, Start: start, End: end},
		func(d models.DailyTransits) error {
			days++
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			return conn.WriteJSON(d)
		})

	final := streamEnd{Done: true}
	if err != nil {
		s.logger.Warn("weekly stream aborted", xlogger.Int("days_sent", days), xlogger.Error(err))
		final.Error = err.Error()
	}
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if werr := conn.WriteJSON(final); werr == nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(wsWriteWait))
	}
	return nil
}

package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	progressWriteWait = 10 * time.Second
	progressPongWait  = 60 * time.Second
	progressPingEvery = 45 * time.Second
)

var progressUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The API is CORS-open, mirror that for the socket endpoint
	CheckOrigin: func(r *http.Request) bool { return true },
}

// SubscribeProgress handles GET /api/v1/repositories/:repository_id/progress
// Upgrades to a WebSocket and streams progress events for one repository.
// Events emitted before the client connected are not replayed.
func (h *RepositoryHandler) SubscribeProgress(c *gin.Context) {
	repositoryID := c.Param("repository_id")

	if _, err := uuid.Parse(repositoryID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "repository_id must be a valid UUID",
		})
		return
	}

	conn, err := progressUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("WebSocket upgrade failed",
			slog.String("repository_id", repositoryID),
			slog.String("error", err.Error()),
		)
		return
	}

	sub := h.hub.Subscribe(repositoryID)

	h.logger.Info("Progress subscriber connected",
		slog.String("repository_id", repositoryID),
		slog.String("remote_addr", conn.RemoteAddr().String()),
	)

	done := make(chan struct{})

	// Read loop exists only to notice the client going away
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(progressPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(progressPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(progressPingEvery)
	defer func() {
		ticker.Stop()
		h.hub.Unsubscribe(sub)
		_ = conn.Close()
		h.logger.Info("Progress subscriber disconnected",
			slog.String("repository_id", repositoryID),
		)
	}()

	for {
		select {
		case <-done:
			return

		case payload, ok := <-sub.Events:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(progressWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				h.logger.Debug("Progress write failed",
					slog.String("repository_id", repositoryID),
					slog.String("error", err.Error()),
				)
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(progressWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

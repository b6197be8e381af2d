package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/newsroom-authoring-api/internal/patches"
	"github.com/rs/zerolog"
)

// WSHandler serves the per-article patch feed over websockets.
type WSHandler struct {
	hub      *patches.Hub
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

// NewWSHandler creates a new WSHandler
func NewWSHandler(hub *patches.Hub, log zerolog.Logger) *WSHandler {
	return &WSHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: log.With().Str("handler", "ws").Logger(),
	}
}

// PatchFeed handles GET /v1/archive/:id/ws. Each event broadcast for the
// article is written to the connection as one JSON message.
func (h *WSHandler) PatchFeed(c *gin.Context) {
	itemID := c.Param("id")

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn().Err(err).Str("item_id", itemID).Msg("Websocket upgrade failed")
		return
	}

	events, unsubscribe := h.hub.Subscribe(itemID)
	defer unsubscribe()
	defer conn.Close()

	// Reader goroutine exists only to detect the peer closing.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				h.log.Debug().Err(err).Str("item_id", itemID).Msg("Patch feed write failed")
				return
			}
		case <-closed:
			return
		}
	}
}

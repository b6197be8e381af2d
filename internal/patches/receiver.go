package patches

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/newsroom-authoring-api/internal/client"
	"github.com/newsroom-authoring-api/internal/models"
	"github.com/rs/zerolog"
)

// wsListener subscribes to the archive patch feed over a websocket.
type wsListener struct {
	baseURL   string
	sessionID string
	log       zerolog.Logger
}

// NewWSListener creates a Listener connecting to the archive API's websocket
// patch feed. Events originated by sessionID are filtered out so a session
// never receives its own saves back.
func NewWSListener(baseURL, sessionID string, log zerolog.Logger) Listener {
	return &wsListener{
		baseURL:   baseURL,
		sessionID: sessionID,
		log:       log.With().Str("component", "patch-listener").Logger(),
	}
}

func (l *wsListener) Subscribe(ctx context.Context, itemID string, onPatch, onOverwrite func(models.Patch)) (func(), error) {
	url := wsURL(l.baseURL) + "/v1/archive/" + itemID + "/ws"

	header := http.Header{}
	header.Set(client.HeaderSession, l.sessionID)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, err
	}

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			conn.Close()
		})
	}

	go func() {
		defer unsubscribe()
		for {
			_, buf, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					l.log.Warn().Err(err).Str("item_id", itemID).Msg("Patch feed closed unexpectedly")
				}
				return
			}

			var ev Event
			if err := json.Unmarshal(buf, &ev); err != nil {
				l.log.Warn().Err(err).Msg("Dropping malformed patch event")
				continue
			}
			if ev.ItemID != itemID || ev.Origin == l.sessionID {
				continue
			}

			switch ev.Type {
			case EventPatch:
				onPatch(ev.Patch)
			case EventOverwrite:
				onOverwrite(ev.Patch)
			default:
				l.log.Warn().Str("type", string(ev.Type)).Msg("Dropping patch event of unknown type")
			}
		}
	}()

	return unsubscribe, nil
}

func wsURL(baseURL string) string {
	switch {
	case strings.HasPrefix(baseURL, "https://"):
		return "wss://" + strings.TrimPrefix(baseURL, "https://")
	case strings.HasPrefix(baseURL, "http://"):
		return "ws://" + strings.TrimPrefix(baseURL, "http://")
	}
	return baseURL
}

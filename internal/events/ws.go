package events

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// events carry no member data; any origin may subscribe
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSHandler upgrades the request and keeps the client subscribed until it
// disconnects. Incoming messages are read and discarded.
func WSHandler(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			hub.Logger.Debug().Err(err).Msg("websocket upgrade failed")
			return
		}

		// written before Add so it cannot interleave with a broadcast
		_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"welcome","transport":"websocket"}`)); err != nil {
			_ = ws.Close()
			return
		}

		if err := hub.Add(ws); err != nil {
			_ = ws.Close()
			return
		}
		hub.Logger.Info().Str("remote", ws.RemoteAddr().String()).Msg("client connected")

		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				break
			}
		}

		hub.Remove(ws)
		hub.Logger.Info().Str("remote", ws.RemoteAddr().String()).Msg("client disconnected")
	}
}

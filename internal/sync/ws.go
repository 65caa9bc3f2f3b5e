package sync

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // local single-user tool
	},
}

// clientRequest is the only message a websocket client may send:
// {"type":"snapshot"} asks for the current overlay again.
type clientRequest struct {
	Type string `json:"type"`
}

// WSHandler upgrades to a websocket, greets the client with the welcome line
// and the overlay snapshot, then streams overlay events until it disconnects.
func WSHandler(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}

		// Greeting goes out before the client is registered, so no Publish
		// can write to ws concurrently yet.
		if err := ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"welcome","transport":"websocket"}`+"\n")); err != nil {
			_ = ws.Close()
			return
		}
		if line := hub.snapshotLine(); line != nil {
			if err := ws.WriteMessage(websocket.TextMessage, line); err != nil {
				_ = ws.Close()
				return
			}
		}

		hub.AddWS(ws)
		slog.Info("ws client connected", "component", "sync", "remote", c.Request.RemoteAddr)
		defer func() {
			hub.RemoveWS(ws)
			slog.Info("ws client disconnected", "component", "sync", "remote", c.Request.RemoteAddr)
		}()

		for {
			_, msg, err := ws.ReadMessage()
			if err != nil {
				return
			}
			var req clientRequest
			if json.Unmarshal(msg, &req) != nil || req.Type != "snapshot" {
				continue
			}
			if line := hub.snapshotLine(); line != nil {
				if err := hub.sendWS(ws, line); err != nil {
					return
				}
			}
		}
	}
}

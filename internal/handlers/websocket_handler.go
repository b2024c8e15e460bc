package handlers

import (
	"net/http"
	"time"

	"jobsboard-backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 45 * time.Second
)

// WebSocketHandler upgrades connections and attaches them to the push service
type WebSocketHandler struct {
	push     *services.PushService
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates the WebSocket handler
func NewWebSocketHandler(push *services.PushService) *WebSocketHandler {
	return &WebSocketHandler{
		push: push,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Origin policy is enforced by the CORS layer; the socket
				// itself pushes progress only, so no write surface leaks.
				return true
			},
		},
	}
}

// Handle upgrades the request and pumps push messages until the client leaves
// GET /api/ws
func (h *WebSocketHandler) Handle(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithField("error", err.Error()).Warn("WebSocket upgrade failed")
		return
	}

	pushConn := services.NewConnection(conn)
	h.push.RegisterConnection(pushConn)

	go h.writeLoop(pushConn)
	h.readLoop(pushConn)
}

// readLoop drains client frames; clients only send pings, so everything else
// is discarded. Exiting the loop unregisters the connection.
func (h *WebSocketHandler) readLoop(pushConn *services.Connection) {
	defer h.push.UnregisterConnection(pushConn)

	pushConn.Conn.SetReadLimit(1024)
	pushConn.Conn.SetReadDeadline(time.Now().Add(wsPongWait))
	pushConn.Conn.SetPongHandler(func(string) error {
		pushConn.LastPing = time.Now()
		return pushConn.Conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		if _, _, err := pushConn.Conn.ReadMessage(); err != nil {
			return
		}
		pushConn.Conn.SetReadDeadline(time.Now().Add(wsPongWait))
	}
}

// writeLoop forwards queued push frames and keeps the connection alive
func (h *WebSocketHandler) writeLoop(pushConn *services.Connection) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-pushConn.Send:
			if !ok {
				pushConn.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			pushConn.Conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := pushConn.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			pushConn.Conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := pushConn.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"cipherchat/backend/internal/chathub"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The chat protocol authenticates in-band; the origin check would only
	// matter for browser clients sharing cookies, which this protocol has
	// none of.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket upgrades the connection and hands it to the chat core. The
// first frame sent is the in-clear symmetric key; everything after it is
// encrypted.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to upgrade connection"})
		return
	}

	client := chathub.NewWebSocketClient(conn, h.Cfg.SendBuffer, h.Cfg.MaxFrameBytes())
	sess := chathub.NewSession(client, h.Codec, h.Store, h.Registry, h.Broadcast, h.Tokens, h.Cfg.HistoryLimit, h.Cfg.MaxFileBytes)

	// Run blocks for the lifetime of the connection; gin's goroutine is the
	// connection's worker.
	client.Run(sess, h.Codec.Key())
}

// Health reports whether the persistence store is reachable.
func (h *Handler) Health(c *gin.Context) {
	if err := h.Store.Ping(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

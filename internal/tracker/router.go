package tracker

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"schematics/internal/auth"
	synchub "schematics/internal/sync"
)

// NewRouter wires the session API, health checks and the websocket feed.
func NewRouter(session *Session, hub *synchub.Hub, tokens auth.TokenService) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLog())
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	router.GET("/ws", synchub.WSHandler(hub))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/ready", func(c *gin.Context) {
		stats := hub.Stats()
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := session.Ready(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":      "not_ready",
				"store_error": err.Error(),
				"tcp_clients": stats.TCPClients,
				"ws_clients":  stats.WSClients,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":        "ready",
			"store":         "ok",
			"pending_notes": session.PendingNotes(),
			"tcp_clients":   stats.TCPClients,
			"ws_clients":    stats.WSClients,
		})
	})

	NewHandler(session, tokens).RegisterRoutes(router.Group(""))
	return router
}

func requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.DebugContext(c.Request.Context(), "http",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"dur", time.Since(start))
	}
}

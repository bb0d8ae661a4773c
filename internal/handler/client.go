package handler

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"

	"infrascan/internal/logger"
)

// Upgrader upgrades HTTP connections to WebSocket; CheckOrigin allows all origins.
var Upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// LiveHub tracks dashboard connections that receive new reports.
type LiveHub interface {
	Register(ctx context.Context, client *websocket.Conn) bool
	Unregister(ctx context.Context, client *websocket.Conn)
}

// LiveReportsHandler upgrades dashboard connections and registers them with
// the hub until the client goes away. ctx is the server lifetime.
func LiveReportsHandler(ctx context.Context, hub LiveHub, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connection, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error: %v", err)
			return
		}

		if !hub.Register(ctx, connection) {
			connection.Close()
			return
		}
		defer hub.Unregister(ctx, connection)

		logger.Info("Dashboard connected from %s", r.RemoteAddr)

		for {
			if _, _, err := connection.ReadMessage(); err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.Info("Dashboard disconnected normally")
				} else {
					logger.Warning("Dashboard disconnected: %v", err)
				}
				return
			}
		}
	}
}

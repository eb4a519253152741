/*
Package handler provides the HTTP handler function for WebSocket connection upgrading.

The socket only carries server events and client heartbeats; room transitions go through
the REST endpoints.
*/
package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"hmspace/internal/pkg/logx"
)

// HandleWebSocket upgrades the caller's connection and hands it to the hub. It blocks for
// the lifetime of the connection.
func HandleWebSocket(deps *AppDeps, upgrader websocket.Upgrader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := identityFrom(r)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket", "user_id", identity.ID)
			return
		}

		logx.Info("WebSocket connection established", "user_id", identity.ID)

		deps.Hub.Serve(conn, identity.ID)
	}
}

package websocket

import (
	"net/http"

	ws "github.com/coder/websocket"

	"github.com/tmardones/campusred/internal/auth"
)

// HandleWebSocket upgrades connections to WebSocket and runs them as hub
// clients keyed by the authenticated session.
func HandleWebSocket(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ac, ok := auth.FromContext(r.Context())
		if !ok {
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			InsecureSkipVerify: true, // same-host clients on arbitrary dev ports
		})
		if err != nil {
			hub.logger.Warn("websocket accept", "error", err)
			return
		}

		client := NewClient(hub, ac.SessionToken, conn)
		client.Run(r.Context())
	}
}

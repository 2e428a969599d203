package handlers

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/ezchat/ezchat/pkg/auth"
	"github.com/ezchat/ezchat/pkg/hub"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins for development
		// In production, specify allowed origins
		return true
	},
}

// HandleWS upgrades an authenticated request to a websocket connection and
// registers it with the hub. The hub replies with a full chat snapshot,
// after which the client only receives deltas.
func HandleWS(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Browsers cannot set headers on websocket upgrades
		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "Token required", http.StatusUnauthorized)
			return
		}

		claims, err := auth.ValidateJWT(token)
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("WebSocket upgrade error: %v", err)
			return
		}

		client := hub.NewClient(h, claims.UserID, claims.SessionID, conn)

		h.Register <- client

		go client.WritePump()
		go client.ReadPump()

		log.Printf("WebSocket connection established: user=%s, session=%s",
			claims.UserID, claims.SessionID)
	}
}

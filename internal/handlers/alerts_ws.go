package handlers

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/dragonwatch/dragonwatch/internal/database"
)

// AlertWSMessage is the frame pushed to dashboard clients
type AlertWSMessage struct {
	Type  string          `json:"type"`
	Alert *database.Alert `json:"alert"`
}

// AlertWSHandler broadcasts alert upserts to connected dashboard clients
// over websockets, so escalations show up without polling.
type AlertWSHandler struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]bool
}

// NewAlertWSHandler creates a new websocket broadcast handler
func NewAlertWSHandler() *AlertWSHandler {
	return &AlertWSHandler{
		upgrader: websocket.Upgrader{
			// The dashboard is served from a different origin in development
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]bool),
	}
}

// SetupRoutes sets up the websocket route
func (h *AlertWSHandler) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws/alerts", h.handleWS)
}

func (h *AlertWSHandler) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Failed to upgrade websocket connection: %v", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	clientCount := len(h.clients)
	h.mu.Unlock()
	log.Printf("Alert websocket client connected (%d total)", clientCount)

	// Reader loop only detects disconnects; clients never send frames we use
	go func() {
		defer h.removeClient(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *AlertWSHandler) removeClient(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	conn.Close()
}

// Broadcast pushes an alert update to every connected client. Dead
// connections are dropped on write failure.
func (h *AlertWSHandler) Broadcast(alert *database.Alert) {
	msg := AlertWSMessage{Type: "alert_updated", Alert: alert}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		if err := conn.WriteJSON(msg); err != nil {
			log.Printf("Dropping alert websocket client: %v", err)
			delete(h.clients, conn)
			conn.Close()
		}
	}
}

// ClientCount returns the number of connected clients
func (h *AlertWSHandler) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// handlers/realtime.go - Per-team websocket rooms
package handlers

import (
	"log"
	"sync"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// Event is the wire format pushed to team rooms.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type wsClient struct {
	id     string
	userID uint
	teamID uint
	conn   *websocket.Conn
	send   chan Event
}

// Hub tracks connected clients grouped by team.
type Hub struct {
	mu      sync.RWMutex
	rooms   map[uint]map[string]*wsClient // teamID -> clientID -> client
	clients map[string]*wsClient
}

var (
	hub     *Hub
	hubOnce sync.Once
)

// TeamHub returns the process-wide hub.
func TeamHub() *Hub {
	hubOnce.Do(func() {
		hub = &Hub{
			rooms:   make(map[uint]map[string]*wsClient),
			clients: make(map[string]*wsClient),
		}
	})
	return hub
}

// EmitToTeam pushes an event to every connected member of a team. Slow
// clients are skipped rather than blocking the caller.
func (h *Hub) EmitToTeam(teamID uint, event string, payload interface{}) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	room, exists := h.rooms[teamID]
	if !exists {
		return
	}

	msg := Event{Type: event, Payload: payload}
	for _, client := range room {
		select {
		case client.send <- msg:
		default:
			log.Printf("⚠️ Dropping event %s for slow client %s\n", event, client.id)
		}
	}
}

func (h *Hub) register(client *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[client.teamID] == nil {
		h.rooms[client.teamID] = make(map[string]*wsClient)
	}
	h.rooms[client.teamID][client.id] = client
	h.clients[client.id] = client

	log.Printf("🔌 Client %s joined team room %d (%d connected)\n", client.id, client.teamID, len(h.rooms[client.teamID]))
}

// unregister removes the client from its room and closes its send channel.
// Safe to call more than once; only the first call closes the channel.
func (h *Hub) unregister(client *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.clients[client.id]; !exists {
		return
	}

	if room, exists := h.rooms[client.teamID]; exists {
		delete(room, client.id)
		if len(room) == 0 {
			delete(h.rooms, client.teamID)
		}
	}
	delete(h.clients, client.id)
	close(client.send)
}

// HandleWebSocket serves a team room connection. The upgrade request must
// pass WebSocketAuthMiddleware first; membership decides the room.
func HandleWebSocket(conn *websocket.Conn) {
	defer conn.Close()

	userIDRaw := conn.Locals("userId")
	var userID uint
	switch v := userIDRaw.(type) {
	case float64:
		userID = uint(v)
	case uint:
		userID = v
	default:
		_ = conn.WriteJSON(Event{Type: "error", Payload: "unauthorized"})
		return
	}

	team, err := teamService.FindUserTeam(userID)
	if err != nil {
		_ = conn.WriteJSON(Event{Type: "error", Payload: "you are not in a team"})
		return
	}

	client := &wsClient{
		id:     uuid.New().String(),
		userID: userID,
		teamID: team.ID,
		conn:   conn,
		send:   make(chan Event, 16),
	}

	h := TeamHub()
	h.register(client)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range client.send {
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		}
	}()

	// The room is push-only. Reads only detect disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	// Unregister before waiting: closing the send channel is what stops the
	// writer, so the deferred variant would deadlock here on a quiet room.
	h.unregister(client)
	<-done
}

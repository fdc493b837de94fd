package http

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"

	"live-trivia-service/internal/domain"
)

// Hub fans events out to connections. Rooms are keyed by session id. It
// implements app.Broadcaster: every method is non-blocking, and a connection
// whose buffer is full misses the event instead of stalling the session.
type Hub struct {
	mu         sync.RWMutex
	clients    map[string]*client
	rooms      map[string]map[string]*client
	sendBuffer int
}

type client struct {
	id    string
	send  chan []byte
	rooms map[string]struct{}
}

func NewHub(sendBuffer int) *Hub {
	if sendBuffer <= 0 {
		sendBuffer = 64
	}
	return &Hub{
		clients:    make(map[string]*client),
		rooms:      make(map[string]map[string]*client),
		sendBuffer: sendBuffer,
	}
}

// Register adds a connection and returns the channel its writer drains. The
// channel is closed by Unregister.
func (h *Hub) Register(connID string) <-chan []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	c := &client{id: connID, send: make(chan []byte, h.sendBuffer), rooms: make(map[string]struct{})}
	h.clients[connID] = c
	return c.send
}

// Unregister removes a connection from every room and closes its channel.
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.clients[connID]
	if !ok {
		return
	}
	for sessionID := range c.rooms {
		h.leaveLocked(sessionID, c)
	}
	delete(h.clients, connID)
	close(c.send)
}

func (h *Hub) Join(sessionID, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.clients[connID]
	if !ok {
		return
	}
	if h.rooms[sessionID] == nil {
		h.rooms[sessionID] = make(map[string]*client)
	}
	h.rooms[sessionID][connID] = c
	c.rooms[sessionID] = struct{}{}
}

func (h *Hub) Leave(sessionID, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[connID]; ok {
		h.leaveLocked(sessionID, c)
	}
}

// Close drops a whole room.
func (h *Hub) Close(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.rooms[sessionID] {
		delete(c.rooms, sessionID)
	}
	delete(h.rooms, sessionID)
}

func (h *Hub) Publish(sessionID string, event domain.Event) {
	data, ok := encode(event)
	if !ok {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.rooms[sessionID] {
		h.deliverLocked(c, data, event.Type)
	}
}

func (h *Hub) Send(connID string, event domain.Event) {
	data, ok := encode(event)
	if !ok {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if c, ok := h.clients[connID]; ok {
		h.deliverLocked(c, data, event.Type)
	}
}

// RoomSize returns the number of connections in a room.
func (h *Hub) RoomSize(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[sessionID])
}

func (h *Hub) deliverLocked(c *client, data []byte, typ domain.EventType) {
	select {
	case c.send <- data:
	default:
		log.Warn().Str("connection_id", c.id).Str("event_type", string(typ)).Msg("send buffer full, dropping event")
	}
}

func (h *Hub) leaveLocked(sessionID string, c *client) {
	delete(c.rooms, sessionID)
	if room, ok := h.rooms[sessionID]; ok {
		delete(room, c.id)
		if len(room) == 0 {
			delete(h.rooms, sessionID)
		}
	}
}

func encode(event domain.Event) ([]byte, bool) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("event_type", string(event.Type)).Msg("marshal event")
		return nil, false
	}
	return data, true
}

package gateway

import (
	"sync"
	"time"

	commonmodel "chakula-delivery/internal/common/model"

	"github.com/gorilla/websocket"
)

const (
	RoomDrivers     = "drivers"
	RoomDispatchers = "dispatchers"
)

func RoomForOrder(orderID string) string { return "order_" + orderID }
func RoomForUser(userID string) string   { return "user_" + userID }

// Client is one live websocket connection after authentication.
type Client struct {
	ID       string
	Actor    commonmodel.Actor
	Conn     *websocket.Conn
	Send     chan []byte
	LastPong time.Time
}

// Hub is the room-keyed pub/sub relay. Rooms are order topics, the two
// role rooms and per-user topics; a connection holds at most one
// membership per room.
type Hub struct {
	mu          sync.RWMutex
	rooms       map[string]map[*Client]bool
	memberships map[*Client]map[string]bool
}

func NewHub() *Hub {
	return &Hub{
		rooms:       make(map[string]map[*Client]bool),
		memberships: make(map[*Client]map[string]bool),
	}
}

// Join adds the client to a room. Returns false when it was already a
// member.
func (h *Hub) Join(room string, c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.memberships[c][room] {
		return false
	}
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]bool)
	}
	h.rooms[room][c] = true
	if h.memberships[c] == nil {
		h.memberships[c] = make(map[string]bool)
	}
	h.memberships[c][room] = true
	return true
}

func (h *Hub) Leave(room string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(room, c)
}

// Disconnect removes the client from every room it joined.
func (h *Hub) Disconnect(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for room := range h.memberships[c] {
		h.dropLocked(room, c)
	}
	delete(h.memberships, c)
}

func (h *Hub) dropLocked(room string, c *Client) {
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	if m, ok := h.memberships[c]; ok {
		delete(m, room)
	}
}

// Publish sends the message to every member of the room. A member whose
// send buffer is full is skipped; the write pump will notice the dead
// connection and disconnect it.
func (h *Hub) Publish(room string, message []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered := 0
	for c := range h.rooms[room] {
		select {
		case c.Send <- message:
			delivered++
		default:
		}
	}
	return delivered
}

// Members reports the current room size.
func (h *Hub) Members(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

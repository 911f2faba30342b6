package chat

import "sync"

// Hub tracks which clients are in which trip room. A connection can sit
// in several rooms at once; disconnecting drops it from all of them.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]bool
}

func NewHub() *Hub {
	return &Hub{
		rooms: make(map[string]map[*Client]bool),
	}
}

func (h *Hub) join(tripID string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[tripID] == nil {
		h.rooms[tripID] = make(map[*Client]bool)
	}
	h.rooms[tripID][c] = true
	c.rooms[tripID] = true
}

// leave drops the client from every room it joined.
func (h *Hub) leave(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for tripID := range c.rooms {
		h.removeLocked(tripID, c)
		delete(c.rooms, tripID)
	}
}

func (h *Hub) removeLocked(tripID string, c *Client) {
	room := h.rooms[tripID]
	delete(room, c)
	if len(room) == 0 {
		delete(h.rooms, tripID)
	}
}

// broadcast sends an event to every client in the trip room, the sender
// included. Clients with a full send queue are skipped.
func (h *Hub) broadcast(tripID string, ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.rooms[tripID] {
		select {
		case c.send <- ev:
		default:
		}
	}
}

// RoomSize reports how many clients are in a trip room.
func (h *Hub) RoomSize(tripID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[tripID])
}

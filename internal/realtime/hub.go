// Package realtime fans booking events out to every connection watching a
// calendar date. Delivery is best-effort: a missed event is staleness, not a
// correctness problem, because the allocator re-validates conflicts at
// commit time.
package realtime

import (
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"
)

// Client -> server events.
const (
	EventJoinDateRoom       = "join-date-room"
	EventLeaveDateRoom      = "leave-date-room"
	EventNotifySlotBooked   = "notify-slot-booked"
	EventNotifySlotUnbooked = "notify-slot-unbooked"
	EventGetAvailableSlots  = "get-available-slots"
)

// Server -> client events.
const (
	EventSlotBooked     = "slot-booked"
	EventSlotUnbooked   = "slot-unbooked"
	EventAvailableSlots = "available-slots-updated"
	EventSlotsError     = "slots-error"
)

type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type SlotEvent struct {
	Date     string `json:"date"`
	TimeSlot string `json:"timeSlot"`
}

type SlotsSnapshot struct {
	Date        string   `json:"date"`
	BookedSlots []string `json:"bookedSlots"`
}

// Marshal builds the wire envelope. Marshal errors cannot happen for the
// payload types above, so the result is returned directly.
func Marshal(event string, data any) []byte {
	raw, _ := json.Marshal(data)
	b, _ := json.Marshal(Envelope{Event: event, Data: raw})
	return b
}

// Hub groups connections by the calendar date they are watching. One client
// may sit in several date rooms at once.
type Hub struct {
	mu      sync.RWMutex
	rooms   map[string]map[*Client]bool
	clients map[*Client]bool
	log     *logrus.Logger
}

func NewHub(log *logrus.Logger) *Hub {
	return &Hub{
		rooms:   make(map[string]map[*Client]bool),
		clients: make(map[*Client]bool),
		log:     log,
	}
}

// Register tracks a freshly upgraded connection. A client counts as
// connected before it joins its first date room.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = true
}

func (h *Hub) Join(c *Client, date string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[date] == nil {
		h.rooms[date] = make(map[*Client]bool)
	}
	h.rooms[date][c] = true
	c.rooms[date] = true
}

func (h *Hub) Leave(c *Client, date string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(c, date)
}

// Remove drops the client from every room and closes its send channel.
// Called once on disconnect; safe after a broadcast already dropped it.
func (h *Hub) Remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(c)
}

func (h *Hub) dropLocked(c *Client) {
	for date := range c.rooms {
		h.leaveLocked(c, date)
	}
	delete(h.clients, c)
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (h *Hub) leaveLocked(c *Client, date string) {
	clients, ok := h.rooms[date]
	if !ok {
		return
	}
	delete(clients, c)
	delete(c.rooms, date)
	if len(clients) == 0 {
		delete(h.rooms, date)
	}
}

// Broadcast delivers payload to every subscriber of date except the
// originating client. A subscriber whose send buffer is full is dropped;
// delivery to the rest continues.
func (h *Hub) Broadcast(date string, payload []byte, except *Client) {
	h.broadcast(date, payload, func(c *Client) bool { return c == except })
}

// BroadcastExceptUser is the server-initiated variant: on a REST commit the
// originator is known only by identity, so every connection of that user is
// skipped.
func (h *Hub) BroadcastExceptUser(date, userID string, payload []byte) {
	h.broadcast(date, payload, func(c *Client) bool { return c.userID == userID })
}

func (h *Hub) broadcast(date string, payload []byte, skip func(*Client) bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.rooms[date]
	if !ok {
		return
	}
	for c := range clients {
		if skip(c) || c.closed {
			continue
		}
		select {
		case c.send <- payload:
		default:
			h.log.WithFields(logrus.Fields{
				"user_id": c.userID,
				"date":    date,
			}).Warn("subscriber send buffer full, dropping connection")
			h.dropLocked(c)
		}
	}
	if len(clients) == 0 {
		delete(h.rooms, date)
	}
}

// Connections counts live connections, including clients that have not
// joined any date room.
func (h *Hub) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

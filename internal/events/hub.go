package events

import (
	"log"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
)

// Event is one state-change notification pushed to terminals of a branch.
// The stream is a freshness optimization only: delivery is at most once, and
// terminals recover missed events with their periodic full reload.
type Event struct {
	Type     string    `json:"type"`
	BranchID uuid.UUID `json:"branch_id"`
	Payload  any       `json:"payload,omitempty"`
	At       time.Time `json:"at"`
}

// terminalConn is what the hub needs from a connected terminal.
type terminalConn interface {
	WriteJSON(v any) error
	Close() error
}

type subscription struct {
	conn     terminalConn
	branchID uuid.UUID
}

// Hub broadcasts order, payment and table changes to every terminal
// subscribed to the affected branch: POS stations, the kitchen display and
// order boards.
type Hub struct {
	mu         sync.Mutex
	terminals  map[uuid.UUID]map[terminalConn]bool
	broadcast  chan Event
	register   chan subscription
	unregister chan subscription
}

// NewHub constructs a Hub. Call Run in its own goroutine before publishing.
func NewHub() *Hub {
	return &Hub{
		terminals:  make(map[uuid.UUID]map[terminalConn]bool),
		broadcast:  make(chan Event, 64),
		register:   make(chan subscription),
		unregister: make(chan subscription),
	}
}

// Run services registrations and broadcasts until the process exits.
func (h *Hub) Run() {
	for {
		select {
		case sub := <-h.register:
			h.mu.Lock()
			if h.terminals[sub.branchID] == nil {
				h.terminals[sub.branchID] = make(map[terminalConn]bool)
			}
			h.terminals[sub.branchID][sub.conn] = true
			h.mu.Unlock()

		case sub := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.terminals[sub.branchID][sub.conn]; ok {
				delete(h.terminals[sub.branchID], sub.conn)
				sub.conn.Close()
			}
			h.mu.Unlock()

		case ev := <-h.broadcast:
			h.mu.Lock()
			for conn := range h.terminals[ev.BranchID] {
				if err := conn.WriteJSON(ev); err != nil {
					log.Printf("terminal write error: %v", err)
					conn.Close()
					delete(h.terminals[ev.BranchID], conn)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Publish queues an event for every terminal of the branch. Publishing never
// blocks the caller: when the queue is full the event is dropped.
func (h *Hub) Publish(branchID uuid.UUID, eventType string, payload any) {
	ev := Event{
		Type:     eventType,
		BranchID: branchID,
		Payload:  payload,
		At:       time.Now(),
	}
	select {
	case h.broadcast <- ev:
	default:
		log.Printf("fan-out queue full, dropping %s for branch %s", eventType, branchID)
	}
}

// HandleTerminal is the websocket endpoint for /ws/terminals/:branchId. The
// connection only receives; inbound frames are read solely to detect close.
func (h *Hub) HandleTerminal(c *websocket.Conn) {
	branchID, err := uuid.Parse(c.Params("branchId"))
	if err != nil {
		c.Close()
		return
	}

	sub := subscription{conn: c, branchID: branchID}
	h.register <- sub
	defer func() { h.unregister <- sub }()

	for {
		if _, _, err := c.ReadMessage(); err != nil {
			return
		}
	}
}

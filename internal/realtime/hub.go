// Package realtime pushes board events to the browser over websockets.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"slices"
	"sync"

	"flowboard/internal/board"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Message is the envelope of every frame sent to a client.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Changed tells the client to refetch the board.
type Changed struct {
	WorkflowID uuid.UUID `json:"workflow_id"`
	Generation uint64    `json:"generation"`
}

// Failure is a toast-worthy failed load or write.
type Failure struct {
	WorkflowID uuid.UUID `json:"workflow_id"`
	Generation uint64    `json:"generation"`
	Kind       string    `json:"kind"`
	Op         string    `json:"op,omitempty"`
	Entity     string    `json:"entity,omitempty"`
	Step       string    `json:"step,omitempty"`
	Error      string    `json:"error"`
}

// Hub fans messages out to every connection of a user.
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[uuid.UUID]map[*Client]struct{}
	closed  bool
}

// NewHub builds a hub accepting handshakes from allowedOrigins. "*" allows
// any origin.
func NewHub(allowedOrigins []string) *Hub {
	h := &Hub{clients: make(map[uuid.UUID]map[*Client]struct{})}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || slices.Contains(allowedOrigins, "*") || slices.Contains(allowedOrigins, origin)
		},
	}
	return h
}

// Serve upgrades the request and attaches the connection to userID.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID uuid.UUID) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := &Client{hub: h, conn: conn, userID: userID, send: make(chan []byte, sendBuffer)}
	if !h.register(c) {
		conn.Close()
		return errors.New("hub is closed")
	}
	go c.writePump()
	go c.readPump()
	return nil
}

func (h *Hub) register(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	set, ok := h.clients[c.userID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.userID] = set
	}
	set[c] = struct{}{}
	log.Printf("🔌 Client connected: %s", c.userID)
	return true
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.remove(c)
}

// remove expects h.mu held.
func (h *Hub) remove(c *Client) {
	set, ok := h.clients[c.userID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.send)
	if len(set) == 0 {
		delete(h.clients, c.userID)
	}
	log.Printf("🔌 Client disconnected: %s", c.userID)
}

// Connections returns the number of open connections of userID.
func (h *Hub) Connections(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Publish sends msg to every connection of userID. A client whose buffer is
// full is disconnected.
func (h *Hub) Publish(userID uuid.UUID, msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		log.Printf("❌ Failed to encode %s message: %v", msg.Type, err)
		return
	}

	var slow []*Client
	h.mu.RLock()
	for c := range h.clients[userID] {
		select {
		case c.send <- payload:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	if len(slow) > 0 {
		h.mu.Lock()
		for _, c := range slow {
			h.remove(c)
		}
		h.mu.Unlock()
	}
}

// Listener converts board events into messages for the event's user.
func (h *Hub) Listener() board.Listener {
	return func(e board.Event) {
		h.Publish(e.UserID, EventMessage(e))
	}
}

// EventMessage renders a board event.
func EventMessage(e board.Event) Message {
	if e.Kind != board.EventError {
		return Message{
			Type: string(board.EventChanged),
			Data: Changed{WorkflowID: e.WorkflowID, Generation: e.Generation},
		}
	}

	f := Failure{WorkflowID: e.WorkflowID, Generation: e.Generation, Kind: "write"}
	if e.Err != nil {
		f.Error = e.Err.Error()
	}
	var (
		loadErr    *board.LoadError
		writeErr   *board.WriteError
		partialErr *board.PartialMoveError
	)
	switch {
	case errors.As(e.Err, &loadErr):
		f.Kind = "load"
	case errors.As(e.Err, &partialErr):
		f.Kind, f.Op, f.Entity, f.Step = "partial", partialErr.Op, partialErr.Entity.String(), partialErr.Step
	case errors.As(e.Err, &writeErr):
		f.Op, f.Entity = writeErr.Op, writeErr.Entity.String()
	}
	return Message{Type: string(board.EventError), Data: f}
}

// Run blocks until ctx is done and then disconnects every client.
func (h *Hub) Run(ctx context.Context) error {
	<-ctx.Done()
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for _, set := range h.clients {
		for c := range set {
			h.remove(c)
		}
	}
	return nil
}

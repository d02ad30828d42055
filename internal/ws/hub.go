package ws

import (
	"encoding/json"
	"log"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
)

// Conn is the part of *websocket.Conn the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client is one open socket of an authenticated employee.
type Client struct {
	UserID uuid.UUID
	Conn   Conn
}

// Event is pushed to the browser as JSON.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

type envelope struct {
	userID  uuid.UUID
	payload []byte
}

// Hub routes events to the sockets of their recipient. Run owns the client
// registry; everything else talks to it through channels.
type Hub struct {
	clients    map[uuid.UUID]map[*Client]bool
	Register   chan *Client
	Unregister chan *Client
	send       chan envelope
	stop       chan struct{}
	done       chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		send:       make(chan envelope, 256),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	defer close(h.done)
	for {
		select {
		case c := <-h.Register:
			if h.clients[c.UserID] == nil {
				h.clients[c.UserID] = make(map[*Client]bool)
			}
			h.clients[c.UserID][c] = true
			log.Printf("ws connected user=%s sockets=%d", c.UserID, len(h.clients[c.UserID]))

		case c := <-h.Unregister:
			h.drop(c)

		case msg := <-h.send:
			for c := range h.clients[msg.userID] {
				if err := c.Conn.WriteMessage(websocket.TextMessage, msg.payload); err != nil {
					h.drop(c)
				}
			}

		case <-h.stop:
			for _, set := range h.clients {
				for c := range set {
					c.Conn.Close()
				}
			}
			h.clients = map[uuid.UUID]map[*Client]bool{}
			return
		}
	}
}

func (h *Hub) drop(c *Client) {
	set, ok := h.clients[c.UserID]
	if !ok || !set[c] {
		return
	}
	delete(set, c)
	c.Conn.Close()
	if len(set) == 0 {
		delete(h.clients, c.UserID)
	}
}

// Join registers c. It returns false once the hub has stopped.
func (h *Hub) Join(c *Client) bool {
	select {
	case h.Register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Leave unregisters c; it is a no-op after Stop.
func (h *Hub) Leave(c *Client) {
	select {
	case h.Unregister <- c:
	case <-h.done:
	}
}

// Notify queues ev for every socket of userID. It never blocks: when the
// queue is full the event is dropped, the notification row stays readable.
func (h *Hub) Notify(userID uuid.UUID, ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Printf("ws marshal event type=%s: %v", ev.Type, err)
		return
	}
	select {
	case h.send <- envelope{userID: userID, payload: payload}:
	default:
		log.Printf("ws queue full, dropped event type=%s user=%s", ev.Type, userID)
	}
}

// Stop closes every socket and ends Run.
func (h *Hub) Stop() {
	close(h.stop)
	<-h.done
}
